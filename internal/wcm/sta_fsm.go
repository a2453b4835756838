package wcm

// STAState enumerates the station connection states of §3/§4.3.
// STAScanningHidden is the explicit hidden-SSID follow-up substate called
// for by §9's design note ("keep this as an explicit sub-state
// SCANNING_HIDDEN ... to make the two rescan modes distinguishable in
// tests") rather than an inner boolean on SCANNING.
type STAState uint8

const (
	STAInitializing STAState = iota
	STAIdle
	STAScanning
	STAScanningUser
	STAScanningHidden
	STAAssociating
	STAAssociated
	STAReqAddr
	STAObtAddr
	STAConnected
)

func (s STAState) String() string {
	switch s {
	case STAInitializing:
		return "INITIALIZING"
	case STAIdle:
		return "IDLE"
	case STAScanning:
		return "SCANNING"
	case STAScanningUser:
		return "SCANNING_USER"
	case STAScanningHidden:
		return "SCANNING_HIDDEN"
	case STAAssociating:
		return "ASSOCIATING"
	case STAAssociated:
		return "ASSOCIATED"
	case STAReqAddr:
		return "REQ_ADDR"
	case STAObtAddr:
		return "OBT_ADDR"
	case STAConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// STAEvent enumerates the events the STA FSM reacts to. Events that the
// spec's prose describes as data-dependent branches (same-ESS fast path
// vs. static vs. DHCP; retry vs. exhausted) are split into distinct event
// constants so the transition table stays a pure lookup — the dispatcher
// decides which concrete event to apply based on profile/driver data
// before calling ApplySTAEvent.
type STAEvent uint8

const (
	STAEvNetIfConfigOK STAEvent = iota
	STAEvUserConnect
	STAEvScanMatch
	STAEvScanRescan
	STAEvScanHiddenFound
	STAEvScanRetriesExhausted
	STAEvAssocOK
	STAEvAssocFailRetry
	STAEvAssocFailExhausted
	STAEvAuthOKFastPath
	STAEvAuthOKNeedAddr
	STAEvAuthFailMIC
	STAEvAuthFailRetry
	STAEvAuthFailExhausted
	STAEvStaticAddrOK
	STAEvStaticAddrFail
	STAEvDHCPNeeded
	STAEvDHCPOK
	STAEvDHCPFail
	STAEvLinkLoss
	STAEvDeauth
	STAEvChanSwitch
	STAEvUserDisconnect
)

func (e STAEvent) String() string {
	names := [...]string{
		"NET_IF_CONFIG_OK", "USER_CONNECT", "SCAN_MATCH", "SCAN_RESCAN",
		"SCAN_HIDDEN_FOUND", "SCAN_RETRIES_EXHAUSTED", "ASSOC_OK",
		"ASSOC_FAIL_RETRY", "ASSOC_FAIL_EXHAUSTED", "AUTH_OK_FAST_PATH",
		"AUTH_OK_NEED_ADDR", "AUTH_FAIL_MIC", "AUTH_FAIL_RETRY",
		"AUTH_FAIL_EXHAUSTED", "STATIC_ADDR_OK", "STATIC_ADDR_FAIL",
		"DHCP_NEEDED", "DHCP_OK", "DHCP_FAIL", "LINK_LOSS", "DEAUTH",
		"CHAN_SWITCH", "USER_DISCONNECT",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "UNKNOWN"
}

// STAAction enumerates the side effects the dispatcher executes after a
// pure transition-table lookup (§9 "thin outer driver applying actions").
type STAAction uint8

const (
	STAActionStartScan STAAction = iota
	STAActionStartHiddenScan
	STAActionConfigureSecurity
	STAActionAssociate
	STAActionRequestStaticAddr
	STAActionRequestDHCP
	STAActionAcquireWakeLock
	STAActionReleaseWakeLock
	STAActionReleaseScanLock
	STAActionResetReassocCounters
	STAActionScheduleReassoc
	STAActionStartAssocPauseTimer
	STAActionBringDown
	STAActionEmitSuccess
	STAActionEmitAuthSuccess
	STAActionEmitConnectFailed
	STAActionEmitNetworkNotFound
	STAActionEmitNetworkAuthFailed
	STAActionEmitAddressSuccess
	STAActionEmitAddressFailed
	STAActionEmitLinkLost
	STAActionEmitChanSwitch
	STAActionEmitUserDisconnect
)

type staStateEvent struct {
	state STAState
	event STAEvent
}

type staTransition struct {
	next    STAState
	actions []STAAction
}

// staFSMTable is the exhaustive (state, event) -> (next state, actions)
// table for §4.3, generalized from the teacher's fsm.go shape: a map
// keyed by a state/event pair, pure and side-effect free.
var staFSMTable = map[staStateEvent]staTransition{
	{STAInitializing, STAEvNetIfConfigOK}: {STAIdle, nil},

	{STAIdle, STAEvUserConnect}: {STAScanning, []STAAction{STAActionAcquireWakeLock, STAActionStartScan}},

	{STAScanning, STAEvScanMatch}:             {STAAssociating, []STAAction{STAActionReleaseScanLock, STAActionConfigureSecurity, STAActionAssociate}},
	{STAScanning, STAEvScanRescan}:            {STAScanning, []STAAction{STAActionStartScan}},
	{STAScanning, STAEvScanHiddenFound}:       {STAScanningHidden, []STAAction{STAActionStartHiddenScan}},
	{STAScanning, STAEvScanRetriesExhausted}:  {STAIdle, []STAAction{STAActionReleaseScanLock, STAActionReleaseWakeLock, STAActionEmitNetworkNotFound}},

	{STAScanningHidden, STAEvScanMatch}:            {STAAssociating, []STAAction{STAActionReleaseScanLock, STAActionConfigureSecurity, STAActionAssociate}},
	{STAScanningHidden, STAEvScanRescan}:           {STAScanning, []STAAction{STAActionStartScan}},
	{STAScanningHidden, STAEvScanRetriesExhausted}: {STAIdle, []STAAction{STAActionReleaseScanLock, STAActionReleaseWakeLock, STAActionEmitNetworkNotFound}},

	{STAAssociating, STAEvAssocOK}:           {STAAssociated, nil},
	{STAAssociating, STAEvAssocFailRetry}:    {STAScanning, []STAAction{STAActionStartScan}},
	{STAAssociating, STAEvAssocFailExhausted}: {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionEmitConnectFailed}},

	{STAAssociated, STAEvAuthOKFastPath}:  {STAConnected, []STAAction{STAActionEmitAuthSuccess, STAActionResetReassocCounters, STAActionEmitSuccess}},
	{STAAssociated, STAEvAuthOKNeedAddr}:  {STAReqAddr, []STAAction{STAActionEmitAuthSuccess}},
	{STAAssociated, STAEvAuthFailMIC}:     {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionStartAssocPauseTimer, STAActionEmitConnectFailed}},
	{STAAssociated, STAEvAuthFailRetry}:   {STAScanning, []STAAction{STAActionScheduleReassoc, STAActionStartScan}},
	{STAAssociated, STAEvAuthFailExhausted}: {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionEmitConnectFailed}},

	{STAReqAddr, STAEvStaticAddrOK}:   {STAConnected, []STAAction{STAActionResetReassocCounters, STAActionEmitAddressSuccess, STAActionEmitSuccess}},
	{STAReqAddr, STAEvStaticAddrFail}: {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionEmitAddressFailed}},
	{STAReqAddr, STAEvDHCPNeeded}:     {STAObtAddr, []STAAction{STAActionRequestDHCP}},

	{STAObtAddr, STAEvDHCPOK}:   {STAConnected, []STAAction{STAActionResetReassocCounters, STAActionEmitAddressSuccess, STAActionEmitSuccess}},
	{STAObtAddr, STAEvDHCPFail}: {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionEmitAddressFailed}},

	{STAConnected, STAEvLinkLoss}:   {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionEmitLinkLost}},
	{STAConnected, STAEvDeauth}:     {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionEmitLinkLost}},
	{STAConnected, STAEvChanSwitch}: {STAIdle, []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionEmitChanSwitch}},
}

// STAFSMResult is the outcome of a table lookup: the previous and next
// state, the actions to execute, and whether a transition actually
// occurred (no entry means the event is ignored in this state).
type STAFSMResult struct {
	OldState STAState
	NewState STAState
	Actions  []STAAction
	Changed  bool
}

// ApplySTAEvent is the pure §4.3 transition function. USER_DISCONNECT is
// handled outside the table (see ApplySTADisconnect) because it is valid
// from every state ("ANY -(USER_DISCONNECT)-> IDLE") and the table would
// otherwise need one entry per existing state.
func ApplySTAEvent(state STAState, event STAEvent) STAFSMResult {
	t, ok := staFSMTable[staStateEvent{state, event}]
	if !ok {
		return STAFSMResult{OldState: state, NewState: state, Changed: false}
	}
	return STAFSMResult{OldState: state, NewState: t.next, Actions: t.actions, Changed: true}
}

// ApplySTADisconnect implements "ANY -(USER_DISCONNECT)-> IDLE" (§4.3
// diagram) plus the cancellation semantics of §5: release the scan lock
// if held, bring the interface down, clear reassoc counters, emit
// UserDisconnect. A user-initiated scan keeps the lock until its result
// is delivered to the waiting caller.
func ApplySTADisconnect(state STAState) STAFSMResult {
	if state == STAIdle || state == STAInitializing {
		return STAFSMResult{OldState: state, NewState: state, Changed: false}
	}
	actions := []STAAction{STAActionReleaseWakeLock, STAActionBringDown, STAActionResetReassocCounters, STAActionEmitUserDisconnect}
	if state != STAScanningUser {
		actions = append([]STAAction{STAActionReleaseScanLock}, actions...)
	}
	return STAFSMResult{OldState: state, NewState: STAIdle, Actions: actions, Changed: true}
}

// IsConnecting reports whether state is within the CONNECTING range
// (ASSOCIATING..OBT_ADDR) per §4.2 "A scan request arriving while STA is
// CONNECTING is dropped with the lock released."
func (s STAState) IsConnecting() bool {
	switch s {
	case STAAssociating, STAAssociated, STAReqAddr, STAObtAddr:
		return true
	default:
		return false
	}
}
