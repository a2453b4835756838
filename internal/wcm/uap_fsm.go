package wcm

// UAPState enumerates the soft-AP connection states of §3/§4.4.
type UAPState uint8

const (
	UAPInitializing UAPState = iota
	UAPConfigured
	UAPStarted
	UAPIPUp
)

func (s UAPState) String() string {
	switch s {
	case UAPInitializing:
		return "INITIALIZING"
	case UAPConfigured:
		return "CONFIGURED"
	case UAPStarted:
		return "STARTED"
	case UAPIPUp:
		return "IP_UP"
	default:
		return "UNKNOWN"
	}
}

// UAPEvent enumerates the events the uAP FSM reacts to (§4.4).
type UAPEvent uint8

const (
	UAPEvUserStart UAPEvent = iota
	UAPEvStartedOK
	UAPEvStartedFail
	UAPEvNetAddrConfigOK
	UAPEvNetAddrConfigFail
	UAPEvUserStop
	UAPEvClientAssoc
	UAPEvClientConn
	UAPEvClientDeauth
)

func (e UAPEvent) String() string {
	names := [...]string{
		"USER_START", "UAP_STARTED_OK", "UAP_STARTED_FAIL",
		"NET_ADDR_CONFIG_OK", "NET_ADDR_CONFIG_FAIL", "USER_STOP",
		"UAP_CLIENT_ASSOC", "UAP_CLIENT_CONN", "UAP_CLIENT_DEAUTH",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "UNKNOWN"
}

// UAPAction enumerates the side effects of a uAP FSM transition.
type UAPAction uint8

const (
	UAPActionQueryAllowedChannels UAPAction = iota
	UAPActionIssueStart
	UAPActionConfigureStaticAddr
	UAPActionEmitUapSuccess
	UAPActionEmitUapStartFailed
	UAPActionEmitAddressFailed
	UAPActionIssueStop
	UAPActionEmitUapStopped
	UAPActionEmitUapStopFailed
	UAPActionEmitClientAssoc
	UAPActionEmitClientConn
	UAPActionEmitClientDisassoc
)

type uapStateEvent struct {
	state UAPState
	event UAPEvent
}

type uapTransition struct {
	next    UAPState
	actions []UAPAction
}

// uapFSMTable is the exhaustive §4.4 transition table.
var uapFSMTable = map[uapStateEvent]uapTransition{
	{UAPInitializing, UAPEvUserStart}: {UAPConfigured, []UAPAction{UAPActionQueryAllowedChannels, UAPActionIssueStart}},

	{UAPConfigured, UAPEvStartedOK}:             {UAPStarted, []UAPAction{UAPActionConfigureStaticAddr}},
	{UAPConfigured, UAPEvStartedFail}:           {UAPInitializing, []UAPAction{UAPActionEmitUapStartFailed}},
	{UAPConfigured, UAPEvUserStop}:              {UAPInitializing, []UAPAction{UAPActionIssueStop, UAPActionEmitUapStopped}},

	{UAPStarted, UAPEvNetAddrConfigOK}:   {UAPIPUp, []UAPAction{UAPActionEmitUapSuccess}},
	{UAPStarted, UAPEvNetAddrConfigFail}: {UAPInitializing, []UAPAction{UAPActionEmitAddressFailed}},
	{UAPStarted, UAPEvUserStop}:          {UAPInitializing, []UAPAction{UAPActionIssueStop, UAPActionEmitUapStopped}},
	{UAPStarted, UAPEvClientAssoc}:       {UAPStarted, []UAPAction{UAPActionEmitClientAssoc}},
	{UAPStarted, UAPEvClientConn}:        {UAPStarted, []UAPAction{UAPActionEmitClientConn}},
	{UAPStarted, UAPEvClientDeauth}:      {UAPStarted, []UAPAction{UAPActionEmitClientDisassoc}},

	{UAPIPUp, UAPEvUserStop}:     {UAPInitializing, []UAPAction{UAPActionIssueStop, UAPActionEmitUapStopped}},
	{UAPIPUp, UAPEvClientAssoc}:  {UAPIPUp, []UAPAction{UAPActionEmitClientAssoc}},
	{UAPIPUp, UAPEvClientConn}:   {UAPIPUp, []UAPAction{UAPActionEmitClientConn}},
	{UAPIPUp, UAPEvClientDeauth}: {UAPIPUp, []UAPAction{UAPActionEmitClientDisassoc}},
}

// UAPFSMResult is the outcome of a uAP table lookup.
type UAPFSMResult struct {
	OldState UAPState
	NewState UAPState
	Actions  []UAPAction
	Changed  bool
}

// ApplyUAPEvent is the pure §4.4 transition function.
func ApplyUAPEvent(state UAPState, event UAPEvent) UAPFSMResult {
	t, ok := uapFSMTable[uapStateEvent{state, event}]
	if !ok {
		return UAPFSMResult{OldState: state, NewState: state, Changed: false}
	}
	return UAPFSMResult{OldState: state, NewState: t.next, Actions: t.actions, Changed: true}
}
