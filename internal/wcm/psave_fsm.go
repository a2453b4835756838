package wcm

// PSState enumerates the power-save FSM states shared by the IEEE-PS and
// Deep-Sleep-PS sub-machines (§4.5).
type PSState uint8

const (
	PSInit PSState = iota
	PSConfiguring
	PSAwake
	PSPreSleep
	PSSleep
	PSPreDisable
	PSDisabling
)

func (s PSState) String() string {
	switch s {
	case PSInit:
		return "INIT"
	case PSConfiguring:
		return "CONFIGURING"
	case PSAwake:
		return "AWAKE"
	case PSPreSleep:
		return "PRE_SLEEP"
	case PSSleep:
		return "SLEEP"
	case PSPreDisable:
		return "PRE_DISABLE"
	case PSDisabling:
		return "DISABLING"
	default:
		return "UNKNOWN"
	}
}

// PSEvent enumerates the events both power-save FSMs react to. ENTER is
// the pseudo-event §9 calls for: "a thin outer driver applying actions
// and re-entering on pseudo-event ENTER, to model the source's
// self-transition loop."
type PSEvent uint8

const (
	PSEvEnable PSEvent = iota
	PSEvEnableDone
	PSEvAwake
	PSEvSleep
	PSEvSlpCfm
	PSEvDisable
	PSEvDisableDone
	PSEvEnter
)

// PSAction enumerates the side effects of a power-save transition.
type PSAction uint8

const (
	PSActionSendEnterPSCmd PSAction = iota
	PSActionSendExitPSCmd
	PSActionInvokeSleepConfirm
	PSActionSetCMStateSleep
	PSActionEmitPsEnter
	PSActionEmitPsExit
)

type psStateEvent struct {
	state PSState
	event PSEvent
}

type psTransition struct {
	next    PSState
	actions []PSAction
}

// psFSMTable is the shared transition table for both power-save FSMs
// (§4.5: "Both FSMs are strictly serial ... analogous" events/states).
// Deep-Sleep-specific behavior (skip_ds_exit_cb) is layered on top by
// DeepSleepMachine, not encoded in this table.
var psFSMTable = map[psStateEvent]psTransition{
	{PSInit, PSEvEnable}: {PSConfiguring, []PSAction{PSActionSendEnterPSCmd}},

	{PSConfiguring, PSEvEnableDone}: {PSAwake, []PSAction{PSActionEmitPsEnter}},
	{PSConfiguring, PSEvDisable}:    {PSPreDisable, []PSAction{PSActionSendExitPSCmd}},

	{PSAwake, PSEvSleep}:   {PSPreSleep, nil},
	{PSAwake, PSEvDisable}: {PSPreDisable, []PSAction{PSActionSendExitPSCmd}},

	// Entering PRE_SLEEP invokes the sleep-confirm protocol (§4.5.1) as
	// an entry action, modeled as a self-loop ENTER transition per §9.
	{PSPreSleep, PSEvEnter}: {PSPreSleep, []PSAction{PSActionInvokeSleepConfirm}},
	{PSPreSleep, PSEvSlpCfm}: {PSSleep, []PSAction{PSActionSetCMStateSleep}},
	{PSPreSleep, PSEvDisable}: {PSPreDisable, []PSAction{PSActionSendExitPSCmd}},

	{PSSleep, PSEvAwake}:   {PSAwake, []PSAction{PSActionEmitPsExit}},
	{PSSleep, PSEvDisable}: {PSPreDisable, []PSAction{PSActionSendExitPSCmd}},

	// PRE_DISABLE auto-advances to DISABLING: the ENTER re-entry models
	// "send exit-PS ... go PRE_DISABLE -> DISABLING" as one logical step
	// without a distinct driver event for it (§4.5 "... DISABLING on
	// DISABLE_DONE").
	{PSPreDisable, PSEvEnter}: {PSDisabling, nil},

	{PSDisabling, PSEvDisableDone}: {PSInit, nil},
}

// PSFSMResult is the outcome of a power-save FSM table lookup.
type PSFSMResult struct {
	OldState PSState
	NewState PSState
	Actions  []PSAction
	Changed  bool
}

// ApplyPSEvent is the pure transition function shared by both power-save
// FSMs.
func ApplyPSEvent(state PSState, event PSEvent) PSFSMResult {
	t, ok := psFSMTable[psStateEvent{state, event}]
	if !ok {
		return PSFSMResult{OldState: state, NewState: state, Changed: false}
	}
	return PSFSMResult{OldState: state, NewState: t.next, Actions: t.actions, Changed: true}
}

// DrivePS applies event, then — if the transition changed state — applies
// the ENTER pseudo-event on the new state and merges any entry actions,
// exactly mirroring §9's "self-loop... re-entering on pseudo-event
// ENTER" note. Returns the final state reached and the full action list.
func DrivePS(state PSState, event PSEvent) (PSState, []PSAction) {
	r := ApplyPSEvent(state, event)
	actions := append([]PSAction(nil), r.Actions...)
	cur := r.NewState
	if r.Changed {
		entry := ApplyPSEvent(cur, PSEvEnter)
		if entry.Changed || len(entry.Actions) > 0 {
			actions = append(actions, entry.Actions...)
			cur = entry.NewState
		}
	}
	return cur, actions
}

// PSMode identifies which power-save sub-machine an event refers to, for
// the user callback payload (§6 "PsEnter / PsExit | integer ps-mode
// {IEEE, DeepSleep}").
type PSMode uint8

const (
	PSModeIEEE PSMode = iota
	PSModeDeepSleep
)

func (m PSMode) String() string {
	if m == PSModeDeepSleep {
		return "DeepSleep"
	}
	return "IEEE"
}

// DeepSleepMachine wraps the shared power-save table with the
// Deep-Sleep-specific wake suppression quirk (§4.5, §9 open question):
// the first PsExit after a wake is suppressed to avoid reordering with
// the system Init event. The suppression flag is armed on every entry to
// SLEEP and consumed by the next AWAKE transition, so no Deep-Sleep wake
// emits PsExit.
type DeepSleepMachine struct {
	State         PSState
	skipNextExitCB bool
}

// Drive applies event to the Deep-Sleep FSM, suppressing the first
// PsExit emission after each SLEEP entry.
func (m *DeepSleepMachine) Drive(event PSEvent) []PSAction {
	next, actions := DrivePS(m.State, event)

	if m.State != PSSleep && next == PSSleep {
		m.skipNextExitCB = true
	}

	if next == PSAwake && m.skipNextExitCB {
		filtered := actions[:0]
		for _, a := range actions {
			if a == PSActionEmitPsExit {
				continue
			}
			filtered = append(filtered, a)
		}
		actions = filtered
		m.skipNextExitCB = false
	}

	m.State = next
	return actions
}

// IEEEMachine wraps the shared power-save table for the IEEE-PS
// sub-machine, which has no exit-callback suppression quirk.
type IEEEMachine struct {
	State PSState
}

// Drive applies event to the IEEE-PS FSM.
func (m *IEEEMachine) Drive(event PSEvent) []PSAction {
	next, actions := DrivePS(m.State, event)
	m.State = next
	return actions
}

// SleepConfirmInput carries the facts the §4.5.1 protocol branches on.
type SleepConfirmInput struct {
	DriverBusy          bool
	HostSleepConfigured bool
	STAActive           bool
	UAPActive           bool
	WakeupConditions    uint32
	CurrentIP           [4]byte
	BSSType             int
}

// SleepConfirmAction enumerates the §4.5.1 protocol's side effects.
type SleepConfirmAction uint8

const (
	SCActionSendHostSleepCfg SleepConfirmAction = iota
	SCActionSendSleepConfirm
	SCActionSetCMStateSleepCfm
)

// RunSleepConfirm implements §4.5.1 for the IEEE-PS sub-machine (the one
// that negotiates host-sleep). Returns whether the attempt must be
// deferred (g_req_sleep_confirm = true) and the actions to perform.
//
// sendFailed reports whether this attempt's send_host_sleep_cfg call
// failed; the dispatcher issues that driver command first and passes its
// outcome, since this function stays pure.
func RunSleepConfirm(in SleepConfirmInput, sendFailed bool) (deferred bool, actions []SleepConfirmAction) {
	if in.DriverBusy {
		return true, nil
	}
	if in.HostSleepConfigured {
		actions = append(actions, SCActionSendHostSleepCfg)
		if sendFailed || (!in.STAActive && !in.UAPActive) {
			return true, actions
		}
		actions = append(actions, SCActionSetCMStateSleepCfm, SCActionSendSleepConfirm)
		return false, actions
	}
	// Not configured for host-sleep: nothing to negotiate, no sleep
	// confirm is sent by the IEEE-PS path in this case.
	return false, nil
}

// RunDeepSleepConfirm implements the Deep-Sleep-PS variant of §4.5.1:
// "On entering PRE_SLEEP send a plain sleep-confirm (no host-sleep
// configuration)." Only the driver-busy deferral applies.
func RunDeepSleepConfirm(driverBusy bool) (deferred bool, actions []SleepConfirmAction) {
	if driverBusy {
		return true, nil
	}
	return false, []SleepConfirmAction{SCActionSetCMStateSleepCfm, SCActionSendSleepConfirm}
}
