package wcm

// EventKind tags the payload carried by Event, giving the dispatcher a
// closed, by-value union instead of the teacher's heap-allocated
// interface-typed event structs (§9 Design Notes: "represent events as a
// tagged union of small by-value structs ... avoids one heap allocation
// per event on the hot path").
type EventKind uint8

const (
	// Driver-sourced events (firmware Wi-Fi driver / IP stack).
	EventScanResult EventKind = iota
	EventAssocResult
	EventAuthResult
	EventAddrResult
	EventLinkLoss
	EventDeauth
	EventChanSwitch
	EventUAPStartResult
	EventUAPStopResult
	EventUAPClientAssoc
	EventUAPClientConn
	EventUAPClientDeauth
	EventPSEnableDone
	EventPSAwake
	EventPSSleep
	EventPSSleepConfirmed
	EventPSDisableDone

	// User-request events (§6 user API surface).
	EventUserConnect
	EventUserDisconnect
	EventUserScan
	EventUserUAPStart
	EventUserUAPStop
	EventUserAddProfile
	EventUserRemoveProfile
	EventUserIEEEPSEnable
	EventUserIEEEPSDisable
	EventUserDeepSleepEnable
	EventUserDeepSleepDisable
	EventUserHostSleepConfig
)

func (k EventKind) String() string {
	names := [...]string{
		"ScanResult", "AssocResult", "AuthResult", "AddrResult", "LinkLoss",
		"Deauth", "ChanSwitch", "UAPStartResult", "UAPStopResult",
		"UAPClientAssoc", "UAPClientConn", "UAPClientDeauth",
		"PSEnableDone", "PSAwake", "PSSleep", "PSSleepConfirmed", "PSDisableDone",
		"UserConnect", "UserDisconnect", "UserScan", "UserUAPStart",
		"UserUAPStop", "UserAddProfile", "UserRemoveProfile",
		"UserIEEEPSEnable", "UserIEEEPSDisable", "UserDeepSleepEnable",
		"UserDeepSleepDisable", "UserHostSleepConfig",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Event is the single by-value type that flows through the dispatcher's
// bounded queue (§5). Only the field(s) relevant to Kind are populated;
// the rest are zero values, matching a C tagged-union's unused-member
// convention without requiring an interface or pointer.
type Event struct {
	Kind EventKind

	// Populated for driver-sourced events.
	ScanResults []BSSDescriptor
	Success     bool
	FailReason  error
	Addr        IPConfig
	PSMode      PSMode

	// Populated for user-request events.
	ProfileName string
	Profile     *Profile
	HostSleep   HostSleepConfig
	ReplyCh     chan Reply
}

// HostSleepConfig mirrors the §4.5 host-sleep negotiation parameters a
// caller supplies via the host_sleep_config user request.
type HostSleepConfig struct {
	Configured       bool
	WakeupConditions uint32
	GPIO             int
	GapMillis        int
}

// Reply is the synchronous acknowledgement a user-request event's caller
// blocks on (§5 "User-initiated requests ... enqueue then block on a
// per-call reply channel until the dispatcher processes the request").
type Reply struct {
	Err  error
	Data any
}
