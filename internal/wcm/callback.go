package wcm

// StationEventKind names the user-facing callback events of §6's API
// surface table ("Connected / ConnectFailed / ... delivered to a single
// registered callback").
type StationEventKind uint8

const (
	StationConnected StationEventKind = iota
	StationConnectFailed
	StationNetworkNotFound
	StationAuthSuccess
	StationAuthFailed
	StationAddressSuccess
	StationAddressFailed
	StationLinkLost
	StationChanSwitch
	StationUserDisconnected
	StationUAPStarted
	StationUAPStartFailed
	StationUAPStopped
	StationUAPAddressFailed
	StationUAPClientAssoc
	StationUAPClientConn
	StationUAPClientDisassoc
	StationPsEnter
	StationPsExit
)

func (k StationEventKind) String() string {
	names := [...]string{
		"Connected", "ConnectFailed", "NetworkNotFound", "AuthSuccess",
		"AuthFailed", "AddressSuccess", "AddressFailed", "LinkLost",
		"ChanSwitch", "UserDisconnected", "UAPStarted", "UAPStartFailed",
		"UAPStopped", "UAPAddressFailed", "UAPClientAssoc", "UAPClientConn",
		"UAPClientDisassoc", "PsEnter", "PsExit",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// StationEvent is the payload delivered to the single registered
// StationEventCallback (§6: one callback, not per-request futures,
// distinguishing it from the request/reply channel in events.go).
type StationEvent struct {
	Kind StationEventKind

	ProfileName string
	Reason      error
	Addr        IPConfig
	PSMode      PSMode
	ClientMAC   []byte
}

// StationEventCallback is invoked synchronously from the dispatcher
// goroutine; callers must not block in it.
type StationEventCallback func(StationEvent)
