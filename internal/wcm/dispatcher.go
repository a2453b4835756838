package wcm

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// -------------------------------------------------------------------------
// Dispatcher Options — functional options pattern
// -------------------------------------------------------------------------

// DispatcherOption configures an optional Dispatcher parameter.
type DispatcherOption func(*Dispatcher)

// WithMetrics attaches a MetricsReporter. If mr is nil, the default
// no-op reporter is used.
func WithMetrics(mr MetricsReporter) DispatcherOption {
	return func(d *Dispatcher) {
		if mr != nil {
			d.metrics = mr
		}
	}
}

// WithCallback registers the single StationEventCallback invoked
// synchronously from the dispatcher goroutine (§5, §6).
func WithCallback(cb StationEventCallback) DispatcherOption {
	return func(d *Dispatcher) { d.callback = cb }
}

// WithQueueDepth overrides the bounded event queue's capacity.
func WithQueueDepth(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueDepth = n
		}
	}
}

// WithRetryLimits overrides the scan/assoc/reassoc retry ceilings of
// §4.3's rescan and reassociation branches.
func WithRetryLimits(scan, assoc, reassoc int) DispatcherOption {
	return func(d *Dispatcher) {
		if scan > 0 {
			d.maxScanRetries = scan
		}
		if assoc > 0 {
			d.maxAssocRetries = assoc
		}
		if reassoc > 0 {
			d.maxReassocRetries = reassoc
		}
	}
}

// WithAssocPause overrides the MIC-failure pause-before-retry duration.
func WithAssocPause(d2 time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if d2 > 0 {
			d.assocPause = d2
		}
	}
}

// -------------------------------------------------------------------------
// Dispatcher
// -------------------------------------------------------------------------

// Dispatcher is the single-goroutine event loop mediating user requests
// and driver-sourced events across the STA FSM, the uAP FSM, and the two
// power-save FSMs (§4.6). All mutable connection state lives here or in
// the FSM state fields it owns; ProfileStore and the scan arbiter are the
// only pieces of state that may also be touched from outside the
// dispatcher goroutine, and only through their own mutex-guarded methods.
type Dispatcher struct {
	driver   Driver
	wakeLock WakeLock
	profiles *ProfileStore
	scan     *scanArbiter

	callback StationEventCallback
	metrics  MetricsReporter
	logger   *slog.Logger

	eventCh    chan Event
	queueDepth int

	maxScanRetries    int
	maxAssocRetries   int
	maxReassocRetries int
	assocPause        time.Duration

	// STA session state, valid only while staState is outside IDLE/INIT.
	staState         STAState
	activeSTAProfile *Profile
	matchedBSS       BSSDescriptor
	hiddenChannels   []int
	scanRetries      int
	assocRetries     int
	reassocRetries   int
	lastAddr         IPConfig
	lastErr          error

	// uAP session state.
	uapState         UAPState
	activeUAPProfile *Profile
	allowedChannels  map[int]bool

	// Power-save sub-machines.
	ieeePS        IEEEMachine
	ieeePSMask    uint32
	dsPS          DeepSleepMachine
	hostSleep     HostSleepConfig
	pendingSlpCfm map[PSMode]bool

	statusMu       sync.RWMutex
	cachedSTAState STAState
	cachedUAPState UAPState

	wg sync.WaitGroup
}

// NewDispatcher builds a Dispatcher bound to driver and wakeLock, storing
// profiles in store. Both driver and wakeLock must be non-nil; store may
// be pre-populated before Run is called.
func NewDispatcher(driver Driver, wakeLock WakeLock, store *ProfileStore, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		driver:            driver,
		wakeLock:          wakeLock,
		profiles:          store,
		logger:            logger.With(slog.String("component", "dispatcher")),
		metrics:           noopMetrics{},
		queueDepth:        64,
		maxScanRetries:    5,
		maxAssocRetries:   3,
		maxReassocRetries: 3,
		assocPause:        60 * time.Second,
		pendingSlpCfm:     make(map[PSMode]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scan = newScanArbiter(d.logger)
	d.eventCh = make(chan Event, d.queueDepth)
	return d
}

// Post enqueues a driver-sourced event without blocking; the event is
// dropped (and logged) if the queue is full, matching the bounded-queue
// discipline of §5 ("firmware events that arrive while the queue is full
// are dropped and logged, never blocked on").
func (d *Dispatcher) Post(ev Event) error {
	select {
	case d.eventCh <- ev:
		return nil
	default:
		d.logger.Warn("event queue full, dropping event", slog.String("kind", ev.Kind.String()))
		return ErrQueueFull
	}
}

// request enqueues a user-request event and blocks for its reply (§5
// "user-initiated requests ... enqueue then block on a per-call reply
// channel until the dispatcher processes the request").
func (d *Dispatcher) request(ctx context.Context, ev Event) Reply {
	ev.ReplyCh = make(chan Reply, 1)
	select {
	case d.eventCh <- ev:
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}
	select {
	case r := <-ev.ReplyCh:
		return r
	case <-ctx.Done():
		return Reply{Err: ctx.Err()}
	}
}

// -------------------------------------------------------------------------
// Public synchronous API (§6)
// -------------------------------------------------------------------------

// Connect requests a connection attempt against the named profile.
func (d *Dispatcher) Connect(ctx context.Context, profileName string) error {
	return d.request(ctx, Event{Kind: EventUserConnect, ProfileName: profileName}).Err
}

// Disconnect requests an immediate STA disconnect, valid from any state.
func (d *Dispatcher) Disconnect(ctx context.Context) error {
	return d.request(ctx, Event{Kind: EventUserDisconnect}).Err
}

// Scan requests an opportunistic scan and returns the number of BSSes
// found, without disturbing an established connection (§4.2 user_scan).
func (d *Dispatcher) Scan(ctx context.Context) (int, error) {
	r := d.request(ctx, Event{Kind: EventUserScan})
	if r.Err != nil {
		return 0, r.Err
	}
	count, _ := r.Data.(int)
	return count, nil
}

// StartUAP requests soft-AP startup against the named profile.
func (d *Dispatcher) StartUAP(ctx context.Context, profileName string) error {
	return d.request(ctx, Event{Kind: EventUserUAPStart, ProfileName: profileName}).Err
}

// StopUAP requests soft-AP shutdown.
func (d *Dispatcher) StopUAP(ctx context.Context) error {
	return d.request(ctx, Event{Kind: EventUserUAPStop}).Err
}

// AddProfile validates and stores p.
func (d *Dispatcher) AddProfile(ctx context.Context, p *Profile) error {
	return d.request(ctx, Event{Kind: EventUserAddProfile, Profile: p}).Err
}

// RemoveProfile deletes the named profile, failing if it backs an active
// session.
func (d *Dispatcher) RemoveProfile(ctx context.Context, name string) error {
	return d.request(ctx, Event{Kind: EventUserRemoveProfile, ProfileName: name}).Err
}

// EnableIEEEPS requests entry into IEEE power-save with the given
// wakeup-condition mask.
func (d *Dispatcher) EnableIEEEPS(ctx context.Context, mask uint32) error {
	return d.request(ctx, Event{Kind: EventUserIEEEPSEnable, PSMode: PSModeIEEE, HostSleep: HostSleepConfig{WakeupConditions: mask}}).Err
}

// DisableIEEEPS requests exit from IEEE power-save.
func (d *Dispatcher) DisableIEEEPS(ctx context.Context) error {
	return d.request(ctx, Event{Kind: EventUserIEEEPSDisable}).Err
}

// EnableDeepSleep requests entry into deep-sleep power-save.
func (d *Dispatcher) EnableDeepSleep(ctx context.Context) error {
	return d.request(ctx, Event{Kind: EventUserDeepSleepEnable}).Err
}

// DisableDeepSleep requests exit from deep-sleep power-save.
func (d *Dispatcher) DisableDeepSleep(ctx context.Context) error {
	return d.request(ctx, Event{Kind: EventUserDeepSleepDisable}).Err
}

// ConfigureHostSleep sets the host-sleep negotiation parameters consulted
// by the sleep-confirm protocol (§4.5.1).
func (d *Dispatcher) ConfigureHostSleep(ctx context.Context, cfg HostSleepConfig) error {
	return d.request(ctx, Event{Kind: EventUserHostSleepConfig, HostSleep: cfg}).Err
}

// STAStatus returns a thread-safe snapshot of the current STA FSM state
// for status queries (e.g. the REST/CLI read paths), without round-
// tripping through the event queue.
func (d *Dispatcher) STAStatus() STAState {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return d.cachedSTAState
}

// UAPStatus returns a thread-safe snapshot of the current uAP FSM state.
func (d *Dispatcher) UAPStatus() UAPState {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()
	return d.cachedUAPState
}

// -------------------------------------------------------------------------
// Run loop
// -------------------------------------------------------------------------

// Run is the dispatcher's event loop. It blocks until ctx is cancelled.
// Before serving the first event it moves the STA FSM from INITIALIZING
// to IDLE (interface configuration is complete once the loop starts).
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", slog.Int("queue_depth", d.queueDepth))
	defer d.logger.Info("dispatcher stopped")

	d.applySTA(ctx, STAEvNetIfConfigOK)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.eventCh:
			d.handleEvent(ctx, ev)
		}
	}
}

// Wait blocks until every pending deferred action (currently: armed
// MIC-failure reconnect timers) has fired; armed timers are never
// stopped early, so this can wait out a full assoc pause. Callers
// invoke this after cancelling Run's context to avoid leaking
// goroutines across process shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventUserConnect:
		d.reply(ev, d.handleUserConnect(ctx, ev))
	case EventUserDisconnect:
		d.handleUserDisconnect(ctx)
		d.reply(ev, nil)
	case EventUserScan:
		d.handleUserScan(ctx, ev)
	case EventUserUAPStart:
		d.reply(ev, d.handleUserUAPStart(ctx, ev))
	case EventUserUAPStop:
		d.handleUserUAPStop(ctx)
		d.reply(ev, nil)
	case EventUserAddProfile:
		d.reply(ev, d.profiles.Add(ev.Profile, func() STAState { return d.staState }))
	case EventUserRemoveProfile:
		d.reply(ev, d.profiles.Remove(ev.ProfileName, d.profileIsBusy))
	case EventUserIEEEPSEnable:
		d.ieeePSMask = ev.HostSleep.WakeupConditions
		d.executePSActions(ctx, PSModeIEEE, d.ieeePS.Drive(PSEvEnable))
		d.reply(ev, nil)
	case EventUserIEEEPSDisable:
		d.executePSActions(ctx, PSModeIEEE, d.ieeePS.Drive(PSEvDisable))
		d.reply(ev, nil)
	case EventUserDeepSleepEnable:
		d.executePSActions(ctx, PSModeDeepSleep, d.dsPS.Drive(PSEvEnable))
		d.reply(ev, nil)
	case EventUserDeepSleepDisable:
		d.executePSActions(ctx, PSModeDeepSleep, d.dsPS.Drive(PSEvDisable))
		d.reply(ev, nil)
	case EventUserHostSleepConfig:
		d.hostSleep = ev.HostSleep
		d.reply(ev, nil)

	case EventScanResult:
		d.handleScanResult(ctx, ev)
	case EventAssocResult:
		d.handleAssocResult(ctx, ev)
	case EventAuthResult:
		d.handleAuthResult(ctx, ev)
	case EventAddrResult:
		d.handleAddrResult(ctx, ev)
	case EventLinkLoss:
		d.applySTA(ctx, STAEvLinkLoss)
	case EventDeauth:
		d.applySTA(ctx, STAEvDeauth)
	case EventChanSwitch:
		d.applySTA(ctx, STAEvChanSwitch)

	case EventUAPStartResult:
		if ev.Success {
			d.applyUAP(ctx, UAPEvStartedOK)
		} else {
			d.applyUAP(ctx, UAPEvStartedFail)
		}
	case EventUAPStopResult:
		// uAP stop has no failure branch in §4.4's diagram; the FSM
		// already left STARTED/IP_UP synchronously on USER_STOP.
	case EventUAPClientAssoc:
		d.applyUAP(ctx, UAPEvClientAssoc)
	case EventUAPClientConn:
		d.applyUAP(ctx, UAPEvClientConn)
	case EventUAPClientDeauth:
		d.applyUAP(ctx, UAPEvClientDeauth)

	case EventPSEnableDone:
		d.executePSActions(ctx, ev.PSMode, d.driveMode(ev.PSMode, PSEvEnableDone))
	case EventPSAwake:
		d.executePSActions(ctx, ev.PSMode, d.driveMode(ev.PSMode, PSEvAwake))
	case EventPSSleep:
		d.executePSActions(ctx, ev.PSMode, d.driveMode(ev.PSMode, PSEvSleep))
	case EventPSSleepConfirmed:
		d.executePSActions(ctx, ev.PSMode, d.driveMode(ev.PSMode, PSEvSlpCfm))
	case EventPSDisableDone:
		d.executePSActions(ctx, ev.PSMode, d.driveMode(ev.PSMode, PSEvDisableDone))

	default:
		d.logger.Warn("unknown event kind", slog.String("kind", ev.Kind.String()))
	}
}

func (d *Dispatcher) reply(ev Event, err error) {
	if ev.ReplyCh == nil {
		return
	}
	select {
	case ev.ReplyCh <- Reply{Err: err}:
	default:
	}
}

func (d *Dispatcher) driveMode(mode PSMode, event PSEvent) []PSAction {
	if mode == PSModeDeepSleep {
		return d.dsPS.Drive(event)
	}
	return d.ieeePS.Drive(event)
}

func (d *Dispatcher) profileIsBusy(p *Profile) bool {
	if p.Role == RoleSTA {
		return d.activeSTAProfile != nil && d.activeSTAProfile.Name == p.Name && d.staState != STAIdle
	}
	return d.activeUAPProfile != nil && d.activeUAPProfile.Name == p.Name
}

// -------------------------------------------------------------------------
// STA request handlers
// -------------------------------------------------------------------------

func (d *Dispatcher) handleUserConnect(ctx context.Context, ev Event) error {
	if d.staState != STAIdle {
		if d.staState == STAConnected {
			return ErrAlreadyConnected
		}
		return ErrBadSTAState
	}
	p, err := d.profiles.GetByName(ev.ProfileName)
	if err != nil {
		return err
	}
	if err := d.scan.beginConnectScan(); err != nil {
		return err
	}
	d.activeSTAProfile = p
	d.scanRetries, d.assocRetries, d.reassocRetries = 0, 0, 0
	d.metrics.IncScanAttempt(false)
	d.applySTA(ctx, STAEvUserConnect)
	return nil
}

func (d *Dispatcher) handleUserDisconnect(ctx context.Context) {
	res := ApplySTADisconnect(d.staState)
	if res.Changed {
		d.executeSTATransition(ctx, res)
	}
}

func (d *Dispatcher) handleUserScan(ctx context.Context, ev Event) {
	if d.scan.isLocked() || d.staState.IsConnecting() {
		d.sendReply(ev, Reply{Err: ErrScanLocked})
		return
	}
	preScan := d.staState
	cb := func(count int) {
		d.sendReply(ev, Reply{Data: count})
	}
	if err := d.scan.beginUserScan(cb, preScan); err != nil {
		d.sendReply(ev, Reply{Err: err})
		return
	}
	d.setSTAState(STAScanningUser)
	d.metrics.IncScanAttempt(true)
	if err := d.driver.StartScan(ctx, nil, nil); err != nil {
		cb, restore := d.scan.deliverUserResult(0)
		d.setSTAState(restore)
		if cb != nil {
			cb(0)
		}
	}
}

// sendReply delivers r on ev's reply channel without blocking if the
// buffered slot is already occupied (it never is in practice, since each
// request allocates a fresh one-slot channel, but this mirrors the
// non-blocking discipline used elsewhere in the dispatcher).
func (d *Dispatcher) sendReply(ev Event, r Reply) {
	if ev.ReplyCh == nil {
		return
	}
	select {
	case ev.ReplyCh <- r:
	default:
	}
}

// setSTAState updates both the operational and the status-query copies
// of the STA state outside of a table-driven transition (used by the
// user-scan stash/restore path, which deliberately bypasses the STA FSM
// table per §4.2).
func (d *Dispatcher) setSTAState(s STAState) {
	d.staState = s
	d.statusMu.Lock()
	d.cachedSTAState = s
	d.statusMu.Unlock()
}

func (d *Dispatcher) handleScanResult(ctx context.Context, ev Event) {
	if d.scan.userScanLive {
		cb, restore := d.scan.deliverUserResult(len(ev.ScanResults))
		d.setSTAState(restore)
		if cb != nil {
			cb(len(ev.ScanResults))
		}
		return
	}

	if !d.staState.IsConnecting() && d.staState != STAScanning && d.staState != STAScanningHidden {
		return
	}
	if d.activeSTAProfile == nil {
		return
	}

	match := selectBSS(d.activeSTAProfile, ev.ScanResults, d.allowedChannels)
	switch {
	case match.Matched:
		d.matchedBSS = match.Best
		d.profiles.recordMatch(d.activeSTAProfile.Name, match.Best)
		d.applySTA(ctx, STAEvScanMatch)
	case len(match.HiddenChannels) > 0 && d.staState != STAScanningHidden:
		d.hiddenChannels = match.HiddenChannels
		d.applySTA(ctx, STAEvScanHiddenFound)
	default:
		d.scanRetries++
		if d.scanRetries >= d.maxScanRetries {
			d.applySTA(ctx, STAEvScanRetriesExhausted)
		} else {
			d.applySTA(ctx, STAEvScanRescan)
		}
	}
}

func (d *Dispatcher) handleAssocResult(ctx context.Context, ev Event) {
	if ev.Success {
		d.applySTA(ctx, STAEvAssocOK)
		return
	}
	d.lastErr = ev.FailReason
	d.assocRetries++
	if d.assocRetries >= d.maxAssocRetries {
		d.applySTA(ctx, STAEvAssocFailExhausted)
	} else {
		d.applySTA(ctx, STAEvAssocFailRetry)
	}
}

func (d *Dispatcher) handleAuthResult(ctx context.Context, ev Event) {
	if !ev.Success {
		if ev.FailReason == ErrAuthMIC {
			d.applySTA(ctx, STAEvAuthFailMIC)
			return
		}
		d.lastErr = ev.FailReason
		d.reassocRetries++
		if d.reassocRetries >= d.maxReassocRetries {
			d.applySTA(ctx, STAEvAuthFailExhausted)
		} else {
			d.applySTA(ctx, STAEvAuthFailRetry)
		}
		return
	}

	if d.activeSTAProfile != nil && d.activeSTAProfile.IP.Dynamic {
		d.applySTA(ctx, STAEvAuthOKNeedAddr)
		d.applySTA(ctx, STAEvDHCPNeeded)
		return
	}
	if d.activeSTAProfile != nil {
		d.applySTA(ctx, STAEvAuthOKNeedAddr)
		if err := d.driver.ConfigureStaticAddr(ctx, d.activeSTAProfile.IP); err != nil {
			d.applySTA(ctx, STAEvStaticAddrFail)
		}
		return
	}
	d.applySTA(ctx, STAEvAuthOKFastPath)
}

func (d *Dispatcher) handleAddrResult(ctx context.Context, ev Event) {
	d.lastAddr = ev.Addr
	switch d.staState {
	case STAReqAddr:
		if ev.Success {
			d.applySTA(ctx, STAEvStaticAddrOK)
		} else {
			d.applySTA(ctx, STAEvStaticAddrFail)
		}
	case STAObtAddr:
		if ev.Success {
			d.applySTA(ctx, STAEvDHCPOK)
		} else {
			d.applySTA(ctx, STAEvDHCPFail)
		}
	}
}

// applySTA applies a pure STA FSM transition and executes its actions.
func (d *Dispatcher) applySTA(ctx context.Context, event STAEvent) {
	res := ApplySTAEvent(d.staState, event)
	d.executeSTATransition(ctx, res)
}

func (d *Dispatcher) executeSTATransition(ctx context.Context, res STAFSMResult) {
	if res.Changed {
		d.metrics.RecordSTATransition(res.OldState.String(), res.NewState.String())
		d.logger.Info("sta state changed",
			slog.String("old_state", res.OldState.String()),
			slog.String("new_state", res.NewState.String()),
		)
		d.staState = res.NewState
		d.statusMu.Lock()
		d.cachedSTAState = res.NewState
		d.statusMu.Unlock()
	}
	for _, action := range res.Actions {
		d.executeSTAAction(ctx, action)
	}
}

func (d *Dispatcher) executeSTAAction(ctx context.Context, action STAAction) {
	p := d.activeSTAProfile
	switch action {
	case STAActionStartScan:
		_ = d.driver.StartScan(ctx, nil, nil)
	case STAActionStartHiddenScan:
		var ssid []byte
		if p != nil {
			ssid = p.SSID
		}
		_ = d.driver.StartScan(ctx, ssid, d.hiddenChannels)
	case STAActionConfigureSecurity:
		if p != nil {
			_ = d.driver.ConfigureSecurity(ctx, p.Security)
		}
	case STAActionAssociate:
		_ = d.driver.Associate(ctx, d.matchedBSS)
	case STAActionRequestStaticAddr:
		if p != nil {
			_ = d.driver.ConfigureStaticAddr(ctx, p.IP)
		}
	case STAActionRequestDHCP:
		_ = d.driver.RequestDHCP(ctx)
	case STAActionAcquireWakeLock:
		d.wakeLock.Acquire()
		d.metrics.SetWakeLockHeld(true)
	case STAActionReleaseWakeLock:
		d.wakeLock.Release()
		d.metrics.SetWakeLockHeld(false)
	case STAActionReleaseScanLock:
		if d.scan.isLocked() {
			d.scan.release()
		}
	case STAActionResetReassocCounters:
		d.scanRetries, d.assocRetries, d.reassocRetries = 0, 0, 0
	case STAActionScheduleReassoc:
		d.metrics.IncReassocAttempt()
	case STAActionStartAssocPauseTimer:
		d.armAssocPause()
	case STAActionBringDown:
		_ = d.driver.BringDown(ctx)
	case STAActionEmitSuccess:
		d.emit(StationEvent{Kind: StationConnected, ProfileName: d.profileName(p), Addr: d.lastAddr})
	case STAActionEmitAuthSuccess:
		d.emit(StationEvent{Kind: StationAuthSuccess, ProfileName: d.profileName(p)})
	case STAActionEmitConnectFailed:
		d.metrics.IncConnectFailure(errString(d.lastErr))
		d.emit(StationEvent{Kind: StationConnectFailed, ProfileName: d.profileName(p), Reason: d.lastErr})
	case STAActionEmitNetworkNotFound:
		d.metrics.IncConnectFailure("not_found")
		d.emit(StationEvent{Kind: StationNetworkNotFound, ProfileName: d.profileName(p)})
	case STAActionEmitNetworkAuthFailed:
		d.metrics.IncConnectFailure("auth")
		d.emit(StationEvent{Kind: StationAuthFailed, ProfileName: d.profileName(p), Reason: d.lastErr})
	case STAActionEmitAddressSuccess:
		d.emit(StationEvent{Kind: StationAddressSuccess, ProfileName: d.profileName(p), Addr: d.lastAddr})
	case STAActionEmitAddressFailed:
		d.emit(StationEvent{Kind: StationAddressFailed, ProfileName: d.profileName(p)})
	case STAActionEmitLinkLost:
		d.emit(StationEvent{Kind: StationLinkLost, ProfileName: d.profileName(p)})
	case STAActionEmitChanSwitch:
		d.emit(StationEvent{Kind: StationChanSwitch, ProfileName: d.profileName(p)})
	case STAActionEmitUserDisconnect:
		d.emit(StationEvent{Kind: StationUserDisconnected, ProfileName: d.profileName(p)})
	default:
		d.logger.Warn("unknown sta action", slog.Int("action", int(action)))
	}
}

func (d *Dispatcher) profileName(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// armAssocPause schedules a reconnect attempt after the MIC-failure pause
// of §4.3's "AUTH_FAIL_MIC" branch, re-entering the normal connect path
// rather than the table (the pause is a real wall-clock delay, not a
// pure transition).
func (d *Dispatcher) armAssocPause() {
	name := d.profileName(d.activeSTAProfile)
	if name == "" {
		return
	}
	d.wg.Add(1)
	time.AfterFunc(d.assocPause, func() {
		defer d.wg.Done()
		_ = d.Post(Event{Kind: EventUserConnect, ProfileName: name})
	})
}

// -------------------------------------------------------------------------
// uAP request handlers
// -------------------------------------------------------------------------

func (d *Dispatcher) handleUserUAPStart(ctx context.Context, ev Event) error {
	if d.uapState != UAPInitializing {
		return ErrBadUAPState
	}
	p, err := d.profiles.GetByName(ev.ProfileName)
	if err != nil {
		return err
	}
	if p.Role != RoleUAP {
		return ErrWrongRole
	}
	d.activeUAPProfile = p
	d.applyUAP(ctx, UAPEvUserStart)
	return nil
}

func (d *Dispatcher) handleUserUAPStop(ctx context.Context) {
	d.applyUAP(ctx, UAPEvUserStop)
}

func (d *Dispatcher) applyUAP(ctx context.Context, event UAPEvent) {
	res := ApplyUAPEvent(d.uapState, event)
	if res.Changed {
		d.metrics.RecordUAPTransition(res.OldState.String(), res.NewState.String())
		d.logger.Info("uap state changed",
			slog.String("old_state", res.OldState.String()),
			slog.String("new_state", res.NewState.String()),
		)
		d.uapState = res.NewState
		d.statusMu.Lock()
		d.cachedUAPState = res.NewState
		d.statusMu.Unlock()
	}
	for _, action := range res.Actions {
		d.executeUAPAction(ctx, event, action)
	}
}

func (d *Dispatcher) executeUAPAction(ctx context.Context, event UAPEvent, action UAPAction) {
	p := d.activeUAPProfile
	switch action {
	case UAPActionQueryAllowedChannels:
		chans, err := d.driver.QueryAllowedChannels(ctx)
		if err != nil {
			d.logger.Warn("query allowed channels failed", slog.String("error", err.Error()))
			return
		}
		d.allowedChannels = make(map[int]bool, len(chans))
		for _, c := range chans {
			d.allowedChannels[c] = true
		}
	case UAPActionIssueStart:
		if p == nil {
			return
		}
		chans := make([]int, 0, len(d.allowedChannels))
		for c := range d.allowedChannels {
			chans = append(chans, c)
		}
		_ = d.driver.StartUAP(ctx, p, chans)
	case UAPActionConfigureStaticAddr:
		if p != nil && !p.IP.Dynamic {
			_ = d.driver.ConfigureStaticAddr(ctx, p.IP)
		}
	case UAPActionIssueStop:
		_ = d.driver.StopUAP(ctx)
	case UAPActionEmitUapSuccess:
		d.emit(StationEvent{Kind: StationUAPStarted, ProfileName: d.profileName(p)})
	case UAPActionEmitUapStartFailed:
		d.emit(StationEvent{Kind: StationUAPStartFailed, ProfileName: d.profileName(p)})
	case UAPActionEmitAddressFailed:
		d.emit(StationEvent{Kind: StationUAPAddressFailed, ProfileName: d.profileName(p)})
	case UAPActionEmitUapStopped:
		d.emit(StationEvent{Kind: StationUAPStopped, ProfileName: d.profileName(p)})
	case UAPActionEmitUapStopFailed:
		d.logger.Warn("uap stop failed")
	case UAPActionEmitClientAssoc:
		d.emit(StationEvent{Kind: StationUAPClientAssoc, ProfileName: d.profileName(p)})
	case UAPActionEmitClientConn:
		d.emit(StationEvent{Kind: StationUAPClientConn, ProfileName: d.profileName(p)})
	case UAPActionEmitClientDisassoc:
		d.emit(StationEvent{Kind: StationUAPClientDisassoc, ProfileName: d.profileName(p)})
	default:
		d.logger.Warn("unknown uap action", slog.Int("action", int(action)))
	}
}

// -------------------------------------------------------------------------
// Power-save action execution (§4.5, §4.5.1)
// -------------------------------------------------------------------------

func (d *Dispatcher) executePSActions(ctx context.Context, mode PSMode, actions []PSAction) {
	var newState PSState
	if mode == PSModeDeepSleep {
		newState = d.dsPS.State
	} else {
		newState = d.ieeePS.State
	}
	d.metrics.RecordPSTransition(mode.String(), "", newState.String())

	for _, action := range actions {
		switch action {
		case PSActionSendEnterPSCmd:
			if mode == PSModeDeepSleep {
				_ = d.driver.EnterDeepSleep(ctx)
			} else {
				_ = d.driver.EnterIEEEPS(ctx, d.ieeePSMask)
			}
		case PSActionSendExitPSCmd:
			if mode == PSModeDeepSleep {
				_ = d.driver.ExitDeepSleep(ctx)
			} else {
				_ = d.driver.ExitIEEEPS(ctx)
			}
		case PSActionInvokeSleepConfirm:
			d.runSleepConfirm(ctx, mode)
		case PSActionSetCMStateSleep:
			// bookkeeping only; CM state lives in the FSM's own State field.
		case PSActionEmitPsEnter:
			d.emit(StationEvent{Kind: StationPsEnter, PSMode: mode})
		case PSActionEmitPsExit:
			d.emit(StationEvent{Kind: StationPsExit, PSMode: mode})
		default:
			d.logger.Warn("unknown ps action", slog.Int("action", int(action)))
		}
	}
}

func (d *Dispatcher) runSleepConfirm(ctx context.Context, mode PSMode) {
	var (
		deferred bool
		actions  []SleepConfirmAction
	)
	if mode == PSModeDeepSleep {
		deferred, actions = RunDeepSleepConfirm(false)
	} else {
		in := SleepConfirmInput{
			HostSleepConfigured: d.hostSleep.Configured,
			STAActive:           d.staState != STAInitializing && d.staState != STAIdle,
			UAPActive:           d.uapState != UAPInitializing,
			WakeupConditions:    d.hostSleep.WakeupConditions,
		}
		// The host-sleep configuration is sent before the protocol runs so
		// that its outcome decides whether the sleep confirm is deferred.
		sendFailed := false
		if in.HostSleepConfigured {
			sendFailed = d.driver.SendHostSleepConfig(ctx, d.hostSleep) != nil
		}
		deferred, actions = RunSleepConfirm(in, sendFailed)
	}
	d.pendingSlpCfm[mode] = deferred
	for _, a := range actions {
		switch a {
		case SCActionSendHostSleepCfg:
			// already sent above, before RunSleepConfirm.
		case SCActionSendSleepConfirm:
			_ = d.driver.SendSleepConfirm(ctx)
		case SCActionSetCMStateSleepCfm:
			// bookkeeping only.
		}
	}
}

func (d *Dispatcher) emit(ev StationEvent) {
	if d.callback == nil {
		return
	}
	d.callback(ev)
}

// ErrAuthMIC signals a MIC (Michael integrity check) failure during
// authentication, distinguished from a generic auth failure because it
// drives the FSM into the IDLE-with-pause branch of §4.3 rather than a
// retry: every MIC failure returns STA to IDLE and arms the assoc-pause
// timer before the next connect attempt.
var ErrAuthMIC = newErr(KindFail, "auth", errAuthMIC{})

type errAuthMIC struct{}

func (errAuthMIC) Error() string { return "mic failure" }
