package wcm

import (
	"context"
	"net"
)

// Driver is the opaque collaborator the dispatcher issues firmware Wi-Fi
// driver and IP-stack commands through. Commands are fire-and-forget
// from the dispatcher's point of view: completion is reported back as an
// Event on the dispatcher's queue rather than as a return value (only
// QueryAllowedChannels and LocalHardwareAddr answer directly), so the
// dispatcher goroutine is never blocked waiting on firmware I/O (§5
// concurrency contract). Implementations live outside this package —
// this interface is the seam the spec calls out as "802.11 MAC/PHY
// firmware ... exposed via an opaque collaborator interface, never
// modeled" (Non-goals).
type Driver interface {
	// StartScan issues a scan request. hidden, when non-empty, requests
	// an active probe for the given SSID (the hidden-SSID follow-up of
	// §4.3).
	StartScan(ctx context.Context, hidden []byte, channels []int) error

	// Associate issues an association request to the given BSS using the
	// security parameters of the profile already configured via
	// ConfigureSecurity.
	Associate(ctx context.Context, bss BSSDescriptor) error

	// ConfigureSecurity pushes PSK/PMK/passphrase and cipher selection to
	// the driver ahead of association.
	ConfigureSecurity(ctx context.Context, sec SecurityDescriptor) error

	// Deauthenticate tears down an active STA association.
	Deauthenticate(ctx context.Context) error

	// ConfigureStaticAddr and RequestDHCP drive the address-acquisition
	// sub-pipeline of §4.3.
	ConfigureStaticAddr(ctx context.Context, ip IPConfig) error
	RequestDHCP(ctx context.Context) error

	// uAP lifecycle.
	StartUAP(ctx context.Context, p *Profile, allowedChannels []int) error
	StopUAP(ctx context.Context) error

	// QueryAllowedChannels returns the regulatory-allowed channel set for
	// soft-AP startup (§4.4 "query allowed channels").
	QueryAllowedChannels(ctx context.Context) ([]int, error)

	// Power-save commands (§4.5).
	EnterIEEEPS(ctx context.Context, mask uint32) error
	ExitIEEEPS(ctx context.Context) error
	EnterDeepSleep(ctx context.Context) error
	ExitDeepSleep(ctx context.Context) error
	SendHostSleepConfig(ctx context.Context, cfg HostSleepConfig) error
	SendSleepConfirm(ctx context.Context) error

	// BringDown releases any interface-level resources held for the
	// current session (§4.3 address-failure / link-loss cleanup path).
	BringDown(ctx context.Context) error

	// LocalHardwareAddr returns the interface's own MAC.
	LocalHardwareAddr() net.HardwareAddr
}

// WakeLock is the counting suspend-blocker the dispatcher acquires for
// the duration of a connect/scan/roam attempt and releases on
// completion or failure (§3 "wake-lock discipline", §4.2 invariants).
// Implemented by internal/wakelock against an eventfd-backed counter;
// kept as an interface here so the FSMs' action list never names a
// concrete platform primitive.
type WakeLock interface {
	Acquire()
	Release()
	Held() bool
}
