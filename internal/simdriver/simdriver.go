// Package simdriver implements wcm.Driver by acknowledging every firmware
// command with a synthetic completion event posted back to the bound
// Dispatcher. It lets cmd/wcmd run end-to-end — exercising the scan,
// associate, address-acquisition, soft-AP, and power-save pipelines --
// without a real nl80211/SDIO firmware binding, which the connection
// manager's scope deliberately never models (802.11 MAC/PHY internals are
// an opaque external collaborator, per the Driver interface doc).
//
// A production deployment swaps this package for a real hardware driver
// that implements wcm.Driver against the platform's actual firmware
// command interface; simdriver is the reference/standalone backend.
package simdriver

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dvagner-nxp/wcmd/internal/supplicant"
	"github.com/dvagner-nxp/wcmd/internal/wcm"
)

// ackDelay is the artificial latency before a simulated command completes,
// long enough that callers observe the dispatcher's pending/in-progress
// states rather than a same-tick reply.
const ackDelay = 20 * time.Millisecond

// Driver is a standalone wcm.Driver backend. The zero value is not usable;
// construct with New.
type Driver struct {
	mu     sync.Mutex
	disp   *wcm.Dispatcher
	hwAddr net.HardwareAddr
	logger *slog.Logger
	supp   supplicant.Supplicant

	allowedChannels []int
	pendingSecurity wcm.SecurityDescriptor
}

// New returns a Driver using hwAddr as the simulated interface's hardware
// address and logger for diagnostic output. supp, if non-nil, receives
// the real security handshake negotiation ConfigureSecurity/Associate/
// Deauthenticate translate into — the simulated firmware command
// round-trip still happens, but the actual supplicant backend is the one
// that ends up holding the network configuration.
func New(hwAddr net.HardwareAddr, supp supplicant.Supplicant, logger *slog.Logger) *Driver {
	return &Driver{
		hwAddr:          hwAddr,
		logger:          logger,
		supp:            supp,
		allowedChannels: []int{1, 6, 11, 36, 40, 44, 48},
	}
}

// Bind attaches the Dispatcher the driver posts completion events to. It
// must be called once, after the Dispatcher is constructed and before its
// Run loop is started.
func (d *Driver) Bind(disp *wcm.Dispatcher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disp = disp
}

func (d *Driver) dispatcher() *wcm.Dispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disp
}

// post asynchronously delivers ev to the bound dispatcher after ackDelay,
// simulating the latency of a real firmware round trip.
func (d *Driver) post(ev wcm.Event) {
	disp := d.dispatcher()
	if disp == nil {
		return
	}
	go func() {
		time.Sleep(ackDelay)
		if err := disp.Post(ev); err != nil {
			d.logger.Debug("simdriver: dropped event, dispatcher stopped",
				slog.String("error", err.Error()))
		}
	}()
}

func (d *Driver) StartScan(_ context.Context, _ []byte, _ []int) error {
	d.post(wcm.Event{Kind: wcm.EventScanResult})
	return nil
}

func (d *Driver) ConfigureSecurity(_ context.Context, sec wcm.SecurityDescriptor) error {
	d.mu.Lock()
	d.pendingSecurity = sec
	d.mu.Unlock()
	return nil
}

func (d *Driver) Associate(ctx context.Context, bss wcm.BSSDescriptor) error {
	d.mu.Lock()
	sec := d.pendingSecurity
	supp := d.supp
	d.mu.Unlock()

	if supp != nil {
		cfg := networkConfigFromSecurity(bss.SSID, bss.BSSID, sec)
		if err := supp.AddNetwork(ctx, cfg); err != nil {
			d.post(wcm.Event{Kind: wcm.EventAssocResult, Success: false, FailReason: err})
			return nil
		}
		if err := supp.SelectNetwork(ctx); err != nil {
			d.post(wcm.Event{Kind: wcm.EventAssocResult, Success: false, FailReason: err})
			return nil
		}
	}

	d.post(wcm.Event{Kind: wcm.EventAssocResult, Success: true})
	d.post(wcm.Event{Kind: wcm.EventAuthResult, Success: true})
	return nil
}

func (d *Driver) Deauthenticate(ctx context.Context) error {
	d.mu.Lock()
	supp := d.supp
	d.mu.Unlock()
	if supp != nil {
		return supp.Disconnect(ctx)
	}
	return nil
}

// networkConfigFromSecurity translates the connection manager's security
// descriptor into the backend-agnostic shape a supplicant.Supplicant
// negotiates, the way a real Driver implementation would at the Driver/
// Supplicant seam (see supplicant.NetworkConfig's doc comment).
func networkConfigFromSecurity(ssid []byte, bssid net.HardwareAddr, sec wcm.SecurityDescriptor) supplicant.NetworkConfig {
	cfg := supplicant.NetworkConfig{
		SSID:       ssid,
		BSSID:      []byte(bssid),
		PSK:        sec.PSK,
		Passphrase: sec.Passphrase,
	}
	switch sec.Type {
	case wcm.SecurityNone:
		cfg.KeyMgmt = "NONE"
	case wcm.SecurityWEP:
		cfg.KeyMgmt = "NONE"
	case wcm.SecurityWPA:
		cfg.Proto, cfg.KeyMgmt = "WPA", "WPA-PSK"
	case wcm.SecurityWPAWPA2Mixed:
		cfg.Proto, cfg.KeyMgmt = "WPA RSN", "WPA-PSK"
	case wcm.SecurityWPA2:
		cfg.Proto, cfg.KeyMgmt = "RSN", "WPA-PSK"
	case wcm.SecurityWPA3SAE:
		cfg.Proto, cfg.KeyMgmt = "RSN", "SAE"
	case wcm.SecurityWPA2WPA3Mixed:
		cfg.Proto, cfg.KeyMgmt = "RSN", "WPA-PSK SAE"
	case wcm.SecurityOWE:
		cfg.Proto, cfg.KeyMgmt = "RSN", "OWE"
	default:
		cfg.KeyMgmt = "NONE"
	}
	if sec.PMFRequired {
		cfg.PMF = 2
	} else if sec.PMFCapable {
		cfg.PMF = 1
	}
	switch {
	case sec.Ciphers&wcm.CipherGCMP != 0:
		cfg.Pairwise = "GCMP"
	case sec.Ciphers&wcm.CipherCCMP != 0:
		cfg.Pairwise = "CCMP"
	case sec.Ciphers&wcm.CipherTKIP != 0:
		cfg.Pairwise = "TKIP"
	}
	return cfg
}

func (d *Driver) ConfigureStaticAddr(_ context.Context, ip wcm.IPConfig) error {
	d.post(wcm.Event{Kind: wcm.EventAddrResult, Success: true, Addr: ip})
	return nil
}

func (d *Driver) RequestDHCP(context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventAddrResult, Success: true})
	return nil
}

func (d *Driver) StartUAP(_ context.Context, _ *wcm.Profile, _ []int) error {
	d.post(wcm.Event{Kind: wcm.EventUAPStartResult, Success: true})
	return nil
}

func (d *Driver) StopUAP(context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventUAPStopResult})
	return nil
}

func (d *Driver) QueryAllowedChannels(context.Context) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	chans := make([]int, len(d.allowedChannels))
	copy(chans, d.allowedChannels)
	return chans, nil
}

func (d *Driver) EnterIEEEPS(context.Context, uint32) error {
	d.post(wcm.Event{Kind: wcm.EventPSEnableDone, PSMode: wcm.PSModeIEEE})
	return nil
}

func (d *Driver) ExitIEEEPS(context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventPSDisableDone, PSMode: wcm.PSModeIEEE})
	return nil
}

func (d *Driver) EnterDeepSleep(context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventPSEnableDone, PSMode: wcm.PSModeDeepSleep})
	return nil
}

func (d *Driver) ExitDeepSleep(context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventPSDisableDone, PSMode: wcm.PSModeDeepSleep})
	return nil
}

func (d *Driver) SendHostSleepConfig(context.Context, wcm.HostSleepConfig) error {
	return nil
}

func (d *Driver) SendSleepConfirm(_ context.Context) error {
	d.post(wcm.Event{Kind: wcm.EventPSSleepConfirmed})
	return nil
}

func (d *Driver) BringDown(context.Context) error {
	return nil
}

func (d *Driver) LocalHardwareAddr() net.HardwareAddr {
	return d.hwAddr
}

var _ wcm.Driver = (*Driver)(nil)
