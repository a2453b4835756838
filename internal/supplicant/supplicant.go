// Package supplicant provides swappable backends for the station-side
// security handshake the Wi-Fi connection manager's Driver delegates to.
// WPA/WPA2/WPA3 key derivation and the EAPOL/SAE exchanges themselves are
// out of scope here (they run inside wpa_supplicant or firmware); this
// package only negotiates configuration with whichever supplicant
// process is actually running, the way the teacher's Authenticator
// delegates signing/verification to a pluggable implementation instead
// of hard-coding one digest algorithm.
package supplicant

import (
	"context"
	"errors"
)

// Sentinel errors for supplicant-backend failures.
var (
	// ErrNoNetwork indicates the backend has no active network
	// configuration to associate, deauthenticate, or reconfigure.
	ErrNoNetwork = errors.New("supplicant: no active network")

	// ErrBackendUnavailable indicates the backend's transport (D-Bus
	// session, control socket) could not be reached.
	ErrBackendUnavailable = errors.New("supplicant: backend unavailable")

	// ErrUnsupportedSecurity indicates the requested SecurityType has no
	// mapping in this backend.
	ErrUnsupportedSecurity = errors.New("supplicant: unsupported security type")
)

// NetworkConfig is the backend-agnostic shape a Supplicant negotiates.
// wcm.SecurityDescriptor is not imported here to keep this package
// independent of internal/wcm; the wiring layer (the Driver
// implementation in internal/simdriver) translates between the two.
type NetworkConfig struct {
	SSID       []byte
	BSSID      []byte
	Proto      string // "WPA", "RSN", "" (none)
	KeyMgmt    string // "WPA-PSK", "WPA-PSK-SHA256", "SAE", "NONE", "WPS"
	Pairwise   string // "CCMP", "TKIP", "CCMP TKIP"
	PSK        string // hex PMK or ASCII passphrase, backend decides which
	PMF        int    // 0 disabled, 1 optional, 2 required
	Passphrase string
}

// Supplicant is the capability interface a Driver implementation calls
// into for the association security handshake, analogous in spirit to
// the teacher's Authenticator: a narrow, swappable seam rather than a
// hard dependency on one concrete client.
type Supplicant interface {
	// AddNetwork creates (or replaces) the single active network
	// configuration this supplicant instance drives.
	AddNetwork(ctx context.Context, cfg NetworkConfig) error

	// SelectNetwork requests association with the configured network.
	SelectNetwork(ctx context.Context) error

	// Disconnect tears down any active or pending association.
	Disconnect(ctx context.Context) error

	// RemoveNetwork discards the active network configuration.
	RemoveNetwork(ctx context.Context) error

	// Close releases backend resources (D-Bus connection, control
	// socket) held by this Supplicant.
	Close() error
}
