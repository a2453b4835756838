package wcm

import (
	"encoding/hex"
	"fmt"
)

// SecurityType enumerates the security profile kinds of §3/§4.3.
// SecurityWildcard means "accept whatever the strongest security the BSS
// advertises turns out to be" — resolved to a concrete type during
// parameter update after a scan match (§4.3 "Parameter update after match").
type SecurityType uint8

const (
	SecurityNone SecurityType = iota
	SecurityWEP
	SecurityWPA
	SecurityWPAWPA2Mixed
	SecurityWPA2
	SecurityWPA3SAE
	SecurityWPA2WPA3Mixed
	SecurityOWE
	SecurityWildcard
)

func (t SecurityType) String() string {
	switch t {
	case SecurityNone:
		return "none"
	case SecurityWEP:
		return "wep"
	case SecurityWPA:
		return "wpa"
	case SecurityWPAWPA2Mixed:
		return "wpa-wpa2-mixed"
	case SecurityWPA2:
		return "wpa2"
	case SecurityWPA3SAE:
		return "wpa3-sae"
	case SecurityWPA2WPA3Mixed:
		return "wpa2-wpa3-mixed"
	case SecurityOWE:
		return "owe"
	case SecurityWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// CipherSuite is a bitmask of advertised/configured pairwise ciphers.
type CipherSuite uint8

const (
	CipherNone CipherSuite = 0
	CipherWEP  CipherSuite = 1 << iota
	CipherTKIP
	CipherCCMP
	CipherGCMP
)

// SecurityDescriptor is the security portion of a Network Profile (§3).
type SecurityDescriptor struct {
	Type SecurityType

	// PSK is the WPA/WPA2/mixed pre-shared key: 8-63 ASCII bytes, or
	// exactly 64 hex digits (pre-derived PMK hex encoding).
	PSK string

	// Passphrase is the WPA3-SAE/OWE password: 8-255 bytes.
	Passphrase string

	// PMK, if non-nil, is a pre-derived pairwise master key, bypassing
	// PSK-to-PMK derivation in the supplicant backend.
	PMK []byte

	PMFCapable  bool
	PMFRequired bool
	Ciphers     CipherSuite
}

// HasKeyMaterial reports whether the descriptor carries credentials,
// i.e. the profile is not for an open network.
func (d SecurityDescriptor) HasKeyMaterial() bool {
	return d.Type != SecurityNone && d.Type != SecurityOWE
}

// Validate checks the security invariants of §3. The PMF-mandatory
// checks apply identically to STA and uAP profiles.
func (d SecurityDescriptor) Validate() error {
	switch d.Type {
	case SecurityNone, SecurityOWE:
		// OWE carries no PSK; its key material is negotiated.
	case SecurityWEP:
		// WEP keys are not validated here; the descriptor has no WEP
		// key-index fields to check.
	case SecurityWPA, SecurityWPA2, SecurityWPAWPA2Mixed:
		if err := validatePSK(d.PSK); err != nil {
			return err
		}
	case SecurityWPA3SAE, SecurityWPA2WPA3Mixed:
		if err := validatePassphrase(d.Passphrase); err != nil {
			return err
		}
	case SecurityWildcard:
		// Either form may be supplied; accept PSK or passphrase, validate
		// whichever was set.
		if d.PSK != "" {
			if err := validatePSK(d.PSK); err != nil {
				return err
			}
		}
		if d.Passphrase != "" {
			if err := validatePassphrase(d.Passphrase); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown security type %d", ErrInvalidProfile, d.Type)
	}

	if pmfMandatory(d.Type) && !d.PMFCapable {
		return fmt.Errorf("%w: %s requires pmf_capable", ErrInvalidProfile, d.Type)
	}
	if pmfRequiredMandatory(d.Type) && !d.PMFRequired {
		return fmt.Errorf("%w: %s requires pmf_required", ErrInvalidProfile, d.Type)
	}
	return nil
}

// pmfMandatory reports whether t is WPA3-SAE or OWE, the types that
// always require pmf_capable. WPA2-SHA256 has no type of its own (it is
// plain SecurityWPA2), so its pmf_capable requirement is not checked.
func pmfMandatory(t SecurityType) bool {
	return t == SecurityWPA3SAE || t == SecurityOWE
}

func pmfRequiredMandatory(t SecurityType) bool {
	return t == SecurityWPA3SAE || t == SecurityOWE
}

func validatePSK(psk string) error {
	if len(psk) == 64 && isHex(psk) {
		return nil
	}
	if len(psk) >= 8 && len(psk) <= 63 && isASCII(psk) {
		return nil
	}
	return fmt.Errorf("%w: psk must be 8-63 ASCII chars or 64 hex digits", ErrInvalidProfile)
}

func validatePassphrase(pass string) error {
	if len(pass) >= 8 && len(pass) <= 255 {
		return nil
	}
	return fmt.Errorf("%w: passphrase must be 8-255 bytes", ErrInvalidProfile)
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7E || s[i] < 0x20 {
			return false
		}
	}
	return true
}

// BSSCapabilities describes the security-relevant bits a scanned BSS
// descriptor advertises, as consumed by the security compatibility table
// of §4.3.
type BSSCapabilities struct {
	AdvertisesWEP       bool
	AdvertisesWPA       bool
	WPATKIPOnly         bool
	AdvertisesWPA2      bool
	AdvertisesWPA2SHA256 bool
	AdvertisesSAE       bool
	AdvertisesOWE       bool
	PMFCapable          bool
	PMFRequired         bool
	HT                  bool // 802.11n
}

// securityCompatible implements the §4.3 security compatibility table.
//
// Per §9's flagged open question, the polarity here is deliberately
// "nil error means matches", mirroring the source's WM_SUCCESS==0 return
// convention for the match path — this is not accidental, it reproduces
// the behavior the spec says to preserve rather than "fix".
func securityCompatible(d SecurityDescriptor, caps BSSCapabilities) error {
	switch d.Type {
	case SecurityNone:
		if caps.AdvertisesWEP || caps.AdvertisesWPA || caps.AdvertisesWPA2 || caps.AdvertisesSAE {
			return fmt.Errorf("bss advertises security, profile is open")
		}
		return nil

	case SecurityWEP:
		if !caps.AdvertisesWEP {
			return fmt.Errorf("bss does not advertise WEP")
		}
		if caps.HT {
			return fmt.Errorf("bss advertises 802.11n HT, WEP forbidden")
		}
		return nil

	case SecurityWPA:
		if !caps.AdvertisesWPA {
			return fmt.Errorf("bss does not advertise WPA")
		}
		if caps.WPATKIPOnly {
			return fmt.Errorf("bss is TKIP-only, use WPA-WPA2-mixed")
		}
		return nil

	case SecurityWPA2:
		if !caps.AdvertisesWPA2 && !caps.AdvertisesWPA2SHA256 {
			return fmt.Errorf("bss does not advertise WPA2")
		}
		return nil

	case SecurityWPAWPA2Mixed:
		if !caps.AdvertisesWPA && !caps.AdvertisesWPA2 {
			return fmt.Errorf("bss advertises neither WPA nor WPA2")
		}
		return nil

	case SecurityWPA3SAE:
		if !caps.AdvertisesSAE {
			return fmt.Errorf("bss does not advertise SAE")
		}
		if !d.PMFCapable || !d.PMFRequired {
			return fmt.Errorf("profile missing pmf capable+required for WPA3-SAE")
		}
		return nil

	case SecurityWPA2WPA3Mixed:
		if !caps.AdvertisesSAE && !caps.AdvertisesWPA2 {
			return fmt.Errorf("bss advertises neither SAE nor WPA2")
		}
		if !d.PMFCapable || !d.PMFRequired {
			return fmt.Errorf("profile missing pmf capable+required for WPA2-WPA3-mixed")
		}
		return nil

	case SecurityOWE:
		if !caps.AdvertisesOWE {
			return fmt.Errorf("bss does not advertise OWE")
		}
		return nil

	case SecurityWildcard:
		return wildcardSecurityCompatible(d, caps)

	default:
		return fmt.Errorf("unknown security type %d", d.Type)
	}
}

// wildcardSecurityCompatible accepts any BSS that advertises some
// security; because HasKeyMaterial is true for every wildcard descriptor,
// a BSS that advertises none is rejected. The caller resolves the
// concrete type afterward via strongestSecurity.
func wildcardSecurityCompatible(d SecurityDescriptor, caps BSSCapabilities) error {
	if d.HasKeyMaterial() || d.PSK != "" || d.Passphrase != "" {
		if !caps.AdvertisesWEP && !caps.AdvertisesWPA && !caps.AdvertisesWPA2 && !caps.AdvertisesSAE && !caps.AdvertisesOWE {
			return fmt.Errorf("secured profile cannot match open bss")
		}
	}
	return nil
}

// strongestSecurity picks the concrete type a wildcard profile resolves
// to, ranked WPA2/WPA3-mixed > WPA3-SAE > WPA2 > WPA-mixed > WEP > none,
// per §4.3 "Parameter update after match".
func strongestSecurity(caps BSSCapabilities) SecurityType {
	switch {
	case caps.AdvertisesSAE && caps.AdvertisesWPA2:
		return SecurityWPA2WPA3Mixed
	case caps.AdvertisesSAE:
		return SecurityWPA3SAE
	case caps.AdvertisesWPA2 || caps.AdvertisesWPA2SHA256:
		return SecurityWPA2
	case caps.AdvertisesWPA:
		return SecurityWPAWPA2Mixed
	case caps.AdvertisesWEP:
		return SecurityWEP
	default:
		return SecurityNone
	}
}
