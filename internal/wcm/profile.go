package wcm

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Role distinguishes a station profile from a soft-AP profile.
type Role uint8

const (
	RoleSTA Role = iota
	RoleUAP
)

func (r Role) String() string {
	if r == RoleUAP {
		return "uap"
	}
	return "sta"
}

// IPConfig is either static or dynamic (§3 Network Profile).
type IPConfig struct {
	Dynamic bool // true: DHCP/DHCPv6/SLAAC; false: static fields below apply

	Address net.IP
	Gateway net.IP
	Netmask net.IP
	DNS1    net.IP
	DNS2    net.IP
}

// Profile is a Network Profile (§3): a named, persistent-in-RAM record
// describing one STA or uAP network.
type Profile struct {
	Name    string
	Role    Role
	SSID    []byte // 0..32 octets
	BSSID   net.HardwareAddr
	Channel int // 0 = "any"

	Security SecurityDescriptor
	IP       IPConfig

	// Specificity bits, computed at add-time from whether the caller
	// supplied a non-empty value for the corresponding field (§3).
	SSIDSpecific    bool
	BSSIDSpecific   bool
	ChannelSpecific bool

	// Discovered fields, filled in by the STA FSM after a successful scan
	// match for fields the profile did not constrain (§4.3 "Parameter
	// update after match"). copyOut scrubs these back to zero values.
	discoveredPMFRequired bool
	discoveredCiphers     CipherSuite
	discoveredMobility    []byte
	discoveredOWETransSSID []byte
}

// clone returns a deep copy safe to hand to a caller.
func (p *Profile) clone() *Profile {
	c := *p
	c.SSID = append([]byte(nil), p.SSID...)
	if p.BSSID != nil {
		c.BSSID = append(net.HardwareAddr(nil), p.BSSID...)
	}
	if p.Security.PMK != nil {
		c.Security.PMK = append([]byte(nil), p.Security.PMK...)
	}
	return &c
}

// copyOut returns a copy with dynamically-learned fields scrubbed for
// fields the profile did not pin at add-time (§4.1 get_by_index/
// get_by_name "copy_out scrubs dynamically-learned fields").
func (p *Profile) copyOut() *Profile {
	c := p.clone()
	if !c.ChannelSpecific {
		c.Channel = 0
	}
	if !c.BSSIDSpecific {
		c.BSSID = nil
	}
	if !c.SSIDSpecific {
		c.SSID = nil
	}
	c.discoveredPMFRequired = false
	c.discoveredCiphers = CipherNone
	c.discoveredMobility = nil
	c.discoveredOWETransSSID = nil
	return c
}

// validate checks the structural and security invariants of §3/§4.1
// (name length, SSID/BSSID presence, security descriptor, uAP gateway
// invariant). It does not check store-level uniqueness or capacity.
func (p *Profile) validate() error {
	if len(p.Name) == 0 || len(p.Name) > 32 {
		return fmt.Errorf("%w: name length must be 1-32", ErrInvalidProfile)
	}
	if len(p.SSID) > 32 {
		return fmt.Errorf("%w: ssid length must be <= 32", ErrInvalidProfile)
	}
	if len(p.SSID) == 0 && len(p.BSSID) == 0 {
		return fmt.Errorf("%w: ssid or bssid must be non-empty", ErrInvalidProfile)
	}
	if err := p.Security.Validate(); err != nil {
		return err
	}
	if p.Role == RoleUAP && !p.IP.Dynamic {
		if !p.IP.Gateway.Equal(p.IP.Address) {
			return fmt.Errorf("%w: uap profile requires ip.gateway == ip.address", ErrInvalidProfile)
		}
	}
	return nil
}

// ProfileStore holds up to maxProfiles named profiles (§4.1).
//
// Mutation discipline: in the single-dispatcher runtime, Add/Remove are
// only ever called from the dispatcher goroutine (enqueued as events),
// but the store itself is safe under concurrent access from read paths
// (CLI/REST status queries) via the embedded mutex, matching the
// teacher's sync.RWMutex-guarded Manager.
type ProfileStore struct {
	mu      sync.RWMutex
	byName  map[string]*Profile
	order   []string // insertion order, indexes stable for get_by_index
	max     int
	logger  *slog.Logger
}

// NewProfileStore creates a store with the given capacity.
func NewProfileStore(maxProfiles int, logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileStore{
		byName: make(map[string]*Profile),
		max:    maxProfiles,
		logger: logger.With(slog.String("component", "profile-store")),
	}
}

// staStateChecker reports the STA FSM's current state, so Add can apply
// the "STA profile additions are rejected unless STA is in IDLE,
// ASSOCIATED, or CONNECTED" precondition (§4.1) without the store
// depending on the dispatcher package-internally.
type staStateChecker func() STAState

// Add validates and inserts a profile (§4.1 add).
func (s *ProfileStore) Add(p *Profile, staState staStateChecker) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.Role == RoleSTA && staState != nil {
		switch staState() {
		case STAIdle, STAAssociated, STAConnected:
		default:
			return fmt.Errorf("%w: sta must be idle, associated, or connected to add a profile", ErrBadSTAState)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[p.Name]; exists {
		return ErrNameTaken
	}
	if len(s.byName) >= s.max {
		return ErrStoreFull
	}

	stored := p.clone()
	stored.SSIDSpecific = len(p.SSID) > 0
	stored.BSSIDSpecific = len(p.BSSID) > 0
	stored.ChannelSpecific = p.Channel != 0

	s.byName[p.Name] = stored
	s.order = append(s.order, p.Name)
	s.logger.Info("profile added", slog.String("name", p.Name), slog.String("role", p.Role.String()))
	return nil
}

// busyChecker reports whether removing a profile is currently forbidden
// because it backs an active session (§4.1 remove "Busy").
type busyChecker func(p *Profile) bool

// Remove deletes a profile by name (§4.1 remove).
func (s *ProfileStore) Remove(name string, isBusy busyChecker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byName[name]
	if !ok {
		return ErrProfileNotFound
	}
	if isBusy != nil && isBusy(p) {
		return ErrProfileBusy
	}

	delete(s.byName, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.logger.Info("profile removed", slog.String("name", name))
	return nil
}

// GetByName returns a scrubbed copy (§4.1 get_by_name).
func (s *ProfileStore) GetByName(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byName[name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.copyOut(), nil
}

// GetByIndex returns a scrubbed copy at insertion-order index i (§4.1
// get_by_index).
func (s *ProfileStore) GetByIndex(i int) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.order) {
		return nil, ErrProfileNotFound
	}
	return s.byName[s.order[i]].copyOut(), nil
}

// Count returns the number of stored profiles (§4.1 count).
func (s *ProfileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns scrubbed copies of every stored profile, in insertion order.
func (s *ProfileStore) All() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Profile, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n].copyOut())
	}
	return out
}

// recordMatch mutates the stored profile's non-specific fields from a
// successful scan match (§3 Lifecycles "mutated by STA FSM on successful
// scan match"). Called only from the dispatcher goroutine.
func (s *ProfileStore) recordMatch(name string, bss BSSDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byName[name]
	if !ok {
		return
	}
	if !p.ChannelSpecific {
		p.Channel = bss.Channel
	}
	if !p.BSSIDSpecific {
		p.BSSID = append(net.HardwareAddr(nil), bss.BSSID...)
	}
	if !p.SSIDSpecific {
		p.SSID = append([]byte(nil), bss.SSID...)
	}
	p.discoveredPMFRequired = bss.Capabilities.PMFRequired
	p.discoveredCiphers = bss.Ciphers
	p.discoveredMobility = bss.MobilityDomain
	p.discoveredOWETransSSID = bss.OWETransitionSSID

	if p.Security.Type == SecurityWildcard {
		p.Security.Type = strongestSecurity(bss.Capabilities)
	}
}
