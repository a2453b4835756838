package supplicant

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// LegacySupplicant drives wpa_supplicant through its textual control
// interface (a Unix datagram socket), the transport used on embedded
// targets that carry wpa_supplicant without its D-Bus glue. This is the
// one internal/supplicant backend built on the standard library alone:
// the control-interface protocol is a line-oriented request/reply text
// format with no client library in the example corpus, so there is
// nothing idiomatic to wrap.
type LegacySupplicant struct {
	conn      *net.UnixConn
	localPath string
	networkID string
}

// NewLegacySupplicant connects to the control socket at ctrlPath (e.g.
// "/var/run/wpa_supplicant/wlan0").
func NewLegacySupplicant(ctrlPath string) (*LegacySupplicant, error) {
	local := fmt.Sprintf("/tmp/wcmd-ctrl-%d.sock", os.Getpid())
	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: local, Net: "unixgram"},
		&net.UnixAddr{Name: ctrlPath, Net: "unixgram"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrBackendUnavailable, ctrlPath, err)
	}
	return &LegacySupplicant{conn: conn, localPath: local}, nil
}

func (s *LegacySupplicant) command(ctx context.Context, cmd string) (string, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
	} else {
		_ = s.conn.SetDeadline(time.Now().Add(5 * time.Second))
	}
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrBackendUnavailable, cmd, err)
	}
	buf := make([]byte, 4096)
	n, err := s.conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("%w: read reply to %s: %v", ErrBackendUnavailable, cmd, err)
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// AddNetwork issues ADD_NETWORK followed by SET_NETWORK for each
// non-empty field of cfg.
func (s *LegacySupplicant) AddNetwork(ctx context.Context, cfg NetworkConfig) error {
	if s.networkID != "" {
		if err := s.RemoveNetwork(ctx); err != nil {
			return err
		}
	}

	id, err := s.command(ctx, "ADD_NETWORK")
	if err != nil {
		return err
	}
	if _, convErr := strconv.Atoi(id); convErr != nil {
		return fmt.Errorf("%w: unexpected ADD_NETWORK reply %q", ErrBackendUnavailable, id)
	}
	s.networkID = id

	set := func(field, value string) error {
		reply, err := s.command(ctx, fmt.Sprintf("SET_NETWORK %s %s %s", id, field, value))
		if err != nil {
			return err
		}
		if reply != "OK" {
			return fmt.Errorf("%w: SET_NETWORK %s: %s", ErrBackendUnavailable, field, reply)
		}
		return nil
	}

	if err := set("ssid", strconv.Quote(string(cfg.SSID))); err != nil {
		return err
	}
	if cfg.KeyMgmt != "" {
		if err := set("key_mgmt", cfg.KeyMgmt); err != nil {
			return err
		}
	}
	if cfg.Proto != "" {
		if err := set("proto", cfg.Proto); err != nil {
			return err
		}
	}
	if cfg.Pairwise != "" {
		if err := set("pairwise", cfg.Pairwise); err != nil {
			return err
		}
	}
	if len(cfg.BSSID) == 6 {
		mac := net.HardwareAddr(cfg.BSSID).String()
		if err := set("bssid", mac); err != nil {
			return err
		}
	}
	switch {
	case cfg.PSK != "":
		// A 64-digit hex PSK is sent as-is; any other value is an ASCII
		// passphrase, which the control interface takes quoted.
		psk := strconv.Quote(cfg.PSK)
		if _, hexErr := hex.DecodeString(cfg.PSK); hexErr == nil && len(cfg.PSK) == 64 {
			psk = cfg.PSK
		}
		if err := set("psk", psk); err != nil {
			return err
		}
	case cfg.Passphrase != "":
		if err := set("psk", strconv.Quote(cfg.Passphrase)); err != nil {
			return err
		}
	}
	if cfg.PMF != 0 {
		if err := set("ieee80211w", strconv.Itoa(cfg.PMF)); err != nil {
			return err
		}
	}
	return nil
}

// SelectNetwork issues SELECT_NETWORK for the active network ID.
func (s *LegacySupplicant) SelectNetwork(ctx context.Context) error {
	if s.networkID == "" {
		return ErrNoNetwork
	}
	reply, err := s.command(ctx, "SELECT_NETWORK "+s.networkID)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("%w: SELECT_NETWORK: %s", ErrBackendUnavailable, reply)
	}
	return nil
}

// Disconnect issues DISCONNECT.
func (s *LegacySupplicant) Disconnect(ctx context.Context) error {
	reply, err := s.command(ctx, "DISCONNECT")
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("%w: DISCONNECT: %s", ErrBackendUnavailable, reply)
	}
	return nil
}

// RemoveNetwork issues REMOVE_NETWORK for the active network ID.
func (s *LegacySupplicant) RemoveNetwork(ctx context.Context) error {
	if s.networkID == "" {
		return nil
	}
	reply, err := s.command(ctx, "REMOVE_NETWORK "+s.networkID)
	s.networkID = ""
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("%w: REMOVE_NETWORK: %s", ErrBackendUnavailable, reply)
	}
	return nil
}

// Close closes the local control socket and removes its filesystem path.
func (s *LegacySupplicant) Close() error {
	err := s.conn.Close()
	_ = os.Remove(s.localPath)
	return err
}
