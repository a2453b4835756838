package supplicant

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	dbusService        = "fi.w1.wpa_supplicant1"
	dbusInterfaceRoot  = "fi.w1.wpa_supplicant1"
	dbusInterfaceIface = "fi.w1.wpa_supplicant1.Interface"
	dbusObjectPathRoot = "/fi/w1/wpa_supplicant1"
)

// DBusSupplicant drives a running wpa_supplicant instance over the
// system bus (fi.w1.wpa_supplicant1), the standard Linux desktop/server
// transport. It holds exactly one active network object path at a time,
// matching this package's single-active-network contract.
type DBusSupplicant struct {
	conn      *dbus.Conn
	ifaceName string
	ifacePath dbus.ObjectPath
	netPath   dbus.ObjectPath
}

// NewDBusSupplicant connects to the system bus and resolves (or creates)
// the wpa_supplicant interface object for ifaceName (e.g. "wlan0").
func NewDBusSupplicant(ifaceName string) (*DBusSupplicant, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	root := conn.Object(dbusService, dbus.ObjectPath(dbusObjectPathRoot))
	var ifacePath dbus.ObjectPath
	err = root.Call(dbusInterfaceRoot+".GetInterface", 0, ifaceName).Store(&ifacePath)
	if err != nil {
		// Interface object does not exist yet; ask wpa_supplicant to
		// create it bound to this network device.
		args := map[string]dbus.Variant{"Ifname": dbus.MakeVariant(ifaceName)}
		err = root.Call(dbusInterfaceRoot+".CreateInterface", 0, args).Store(&ifacePath)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: create interface %s: %v", ErrBackendUnavailable, ifaceName, err)
		}
	}

	return &DBusSupplicant{conn: conn, ifaceName: ifaceName, ifacePath: ifacePath}, nil
}

func (s *DBusSupplicant) iface() dbus.BusObject {
	return s.conn.Object(dbusService, s.ifacePath)
}

// AddNetwork creates a wpa_supplicant network object from cfg, removing
// any previously active network first (single-active-network contract).
func (s *DBusSupplicant) AddNetwork(ctx context.Context, cfg NetworkConfig) error {
	if s.netPath != "" {
		if err := s.RemoveNetwork(ctx); err != nil {
			return err
		}
	}

	args := map[string]dbus.Variant{
		"ssid": dbus.MakeVariant(cfg.SSID),
	}
	if cfg.KeyMgmt != "" {
		args["key_mgmt"] = dbus.MakeVariant(cfg.KeyMgmt)
	}
	if cfg.Proto != "" {
		args["proto"] = dbus.MakeVariant(cfg.Proto)
	}
	if cfg.Pairwise != "" {
		args["pairwise"] = dbus.MakeVariant(cfg.Pairwise)
	}
	if len(cfg.BSSID) > 0 {
		args["bssid"] = dbus.MakeVariant(cfg.BSSID)
	}
	switch {
	case cfg.PSK != "":
		args["psk"] = dbus.MakeVariant(cfg.PSK)
	case cfg.Passphrase != "":
		args["psk"] = dbus.MakeVariant(cfg.Passphrase)
	}
	if cfg.PMF != 0 {
		args["ieee80211w"] = dbus.MakeVariant(uint32(cfg.PMF))
	}

	var path dbus.ObjectPath
	call := s.iface().CallWithContext(ctx, dbusInterfaceIface+".AddNetwork", 0, args)
	if err := call.Store(&path); err != nil {
		return fmt.Errorf("%w: AddNetwork: %v", ErrBackendUnavailable, err)
	}
	s.netPath = path
	return nil
}

// SelectNetwork requests association with the active network.
func (s *DBusSupplicant) SelectNetwork(ctx context.Context) error {
	if s.netPath == "" {
		return ErrNoNetwork
	}
	call := s.iface().CallWithContext(ctx, dbusInterfaceIface+".SelectNetwork", 0, s.netPath)
	if call.Err != nil {
		return fmt.Errorf("%w: SelectNetwork: %v", ErrBackendUnavailable, call.Err)
	}
	return nil
}

// Disconnect tears down any active or pending association.
func (s *DBusSupplicant) Disconnect(ctx context.Context) error {
	call := s.iface().CallWithContext(ctx, dbusInterfaceIface+".Disconnect", 0)
	if call.Err != nil {
		return fmt.Errorf("%w: Disconnect: %v", ErrBackendUnavailable, call.Err)
	}
	return nil
}

// RemoveNetwork discards the active network object.
func (s *DBusSupplicant) RemoveNetwork(ctx context.Context) error {
	if s.netPath == "" {
		return nil
	}
	call := s.iface().CallWithContext(ctx, dbusInterfaceIface+".RemoveNetwork", 0, s.netPath)
	s.netPath = ""
	if call.Err != nil {
		return fmt.Errorf("%w: RemoveNetwork: %v", ErrBackendUnavailable, call.Err)
	}
	return nil
}

// Close closes the underlying system bus connection.
func (s *DBusSupplicant) Close() error {
	return s.conn.Close()
}
