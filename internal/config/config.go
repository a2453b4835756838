// Package config manages wcmd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete wcmd configuration.
type Config struct {
	REST       RESTConfig       `koanf:"rest"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Log        LogConfig        `koanf:"log"`
	WCM        WCMConfig        `koanf:"wcm"`
	Supplicant SupplicantConfig `koanf:"supplicant"`
	Profiles   []ProfileConfig  `koanf:"profiles"`
}

// RESTConfig holds the control-plane REST server configuration.
type RESTConfig struct {
	// Addr is the HTTP listen address (e.g., ":8080").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// WCMConfig holds the connection-manager dispatcher's tunables.
type WCMConfig struct {
	// Interface is the wireless network device the dispatcher drives
	// (e.g. "wlan0").
	Interface string `koanf:"interface"`

	// EventQueueDepth bounds the driver-sourced event channel; events
	// posted past this depth are dropped and logged rather than
	// blocking the firmware callback path.
	EventQueueDepth int `koanf:"event_queue_depth"`

	// MaxScanRetries bounds consecutive empty/no-match scan attempts
	// before a connect request fails with "network not found".
	MaxScanRetries int `koanf:"max_scan_retries"`

	// MaxAssocRetries bounds association failures within one connect
	// attempt: each failure below the limit triggers a rescan, and
	// reaching it fails the attempt.
	MaxAssocRetries int `koanf:"max_assoc_retries"`

	// MaxReassocRetries bounds reassociation attempts after an
	// authentication failure; reaching it fails the connect attempt.
	MaxReassocRetries int `koanf:"max_reassoc_retries"`

	// AssocRetryPause is the delay before retrying association after a
	// MIC-failure countermeasure pause (IEEE 802.11i TKIP countermeasures).
	AssocRetryPause time.Duration `koanf:"assoc_retry_pause"`

	// ProfileStoreCapacity bounds the number of network profiles held
	// in memory at once.
	ProfileStoreCapacity int `koanf:"profile_store_capacity"`

	// DeepSleepDefault is loaded from the file but not read by wcmd;
	// Deep-Sleep-PS is enabled only through the REST API.
	DeepSleepDefault bool `koanf:"deep_sleep_default"`
}

// SupplicantConfig selects and configures the station security backend.
type SupplicantConfig struct {
	// Backend selects the supplicant transport: "dbus" or "legacy".
	Backend string `koanf:"backend"`

	// CtrlPath is the wpa_supplicant control-socket path, used only by
	// the "legacy" backend (e.g. "/var/run/wpa_supplicant/wlan0").
	CtrlPath string `koanf:"ctrl_path"`
}

// ProfileConfig describes a declarative network profile from the
// configuration file. Each entry is loaded into the profile store on
// daemon startup, analogous to a declarative session in the teacher's
// configuration.
type ProfileConfig struct {
	// Name identifies the profile for Connect/RemoveProfile calls.
	Name string `koanf:"name"`

	// SSID is the network name.
	SSID string `koanf:"ssid"`

	// BSSID optionally pins the profile to a single access point MAC
	// address (hex colon-separated, e.g. "aa:bb:cc:dd:ee:ff").
	BSSID string `koanf:"bssid"`

	// Security names the security type, using the same vocabulary as the
	// REST API's profile-add request: "none", "wep", "wpa",
	// "wpa-wpa2-mixed", "wpa2", "wpa3-sae", "wpa2-wpa3-mixed", "owe", or
	// "wildcard". See server.SecurityTypeFromString.
	Security string `koanf:"security"`

	// Passphrase is the PSK/SAE passphrase (ignored for "none" profiles).
	Passphrase string `koanf:"passphrase"`

	// Priority is loaded from the file but not passed to the profile
	// store; it has no effect on scan matching or connection.
	Priority int `koanf:"priority"`

	// StaticIP, when set, configures a fixed address instead of DHCP
	// (CIDR form, e.g. "192.168.1.50/24").
	StaticIP string `koanf:"static_ip"`

	// StaticGateway is the default gateway for a static-IP profile.
	StaticGateway string `koanf:"static_gateway"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		REST: RESTConfig{
			Addr: ":8080",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		WCM: WCMConfig{
			Interface:            "wlan0",
			EventQueueDepth:      64,
			MaxScanRetries:       5,
			MaxAssocRetries:      3,
			MaxReassocRetries:    5,
			AssocRetryPause:      60 * time.Second,
			ProfileStoreCapacity: 16,
			DeepSleepDefault:     false,
		},
		Supplicant: SupplicantConfig{
			Backend: "dbus",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for wcmd configuration.
// Variables are named WCMD_<section>_<key>, e.g., WCMD_WCM_INTERFACE.
// Every underscore maps to a dot, so keys that themselves contain an
// underscore (e.g. wcm.event_queue_depth) cannot be set this way.
const envPrefix = "WCMD_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (WCMD_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	WCMD_REST_ADDR         -> rest.addr
//	WCMD_METRICS_ADDR      -> metrics.addr
//	WCMD_METRICS_PATH      -> metrics.path
//	WCMD_LOG_LEVEL         -> log.level
//	WCMD_LOG_FORMAT        -> log.format
//	WCMD_WCM_INTERFACE     -> wcm.interface
//	WCMD_SUPPLICANT_BACKEND -> supplicant.backend
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms WCMD_WCM_INTERFACE -> wcm.interface.
// Strips the WCMD_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"rest.addr":                  defaults.REST.Addr,
		"metrics.addr":               defaults.Metrics.Addr,
		"metrics.path":               defaults.Metrics.Path,
		"log.level":                  defaults.Log.Level,
		"log.format":                 defaults.Log.Format,
		"wcm.interface":              defaults.WCM.Interface,
		"wcm.event_queue_depth":      defaults.WCM.EventQueueDepth,
		"wcm.max_scan_retries":       defaults.WCM.MaxScanRetries,
		"wcm.max_assoc_retries":      defaults.WCM.MaxAssocRetries,
		"wcm.max_reassoc_retries":    defaults.WCM.MaxReassocRetries,
		"wcm.assoc_retry_pause":      defaults.WCM.AssocRetryPause.String(),
		"wcm.profile_store_capacity": defaults.WCM.ProfileStoreCapacity,
		"wcm.deep_sleep_default":     defaults.WCM.DeepSleepDefault,
		"supplicant.backend":         defaults.Supplicant.Backend,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyRESTAddr indicates the REST listen address is empty.
	ErrEmptyRESTAddr = errors.New("rest.addr must not be empty")

	// ErrEmptyInterface indicates the wireless device name is empty.
	ErrEmptyInterface = errors.New("wcm.interface must not be empty")

	// ErrInvalidQueueDepth indicates the event queue depth is non-positive.
	ErrInvalidQueueDepth = errors.New("wcm.event_queue_depth must be > 0")

	// ErrInvalidSupplicantBackend indicates an unrecognized supplicant backend.
	ErrInvalidSupplicantBackend = errors.New("supplicant.backend must be dbus or legacy")

	// ErrLegacyBackendNeedsCtrlPath indicates the legacy backend was
	// selected without a control-socket path.
	ErrLegacyBackendNeedsCtrlPath = errors.New("supplicant.ctrl_path required for legacy backend")

	// ErrEmptyProfileName indicates a declarative profile has no name.
	ErrEmptyProfileName = errors.New("profile name must not be empty")

	// ErrEmptyProfileSSID indicates a declarative profile has no SSID.
	ErrEmptyProfileSSID = errors.New("profile ssid must not be empty")

	// ErrDuplicateProfileName indicates two profiles share the same name.
	ErrDuplicateProfileName = errors.New("duplicate profile name")
)

// ValidSupplicantBackends lists the recognized supplicant backend strings.
var ValidSupplicantBackends = map[string]bool{
	"dbus":   true,
	"legacy": true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.REST.Addr == "" {
		return ErrEmptyRESTAddr
	}

	if cfg.WCM.Interface == "" {
		return ErrEmptyInterface
	}

	if cfg.WCM.EventQueueDepth <= 0 {
		return ErrInvalidQueueDepth
	}

	if !ValidSupplicantBackends[cfg.Supplicant.Backend] {
		return fmt.Errorf("supplicant.backend %q: %w", cfg.Supplicant.Backend, ErrInvalidSupplicantBackend)
	}

	if cfg.Supplicant.Backend == "legacy" && cfg.Supplicant.CtrlPath == "" {
		return ErrLegacyBackendNeedsCtrlPath
	}

	if err := validateProfiles(cfg.Profiles); err != nil {
		return err
	}

	return nil
}

// validateProfiles checks each declarative profile entry for correctness.
func validateProfiles(profiles []ProfileConfig) error {
	seen := make(map[string]struct{}, len(profiles))

	for i, pc := range profiles {
		if pc.Name == "" {
			return fmt.Errorf("profiles[%d]: %w", i, ErrEmptyProfileName)
		}
		if pc.SSID == "" {
			return fmt.Errorf("profiles[%d] %q: %w", i, pc.Name, ErrEmptyProfileSSID)
		}
		if _, dup := seen[pc.Name]; dup {
			return fmt.Errorf("profiles[%d] name %q: %w", i, pc.Name, ErrDuplicateProfileName)
		}
		seen[pc.Name] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
