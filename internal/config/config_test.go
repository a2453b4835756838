package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvagner-nxp/wcmd/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()

	if cfg.REST.Addr != ":8080" {
		t.Errorf("REST.Addr = %q, want %q", cfg.REST.Addr, ":8080")
	}

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}

	if cfg.WCM.Interface != "wlan0" {
		t.Errorf("WCM.Interface = %q, want %q", cfg.WCM.Interface, "wlan0")
	}

	if cfg.WCM.EventQueueDepth != 64 {
		t.Errorf("WCM.EventQueueDepth = %d, want %d", cfg.WCM.EventQueueDepth, 64)
	}

	if cfg.WCM.AssocRetryPause != 60*time.Second {
		t.Errorf("WCM.AssocRetryPause = %v, want %v", cfg.WCM.AssocRetryPause, 60*time.Second)
	}

	if cfg.Supplicant.Backend != "dbus" {
		t.Errorf("Supplicant.Backend = %q, want %q", cfg.Supplicant.Backend, "dbus")
	}

	// Defaults must pass validation.
	if err := config.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
rest:
  addr: ":9090"
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
wcm:
  interface: "wlan1"
  event_queue_depth: 128
  max_scan_retries: 7
  assoc_retry_pause: "30s"
supplicant:
  backend: "legacy"
  ctrl_path: "/var/run/wpa_supplicant/wlan1"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.REST.Addr != ":9090" {
		t.Errorf("REST.Addr = %q, want %q", cfg.REST.Addr, ":9090")
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}

	if cfg.WCM.Interface != "wlan1" {
		t.Errorf("WCM.Interface = %q, want %q", cfg.WCM.Interface, "wlan1")
	}

	if cfg.WCM.EventQueueDepth != 128 {
		t.Errorf("WCM.EventQueueDepth = %d, want %d", cfg.WCM.EventQueueDepth, 128)
	}

	if cfg.WCM.MaxScanRetries != 7 {
		t.Errorf("WCM.MaxScanRetries = %d, want %d", cfg.WCM.MaxScanRetries, 7)
	}

	if cfg.WCM.AssocRetryPause != 30*time.Second {
		t.Errorf("WCM.AssocRetryPause = %v, want %v", cfg.WCM.AssocRetryPause, 30*time.Second)
	}

	if cfg.Supplicant.Backend != "legacy" {
		t.Errorf("Supplicant.Backend = %q, want %q", cfg.Supplicant.Backend, "legacy")
	}

	if cfg.Supplicant.CtrlPath != "/var/run/wpa_supplicant/wlan1" {
		t.Errorf("Supplicant.CtrlPath = %q, want %q", cfg.Supplicant.CtrlPath, "/var/run/wpa_supplicant/wlan1")
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	// Partial YAML: only override rest.addr and log.level.
	// Everything else should inherit from defaults.
	yamlContent := `
rest:
  addr: ":55555"
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.REST.Addr != ":55555" {
		t.Errorf("REST.Addr = %q, want %q", cfg.REST.Addr, ":55555")
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}

	// Default values should be preserved.
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}

	if cfg.WCM.Interface != "wlan0" {
		t.Errorf("WCM.Interface = %q, want default %q", cfg.WCM.Interface, "wlan0")
	}

	if cfg.WCM.MaxScanRetries != 5 {
		t.Errorf("WCM.MaxScanRetries = %d, want default %d", cfg.WCM.MaxScanRetries, 5)
	}

	if cfg.Supplicant.Backend != "dbus" {
		t.Errorf("Supplicant.Backend = %q, want default %q", cfg.Supplicant.Backend, "dbus")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty rest addr",
			modify: func(cfg *config.Config) {
				cfg.REST.Addr = ""
			},
			wantErr: config.ErrEmptyRESTAddr,
		},
		{
			name: "empty interface",
			modify: func(cfg *config.Config) {
				cfg.WCM.Interface = ""
			},
			wantErr: config.ErrEmptyInterface,
		},
		{
			name: "zero queue depth",
			modify: func(cfg *config.Config) {
				cfg.WCM.EventQueueDepth = 0
			},
			wantErr: config.ErrInvalidQueueDepth,
		},
		{
			name: "negative queue depth",
			modify: func(cfg *config.Config) {
				cfg.WCM.EventQueueDepth = -1
			},
			wantErr: config.ErrInvalidQueueDepth,
		},
		{
			name: "unknown supplicant backend",
			modify: func(cfg *config.Config) {
				cfg.Supplicant.Backend = "bogus"
			},
			wantErr: config.ErrInvalidSupplicantBackend,
		},
		{
			name: "legacy backend missing ctrl path",
			modify: func(cfg *config.Config) {
				cfg.Supplicant.Backend = "legacy"
				cfg.Supplicant.CtrlPath = ""
			},
			wantErr: config.ErrLegacyBackendNeedsCtrlPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "Error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "trace", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := config.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

// -------------------------------------------------------------------------
// Declarative profile tests
// -------------------------------------------------------------------------

func TestLoadWithProfiles(t *testing.T) {
	t.Parallel()

	yamlContent := `
rest:
  addr: ":8080"
profiles:
  - name: "home"
    ssid: "MyHomeNetwork"
    security: "wpa2-psk"
    passphrase: "correcthorsebatterystaple"
    priority: 10
  - name: "office"
    ssid: "CorpNet"
    security: "wpa3-sae"
    passphrase: "anotherpassphrase"
    priority: 5
    static_ip: "192.168.1.50/24"
    static_gateway: "192.168.1.1"
`

	path := writeTemp(t, yamlContent)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if len(cfg.Profiles) != 2 {
		t.Fatalf("Profiles count = %d, want 2", len(cfg.Profiles))
	}

	p1 := cfg.Profiles[0]
	if p1.Name != "home" {
		t.Errorf("Profiles[0].Name = %q, want %q", p1.Name, "home")
	}
	if p1.SSID != "MyHomeNetwork" {
		t.Errorf("Profiles[0].SSID = %q, want %q", p1.SSID, "MyHomeNetwork")
	}
	if p1.Priority != 10 {
		t.Errorf("Profiles[0].Priority = %d, want %d", p1.Priority, 10)
	}

	p2 := cfg.Profiles[1]
	if p2.Security != "wpa3-sae" {
		t.Errorf("Profiles[1].Security = %q, want %q", p2.Security, "wpa3-sae")
	}
	if p2.StaticIP != "192.168.1.50/24" {
		t.Errorf("Profiles[1].StaticIP = %q, want %q", p2.StaticIP, "192.168.1.50/24")
	}
}

func TestValidateProfileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr error
	}{
		{
			name: "empty profile name",
			modify: func(cfg *config.Config) {
				cfg.Profiles = []config.ProfileConfig{
					{Name: "", SSID: "net"},
				}
			},
			wantErr: config.ErrEmptyProfileName,
		},
		{
			name: "empty profile ssid",
			modify: func(cfg *config.Config) {
				cfg.Profiles = []config.ProfileConfig{
					{Name: "home", SSID: ""},
				}
			},
			wantErr: config.ErrEmptyProfileSSID,
		},
		{
			name: "duplicate profile names",
			modify: func(cfg *config.Config) {
				cfg.Profiles = []config.ProfileConfig{
					{Name: "home", SSID: "net1"},
					{Name: "home", SSID: "net2"},
				}
			},
			wantErr: config.ErrDuplicateProfileName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// -------------------------------------------------------------------------
// Environment variable override tests
// -------------------------------------------------------------------------

func TestLoadEnvOverrides(t *testing.T) {
	// Environment variable tests cannot be parallel because they modify
	// process-wide state (os.Setenv).

	yamlContent := `
rest:
  addr: ":8080"
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("WCMD_REST_ADDR", ":60000")
	t.Setenv("WCMD_LOG_LEVEL", "debug")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.REST.Addr != ":60000" {
		t.Errorf("REST.Addr = %q, want %q (from env)", cfg.REST.Addr, ":60000")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
}

func TestLoadEnvOverridesWCMInterface(t *testing.T) {
	yamlContent := `
rest:
  addr: ":8080"
wcm:
  interface: "wlan0"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("WCMD_WCM_INTERFACE", "wlan2")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.WCM.Interface != "wlan2" {
		t.Errorf("WCM.Interface = %q, want %q (from env)", cfg.WCM.Interface, "wlan2")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "wcmd.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
