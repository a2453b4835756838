// wcmd is the Wi-Fi connection manager daemon: it owns the single
// dispatcher goroutine mediating station, soft-AP, and power-save state
// against a firmware driver, and exposes a REST control plane plus
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/trace"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dvagner-nxp/wcmd/internal/config"
	wcmmetrics "github.com/dvagner-nxp/wcmd/internal/metrics"
	"github.com/dvagner-nxp/wcmd/internal/server"
	"github.com/dvagner-nxp/wcmd/internal/simdriver"
	"github.com/dvagner-nxp/wcmd/internal/supplicant"
	appversion "github.com/dvagner-nxp/wcmd/internal/version"
	"github.com/dvagner-nxp/wcmd/internal/wakelock"
	"github.com/dvagner-nxp/wcmd/internal/wcm"
)

// shutdownTimeout is the maximum time to wait for HTTP servers to drain
// active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// flightRecorderMinAge is the minimum window age for the flight recorder.
const flightRecorderMinAge = 500 * time.Millisecond

// flightRecorderMaxBytes is the upper bound on flight recorder window size.
const flightRecorderMaxBytes = 2 * 1024 * 1024 // 2 MiB

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("wcmd starting",
		slog.String("version", appversion.Version),
		slog.String("interface", cfg.WCM.Interface),
		slog.String("rest_addr", cfg.REST.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	fr := startFlightRecorder(logger)

	reg := prometheus.NewRegistry()
	collector := wcmmetrics.NewCollector(reg)

	supp := newSupplicant(cfg.Supplicant, cfg.WCM.Interface, logger)
	defer closeSupplicant(supp, logger)

	driver := simdriver.New(localHardwareAddr(cfg.WCM.Interface, logger), supp, logger)
	wake := wakelock.New()
	store := wcm.NewProfileStore(cfg.WCM.ProfileStoreCapacity, logger)

	disp := wcm.NewDispatcher(driver, wake, store, logger,
		wcm.WithMetrics(collector),
		wcm.WithQueueDepth(cfg.WCM.EventQueueDepth),
		wcm.WithRetryLimits(cfg.WCM.MaxScanRetries, cfg.WCM.MaxAssocRetries, cfg.WCM.MaxReassocRetries),
		wcm.WithAssocPause(cfg.WCM.AssocRetryPause),
	)
	driver.Bind(disp)

	if err := runServers(cfg, disp, reg, logger, *configPath, logLevel, fr); err != nil {
		logger.Error("wcmd exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("wcmd stopped")
	return 0
}

// runServers sets up and runs the REST and metrics HTTP servers using an
// errgroup with signal-aware context for graceful shutdown.
func runServers(
	cfg *config.Config,
	disp *wcm.Dispatcher,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
	fr *trace.FlightRecorder,
) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	restSrv := newRESTServer(cfg.REST, disp, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		disp.Run(gCtx)
		return nil
	})

	startHTTPServers(gCtx, g, cfg, restSrv, metricsSrv, logger)
	startDaemonGoroutines(gCtx, g, configPath, logLevel, disp, logger)

	reconcileProfiles(disp, cfg.Profiles, logger)

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, disp, logger, fr, restSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// startHTTPServers registers the REST and metrics HTTP server goroutines.
func startHTTPServers(
	ctx context.Context,
	g *errgroup.Group,
	cfg *config.Config,
	restSrv *http.Server,
	metricsSrv *http.Server,
	logger *slog.Logger,
) {
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("rest server listening", slog.String("addr", cfg.REST.Addr))
		return listenAndServe(ctx, &lc, restSrv, cfg.REST.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(ctx, &lc, metricsSrv, cfg.Metrics.Addr)
	})
}

// startDaemonGoroutines registers the watchdog and SIGHUP reload goroutines.
func startDaemonGoroutines(
	ctx context.Context,
	g *errgroup.Group,
	configPath string,
	logLevel *slog.LevelVar,
	disp *wcm.Dispatcher,
	logger *slog.Logger,
) {
	g.Go(func() error {
		return runWatchdog(ctx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(ctx, sigHUP, configPath, logLevel, disp, logger)
		return nil
	})
}

// -------------------------------------------------------------------------
// Systemd Integration — sd_notify + watchdog
// -------------------------------------------------------------------------

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// runWatchdog sends periodic watchdog keepalives to systemd, at half the
// configured watchdog interval. Exits immediately if no watchdog is
// configured.
func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload — log level + profile reconciliation
// -------------------------------------------------------------------------

// handleSIGHUP reloads configuration on each SIGHUP: the dynamic log
// level is updated in place and newly declared profiles are added to the
// store. Blocks until ctx is cancelled.
func handleSIGHUP(
	ctx context.Context,
	sigHUP <-chan os.Signal,
	configPath string,
	logLevel *slog.LevelVar,
	disp *wcm.Dispatcher,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			reloadConfig(configPath, logLevel, disp, logger)
		}
	}
}

// reloadConfig loads a fresh configuration from path, updates the dynamic
// log level, and reconciles declarative profiles. Errors are logged but
// do not stop the daemon -- the previous configuration remains in effect.
func reloadConfig(
	configPath string,
	logLevel *slog.LevelVar,
	disp *wcm.Dispatcher,
	logger *slog.Logger,
) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings",
			slog.String("error", err.Error()))
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)

	reconcileProfiles(disp, newCfg.Profiles, logger)
}

// reconcileProfiles adds each declarative profile to the store. A profile
// whose name is already present is left untouched -- reconciliation only
// ever adds, it never edits or removes a profile a prior reconciliation
// or a REST caller already created.
func reconcileProfiles(disp *wcm.Dispatcher, profiles []config.ProfileConfig, logger *slog.Logger) {
	if len(profiles) == 0 {
		logger.Debug("no declarative profiles in config, skipping reconciliation")
		return
	}

	for _, pc := range profiles {
		p, err := profileFromConfig(pc)
		if err != nil {
			logger.Error("invalid profile config, skipping",
				slog.String("name", pc.Name), slog.String("error", err.Error()))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = disp.AddProfile(ctx, p)
		cancel()

		switch {
		case err == nil:
			logger.Info("declarative profile added", slog.String("name", pc.Name))
		case errors.Is(err, wcm.ErrNameTaken):
			logger.Debug("declarative profile already present", slog.String("name", pc.Name))
		default:
			logger.Error("failed to add declarative profile",
				slog.String("name", pc.Name), slog.String("error", err.Error()))
		}
	}
}

// profileFromConfig converts a declarative ProfileConfig into a
// *wcm.Profile, reusing the REST API's security vocabulary
// (server.SecurityTypeFromString) so both entry points agree on the
// wire-level names a profile's security field accepts.
func profileFromConfig(pc config.ProfileConfig) (*wcm.Profile, error) {
	secType, err := server.SecurityTypeFromString(pc.Security)
	if err != nil {
		return nil, err
	}

	var bssid net.HardwareAddr
	if pc.BSSID != "" {
		bssid, err = net.ParseMAC(pc.BSSID)
		if err != nil {
			return nil, fmt.Errorf("parse bssid %q: %w", pc.BSSID, err)
		}
	}

	ip, err := ipConfigFromStatic(pc.StaticIP, pc.StaticGateway)
	if err != nil {
		return nil, err
	}

	return &wcm.Profile{
		Name:    pc.Name,
		Role:    wcm.RoleSTA,
		SSID:    []byte(pc.SSID),
		BSSID:   bssid,
		// ProfileConfig carries a single Passphrase field for both the
		// PSK (WPA/WPA2) and SAE-passphrase (WPA3) forms; Validate
		// checks whichever field its resolved Type actually requires.
		Security: wcm.SecurityDescriptor{
			Type:       secType,
			PSK:        pc.Passphrase,
			Passphrase: pc.Passphrase,
		},
		IP:            ip,
		SSIDSpecific:  pc.SSID != "",
		BSSIDSpecific: bssid != nil,
	}, nil
}

// ipConfigFromStatic converts a CIDR-form static address and a separate
// gateway string into a wcm.IPConfig. An empty cidr means DHCP.
func ipConfigFromStatic(cidr, gateway string) (wcm.IPConfig, error) {
	if cidr == "" {
		return wcm.IPConfig{Dynamic: true}, nil
	}

	addr, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return wcm.IPConfig{}, fmt.Errorf("parse static_ip %q: %w", cidr, err)
	}

	return wcm.IPConfig{
		Address: addr,
		Netmask: net.IP(ipnet.Mask),
		Gateway: net.ParseIP(gateway),
	}, nil
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

// gracefulShutdown stops the dispatcher and HTTP servers in order: the
// parent context is already cancelled, so disp.Run has already returned
// or is about to; Wait blocks for any armed reconnect timers to finish
// before the servers are shut down.
func gracefulShutdown(
	ctx context.Context,
	disp *wcm.Dispatcher,
	logger *slog.Logger,
	fr *trace.FlightRecorder,
	servers ...*http.Server,
) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	disp.Wait()

	if fr != nil {
		fr.Stop()
		logger.Debug("flight recorder stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Flight Recorder — runtime/trace
// -------------------------------------------------------------------------

// startFlightRecorder starts a rolling execution-trace window for
// post-mortem debugging of connect/scan/power-save pipeline failures.
func startFlightRecorder(logger *slog.Logger) *trace.FlightRecorder {
	fr := trace.NewFlightRecorder(trace.FlightRecorderConfig{
		MinAge:   flightRecorderMinAge,
		MaxBytes: flightRecorderMaxBytes,
	})

	if err := fr.Start(); err != nil {
		logger.Warn("failed to start flight recorder", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("flight recorder started",
		slog.Duration("min_age", flightRecorderMinAge),
		slog.Uint64("max_bytes", flightRecorderMaxBytes),
	)
	return fr
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newRESTServer(cfg config.RESTConfig, disp *wcm.Dispatcher, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(disp, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// -------------------------------------------------------------------------
// Supplicant Backend Selection
// -------------------------------------------------------------------------

// newSupplicant constructs the configured station security backend. A
// construction failure (no D-Bus session, no control socket reachable)
// is logged and treated as non-fatal: the driver falls back to
// acknowledging associations without a real supplicant behind them,
// which keeps wcmd usable in a development environment that has no
// wpa_supplicant running.
func newSupplicant(cfg config.SupplicantConfig, ifaceName string, logger *slog.Logger) supplicant.Supplicant {
	switch cfg.Backend {
	case "legacy":
		s, err := supplicant.NewLegacySupplicant(cfg.CtrlPath)
		if err != nil {
			logger.Warn("legacy supplicant backend unavailable, associations will not reach wpa_supplicant",
				slog.String("ctrl_path", cfg.CtrlPath), slog.String("error", err.Error()))
			return nil
		}
		return s
	default:
		s, err := supplicant.NewDBusSupplicant(ifaceName)
		if err != nil {
			logger.Warn("dbus supplicant backend unavailable, associations will not reach wpa_supplicant",
				slog.String("error", err.Error()))
			return nil
		}
		return s
	}
}

func closeSupplicant(s supplicant.Supplicant, logger *slog.Logger) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("failed to close supplicant backend", slog.String("error", err.Error()))
	}
}

// -------------------------------------------------------------------------
// Hardware Address
// -------------------------------------------------------------------------

// localHardwareAddr looks up the configured interface's MAC address. When
// the interface does not exist (a development host with no real wireless
// adapter), it falls back to a locally-administered synthetic address so
// the simulated driver still has something stable to report.
func localHardwareAddr(ifaceName string, logger *slog.Logger) net.HardwareAddr {
	iface, err := net.InterfaceByName(ifaceName)
	if err == nil && len(iface.HardwareAddr) == 6 {
		return iface.HardwareAddr
	}
	logger.Warn("interface not found, using synthetic hardware address",
		slog.String("interface", ifaceName))
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
}

// -------------------------------------------------------------------------
// Config Loading
// -------------------------------------------------------------------------

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
