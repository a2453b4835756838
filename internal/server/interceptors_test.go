package server_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dvagner-nxp/wcmd/internal/server"
	"github.com/dvagner-nxp/wcmd/internal/wcm"
)

// fakeDriver implements wcm.Driver with no-op, always-successful methods.
// StartScan posts an empty scan result back to the bound Dispatcher on a
// separate goroutine, the way a real firmware callback completes a scan
// asynchronously. It is shared between server_test.go and
// interceptors_test.go.
type fakeDriver struct {
	mu   sync.Mutex
	disp *wcm.Dispatcher
}

func (f *fakeDriver) bind(d *wcm.Dispatcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disp = d
}

func (f *fakeDriver) StartScan(context.Context, []byte, []int) error {
	f.mu.Lock()
	d := f.disp
	f.mu.Unlock()
	if d != nil {
		go func() { _ = d.Post(wcm.Event{Kind: wcm.EventScanResult}) }()
	}
	return nil
}

func (*fakeDriver) Associate(context.Context, wcm.BSSDescriptor) error              { return nil }
func (*fakeDriver) ConfigureSecurity(context.Context, wcm.SecurityDescriptor) error { return nil }
func (*fakeDriver) Deauthenticate(context.Context) error                           { return nil }
func (*fakeDriver) ConfigureStaticAddr(context.Context, wcm.IPConfig) error         { return nil }
func (*fakeDriver) RequestDHCP(context.Context) error                              { return nil }
func (*fakeDriver) StartUAP(context.Context, *wcm.Profile, []int) error             { return nil }
func (*fakeDriver) StopUAP(context.Context) error                                  { return nil }
func (*fakeDriver) QueryAllowedChannels(context.Context) ([]int, error)            { return []int{1, 6, 11}, nil }
func (*fakeDriver) EnterIEEEPS(context.Context, uint32) error                      { return nil }
func (*fakeDriver) ExitIEEEPS(context.Context) error                              { return nil }
func (*fakeDriver) EnterDeepSleep(context.Context) error                          { return nil }
func (*fakeDriver) ExitDeepSleep(context.Context) error                           { return nil }
func (*fakeDriver) SendHostSleepConfig(context.Context, wcm.HostSleepConfig) error { return nil }
func (*fakeDriver) SendSleepConfirm(context.Context) error                        { return nil }
func (*fakeDriver) BringDown(context.Context) error                               { return nil }
func (*fakeDriver) LocalHardwareAddr() net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
}

// fakeWakeLock implements wcm.WakeLock with an in-memory held flag.
type fakeWakeLock struct{ held bool }

func (f *fakeWakeLock) Acquire()   { f.held = true }
func (f *fakeWakeLock) Release()   { f.held = false }
func (f *fakeWakeLock) Held() bool { return f.held }

// binder is implemented by driver fakes that need a back-reference to the
// Dispatcher to simulate asynchronous firmware completion events.
type binder interface {
	bind(*wcm.Dispatcher)
}

func setupTestServer(t *testing.T, driver wcm.Driver) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := wcm.NewProfileStore(16, logger)
	d := wcm.NewDispatcher(driver, &fakeWakeLock{}, store, logger)
	if b, ok := driver.(binder); ok {
		b.bind(d)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(cancel)

	router := server.New(d, logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoggingMiddlewareSuccess(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Get(srv.URL + "/v1/sta/status")
	if err != nil {
		t.Fatalf("GET /v1/sta/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestLoggingMiddlewareError(t *testing.T) {
	t.Parallel()

	srv := setupTestServer(t, &fakeDriver{})

	resp, err := http.Post(srv.URL+"/v1/profiles/nonexistent", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	// No route registered for POST on /v1/profiles/{name}; mux returns 405.
	if resp.StatusCode < 400 {
		t.Errorf("status = %d, want >= 400", resp.StatusCode)
	}
}

func TestRecoveryMiddlewarePanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	panicHandler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("intentional test panic")
	})
	wrapped := server.RecoveryMiddleware(logger)(panicHandler)

	srv := httptest.NewServer(wrapped)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}
