package wcmmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	wcmmetrics "github.com/dvagner-nxp/wcmd/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	if c.STATransitions == nil {
		t.Error("STATransitions is nil")
	}
	if c.UAPTransitions == nil {
		t.Error("UAPTransitions is nil")
	}
	if c.PSTransitions == nil {
		t.Error("PSTransitions is nil")
	}
	if c.ScanAttempts == nil {
		t.Error("ScanAttempts is nil")
	}
	if c.ConnectFailures == nil {
		t.Error("ConnectFailures is nil")
	}
	if c.ReassocAttempts == nil {
		t.Error("ReassocAttempts is nil")
	}
	if c.WakeLockHeld == nil {
		t.Error("WakeLockHeld is nil")
	}

	// Verify all metrics are registered by gathering them.
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	_ = families
}

func TestSTATransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.RecordSTATransition("idle", "scanning")
	c.RecordSTATransition("idle", "scanning")
	c.RecordSTATransition("scanning", "associating")

	if got := counterValue(t, c.STATransitions, "idle", "scanning"); got != 2 {
		t.Errorf("STATransitions(idle->scanning) = %v, want 2", got)
	}
	if got := counterValue(t, c.STATransitions, "scanning", "associating"); got != 1 {
		t.Errorf("STATransitions(scanning->associating) = %v, want 1", got)
	}
}

func TestUAPTransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.RecordUAPTransition("disabled", "starting")

	if got := counterValue(t, c.UAPTransitions, "disabled", "starting"); got != 1 {
		t.Errorf("UAPTransitions(disabled->starting) = %v, want 1", got)
	}
}

func TestPSTransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.RecordPSTransition("ieee", "awake", "pre_sleep")
	c.RecordPSTransition("deep_sleep", "awake", "pre_sleep")

	if got := counterValue(t, c.PSTransitions, "ieee", "awake", "pre_sleep"); got != 1 {
		t.Errorf("PSTransitions(ieee, awake->pre_sleep) = %v, want 1", got)
	}
	if got := counterValue(t, c.PSTransitions, "deep_sleep", "awake", "pre_sleep"); got != 1 {
		t.Errorf("PSTransitions(deep_sleep, awake->pre_sleep) = %v, want 1", got)
	}
}

func TestScanAttempts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.IncScanAttempt(true)
	c.IncScanAttempt(false)
	c.IncScanAttempt(false)

	if got := counterValue(t, c.ScanAttempts, "user"); got != 1 {
		t.Errorf("ScanAttempts(user) = %v, want 1", got)
	}
	if got := counterValue(t, c.ScanAttempts, "auto"); got != 2 {
		t.Errorf("ScanAttempts(auto) = %v, want 2", got)
	}
}

func TestConnectFailures(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.IncConnectFailure("not_found")
	c.IncConnectFailure("not_found")
	c.IncConnectFailure("auth")

	if got := counterValue(t, c.ConnectFailures, "not_found"); got != 2 {
		t.Errorf("ConnectFailures(not_found) = %v, want 2", got)
	}
	if got := counterValue(t, c.ConnectFailures, "auth"); got != 1 {
		t.Errorf("ConnectFailures(auth) = %v, want 1", got)
	}
}

func TestReassocAttempts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.IncReassocAttempt()
	c.IncReassocAttempt()

	m := &dto.Metric{}
	if err := c.ReassocAttempts.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 2 {
		t.Errorf("ReassocAttempts = %v, want 2", got)
	}
}

func TestWakeLockHeld(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := wcmmetrics.NewCollector(reg)

	c.SetWakeLockHeld(true)

	m := &dto.Metric{}
	if err := c.WakeLockHeld.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 1 {
		t.Errorf("WakeLockHeld = %v, want 1", got)
	}

	c.SetWakeLockHeld(false)
	m = &dto.Metric{}
	if err := c.WakeLockHeld.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 0 {
		t.Errorf("WakeLockHeld = %v, want 0", got)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
