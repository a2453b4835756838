// Package wcmmetrics implements wcm.MetricsReporter with Prometheus
// instrumentation for the connection manager's STA/uAP/power-save
// transitions, scan attempts, connect failures, and wake-lock state.
package wcmmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dvagner-nxp/wcmd/internal/wcm"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "wcmd"
	subsystem = "wcm"
)

// Label names for WCM metrics.
const (
	labelFromState = "from_state"
	labelToState   = "to_state"
	labelMode      = "mode"
	labelReason    = "reason"
)

// -------------------------------------------------------------------------
// Collector — Prometheus WCM Metrics
// -------------------------------------------------------------------------

// Collector holds all connection-manager Prometheus metrics and implements
// wcm.MetricsReporter.
//
// Metrics are designed for embedded/edge fleet monitoring:
//   - Transition counters record FSM changes for alerting on flapping links.
//   - Scan/connect/reassociation counters track connectivity health.
//   - WakeLockHeld gauges whether the platform is currently suspend-blocked.
type Collector struct {
	// STATransitions counts station FSM state transitions.
	STATransitions *prometheus.CounterVec

	// UAPTransitions counts soft-AP FSM state transitions.
	UAPTransitions *prometheus.CounterVec

	// PSTransitions counts power-save FSM state transitions, labeled by mode
	// (ieee or deep_sleep).
	PSTransitions *prometheus.CounterVec

	// ScanAttempts counts scan attempts, labeled by whether the scan was
	// user-initiated or driven by the connect pipeline.
	ScanAttempts *prometheus.CounterVec

	// ConnectFailures counts connection attempts that ended in failure,
	// labeled by reason: "not_found" when no BSS matched, "auth" for a
	// network-auth failure, and otherwise the text of the last association
	// or authentication error (empty when none was reported). Address
	// failures are not counted.
	ConnectFailures *prometheus.CounterVec

	// ReassocAttempts counts reassociation attempts scheduled after an
	// authentication failure.
	ReassocAttempts prometheus.Counter

	// WakeLockHeld reports whether the dispatcher currently holds the
	// suspend-blocking wake lock (1) or not (0).
	WakeLockHeld prometheus.Gauge
}

// NewCollector creates a Collector with all WCM metrics registered against
// the provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.STATransitions,
		c.UAPTransitions,
		c.PSTransitions,
		c.ScanAttempts,
		c.ConnectFailures,
		c.ReassocAttempts,
		c.WakeLockHeld,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	transitionLabels := []string{labelFromState, labelToState}
	psTransitionLabels := []string{labelMode, labelFromState, labelToState}

	return &Collector{
		STATransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sta_transitions_total",
			Help:      "Total station FSM state transitions.",
		}, transitionLabels),

		UAPTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "uap_transitions_total",
			Help:      "Total soft-AP FSM state transitions.",
		}, transitionLabels),

		PSTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "ps_transitions_total",
			Help:      "Total power-save FSM state transitions.",
		}, psTransitionLabels),

		ScanAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scan_attempts_total",
			Help:      "Total scan attempts, labeled by initiator.",
		}, []string{"initiator"}),

		ConnectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connect_failures_total",
			Help:      "Total failed connection attempts, labeled by reason.",
		}, []string{labelReason}),

		ReassocAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reassoc_attempts_total",
			Help:      "Total reassociation attempts scheduled after an authentication failure.",
		}),

		WakeLockHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "wake_lock_held",
			Help:      "Whether the dispatcher currently holds the suspend-blocking wake lock.",
		}),
	}
}

// -------------------------------------------------------------------------
// wcm.MetricsReporter implementation
// -------------------------------------------------------------------------

// RecordSTATransition increments the station transition counter with the
// old and new state labels.
func (c *Collector) RecordSTATransition(from, to string) {
	c.STATransitions.WithLabelValues(from, to).Inc()
}

// RecordUAPTransition increments the soft-AP transition counter with the
// old and new state labels.
func (c *Collector) RecordUAPTransition(from, to string) {
	c.UAPTransitions.WithLabelValues(from, to).Inc()
}

// RecordPSTransition increments the power-save transition counter with the
// mode and old/new state labels.
func (c *Collector) RecordPSTransition(mode, from, to string) {
	c.PSTransitions.WithLabelValues(mode, from, to).Inc()
}

// IncScanAttempt increments the scan attempts counter, labeled by whether
// the scan was user-initiated.
func (c *Collector) IncScanAttempt(userInitiated bool) {
	initiator := "auto"
	if userInitiated {
		initiator = "user"
	}
	c.ScanAttempts.WithLabelValues(initiator).Inc()
}

// IncConnectFailure increments the connect failures counter for the given
// reason.
func (c *Collector) IncConnectFailure(reason string) {
	c.ConnectFailures.WithLabelValues(reason).Inc()
}

// IncReassocAttempt increments the reassociation attempts counter.
func (c *Collector) IncReassocAttempt() {
	c.ReassocAttempts.Inc()
}

// SetWakeLockHeld sets the wake-lock-held gauge to 1 or 0.
func (c *Collector) SetWakeLockHeld(held bool) {
	if held {
		c.WakeLockHeld.Set(1)
	} else {
		c.WakeLockHeld.Set(0)
	}
}

var _ wcm.MetricsReporter = (*Collector)(nil)
