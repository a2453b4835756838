package wcm

// MetricsReporter is the narrow seam the dispatcher reports through. It
// mirrors the shape of the teacher's BFD MetricsReporter contract
// (session gauges, counters keyed by transition) adapted to WCM's two
// state machines, so internal/metrics can implement it with Prometheus
// collectors without this package importing prometheus directly.
type MetricsReporter interface {
	RecordSTATransition(from, to string)
	RecordUAPTransition(from, to string)
	RecordPSTransition(mode string, from, to string)
	IncScanAttempt(userInitiated bool)
	IncConnectFailure(reason string)
	IncReassocAttempt()
	SetWakeLockHeld(held bool)
}

// noopMetrics discards every report; used when the dispatcher is built
// without a MetricsReporter (matching the teacher's nil-metrics default
// noted at session.go's WithMetrics: "If mr is nil ...").
type noopMetrics struct{}

func (noopMetrics) RecordSTATransition(string, string)     {}
func (noopMetrics) RecordUAPTransition(string, string)     {}
func (noopMetrics) RecordPSTransition(string, string, string) {}
func (noopMetrics) IncScanAttempt(bool)                    {}
func (noopMetrics) IncConnectFailure(string)               {}
func (noopMetrics) IncReassocAttempt()                     {}
func (noopMetrics) SetWakeLockHeld(bool)                   {}
