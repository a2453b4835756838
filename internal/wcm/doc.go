// Package wcm implements the Wi-Fi Connection Manager core: a single
// cooperative event dispatcher driving a station (STA) state machine, a
// soft-AP (uAP) state machine, and two power-save state machines (IEEE PS
// and Deep-Sleep PS), backed by a network-profile store and a scan
// arbiter.
//
// All mutable state lives on the Dispatcher goroutine. Callers never read
// or write FSM state directly; they enqueue events and receive results
// through the StationEventCallback.
package wcm
