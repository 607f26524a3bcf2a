// Package telemetry is the client's metrics sink. The supervisor calls
// Recorder unconditionally; EnableTelemetry only chooses which
// implementation Dial wires in (see NewRecorder).
package telemetry

// Recorder receives client-lifecycle events. Every method must be safe to
// call from the core goroutine without blocking.
type Recorder interface {
	PacketSent(kind string)
	PacketReceived(kind string)
	BytesSent(n int)
	BytesReceived(n int)
	Reconnect()
	HeartbeatFailure()
	Qos1Retry()
	Qos2Retry()
	DedupDropped()
	ConnectionState(connected bool)
}

// NewRecorder returns a Prometheus-backed Recorder when enabled is true, a
// Noop otherwise. namespace prefixes every registered metric name; pass ""
// to use the package default.
func NewRecorder(enabled bool, namespace string) Recorder {
	if !enabled {
		return Noop{}
	}
	return newPrometheusRecorder(namespace)
}

// Noop discards every event. It is the default when EnableTelemetry is
// false, or as a safe placeholder in tests that don't care about metrics.
type Noop struct{}

func (Noop) PacketSent(string)     {}
func (Noop) PacketReceived(string) {}
func (Noop) BytesSent(int)         {}
func (Noop) BytesReceived(int)     {}
func (Noop) Reconnect()            {}
func (Noop) HeartbeatFailure()     {}
func (Noop) Qos1Retry()            {}
func (Noop) Qos2Retry()            {}
func (Noop) DedupDropped()         {}
func (Noop) ConnectionState(bool)  {}
