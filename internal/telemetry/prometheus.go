package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// prometheusRecorder mirrors the counter/gauge set the broker side of this
// ecosystem already exposes (packets and bytes in/out, connection state)
// plus client-specific reliability counters the engines need: reconnects,
// heartbeat failures, QoS retries, and dedup drops.
type prometheusRecorder struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	bytesSent       prometheus.Counter
	bytesReceived   prometheus.Counter
	reconnects      prometheus.Counter
	heartbeatFails  prometheus.Counter
	qos1Retries     prometheus.Counter
	qos2Retries     prometheus.Counter
	dedupDrops      prometheus.Counter
	connected       prometheus.Gauge
}

func newPrometheusRecorder(namespace string) *prometheusRecorder {
	if namespace == "" {
		namespace = "turbomqtt"
	}
	r := &prometheusRecorder{
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_sent_total", Help: "Packets written to the transport, by packet type.",
		}, []string{"type"}),
		packetsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "packets_received_total", Help: "Packets decoded from the transport, by packet type.",
		}, []string{"type"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_sent_total", Help: "Bytes written to the transport.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_received_total", Help: "Bytes read from the transport.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reconnects_total", Help: "Times the supervisor has entered the Reconnect branch.",
		}),
		heartbeatFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "heartbeat_failures_total", Help: "Times a PINGRESP was overdue.",
		}),
		qos1Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "qos1_retries_total", Help: "QoS1 PUBLISH retransmissions.",
		}),
		qos2Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "qos2_retries_total", Help: "QoS2 PUBLISH/PUBREL retransmissions.",
		}),
		dedupDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dedup_dropped_total", Help: "Inbound PUBLISH packets dropped as duplicates.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connected", Help: "1 if the client is currently connected, 0 otherwise.",
		}),
	}

	// MustRegister panics on duplicate registration, which would otherwise
	// happen if a process dials more than one client against the default
	// registry; each collector carries the namespace so a second Dial with
	// a distinct namespace still registers cleanly.
	prometheus.MustRegister(
		r.packetsSent, r.packetsReceived, r.bytesSent, r.bytesReceived,
		r.reconnects, r.heartbeatFails, r.qos1Retries, r.qos2Retries,
		r.dedupDrops, r.connected,
	)
	return r
}

func (r *prometheusRecorder) PacketSent(kind string) { r.packetsSent.WithLabelValues(kind).Inc() }
func (r *prometheusRecorder) PacketReceived(kind string) {
	r.packetsReceived.WithLabelValues(kind).Inc()
}
func (r *prometheusRecorder) BytesSent(n int)     { r.bytesSent.Add(float64(n)) }
func (r *prometheusRecorder) BytesReceived(n int) { r.bytesReceived.Add(float64(n)) }
func (r *prometheusRecorder) Reconnect()          { r.reconnects.Inc() }
func (r *prometheusRecorder) HeartbeatFailure()   { r.heartbeatFails.Inc() }
func (r *prometheusRecorder) Qos1Retry()          { r.qos1Retries.Inc() }
func (r *prometheusRecorder) Qos2Retry()          { r.qos2Retries.Inc() }
func (r *prometheusRecorder) DedupDropped()       { r.dedupDrops.Inc() }

func (r *prometheusRecorder) ConnectionState(connected bool) {
	if connected {
		r.connected.Set(1)
		return
	}
	r.connected.Set(0)
}
