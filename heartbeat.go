package mq

import (
	"time"

	"github.com/turbomqtt/turbomqtt/internal/packets"
	"github.com/turbomqtt/turbomqtt/internal/telemetry"
)

// heartbeat implements the Heartbeat component (C7): emits PINGREQ after a
// quiet outbound period and signals failure if PINGRESP doesn't arrive
// within 1.5x the keep-alive interval.
type heartbeat struct {
	interval time.Duration // 0 disables
	queue    *outboundQueue
	rec      telemetry.Recorder

	pending  bool
	lastSent time.Time
	lastAck  time.Time
}

func newHeartbeat(keepAlive time.Duration, queue *outboundQueue, rec telemetry.Recorder) *heartbeat {
	return &heartbeat{interval: keepAlive, queue: queue, rec: rec}
}

// reset clears pending-ping state, called at the start of every connection.
func (h *heartbeat) reset(now time.Time) {
	h.pending = false
	h.lastSent = now
	h.lastAck = now
}

// onOutboundActivity records that some packet was just sent, deferring the
// next PINGREQ.
func (h *heartbeat) onOutboundActivity(now time.Time) {
	h.lastSent = now
}

// onPingresp clears the pending flag.
func (h *heartbeat) onPingresp(now time.Time) {
	h.pending = false
	h.lastAck = now
}

// tick runs off the supervisor's periodic timer. It returns ErrHeartbeatFailure
// if a PINGRESP is overdue by more than 1.5x the keep-alive interval.
func (h *heartbeat) tick(now time.Time) error {
	if h.interval <= 0 {
		return nil
	}

	if h.pending && now.Sub(h.lastSent) >= h.interval+h.interval/2 {
		h.rec.HeartbeatFailure()
		return ErrHeartbeatFailure
	}

	if !h.pending && now.Sub(h.lastSent) >= h.interval {
		h.queue.push(&packets.PingreqPacket{})
		h.lastSent = now
		h.pending = true
	}
	return nil
}
