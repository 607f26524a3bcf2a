package mq

import (
	"log/slog"
	"time"

	"github.com/turbomqtt/turbomqtt/internal/packets"
	"github.com/turbomqtt/turbomqtt/internal/telemetry"
)

// pendingQos1 tracks one outstanding QoS1 PUBLISH awaiting PUBACK.
type pendingQos1 struct {
	packet           *packets.PublishPacket
	deadline         time.Time
	complete         func(error)
	retriesRemaining int
}

// qos1Engine implements the QoS1 Engine (C4). It holds no reference to the
// transport; retransmissions go through the shared outbound queue.
type qos1Engine struct {
	pending  map[uint16]*pendingQos1
	queue    *outboundQueue
	interval time.Duration
	retries  int
	logger   *slog.Logger
	rec      telemetry.Recorder
}

func newQos1Engine(pending map[uint16]*pendingQos1, queue *outboundQueue, interval time.Duration, retries int, logger *slog.Logger, rec telemetry.Recorder) *qos1Engine {
	return &qos1Engine{pending: pending, queue: queue, interval: interval, retries: retries, logger: logger, rec: rec}
}

// publish registers a new in-flight QoS1 publish and enqueues it. Returns
// ErrDuplicatePacketId if the id is already tracked.
func (e *qos1Engine) publish(pkt *packets.PublishPacket, complete func(error)) error {
	if _, exists := e.pending[pkt.PacketID]; exists {
		return ErrDuplicatePacketId
	}
	e.pending[pkt.PacketID] = &pendingQos1{
		packet:           pkt,
		deadline:         time.Now().Add(e.interval),
		complete:         complete,
		retriesRemaining: e.retries,
	}
	e.queue.push(pkt)
	return nil
}

// onPuback completes and removes the matching entry. A PUBACK for an
// unknown id is a stale ack and is logged, not an error.
func (e *qos1Engine) onPuback(id uint16) {
	op, ok := e.pending[id]
	if !ok {
		e.logger.Debug("stale PUBACK ignored", "packet_id", id)
		return
	}
	delete(e.pending, id)
	op.complete(nil)
}

// tick retransmits or fails entries past their deadline. Meant to run off
// the supervisor's periodic timer.
func (e *qos1Engine) tick(now time.Time) {
	for id, op := range e.pending {
		if now.Before(op.deadline) {
			continue
		}
		if op.retriesRemaining <= 0 {
			delete(e.pending, id)
			op.complete(ErrTimeout)
			continue
		}
		op.retriesRemaining--
		op.deadline = now.Add(e.interval)
		op.packet.Dup = true
		e.queue.push(op.packet)
		e.rec.Qos1Retry()
	}
}

// cancel removes an in-flight entry and fails its waiter with ErrCancelled.
func (e *qos1Engine) cancel(id uint16) {
	e.fail(id, ErrCancelled)
}

// fail removes an in-flight entry and fails its waiter with err, used both
// by cancel and to report a packet the encoder dropped before it ever
// reached the wire.
func (e *qos1Engine) fail(id uint16, err error) {
	op, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	op.complete(err)
}

// drain fails every in-flight entry, used on client shutdown.
func (e *qos1Engine) drain(err error) {
	for id, op := range e.pending {
		delete(e.pending, id)
		op.complete(err)
	}
}
