package mq

import (
	"log/slog"
	"time"

	"github.com/turbomqtt/turbomqtt/internal/packets"
	"github.com/turbomqtt/turbomqtt/internal/telemetry"
)

type qos2State uint8

const (
	qos2AwaitingPubrec qos2State = iota
	qos2AwaitingPubcomp
)

// pendingQos2 tracks one outstanding QoS2 publish through its four steps.
type pendingQos2 struct {
	state            qos2State
	publish          *packets.PublishPacket
	deadline         time.Time
	complete         func(error)
	retriesRemaining int
}

// qos2Engine implements the QoS2 Engine (C5).
type qos2Engine struct {
	pending  map[uint16]*pendingQos2
	queue    *outboundQueue
	interval time.Duration
	retries  int
	logger   *slog.Logger
	rec      telemetry.Recorder
}

func newQos2Engine(pending map[uint16]*pendingQos2, queue *outboundQueue, interval time.Duration, retries int, logger *slog.Logger, rec telemetry.Recorder) *qos2Engine {
	return &qos2Engine{pending: pending, queue: queue, interval: interval, retries: retries, logger: logger, rec: rec}
}

func (e *qos2Engine) publish(pkt *packets.PublishPacket, complete func(error)) error {
	if _, exists := e.pending[pkt.PacketID]; exists {
		return ErrDuplicatePacketId
	}
	e.pending[pkt.PacketID] = &pendingQos2{
		state:            qos2AwaitingPubrec,
		publish:          pkt,
		deadline:         time.Now().Add(e.interval),
		complete:         complete,
		retriesRemaining: e.retries,
	}
	e.queue.push(pkt)
	return nil
}

// onPubrec advances S0 → S1 and sends PUBREL. An unsolicited PUBREC (id not
// tracked) gets a plain PUBREL for that id so the peer stops retransmitting;
// a v3.1.1 PUBREL carries no reason code.
func (e *qos2Engine) onPubrec(id uint16) {
	op, ok := e.pending[id]
	if !ok {
		e.queue.push(&packets.PubrelPacket{PacketID: id})
		return
	}
	if op.state != qos2AwaitingPubrec {
		return // replay of PUBREC in S1 is a no-op
	}
	op.state = qos2AwaitingPubcomp
	op.deadline = time.Now().Add(e.interval)
	op.retriesRemaining = e.retries
	e.queue.push(&packets.PubrelPacket{PacketID: id})
}

// onPubcomp completes and removes the entry. An unsolicited PUBCOMP is
// logged and dropped.
func (e *qos2Engine) onPubcomp(id uint16) {
	op, ok := e.pending[id]
	if !ok {
		e.logger.Debug("stale PUBCOMP ignored", "packet_id", id)
		return
	}
	delete(e.pending, id)
	op.complete(nil)
}

func (e *qos2Engine) tick(now time.Time) {
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
		switch op.state {
		case qos2AwaitingPubrec:
			op.publish.Dup = true
			e.queue.push(op.publish)
		case qos2AwaitingPubcomp:
			e.queue.push(&packets.PubrelPacket{PacketID: id})
		}
		e.rec.Qos2Retry()
	}
}

func (e *qos2Engine) cancel(id uint16) {
	e.fail(id, ErrCancelled)
}

// fail removes an in-flight entry and fails its waiter with err, used both
// by cancel and to report a packet the encoder dropped before it ever
// reached the wire.
func (e *qos2Engine) fail(id uint16, err error) {
	op, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	op.complete(err)
}

func (e *qos2Engine) drain(err error) {
	for id, op := range e.pending {
		delete(e.pending, id)
		op.complete(err)
	}
}
