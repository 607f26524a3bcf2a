package mq

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turbomqtt/turbomqtt/internal/packets"
	"github.com/turbomqtt/turbomqtt/internal/telemetry"
)

// command is one unit of work posted to the core loop from a public API
// call. The core loop is the only writer of session state, so every
// mutating request — publish, subscribe, unsubscribe, disconnect — is
// serialised through this channel instead of taking a lock.
type command struct {
	run func()
}

// Client is the MQTT client supervisor (C8). It owns the session state, the
// engines, the dedup window, the heartbeat, and the current transport.
// Everything except the transport's own read/write goroutines runs on a
// single core goroutine.
type Client struct {
	opts *clientOptions

	transportMgr TransportManager
	transport    Transport

	decoder *packets.Decoder
	encoder *packets.Encoder

	outbound *outboundQueue
	inbound  chan Message

	incomingPkts chan packets.Packet
	commands     chan command
	writeEvents  chan outboundEvent
	stop         chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	session   *sessionState
	acks      *ackRouter
	qos1      *qos1Engine
	qos2      *qos2Engine
	dedupWin  *dedup
	heartbeat *heartbeat
	telemetry telemetry.Recorder

	connected atomic.Bool
	wg        sync.WaitGroup

	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
}

// Dial connects to an MQTT broker and starts the client's background
// goroutines. The context governs only the initial Connect sequence.
func Dial(ctx context.Context, mgr TransportManager, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.Logger = defaultLoggerOrDiscard(o.Logger).With("lib", "turbomqtt")

	if o.ProtocolVersion != ProtocolV311 {
		return nil, ErrUnsupportedProtocolVersion
	}
	if err := validateClientID(o.ClientID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	if o.ClientID == "" && !o.CleanSession {
		return nil, fmt.Errorf("client id required when clean-session is false")
	}
	if o.ClientID == "" {
		// MQTT 3.1.1 lets a broker assign a client identifier when Clean
		// Session is set, but gives the client no way to learn it back
		// (that round-trip is a v5-only CONNACK property). Generate one
		// locally so Stats, logging, and the will message all have a
		// stable identifier to report.
		o.ClientID = "turbomqtt-" + uuid.NewString()
	}

	c := &Client{
		opts:         o,
		transportMgr: mgr,
		outbound:     newOutboundQueue(),
		inbound:      make(chan Message, 256),
		incomingPkts: make(chan packets.Packet, 64),
		commands:     make(chan command),
		writeEvents:  make(chan outboundEvent, 1),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
		session:      newSessionState(o.MaxReconnectAttempts),
		acks:         newAckRouter(),
		dedupWin:     newDedup(o.MaxRetainedPacketIDs, o.PacketIDRetention),
		telemetry:    telemetry.NewRecorder(o.EnableTelemetry, ""),
	}
	c.qos1 = newQos1Engine(c.session.qos1, c.outbound, o.PublishRetryInterval, o.MaxPublishRetries, o.Logger, c.telemetry)
	c.qos2 = newQos2Engine(c.session.qos2, c.outbound, o.PublishRetryInterval, o.MaxPublishRetries, o.Logger, c.telemetry)
	c.heartbeat = newHeartbeat(o.KeepAlive, c.outbound, c.telemetry)

	for topic, sub := range o.InitialSubscriptions {
		c.session.subscriptions[topic] = &topicSubscription{Filter: topic, QoS: sub.QoS, Handler: sub.Handler}
	}

	if err := c.connectSequence(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.coreLoop()

	return c, nil
}

// Inbound returns the single-writer single-reader channel of delivered
// application messages.
func (c *Client) Inbound() <-chan Message {
	return c.inbound
}

// IsConnected reports whether the supervisor is in the Running state.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns simple packet counters, grounded in the teacher's
// atomic-counter ClientStats but trimmed to wire traffic only.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
}

func (c *Client) Stats() Stats {
	return Stats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
	}
}

// connectSequence runs the Connect sequence: acquire a transport, send
// CONNECT, wait (synchronously, pre-core-loop) for CONNACK.
func (c *Client) connectSequence(ctx context.Context) error {
	t, err := c.transportMgr.NewTransport(ctx)
	if err != nil {
		return err
	}
	if err := t.Connect(ctx); err != nil {
		return err
	}

	maxFrame := t.MaxFrameSize()
	c.decoder = packets.NewDecoder(c.opts.ProtocolVersion, c.opts.MaxIncomingPacket)
	c.encoder = packets.NewEncoder(maxFrame, c.opts.Logger)

	connectPkt := c.buildConnectPacket()
	buf, _, _, err := c.encoder.EncodeBatch(nil, []packets.Packet{connectPkt})
	if err != nil {
		t.Abort()
		return err
	}
	if _, err := t.Write(buf); err != nil {
		t.Abort()
		return err
	}
	c.packetsSent.Add(1)

	connack, err := c.awaitConnack(ctx, t)
	if err != nil {
		t.Abort()
		return err
	}
	if connack.ReturnCode != 0x00 {
		t.Abort()
		return connackError(connack.ReturnCode)
	}

	c.transport = t
	c.connected.Store(true)
	c.telemetry.ConnectionState(true)
	c.session.remainingReconnects = c.opts.MaxReconnectAttempts
	c.heartbeat.reset(time.Now())

	c.wg.Add(2)
	go c.readLoop(t)
	go c.writeLoop(t)

	c.resubscribeAll()

	if c.opts.OnConnect != nil {
		go c.opts.OnConnect(c)
	}
	return nil
}

// resubscribeAll re-emits SUBSCRIBE, at each filter's own QoS, for every
// subscription the session already knows about: InitialSubscriptions on the
// very first connect, and on a reconnect every filter Subscribe has recorded,
// whether or not the broker acknowledged it.
func (c *Client) resubscribeAll() {
	for topic, sub := range c.session.subscriptions {
		id := c.session.ids.nextID()
		c.outbound.push(&packets.SubscribePacket{PacketID: id, Topics: []string{topic}, QoS: []uint8{uint8(sub.QoS)}})
	}
}

// awaitConnack blocks the caller reading raw bytes directly off the
// transport; this happens only during the handshake, before the reader
// goroutine exists.
func (c *Client) awaitConnack(ctx context.Context, t Transport) (*packets.ConnackPacket, error) {
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	buf := make([]byte, 4096)
	dec := packets.NewDecoder(c.opts.ProtocolVersion, c.opts.MaxIncomingPacket)
	for {
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		n, err := t.Read(buf)
		if err != nil {
			return nil, err
		}
		pkts, err := dec.Feed(buf[:n])
		if err != nil {
			return nil, err
		}
		for _, p := range pkts {
			if ack, ok := p.(*packets.ConnackPacket); ok {
				return ack, nil
			}
		}
	}
}

func (c *Client) buildConnectPacket() *packets.ConnectPacket {
	pkt := &packets.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: c.opts.ProtocolVersion,
		CleanSession:  c.opts.CleanSession,
		KeepAlive:     uint16(c.opts.KeepAlive / time.Second),
		ClientID:      c.opts.ClientID,
	}
	if c.opts.Username != "" {
		pkt.UsernameFlag = true
		pkt.Username = c.opts.Username
	}
	if c.opts.Password != "" {
		pkt.PasswordFlag = true
		pkt.Password = c.opts.Password
	}
	if c.opts.will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = c.opts.will.Topic
		pkt.WillMessage = c.opts.will.Payload
		pkt.WillQoS = c.opts.will.QoS
		pkt.WillRetain = c.opts.will.Retained
	}
	return pkt
}

// readLoop is the transport's read goroutine: turn bytes into decoded
// packets and hand them to the core loop. Not part of the single-threaded
// core per the concurrency model.
func (c *Client) readLoop(t Transport) {
	defer c.wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := t.Read(buf)
		if err != nil {
			return
		}
		c.telemetry.BytesReceived(n)
		pkts, err := c.decoder.Feed(buf[:n])
		if err != nil {
			c.opts.Logger.Warn("malformed packet, aborting transport", "error", err)
			t.Abort()
			return
		}
		for _, p := range pkts {
			select {
			case c.incomingPkts <- p:
			case <-c.stop:
				return
			}
		}
	}
}

// outboundEvent is how writeLoop reports what happened on the wire back to
// the single core goroutine. writeLoop never touches the heartbeat or the
// QoS engines directly — those are core-owned state, and writeLoop runs on
// its own goroutine.
type outboundEvent struct {
	activity bool
	sentAt   time.Time
	dropped  []packets.Packet
	dropErr  error
}

// writeLoop is the transport's write goroutine: drain the outbound queue
// and hand batched bytes to the transport.
func (c *Client) writeLoop(t Transport) {
	defer c.wg.Done()
	for {
		select {
		case <-c.outbound.wait():
			batch := c.outbound.popBatch(256)
			if len(batch) == 0 {
				continue
			}
			buf, consumed, dropped, err := c.encoder.EncodeBatch(nil, batch)
			if err != nil {
				c.opts.Logger.Warn("encode error in write loop", "error", err)
			}
			if consumed < len(batch) {
				// The batch budget was reached before these packets were
				// even attempted; they were already popped off the queue,
				// so put them back at the front instead of losing them.
				c.outbound.pushFront(batch[consumed:])
			}
			written := batch[:consumed]
			if len(dropped) > 0 {
				filtered := make([]packets.Packet, 0, len(written))
				for _, pkt := range written {
					if !containsPacket(dropped, pkt) {
						filtered = append(filtered, pkt)
					}
				}
				written = filtered
			}

			var ev outboundEvent
			if len(buf) > 0 {
				if _, err := t.Write(buf); err != nil {
					t.Abort()
					return
				}
				c.packetsSent.Add(uint64(len(written)))
				c.telemetry.BytesSent(len(buf))
				for _, pkt := range written {
					c.telemetry.PacketSent(packets.PacketNames[pkt.Type()])
				}
				ev.activity = true
				ev.sentAt = time.Now()
			}
			if len(dropped) > 0 {
				ev.dropped = dropped
				ev.dropErr = ErrPacketTooLarge
			}
			if ev.activity || len(ev.dropped) > 0 {
				select {
				case c.writeEvents <- ev:
				case <-c.stop:
					return
				}
			}

		case <-t.WhenTerminated():
			return

		case <-c.stop:
			return
		}
	}
}

// containsPacket reports whether pkt is present in pkts, used to exclude
// dropped packets from the written-bytes counters without relying on
// pointer-order assumptions between the batch and dropped slices.
func containsPacket(pkts []packets.Packet, pkt packets.Packet) bool {
	for _, p := range pkts {
		if p == pkt {
			return true
		}
	}
	return false
}

// coreLoop is the single logical task that owns all session state (C8).
func (c *Client) coreLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case pkt := <-c.incomingPkts:
			c.packetsReceived.Add(1)
			c.telemetry.PacketReceived(packets.PacketNames[pkt.Type()])
			c.handleIncoming(pkt)

		case cmd := <-c.commands:
			cmd.run()

		case ev := <-c.writeEvents:
			if ev.activity {
				c.heartbeat.onOutboundActivity(ev.sentAt)
			}
			for _, pkt := range ev.dropped {
				c.failDroppedPacket(pkt, ev.dropErr)
			}

		case now := <-ticker.C:
			c.qos1.tick(now)
			c.qos2.tick(now)
			c.acks.sweep(now)
			c.dedupWin.sweep(now)
			if err := c.heartbeat.tick(now); err != nil {
				c.beginReconnect(err)
			}

		case <-c.transportTerminated():
			c.beginReconnect(ErrTransportLoss)

		case <-c.stop:
			c.acks.cancelAll(ErrClientDisconnected)
			c.qos1.drain(ErrClientDisconnected)
			c.qos2.drain(ErrClientDisconnected)
			close(c.stopped)
			return
		}
	}
}

// transportTerminated returns the current transport's termination signal,
// or a nil channel (which blocks forever in a select) if there is none.
func (c *Client) transportTerminated() <-chan error {
	if c.transport == nil {
		return nil
	}
	return c.transport.WhenTerminated()
}

func (c *Client) handleIncoming(pkt packets.Packet) {
	switch p := pkt.(type) {
	case *packets.PublishPacket:
		c.handlePublish(p)
	case *packets.PubackPacket:
		c.qos1.onPuback(p.PacketID)
	case *packets.PubrecPacket:
		c.qos2.onPubrec(p.PacketID)
	case *packets.PubrelPacket:
		c.handlePubrel(p)
	case *packets.PubcompPacket:
		c.qos2.onPubcomp(p.PacketID)
	case *packets.SubackPacket:
		c.acks.completeSubscribe(p.PacketID, p.ReturnCodes)
	case *packets.UnsubackPacket:
		c.acks.completeUnsubscribe(p.PacketID)
	case *packets.PingrespPacket:
		c.heartbeat.onPingresp(time.Now())
	case *packets.DisconnectPacket:
		c.beginReconnect(ErrTransportLoss)
	}
}

func (c *Client) handlePublish(p *packets.PublishPacket) {
	duplicate := false
	if p.QoS >= 1 {
		duplicate = c.dedupWin.seen(p.Topic, p.PacketID, time.Now())
	}
	if duplicate {
		c.telemetry.DedupDropped()
	}

	if !duplicate {
		msg := Message{Topic: p.Topic, Payload: p.Payload, QoS: QoS(p.QoS), Retained: p.Retain, Duplicate: p.Dup}
		for _, sub := range c.session.subscriptions {
			if !matchTopic(sub.Filter, p.Topic) {
				continue
			}
			if sub.Handler != nil {
				go sub.Handler(msg)
				continue
			}
			select {
			case c.inbound <- msg:
			default:
			}
		}
	}

	switch p.QoS {
	case 1:
		c.outbound.push(&packets.PubackPacket{PacketID: p.PacketID})
	case 2:
		c.outbound.push(&packets.PubrecPacket{PacketID: p.PacketID})
	}
}

func (c *Client) handlePubrel(p *packets.PubrelPacket) {
	c.outbound.push(&packets.PubcompPacket{PacketID: p.PacketID})
}

// failDroppedPacket routes a packet the encoder refused to put on the wire
// back to whichever engine is waiting on it, so the caller's Publish token
// fails immediately instead of waiting out a full retry timeout. Packet
// types with no waiter (PUBACK, PINGREQ, ...) are logged and otherwise
// ignored: there is nothing to fail.
func (c *Client) failDroppedPacket(pkt packets.Packet, err error) {
	pub, ok := pkt.(*packets.PublishPacket)
	if !ok {
		c.opts.Logger.Warn("dropped oversize packet with no waiter", "type", packets.PacketNames[pkt.Type()])
		return
	}
	switch pub.QoS {
	case 1:
		c.qos1.fail(pub.PacketID, err)
	case 2:
		c.qos2.fail(pub.PacketID, err)
	default:
		c.opts.Logger.Warn("dropped oversize QoS0 publish", "topic", pub.Topic)
	}
}

// beginReconnect runs the Reconnect branch (spec §4.8).
func (c *Client) beginReconnect(cause error) {
	if !c.connected.Swap(false) {
		return
	}
	c.telemetry.ConnectionState(false)
	c.telemetry.Reconnect()
	if c.opts.OnConnectionLost != nil {
		go c.opts.OnConnectionLost(c, cause)
	}

	// Step 1: abort current transport.
	if c.transport != nil {
		c.transport.Abort()
	}

	if !c.opts.AutoReconnect || c.session.remainingReconnects <= 0 {
		c.opts.Logger.Warn("reconnect budget exhausted, client terminal", "cause", cause)
		c.acks.cancelAll(ErrTransportLoss)
		c.qos1.drain(ErrTransportLoss)
		c.qos2.drain(ErrTransportLoss)
		return
	}

	// Step 2: drain outbound queue into a holding set, discarding DISCONNECT.
	held := c.outbound.drainAll()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	defer cancel()

	// Step 3+4: acquire a new transport, re-run Connect.
	if err := c.connectSequence(ctx); err != nil {
		c.opts.Logger.Warn("reconnect attempt failed", "error", err)
		c.session.remainingReconnects--
		c.outbound.pushFront(held)
		return
	}

	// Step 5: resubscribe every saved subscription (connectSequence already
	// did this as part of the handshake it just ran).

	if c.opts.CleanSession {
		c.session.reset()
	}

	// Step 6: requeue the holding set with dup set on publishes.
	for _, pkt := range held {
		if pub, ok := pkt.(*packets.PublishPacket); ok {
			pub.Dup = true
		}
		c.outbound.push(pkt)
	}

	// Step 7: decrement the reconnect budget.
	c.session.remainingReconnects--
}

// do posts a closure to the core loop and blocks until it runs, used by the
// public API so every session-state mutation happens on the single core
// goroutine.
func (c *Client) do(fn func()) {
	done := make(chan struct{})
	select {
	case c.commands <- command{run: func() { fn(); close(done) }}:
		<-done
	case <-c.stopped:
	}
}

// Disconnect sends DISCONNECT and closes the transport gracefully. Idempotent.
func (c *Client) Disconnect(ctx context.Context) error {
	c.stopOnce.Do(func() {
		if c.connected.Load() {
			c.outbound.push(&packets.DisconnectPacket{})
			time.Sleep(50 * time.Millisecond)
		}
		close(c.stop)
		if c.transport != nil {
			c.transport.Close()
		}
		c.outbound.close()
	})

	done := make(chan struct{})
	go func() { c.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func defaultLoggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
