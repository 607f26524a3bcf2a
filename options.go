package mq

import (
	"io"
	"log/slog"
	"time"
)

// ProtocolV311 is the only protocol version this client speaks on the wire.
// ProtocolV50 is accepted in configuration as a placeholder for a future v5
// implementation; Dial rejects it with ErrUnsupportedProtocolVersion.
const (
	ProtocolV311 uint8 = 4
	ProtocolV50  uint8 = 5
)

// willMessage is the Last Will and Testament carried in CONNECT.
type willMessage struct {
	Topic    string
	Payload  []byte
	QoS      uint8
	Retained bool
}

// clientOptions holds the full configuration surface for a Client.
// Networking concerns (TLS, custom dialing, server address) belong to the
// TransportManager the caller passes to Dial, not here: C9 treats the byte
// channel, and anything TLS does to it, as invisible to the core.
type clientOptions struct {
	ClientID string
	Username string
	Password string

	ProtocolVersion uint8

	KeepAlive      time.Duration
	CleanSession   bool
	ConnectTimeout time.Duration

	// Reconnection supervisor (C8) tuning.
	AutoReconnect        bool
	MaxReconnectAttempts int
	PublishRetryInterval time.Duration
	MaxPublishRetries    int

	// Inbound dedup (C6) tuning.
	MaxRetainedPacketIDs int
	PacketIDRetention    time.Duration

	// Wire limits (0 = use MQTT spec / package defaults).
	MaxTopicLength    int
	MaxPayloadSize    int
	MaxIncomingPacket int
	MaximumPacketSize int

	Logger *slog.Logger

	EnableTelemetry bool

	will *willMessage

	OnConnect        func(*Client)
	OnConnectionLost func(*Client, error)

	InitialSubscriptions map[string]initialSubscription
}

// initialSubscription is one entry registered via WithSubscription, carried
// through to the saved session so the initial Connect sequence (and every
// later reconnect) emits SUBSCRIBE at the filter's own QoS.
type initialSubscription struct {
	QoS     QoS
	Handler Handler
}

// Option configures a Client at construction time.
type Option func(*clientOptions)

func WithClientID(id string) Option {
	return func(o *clientOptions) { o.ClientID = id }
}

func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.Username = username
		o.Password = password
	}
}

// WithKeepAlive sets the MQTT keep alive interval (default: 60s).
func WithKeepAlive(d time.Duration) Option {
	return func(o *clientOptions) { o.KeepAlive = d }
}

// WithCleanSession sets the CONNECT Clean Session flag (default: true).
// false requires a non-empty client id; the broker preserves subscriptions
// and in-flight QoS1/QoS2 state across reconnects.
func WithCleanSession(clean bool) Option {
	return func(o *clientOptions) { o.CleanSession = clean }
}

func WithAutoReconnect(enable bool) Option {
	return func(o *clientOptions) { o.AutoReconnect = enable }
}

// WithMaxReconnectAttempts bounds the reconnect budget (default: 10). Zero
// disables reconnection regardless of AutoReconnect.
func WithMaxReconnectAttempts(n int) Option {
	return func(o *clientOptions) { o.MaxReconnectAttempts = n }
}

// WithPublishRetryInterval sets the QoS1/QoS2 retransmit cadence (default: 5s).
func WithPublishRetryInterval(d time.Duration) Option {
	return func(o *clientOptions) { o.PublishRetryInterval = d }
}

// WithMaxPublishRetries bounds retransmissions before an in-flight publish
// fails permanently (default: 3).
func WithMaxPublishRetries(n int) Option {
	return func(o *clientOptions) { o.MaxPublishRetries = n }
}

// WithMaxRetainedPacketIDs sets the dedup window's id capacity (default: 1000).
func WithMaxRetainedPacketIDs(n int) Option {
	return func(o *clientOptions) { o.MaxRetainedPacketIDs = n }
}

// WithPacketIDRetention sets how long a seen packet id is remembered for
// dedup purposes (default: 5s).
func WithPacketIDRetention(d time.Duration) Option {
	return func(o *clientOptions) { o.PacketIDRetention = d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.ConnectTimeout = d }
}

// WithProtocolVersion selects the MQTT protocol version. Only ProtocolV311
// is implemented; ProtocolV50 is accepted here as a data-model placeholder
// and rejected at Dial time.
func WithProtocolVersion(version uint8) Option {
	return func(o *clientOptions) { o.ProtocolVersion = version }
}

func WithMaximumPacketSize(bytes int) Option {
	return func(o *clientOptions) { o.MaximumPacketSize = bytes }
}

func WithEnableTelemetry(enable bool) Option {
	return func(o *clientOptions) { o.EnableTelemetry = enable }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.Logger = logger }
}

// WithWill sets the Last Will and Testament the broker publishes on behalf
// of the client if it disconnects without sending DISCONNECT.
func WithWill(topic string, payload []byte, qos uint8, retained bool) Option {
	return func(o *clientOptions) {
		o.will = &willMessage{Topic: topic, Payload: payload, QoS: qos, Retained: retained}
	}
}

// WithOnConnect registers a hook invoked, on its own goroutine, after every
// successful Connect sequence (initial connect and each reconnect).
func WithOnConnect(onConnect func(*Client)) Option {
	return func(o *clientOptions) { o.OnConnect = onConnect }
}

// WithOnConnectionLost registers a hook invoked, on its own goroutine, when
// the transport reports loss and the supervisor begins its reconnect branch.
func WithOnConnectionLost(onConnectionLost func(*Client, error)) Option {
	return func(o *clientOptions) { o.OnConnectionLost = onConnectionLost }
}

// WithSubscription registers a handler before Dial and marks the topic for
// automatic (re)subscription, at the given QoS, on the initial connect and
// every later reconnect.
func WithSubscription(topic string, qos QoS, handler Handler) Option {
	return func(o *clientOptions) {
		if o.InitialSubscriptions == nil {
			o.InitialSubscriptions = make(map[string]initialSubscription)
		}
		o.InitialSubscriptions[topic] = initialSubscription{QoS: qos, Handler: handler}
	}
}

// defaultOptions returns the configuration table's defaults (spec §6).
func defaultOptions() *clientOptions {
	return &clientOptions{
		ProtocolVersion: ProtocolV311,
		KeepAlive:       60 * time.Second,
		CleanSession:    true,
		ConnectTimeout:  30 * time.Second,

		AutoReconnect:        true,
		MaxReconnectAttempts: 10,
		PublishRetryInterval: 5 * time.Second,
		MaxPublishRetries:    3,

		MaxRetainedPacketIDs: 1000,
		PacketIDRetention:    5 * time.Second,

		MaximumPacketSize: 128 * 1024,
		EnableTelemetry:   true,

		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
