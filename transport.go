package mq

import (
	"context"
	"io"
)

// Transport is the contract the supervisor consumes from the socket layer
// (C9). Implementations own buffer allocation on reads and honor
// back-pressure on writes; TLS, if any, is a property of the concrete
// transport and invisible here.
type Transport interface {
	io.Reader
	io.Writer

	// Connect performs whatever handshake the transport needs (TCP dial,
	// TLS negotiation, ...) before the core can start writing MQTT bytes.
	Connect(ctx context.Context) error

	// Close requests a graceful shutdown: pending writes flush before the
	// underlying connection closes. Idempotent.
	Close() error

	// Abort closes the connection immediately, discarding any buffered
	// writes. Used by the reconnect branch's step 1.
	Abort()

	// WhenTerminated resolves, exactly once, with the reason the transport
	// stopped (nil for a caller-initiated Close).
	WhenTerminated() <-chan error

	// MaxFrameSize is the transport-declared encoder budget for batched
	// writes.
	MaxFrameSize() int
}

// TransportManager hands the supervisor a fresh, unconnected Transport on
// initial connect and on every reconnect attempt.
type TransportManager interface {
	NewTransport(ctx context.Context) (Transport, error)
}
