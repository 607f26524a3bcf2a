// Package tcp provides the default turbomqtt.Transport and
// turbomqtt.TransportManager implementations: a plain or TLS TCP socket
// dialed via net/url scheme sniffing, grounded in the teacher's dialServer
// logic but stripped of its inline CONNECT/CONNACK handling, which belongs
// to the supervisor in this implementation.
package tcp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	mq "github.com/turbomqtt/turbomqtt"
)

// ContextDialer matches net.Dialer.DialContext so callers can substitute a
// proxying or instrumented dialer.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Manager is a TransportManager that dials TCP or TLS sockets.
type Manager struct {
	Server       string
	TLSConfig    *tls.Config
	Dialer       ContextDialer
	MaxFrameSize int
}

// NewManager returns a Manager for the given server URI. Supported schemes:
// tcp/mqtt (default port 1883), tls/ssl/mqtts (default port 8883).
func NewManager(server string, maxFrameSize int) *Manager {
	if maxFrameSize <= 0 {
		maxFrameSize = 128 * 1024
	}
	return &Manager{Server: server, MaxFrameSize: maxFrameSize}
}

// NewTransport returns an unconnected Transport; the caller invokes
// Connect to perform the dial.
func (m *Manager) NewTransport(ctx context.Context) (mq.Transport, error) {
	return &Transport{
		mgr:        m,
		terminated: make(chan error, 1),
	}, nil
}

// Transport is a turbomqtt.Transport over a single net.Conn.
type Transport struct {
	mgr  *Manager
	conn net.Conn

	terminated    chan error
	terminateOnce sync.Once
	closed        atomic.Bool

	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

func (t *Transport) Connect(ctx context.Context) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	m := t.mgr
	if m.Dialer != nil {
		return m.Dialer.DialContext(ctx, "tcp", m.Server)
	}

	u, err := url.Parse(m.Server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Port() == "" {
		switch u.Scheme {
		case "tls", "ssl", "mqtts":
			u.Host = net.JoinHostPort(u.Host, "8883")
		default:
			u.Host = net.JoinHostPort(u.Host, "1883")
		}
	}

	useTLS := u.Scheme == "tls" || u.Scheme == "ssl" || u.Scheme == "mqtts" || m.TLSConfig != nil
	if useTLS {
		cfg := m.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{}
		}
		dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: cfg}
		return dialer.DialContext(ctx, "tcp", u.Host)
	}

	var d net.Dialer
	return d.DialContext(ctx, "tcp", u.Host)
}

func (t *Transport) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if n > 0 {
		t.bytesReceived.Add(uint64(n))
	}
	if err != nil {
		t.terminate(err)
	}
	return n, err
}

func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.conn.Write(p)
	if n > 0 {
		t.bytesSent.Add(uint64(n))
	}
	if err != nil {
		t.terminate(err)
	}
	return n, err
}

// Close requests a graceful shutdown. TCP has no half-close drain point
// worth modeling here: the write loop is expected to have flushed its
// queue before calling Close.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.conn.Close()
	t.terminate(nil)
	return err
}

func (t *Transport) Abort() {
	if !t.closed.CompareAndSwap(false, true) {
		return
	}
	t.conn.Close()
	t.terminate(fmt.Errorf("transport aborted"))
}

func (t *Transport) WhenTerminated() <-chan error {
	return t.terminated
}

func (t *Transport) MaxFrameSize() int {
	return t.mgr.MaxFrameSize
}

func (t *Transport) terminate(reason error) {
	t.terminateOnce.Do(func() {
		t.terminated <- reason
		close(t.terminated)
	})
}

// SetReadDeadline propagates a read deadline to the underlying connection.
func (t *Transport) SetReadDeadline(d time.Time) error {
	return t.conn.SetReadDeadline(d)
}
