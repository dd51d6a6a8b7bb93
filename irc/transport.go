package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// TransportEventKind tags a TransportEvent.
type TransportEventKind int

const (
	TransportConnect TransportEventKind = iota
	TransportData
	TransportError
	TransportClose
	TransportEnd
	TransportTimeout
)

// TransportEvent is the channel-based analog of the "connect/write/
// end/data/close/error/timeout events" a transport must expose. Go
// idiom favors a channel of tagged events here over discrete
// callback registrations, the way a long-lived network session
// commonly exposes its inbound side as channels (Read(), Err())
// rather than callbacks.
type TransportEvent struct {
	Kind TransportEventKind
	Data []byte
	Err  error
}

// Transport is the external collaborator this package adapts into an
// IRC session: a raw bidirectional byte-stream, exposed as tagged
// events over a channel rather than discrete callback registrations.
// The core never distinguishes plaintext from TLS — a pre-wrapped TLS
// transport is just another Transport.
type Transport interface {
	// Connect dials the destination named by opts["host"]/opts["port"]
	// — Config.ConnectOptions overlaid with {host, port} by the
	// Session before this is invoked, so a custom Transport can still
	// see proxy/options metadata the Session itself doesn't interpret.
	Connect(ctx context.Context, opts map[string]string) error
	// Write sends p as-is; the caller is responsible for framing
	// (trailing CRLF) and UTF-8 encoding.
	Write(p []byte) error
	// End requests a graceful shutdown of the transport.
	End() error
	// Close forcibly releases the transport's resources.
	Close() error
	// SetTimeout forwards a read/write deadline configuration to the
	// transport; orthogonal to the package's own keepalive watchdog.
	SetTimeout(d time.Duration)
	// SetNoDelay disables/enables Nagle's algorithm.
	SetNoDelay(nodelay bool) error
	// Events returns the channel of inbound transport events. It is
	// closed only after a TransportClose event has been delivered.
	Events() <-chan TransportEvent
}

// netTransport is the default Transport, backed by a net.Conn. A
// *tls.Conn satisfies net.Conn directly, so NewTLSTransport and
// NewTCPTransport share this single implementation — the core does
// not distinguish plaintext from TLS, only the dialer differs.
type netTransport struct {
	dial func(ctx context.Context, addr string) (net.Conn, error)

	conn   net.Conn
	events chan TransportEvent
	readN  int
}

// NewTCPTransport returns a Transport that dials a plaintext TCP
// connection on Connect.
func NewTCPTransport() Transport {
	return &netTransport{
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
		events: make(chan TransportEvent, 64),
	}
}

// NewTLSTransport returns a Transport that dials a TCP connection and
// immediately wraps it in a TLS handshake using cfg (which may be
// nil for default settings).
func NewTLSTransport(cfg *tls.Config) Transport {
	return &netTransport{
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			tlsConn := tls.Client(conn, cfg)
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		events: make(chan TransportEvent, 64),
	}
}

// NewConnTransport wraps an already-established net.Conn (plaintext
// or TLS) as a Transport. Connect is then a no-op beyond starting the
// read loop — useful for tests and for callers that perform their
// own dialing/proxying (e.g. a SOCKS-wrapped conn).
func NewConnTransport(conn net.Conn) Transport {
	return &netTransport{conn: conn, events: make(chan TransportEvent, 64)}
}

func (t *netTransport) Connect(ctx context.Context, opts map[string]string) error {
	if t.conn == nil {
		conn, err := t.dial(ctx, fmt.Sprintf("%s:%s", opts["host"], opts["port"]))
		if err != nil {
			return err
		}
		t.conn = conn
	}
	go t.readLoop()
	return nil
}

func (t *netTransport) readLoop() {
	defer close(t.events)

	t.events <- TransportEvent{Kind: TransportConnect}

	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.events <- TransportEvent{Kind: TransportData, Data: data}
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				t.events <- TransportEvent{Kind: TransportTimeout}
				continue
			}
			t.events <- TransportEvent{Kind: TransportError, Err: err}
			t.events <- TransportEvent{Kind: TransportClose}
			return
		}
	}
}

func (t *netTransport) Write(p []byte) error {
	_, err := t.conn.Write(p)
	return err
}

func (t *netTransport) End() error {
	if c, ok := t.conn.(interface{ CloseWrite() error }); ok {
		return c.CloseWrite()
	}
	return t.conn.Close()
}

func (t *netTransport) Close() error {
	return t.conn.Close()
}

func (t *netTransport) SetTimeout(d time.Duration) {
	if d <= 0 {
		t.conn.SetDeadline(time.Time{})
		return
	}
	t.conn.SetDeadline(time.Now().Add(d))
}

func (t *netTransport) SetNoDelay(nodelay bool) error {
	if tcp, ok := t.conn.(*net.TCPConn); ok {
		return tcp.SetNoDelay(nodelay)
	}
	if tlsConn, ok := t.conn.(*tls.Conn); ok {
		if tcp, ok := tlsConn.NetConn().(*net.TCPConn); ok {
			return tcp.SetNoDelay(nodelay)
		}
	}
	return nil
}

func (t *netTransport) Events() <-chan TransportEvent {
	return t.events
}
