package irc

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Status is the Session's lifecycle state. It is monotone except that
// any state may transition to Closed.
type Status int32

const (
	StatusInitialized Status = iota
	StatusConnecting
	StatusStarting
	StatusRunning
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusConnecting:
		return "connecting"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session adapts a Transport into an IRC line-oriented session. It
// owns its Transport exclusively for its lifetime and is single-use:
// Connect may be called only once.
//
// Internally, one goroutine (run) serializes every state mutation —
// inbound transport events, queued outbound writes, watchdog
// firings, and end requests all funnel through its select loop,
// giving single-threaded cooperative scheduling without locks.
type Session struct {
	cfg       Config
	transport Transport

	*listenerSet

	status atomic.Int32

	framer   lineFramer
	watchdog *watchdog
	startup  *startupHandler

	outcome *future

	writeCh      chan []byte
	watchdogCh   chan watchdogSignal
	endRequested chan struct{}
	endOnce      sync.Once
	doneCh       chan struct{}

	log *log.Entry
}

type watchdogSignal int

const (
	watchdogSilence watchdogSignal = iota
	watchdogTimeout
)

// New creates a Session bound to transport, not yet connected.
func New(cfg Config, transport Transport) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:          cfg,
		transport:    transport,
		listenerSet:  &listenerSet{},
		writeCh:      make(chan []byte, 256),
		watchdogCh:   make(chan watchdogSignal, 2),
		endRequested: make(chan struct{}),
		doneCh:       make(chan struct{}),
		log:          log.WithField("component", "irc.Session"),
	}
	s.outcome = newFuture()
	s.watchdog = newWatchdog(cfg.Timeout,
		func() { s.watchdogCh <- watchdogSilence },
		func() { s.watchdogCh <- watchdogTimeout },
	)
	s.status.Store(int32(StatusInitialized))
	return s
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return Status(s.status.Load()) }

func (s *Session) IsStarted() bool   { return s.Status() != StatusInitialized }
func (s *Session) IsConnected() bool { st := s.Status(); return st == StatusConnecting || st == StatusStarting || st == StatusRunning }
func (s *Session) IsReady() bool     { return s.Status() == StatusRunning }

// Realname returns the configured realname sent in the USER line.
func (s *Session) Realname() string { return s.cfg.Realname }

// Connect dials the transport and drives the handshake. It returns
// synchronously with a ProgrammerError if called more than once;
// every other failure mode is reported through the returned handle's
// settlement.
func (s *Session) Connect(ctx context.Context) (ConnectHandle, error) {
	if !s.status.CompareAndSwap(int32(StatusInitialized), int32(StatusConnecting)) {
		return ConnectHandle{}, programmerErr("Connect", "connect called more than once on a single-use Session")
	}

	opts := make(map[string]string, len(s.cfg.ConnectOptions)+2)
	for k, v := range s.cfg.ConnectOptions {
		opts[k] = v
	}
	opts["host"] = s.cfg.Server
	opts["port"] = strconv.Itoa(int(s.cfg.Port))

	go s.run(ctx, opts)

	return ConnectHandle{f: s.outcome}, nil
}

// Write sends message followed by CRLF. message must not contain a
// newline; violating that is a programmer error, returned
// synchronously rather than corrupting the wire. It is a no-op if the
// session is not connected.
func (s *Session) Write(message string) error {
	if strings.Contains(message, "\n") {
		return programmerErr("Write", "message must not contain a newline")
	}
	if !s.isWritable() {
		return nil
	}
	select {
	case s.writeCh <- []byte(message):
	case <-s.doneCh:
	}
	return nil
}

// WriteFields joins parts with a single space and writes the result.
// Callers must include a leading ':' on a trailing multi-word
// parameter themselves; WriteFields does not add one.
func (s *Session) WriteFields(parts ...string) error {
	return s.Write(strings.Join(parts, " "))
}

// End requests a graceful shutdown. If the connect outcome is still
// pending it settles Fail(SocketEnded) first, so any awaiter sees a
// deterministic result before the transport is asked to close. Safe
// to call more than once; a no-op while the session is not connected.
func (s *Session) End() {
	if !s.IsConnected() {
		return
	}
	s.endOnce.Do(func() {
		close(s.endRequested)
	})
}

// SetTimeout forwards a read/write deadline to the transport. It is
// orthogonal to the package's own keepalive watchdog.
func (s *Session) SetTimeout(d time.Duration) {
	s.transport.SetTimeout(d)
}

// sendRaw writes a command directly to the transport. Only ever
// called from within run, which exclusively owns the transport.
func (s *Session) sendRaw(line string) {
	if err := s.transport.Write([]byte(line + "\r\n")); err != nil {
		s.log.WithError(err).Debug("irc: write failed")
	}
}

func (s *Session) isWritable() bool {
	switch s.Status() {
	case StatusConnecting, StatusStarting, StatusRunning:
		return true
	default:
		return false
	}
}

func (s *Session) run(ctx context.Context, opts map[string]string) {
	defer close(s.doneCh)
	defer s.watchdog.stop()

	if err := s.transport.Connect(ctx, opts); err != nil {
		s.outcome.settle(ConnectResult{Err: wrapConnectErr(Killed, err, "transport connect failed")})
		s.status.Store(int32(StatusClosed))
		s.emitClose()
		return
	}

	if err := s.transport.SetNoDelay(true); err != nil {
		s.log.WithError(err).Debug("irc: set no delay failed")
	}

	s.status.Store(int32(StatusStarting))
	s.startup = newStartupHandler(s, s.cfg)
	if result := s.startup.begin(); result != nil {
		s.startup = nil
		s.settleAndTransition(*result)
	}

	transportEvents := s.transport.Events()
	endRequested := s.endRequested

	for {
		select {
		case evt, ok := <-transportEvents:
			if !ok {
				return
			}
			if s.handleTransportEvent(evt) {
				return
			}

		case data := <-s.writeCh:
			if s.isWritable() {
				s.sendRaw(string(data))
			}

		case sig := <-s.watchdogCh:
			s.handleWatchdogSignal(sig)

		case <-endRequested:
			endRequested = nil
			s.handleEndRequest()
		}
	}
}

func (s *Session) handleTransportEvent(evt TransportEvent) (closed bool) {
	switch evt.Kind {
	case TransportConnect:
		s.watchdog.start()
		s.emitConnect()

	case TransportData:
		s.watchdog.reset()
		for _, line := range s.framer.feed(evt.Data) {
			s.handleLine(line)
		}

	case TransportError:
		if s.Status() == StatusRunning {
			s.emitError(evt.Err)
		} else if !s.outcome.isSettled() {
			s.startup = nil
			s.outcome.settle(ConnectResult{Err: wrapConnectErr(Killed, evt.Err, "transport error before handshake completed")})
		}

	case TransportClose:
		s.finishClose()
		return true

	case TransportEnd:
		s.emitEnd()

	case TransportTimeout:
		// Passthrough transport-level read/write deadline, orthogonal
		// to the keepalive watchdog; nothing to do here.
	}
	return false
}

// handleLine runs one inbound line through the auto-PONG responder
// and, while the handshake is pending, the startup handler, then fans
// it out to data listeners. The startup handler is detached atomically
// the moment the outcome settles, before this same line reaches
// listeners below.
func (s *Session) handleLine(line string) {
	if strings.HasPrefix(line, "PING") && s.isWritable() {
		text := ""
		if idx := strings.Index(line, ":"); idx >= 0 {
			text = line[idx:]
		}
		s.sendRaw("PONG " + text)
	}

	if s.startup != nil {
		if result := s.startup.onLine(line); result != nil {
			s.startup = nil
			s.settleAndTransition(*result)
		}
	}

	s.emitData(line)
}

func (s *Session) settleAndTransition(result ConnectResult) {
	if !s.outcome.settle(result) {
		return
	}
	if result.Err == nil {
		s.status.Store(int32(StatusRunning))
		return
	}
	// A settled Fail means the handshake is abandoned; the startup
	// handler already sent QUIT where the protocol calls for one.
	// Ask the transport to end so the session reaches Closed.
	s.transport.End()
}

// emitReady is called by the startup handler before it returns the
// settling result, so ready fires immediately before the outcome
// settles Ok.
func (s *Session) emitReady(o Outcome) {
	s.listenerSet.emitReady(o)
}

func (s *Session) handleWatchdogSignal(sig watchdogSignal) {
	switch sig {
	case watchdogSilence:
		if s.isWritable() {
			s.sendRaw("PING :ignored")
		}
	case watchdogTimeout:
		s.emitTimeout()
		s.End()
	}
}

func (s *Session) handleEndRequest() {
	if !s.outcome.isSettled() {
		s.startup = nil
		s.outcome.settle(ConnectResult{Err: connectErr(SocketEnded)})
	}
	if s.Status() == StatusClosed {
		return
	}
	s.transport.End()
}

func (s *Session) finishClose() {
	s.watchdog.stop()
	if !s.outcome.isSettled() {
		s.outcome.settle(ConnectResult{Err: connectErr(Killed)})
	}
	s.status.Store(int32(StatusClosed))
	s.emitClose()
}
