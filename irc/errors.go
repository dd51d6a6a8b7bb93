package irc

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConnectFailure is the discriminant of a failed connect outcome.
// It is always reported through the settlement of Session.Connect's
// outcome, never as a panic or a bare error from an internal
// goroutine.
type ConnectFailure int

const (
	// Killed means the transport closed during Connecting or Starting
	// before the handshake reached a definitive outcome.
	Killed ConnectFailure = iota
	// NicknamesUnavailable means every configured nickname was
	// rejected by the server.
	NicknamesUnavailable
	// BadProxyConfiguration means the server closed the connection
	// with an ERROR line, the observed failure mode of a rejected
	// WEBIRC assertion.
	BadProxyConfiguration
	// MissingRequiredCapabilities means a capability listed in
	// Config.Capabilities.Requires was not offered, NAKed, or CAP
	// was rejected outright while Requires was non-empty.
	MissingRequiredCapabilities
	// BadPassword means numeric 464, or a Twitch-style NOTICE ending
	// in "Login unsuccessful".
	BadPassword
	// SocketEnded means Session.End was called while the outcome was
	// still pending.
	SocketEnded
)

func (f ConnectFailure) String() string {
	switch f {
	case Killed:
		return "killed"
	case NicknamesUnavailable:
		return "nicknames unavailable"
	case BadProxyConfiguration:
		return "bad proxy configuration"
	case MissingRequiredCapabilities:
		return "missing required capabilities"
	case BadPassword:
		return "bad password"
	case SocketEnded:
		return "socket ended"
	default:
		return fmt.Sprintf("ConnectFailure(%d)", int(f))
	}
}

// ConnectError is the error settled into a failed connect outcome.
// Cause, when present, is the underlying transport or protocol error
// that produced Failure — inspect it with errors.Cause for
// diagnostics; callers should switch on Failure, not Cause, to decide
// behavior.
type ConnectError struct {
	Failure ConnectFailure
	Cause   error
}

func (e *ConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("irc: connect failed: %s: %v", e.Failure, e.Cause)
	}
	return fmt.Sprintf("irc: connect failed: %s", e.Failure)
}

func (e *ConnectError) Unwrap() error { return e.Cause }

func connectErr(failure ConnectFailure) *ConnectError {
	return &ConnectError{Failure: failure}
}

func wrapConnectErr(failure ConnectFailure, cause error, msg string) *ConnectError {
	return &ConnectError{Failure: failure, Cause: errors.Wrap(cause, msg)}
}

// ProgrammerError is returned for misuse of the Session API that a
// caller should fix rather than recover from at runtime: writing a
// message containing '\n', or calling Connect more than once.
type ProgrammerError struct {
	Op  string
	Msg string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("irc: %s: %s", e.Op, e.Msg)
}

func programmerErr(op, msg string) *ProgrammerError {
	return &ProgrammerError{Op: op, Msg: msg}
}
