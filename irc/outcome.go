package irc

import (
	"context"
	"sync"
)

// Outcome is the successful result of a connect attempt.
type Outcome struct {
	Capabilities []string
	Nickname     string
}

// ConnectResult is the settled value of a one-shot connect outcome:
// exactly one of Outcome and Err is populated.
type ConnectResult struct {
	Outcome Outcome
	Err     *ConnectError
}

// future is a one-shot settlement channel, settled at most once for
// the session's lifetime. Multiple readers observe the same settled
// value.
type future struct {
	once   sync.Once
	ch     chan struct{}
	result ConnectResult
}

func newFuture() *future {
	return &future{ch: make(chan struct{})}
}

// settle records result and wakes all waiters. Only the first call
// has any effect; it reports whether this call was the one that
// settled the future.
func (f *future) settle(result ConnectResult) bool {
	settled := false
	f.once.Do(func() {
		f.result = result
		settled = true
		close(f.ch)
	})
	return settled
}

func (f *future) isSettled() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the outcome settles or ctx is done.
func (f *future) Wait(ctx context.Context) (ConnectResult, error) {
	select {
	case <-f.ch:
		return f.result, nil
	case <-ctx.Done():
		return ConnectResult{}, ctx.Err()
	}
}

// ConnectHandle is returned by Session.Connect. It settles exactly
// once, to either a successful Outcome or a ConnectError.
type ConnectHandle struct {
	f *future
}

// Wait blocks until the connect attempt settles or ctx is done.
func (h ConnectHandle) Wait(ctx context.Context) (Outcome, error) {
	res, err := h.f.Wait(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if res.Err != nil {
		return Outcome{}, res.Err
	}
	return res.Outcome, nil
}
