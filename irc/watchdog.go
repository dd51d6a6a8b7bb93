package irc

import "time"

// watchdogPhase tracks which half of the two-phase idle timer is
// currently armed.
type watchdogPhase int

const (
	phaseSilence watchdogPhase = iota
	phaseNoPong
)

// watchdog is the two-phase idle timer: silence for Timeout triggers
// a client PING; a further Timeout with no response of any kind
// triggers a timeout. It owns exactly one live timer at a time,
// following a single-handle discipline rather than juggling separate
// silence/no-pong timers.
type watchdog struct {
	timeout time.Duration
	timer   *time.Timer
	phase   watchdogPhase

	onSilence func() // fires a PING, re-arms for phaseNoPong
	onTimeout func() // fires the timeout event
}

func newWatchdog(timeout time.Duration, onSilence, onTimeout func()) *watchdog {
	return &watchdog{
		timeout:   timeout,
		onSilence: onSilence,
		onTimeout: onTimeout,
	}
}

// start arms the first phase. Call once, on transport-connect.
func (w *watchdog) start() {
	w.arm(phaseSilence)
}

// reset cancels whichever timer is pending and re-arms phaseSilence.
// Called on every inbound chunk (not line) — a response of any kind,
// even a partial one, keeps the session alive.
func (w *watchdog) reset() {
	w.stop()
	w.arm(phaseSilence)
}

// stop cancels the pending timer, if any. Safe to call more than
// once (Closed is terminal and cancels the watchdog).
func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *watchdog) arm(phase watchdogPhase) {
	w.phase = phase
	w.timer = time.AfterFunc(w.timeout, w.fire)
}

func (w *watchdog) fire() {
	switch w.phase {
	case phaseSilence:
		w.onSilence()
		w.arm(phaseNoPong)
	case phaseNoPong:
		w.onTimeout()
	}
}
