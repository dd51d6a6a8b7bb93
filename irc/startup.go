package irc

import (
	"encoding/base64"
	"strings"
)

// startupHandler runs the pre-001 handshake script described in the
// design: WEBIRC → PASS → CAP LS → CAP REQ/ACK accounting → SASL
// PLAIN → USER/NICK → 001. It is a single tagged state variable
// (regState) driving one onLine dispatch method, rather than nested
// callbacks — the state only ever moves forward, so a flat switch is
// clearer than a chain of handler swaps.
type startupHandler struct {
	sess *Session
	cfg  Config

	remainingNicknames []string
	currentNickname    string

	reg regState

	cap          *capState
	saslInFlight bool
}

type regState int

const (
	regAwaitingCapLS regState = iota
	regAwaitingCapResponses
	regAwaitingSaslChallenge
	regAwaitingSaslResult
	regAwaitingWelcome
)

func newStartupHandler(sess *Session, cfg Config) *startupHandler {
	h := &startupHandler{
		sess:               sess,
		cfg:                cfg,
		remainingNicknames: append([]string(nil), cfg.Nicknames...),
	}
	return h
}

// begin sends the fixed prefix of the handshake (WEBIRC, PASS, and
// either CAP LS or straight to USER/NICK) once the transport has
// connected. Returns a settled result if it can fail synchronously
// (an empty nickname list).
func (h *startupHandler) begin() *ConnectResult {
	if h.cfg.Proxy != nil {
		p := h.cfg.Proxy
		h.sess.sendRaw("WEBIRC " + p.Password + " " + p.Username + " " + p.Hostname + " " + p.IP)
	}
	if h.cfg.Password != "" {
		h.sess.sendRaw("PASS " + h.cfg.Password)
	}

	if len(h.remainingNicknames) == 0 {
		return &ConnectResult{Err: connectErr(NicknamesUnavailable)}
	}

	if h.cfg.Capabilities != nil {
		h.cap = newCapState()
		h.reg = regAwaitingCapLS
		h.sess.sendRaw("CAP LS")
		return nil
	}

	h.sendUserNick()
	return nil
}

func (h *startupHandler) sendUserNick() {
	h.sess.sendRaw("USER " + h.cfg.Username + " 8 * :" + h.cfg.Realname)
	h.popNickname()
	h.reg = regAwaitingWelcome
}

func (h *startupHandler) popNickname() {
	nick := h.remainingNicknames[0]
	h.remainingNicknames = h.remainingNicknames[1:]
	h.currentNickname = nick
	h.sess.sendRaw("NICK " + nick)
}

// onLine processes one pre-001 inbound line. A non-nil result means
// the handshake just settled; the caller detaches the handler before
// the next line is offered to user listeners.
func (h *startupHandler) onLine(line string) *ConnectResult {
	if strings.HasPrefix(line, "ERROR") {
		return &ConnectResult{Err: connectErr(BadProxyConfiguration)}
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	if fields[0] == "PING" {
		return nil // auto-PONG handled elsewhere, regardless of status
	}

	if fields[0] == "AUTHENTICATE" {
		return h.onAuthenticate(fields)
	}

	// Everything else is either a numeric or CAP reply, both sent
	// with a leading ":<prefix>".
	if len(fields) < 2 || !strings.HasPrefix(fields[0], ":") {
		return nil
	}
	command := fields[1]

	if command == "NOTICE" && strings.HasSuffix(line, "Login unsuccessful") {
		return &ConnectResult{Err: connectErr(BadPassword)}
	}

	if command == "CAP" {
		return h.onCap(fields)
	}

	switch command {
	case "464":
		return &ConnectResult{Err: connectErr(BadPassword)}
	case "410", "421":
		return h.onCapRejected()
	case "431", "432", "433", "436", "437", "484":
		return h.onNicknameRejected()
	case "903":
		return h.onSaslSuccess()
	case "001":
		h.sess.emitReady(Outcome{Capabilities: h.ackedCaps(), Nickname: h.currentNickname})
		return &ConnectResult{Outcome: Outcome{Capabilities: h.ackedCaps(), Nickname: h.currentNickname}}
	}

	return nil
}

func (h *startupHandler) ackedCaps() []string {
	if h.cap == nil {
		return nil
	}
	return append([]string(nil), h.cap.acked...)
}

// onCapRejected handles numerics 410/421 received while CAP LS or CAP
// REQ replies are outstanding: some servers (Twitch-compatible) reject CAP outright.
// If Requires is non-empty the handshake cannot proceed; otherwise
// fall through to USER/NICK.
func (h *startupHandler) onCapRejected() *ConnectResult {
	if h.reg != regAwaitingCapLS && h.reg != regAwaitingCapResponses {
		return nil
	}
	if h.cfg.Capabilities != nil && len(h.cfg.Capabilities.Requires) > 0 {
		h.sess.sendRaw("QUIT")
		return &ConnectResult{Err: connectErr(MissingRequiredCapabilities)}
	}
	h.sendUserNick()
	return nil
}

func (h *startupHandler) onCap(fields []string) *ConnectResult {
	if len(fields) < 5 {
		return nil
	}
	sub := fields[3]
	switch sub {
	case "LS":
		return h.onCapLS(fields)
	case "ACK":
		return h.onCapAck(fields)
	case "NAK":
		return h.onCapNak(fields)
	}
	return nil
}

func (h *startupHandler) onCapLS(fields []string) *ConnectResult {
	list := append([]string(nil), fields[4:]...)
	list[0] = strings.TrimPrefix(list[0], ":")
	h.cap.setServerCaps(list)

	requires := h.cfg.Capabilities.Requires
	if _, ok := missingRequires(requires, h.cap); ok {
		h.sess.sendRaw("QUIT")
		return &ConnectResult{Err: connectErr(MissingRequiredCapabilities)}
	}

	h.reg = regAwaitingCapResponses

	if len(requires) > 0 {
		h.sess.sendRaw("CAP REQ :" + strings.Join(requires, " "))
		h.cap.sentRequests++
	}
	for _, want := range h.cfg.Capabilities.Wants {
		if h.cap.has(want) {
			h.sess.sendRaw("CAP REQ :" + want)
			h.cap.sentRequests++
		}
	}

	return h.maybeFinishCapNegotiation()
}

func (h *startupHandler) onCapAck(fields []string) *ConnectResult {
	cap := strings.TrimPrefix(fields[4], ":")
	h.cap.respondedRequests++
	// A capability may be ACKed whether it came from Requires or
	// Wants; both are now active, so both belong in the acked list
	// (this is also what enables the sasl-specific check below).
	if h.inWants(cap) || h.inRequires(cap) {
		h.cap.acked = append(h.cap.acked, cap)
	}
	return h.maybeFinishCapNegotiation()
}

func (h *startupHandler) onCapNak(fields []string) *ConnectResult {
	cap := strings.TrimPrefix(fields[4], ":")
	h.cap.respondedRequests++
	if h.inRequires(cap) {
		h.sess.sendRaw("QUIT")
		return &ConnectResult{Err: connectErr(MissingRequiredCapabilities)}
	}
	return h.maybeFinishCapNegotiation()
}

func (h *startupHandler) inWants(cap string) bool {
	for _, w := range h.cfg.Capabilities.Wants {
		if w == cap {
			return true
		}
	}
	return false
}

func (h *startupHandler) inRequires(cap string) bool {
	for _, r := range h.cfg.Capabilities.Requires {
		if r == cap {
			return true
		}
	}
	return false
}

func (h *startupHandler) maybeFinishCapNegotiation() *ConnectResult {
	if !h.cap.done() {
		return nil
	}

	if h.cfg.SASL != nil && h.inAcked("sasl") {
		h.saslInFlight = true
		h.reg = regAwaitingSaslChallenge
		h.sess.sendRaw("AUTHENTICATE PLAIN")
		return nil
	}

	h.sess.sendRaw("CAP END")
	h.sendUserNick()
	return nil
}

func (h *startupHandler) inAcked(cap string) bool {
	for _, a := range h.cap.acked {
		if a == cap {
			return true
		}
	}
	return false
}

func (h *startupHandler) onAuthenticate(fields []string) *ConnectResult {
	if h.reg != regAwaitingSaslChallenge {
		return nil
	}
	if len(fields) < 2 || fields[1] != "+" {
		return nil
	}

	sasl := h.cfg.SASL
	payload := sasl.Username + "\x00" + sasl.Username + "\x00" + sasl.Password
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	h.sess.sendRaw("AUTHENTICATE " + encoded)
	h.reg = regAwaitingSaslResult
	return nil
}

// onSaslSuccess handles numeric 903: CAP END must follow 903, never
// precede AUTHENTICATE.
func (h *startupHandler) onSaslSuccess() *ConnectResult {
	if h.reg != regAwaitingSaslResult {
		return nil
	}
	h.saslInFlight = false
	h.sess.sendRaw("CAP END")
	h.sendUserNick()
	return nil
}

func (h *startupHandler) onNicknameRejected() *ConnectResult {
	if h.reg != regAwaitingWelcome {
		return nil
	}
	if len(h.remainingNicknames) == 0 {
		h.sess.sendRaw("QUIT")
		return &ConnectResult{Err: connectErr(NicknamesUnavailable)}
	}
	h.popNickname()
	return nil
}
