package irc

import "time"

// ProxyConfig carries WEBIRC credentials asserting a real client's
// hostname/IP to the server through a front-end proxy.
type ProxyConfig struct {
	Password string
	Username string
	Hostname string
	IP       string
}

// CapabilitiesConfig controls IRCv3 capability negotiation.
type CapabilitiesConfig struct {
	// Requires must all be offered by the server or the connection
	// fails with MissingRequiredCapabilities.
	Requires []string
	// Wants are requested opportunistically; a NAK on one of these
	// is not fatal.
	Wants []string
}

// SASLConfig enables SASL PLAIN authentication during capability
// negotiation. Username defaults to Config.Username when empty.
type SASLConfig struct {
	Username string
	Password string
}

// Config is the immutable input to a Session. It is never mutated
// by the package; New takes its own copy of any nested config.
type Config struct {
	Server string
	Port   uint16 // defaults to 6667

	// Nicknames are tried in order during registration. Must be
	// non-empty.
	Nicknames []string

	Username string
	Realname string

	// Password is sent via PASS before CAP negotiation, if set.
	Password string

	Proxy        *ProxyConfig
	Capabilities *CapabilitiesConfig
	SASL         *SASLConfig

	// Timeout is the idle threshold for the keepalive watchdog.
	// Defaults to 300s.
	Timeout time.Duration

	// ConnectOptions is forwarded to the Transport's Connect call,
	// overlaid with {Host: Server, Port: Port}.
	ConnectOptions map[string]string
}

const (
	defaultPort    uint16        = 6667
	defaultTimeout time.Duration = 300 * time.Second
)

// withDefaults returns a defensive copy of cfg with zero-valued
// optional fields filled in. The caller's Config, and any slices or
// maps it references, are never mutated.
func (cfg Config) withDefaults() Config {
	out := cfg

	if out.Port == 0 {
		out.Port = defaultPort
	}
	if out.Timeout == 0 {
		out.Timeout = defaultTimeout
	}

	out.Nicknames = append([]string(nil), cfg.Nicknames...)

	if cfg.Proxy != nil {
		p := *cfg.Proxy
		out.Proxy = &p
	}
	if cfg.Capabilities != nil {
		c := CapabilitiesConfig{
			Requires: append([]string(nil), cfg.Capabilities.Requires...),
			Wants:    append([]string(nil), cfg.Capabilities.Wants...),
		}
		out.Capabilities = &c
	}
	if cfg.SASL != nil {
		s := *cfg.SASL
		if s.Username == "" {
			s.Username = cfg.Username
		}
		out.SASL = &s
	}
	if cfg.ConnectOptions != nil {
		m := make(map[string]string, len(cfg.ConnectOptions))
		for k, v := range cfg.ConnectOptions {
			m[k] = v
		}
		out.ConnectOptions = m
	}

	return out
}
