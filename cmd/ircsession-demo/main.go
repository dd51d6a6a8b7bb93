package main

import (
	"context"
	"crypto/tls"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"ircsession/config"
	"ircsession/irc"
	"ircsession/translog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("Connecting to %s:%d (tls=%v) as %v", cfg.Network.Server, cfg.Network.Port, cfg.Network.TLS, cfg.Network.Nicknames)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	transcript := translog.NewWriter(cfg.Transcript.Path, cfg.Transcript.RetentionDays)
	defer transcript.Close()

	var transport irc.Transport
	if cfg.Network.TLS {
		transport = irc.NewTLSTransport(&tls.Config{ServerName: cfg.Network.Server})
	} else {
		transport = irc.NewTCPTransport()
	}

	sessCfg := irc.Config{
		Server:    cfg.Network.Server,
		Port:      cfg.Network.Port,
		Nicknames: cfg.Network.Nicknames,
		Username:  cfg.Network.Username,
		Realname:  cfg.Network.Realname,
		Password:  cfg.Network.Password,
		Timeout:   config.ConnectTimeout,
	}
	if cfg.Network.SASL != nil {
		sessCfg.SASL = &irc.SASLConfig{
			Username: cfg.Network.SASL.Username,
			Password: cfg.Network.SASL.Password,
		}
		sessCfg.Capabilities = &irc.CapabilitiesConfig{Requires: []string{"sasl"}}
	}

	sess := irc.New(sessCfg, transport)

	network := cfg.Network.Server
	sess.OnData(func(line string) {
		if err := transcript.Write(network, line); err != nil {
			log.WithError(err).Warn("failed to write transcript line")
		}
	})
	sess.OnError(func(err error) {
		log.WithError(err).Warn("irc: operational error")
	})
	sess.OnClose(func() {
		log.Info("irc: session closed")
		cancel()
	})

	go func() {
		select {
		case <-sigChan:
			log.Info("shutting down...")
			sess.End()
		case <-ctx.Done():
		}
	}()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				transcript.Cleanup()
			}
		}
	}()

	handle, err := sess.Connect(ctx)
	if err != nil {
		log.Fatalf("connect failed: %v", err)
	}

	outcome, err := handle.Wait(ctx)
	if err != nil {
		log.Fatalf("handshake failed: %v", err)
	}
	log.Infof("registered as %s, capabilities %v", outcome.Nickname, outcome.Capabilities)

	<-ctx.Done()
}
