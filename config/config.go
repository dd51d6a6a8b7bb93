package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of the demo command's configuration.
type File struct {
	Network    NetworkConfig    `yaml:"network"`
	Transcript TranscriptConfig `yaml:"transcript"`
	LogLevel   string           `yaml:"log_level"`
}

// NetworkConfig describes the IRC network to join.
type NetworkConfig struct {
	Server    string   `yaml:"server"`
	Port      uint16   `yaml:"port"`
	TLS       bool     `yaml:"tls"`
	Nicknames []string `yaml:"nicknames"`
	Username  string   `yaml:"username"`
	Realname  string   `yaml:"realname"`
	Password  string   `yaml:"password"`
	SASL      *SASL    `yaml:"sasl"`
}

// SASL holds SASL PLAIN credentials; Username defaults to
// NetworkConfig.Username when empty.
type SASL struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TranscriptConfig controls per-network daily transcript persistence.
type TranscriptConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads and parses the YAML configuration at path, overlaying it
// onto a defaults struct so unset fields keep sane values.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &File{
		Network: NetworkConfig{
			Port: 6667,
		},
		Transcript: TranscriptConfig{
			Path:          "/var/lib/ircsession-demo/logs",
			RetentionDays: 14,
		},
		LogLevel: "info",
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnectTimeout is the fixed idle timeout the demo command uses; it
// is not yaml-configurable.
const ConnectTimeout = 300 * time.Second
