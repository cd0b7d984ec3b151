// Package config loads the resolver's on-disk configuration: network
// parameters, P2P timeouts and logger settings. Grounded on the
// teacher's pkg/config/config.go two-step os.ReadFile + yaml.Unmarshal
// load, trimmed to this client's surface.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	P2P     P2PConfig     `yaml:"p2p"`
	Logger  LoggerConfig  `yaml:"logger"`
}

// NetworkConfig overrides the compiled-in chaincfg defaults.
type NetworkConfig struct {
	Magic           uint32   `yaml:"magic"`
	CheckpointStart uint32   `yaml:"checkpoint_start"`
	Seeds           []string `yaml:"seeds"`
	DataDir         string   `yaml:"data_dir"`
}

// P2PConfig holds the protocol engine's timeout and attempt knobs
// (spec §4.D, §4.F, §4.G), named after the teacher's pkg/config/p2p.go
// DialTimeout/PingInterval/MaxPeers shape.
type P2PConfig struct {
	ConnectTimeoutSeconds   int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds      int `yaml:"read_timeout_seconds"`
	HandshakeTimeoutSeconds int `yaml:"handshake_timeout_seconds"`
	HandshakeMaxAttempts    int `yaml:"handshake_max_attempts"`
	DiscoveryTimeoutSeconds int `yaml:"discovery_timeout_seconds"`
	SyncDiscoveryBudget     int `yaml:"sync_discovery_budget_seconds"`
	MaxConnectRetries       int `yaml:"max_connect_retries"`
	BackoffBaseSeconds      int `yaml:"backoff_base_seconds"`
}

// LoggerConfig selects the zap encoding/level, verbatim adaptation of
// the teacher's pkg/config/logger.go.
type LoggerConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	Path     string `yaml:"path"`
}

// Default returns the configuration this client runs with absent an
// override file.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			DataDir: "./data",
		},
		P2P: P2PConfig{
			ConnectTimeoutSeconds:   10,
			ReadTimeoutSeconds:      30,
			HandshakeTimeoutSeconds: 5,
			HandshakeMaxAttempts:    20,
			DiscoveryTimeoutSeconds: 30,
			SyncDiscoveryBudget:     15,
			MaxConnectRetries:       3,
			BackoffBaseSeconds:      1,
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "",
		},
	}
}

// Load reads and parses a YAML config file, starting from Default and
// overriding any field the file sets.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadBytes(raw)
}

// LoadBytes parses raw YAML into a Config, same two-step split as Load
// so tests can exercise parsing without touching disk.
func LoadBytes(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}
