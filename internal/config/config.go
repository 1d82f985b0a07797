// Package config loads the node's YAML configuration file (via
// gopkg.in/yaml.v3): node identity, storage, logging, network endpoint
// and consensus timing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root node configuration.
type Config struct {
	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
	GenesisPath string `yaml:"genesis_path"`
	KeystorePath string `yaml:"keystore_path"`

	Network   NetworkConfig   `yaml:"network"`
	Consensus ConsensusConfig `yaml:"consensus"`
	Mempool   MempoolConfig   `yaml:"mempool"`
}

// NetworkConfig describes this node's transport endpoint and peers.
// The transport implementation itself is a separate collaborator; this
// is only the configuration surface a real transport would be handed.
type NetworkConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	BootstrapNodes []string `yaml:"bootstrap_nodes"`
	MaxPeers       int      `yaml:"max_peers"`
}

// ConsensusConfig overrides the Consensus Core's timing defaults;
// zero values fall back to consensus.DefaultConfig.
type ConsensusConfig struct {
	BaseTimeout   time.Duration `yaml:"base_timeout"`
	MaxTimeout    time.Duration `yaml:"max_timeout"`
	ClockDrift    time.Duration `yaml:"clock_drift"`
	GasLimit      uint64        `yaml:"gas_limit"`
	MaxTxPerBlock int           `yaml:"max_tx_per_block"`
}

// MempoolConfig overrides the tx pool's admission policy.
type MempoolConfig struct {
	MaxSize int `yaml:"max_size"`
}

// Load reads and parses a configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields are present.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.GenesisPath == "" {
		return fmt.Errorf("genesis_path is required")
	}
	if c.KeystorePath == "" {
		return fmt.Errorf("keystore_path is required")
	}
	if c.Network.MaxPeers < 0 {
		return fmt.Errorf("network.max_peers must be non-negative")
	}
	return nil
}

// Default returns a config with sane values for a single local node,
// used by tests.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:      dataDir,
		LogLevel:     "info",
		GenesisPath:  dataDir + "/genesis.json",
		KeystorePath: dataDir + "/keystore",
		Network: NetworkConfig{
			ListenAddr: "0.0.0.0:30303",
			MaxPeers:   25,
		},
		Mempool: MempoolConfig{MaxSize: 10000},
	}
}
