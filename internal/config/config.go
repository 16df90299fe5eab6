package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gymlabs/membership-client/fixtures"
)

type Config struct {
	Wallet struct {
		Keyfile string `yaml:"keyfile"`
	} `yaml:"wallet"`
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	RpcProvider string `yaml:"rpcProvider"`
	NetworkID   uint64 `yaml:"networkId"`
	Registry    struct {
		// Addresses overrides the embedded network-id -> registry
		// address table for this installation.
		Addresses    map[uint64]string `yaml:"addresses"`
		PollInterval time.Duration     `yaml:"pollInterval"`
	} `yaml:"registry"`
	Tx struct {
		PollInterval   time.Duration `yaml:"pollInterval"`
		ConfirmTimeout time.Duration `yaml:"confirmTimeout"`
	} `yaml:"tx"`
	Enumerator struct {
		MaxProbe uint64 `yaml:"maxProbe"`
	} `yaml:"enumerator"`
	Watch struct {
		ListenPort int `yaml:"listenPort"`
	} `yaml:"watch"`
}

const (
	DefaultTxPollInterval   = 2 * time.Second
	DefaultConfirmTimeout   = 2 * time.Minute
	DefaultMaxProbe         = 1000
	DefaultRegistryInterval = 30 * time.Second
)

// GetDefaultConfigHome returns the default home directory for config and
// key material.
func GetDefaultConfigHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gym"
	}
	return filepath.Join(home, ".gym")
}

// LoadConfig reads config.yaml from the given home directory. If the file
// does not exist yet, the embedded template is written there first so a
// fresh install starts from a working local-network configuration.
func LoadConfig(home string) (*Config, error) {
	path := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeTemplate(home, path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	config.applyDefaults(home)

	return &config, nil
}

func (c *Config) applyDefaults(home string) {
	if c.Wallet.Keyfile == "" {
		c.Wallet.Keyfile = filepath.Join(home, "key.json")
	}
	if c.Logger.Verbosity == "" {
		c.Logger.Verbosity = "info"
	}
	if c.Tx.PollInterval == 0 {
		c.Tx.PollInterval = DefaultTxPollInterval
	}
	if c.Tx.ConfirmTimeout == 0 {
		c.Tx.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.Enumerator.MaxProbe == 0 {
		c.Enumerator.MaxProbe = DefaultMaxProbe
	}
	if c.Registry.PollInterval == 0 {
		c.Registry.PollInterval = DefaultRegistryInterval
	}
}

func writeTemplate(home, path string) error {
	if err := os.MkdirAll(home, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, fixtures.ConfigTemplate, 0644)
}
