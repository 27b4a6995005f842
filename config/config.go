package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultCoinCacheBudget bounds the cache growth of a single historical
// rewind. Queries that outgrow it fail and must be resubmitted after the
// operator raises the budget.
const DefaultCoinCacheBudget = 64 << 20 // 64 MiB

type Config struct {
	RPCAddress      string `toml:"RPCAddress"`
	DataDir         string `toml:"DataDir"`
	BlockStorePath  string `toml:"BlockStorePath"`
	CoinCacheBudget uint64 `toml:"CoinCacheBudget"`
	Env             string `toml:"Env"`
}

func defaultConfig() *Config {
	return &Config{
		RPCAddress:      "127.0.0.1:9245",
		DataDir:         "./data/registry",
		BlockStorePath:  "./data/blocks.db",
		CoinCacheBudget: DefaultCoinCacheBudget,
		Env:             "",
	}
}

// Load reads the configuration from path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: %s contains unknown key %s", path, undecoded[0])
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RPCAddress == "" {
		return fmt.Errorf("config: RPCAddress must be set")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: DataDir must be set")
	}
	if c.BlockStorePath == "" {
		return fmt.Errorf("config: BlockStorePath must be set")
	}
	if c.CoinCacheBudget == 0 {
		c.CoinCacheBudget = DefaultCoinCacheBudget
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := defaultConfig()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create %s: %w", path, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write defaults to %s: %w", path, err)
	}
	return cfg, nil
}
