package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"grainlify/native/common"
	"grainlify/native/program"
)

// Config carries the operational settings of the custody engines: default
// limits, the bounty escrow token and the rate-limit windows.
type Config struct {
	DataDir string        `toml:"DataDir"`
	Escrow  EscrowConfig  `toml:"Escrow"`
	Program ProgramConfig `toml:"Program"`
	Quota   QuotaConfig   `toml:"Quota"`
}

// EscrowConfig configures the bounty escrow module.
type EscrowConfig struct {
	Token        string `toml:"Token"`
	MaxBatchSize uint32 `toml:"MaxBatchSize"`
}

// ProgramConfig carries the default limits applied to new programs.
type ProgramConfig struct {
	MaxBatchSize     uint32 `toml:"MaxBatchSize"`
	MaxSingleAmount  string `toml:"MaxSingleAmount"`
	PerTxCap         string `toml:"PerTxCap"`
	WhitelistEnabled bool   `toml:"WhitelistEnabled"`
}

// QuotaConfig configures the per-caller fixed-window rate limit. A zero
// MaxRequestsPerWindow disables the limit.
type QuotaConfig struct {
	MaxRequestsPerWindow uint32 `toml:"MaxRequestsPerWindow"`
	WindowSeconds        uint32 `toml:"WindowSeconds"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./grainlify-data"
	}
	if strings.TrimSpace(c.Escrow.Token) == "" {
		c.Escrow.Token = "XLM"
	}
	if c.Escrow.MaxBatchSize == 0 {
		c.Escrow.MaxBatchSize = program.HardMaxBatchSize
	}
	if c.Program.MaxBatchSize == 0 {
		c.Program.MaxBatchSize = program.HardMaxBatchSize
	}
}

// Validate checks the configuration for values the engines would reject.
func (c *Config) Validate() error {
	if c.Escrow.MaxBatchSize > program.HardMaxBatchSize {
		return fmt.Errorf("config: Escrow.MaxBatchSize %d exceeds hard cap %d", c.Escrow.MaxBatchSize, program.HardMaxBatchSize)
	}
	if c.Program.MaxBatchSize > program.HardMaxBatchSize {
		return fmt.Errorf("config: Program.MaxBatchSize %d exceeds hard cap %d", c.Program.MaxBatchSize, program.HardMaxBatchSize)
	}
	if _, err := parseAmount(c.Program.MaxSingleAmount); err != nil {
		return fmt.Errorf("config: Program.MaxSingleAmount: %w", err)
	}
	if _, err := parseAmount(c.Program.PerTxCap); err != nil {
		return fmt.Errorf("config: Program.PerTxCap: %w", err)
	}
	if c.Quota.MaxRequestsPerWindow > 0 && c.Quota.WindowSeconds == 0 {
		return fmt.Errorf("config: Quota.WindowSeconds must be positive when a request ceiling is set")
	}
	return nil
}

// Limits converts the program defaults into engine limits.
func (c ProgramConfig) Limits() (*program.Limits, error) {
	maxSingle, err := parseAmount(c.MaxSingleAmount)
	if err != nil {
		return nil, fmt.Errorf("config: Program.MaxSingleAmount: %w", err)
	}
	perTx, err := parseAmount(c.PerTxCap)
	if err != nil {
		return nil, fmt.Errorf("config: Program.PerTxCap: %w", err)
	}
	return &program.Limits{
		MaxSingleAmount:  maxSingle,
		PerTxCap:         perTx,
		MaxBatchSize:     c.MaxBatchSize,
		WhitelistEnabled: c.WhitelistEnabled,
	}, nil
}

// Quota converts the rate-limit settings into the engines' quota value.
func (c QuotaConfig) Quota() common.Quota {
	return common.Quota{
		MaxRequestsPerWindow: c.MaxRequestsPerWindow,
		WindowSeconds:        c.WindowSeconds,
	}
}

// parseAmount parses a decimal amount string. Empty means "not configured".
func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must not be negative", raw)
	}
	return value, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Quota = QuotaConfig{MaxRequestsPerWindow: 0, WindowSeconds: 60}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
