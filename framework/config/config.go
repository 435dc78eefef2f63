// Package config loads the ethnode TOML configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/celestiaorg/ethnode/framework/endpoints"
	"github.com/celestiaorg/ethnode/framework/faucet"
	"github.com/celestiaorg/ethnode/framework/supervisor"
	"github.com/celestiaorg/ethnode/framework/types"
	"go.uber.org/zap"
)

// Config is the on-disk configuration of ethnode.
type Config struct {
	DataDir string        `toml:"datadir"`
	Log     LogConfig     `toml:"log"`
	Node    NodeConfig    `toml:"node"`
	Faucet  FaucetConfig  `toml:"faucet"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LogConfig controls the log level and the rotating log file under <datadir>/logs.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// NodeConfig selects how the node connection is established.
type NodeConfig struct {
	Network           string        `toml:"network"`
	StartNode         bool          `toml:"start_node"`
	Addr              string        `toml:"addr"`
	Candidates        []string      `toml:"candidates"`
	NodeListURL       string        `toml:"node_list_url"`
	LocalFallback     bool          `toml:"local_fallback"`
	Port              int           `toml:"port"`
	GethBinary        string        `toml:"geth_binary"`
	ConnectionTimeout time.Duration `toml:"connection_timeout"`
}

// FaucetConfig configures the rinkeby faucet.
type FaucetConfig struct {
	DonateURL string `toml:"donate_url"`
}

// MetricsConfig enables the prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	dataDir := ".ethnode"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".ethnode")
	}
	return Config{
		DataDir: dataDir,
		Log: LogConfig{
			Level:      "info",
			File:       "ethnode.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Node: NodeConfig{
			Network:           string(types.Rinkeby),
			NodeListURL:       endpoints.DefaultNodeListURL,
			LocalFallback:     true,
			GethBinary:        "geth",
			ConnectionTimeout: supervisor.DefaultConnectionTimeout,
		},
		Faucet: FaucetConfig{
			DonateURL: faucet.DefaultDonateURL,
		},
		Metrics: MetricsConfig{
			ListenAddr: "127.0.0.1:9090",
		},
	}
}

// Load decodes the file at path on top of Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Write encodes cfg as TOML to path, creating parent directories.
func (c Config) Write(path string) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Validate checks the config for common errors.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("datadir must be set")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	switch types.Network(c.Node.Network) {
	case types.Mainnet, types.Ropsten, types.Rinkeby:
	default:
		return fmt.Errorf("unsupported network %q", c.Node.Network)
	}
	if c.Node.Port < 0 || c.Node.Port > 65535 {
		return fmt.Errorf("invalid node port %d", c.Node.Port)
	}
	if c.Node.ConnectionTimeout < 0 {
		return fmt.Errorf("connection timeout must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics listen address must be set when metrics are enabled")
	}
	return nil
}

// LogPath returns the path of the rotating log file.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", c.Log.File)
}

// SupervisorConfig translates the node section into a supervisor configuration.
func (c Config) SupervisorConfig(logger *zap.Logger) supervisor.Config {
	cfg := supervisor.DefaultConfig()
	cfg.Logger = logger
	cfg.DataDir = c.DataDir
	cfg.Network = types.Network(c.Node.Network)
	cfg.StartNode = c.Node.StartNode
	cfg.Addr = c.Node.Addr
	cfg.Candidates = append([]string(nil), c.Node.Candidates...)
	cfg.LocalFallback = c.Node.LocalFallback
	cfg.Port = c.Node.Port
	cfg.GethBinary = c.Node.GethBinary
	cfg.ConnectionTimeout = c.Node.ConnectionTimeout
	cfg.Source = endpoints.NewSource(logger, endpoints.WithURL(c.Node.NodeListURL))
	return cfg
}

// FaucetOptions returns the faucet options for the faucet section.
func (c Config) FaucetOptions() []faucet.Option {
	return []faucet.Option{faucet.WithDonateURL(c.Faucet.DonateURL)}
}
