package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/celestiaorg/ethnode/framework/types"
	"go.uber.org/zap"
)

const (
	// DefaultConnectionTimeout bounds each connection attempt.
	DefaultConnectionTimeout = 10 * time.Second
	// DefaultLivenessInterval is the delay between liveness probes.
	DefaultLivenessInterval = 100 * time.Millisecond
	// DefaultGenesisInterval is the delay between genesis block requests.
	DefaultGenesisInterval = 500 * time.Millisecond
)

// Discoverer produces remote endpoint candidates. *endpoints.Source implements it.
type Discoverer interface {
	Discover(ctx context.Context) []string
}

// Config holds the supervisor configuration.
type Config struct {
	Logger *zap.Logger

	// DataDir is the working directory for a local node and its logs.
	DataDir string
	// Network is the chain the endpoint must serve.
	Network types.Network

	// StartNode spawns a local node instead of connecting to remote endpoints.
	StartNode bool
	// Addr, if set, is the only remote endpoint tried.
	Addr string
	// Candidates, if set, replaces discovery.
	Candidates []string
	// LocalFallback allows spawning a local node once all remote endpoints timed out.
	LocalFallback bool
	// Port is the P2P port of a local node; 0 picks a free one.
	Port int

	ConnectionTimeout time.Duration
	LivenessInterval  time.Duration
	GenesisInterval   time.Duration

	// Source is used for discovery when neither Addr nor Candidates are set.
	Source Discoverer
	// Launcher spawns local nodes; defaults to a geth.Launcher in DataDir.
	Launcher types.Launcher
	// GethBinary is the executable used by the default launcher.
	GethBinary string
	// Metrics defaults to an unregistered set of collectors.
	Metrics *Metrics
}

// DefaultConfig returns the configuration used for rinkeby.
func DefaultConfig() Config {
	return Config{
		Logger:            zap.NewNop(),
		Network:           types.Rinkeby,
		LocalFallback:     true,
		ConnectionTimeout: DefaultConnectionTimeout,
		LivenessInterval:  DefaultLivenessInterval,
		GenesisInterval:   DefaultGenesisInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Network == "" {
		c.Network = d.Network
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = d.ConnectionTimeout
	}
	if c.LivenessInterval == 0 {
		c.LivenessInterval = d.LivenessInterval
	}
	if c.GenesisInterval == 0 {
		c.GenesisInterval = d.GenesisInterval
	}
	return c
}

// Validate checks the config for common errors.
func (c Config) Validate() error {
	if c.ConnectionTimeout < 0 || c.LivenessInterval < 0 || c.GenesisInterval < 0 {
		return fmt.Errorf("timeouts and intervals must not be negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Launcher == nil && c.DataDir == "" && (c.StartNode || c.LocalFallback) {
		return fmt.Errorf("a data directory is required to run a local node")
	}
	return nil
}
