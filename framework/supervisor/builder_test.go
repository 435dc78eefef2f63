package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuilder(t *testing.T) {
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()
	launcher := &fakeLauncher{}

	b := NewBuilder().
		WithLogger(logger).
		WithDataDir(dir).
		WithNetwork(types.Rinkeby).
		WithCandidates("http://10.0.0.1:8545", "http://10.0.0.2:8545").
		WithLocalFallback(false).
		WithPort(30303).
		WithConnectionTimeout(time.Second).
		WithPollIntervals(5*time.Millisecond, 50*time.Millisecond).
		WithLauncher(launcher)

	cfg := b.Config()
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, 30303, cfg.Port)
	require.False(t, cfg.LocalFallback)
	require.Equal(t, time.Second, cfg.ConnectionTimeout)
	require.Equal(t, 5*time.Millisecond, cfg.LivenessInterval)
	require.Equal(t, 50*time.Millisecond, cfg.GenesisInterval)

	s, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"http://10.0.0.1:8545", "http://10.0.0.2:8545"}, s.Candidates())
	require.Equal(t, ModeRemote, s.Mode())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults with datadir", mutate: func(c *Config) { c.DataDir = "/tmp/x" }},
		{name: "no datadir without local node", mutate: func(c *Config) { c.LocalFallback = false }},
		{name: "no datadir with fallback", mutate: func(c *Config) {}, wantErr: true},
		{name: "no datadir with start node", mutate: func(c *Config) { c.LocalFallback = false; c.StartNode = true }, wantErr: true},
		{name: "no datadir with launcher", mutate: func(c *Config) { c.Launcher = &fakeLauncher{} }},
		{name: "negative timeout", mutate: func(c *Config) { c.DataDir = "/tmp/x"; c.ConnectionTimeout = -1 }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.DataDir = "/tmp/x"; c.Port = 70000 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
