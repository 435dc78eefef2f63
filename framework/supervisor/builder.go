package supervisor

import (
	"context"
	"time"

	"github.com/celestiaorg/ethnode/framework/types"
	"go.uber.org/zap"
)

// Builder provides a fluent way to configure and create a Supervisor.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.cfg.Logger = l
	return b
}

func (b *Builder) WithDataDir(dir string) *Builder {
	b.cfg.DataDir = dir
	return b
}

func (b *Builder) WithNetwork(n types.Network) *Builder {
	b.cfg.Network = n
	return b
}

func (b *Builder) WithStartNode(start bool) *Builder {
	b.cfg.StartNode = start
	return b
}

func (b *Builder) WithAddr(addr string) *Builder {
	b.cfg.Addr = addr
	return b
}

func (b *Builder) WithCandidates(addrs ...string) *Builder {
	b.cfg.Candidates = addrs
	return b
}

func (b *Builder) WithLocalFallback(enabled bool) *Builder {
	b.cfg.LocalFallback = enabled
	return b
}

func (b *Builder) WithPort(port int) *Builder {
	b.cfg.Port = port
	return b
}

func (b *Builder) WithConnectionTimeout(d time.Duration) *Builder {
	b.cfg.ConnectionTimeout = d
	return b
}

// WithPollIntervals sets the liveness and genesis polling intervals.
func (b *Builder) WithPollIntervals(liveness, genesis time.Duration) *Builder {
	b.cfg.LivenessInterval = liveness
	b.cfg.GenesisInterval = genesis
	return b
}

func (b *Builder) WithSource(s Discoverer) *Builder {
	b.cfg.Source = s
	return b
}

func (b *Builder) WithLauncher(l types.Launcher) *Builder {
	b.cfg.Launcher = l
	return b
}

func (b *Builder) WithGethBinary(bin string) *Builder {
	b.cfg.GethBinary = bin
	return b
}

func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.cfg.Metrics = m
	return b
}

// Config returns the accumulated configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build creates the Supervisor. Remote candidates are discovered here unless an address or
// explicit candidates were given.
func (b *Builder) Build(ctx context.Context) (*Supervisor, error) {
	return New(ctx, b.cfg)
}
