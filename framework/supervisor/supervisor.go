package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/celestiaorg/ethnode/framework/endpoints"
	"github.com/celestiaorg/ethnode/framework/geth"
	"github.com/celestiaorg/ethnode/framework/internal"
	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// methodNotFoundCode is the JSON-RPC error code for unknown methods.
const methodNotFoundCode = -32601

// Supervisor owns the connection to an Ethereum node. It either connects to remote RPC
// endpoints or spawns a local geth, verifies the chain and exposes the RPC client.
//
// Start and Stop must not be called concurrently.
type Supervisor struct {
	cfg      Config
	logger   *zap.Logger
	launcher types.Launcher
	metrics  *Metrics

	mu         sync.Mutex
	state      State
	mode       Mode
	fellBack   bool
	candidates []string
	// endpoints is the candidate list captured at construction; Stop restores it.
	endpoints []string
	proc       types.Process
	client     *gethrpc.Client
	eth        *ethclient.Client
}

// New creates a Supervisor. Unless cfg names an address or candidates, the remote
// endpoint list is discovered immediately.
func New(ctx context.Context, cfg Config) (*Supervisor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid supervisor config: %w", err)
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   cfg.Logger.With(zap.String("component", "node-supervisor")),
		launcher: cfg.Launcher,
		metrics:  cfg.Metrics,
	}
	if s.launcher == nil {
		s.launcher = geth.NewLauncher(geth.LauncherConfig{
			Logger:  cfg.Logger,
			WorkDir: cfg.DataDir,
			Binary:  cfg.GethBinary,
		})
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	switch {
	case cfg.Addr != "":
		s.endpoints = []string{cfg.Addr}
	case len(cfg.Candidates) > 0:
		s.endpoints = append([]string(nil), cfg.Candidates...)
	default:
		source := cfg.Source
		if source == nil {
			source = endpoints.NewSource(cfg.Logger)
		}
		s.endpoints = source.Discover(ctx)
	}
	s.resetLocked()
	return s, nil
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns whether the supervisor currently connects to remote endpoints or spawns a node.
func (s *Supervisor) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Candidates returns the remote endpoints not tried yet.
func (s *Supervisor) Candidates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.candidates...)
}

// IsRunning reports whether the supervisor owns a local node process.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Client returns the verified RPC client, or nil before Start succeeded.
func (s *Supervisor) Client() *gethrpc.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVerified {
		return nil
	}
	return s.client
}

// EthClient returns the verified typed client, or nil before Start succeeded.
func (s *Supervisor) EthClient() *ethclient.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVerified {
		return nil
	}
	return s.eth
}

// RegisterShutdown hands Stop to the hosting application's shutdown mechanism.
func (s *Supervisor) RegisterShutdown(register func(func())) {
	register(func() {
		if err := s.Stop(context.Background()); err != nil {
			s.logger.Warn("stopping node on shutdown failed", zap.Error(err))
		}
	})
}

// Start connects to a node and verifies it serves the configured network. Remote
// candidates are tried in order; once they are exhausted a local node is spawned if
// LocalFallback is set. Start blocks until the node is verified, a fatal error occurs or
// ctx is done.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle || s.proc != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateConnecting
	s.mu.Unlock()

	started := time.Now()
	if err := s.connect(ctx); err != nil {
		s.setState(StateFailed)
		s.metrics.Results.WithLabelValues(resultLabel(err)).Inc()
		return err
	}

	elapsed := time.Since(started)
	s.setState(StateVerified)
	s.metrics.Results.WithLabelValues("verified").Inc()
	s.metrics.ConnectDuration.Observe(elapsed.Seconds())
	s.logger.Info("connected to node", zap.Duration("elapsed", elapsed), zap.Stringer("mode", s.Mode()))
	return nil
}

// connect drives connection attempts until one is verified or the retry policy gives up.
func (s *Supervisor) connect(ctx context.Context) error {
	for {
		provider, err := s.nextProvider(ctx)
		if err != nil {
			return err
		}

		err = s.attempt(ctx, provider)
		if !errors.Is(err, errAttemptTimedOut) {
			return err
		}
		s.logger.Warn("connection attempt timed out", zap.Stringer("provider", redacted(provider)), zap.Error(err))

		if !s.advance() {
			return fmt.Errorf("%w: %s: %v", ErrConnectTimeout, redacted(provider), err)
		}
	}
}

// advance decides whether another attempt follows a timed out one. Remote candidates are
// exhausted first; then, at most once, the supervisor switches to a local node.
func (s *Supervisor) advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeRemote {
		return false
	}
	if len(s.candidates) > 0 {
		return true
	}
	return s.fallBackLocked()
}

func (s *Supervisor) fallBackLocked() bool {
	if !s.cfg.LocalFallback || s.fellBack {
		return false
	}
	s.mode = ModeLocal
	s.fellBack = true
	s.metrics.Fallbacks.Inc()
	s.logger.Info("remote endpoints exhausted, starting a local node")
	return true
}

func (s *Supervisor) nextProvider(ctx context.Context) (types.Provider, error) {
	s.mu.Lock()
	if s.mode == ModeRemote && len(s.candidates) == 0 && !s.fallBackLocked() {
		s.mu.Unlock()
		return types.Provider{}, fmt.Errorf("%w: no remote endpoints left", ErrConnectTimeout)
	}

	if s.mode == ModeRemote {
		addr := s.candidates[0]
		s.candidates = s.candidates[1:]
		s.mu.Unlock()
		s.logger.Info("connecting to remote RPC interface", zap.String("addr", internal.RedactURL(addr)))
		return types.NewHTTPProvider(addr), nil
	}

	if s.proc != nil {
		s.mu.Unlock()
		return types.Provider{}, ErrAlreadyStarted
	}
	s.mu.Unlock()

	provider, proc, err := s.launcher.Spawn(ctx, s.cfg.Network, s.cfg.Port)
	if err != nil {
		return types.Provider{}, fmt.Errorf("spawn local node: %w", err)
	}
	if proc != nil {
		s.mu.Lock()
		s.proc = proc
		s.mu.Unlock()
		s.logger.Info("local node started", zap.Int("pid", proc.PID()), zap.Stringer("provider", provider))
	}
	return provider, nil
}

// attempt runs one connection attempt bounded by the connection timeout. A timeout is
// reported as errAttemptTimedOut; everything else is fatal.
func (s *Supervisor) attempt(ctx context.Context, provider types.Provider) error {
	s.metrics.Attempts.WithLabelValues(s.Mode().String()).Inc()
	s.closeClient()

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectionTimeout)
	defer cancel()

	s.setState(StateConnecting)
	client, err := s.waitLive(attemptCtx, provider)
	if err != nil {
		return s.attemptErr(ctx, provider, err)
	}
	s.mu.Lock()
	s.client = client
	s.eth = ethclient.NewClient(client)
	s.mu.Unlock()

	s.setState(StateAwaitingGenesis)
	genesis, err := s.waitGenesis(attemptCtx, client)
	if err != nil {
		return s.attemptErr(ctx, provider, err)
	}

	chain := types.IdentifyNetwork(genesis)
	s.logger.Info("identified chain", zap.String("chain", string(chain)), zap.String("genesis", genesis.Hex()))
	if chain != s.cfg.Network {
		return fmt.Errorf("%w: %q (genesis %s), expected %q", ErrWrongChain, chain, genesis.Hex(), s.cfg.Network)
	}
	return nil
}

func (s *Supervisor) attemptErr(ctx context.Context, provider types.Provider, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("connect to %s: %w", redacted(provider), ctx.Err())
	}
	return fmt.Errorf("%w: %v", errAttemptTimedOut, err)
}

// waitLive dials the provider and polls until it answers with the eth API available.
func (s *Supervisor) waitLive(ctx context.Context, provider types.Provider) (*gethrpc.Client, error) {
	var client *gethrpc.Client
	err := s.poll(ctx, "liveness", s.cfg.LivenessInterval, func() error {
		if client == nil {
			c, err := provider.Dial(ctx)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			client = c
		}
		return checkLive(ctx, client)
	})
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, err
	}
	return client, nil
}

// checkLive asks the node for its API modules. Endpoints that do not implement rpc_modules
// are probed with eth_chainId instead.
func checkLive(ctx context.Context, client *gethrpc.Client) error {
	var modules map[string]string
	if err := client.CallContext(ctx, &modules, "rpc_modules"); err != nil {
		if !isMethodNotFound(err) {
			return err
		}
		var chainID hexutil.Big
		if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
			if isMethodNotFound(err) {
				return errMissingEthAPI
			}
			return err
		}
		return nil
	}
	if _, ok := modules["eth"]; !ok {
		return errMissingEthAPI
	}
	return nil
}

func isMethodNotFound(err error) bool {
	var rpcErr gethrpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == methodNotFoundCode
}

type genesisBlock struct {
	Hash common.Hash `json:"hash"`
}

// waitGenesis polls for block 0. Errors and a missing block both mean "not yet".
func (s *Supervisor) waitGenesis(ctx context.Context, client *gethrpc.Client) (common.Hash, error) {
	var hash common.Hash
	err := s.poll(ctx, "genesis", s.cfg.GenesisInterval, func() error {
		var block *genesisBlock
		if err := client.CallContext(ctx, &block, "eth_getBlockByNumber", "0x0", false); err != nil {
			return err
		}
		if block == nil {
			return errNoGenesis
		}
		hash = block.Hash
		return nil
	})
	return hash, err
}

// poll runs check at a fixed interval until it succeeds or ctx is done. On ctx expiry the
// last check error is returned alongside the context error.
func (s *Supervisor) poll(ctx context.Context, what string, interval time.Duration, check func() error) error {
	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = check()
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("node not ready yet", zap.String("check", what), zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		return fmt.Errorf("%w (last error: %v)", err, lastErr)
	}
	return err
}

// Stop closes the RPC client and terminates the local node, if any. It is idempotent and
// returns the supervisor to the idle state with the endpoint list it was created with.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	client := s.client
	s.proc, s.client, s.eth = nil, nil, nil
	s.resetLocked()
	s.mu.Unlock()

	if client != nil {
		client.Close()
	}
	if proc == nil {
		return nil
	}

	started := time.Now()
	if err := proc.Terminate(ctx); err != nil {
		if !errors.Is(err, types.ErrProcessGone) {
			return fmt.Errorf("terminate node: %w", err)
		}
		s.logger.Warn("cannot terminate node", zap.Error(err))
	}
	s.logger.Info("node terminated", zap.Duration("elapsed", time.Since(started)))
	return nil
}

// resetLocked returns the supervisor to the state it had after construction.
func (s *Supervisor) resetLocked() {
	s.state = StateIdle
	s.mode = ModeRemote
	if s.cfg.StartNode {
		s.mode = ModeLocal
	}
	s.fellBack = false
	s.candidates = append([]string(nil), s.endpoints...)
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) closeClient() {
	s.mu.Lock()
	client := s.client
	s.client, s.eth = nil, nil
	s.mu.Unlock()
	if client != nil {
		client.Close()
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrWrongChain):
		return "wrong_chain"
	case errors.Is(err, ErrConnectTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// redacted strips credentials from remote provider URLs before they are logged or returned.
func redacted(p types.Provider) types.Provider {
	if p.Kind() == types.ProviderHTTP {
		return types.NewHTTPProvider(internal.RedactURL(p.Address()))
	}
	return p
}
