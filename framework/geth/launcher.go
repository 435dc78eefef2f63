package geth

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/celestiaorg/ethnode/framework/internal"
	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// LauncherConfig configures a Launcher.
type LauncherConfig struct {
	Logger *zap.Logger
	// WorkDir holds the node data directory and the logs directory.
	WorkDir string
	// Binary is the executable name or path (default: geth).
	Binary string
	// Stdout and Stderr receive the prefixed node output (default: os.Stdout, os.Stderr).
	Stdout io.Writer
	Stderr io.Writer
	// AdditionalStartArgs are appended to the node command line.
	AdditionalStartArgs []string
}

// Launcher spawns local geth processes.
type Launcher struct {
	cfg    LauncherConfig
	logger *zap.Logger

	mu      sync.Mutex
	binPath string
	version *version.Version
}

var _ types.Launcher = (*Launcher)(nil)

// NewLauncher returns a Launcher for cfg.
func NewLauncher(cfg LauncherConfig) *Launcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &Launcher{cfg: cfg, logger: cfg.Logger.With(zap.String("component", "geth-launcher"))}
}

// Binary locates the geth executable and checks its version. The result is cached.
func (l *Launcher) Binary(ctx context.Context) (string, *version.Version, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.binPath != "" {
		return l.binPath, l.version, nil
	}

	path, err := LocateBinary(l.cfg.Binary)
	if err != nil {
		return "", nil, err
	}
	v, err := CheckVersion(ctx, path)
	if err != nil {
		return "", nil, err
	}
	l.logger.Info("found geth", zap.String("version", v.String()), zap.String("path", path))
	l.binPath, l.version = path, v
	return path, v, nil
}

// DataDir returns the node data directory for network.
func (l *Launcher) DataDir(network types.Network) string {
	return filepath.Join(l.cfg.WorkDir, "ethereum", string(network))
}

// LogPath returns the file receiving the node's output.
func (l *Launcher) LogPath() string {
	return filepath.Join(l.cfg.WorkDir, "logs", "geth.log")
}

// Spawn starts a light rinkeby node and returns an IPC provider for it. Output copying
// runs in the background; Spawn returns as soon as the process has started.
func (l *Launcher) Spawn(ctx context.Context, network types.Network, port int) (types.Provider, types.Process, error) {
	bin, _, err := l.Binary(ctx)
	if err != nil {
		return types.Provider{}, nil, err
	}

	datadir := l.DataDir(network)
	logPath := l.LogPath()
	for _, dir := range []string{datadir, filepath.Dir(logPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.Provider{}, nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if port == 0 {
		if port, err = internal.FreePort(); err != nil {
			return types.Provider{}, nil, err
		}
	}

	// the system temp dir keeps the socket path under the ~100 character limit
	ipcPath := IPCPath(runtime.GOOS, os.TempDir(), network, port)
	args := append(BuildArgs(datadir, port, ipcPath), l.cfg.AdditionalStartArgs...)
	// geth honours the last --ipcpath, which may come from the additional args
	if p := internal.ParseCommandLineArgs(args)["ipcpath"]; p != "" {
		ipcPath = p
	}

	l.logger.Info("starting ethereum node", zap.String("cmd", strings.Join(append([]string{bin}, args...), " ")))
	proc, err := startProcess(l.logger, bin, args, logPath, l.cfg.Stdout, l.cfg.Stderr)
	if err != nil {
		return types.Provider{}, nil, err
	}
	return types.NewIPCProvider(ipcPath), proc, nil
}

// BuildArgs returns the geth command line for a light rinkeby node.
func BuildArgs(datadir string, port int, ipcPath string) []string {
	return []string{
		"--datadir=" + datadir,
		"--cache=32",
		"--syncmode=light",
		"--rinkeby",
		"--port=" + strconv.Itoa(port),
		"--ipcpath=" + ipcPath,
		"--nousb",
		"--verbosity", "3",
	}
}

// IPCPath builds a per network and port IPC endpoint so concurrent nodes never collide.
// On windows it is a named pipe.
func IPCPath(goos, tempDir string, network types.Network, port int) string {
	name := fmt.Sprintf("%s-%d", network, port)
	if goos == "windows" {
		return `\\.\pipe\` + name
	}
	return filepath.Join(tempDir, name)
}
