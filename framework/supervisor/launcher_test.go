package supervisor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/celestiaorg/ethnode/framework/geth"
	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/stretchr/testify/require"
)

// recordingLauncher keeps the processes spawned by a real geth.Launcher.
type recordingLauncher struct {
	*geth.Launcher

	mu    sync.Mutex
	procs []types.Process
}

func (l *recordingLauncher) Spawn(ctx context.Context, network types.Network, port int) (types.Provider, types.Process, error) {
	provider, proc, err := l.Launcher.Spawn(ctx, network, port)
	if proc != nil {
		l.mu.Lock()
		l.procs = append(l.procs, proc)
		l.mu.Unlock()
	}
	return provider, proc, err
}

// writeSleepingGeth writes a geth stand-in that passes the version check and then idles
// without ever opening its IPC endpoint.
func writeSleepingGeth(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping: shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "geth")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"version\" ]; then\n" +
		"  echo Geth\n" +
		"  echo \"Version: 1.7.3-stable\"\n" +
		"  exit 0\n" +
		"fi\n" +
		"echo booting\n" +
		"exec sleep 30\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestStart_LocalGethTimesOut(t *testing.T) {
	cfg := testConfig(t)
	var stdout, stderr bytes.Buffer
	launcher := &recordingLauncher{Launcher: geth.NewLauncher(geth.LauncherConfig{
		Logger:  cfg.Logger,
		WorkDir: cfg.DataDir,
		Binary:  writeSleepingGeth(t),
		Stdout:  &stdout,
		Stderr:  &stderr,
	})}
	cfg.StartNode = true
	cfg.Launcher = launcher
	s := newSupervisor(t, cfg)

	err := s.Start(context.Background())
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.Contains(t, err.Error(), "IPC(")
	require.Equal(t, StateFailed, s.State())
	require.True(t, s.IsRunning())
	require.Len(t, launcher.procs, 1)

	proc := launcher.procs[0]
	select {
	case <-proc.Done():
		t.Fatal("node exited before Stop")
	default:
	}

	require.NoError(t, s.Stop(context.Background()))
	require.False(t, s.IsRunning())
	select {
	case <-proc.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("node still running after Stop")
	}
	require.FileExists(t, launcher.LogPath())
}
