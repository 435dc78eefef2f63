package geth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/celestiaorg/ethnode/framework/internal"
	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIPCPath(t *testing.T) {
	require.Equal(t, filepath.Join("/tmp", "rinkeby-30303"), IPCPath("linux", "/tmp", types.Rinkeby, 30303))
	require.Equal(t, filepath.Join("/tmp", "rinkeby-30304"), IPCPath("darwin", "/tmp", types.Rinkeby, 30304))
	require.Equal(t, `\\.\pipe\rinkeby-30303`, IPCPath("windows", `C:\Temp`, types.Rinkeby, 30303))
	require.NotEqual(t, IPCPath("linux", "/tmp", types.Rinkeby, 1), IPCPath("linux", "/tmp", types.Rinkeby, 2))
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs("/data/ethereum/rinkeby", 30303, "/tmp/rinkeby-30303")
	require.Equal(t, []string{"--verbosity", "3"}, args[len(args)-2:])

	parsed := internal.ParseCommandLineArgs(args)
	require.Equal(t, map[string]string{
		"datadir":   "/data/ethereum/rinkeby",
		"cache":     "32",
		"syncmode":  "light",
		"rinkeby":   "",
		"port":      "30303",
		"ipcpath":   "/tmp/rinkeby-30303",
		"nousb":     "",
		"verbosity": "",
	}, parsed)
}

// syncBuffer is a bytes.Buffer safe to read while the copy goroutine writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLauncher(t *testing.T, bin string, stdout, stderr io.Writer) *Launcher {
	t.Helper()
	return NewLauncher(LauncherConfig{
		Logger:  zaptest.NewLogger(t),
		WorkDir: t.TempDir(),
		Binary:  bin,
		Stdout:  stdout,
		Stderr:  stderr,
	})
}

func waitDone(t *testing.T, p types.Process) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process %d did not exit in time", p.PID())
	}
}

func TestSpawn_LogCopy(t *testing.T) {
	const lines = 50
	bin := writeFakeGeth(t, "1.7.3-stable",
		fmt.Sprintf(`i=1; while [ $i -le %d ]; do echo "out $i"; echo "err $i" >&2; i=$((i+1)); done`, lines))

	var stdout, stderr bytes.Buffer
	l := newTestLauncher(t, bin, &stdout, &stderr)

	provider, proc, err := l.Spawn(context.Background(), types.Rinkeby, 30399)
	require.NoError(t, err)
	require.Equal(t, types.ProviderIPC, provider.Kind())
	require.Equal(t, IPCPath("linux", os.TempDir(), types.Rinkeby, 30399), provider.Address())
	require.DirExists(t, l.DataDir(types.Rinkeby))

	waitDone(t, proc)

	var wantOut, wantErr strings.Builder
	var wantLog []string
	for i := 1; i <= lines; i++ {
		fmt.Fprintf(&wantOut, "GETHO: out %d\n", i)
		fmt.Fprintf(&wantErr, "GETH: err %d\n", i)
		wantLog = append(wantLog, fmt.Sprintf("out %d", i), fmt.Sprintf("err %d", i))
	}
	require.Equal(t, wantOut.String(), stdout.String())
	require.Equal(t, wantErr.String(), stderr.String())

	logBz, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(logBz), "\n"))
	gotLog := strings.Split(strings.TrimSuffix(string(logBz), "\n"), "\n")
	sort.Strings(gotLog)
	sort.Strings(wantLog)
	require.Equal(t, wantLog, gotLog)

	require.ErrorIs(t, proc.Terminate(context.Background()), types.ErrProcessGone)
}

func TestSpawn_PartialLastLine(t *testing.T) {
	bin := writeFakeGeth(t, "1.7.3-stable", `printf "no newline"`)

	var stdout, stderr bytes.Buffer
	l := newTestLauncher(t, bin, &stdout, &stderr)

	_, proc, err := l.Spawn(context.Background(), types.Rinkeby, 30398)
	require.NoError(t, err)
	waitDone(t, proc)

	require.Equal(t, "GETHO: no newline", stdout.String())
	require.Empty(t, stderr.String())
	logBz, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	require.Equal(t, "no newline", string(logBz))
}

func TestSpawn_PassesArgs(t *testing.T) {
	bin := writeFakeGeth(t, "1.7.2-stable", `echo "$@"`)

	var stdout, stderr bytes.Buffer
	l := newTestLauncher(t, bin, &stdout, &stderr)

	provider, proc, err := l.Spawn(context.Background(), types.Rinkeby, 0)
	require.NoError(t, err)
	waitDone(t, proc)

	out := strings.TrimSpace(strings.TrimPrefix(stdout.String(), stdoutPrefix))
	parsed := internal.ParseCommandLineArgs(strings.Fields(out))
	require.Equal(t, provider.Address(), parsed["ipcpath"])
	require.Equal(t, l.DataDir(types.Rinkeby), parsed["datadir"])
	require.NotEqual(t, "0", parsed["port"])
	require.True(t, strings.HasSuffix(provider.Address(), "-"+parsed["port"]))
}

func TestSpawn_IPCPathOverride(t *testing.T) {
	bin := writeFakeGeth(t, "1.7.2-stable", `echo "$@"`)
	custom := filepath.Join(t.TempDir(), "custom.ipc")

	var stdout, stderr bytes.Buffer
	l := NewLauncher(LauncherConfig{
		Logger:              zaptest.NewLogger(t),
		WorkDir:             t.TempDir(),
		Binary:              bin,
		Stdout:              &stdout,
		Stderr:              &stderr,
		AdditionalStartArgs: []string{"--ipcpath=" + custom},
	})

	provider, proc, err := l.Spawn(context.Background(), types.Rinkeby, 30303)
	require.NoError(t, err)
	waitDone(t, proc)

	require.Equal(t, types.NewIPCProvider(custom), provider)
	require.Contains(t, stdout.String(), "--ipcpath="+custom)
}

func TestSpawn_Terminate(t *testing.T) {
	bin := writeFakeGeth(t, "1.7.3-stable", `echo started; exec sleep 30`)

	var stdout, stderr syncBuffer
	l := newTestLauncher(t, bin, &stdout, &stderr)

	_, proc, err := l.Spawn(context.Background(), types.Rinkeby, 30397)
	require.NoError(t, err)
	require.Greater(t, proc.PID(), 0)
	require.Eventually(t, func() bool {
		return stdout.String() == "GETHO: started\n"
	}, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, proc.Terminate(ctx))

	select {
	case <-proc.Done():
	default:
		t.Fatal("Done not closed after Terminate")
	}
	require.Error(t, proc.(*Process).ExitErr())
	require.Equal(t, "GETHO: started\n", stdout.String())

	require.ErrorIs(t, proc.Terminate(ctx), types.ErrProcessGone)
}

func TestSpawn_IncompatibleBinary(t *testing.T) {
	bin := writeFakeGeth(t, "1.7.1-stable", "exit 0")
	l := newTestLauncher(t, bin, &bytes.Buffer{}, &bytes.Buffer{})

	_, proc, err := l.Spawn(context.Background(), types.Rinkeby, 30396)
	require.ErrorIs(t, err, ErrIncompatibleVersion)
	require.Nil(t, proc)
}

func TestSpawn_MissingBinary(t *testing.T) {
	l := newTestLauncher(t, "geth-does-not-exist-7f3a", &bytes.Buffer{}, &bytes.Buffer{})

	_, _, err := l.Spawn(context.Background(), types.Rinkeby, 30395)
	require.ErrorIs(t, err, ErrBinaryNotFound)
}
