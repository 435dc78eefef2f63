package types_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/celestiaorg/ethnode/framework/testutil/fakenode"
	"github.com/celestiaorg/ethnode/framework/types"
	"github.com/stretchr/testify/require"
)

func TestProvider_String(t *testing.T) {
	require.Equal(t, "IPC(/tmp/rinkeby-30303)", types.NewIPCProvider("/tmp/rinkeby-30303").String())
	require.Equal(t, "HTTP(http://10.0.0.1:55555)", types.NewHTTPProvider("http://10.0.0.1:55555").String())
	require.Equal(t, "ProviderKind(7)", types.ProviderKind(7).String())
}

func TestProvider_Dial(t *testing.T) {
	node, err := fakenode.New()
	require.NoError(t, err)
	t.Cleanup(node.Close)

	call := func(t *testing.T, p types.Provider) {
		t.Helper()
		client, err := p.Dial(context.Background())
		require.NoError(t, err)
		defer client.Close()

		var version string
		require.NoError(t, client.CallContext(context.Background(), &version, "net_version"))
		require.Equal(t, "4", version)
	}

	t.Run("http", func(t *testing.T) {
		p := types.NewHTTPProvider(node.URL())
		require.Equal(t, types.ProviderHTTP, p.Kind())
		require.Equal(t, node.URL(), p.Address())
		call(t, p)
	})

	t.Run("ipc", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("unix sockets only")
		}
		dir, err := os.MkdirTemp("", "provider")
		require.NoError(t, err)
		t.Cleanup(func() { _ = os.RemoveAll(dir) })

		path := filepath.Join(dir, "node.ipc")
		_, err = types.NewIPCProvider(path).Dial(context.Background())
		require.Error(t, err, "dialing a missing socket must fail")

		require.NoError(t, node.ServeIPC(path))
		call(t, types.NewIPCProvider(path))
	})
}
