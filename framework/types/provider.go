package types

import (
	"context"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// ProviderKind identifies the transport an RPC provider speaks.
type ProviderKind int

const (
	// ProviderIPC is a unix socket path, or a named pipe on windows.
	ProviderIPC ProviderKind = iota
	// ProviderHTTP is an HTTP(S) endpoint URL.
	ProviderHTTP
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderIPC:
		return "IPC"
	case ProviderHTTP:
		return "HTTP"
	default:
		return fmt.Sprintf("ProviderKind(%d)", int(k))
	}
}

// Provider is an immutable description of where a node's JSON-RPC interface lives.
// A fresh Provider is created for every connection attempt.
type Provider struct {
	kind    ProviderKind
	address string
}

// NewIPCProvider returns a provider bound to a local IPC path.
func NewIPCProvider(path string) Provider {
	return Provider{kind: ProviderIPC, address: path}
}

// NewHTTPProvider returns a provider bound to a remote HTTP(S) endpoint. The url is used as-is.
func NewHTTPProvider(url string) Provider {
	return Provider{kind: ProviderHTTP, address: url}
}

// Kind returns the transport of the provider.
func (p Provider) Kind() ProviderKind { return p.kind }

// Address returns the IPC path or HTTP URL of the provider.
func (p Provider) Address() string { return p.address }

func (p Provider) String() string {
	return fmt.Sprintf("%s(%s)", p.kind, p.address)
}

// Dial opens a go-ethereum RPC client for the provider. IPC dials connect eagerly and fail
// while the socket does not exist yet; HTTP dials never touch the network.
func (p Provider) Dial(ctx context.Context) (*gethrpc.Client, error) {
	switch p.kind {
	case ProviderIPC:
		return gethrpc.DialIPC(ctx, p.address)
	case ProviderHTTP:
		return gethrpc.DialOptions(ctx, p.address)
	default:
		return nil, fmt.Errorf("unsupported provider kind %s", p.kind)
	}
}
