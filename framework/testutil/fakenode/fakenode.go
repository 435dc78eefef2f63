// Package fakenode serves a minimal in-process Ethereum JSON-RPC node over HTTP or IPC.
// It answers just enough of the eth namespace to drive connection and faucet tests.
package fakenode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Node is a fake Ethereum node.
type Node struct {
	server *gethrpc.Server
	http   *httptest.Server

	mu            sync.Mutex
	genesis       *common.Hash
	genesisDelay  int
	genesisCalls  int
	nonces        map[common.Address]uint64
	transactions  []*ethtypes.Transaction
	listeners     []net.Listener
	withoutEthAPI bool
	hideModules   bool
}

// Option configures a Node.
type Option func(*Node)

// WithGenesis sets the hash returned for block 0.
func WithGenesis(hash common.Hash) Option {
	return func(n *Node) { n.genesis = &hash }
}

// WithoutGenesis makes block 0 unavailable.
func WithoutGenesis() Option {
	return func(n *Node) { n.genesis = nil }
}

// WithGenesisDelay makes the first calls for block 0 return null.
func WithGenesisDelay(calls int) Option {
	return func(n *Node) { n.genesisDelay = calls }
}

// WithoutEthAPI registers only the net namespace, so the node answers but lacks the eth API.
func WithoutEthAPI() Option {
	return func(n *Node) { n.withoutEthAPI = true }
}

// WithoutModulesAPI answers rpc_modules over HTTP with "method not found", like many
// hosted endpoints do.
func WithoutModulesAPI() Option {
	return func(n *Node) { n.hideModules = true }
}

// New starts a fake node serving HTTP. Call Close when done.
func New(opts ...Option) (*Node, error) {
	n := &Node{nonces: make(map[common.Address]uint64)}
	for _, opt := range opts {
		opt(n)
	}

	n.server = gethrpc.NewServer()
	if !n.withoutEthAPI {
		if err := n.server.RegisterName("eth", &ethAPI{node: n}); err != nil {
			return nil, fmt.Errorf("register eth api: %w", err)
		}
	}
	if err := n.server.RegisterName("net", &netAPI{}); err != nil {
		return nil, fmt.Errorf("register net api: %w", err)
	}
	var handler http.Handler = n.server
	if n.hideModules {
		handler = hideMethod(handler, "rpc_modules")
	}
	n.http = httptest.NewServer(handler)
	return n, nil
}

// URL returns the HTTP endpoint of the node.
func (n *Node) URL() string { return n.http.URL }

// ServeIPC additionally serves the node on a unix socket at path.
func (n *Node) ServeIPC(path string) error {
	l, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()
	go func() { _ = n.server.ServeListener(l) }()
	return nil
}

// Close stops all listeners and the RPC server.
func (n *Node) Close() {
	n.http.Close()
	n.mu.Lock()
	for _, l := range n.listeners {
		_ = l.Close()
	}
	n.mu.Unlock()
	n.server.Stop()
}

// SetNonce sets the pending nonce reported for addr.
func (n *Node) SetNonce(addr common.Address, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[addr] = nonce
}

// Transactions returns the transactions submitted so far.
func (n *Node) Transactions() []*ethtypes.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), n.transactions...)
}

// GenesisCalls returns how many times block 0 was requested.
func (n *Node) GenesisCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.genesisCalls
}

// hideMethod rejects single JSON-RPC requests for method before they reach next.
func hideMethod(next http.Handler, method string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if json.Unmarshal(body, &req) == nil && req.Method == method {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error": map[string]interface{}{
					"code":    -32601,
					"message": fmt.Sprintf("the method %s does not exist/is not available", method),
				},
			})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

type ethAPI struct {
	node *Node
}

// GetBlockByNumber answers eth_getBlockByNumber for block 0 only.
func (api *ethAPI) GetBlockByNumber(number string, fullTx bool) (map[string]interface{}, error) {
	n := api.node
	n.mu.Lock()
	defer n.mu.Unlock()

	if number != "0x0" {
		return nil, nil
	}
	n.genesisCalls++
	if n.genesis == nil || n.genesisCalls <= n.genesisDelay {
		return nil, nil
	}
	return map[string]interface{}{
		"number":     "0x0",
		"hash":       *n.genesis,
		"parentHash": common.Hash{},
	}, nil
}

// ChainId answers eth_chainId with the rinkeby chain id.
func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(4))
}

// GetTransactionCount answers eth_getTransactionCount.
func (api *ethAPI) GetTransactionCount(addr common.Address, block string) (hexutil.Uint64, error) {
	api.node.mu.Lock()
	defer api.node.mu.Unlock()
	return hexutil.Uint64(api.node.nonces[addr]), nil
}

// SendRawTransaction answers eth_sendRawTransaction and records the decoded transaction.
func (api *ethAPI) SendRawTransaction(data hexutil.Bytes) (common.Hash, error) {
	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return common.Hash{}, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.To() == nil {
		return common.Hash{}, errors.New("contract creation not supported")
	}
	api.node.mu.Lock()
	api.node.transactions = append(api.node.transactions, tx)
	api.node.mu.Unlock()
	return tx.Hash(), nil
}

type netAPI struct{}

// Version answers net_version.
func (netAPI) Version() string { return "4" }
