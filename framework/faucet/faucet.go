// Package faucet funds test accounts on rinkeby, either from the well-known faucet key or
// through the public donation service.
package faucet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"
)

const (
	// DefaultDonateURL is the base URL of the donation service; the hex address is appended.
	DefaultDonateURL = "http://188.165.227.180:4000/donate"

	// transfers are legacy transactions with a fixed price and the intrinsic gas of a plain transfer.
	gasPrice = 1
	gasLimit = 21000
)

// keySeed is the faucet private key: the text right-padded with spaces to 32 bytes.
var keySeed = fmt.Sprintf("%-32s", "Golem Faucet")

// TxSender is the subset of ethclient.Client used to submit transfers.
type TxSender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// Faucet signs transfers from the shared faucet account.
type Faucet struct {
	logger    *zap.Logger
	key       *ecdsa.PrivateKey
	address   common.Address
	donateURL string
	client    *http.Client
}

// Option configures a Faucet.
type Option func(*Faucet)

// WithKey replaces the faucet key.
func WithKey(key *ecdsa.PrivateKey) Option {
	return func(f *Faucet) { f.key = key }
}

// WithDonateURL overrides the donation service base URL.
func WithDonateURL(url string) Option {
	return func(f *Faucet) { f.donateURL = url }
}

// WithHTTPClient overrides the client used for donation requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Faucet) { f.client = c }
}

// New returns a Faucet using the well-known faucet key unless WithKey is given.
func New(logger *zap.Logger, opts ...Option) (*Faucet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Faucet{
		logger:    logger.With(zap.String("component", "faucet")),
		donateURL: DefaultDonateURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.key == nil {
		key, err := crypto.ToECDSA([]byte(keySeed))
		if err != nil {
			return nil, fmt.Errorf("faucet key: %w", err)
		}
		f.key = key
	}
	f.address = crypto.PubkeyToAddress(f.key.PublicKey)
	return f, nil
}

// Address returns the faucet account.
func (f *Faucet) Address() common.Address { return f.address }

// Send transfers value wei from the faucet account to the given address and returns the
// transaction hash.
func (f *Faucet) Send(ctx context.Context, sender TxSender, to common.Address, value *big.Int) (common.Hash, error) {
	nonce, err := sender.PendingNonceAt(ctx, f.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, big.NewInt(gasPrice), nil)
	signed, err := ethtypes.SignTx(tx, ethtypes.HomesteadSigner{}, f.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := sender.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	f.logger.Info("faucet transfer",
		zap.String("ether", ToEther(value)),
		zap.String("to", to.Hex()),
		zap.String("tx", signed.Hash().Hex()),
	)
	return signed.Hash(), nil
}

// ToEther formats a wei amount in ether with six decimals.
func ToEther(wei *big.Int) string {
	if wei == nil {
		return "0.000000"
	}
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt64(params.Ether))
	return ether.Text('f', 6)
}
