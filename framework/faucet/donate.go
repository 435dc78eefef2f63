package faucet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type donateResponse struct {
	PayDate int64       `json:"paydate"`
	Amount  json.Number `json:"amount"`
	Message string      `json:"message"`
}

// Donate asks the donation service to fund addr. It returns false when the service
// refused or postponed the payment; errors are reserved for transport failures.
func (f *Faucet) Donate(ctx context.Context, addr common.Address) (bool, error) {
	url := strings.TrimSuffix(f.donateURL, "/") + "/" + strings.TrimPrefix(strings.ToLower(addr.Hex()), "0x")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("create donate request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("donate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("faucet donation failed", zap.Int("status", resp.StatusCode))
		return false, nil
	}

	var body donateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode donate response: %w", err)
	}
	if body.PayDate == 0 {
		f.logger.Warn("faucet donation postponed", zap.String("message", body.Message))
		return false, nil
	}

	amount, ok := new(big.Int).SetString(body.Amount.String(), 10)
	if !ok {
		return false, fmt.Errorf("invalid donation amount %q", body.Amount)
	}
	// the service reports an unreliable pay date, usually in the past
	f.logger.Info("faucet donation",
		zap.String("ether", ToEther(amount)),
		zap.Time("paydate", time.Unix(body.PayDate, 0)),
	)
	return true, nil
}
