package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/celestiaorg/ethnode/framework/faucet"
	"github.com/celestiaorg/ethnode/framework/supervisor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newFaucetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faucet",
		Short: "Fund rinkeby accounts",
	}
	cmd.AddCommand(newDonateCmd(a), newSendCmd(a))
	return cmd
}

func newDonateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "donate <address>",
		Short: "Request test ether from the donation service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			f, err := faucet.New(a.logger, a.cfg.FaucetOptions()...)
			if err != nil {
				return err
			}
			ok, err := f.Donate(cmd.Context(), addr)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("donation to %s was not granted", addr.Hex())
			}
			return nil
		},
	}
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <address> <wei>",
		Short: "Transfer wei from the faucet account through a verified node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			value, ok := new(big.Int).SetString(args[1], 10)
			if !ok || value.Sign() <= 0 {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			return a.send(cmd.Context(), addr, value, cmd)
		},
	}
}

func (a *app) send(ctx context.Context, to common.Address, value *big.Int, cmd *cobra.Command) error {
	sup, err := supervisor.New(ctx, a.cfg.SupervisorConfig(a.logger))
	if err != nil {
		return err
	}
	defer func() { _ = sup.Stop(context.Background()) }()

	if err := sup.Start(ctx); err != nil {
		return err
	}
	f, err := faucet.New(a.logger, a.cfg.FaucetOptions()...)
	if err != nil {
		return err
	}
	hash, err := f.Send(ctx, sup.EthClient(), to, value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
