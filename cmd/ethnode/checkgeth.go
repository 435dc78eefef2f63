package main

import (
	"fmt"

	"github.com/celestiaorg/ethnode/framework/geth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckGethCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-geth",
		Short: "Locate geth and check that its version is supported",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := geth.LocateBinary(a.cfg.Node.GethBinary)
			if err != nil {
				return err
			}
			v, err := geth.CheckVersion(cmd.Context(), path)
			if err != nil {
				return err
			}
			a.logger.Info("geth is compatible", zap.String("path", path), zap.Stringer("version", v))
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", path, v)
			return nil
		},
	}
}
