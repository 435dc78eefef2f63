package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celestiaorg/ethnode/framework/supervisor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func newConnectCmd(a *app) *cobra.Command {
	var (
		startNode bool
		addr      string
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a node and keep the connection until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("start-node") {
				a.cfg.Node.StartNode = startNode
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.Node.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.connect(ctx)
		},
	}
	cmd.Flags().BoolVar(&startNode, "start-node", false, "spawn a local geth instead of using remote endpoints")
	cmd.Flags().StringVar(&addr, "addr", "", "use this RPC endpoint instead of discovery")
	return cmd
}

func (a *app) connect(ctx context.Context) error {
	supCfg := a.cfg.SupervisorConfig(a.logger)
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		supCfg.Metrics = supervisor.NewMetrics(reg)
		srv := a.serveMetrics(reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sup, err := supervisor.New(ctx, supCfg)
	if err != nil {
		return err
	}

	var hooks []func()
	sup.RegisterShutdown(func(f func()) { hooks = append(hooks, f) })
	defer func() {
		for _, f := range hooks {
			f()
		}
	}()

	if err := sup.Start(ctx); err != nil {
		return err
	}

	eth := sup.EthClient()
	if head, err := eth.BlockNumber(ctx); err == nil {
		a.logger.Info("node ready", zap.Uint64("head", head), zap.Stringer("mode", sup.Mode()))
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sup.Stop(stopCtx)
}

func (a *app) serveMetrics(reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", srv.Addr))
	return srv
}
