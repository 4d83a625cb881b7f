// Command raftd runs a single consensus replica per SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/colinmarsh/raftd/internal/config"
	"github.com/colinmarsh/raftd/internal/telemetry"
	"github.com/colinmarsh/raftd/raft"
	"github.com/colinmarsh/raftd/transport/raftnet"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		devLog     bool
	)

	cmd := &cobra.Command{
		Use:   "raftd",
		Short: "run a single consensus replica",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, devLog)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML cluster topology file")
	cmd.Flags().BoolVar(&devLog, "dev", false, "use human-readable development logging")

	return cmd
}

func run(configPath string, devLog bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.NewLogger(devLog)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	collector := telemetry.NewCollector(registry, cfg.NodeID)

	client := raftnet.NewClient(nil, cfg.AddressOf)

	replica := raft.NewReplica(
		cfg.NodeID,
		cfg.PeerIDs(),
		client,
		raft.WithConfig(raft.Config{
			HeartbeatTimeout: cfg.HeartbeatTimeout,
			ElectionTimeout:  cfg.ElectionTimeout,
		}),
		raft.WithLogger(logger),
		raft.WithMetrics(collector),
	)

	mux := raftnet.NewGorillaMux()
	raftnet.NewServer(replica).Install(mux)
	mux.Router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replica.Start(ctx)
	defer replica.Stop()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("listening", "node", cfg.NodeID, "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-sigCh:
		logger.Infow("shutting down", "node", cfg.NodeID)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HeartbeatTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}
}
