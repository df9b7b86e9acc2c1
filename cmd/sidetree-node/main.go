/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command sidetree-node runs a Sidetree Layer-2 node: it wires the
// node's stores, protocol versions, and the pkg/core orchestrator, and
// keeps the process alive until asked to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trustbloc/sidetree-svc-go/pkg/config"
	"github.com/trustbloc/sidetree-svc-go/pkg/core"
	"github.com/trustbloc/sidetree-svc-go/pkg/download"
	"github.com/trustbloc/sidetree-svc-go/pkg/mocks"
	"github.com/trustbloc/sidetree-svc-go/pkg/storage/bolt"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	cfg := defaults

	root := &cobra.Command{
		Use:     "sidetree-node",
		Short:   "Run a Sidetree Layer-2 DID node",
		Version: version,
	}

	root.PersistentFlags().StringVar(&cfg.Namespace, "namespace", defaults.Namespace, "DID method namespace")
	root.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", defaults.DataDir, "node data directory")
	root.PersistentFlags().DurationVar(&cfg.ObservingInterval, "observing-interval", defaults.ObservingInterval,
		"period between Observer ticks (0 disables the Observer)")
	root.PersistentFlags().DurationVar(&cfg.BatchingInterval, "batching-interval", defaults.BatchingInterval,
		"period between BatchWriter cuts (0 disables the BatchWriter)")
	root.PersistentFlags().Int64Var(&cfg.MaxConcurrentDownloads, "max-concurrent-downloads",
		defaults.MaxConcurrentDownloads, "bound on outstanding concurrent CAS reads")
	root.PersistentFlags().StringVar(&cfg.ProtocolParametersPath, "protocol-parameters",
		defaults.ProtocolParametersPath, "path to the protocol parameters JSON file")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "debug|info|warn|error")

	dryRun := false

	start := &cobra.Command{
		Use:   "start",
		Short: "Validate configuration and run the node",
		RunE: func(*cobra.Command, []string) error {
			return runStart(cfg, dryRun)
		},
	}
	start.Flags().BoolVar(&dryRun, "dry-run", false, "print the effective configuration and exit")

	root.AddCommand(start)
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the node version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)

			return nil
		},
	})

	return root
}

func runStart(cfg config.NodeConfig, dryRun bool) error {
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if dryRun {
		raw, err := config.Print(cfg)
		if err != nil {
			return err
		}

		fmt.Println(string(raw))

		return nil
	}

	initLogging(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	stores, err := bolt.Open(filepath.Join(cfg.DataDir, "sidetree.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer stores.Close() //nolint:errcheck

	// AnchorChain/CAS are ledger-specific integrations this node
	// doesn't implement (spec.md's External interfaces section defines
	// the contracts only); mocks.AnchorChain/mocks.CAS stand in for a
	// single-process local ledger so the binary is runnable out of the
	// box. A real deployment replaces both with a binding to its
	// underlying ledger and content-addressable store.
	chain := mocks.NewAnchorChain(nil)
	casClient := mocks.NewCAS(nil)

	dl := download.New(casClient, cfg.MaxConcurrentDownloads)

	versions, err := config.LoadProtocolVersions(cfg.ProtocolParametersPath, casClient, dl)
	if err != nil {
		return fmt.Errorf("load protocol parameters: %w", err)
	}

	c, err := core.New(versions, core.Stores{
		Operation:    stores.OperationStore(),
		Transaction:  stores.TransactionStore(),
		Unresolvable: stores.UnresolvableTransactionStore(),
		ServiceState: stores.ServiceStateStore(),
	}, chain, casClient, config.CoreConfig(cfg), nil)
	if err != nil {
		return fmt.Errorf("build core: %w", err)
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("start core: %w", err)
	}

	cliLog.Info().Str("namespace", cfg.Namespace).Str("dataDir", cfg.DataDir).Msg("sidetree-node started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	cliLog.Info().Msg("sidetree-node stopping")
	c.Stop()
	cliLog.Info().Msg("sidetree-node stopped")

	return nil
}
