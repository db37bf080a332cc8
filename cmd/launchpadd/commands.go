package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mintworks/launchpadd/api"
	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/config"
	"github.com/mintworks/launchpadd/db"
	"github.com/mintworks/launchpadd/ledger/evm"
	"github.com/mintworks/launchpadd/logger"
	"github.com/mintworks/launchpadd/metrics"
	"github.com/mintworks/launchpadd/reconciler"
)

// Version is stamped by the build.
var Version = "dev"

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(launchCmd())
	rootCmd.AddCommand(purchaseCmd())
	rootCmd.AddCommand(versionCmd())
}

func startCmd() *cobra.Command {
	var home string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the reconciler and the catalog API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			if cfg.LaunchpadAddress == "" {
				return fmt.Errorf("launchpad_address is not configured; edit %s",
					filepath.Join(home, "config", "launchpadd_config.json"))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			database, err := db.OpenFileDB(filepath.Join(home, cfg.DatabaseDir), cfg.DatabaseFile, true)
			if err != nil {
				return err
			}
			defer database.Close()

			// An empty signer key leaves the ledger client read-only, which
			// is all the reconciler needs.
			signerKey := os.Getenv(cfg.SignerKeyEnv)
			if signerKey == "" {
				log.Warn().Str("env", cfg.SignerKeyEnv).
					Msg("no signer key in environment; running read-only")
			}

			ledgerClient, err := evm.NewClient(ctx, cfg.LedgerRPCURL, cfg.LaunchpadAddress, signerKey, log)
			if err != nil {
				return err
			}

			cat := catalog.New(database)
			m := metrics.New()

			rec := reconciler.New(ledgerClient, cat, cfg, m, log)
			if err := rec.Start(ctx); err != nil {
				return err
			}
			defer rec.Stop()

			apiServer := api.NewServer(cat, m, log, cfg.APIPort)
			if err := apiServer.Start(); err != nil {
				return err
			}
			defer apiServer.Stop()

			log.Info().
				Str("rpc", cfg.LedgerRPCURL).
				Str("launchpad", cfg.LaunchpadAddress).
				Int("api_port", cfg.APIPort).
				Msg("launchpadd running")

			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	return cmd
}

func syncCmd() *cobra.Command {
	var home string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog up to the current chain head, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(home)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel, cfg.LogFormat)

			if cfg.LaunchpadAddress == "" {
				return fmt.Errorf("launchpad_address is not configured")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			database, err := db.OpenFileDB(filepath.Join(home, cfg.DatabaseDir), cfg.DatabaseFile, true)
			if err != nil {
				return err
			}
			defer database.Close()

			ledgerClient, err := evm.NewClient(ctx, cfg.LedgerRPCURL, cfg.LaunchpadAddress, "", log)
			if err != nil {
				return err
			}
			defer ledgerClient.Close()

			cat := catalog.New(database)
			rec := reconciler.New(ledgerClient, cat, cfg, metrics.New(), log)
			if err := rec.Bootstrap(ctx); err != nil {
				return err
			}

			// Each tick covers at most one bounded block range; loop until
			// the mark stops advancing.
			for {
				before, err := cat.LastBlock()
				if err != nil {
					return err
				}
				if err := rec.Tick(ctx); err != nil {
					return err
				}
				after, err := cat.LastBlock()
				if err != nil {
					return err
				}
				if after == before {
					fmt.Printf("catalog synced to block %d\n", after)
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print launchpadd version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Version:    %s\n", Version)
			fmt.Printf("Go Version: %s\n", runtime.Version())
		},
	}
}

func defaultHome() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".launchpadd"
	}
	return filepath.Join(dir, ".launchpadd")
}
