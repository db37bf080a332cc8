package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/config"
	"github.com/mintworks/launchpadd/db"
	"github.com/mintworks/launchpadd/launch"
	"github.com/mintworks/launchpadd/ledger"
	"github.com/mintworks/launchpadd/ledger/evm"
	"github.com/mintworks/launchpadd/logger"
	"github.com/mintworks/launchpadd/metrics"
	"github.com/mintworks/launchpadd/orchestrator"
	"github.com/mintworks/launchpadd/pinning"
)

// cliEnv bundles what every creator/buyer subcommand needs. These commands
// run against the same catalog the daemon maintains, so eligibility checks
// see the latest reconciled state.
type cliEnv struct {
	cfg    *config.Config
	log    zerolog.Logger
	client *evm.Client
	orch   *orchestrator.Orchestrator
	m      *metrics.Metrics
	caller string
	close  func()
}

func openEnv(ctx context.Context, home string) (*cliEnv, error) {
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.LaunchpadAddress == "" {
		return nil, fmt.Errorf("launchpad_address is not configured")
	}
	signerKey := os.Getenv(cfg.SignerKeyEnv)
	if signerKey == "" {
		return nil, fmt.Errorf("signing key required: set %s", cfg.SignerKeyEnv)
	}

	client, err := evm.NewClient(ctx, cfg.LedgerRPCURL, cfg.LaunchpadAddress, signerKey, log)
	if err != nil {
		return nil, err
	}
	database, err := db.OpenFileDB(filepath.Join(home, cfg.DatabaseDir), cfg.DatabaseFile, true)
	if err != nil {
		client.Close()
		return nil, err
	}

	m := metrics.New()
	return &cliEnv{
		cfg:    cfg,
		log:    log,
		client: client,
		orch:   orchestrator.New(client, catalog.New(database), m, log),
		m:      m,
		caller: client.SignerAddress().Hex(),
		close: func() {
			database.Close()
			client.Close()
		},
	}, nil
}

func launchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Creator-side launch operations",
	}
	cmd.AddCommand(createLaunchCmd())
	cmd.AddCommand(configurePhaseCmd())
	cmd.AddCommand(transitionCmd("start", "Start a pending launch"))
	cmd.AddCommand(transitionCmd("complete", "Complete an active launch"))
	cmd.AddCommand(transitionCmd("cancel", "Cancel a non-terminal launch"))
	cmd.AddCommand(whitelistCmd())
	return cmd
}

func createLaunchCmd() *cobra.Command {
	var home, name, symbol, description, imageURI string
	var maxSupply uint64
	var autoProgress bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new launch with its collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), home)
			if err != nil {
				return err
			}
			defer env.close()

			id, tx, err := env.orch.CreateLaunch(cmd.Context(), ledger.CreateLaunchParams{
				Name:         name,
				Symbol:       symbol,
				Description:  description,
				ImageURI:     imageURI,
				MaxSupply:    maxSupply,
				AutoProgress: autoProgress,
			})
			if err != nil {
				return err
			}
			fmt.Printf("launch %d created (tx %s)\n", id, tx.Hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	cmd.Flags().StringVar(&name, "name", "", "collection name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "collection symbol")
	cmd.Flags().StringVar(&description, "description", "", "collection description")
	cmd.Flags().StringVar(&imageURI, "image", "", "collection image URI")
	cmd.Flags().Uint64Var(&maxSupply, "max-supply", 0, "total supply cap")
	cmd.Flags().BoolVar(&autoProgress, "auto-progress", false, "advance phases automatically")
	return cmd
}

func configurePhaseCmd() *cobra.Command {
	var home, phaseName, priceWei string
	var launchID, maxPerWallet, maxSupply uint64
	var startTime, endTime int64

	cmd := &cobra.Command{
		Use:   "configure-phase",
		Short: "Set or update a sales phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := launch.ParsePhase(phaseName)
			if err != nil {
				return err
			}
			price, ok := new(big.Int).SetString(priceWei, 10)
			if !ok {
				return fmt.Errorf("invalid price %q", priceWei)
			}

			env, err := openEnv(cmd.Context(), home)
			if err != nil {
				return err
			}
			defer env.close()

			tx, err := env.orch.ConfigurePhase(cmd.Context(), env.caller, launchID, ledger.PhaseParams{
				Phase:        phase,
				Price:        price,
				StartTime:    startTime,
				EndTime:      endTime,
				MaxPerWallet: maxPerWallet,
				MaxSupply:    maxSupply,
			})
			if err != nil {
				return err
			}
			fmt.Printf("phase %s configured (tx %s)\n", phase, tx.Hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	cmd.Flags().Uint64Var(&launchID, "launch", 0, "launch ID")
	cmd.Flags().StringVar(&phaseName, "phase", "", "presale, whitelist or public")
	cmd.Flags().StringVar(&priceWei, "price", "0", "per-item price in wei")
	cmd.Flags().Int64Var(&startTime, "start", 0, "window start (unix seconds)")
	cmd.Flags().Int64Var(&endTime, "end", 0, "window end (unix seconds)")
	cmd.Flags().Uint64Var(&maxPerWallet, "max-per-wallet", 0, "per-wallet cap")
	cmd.Flags().Uint64Var(&maxSupply, "max-supply", 0, "phase supply cap")
	return cmd
}

func transitionCmd(verb, short string) *cobra.Command {
	var home string
	var launchID uint64

	cmd := &cobra.Command{
		Use:   verb,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), home)
			if err != nil {
				return err
			}
			defer env.close()

			var tx ledger.TxHandle
			switch verb {
			case "start":
				tx, err = env.orch.StartLaunch(cmd.Context(), env.caller, launchID)
			case "complete":
				tx, err = env.orch.CompleteLaunch(cmd.Context(), env.caller, launchID)
			case "cancel":
				tx, err = env.orch.CancelLaunch(cmd.Context(), env.caller, launchID)
			}
			if err != nil {
				return err
			}
			fmt.Printf("launch %d %s submitted (tx %s)\n", launchID, verb, tx.Hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	cmd.Flags().Uint64Var(&launchID, "launch", 0, "launch ID")
	return cmd
}

func whitelistCmd() *cobra.Command {
	var home, phaseName string
	var launchID uint64
	var remove bool

	cmd := &cobra.Command{
		Use:   "whitelist [addresses...]",
		Short: "Add or remove whitelist addresses for a gated phase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := launch.ParsePhase(phaseName)
			if err != nil {
				return err
			}

			env, err := openEnv(cmd.Context(), home)
			if err != nil {
				return err
			}
			defer env.close()

			var tx ledger.TxHandle
			if remove {
				tx, err = env.orch.RemoveFromWhitelist(cmd.Context(), env.caller, launchID, phase, args)
			} else {
				tx, err = env.orch.AddToWhitelist(cmd.Context(), env.caller, launchID, phase, args)
			}
			if err != nil {
				return err
			}
			fmt.Printf("whitelist update for %d addresses submitted (tx %s)\n", len(args), tx.Hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	cmd.Flags().Uint64Var(&launchID, "launch", 0, "launch ID")
	cmd.Flags().StringVar(&phaseName, "phase", "", "presale or whitelist")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove instead of add")
	return cmd
}

func purchaseCmd() *cobra.Command {
	var home, metaName, metaDescription, metaImage string
	var launchID, quantity uint64

	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Buy from the active phase of a launch",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), home)
			if err != nil {
				return err
			}
			defer env.close()

			// Pin the item metadata first so the reference stored on chain
			// resolves by the time the mint confirms.
			metadataRef := ""
			if metaName != "" {
				pinner := pinning.New(
					env.cfg.PinningEndpoint,
					os.Getenv(env.cfg.PinningAPIKeyEnv),
					env.m, env.log,
				)
				metadataRef, err = pinner.PinJSON(cmd.Context(), metaName, pinning.ItemMetadata{
					Name:        metaName,
					Description: metaDescription,
					Image:       metaImage,
				})
				if err != nil {
					return err
				}
			}

			tx, err := env.orch.Purchase(cmd.Context(), env.caller, launchID, quantity, metadataRef)
			if err != nil {
				return err
			}
			fmt.Printf("purchase of %d submitted (tx %s)\n", quantity, tx.Hash.Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&home, "home", defaultHome(), "daemon home directory")
	cmd.Flags().Uint64Var(&launchID, "launch", 0, "launch ID")
	cmd.Flags().Uint64Var(&quantity, "quantity", 1, "number of items to buy")
	cmd.Flags().StringVar(&metaName, "meta-name", "", "item metadata name (pins before purchase)")
	cmd.Flags().StringVar(&metaDescription, "meta-description", "", "item metadata description")
	cmd.Flags().StringVar(&metaImage, "meta-image", "", "item metadata image URI")
	return cmd
}
