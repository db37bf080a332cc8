// Package orchestrator fronts the on-chain launchpad with local validation.
// Every mutating operation is checked against the mirrored catalog state
// before a transaction is built, so ineligible requests fail fast and free
// instead of reverting on chain. The orchestrator never writes the catalog:
// state changes arrive only through the reconciler observing ledger events.
package orchestrator

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/launch"
	"github.com/mintworks/launchpadd/ledger"
	"github.com/mintworks/launchpadd/metrics"
	"github.com/mintworks/launchpadd/store"
)

// Orchestrator validates and submits launchpad operations.
type Orchestrator struct {
	ledger  ledger.Client
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// now is split out so tests can pin the clock.
	now func() int64
}

// New creates an orchestrator over the given ledger and catalog.
func New(ledgerClient ledger.Client, cat *catalog.Catalog, m *metrics.Metrics, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:  ledgerClient,
		catalog: cat,
		metrics: m,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
		now:     func() int64 { return time.Now().Unix() },
	}
}

// CreateLaunch submits launch creation and returns the ledger-assigned ID.
// The catalog learns about the launch when its creation event reconciles.
func (o *Orchestrator) CreateLaunch(ctx context.Context, params ledger.CreateLaunchParams) (uint64, ledger.TxHandle, error) {
	if params.Name == "" || params.Symbol == "" {
		return 0, ledger.TxHandle{}, errors.New(errors.CodeValidation, "launch name and symbol are required")
	}
	if params.MaxSupply == 0 {
		return 0, ledger.TxHandle{}, errors.New(errors.CodeValidation, "launch supply must be positive")
	}

	launchID, tx, err := o.ledger.CreateLaunch(ctx, params)
	o.observeSubmission("create_launch", err)
	if err != nil {
		return 0, ledger.TxHandle{}, err
	}
	o.logger.Info().
		Uint64("launch_id", launchID).
		Str("name", params.Name).
		Str("tx_hash", tx.Hash.Hex()).
		Msg("launch created")
	return launchID, tx, nil
}

// ConfigurePhase validates and submits a phase configuration. Only the
// creator may configure, and terminal launches are immutable.
func (o *Orchestrator) ConfigurePhase(ctx context.Context, caller string, launchID uint64, params ledger.PhaseParams) (ledger.TxHandle, error) {
	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.RequireCreator(caller); err != nil {
		return ledger.TxHandle{}, err
	}
	cfg := launch.PhaseConfiguration{
		Price:        params.Price,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		MaxPerWallet: params.MaxPerWallet,
		MaxSupply:    params.MaxSupply,
		Configured:   true,
	}
	if err := l.ValidateConfigurePhase(params.Phase, cfg); err != nil {
		return ledger.TxHandle{}, err
	}

	tx, err := o.ledger.ConfigurePhase(ctx, launchID, params)
	o.observeSubmission("configure_phase", err)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	o.logger.Info().
		Uint64("launch_id", launchID).
		Str("phase", params.Phase.String()).
		Str("tx_hash", tx.Hash.Hex()).
		Msg("phase configuration submitted")
	return tx, nil
}

// StartLaunch moves a pending launch into active sales.
func (o *Orchestrator) StartLaunch(ctx context.Context, caller string, launchID uint64) (ledger.TxHandle, error) {
	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.RequireCreator(caller); err != nil {
		return ledger.TxHandle{}, err
	}
	configs, err := o.phaseConfigurations(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.ValidateStart(configs, o.now()); err != nil {
		return ledger.TxHandle{}, err
	}

	tx, err := o.ledger.StartLaunch(ctx, launchID)
	o.observeSubmission("start_launch", err)
	return tx, err
}

// CompleteLaunch ends an active launch.
func (o *Orchestrator) CompleteLaunch(ctx context.Context, caller string, launchID uint64) (ledger.TxHandle, error) {
	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.RequireCreator(caller); err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.ValidateComplete(); err != nil {
		return ledger.TxHandle{}, err
	}

	tx, err := o.ledger.CompleteLaunch(ctx, launchID)
	o.observeSubmission("complete_launch", err)
	return tx, err
}

// CancelLaunch cancels a launch from any non-terminal state.
func (o *Orchestrator) CancelLaunch(ctx context.Context, caller string, launchID uint64) (ledger.TxHandle, error) {
	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.RequireCreator(caller); err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.ValidateCancel(); err != nil {
		return ledger.TxHandle{}, err
	}

	tx, err := o.ledger.CancelLaunch(ctx, launchID)
	o.observeSubmission("cancel_launch", err)
	return tx, err
}

// AddToWhitelist registers addresses for a gated phase.
func (o *Orchestrator) AddToWhitelist(ctx context.Context, caller string, launchID uint64, phase launch.Phase, addrs []string) (ledger.TxHandle, error) {
	return o.setWhitelist(ctx, caller, launchID, phase, addrs, true)
}

// RemoveFromWhitelist drops addresses from a gated phase.
func (o *Orchestrator) RemoveFromWhitelist(ctx context.Context, caller string, launchID uint64, phase launch.Phase, addrs []string) (ledger.TxHandle, error) {
	return o.setWhitelist(ctx, caller, launchID, phase, addrs, false)
}

func (o *Orchestrator) setWhitelist(ctx context.Context, caller string, launchID uint64, phase launch.Phase, addrs []string, add bool) (ledger.TxHandle, error) {
	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if err := l.RequireCreator(caller); err != nil {
		return ledger.TxHandle{}, err
	}
	if !phase.Gated() {
		return ledger.TxHandle{}, errors.Newf(errors.CodeValidation,
			"phase %s has no whitelist", phase)
	}
	if l.Status.Terminal() {
		return ledger.TxHandle{}, errors.Newf(errors.CodeValidation,
			"launch %d is %s and its whitelist is frozen", l.ID, l.Status)
	}
	if len(addrs) == 0 {
		return ledger.TxHandle{}, errors.New(errors.CodeValidation, "no addresses given")
	}

	converted := make([]ethcommon.Address, 0, len(addrs))
	for _, a := range addrs {
		if !ethcommon.IsHexAddress(a) {
			return ledger.TxHandle{}, errors.Newf(errors.CodeValidation, "invalid address %q", a)
		}
		converted = append(converted, ethcommon.HexToAddress(a))
	}

	var tx ledger.TxHandle
	if add {
		tx, err = o.ledger.AddToWhitelist(ctx, launchID, phase, converted)
		o.observeSubmission("add_to_whitelist", err)
	} else {
		tx, err = o.ledger.RemoveFromWhitelist(ctx, launchID, phase, converted)
		o.observeSubmission("remove_from_whitelist", err)
	}
	return tx, err
}

// Purchase checks the buyer against the currently active phase and, only if
// every rule passes, submits the buy with the exact payment attached. A
// rejection carries the reason and costs the buyer nothing.
func (o *Orchestrator) Purchase(ctx context.Context, buyer string, launchID, quantity uint64, metadataRef string) (ledger.TxHandle, error) {
	if quantity == 0 {
		return ledger.TxHandle{}, errors.New(errors.CodeValidation, "quantity must be positive")
	}

	l, err := o.domainLaunch(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	if l.Status != launch.StatusActive {
		return ledger.TxHandle{}, o.reject(launch.ReasonPhaseNotActive, launchID, buyer)
	}

	configs, err := o.phaseConfigurations(launchID)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	active, ok := launch.ActivePhase(configs, o.now())
	if !ok {
		return ledger.TxHandle{}, o.reject(launch.ReasonPhaseNotActive, launchID, buyer)
	}
	cfg := configs[active]

	whitelisted := false
	if active.Gated() {
		var known bool
		whitelisted, known, err = o.catalog.WhitelistStatus(launchID, active.String(), buyer)
		if err != nil {
			return ledger.TxHandle{}, err
		}
		if !known {
			// The mirror has never seen this buyer; membership granted
			// before our start block or not yet reconciled still counts,
			// so ask the contract.
			whitelisted, err = o.ledger.IsWhitelisted(ctx, launchID, active, ethcommon.HexToAddress(buyer))
			if err != nil {
				return ledger.TxHandle{}, err
			}
		}
	}
	already, err := o.catalog.CountPurchases(launchID, active.String(), buyer)
	if err != nil {
		return ledger.TxHandle{}, err
	}

	eligible, reason := launch.CheckEligibility(launch.EligibilityInput{
		Phase:            active,
		Config:           cfg,
		ActivePhase:      active,
		HasActivePhase:   true,
		Whitelisted:      whitelisted,
		AlreadyPurchased: already,
		Quantity:         quantity,
	})
	if !eligible {
		return ledger.TxHandle{}, o.reject(reason, launchID, buyer)
	}

	payment := new(big.Int).Mul(cfg.Price, new(big.Int).SetUint64(quantity))
	tx, err := o.ledger.Purchase(ctx, launchID, quantity, payment, metadataRef)
	o.observeSubmission("purchase", err)
	if err != nil {
		return ledger.TxHandle{}, err
	}
	o.logger.Info().
		Uint64("launch_id", launchID).
		Str("buyer", buyer).
		Uint64("quantity", quantity).
		Str("phase", active.String()).
		Str("payment_wei", payment.String()).
		Str("tx_hash", tx.Hash.Hex()).
		Msg("purchase submitted")
	return tx, nil
}

func (o *Orchestrator) reject(reason launch.RejectionReason, launchID uint64, buyer string) error {
	o.metrics.PurchaseRejections.WithLabelValues(string(reason)).Inc()
	o.logger.Debug().
		Uint64("launch_id", launchID).
		Str("buyer", buyer).
		Str("reason", string(reason)).
		Msg("purchase rejected")
	return errors.Newf(errors.CodeEligibility, "purchase rejected: %s", reason).
		WithContext("reason", string(reason))
}

func (o *Orchestrator) observeSubmission(operation string, err error) {
	outcome := "submitted"
	if err != nil {
		outcome = "failed"
	}
	o.metrics.LedgerSubmissions.WithLabelValues(operation, outcome).Inc()
}

// domainLaunch loads a launch from the catalog into its state-machine form.
func (o *Orchestrator) domainLaunch(launchID uint64) (*launch.Launch, error) {
	row, err := o.catalog.GetLaunch(launchID)
	if err != nil {
		return nil, err
	}
	status, err := launch.ParseStatus(row.Status)
	if err != nil {
		return nil, err
	}
	phase := launch.PhaseNone
	if row.CurrentPhase != "" {
		if phase, err = launch.ParsePhase(row.CurrentPhase); err != nil {
			return nil, err
		}
	}
	return &launch.Launch{
		ID:           row.LaunchID,
		Collection:   row.CollectionAddress,
		Creator:      row.Creator,
		MaxSupply:    row.MaxSupply,
		TotalMinted:  row.TotalMinted,
		Status:       status,
		AutoProgress: row.AutoProgress,
		CurrentPhase: phase,
	}, nil
}

// phaseConfigurations loads a launch's phase configs into the pure form the
// phase clock and eligibility rules consume.
func (o *Orchestrator) phaseConfigurations(launchID uint64) (map[launch.Phase]launch.PhaseConfiguration, error) {
	rows, err := o.catalog.PhaseConfigs(launchID)
	if err != nil {
		return nil, err
	}
	out := make(map[launch.Phase]launch.PhaseConfiguration, len(rows))
	for _, row := range rows {
		phase, err := launch.ParsePhase(row.Phase)
		if err != nil {
			return nil, err
		}
		out[phase] = storedPhaseConfig(row)
	}
	return out, nil
}

func storedPhaseConfig(row store.PhaseConfig) launch.PhaseConfiguration {
	price, ok := new(big.Int).SetString(row.Price, 10)
	if !ok {
		price = big.NewInt(0)
	}
	return launch.PhaseConfiguration{
		Price:        price,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		MaxPerWallet: row.MaxPerWallet,
		MaxSupply:    row.MaxSupply,
		TotalSold:    row.TotalSold,
		Configured:   row.Configured,
	}
}
