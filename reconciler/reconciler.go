// Package reconciler drives the catalog from ledger truth. It polls the
// chain head, pulls the launchpad and transfer events for each new block
// range, applies them to the catalog in chain order, and only then advances
// the high-water mark, so a crash at any point replays rather than skips.
package reconciler

import (
	"context"
	"strings"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/config"
	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/ledger"
	"github.com/mintworks/launchpadd/metrics"
)

// Reconciler is the single writer of the catalog.
type Reconciler struct {
	ledger   ledger.Client
	catalog  *catalog.Catalog
	cfg      *config.Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	retryCfg *errors.RetryConfig

	// tracked is the set of collection addresses (lowercased) whose
	// transfer events we apply. Launch collections join it as their
	// LaunchCreated events are observed; seeds join at startup.
	mu      sync.Mutex
	tracked map[string]bool

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

// New creates a reconciler. Start must be called to begin polling.
func New(
	ledgerClient ledger.Client,
	cat *catalog.Catalog,
	cfg *config.Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		ledger:  ledgerClient,
		catalog: cat,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "reconciler").Logger(),
		retryCfg: &errors.RetryConfig{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryBackoff(),
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		tracked: make(map[string]bool),
		stopCh:  make(chan struct{}),
	}
}

// Start loads the tracked-collection set and launches the polling loop.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.started {
		return errors.New(errors.CodeInternal, "reconciler already started")
	}
	if err := r.loadTracked(ctx); err != nil {
		return err
	}
	r.stopCh = make(chan struct{})
	r.started = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.PollingInterval())
		defer ticker.Stop()

		r.logger.Info().
			Dur("interval", r.cfg.PollingInterval()).
			Uint64("max_block_range", r.cfg.MaxBlockRange).
			Uint64("confirmation_depth", r.cfg.ConfirmationDepth).
			Msg("reconciler started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				if err := r.Tick(ctx); err != nil {
					r.metrics.ReconcileErrors.Inc()
					r.logger.Error().Err(err).Msg("reconcile tick failed")
				}
			}
		}
	}()
	return nil
}

// Stop halts the polling loop and waits for the in-flight tick.
func (r *Reconciler) Stop() {
	if !r.started {
		return
	}
	close(r.stopCh)
	r.wg.Wait()
	r.started = false
	r.logger.Info().Msg("reconciler stopped")
}

// Bootstrap loads the tracked-collection set without starting the polling
// loop. Start does this itself; callers driving Tick directly call it once
// first.
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	return r.loadTracked(ctx)
}

// loadTracked seeds the tracked-collection set from the catalog's known
// launches plus the configured seed addresses.
func (r *Reconciler) loadTracked(ctx context.Context) error {
	launches, err := r.catalog.ListLaunches("", -1, 0)
	if err != nil {
		return err
	}

	r.mu.Lock()
	for _, l := range launches {
		r.tracked[strings.ToLower(l.CollectionAddress)] = true
	}
	for _, addr := range r.cfg.SeedCollections {
		r.tracked[strings.ToLower(addr)] = true
	}
	r.mu.Unlock()

	for _, addr := range r.cfg.SeedCollections {
		info, err := r.ledger.GetCollectionInfo(ctx, ethcommon.HexToAddress(addr))
		if err != nil {
			r.logger.Warn().Err(err).Str("collection", addr).
				Msg("could not describe seed collection; tracking anyway")
			continue
		}
		r.logger.Info().Str("collection", addr).
			Str("name", info.Name).Str("symbol", info.Symbol).
			Msg("tracking seed collection")
	}
	return nil
}

func (r *Reconciler) isTracked(addr ethcommon.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tracked[strings.ToLower(addr.Hex())]
}

func (r *Reconciler) track(addr ethcommon.Address) {
	r.mu.Lock()
	r.tracked[strings.ToLower(addr.Hex())] = true
	r.mu.Unlock()
}

// Tick runs one reconciliation pass: pick the next confirmed block range,
// apply its events, advance the mark. The command layer's catch-up mode
// calls it directly in a loop instead of going through Start.
func (r *Reconciler) Tick(ctx context.Context) error {
	head, err := r.ledger.LatestBlock(ctx)
	if err != nil {
		return err
	}
	if head < r.cfg.ConfirmationDepth {
		return nil
	}
	safeHead := head - r.cfg.ConfirmationDepth

	last, err := r.catalog.LastBlock()
	if err != nil {
		return err
	}

	from := last + 1
	if r.cfg.StartBlock > from {
		from = r.cfg.StartBlock
	}
	if from > safeHead {
		return nil
	}

	to := safeHead
	if r.cfg.MaxBlockRange > 0 && to-from+1 > r.cfg.MaxBlockRange {
		to = from + r.cfg.MaxBlockRange - 1
	}

	events, err := r.ledger.FilterEvents(ctx, from, to)
	if err != nil {
		return err
	}

	for _, ev := range events {
		// Catalog and lookup failures are transient (the database is
		// local, the ledger reads retryable); events themselves are
		// already confirmed, so retrying is always safe.
		err := errors.RetryWithConfig(ctx, func() error {
			return r.applyEvent(ctx, ev)
		}, r.retryCfg)
		if err != nil {
			// Leave the mark where it is; the whole range replays
			// next tick and idempotent applies absorb the rerun.
			return errors.Wrap(err, errors.CodeOf(err), "failed to apply event")
		}
	}

	if err := r.catalog.SetLastBlock(to); err != nil {
		return err
	}
	r.metrics.BlocksProcessed.Add(float64(to - from + 1))
	r.metrics.LastProcessedBlock.Set(float64(to))

	if len(events) > 0 {
		r.logger.Info().
			Uint64("from_block", from).
			Uint64("to_block", to).
			Int("events", len(events)).
			Msg("applied ledger events")
	}
	return nil
}
