package reconciler

import (
	"context"
	"time"

	"github.com/mintworks/launchpadd/ledger"
	"github.com/mintworks/launchpadd/store"
)

// applyEvent routes one decoded ledger event to the catalog. Every branch is
// idempotent: reapplying an event the catalog has already absorbed changes
// nothing, which is what makes replay-after-crash safe.
func (r *Reconciler) applyEvent(ctx context.Context, ev ledger.Event) error {
	switch e := ev.(type) {
	case ledger.LaunchCreated:
		return r.applyLaunchCreated(ctx, e)
	case ledger.PhaseConfigured:
		return r.applyPhaseConfigured(e)
	case ledger.LaunchStatusChanged:
		return r.applyStatusChanged(ctx, e)
	case ledger.WhitelistUpdated:
		return r.applyWhitelistUpdated(e)
	case ledger.ItemPurchased:
		return r.applyItemPurchased(ctx, e)
	case ledger.Transfer:
		return r.applyTransfer(ctx, e)
	default:
		r.metrics.EventsSkipped.Inc()
		r.logger.Warn().
			Uint64("block", ev.Meta().BlockNumber).
			Str("tx_hash", ev.Meta().TxHash.Hex()).
			Msg("unknown event type, skipping")
		return nil
	}
}

// applyLaunchCreated mirrors a new launch. The event only names the launch
// and its collection; the full row comes from a point read of ledger state.
func (r *Reconciler) applyLaunchCreated(ctx context.Context, e ledger.LaunchCreated) error {
	info, err := r.ledger.GetLaunchInfo(ctx, e.LaunchID)
	if err != nil {
		return err
	}

	if err := r.catalog.UpsertLaunch(launchRow(info)); err != nil {
		return err
	}
	r.track(e.Collection)
	r.metrics.EventsApplied.WithLabelValues("launch_created").Inc()
	r.logger.Info().
		Uint64("launch_id", e.LaunchID).
		Str("collection", e.Collection.Hex()).
		Str("creator", e.Creator.Hex()).
		Msg("launch created")
	return nil
}

func (r *Reconciler) applyPhaseConfigured(e ledger.PhaseConfigured) error {
	price := "0"
	if e.Price != nil {
		price = e.Price.String()
	}
	err := r.catalog.UpsertPhaseConfig(&store.PhaseConfig{
		LaunchID:     e.LaunchID,
		Phase:        e.Phase.String(),
		Price:        price,
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		MaxPerWallet: e.MaxPerWallet,
		MaxSupply:    e.MaxSupply,
		Configured:   true,
	})
	if err != nil {
		return err
	}
	r.metrics.EventsApplied.WithLabelValues("phase_configured").Inc()
	r.logger.Info().
		Uint64("launch_id", e.LaunchID).
		Str("phase", e.Phase.String()).
		Msg("phase configured")
	return nil
}

// applyStatusChanged moves the mirrored lifecycle state. The event does not
// carry the resulting current phase, so that comes from ledger state too; a
// status event for a launch the catalog missed falls back to a full upsert.
func (r *Reconciler) applyStatusChanged(ctx context.Context, e ledger.LaunchStatusChanged) error {
	info, err := r.ledger.GetLaunchInfo(ctx, e.LaunchID)
	if err != nil {
		return err
	}

	if err := r.catalog.SetLaunchStatus(e.LaunchID, e.NewStatus.String(), info.CurrentPhase.String()); err != nil {
		if err := r.catalog.UpsertLaunch(launchRow(info)); err != nil {
			return err
		}
	}
	r.metrics.EventsApplied.WithLabelValues("status_changed").Inc()
	r.logger.Info().
		Uint64("launch_id", e.LaunchID).
		Str("status", e.NewStatus.String()).
		Msg("launch status changed")
	return nil
}

// applyWhitelistUpdated mirrors one membership change so gated purchase
// checks can be answered from the catalog.
func (r *Reconciler) applyWhitelistUpdated(e ledger.WhitelistUpdated) error {
	if err := r.catalog.SetWhitelist(e.LaunchID, e.Phase.String(), []string{e.Account.Hex()}, e.Allowed); err != nil {
		return err
	}
	r.metrics.EventsApplied.WithLabelValues("whitelist_updated").Inc()
	r.logger.Debug().
		Uint64("launch_id", e.LaunchID).
		Str("phase", e.Phase.String()).
		Str("account", e.Account.Hex()).
		Bool("allowed", e.Allowed).
		Msg("whitelist updated")
	return nil
}

// applyItemPurchased records the sale and bumps the phase's sold counter.
// Observed supply is counted from mint transfers, not from here.
func (r *Reconciler) applyItemPurchased(ctx context.Context, e ledger.ItemPurchased) error {
	l, err := r.catalog.GetLaunch(e.LaunchID)
	if err != nil {
		// Purchase for a launch we never mirrored: pull it in first.
		info, gerr := r.ledger.GetLaunchInfo(ctx, e.LaunchID)
		if gerr != nil {
			return gerr
		}
		if uerr := r.catalog.UpsertLaunch(launchRow(info)); uerr != nil {
			return uerr
		}
		r.track(info.Collection)
		if l, err = r.catalog.GetLaunch(e.LaunchID); err != nil {
			return err
		}
	}

	price := "0"
	if e.Price != nil {
		price = e.Price.String()
	}
	created, err := r.catalog.RecordPurchase(&store.PurchaseRecord{
		CollectionAddress: l.CollectionAddress,
		TokenID:           e.TokenID,
		LaunchID:          e.LaunchID,
		Buyer:             e.Buyer.Hex(),
		Phase:             e.Phase.String(),
		PricePaid:         price,
		TxHash:            e.TxHash.Hex(),
		BlockNumber:       e.BlockNumber,
		PurchasedAt:       time.Unix(e.BlockTime, 0).UTC(),
	})
	if err != nil {
		return err
	}
	if created {
		r.metrics.EventsApplied.WithLabelValues("item_purchased").Inc()
	}
	return nil
}

// applyTransfer updates item ownership. Mints bump the launch's observed
// supply; secondary transfers only move the owner. Transfers on collections
// outside any known launch or seed are noise from the topic-wide filter.
func (r *Reconciler) applyTransfer(ctx context.Context, e ledger.Transfer) error {
	if !r.isTracked(e.Collection) {
		if !e.IsMint() {
			r.metrics.EventsSkipped.Inc()
			return nil
		}
		// A mint on an unknown collection may belong to a launch created
		// before our start block. Adopt it if the ledger knows it.
		l, err := r.catalog.GetLaunchByCollection(e.Collection.Hex())
		if err != nil {
			info, derr := r.ledger.GetCollectionInfo(ctx, e.Collection)
			if derr != nil {
				r.metrics.EventsSkipped.Inc()
				r.logger.Debug().
					Str("collection", e.Collection.Hex()).
					Msg("ignoring transfer on unknown collection")
				return nil
			}
			r.logger.Info().
				Str("collection", e.Collection.Hex()).
				Str("name", info.Name).
				Msg("discovered collection from mint event")
		} else {
			r.logger.Debug().Uint64("launch_id", l.LaunchID).Msg("re-tracking known collection")
		}
		r.track(e.Collection)
	}

	if e.IsMint() {
		created, err := r.catalog.ApplyMint(e.Collection.Hex(), e.TokenID, e.To.Hex())
		if err != nil {
			return err
		}
		if created {
			r.metrics.EventsApplied.WithLabelValues("mint").Inc()
		}
		return nil
	}

	if err := r.catalog.SetItemOwner(e.Collection.Hex(), e.TokenID, e.To.Hex()); err != nil {
		return err
	}
	r.metrics.EventsApplied.WithLabelValues("transfer").Inc()
	return nil
}

func launchRow(info *ledger.LaunchInfo) *store.Launch {
	return &store.Launch{
		LaunchID:          info.LaunchID,
		CollectionAddress: info.Collection.Hex(),
		Name:              info.Name,
		Symbol:            info.Symbol,
		Description:       info.Description,
		ImageURI:          info.ImageURI,
		MaxSupply:         info.MaxSupply,
		TotalMinted:       info.TotalMinted,
		Creator:           info.Creator.Hex(),
		Status:            info.Status.String(),
		AutoProgress:      info.AutoProgress,
		CurrentPhase:      info.CurrentPhase.String(),
	}
}
