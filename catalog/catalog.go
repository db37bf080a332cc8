// Package catalog is the repository over the off-chain mirror of ledger
// state. Writes are upserts keyed by the natural identity of the underlying
// ledger event, so applying the same event twice leaves the catalog
// unchanged. The reconciler is the only writer of launch, phase, purchase,
// and item state; every other component reads.
package catalog

import (
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mintworks/launchpadd/db"
	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/store"
)

// Catalog provides database operations for launches, phases, whitelist
// entries, purchases, items, and the reconciler's high-water mark.
type Catalog struct {
	database *db.DB
}

// New creates a catalog over the given database.
func New(database *db.DB) *Catalog {
	return &Catalog{database: database}
}

func dbErr(err error, msg string) error {
	return errors.Wrap(err, errors.CodeDatabase, msg)
}

// LastBlock returns the last fully processed ledger block, creating the
// state row at zero on first use.
func (c *Catalog) LastBlock() (uint64, error) {
	var state store.ChainState
	err := c.database.Client().First(&state).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			if err := c.database.Client().Create(&state).Error; err != nil {
				return 0, dbErr(err, "failed to create chain state")
			}
			return 0, nil
		}
		return 0, dbErr(err, "failed to read chain state")
	}
	return state.LastBlock, nil
}

// SetLastBlock advances the high-water mark. The mark never moves backwards;
// a lower value is a no-op rather than an error so replays stay harmless.
func (c *Catalog) SetLastBlock(block uint64) error {
	var state store.ChainState
	err := c.database.Client().First(&state).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			state.LastBlock = block
			if err := c.database.Client().Create(&state).Error; err != nil {
				return dbErr(err, "failed to create chain state")
			}
			return nil
		}
		return dbErr(err, "failed to read chain state")
	}

	if block > state.LastBlock {
		state.LastBlock = block
		if err := c.database.Client().Save(&state).Error; err != nil {
			return dbErr(err, "failed to update chain state")
		}
	}
	return nil
}

// UpsertLaunch creates or updates a launch keyed by its ledger launch ID.
// TotalMinted is kept monotonic: an update can only raise it. Metadata
// fields the incoming row leaves empty keep their mirrored values.
func (c *Catalog) UpsertLaunch(l *store.Launch) error {
	var existing store.Launch
	err := c.database.Client().Where("launch_id = ?", l.LaunchID).First(&existing).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			if err := c.database.Client().Create(l).Error; err != nil {
				return dbErr(err, "failed to create launch")
			}
			return nil
		}
		return dbErr(err, "failed to query launch")
	}

	existing.CollectionAddress = l.CollectionAddress
	if l.Name != "" {
		existing.Name = l.Name
	}
	if l.Symbol != "" {
		existing.Symbol = l.Symbol
	}
	if l.Description != "" {
		existing.Description = l.Description
	}
	if l.ImageURI != "" {
		existing.ImageURI = l.ImageURI
	}
	existing.MaxSupply = l.MaxSupply
	existing.Creator = l.Creator
	existing.Status = l.Status
	existing.AutoProgress = l.AutoProgress
	existing.CurrentPhase = l.CurrentPhase
	if l.TotalMinted > existing.TotalMinted {
		existing.TotalMinted = l.TotalMinted
	}
	if err := c.database.Client().Save(&existing).Error; err != nil {
		return dbErr(err, "failed to update launch")
	}
	return nil
}

// GetLaunch fetches a launch by ledger launch ID.
func (c *Catalog) GetLaunch(launchID uint64) (*store.Launch, error) {
	var l store.Launch
	if err := c.database.Client().Where("launch_id = ?", launchID).First(&l).Error; err != nil {
		return nil, dbErr(err, "launch not found")
	}
	return &l, nil
}

// GetLaunchByCollection fetches a launch by its collection address.
func (c *Catalog) GetLaunchByCollection(collection string) (*store.Launch, error) {
	var l store.Launch
	if err := c.database.Client().Where("collection_address = ?", collection).First(&l).Error; err != nil {
		return nil, dbErr(err, "launch not found for collection")
	}
	return &l, nil
}

// LaunchExists reports whether a collection address is known to the catalog.
func (c *Catalog) LaunchExists(collection string) (bool, error) {
	var count int64
	if err := c.database.Client().Model(&store.Launch{}).
		Where("collection_address = ?", collection).
		Count(&count).Error; err != nil {
		return false, dbErr(err, "failed to count launches")
	}
	return count > 0, nil
}

// ListLaunches returns launches, optionally filtered by status, newest
// first.
func (c *Catalog) ListLaunches(status string, limit, offset int) ([]store.Launch, error) {
	q := c.database.Client().Model(&store.Launch{}).Order("launch_id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var launches []store.Launch
	if err := q.Limit(limit).Offset(offset).Find(&launches).Error; err != nil {
		return nil, dbErr(err, "failed to list launches")
	}
	return launches, nil
}

// SetLaunchStatus records a lifecycle transition observed on the ledger.
func (c *Catalog) SetLaunchStatus(launchID uint64, status, currentPhase string) error {
	res := c.database.Client().Model(&store.Launch{}).
		Where("launch_id = ?", launchID).
		Updates(map[string]interface{}{"status": status, "current_phase": currentPhase})
	if res.Error != nil {
		return dbErr(res.Error, "failed to update launch status")
	}
	if res.RowsAffected == 0 {
		return errors.Newf(errors.CodeDatabase, "launch %d unknown to catalog", launchID)
	}
	return nil
}

// UpsertPhaseConfig creates or updates a phase configuration keyed by
// (launch, phase). TotalSold survives reconfiguration and only moves up.
func (c *Catalog) UpsertPhaseConfig(cfg *store.PhaseConfig) error {
	var existing store.PhaseConfig
	err := c.database.Client().
		Where("launch_id = ? AND phase = ?", cfg.LaunchID, cfg.Phase).
		First(&existing).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			if err := c.database.Client().Create(cfg).Error; err != nil {
				return dbErr(err, "failed to create phase config")
			}
			return nil
		}
		return dbErr(err, "failed to query phase config")
	}

	existing.Price = cfg.Price
	existing.StartTime = cfg.StartTime
	existing.EndTime = cfg.EndTime
	existing.MaxPerWallet = cfg.MaxPerWallet
	existing.MaxSupply = cfg.MaxSupply
	existing.Configured = cfg.Configured
	if cfg.TotalSold > existing.TotalSold {
		existing.TotalSold = cfg.TotalSold
	}
	if err := c.database.Client().Save(&existing).Error; err != nil {
		return dbErr(err, "failed to update phase config")
	}
	return nil
}

// PhaseConfigs returns all phase configurations of a launch.
func (c *Catalog) PhaseConfigs(launchID uint64) ([]store.PhaseConfig, error) {
	var configs []store.PhaseConfig
	if err := c.database.Client().
		Where("launch_id = ?", launchID).
		Find(&configs).Error; err != nil {
		return nil, dbErr(err, "failed to list phase configs")
	}
	return configs, nil
}

// SetWhitelist applies a bulk membership change. The operation is
// idempotent: re-adding a member or re-removing a non-member changes
// nothing, and duplicate addresses in one batch are collapsed. Addresses
// are stored lowercased so event-derived checksummed forms and
// caller-supplied forms compare equal.
func (c *Catalog) SetWhitelist(launchID uint64, phase string, addresses []string, member bool) error {
	seen := make(map[string]struct{}, len(addresses))
	return c.withTx(func(tx *gorm.DB) error {
		for _, raw := range addresses {
			addr := strings.ToLower(raw)
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}

			var entry store.WhitelistEntry
			err := tx.Where("launch_id = ? AND phase = ? AND address = ?", launchID, phase, addr).
				First(&entry).Error
			if err != nil {
				if !stderrors.Is(err, gorm.ErrRecordNotFound) {
					return dbErr(err, "failed to query whitelist entry")
				}
				entry = store.WhitelistEntry{
					LaunchID: launchID,
					Phase:    phase,
					Address:  addr,
					Member:   member,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return dbErr(err, "failed to create whitelist entry")
				}
				continue
			}

			if entry.Member != member {
				entry.Member = member
				if err := tx.Save(&entry).Error; err != nil {
					return dbErr(err, "failed to update whitelist entry")
				}
			}
		}
		return nil
	})
}

// WhitelistStatus reports membership for (launch, phase, address), plus
// whether the mirror holds an entry at all. A missing entry is not the same
// as a removal: callers with a fresher source consult it when known is
// false.
func (c *Catalog) WhitelistStatus(launchID uint64, phase, address string) (member, known bool, err error) {
	var entry store.WhitelistEntry
	qerr := c.database.Client().
		Where("launch_id = ? AND phase = ? AND address = ?", launchID, phase, strings.ToLower(address)).
		First(&entry).Error
	if qerr != nil {
		if stderrors.Is(qerr, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, dbErr(qerr, "failed to query whitelist entry")
	}
	return entry.Member, true, nil
}

// IsWhitelisted reports membership for (launch, phase, address).
func (c *Catalog) IsWhitelisted(launchID uint64, phase, address string) (bool, error) {
	member, _, err := c.WhitelistStatus(launchID, phase, address)
	return member, err
}

// RecordPurchase applies a confirmed ItemPurchased event. Keyed by
// (collection, token): a duplicate delivery is a no-op and reports
// created=false. A new record increments the phase's TotalSold inside the
// same transaction.
func (c *Catalog) RecordPurchase(rec *store.PurchaseRecord) (created bool, err error) {
	err = c.withTx(func(tx *gorm.DB) error {
		var existing store.PurchaseRecord
		qerr := tx.Where("collection_address = ? AND token_id = ?",
			rec.CollectionAddress, rec.TokenID).First(&existing).Error
		if qerr == nil {
			return nil // already applied
		}
		if !stderrors.Is(qerr, gorm.ErrRecordNotFound) {
			return dbErr(qerr, "failed to query purchase record")
		}

		if err := tx.Create(rec).Error; err != nil {
			return dbErr(err, "failed to create purchase record")
		}
		if err := tx.Model(&store.PhaseConfig{}).
			Where("launch_id = ? AND phase = ?", rec.LaunchID, rec.Phase).
			UpdateColumn("total_sold", gorm.Expr("total_sold + 1")).Error; err != nil {
			return dbErr(err, "failed to increment phase total sold")
		}
		created = true
		return nil
	})
	return created, err
}

// CountPurchases returns the number of tokens a buyer holds from one phase
// of a launch; the eligibility engine compares this against the wallet cap.
func (c *Catalog) CountPurchases(launchID uint64, phase, buyer string) (uint64, error) {
	var count int64
	if err := c.database.Client().Model(&store.PurchaseRecord{}).
		Where("launch_id = ? AND phase = ? AND buyer = ?", launchID, phase, buyer).
		Count(&count).Error; err != nil {
		return 0, dbErr(err, "failed to count purchases")
	}
	return uint64(count), nil
}

// ListPurchases returns a launch's purchase records, oldest first.
func (c *Catalog) ListPurchases(launchID uint64, limit, offset int) ([]store.PurchaseRecord, error) {
	var recs []store.PurchaseRecord
	if err := c.database.Client().
		Where("launch_id = ?", launchID).
		Order("block_number ASC, token_id ASC").
		Limit(limit).Offset(offset).
		Find(&recs).Error; err != nil {
		return nil, dbErr(err, "failed to list purchases")
	}
	return recs, nil
}

// ApplyMint marks a token as minted and owned. Creating the item for the
// first time increments the launch's observed supply; re-applying the same
// mint changes nothing.
func (c *Catalog) ApplyMint(collection string, tokenID uint64, owner string) (created bool, err error) {
	err = c.withTx(func(tx *gorm.DB) error {
		var item store.CatalogItem
		qerr := tx.Where("collection_address = ? AND token_id = ?", collection, tokenID).
			First(&item).Error
		if qerr == nil {
			if item.Minted {
				// Already observed; owner may still need correcting.
				if item.Owner != owner {
					item.Owner = owner
					if err := tx.Save(&item).Error; err != nil {
						return dbErr(err, "failed to update item owner")
					}
				}
				return nil
			}
			item.Minted = true
			item.Owner = owner
		} else {
			if !stderrors.Is(qerr, gorm.ErrRecordNotFound) {
				return dbErr(qerr, "failed to query catalog item")
			}
			item = store.CatalogItem{
				CollectionAddress: collection,
				TokenID:           tokenID,
				Owner:             owner,
				Minted:            true,
			}
		}

		if err := tx.Save(&item).Error; err != nil {
			return dbErr(err, "failed to save catalog item")
		}
		if err := tx.Model(&store.Launch{}).
			Where("collection_address = ?", collection).
			UpdateColumn("total_minted", gorm.Expr("total_minted + 1")).Error; err != nil {
			return dbErr(err, "failed to increment launch supply")
		}
		created = true
		return nil
	})
	return created, err
}

// SetItemOwner records an ownership change from a secondary transfer,
// creating a shell item when the token was not seen before.
func (c *Catalog) SetItemOwner(collection string, tokenID uint64, owner string) error {
	var item store.CatalogItem
	err := c.database.Client().
		Where("collection_address = ? AND token_id = ?", collection, tokenID).
		First(&item).Error
	if err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dbErr(err, "failed to query catalog item")
		}
		item = store.CatalogItem{
			CollectionAddress: collection,
			TokenID:           tokenID,
			Owner:             owner,
			Minted:            true, // it transferred, so it must exist on-chain
		}
		if err := c.database.Client().Create(&item).Error; err != nil {
			return dbErr(err, "failed to create catalog item")
		}
		return nil
	}

	if item.Owner != owner {
		item.Owner = owner
		if err := c.database.Client().Save(&item).Error; err != nil {
			return dbErr(err, "failed to update item owner")
		}
	}
	return nil
}

// UpsertItemMetadata fills in the off-chain metadata of an item without
// touching ownership or mint state.
func (c *Catalog) UpsertItemMetadata(collection string, tokenID uint64, name, description, image, metadataURI string) error {
	var item store.CatalogItem
	err := c.database.Client().
		Where("collection_address = ? AND token_id = ?", collection, tokenID).
		First(&item).Error
	if err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dbErr(err, "failed to query catalog item")
		}
		item = store.CatalogItem{CollectionAddress: collection, TokenID: tokenID}
	}

	item.Name = name
	item.Description = description
	item.Image = image
	item.MetadataURI = metadataURI
	if err := c.database.Client().Save(&item).Error; err != nil {
		return dbErr(err, "failed to save item metadata")
	}
	return nil
}

// GetItem fetches one catalog item.
func (c *Catalog) GetItem(collection string, tokenID uint64) (*store.CatalogItem, error) {
	var item store.CatalogItem
	if err := c.database.Client().
		Where("collection_address = ? AND token_id = ?", collection, tokenID).
		First(&item).Error; err != nil {
		return nil, dbErr(err, "catalog item not found")
	}
	return &item, nil
}

// ListItems returns a collection's items ordered by token ID.
func (c *Catalog) ListItems(collection string, limit, offset int) ([]store.CatalogItem, error) {
	var items []store.CatalogItem
	if err := c.database.Client().
		Where("collection_address = ?", collection).
		Order("token_id ASC").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, dbErr(err, "failed to list items")
	}
	return items, nil
}

func (c *Catalog) withTx(fn func(tx *gorm.DB) error) error {
	return c.database.Client().Transaction(fn)
}
