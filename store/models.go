// Package store contains the GORM-backed catalog models. The catalog is the
// off-chain mirror of ledger truth: every row here is derived from confirmed
// ledger events applied by the reconciler, which is the only writer.
package store

import (
	"time"

	"gorm.io/gorm"
)

// Launch mirrors one NFT sale campaign. LaunchID is assigned by the ledger
// at creation and is the natural key for launch-scoped events.
type Launch struct {
	gorm.Model
	LaunchID          uint64 `gorm:"uniqueIndex"`
	CollectionAddress string `gorm:"uniqueIndex"`
	Name              string
	Symbol            string
	Description       string `gorm:"type:text"`
	ImageURI          string
	MaxSupply         uint64
	TotalMinted       uint64
	Creator           string `gorm:"index"`
	Status            string `gorm:"index"` // "pending", "active", "completed", "cancelled"
	AutoProgress      bool
	CurrentPhase      string // "none", "presale", "whitelist", "public"
}

// PhaseConfig mirrors one (launch, phase) sale configuration. Price is the
// per-item price in wei kept as a decimal string; SQLite has no integer wide
// enough for wei amounts.
type PhaseConfig struct {
	gorm.Model
	LaunchID     uint64 `gorm:"uniqueIndex:idx_launch_phase"`
	Phase        string `gorm:"uniqueIndex:idx_launch_phase"`
	Price        string
	StartTime    int64 // unix seconds, inclusive
	EndTime      int64 // unix seconds, inclusive
	MaxPerWallet uint64
	MaxSupply    uint64
	TotalSold    uint64 // monotonically increasing, never decremented
	Configured   bool
}

// WhitelistEntry records membership for the gated phases. Presence of a row
// with Member=true is membership; bulk add/remove is idempotent on the
// (launch, phase, address) key.
type WhitelistEntry struct {
	gorm.Model
	LaunchID uint64 `gorm:"uniqueIndex:idx_wl_launch_phase_addr"`
	Phase    string `gorm:"uniqueIndex:idx_wl_launch_phase_addr"`
	Address  string `gorm:"uniqueIndex:idx_wl_launch_phase_addr"`
	Member   bool
}

// PurchaseRecord is one confirmed mint. Exactly one row per token; rows are
// created only from confirmed ItemPurchased events, never optimistically.
type PurchaseRecord struct {
	gorm.Model
	CollectionAddress string `gorm:"uniqueIndex:idx_purchase_token"`
	TokenID           uint64 `gorm:"uniqueIndex:idx_purchase_token"`
	LaunchID          uint64 `gorm:"index"`
	Buyer             string `gorm:"index"`
	Phase             string
	PricePaid         string // wei, decimal string
	TxHash            string `gorm:"index"`
	BlockNumber       uint64
	PurchasedAt       time.Time
}

// CatalogItem is the off-chain metadata shadow of one token. Owner is
// authoritative only as of the last processed ledger event and may lag the
// chain between confirmation and reconciliation.
type CatalogItem struct {
	gorm.Model
	CollectionAddress string `gorm:"uniqueIndex:idx_item_token"`
	TokenID           uint64 `gorm:"uniqueIndex:idx_item_token"`
	Name              string
	Description       string `gorm:"type:text"`
	Image             string
	Owner             string `gorm:"index"`
	MetadataURI       string
	Minted            bool
}

// ChainState is the reconciler's high-water mark: the last ledger block
// whose events have all been applied. One row per database.
type ChainState struct {
	gorm.Model
	LastBlock uint64
}
