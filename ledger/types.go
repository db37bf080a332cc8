// Package ledger defines the client interface to the authoritative on-chain
// launchpad, plus the typed events it emits. Implementations decode contract
// return tuples and log payloads into the structs here exactly once, at this
// boundary; positional access never leaks into business logic.
package ledger

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/mintworks/launchpadd/launch"
)

// TxHandle references a submitted transaction. Submission is not
// confirmation: the catalog only changes once the reconciler observes the
// resulting events.
type TxHandle struct {
	Hash ethcommon.Hash
}

// CreateLaunchParams are the immutable attributes of a new launch.
type CreateLaunchParams struct {
	Name         string
	Symbol       string
	Description  string
	ImageURI     string
	MaxSupply    uint64
	AutoProgress bool
}

// PhaseParams configures one sales phase of a launch.
type PhaseParams struct {
	Phase        launch.Phase
	Price        *big.Int
	StartTime    int64
	EndTime      int64
	MaxPerWallet uint64
	MaxSupply    uint64
}

// LaunchInfo is the decoded on-chain state of a launch, including the
// immutable metadata set at creation.
type LaunchInfo struct {
	LaunchID     uint64
	Collection   ethcommon.Address
	Creator      ethcommon.Address
	Name         string
	Symbol       string
	Description  string
	ImageURI     string
	MaxSupply    uint64
	TotalMinted  uint64
	Status       launch.Status
	CurrentPhase launch.Phase
	AutoProgress bool
}

// CollectionInfo is the minimal collection state fetched during lazy
// discovery of collections the catalog has not seen before.
type CollectionInfo struct {
	Name        string
	Symbol      string
	TotalSupply uint64
}

// Client is the ledger interface the orchestrator and reconciler consume.
// All blocking calls take a context.
type Client interface {
	// CreateLaunch submits launch creation and returns the ledger-assigned
	// launch ID once the creation transaction is mined.
	CreateLaunch(ctx context.Context, params CreateLaunchParams) (uint64, TxHandle, error)

	ConfigurePhase(ctx context.Context, launchID uint64, params PhaseParams) (TxHandle, error)
	StartLaunch(ctx context.Context, launchID uint64) (TxHandle, error)
	CompleteLaunch(ctx context.Context, launchID uint64) (TxHandle, error)
	CancelLaunch(ctx context.Context, launchID uint64) (TxHandle, error)

	// Purchase submits a buy with the exact payment attached.
	Purchase(ctx context.Context, launchID, quantity uint64, payment *big.Int, metadataRef string) (TxHandle, error)

	AddToWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (TxHandle, error)
	RemoveFromWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (TxHandle, error)

	GetLaunchInfo(ctx context.Context, launchID uint64) (*LaunchInfo, error)
	GetPhaseConfig(ctx context.Context, launchID uint64, phase launch.Phase) (*launch.PhaseConfiguration, error)
	IsWhitelisted(ctx context.Context, launchID uint64, phase launch.Phase, addr ethcommon.Address) (bool, error)
	GetCollectionInfo(ctx context.Context, collection ethcommon.Address) (*CollectionInfo, error)

	// LatestBlock returns the current chain head height.
	LatestBlock(ctx context.Context) (uint64, error)

	// FilterEvents returns the decoded launchpad and token-transfer events
	// in [fromBlock, toBlock], ordered by block then log index. Logs that
	// fail to decode are logged and skipped, never returned as errors.
	FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]Event, error)
}

// EventMeta carries the chain position every event shares. Block and log
// index define the apply order the reconciler must preserve. BlockTime is
// the containing block's unix timestamp; catalog timestamps derive from it
// so a rescan reproduces identical rows.
type EventMeta struct {
	BlockNumber uint64
	BlockTime   int64
	TxHash      ethcommon.Hash
	LogIndex    uint
}

// Event is one decoded ledger event.
type Event interface {
	Meta() EventMeta
}

// LaunchCreated signals a new launch and its deployed collection.
type LaunchCreated struct {
	EventMeta
	LaunchID   uint64
	Collection ethcommon.Address
	Creator    ethcommon.Address
}

// PhaseConfigured signals a phase being set or updated.
type PhaseConfigured struct {
	EventMeta
	LaunchID     uint64
	Phase        launch.Phase
	Price        *big.Int
	StartTime    int64
	EndTime      int64
	MaxPerWallet uint64
	MaxSupply    uint64
}

// LaunchStatusChanged signals a lifecycle transition.
type LaunchStatusChanged struct {
	EventMeta
	LaunchID  uint64
	NewStatus launch.Status
}

// WhitelistUpdated signals one account being granted or revoked membership
// on a gated phase.
type WhitelistUpdated struct {
	EventMeta
	LaunchID uint64
	Phase    launch.Phase
	Account  ethcommon.Address
	Allowed  bool
}

// ItemPurchased signals a confirmed sale of one token.
type ItemPurchased struct {
	EventMeta
	LaunchID uint64
	Buyer    ethcommon.Address
	TokenID  uint64
	Phase    launch.Phase
	Price    *big.Int
}

// Transfer is the standard token-transfer event. A Transfer whose From is
// the zero address is a mint.
type Transfer struct {
	EventMeta
	Collection ethcommon.Address
	From       ethcommon.Address
	To         ethcommon.Address
	TokenID    uint64
}

// IsMint reports whether the transfer is a mint from the zero address.
func (t Transfer) IsMint() bool {
	return t.From == (ethcommon.Address{})
}

func (m EventMeta) Meta() EventMeta { return m }
