package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintworks/launchpadd/db"
	"github.com/mintworks/launchpadd/store"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return New(database)
}

func seedLaunch(t *testing.T, c *Catalog) *store.Launch {
	t.Helper()
	l := &store.Launch{
		LaunchID:          1,
		CollectionAddress: "0xcol",
		Name:              "Origins",
		Symbol:            "ORG",
		MaxSupply:         100,
		Creator:           "0xcreator",
		Status:            "pending",
		CurrentPhase:      "none",
	}
	require.NoError(t, c.UpsertLaunch(l))
	return l
}

func TestHighWaterMark(t *testing.T) {
	c := newTestCatalog(t)

	// First read creates the row at zero.
	block, err := c.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), block)

	require.NoError(t, c.SetLastBlock(1000))
	block, err = c.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), block)

	// The mark never moves backwards.
	require.NoError(t, c.SetLastBlock(900))
	block, err = c.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), block)

	require.NoError(t, c.SetLastBlock(1001))
	block, err = c.LastBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), block)
}

func TestUpsertLaunch_Idempotent(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	// Re-applying the same launch creates no second row.
	require.NoError(t, c.UpsertLaunch(&store.Launch{
		LaunchID: 1, CollectionAddress: "0xcol", Name: "Origins", Symbol: "ORG",
		MaxSupply: 100, Creator: "0xcreator", Status: "active", CurrentPhase: "presale",
	}))

	launches, err := c.ListLaunches("", 10, 0)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	assert.Equal(t, "active", launches[0].Status)
	assert.Equal(t, "presale", launches[0].CurrentPhase)
}

func TestUpsertLaunch_KeepsMetadataOnSparseUpdate(t *testing.T) {
	c := newTestCatalog(t)
	l := seedLaunch(t, c)
	l.Description = "the first drop"
	l.ImageURI = "ipfs://banner"
	require.NoError(t, c.UpsertLaunch(l))

	// Status-only updates carry no metadata; the mirrored values survive.
	require.NoError(t, c.UpsertLaunch(&store.Launch{
		LaunchID: 1, CollectionAddress: "0xcol", MaxSupply: 100,
		Creator: "0xcreator", Status: "active", CurrentPhase: "presale",
	}))

	got, err := c.GetLaunch(1)
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, "Origins", got.Name)
	assert.Equal(t, "ORG", got.Symbol)
	assert.Equal(t, "the first drop", got.Description)
	assert.Equal(t, "ipfs://banner", got.ImageURI)
}

func TestUpsertLaunch_TotalMintedMonotonic(t *testing.T) {
	c := newTestCatalog(t)
	l := seedLaunch(t, c)

	l.TotalMinted = 5
	require.NoError(t, c.UpsertLaunch(l))

	// A stale snapshot must not roll the counter back.
	l.TotalMinted = 2
	require.NoError(t, c.UpsertLaunch(l))

	got, err := c.GetLaunch(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.TotalMinted)
}

func TestSetLaunchStatus(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	require.NoError(t, c.SetLaunchStatus(1, "active", "presale"))
	got, err := c.GetLaunch(1)
	require.NoError(t, err)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, "presale", got.CurrentPhase)

	assert.Error(t, c.SetLaunchStatus(99, "active", "presale"))
}

func TestUpsertPhaseConfig_PreservesTotalSold(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	cfg := &store.PhaseConfig{
		LaunchID: 1, Phase: "presale", Price: "50", StartTime: 100, EndTime: 200,
		MaxPerWallet: 5, MaxSupply: 20, TotalSold: 3, Configured: true,
	}
	require.NoError(t, c.UpsertPhaseConfig(cfg))

	// Reconfiguring the phase must not reset the sold counter.
	require.NoError(t, c.UpsertPhaseConfig(&store.PhaseConfig{
		LaunchID: 1, Phase: "presale", Price: "80", StartTime: 100, EndTime: 300,
		MaxPerWallet: 5, MaxSupply: 20, TotalSold: 0, Configured: true,
	}))

	configs, err := c.PhaseConfigs(1)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "80", configs[0].Price)
	assert.Equal(t, int64(300), configs[0].EndTime)
	assert.Equal(t, uint64(3), configs[0].TotalSold)
}

func TestWhitelist_IdempotentBulkOps(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	// Duplicates in one batch collapse to one entry.
	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xa", "0xa", "0xb"}, true))

	ok, err := c.IsWhitelisted(1, "presale", "0xa")
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-adding is a no-op.
	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xa"}, true))

	// Membership is per phase.
	ok, err = c.IsWhitelisted(1, "whitelist", "0xa")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removal flips membership without deleting history.
	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xa"}, false))
	ok, err = c.IsWhitelisted(1, "presale", "0xa")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an address never present is a no-op, not an error.
	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xzz"}, false))
}

func TestWhitelistStatus_DistinguishesUnknownFromRemoved(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	// Never seen: unknown, not a removal.
	member, known, err := c.WhitelistStatus(1, "presale", "0xa")
	require.NoError(t, err)
	assert.False(t, member)
	assert.False(t, known)

	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xa"}, true))
	member, known, err = c.WhitelistStatus(1, "presale", "0xa")
	require.NoError(t, err)
	assert.True(t, member)
	assert.True(t, known)

	// Removal keeps the entry known with membership off.
	require.NoError(t, c.SetWhitelist(1, "presale", []string{"0xa"}, false))
	member, known, err = c.WhitelistStatus(1, "presale", "0xa")
	require.NoError(t, err)
	assert.False(t, member)
	assert.True(t, known)
}

func TestWhitelist_AddressCaseInsensitive(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	// Checksummed form in, lowercase (and checksummed) lookups both hit.
	checksummed := "0xAbCd000000000000000000000000000000000001"
	require.NoError(t, c.SetWhitelist(1, "presale", []string{checksummed}, true))

	ok, err := c.IsWhitelisted(1, "presale", strings.ToLower(checksummed))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.IsWhitelisted(1, "presale", checksummed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRecordPurchase_IdempotentAndCounted(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)
	require.NoError(t, c.UpsertPhaseConfig(&store.PhaseConfig{
		LaunchID: 1, Phase: "presale", Price: "50", StartTime: 100, EndTime: 200,
		MaxPerWallet: 5, MaxSupply: 20, Configured: true,
	}))

	rec := &store.PurchaseRecord{
		CollectionAddress: "0xcol", TokenID: 1, LaunchID: 1, Buyer: "0xbuyer",
		Phase: "presale", PricePaid: "50", TxHash: "0xaaa", BlockNumber: 120,
		PurchasedAt: time.Unix(150, 0),
	}

	created, err := c.RecordPurchase(rec)
	require.NoError(t, err)
	assert.True(t, created)

	// Duplicate delivery of the same event: same catalog state afterwards.
	dup := *rec
	dup.ID = 0
	created, err = c.RecordPurchase(&dup)
	require.NoError(t, err)
	assert.False(t, created)

	configs, err := c.PhaseConfigs(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), configs[0].TotalSold)

	count, err := c.CountPurchases(1, "presale", "0xbuyer")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	recs, err := c.ListPurchases(1, 10, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestApplyMint_IdempotentSupply(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	created, err := c.ApplyMint("0xcol", 7, "0xowner")
	require.NoError(t, err)
	assert.True(t, created)

	// Duplicate mint event must not double-count supply.
	created, err = c.ApplyMint("0xcol", 7, "0xowner")
	require.NoError(t, err)
	assert.False(t, created)

	l, err := c.GetLaunch(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l.TotalMinted)

	item, err := c.GetItem("0xcol", 7)
	require.NoError(t, err)
	assert.True(t, item.Minted)
	assert.Equal(t, "0xowner", item.Owner)
}

func TestSetItemOwner(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	_, err := c.ApplyMint("0xcol", 7, "0xowner")
	require.NoError(t, err)

	require.NoError(t, c.SetItemOwner("0xcol", 7, "0xnewowner"))
	item, err := c.GetItem("0xcol", 7)
	require.NoError(t, err)
	assert.Equal(t, "0xnewowner", item.Owner)

	// A transfer of a token never seen creates a shell item.
	require.NoError(t, c.SetItemOwner("0xcol", 99, "0xsomeone"))
	item, err = c.GetItem("0xcol", 99)
	require.NoError(t, err)
	assert.True(t, item.Minted)
}

func TestUpsertItemMetadata(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)

	_, err := c.ApplyMint("0xcol", 7, "0xowner")
	require.NoError(t, err)

	require.NoError(t, c.UpsertItemMetadata("0xcol", 7, "Item #7", "first", "ipfs://img", "ipfs://meta"))
	item, err := c.GetItem("0xcol", 7)
	require.NoError(t, err)
	assert.Equal(t, "Item #7", item.Name)
	assert.Equal(t, "ipfs://meta", item.MetadataURI)
	// Metadata writes leave ownership untouched.
	assert.Equal(t, "0xowner", item.Owner)
	assert.True(t, item.Minted)
}

func TestListItemsAndLaunches(t *testing.T) {
	c := newTestCatalog(t)
	seedLaunch(t, c)
	require.NoError(t, c.UpsertLaunch(&store.Launch{
		LaunchID: 2, CollectionAddress: "0xcol2", Status: "active",
	}))

	for i := uint64(1); i <= 3; i++ {
		_, err := c.ApplyMint("0xcol", i, "0xowner")
		require.NoError(t, err)
	}

	items, err := c.ListItems("0xcol", 10, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	active, err := c.ListLaunches("active", 10, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(2), active[0].LaunchID)

	all, err := c.ListLaunches("", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
