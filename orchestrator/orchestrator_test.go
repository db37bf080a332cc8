package orchestrator

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/db"
	"github.com/mintworks/launchpadd/errors"
	"github.com/mintworks/launchpadd/launch"
	"github.com/mintworks/launchpadd/ledger"
	"github.com/mintworks/launchpadd/metrics"
	"github.com/mintworks/launchpadd/store"
)

const (
	creatorAddr = "0x2222222222222222222222222222222222222222"
	buyerAddr   = "0x3333333333333333333333333333333333333333"
)

// submittingLedger records submissions so tests can assert exactly which
// operations reached the chain.
type submittingLedger struct {
	calls       []string
	lastPayment *big.Int
	createErr   error

	onchainWhitelisted bool
	whitelistQueries   int
}

func (s *submittingLedger) record(op string) ledger.TxHandle {
	s.calls = append(s.calls, op)
	return ledger.TxHandle{Hash: ethcommon.HexToHash("0xfeed")}
}

func (s *submittingLedger) CreateLaunch(ctx context.Context, params ledger.CreateLaunchParams) (uint64, ledger.TxHandle, error) {
	if s.createErr != nil {
		return 0, ledger.TxHandle{}, s.createErr
	}
	return 42, s.record("create_launch"), nil
}

func (s *submittingLedger) ConfigurePhase(ctx context.Context, launchID uint64, params ledger.PhaseParams) (ledger.TxHandle, error) {
	return s.record("configure_phase"), nil
}

func (s *submittingLedger) StartLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return s.record("start_launch"), nil
}

func (s *submittingLedger) CompleteLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return s.record("complete_launch"), nil
}

func (s *submittingLedger) CancelLaunch(ctx context.Context, launchID uint64) (ledger.TxHandle, error) {
	return s.record("cancel_launch"), nil
}

func (s *submittingLedger) Purchase(ctx context.Context, launchID, quantity uint64, payment *big.Int, metadataRef string) (ledger.TxHandle, error) {
	s.lastPayment = payment
	return s.record("purchase"), nil
}

func (s *submittingLedger) AddToWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (ledger.TxHandle, error) {
	return s.record("add_to_whitelist"), nil
}

func (s *submittingLedger) RemoveFromWhitelist(ctx context.Context, launchID uint64, phase launch.Phase, addrs []ethcommon.Address) (ledger.TxHandle, error) {
	return s.record("remove_from_whitelist"), nil
}

func (s *submittingLedger) GetLaunchInfo(ctx context.Context, launchID uint64) (*ledger.LaunchInfo, error) {
	return nil, errors.New(errors.CodeLedger, "not implemented")
}

func (s *submittingLedger) GetPhaseConfig(ctx context.Context, launchID uint64, phase launch.Phase) (*launch.PhaseConfiguration, error) {
	return nil, errors.New(errors.CodeLedger, "not implemented")
}

func (s *submittingLedger) IsWhitelisted(ctx context.Context, launchID uint64, phase launch.Phase, addr ethcommon.Address) (bool, error) {
	s.whitelistQueries++
	return s.onchainWhitelisted, nil
}

func (s *submittingLedger) GetCollectionInfo(ctx context.Context, collection ethcommon.Address) (*ledger.CollectionInfo, error) {
	return nil, errors.New(errors.CodeLedger, "not implemented")
}

func (s *submittingLedger) LatestBlock(ctx context.Context) (uint64, error) { return 0, nil }

func (s *submittingLedger) FilterEvents(ctx context.Context, fromBlock, toBlock uint64) ([]ledger.Event, error) {
	return nil, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *catalog.Catalog, *submittingLedger) {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	cat := catalog.New(database)
	fake := &submittingLedger{}
	o := New(fake, cat, metrics.New(), zerolog.Nop())
	o.now = func() int64 { return 150 }
	return o, cat, fake
}

func seedActiveLaunch(t *testing.T, cat *catalog.Catalog, status string) {
	t.Helper()
	require.NoError(t, cat.UpsertLaunch(&store.Launch{
		LaunchID:          1,
		CollectionAddress: "0xcol",
		Creator:           creatorAddr,
		MaxSupply:         100,
		Status:            status,
		CurrentPhase:      "none",
	}))
}

func seedPhase(t *testing.T, cat *catalog.Catalog, phase string, cfg store.PhaseConfig) {
	t.Helper()
	cfg.LaunchID = 1
	cfg.Phase = phase
	cfg.Configured = true
	require.NoError(t, cat.UpsertPhaseConfig(&cfg))
}

func TestCreateLaunch(t *testing.T) {
	o, _, fake := newTestOrchestrator(t)

	id, tx, err := o.CreateLaunch(context.Background(), ledger.CreateLaunchParams{
		Name: "Origins", Symbol: "ORG", MaxSupply: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NotEqual(t, ethcommon.Hash{}, tx.Hash)
	assert.Equal(t, []string{"create_launch"}, fake.calls)

	_, _, err = o.CreateLaunch(context.Background(), ledger.CreateLaunchParams{Symbol: "X", MaxSupply: 1})
	assert.True(t, errors.HasCode(err, errors.CodeValidation))

	_, _, err = o.CreateLaunch(context.Background(), ledger.CreateLaunchParams{Name: "X", Symbol: "X"})
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
}

func TestConfigurePhase_CreatorOnly(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "pending")

	params := ledger.PhaseParams{
		Phase: launch.PhasePublic, Price: big.NewInt(50),
		StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	}

	_, err := o.ConfigurePhase(context.Background(), buyerAddr, 1, params)
	assert.True(t, errors.HasCode(err, errors.CodeAuthorization))
	assert.Empty(t, fake.calls, "unauthorized call must never reach the ledger")

	_, err = o.ConfigurePhase(context.Background(), creatorAddr, 1, params)
	require.NoError(t, err)
	assert.Equal(t, []string{"configure_phase"}, fake.calls)
}

func TestConfigurePhase_Validation(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "cancelled")

	_, err := o.ConfigurePhase(context.Background(), creatorAddr, 1, ledger.PhaseParams{
		Phase: launch.PhasePublic, Price: big.NewInt(50),
		StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "terminal launch is immutable")
	assert.Empty(t, fake.calls)
}

func TestStartLaunch(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "pending")

	// No configured phase yet: not ready.
	_, err := o.StartLaunch(context.Background(), creatorAddr, 1)
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
	assert.Empty(t, fake.calls)

	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})
	_, err = o.StartLaunch(context.Background(), creatorAddr, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"start_launch"}, fake.calls)
}

func TestCompleteAndCancel(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")

	_, err := o.CompleteLaunch(context.Background(), creatorAddr, 1)
	require.NoError(t, err)

	seedActiveLaunch(t, cat, "completed")
	_, err = o.CancelLaunch(context.Background(), creatorAddr, 1)
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "terminal launch cannot be cancelled")

	seedActiveLaunch(t, cat, "pending")
	_, err = o.CancelLaunch(context.Background(), creatorAddr, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"complete_launch", "cancel_launch"}, fake.calls)
}

func TestWhitelistManagement(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "pending")

	_, err := o.AddToWhitelist(context.Background(), creatorAddr, 1, launch.PhasePublic, []string{buyerAddr})
	assert.True(t, errors.HasCode(err, errors.CodeValidation), "public phase has no whitelist")

	_, err = o.AddToWhitelist(context.Background(), creatorAddr, 1, launch.PhasePresale, []string{"not-an-address"})
	assert.True(t, errors.HasCode(err, errors.CodeValidation))

	_, err = o.AddToWhitelist(context.Background(), creatorAddr, 1, launch.PhasePresale, nil)
	assert.True(t, errors.HasCode(err, errors.CodeValidation))
	assert.Empty(t, fake.calls)

	_, err = o.AddToWhitelist(context.Background(), creatorAddr, 1, launch.PhasePresale, []string{buyerAddr})
	require.NoError(t, err)
	_, err = o.RemoveFromWhitelist(context.Background(), creatorAddr, 1, launch.PhasePresale, []string{buyerAddr})
	require.NoError(t, err)
	assert.Equal(t, []string{"add_to_whitelist", "remove_from_whitelist"}, fake.calls)
}

func TestPurchase_PublicPhase(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 3, "ipfs://meta")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase"}, fake.calls)
	assert.Equal(t, big.NewInt(150), fake.lastPayment, "payment is price times quantity")
}

func TestPurchase_GatedPhaseRequiresWhitelist(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	seedPhase(t, cat, "presale", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls, "local rejection must never reach the ledger")

	require.NoError(t, cat.SetWhitelist(1, "presale", []string{buyerAddr}, true))
	_, err = o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase"}, fake.calls)
}

func TestPurchase_GatedPhaseFallsBackToLedgerWhitelist(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	seedPhase(t, cat, "presale", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	// The mirror has no entry for the buyer, but the contract says yes:
	// membership granted before the reconciler's start block must count.
	fake.onchainWhitelisted = true
	_, err := o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase"}, fake.calls)
	assert.Equal(t, 1, fake.whitelistQueries)

	// A mirrored removal answers locally; the contract is not consulted.
	require.NoError(t, cat.SetWhitelist(1, "presale", []string{buyerAddr}, false))
	_, err = o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Equal(t, 1, fake.whitelistQueries)
	assert.Equal(t, []string{"purchase"}, fake.calls)
}

func TestPurchase_WalletCapBoundary(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	// Buyer already holds 3 of a 5-per-wallet cap.
	for i := uint64(1); i <= 3; i++ {
		_, err := cat.RecordPurchase(&store.PurchaseRecord{
			CollectionAddress: "0xcol", TokenID: i, LaunchID: 1,
			Buyer: buyerAddr, Phase: "public", PricePaid: "50",
		})
		require.NoError(t, err)
	}

	// 3 + 3 > 5: rejected before submission.
	_, err := o.Purchase(context.Background(), buyerAddr, 1, 3, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls)

	// 3 + 2 == 5: exactly at the cap is allowed.
	_, err = o.Purchase(context.Background(), buyerAddr, 1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchase"}, fake.calls)
}

func TestPurchase_SupplyExhausted(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 10, MaxSupply: 4, TotalSold: 3,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 2, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls)

	_, err = o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.NoError(t, err)
}

func TestPurchase_NoActivePhase(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	// Window ended before the pinned clock at t=150.
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 10, EndTime: 100, MaxPerWallet: 5, MaxSupply: 20,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls)
}

func TestPurchase_InactiveLaunch(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "pending")
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls)
}

func TestPurchase_PhasePriority(t *testing.T) {
	o, cat, fake := newTestOrchestrator(t)
	seedActiveLaunch(t, cat, "active")
	// Both windows cover t=150; presale wins by priority, so the
	// unwhitelisted buyer is rejected even though public is also open.
	seedPhase(t, cat, "presale", store.PhaseConfig{
		Price: "50", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})
	seedPhase(t, cat, "public", store.PhaseConfig{
		Price: "80", StartTime: 100, EndTime: 200, MaxPerWallet: 5, MaxSupply: 20,
	})

	_, err := o.Purchase(context.Background(), buyerAddr, 1, 1, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeEligibility))
	assert.Empty(t, fake.calls)
}
