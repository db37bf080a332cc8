package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintworks/launchpadd/store"
)

func TestOpenInMemoryDB(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	// All catalog tables must exist after migration.
	for _, model := range []any{
		&store.Launch{}, &store.PhaseConfig{}, &store.WhitelistEntry{},
		&store.PurchaseRecord{}, &store.CatalogItem{}, &store.ChainState{},
	} {
		assert.True(t, database.Client().Migrator().HasTable(model))
	}
}

func TestOpenFileDB_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "catalog")

	database, err := OpenFileDB(dir, "catalog.db", true)
	require.NoError(t, err)
	defer database.Close()

	assert.FileExists(t, filepath.Join(dir, "catalog.db"))
}

func TestUniqueIndexes(t *testing.T) {
	database, err := OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	launch := &store.Launch{LaunchID: 1, CollectionAddress: "0xabc", Status: "pending"}
	require.NoError(t, database.Client().Create(launch).Error)

	// A second row with the same ledger launch ID must be rejected; upserts
	// go through the catalog repository, never raw duplicate inserts.
	dup := &store.Launch{LaunchID: 1, CollectionAddress: "0xdef", Status: "pending"}
	assert.Error(t, database.Client().Create(dup).Error)

	rec := &store.PurchaseRecord{CollectionAddress: "0xabc", TokenID: 7, LaunchID: 1, Buyer: "0xb"}
	require.NoError(t, database.Client().Create(rec).Error)
	dupRec := &store.PurchaseRecord{CollectionAddress: "0xabc", TokenID: 7, LaunchID: 1, Buyer: "0xc"}
	assert.Error(t, database.Client().Create(dupRec).Error)
}

func TestClose(t *testing.T) {
	database, err := OpenInMemoryDB(false)
	require.NoError(t, err)
	require.NoError(t, database.Close())
}
