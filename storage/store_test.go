package storage

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/core/types"
	"nftmarket/native/market"
)

func testBackends(t *testing.T) map[string]Database {
	t.Helper()
	ldb, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ldb.Close() })
	return map[string]Database{
		"memdb":   NewMemDB(),
		"leveldb": ldb,
	}
}

func testAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func sampleEntry(id uint64) *market.Entry {
	return &market.Entry{
		ID:       id,
		OnSale:   true,
		Seller:   testAddr(0x02),
		AssetID:  7,
		ListedAt: 1_700_000_000,
		Price:    big.NewInt(1_000_000),
		Plan:     market.PlanSixMonths,
	}
}

func sampleBid(id, entryID uint64) *market.Bid {
	return &market.Bid{
		ID:        id,
		EntryID:   entryID,
		Buyer:     testAddr(0x03),
		Price:     big.NewInt(2_000_000),
		Plan:      market.PlanThreeMonths,
		PricePaid: big.NewInt(680_000),
		Timestamp: 1_700_000_100,
	}
}

func TestEntryRoundTrip(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(db)
			entry := sampleEntry(1)
			require.NoError(t, store.MarketEntryPut(entry))

			loaded, ok := store.MarketEntryGet(1)
			require.True(t, ok)
			require.Equal(t, entry.Seller, loaded.Seller)
			require.Equal(t, market.PlanSixMonths, loaded.Plan)
			require.Zero(t, entry.Price.Cmp(loaded.Price))

			_, ok = store.MarketEntryGet(2)
			require.False(t, ok)

			require.NoError(t, store.MarketEntryDelete(1))
			_, ok = store.MarketEntryGet(1)
			require.False(t, ok)
			require.Error(t, store.MarketEntryDelete(1))
		})
	}
}

func TestEntryPutRejectsInvalidRecords(t *testing.T) {
	store := NewStore(NewMemDB())
	require.Error(t, store.MarketEntryPut(nil))

	bad := sampleEntry(1)
	bad.Plan = market.InstallmentPlan(42)
	require.Error(t, store.MarketEntryPut(bad))

	inconsistent := sampleEntry(2)
	inconsistent.SelectedBidID = 9
	inconsistent.InstallmentsPaid = 2
	inconsistent.PaymentsClaimed = 3
	require.Error(t, store.MarketEntryPut(inconsistent))
}

func TestBidRoundTrip(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(db)
			bid := sampleBid(1, 1)
			require.NoError(t, store.MarketBidPut(bid))

			loaded, ok := store.MarketBidGet(1)
			require.True(t, ok)
			require.Equal(t, bid.Buyer, loaded.Buyer)
			require.Zero(t, bid.PricePaid.Cmp(loaded.PricePaid))

			require.NoError(t, store.MarketBidDelete(1))
			_, ok = store.MarketBidGet(1)
			require.False(t, ok)
			require.Error(t, store.MarketBidDelete(1))
		})
	}
}

func TestSequencesStartAtOneAndNeverReuse(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(db)
			first, err := store.MarketNextEntryID()
			require.NoError(t, err)
			require.EqualValues(t, 1, first)

			second, err := store.MarketNextEntryID()
			require.NoError(t, err)
			require.EqualValues(t, 2, second)

			// Bid ids advance independently of entry ids.
			bidID, err := store.MarketNextBidID()
			require.NoError(t, err)
			require.EqualValues(t, 1, bidID)

			// Deleting a record does not recycle its id.
			require.NoError(t, store.MarketEntryPut(sampleEntry(second)))
			require.NoError(t, store.MarketEntryDelete(second))
			third, err := store.MarketNextEntryID()
			require.NoError(t, err)
			require.EqualValues(t, 3, third)
		})
	}
}

func TestIDListingsAreOrdered(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(db)
			for _, id := range []uint64{3, 1, 2, 300} {
				require.NoError(t, store.MarketEntryPut(sampleEntry(id)))
				require.NoError(t, store.MarketBidPut(sampleBid(id, id)))
			}
			require.Equal(t, []uint64{1, 2, 3, 300}, store.MarketEntryIDs())
			require.Equal(t, []uint64{1, 2, 3, 300}, store.MarketBidIDs())

			require.NoError(t, store.MarketBidDelete(2))
			require.Equal(t, []uint64{1, 3, 300}, store.MarketBidIDs())
		})
	}
}

func TestAccountDefaultsToZeroBalance(t *testing.T) {
	for name, db := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(db)
			addr := testAddr(0x0A)

			acc, err := store.GetAccount(addr)
			require.NoError(t, err)
			require.Zero(t, acc.Balance.Sign())

			acc.Balance = big.NewInt(42)
			acc.Nonce = 7
			require.NoError(t, store.PutAccount(addr, acc))

			loaded, err := store.GetAccount(addr)
			require.NoError(t, err)
			require.EqualValues(t, 7, loaded.Nonce)
			require.Zero(t, loaded.Balance.Cmp(big.NewInt(42)))

			require.Error(t, store.PutAccount(addr, nil))
		})
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ldb, err := NewLevelDB(dir)
	require.NoError(t, err)
	store := NewStore(ldb)
	require.NoError(t, store.MarketEntryPut(sampleEntry(1)))
	_, err = store.MarketNextEntryID()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ldb, err = NewLevelDB(dir)
	require.NoError(t, err)
	store = NewStore(ldb)
	defer func() { _ = store.Close() }()

	_, ok := store.MarketEntryGet(1)
	require.True(t, ok)
	next, err := store.MarketNextEntryID()
	require.NoError(t, err)
	require.EqualValues(t, 2, next)
}

// The store must satisfy the market engine's state contract.
func TestStoreBacksTheMarketEngine(t *testing.T) {
	store := NewStore(NewMemDB())
	engine := market.NewEngine(testAddr(0x01), testAddr(0xEE))
	engine.SetState(store)

	acc := &types.Account{Balance: big.NewInt(1)}
	require.NoError(t, store.PutAccount(testAddr(0x0B), acc))
	require.False(t, engine.IsEntryIDValid(1))
}
