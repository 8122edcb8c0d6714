package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

func TestLedgerStore_MissingFileIsFatal(t *testing.T) {
	store := NewLedgerStore(filepath.Join(t.TempDir(), "ledger.json"))
	assert.False(t, store.Exists())

	_, err := store.Load()
	assert.ErrorIs(t, err, domain.ErrLedgerMissing)
}

func TestLedgerStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewLedgerStore(path)

	ledger := domain.NewLedger(66.00, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC))
	ledger.OpenPositions = append(ledger.OpenPositions, domain.Position{
		ID: "4fbe8869", MarketID: "614008", MarketName: "Best Actor",
		Category: domain.CategoryEntertainment, Side: domain.SideYes,
		VirtualAmount: 8.00, EntryPrice: 0.79, Shares: 10.126582,
		SignalTier: 1, ExecutedAt: time.Now().UTC(), Paper: true,
	})
	require.NoError(t, store.Save(ledger))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 66.00, loaded.Meta.VirtualBalance)
	require.Len(t, loaded.OpenPositions, 1)
	assert.Equal(t, "4fbe8869", loaded.OpenPositions[0].ID)
	assert.Equal(t, domain.SideYes, loaded.OpenPositions[0].Side)
}

func TestLedgerStore_SaveOverwritesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store := NewLedgerStore(path)

	first := domain.NewLedger(66, time.Now().UTC())
	require.NoError(t, store.Save(first))

	second := domain.NewLedger(100, time.Now().UTC())
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 100.0, loaded.Meta.StartingBalance)
}

func TestPendingStore_MissingFileLoadsEmpty(t *testing.T) {
	store := NewPendingStore(filepath.Join(t.TempDir(), "pending.json"))
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Proposals)
	assert.Equal(t, 0, state.Daily.ProposalsSent)
}

func TestPendingStore_LegacyListFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	legacy := `[{"market_id":"614008","market_name":"Old one","status":"sent","sent_at":"2026-02-20T10:00:00Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	state, err := NewPendingStore(path).Load()
	require.NoError(t, err)
	require.Len(t, state.Proposals, 1)
	assert.Equal(t, "614008", state.Proposals[0].MarketID)
	assert.Equal(t, domain.ProposalSent, state.Proposals[0].Status)
	assert.Equal(t, "", state.Daily.Date)
}

func TestPendingStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	store := NewPendingStore(path)

	state := domain.NewPendingState()
	state.Proposals = append(state.Proposals, domain.PendingProposal{
		MarketID: "m1", MarketName: "Some market", Status: domain.ProposalBlocked,
		BlockReason: "exposure_guard", SentAt: time.Now().UTC(),
	})
	state.IncrementDaily(time.Now().UTC())
	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Proposals, 1)
	assert.Equal(t, domain.ProposalBlocked, loaded.Proposals[0].Status)
	assert.Equal(t, 1, loaded.Daily.ProposalsSent)
}

func TestSignalStore_MissingFileIsError(t *testing.T) {
	store := NewSignalStore(filepath.Join(t.TempDir(), "whale_signals.json"))
	_, err := store.LoadScan()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tracker")
}

func TestSignalStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whale_signals.json")
	store := NewSignalStore(path)

	result := &domain.ScanResult{
		ScannedAt:      time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC),
		SignalsCount:   1,
		MarketsScanned: 42,
		Signals: []domain.Signal{{
			MarketID: "614008", MarketName: "NBA Finals", Tier: 1,
			Divergence: 0.20, MarketProb: 0.50, WhaleProb: 0.70,
			Direction: "BUY", SizeUSD: 1200, YesPrice: 0.50,
		}},
	}
	require.NoError(t, store.SaveScan(result))

	loaded, err := store.LoadScan()
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.MarketsScanned)
	require.Len(t, loaded.Signals, 1)
	assert.Equal(t, 1, loaded.Signals[0].Tier)
}
