package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

func newTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSQLiteArchive_SaveAndReadRun(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	run := domain.BridgeRun{
		StartedAt:      time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC),
		SignalsIn:      3,
		ProposalsSent:  1,
		PortfolioTotal: 71.35,
		StalePrices:    1,
	}
	verdicts := []domain.SignalVerdict{
		{MarketID: "m1", MarketName: "A", Tier: 1, Category: domain.CategorySports, Stake: 6.60, Sent: true},
		{MarketID: "m2", MarketName: "B", Tier: 0, Guard: "tier", Reason: "Tier 0 — below threshold"},
		{MarketID: "m3", MarketName: "C", Tier: 2, Guard: "exposure", Reason: "Exposure 45.0% exceeds 40% max"},
	}
	require.NoError(t, a.SaveRun(ctx, run, verdicts))

	runs, err := a.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].SignalsIn)
	assert.Equal(t, 1, runs[0].ProposalsSent)
	assert.InDelta(t, 71.35, runs[0].PortfolioTotal, 0.001)
	assert.False(t, runs[0].DryRun)
}

func TestSQLiteArchive_DryRunFlag(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveRun(ctx, domain.BridgeRun{
		StartedAt: time.Now().UTC(), DryRun: true,
	}, nil))

	runs, err := a.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
}

func TestSQLiteArchive_RecentRunsOrder(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, a.SaveRun(ctx, domain.BridgeRun{
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			SignalsIn: i,
		}, nil))
	}

	runs, err := a.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].SignalsIn)
	assert.Equal(t, 1, runs[1].SignalsIn)
}
