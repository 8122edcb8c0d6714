package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// memPendingStore is an in-memory ports.PendingStore for tests.
type memPendingStore struct {
	state *domain.PendingState
	saves int
}

func (s *memPendingStore) Load() (*domain.PendingState, error) {
	if s.state == nil {
		return domain.NewPendingState(), nil
	}
	return s.state, nil
}

func (s *memPendingStore) Save(state *domain.PendingState) error {
	s.state = state
	s.saves++
	return nil
}

func newTestManager(t *testing.T, store *memPendingStore, dryRun bool) *Manager {
	t.Helper()
	m, err := NewManager(store, 5, 30*time.Minute, 48*time.Hour, dryRun)
	require.NoError(t, err)
	return m
}

func TestManager_DailyCapFiveThenReject(t *testing.T) {
	store := &memPendingStore{}
	m := newTestManager(t, store, false)
	now := time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ok, sent := m.CanSend(now)
		assert.True(t, ok)
		assert.Equal(t, i, sent)
		require.NoError(t, m.RecordSent(domain.PendingProposal{MarketID: "m"}, now))
	}

	ok, sent := m.CanSend(now)
	assert.False(t, ok)
	assert.Equal(t, 5, sent)
}

func TestManager_CapResetsAtMidnightUTC(t *testing.T) {
	store := &memPendingStore{state: &domain.PendingState{
		Proposals: []domain.PendingProposal{},
		Daily:     domain.DailyStats{Date: "2026-02-24", ProposalsSent: 5},
	}}
	m := newTestManager(t, store, false)

	nextDay := time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC)
	ok, sent := m.CanSend(nextDay)
	assert.True(t, ok)
	assert.Equal(t, 0, sent)

	require.NoError(t, m.RecordSent(domain.PendingProposal{MarketID: "m"}, nextDay))
	assert.Equal(t, "2026-02-25", m.State().Daily.Date)
	assert.Equal(t, 1, m.State().Daily.ProposalsSent)
}

func TestManager_RecordSentPersistsImmediately(t *testing.T) {
	store := &memPendingStore{}
	m := newTestManager(t, store, false)

	require.NoError(t, m.RecordSent(domain.PendingProposal{MarketID: "m1"}, time.Now().UTC()))
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.state.Proposals, 1)
	assert.Equal(t, domain.ProposalSent, store.state.Proposals[0].Status)
}

func TestManager_DryRunNeverWrites(t *testing.T) {
	store := &memPendingStore{}
	m := newTestManager(t, store, true)

	now := time.Now().UTC()
	require.NoError(t, m.RecordSent(domain.PendingProposal{MarketID: "m1"}, now))
	require.NoError(t, m.RecordBlocked("m2", "x", "exposure_guard", now))
	assert.Equal(t, 0, store.saves)
}

func TestManager_RecordBlocked(t *testing.T) {
	store := &memPendingStore{}
	m := newTestManager(t, store, false)

	now := time.Now().UTC()
	require.NoError(t, m.RecordBlocked("m1", "Some market", "exposure_guard", now))
	assert.True(t, m.AlreadyBlocked("m1"))
	assert.False(t, m.AlreadyBlocked("m2"))
	assert.Equal(t, "exposure_guard", store.state.Proposals[0].BlockReason)
}

func TestManager_PurgeExpired(t *testing.T) {
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	store := &memPendingStore{state: &domain.PendingState{Proposals: []domain.PendingProposal{
		// sent 59m ago: under 2×TTL, kept for the duplicate guard's benefit
		{MarketID: "keep-sent", Status: domain.ProposalSent, SentAt: now.Add(-59 * time.Minute)},
		// sent 61m ago: past 2×TTL, dropped
		{MarketID: "drop-sent", Status: domain.ProposalSent, SentAt: now.Add(-61 * time.Minute)},
		// blocked 47h ago: kept
		{MarketID: "keep-blocked", Status: domain.ProposalBlocked, SentAt: now.Add(-47 * time.Hour)},
		// blocked 49h ago: dropped
		{MarketID: "drop-blocked", Status: domain.ProposalBlocked, SentAt: now.Add(-49 * time.Hour)},
	}}}
	m := newTestManager(t, store, false)

	removed, err := m.Purge(now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ids := []string{}
	for _, p := range m.State().Proposals {
		ids = append(ids, p.MarketID)
	}
	assert.ElementsMatch(t, []string{"keep-sent", "keep-blocked"}, ids)
}

func TestManager_PurgeNothingSkipsWrite(t *testing.T) {
	store := &memPendingStore{}
	m := newTestManager(t, store, false)

	removed, err := m.Purge(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, store.saves)
}
