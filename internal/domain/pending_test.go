package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentToday_SameDay(t *testing.T) {
	now := time.Date(2026, 2, 24, 15, 0, 0, 0, time.UTC)
	s := &PendingState{Daily: DailyStats{Date: "2026-02-24", ProposalsSent: 3}}
	assert.Equal(t, 3, s.SentToday(now))
}

func TestSentToday_StaleDateReadsAsZero(t *testing.T) {
	// Implicit reset: a counter from another day is simply ignored
	now := time.Date(2026, 2, 25, 0, 0, 1, 0, time.UTC)
	s := &PendingState{Daily: DailyStats{Date: "2026-02-24", ProposalsSent: 5}}
	assert.Equal(t, 0, s.SentToday(now))
}

func TestIncrementDaily_RollsOverOnNewDay(t *testing.T) {
	s := &PendingState{Daily: DailyStats{Date: "2026-02-24", ProposalsSent: 5}}
	now := time.Date(2026, 2, 25, 0, 0, 1, 0, time.UTC)

	s.IncrementDaily(now)
	assert.Equal(t, "2026-02-25", s.Daily.Date)
	assert.Equal(t, 1, s.Daily.ProposalsSent)
}

func TestIncrementDaily_SameDayAccumulates(t *testing.T) {
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	s := NewPendingState()
	for i := 0; i < 5; i++ {
		s.IncrementDaily(now)
	}
	assert.Equal(t, 5, s.SentToday(now))
}

func TestHasBlocked(t *testing.T) {
	s := &PendingState{Proposals: []PendingProposal{
		{MarketID: "m1", Status: ProposalSent},
		{MarketID: "m2", Status: ProposalBlocked},
	}}
	assert.False(t, s.HasBlocked("m1"))
	assert.True(t, s.HasBlocked("m2"))
	assert.False(t, s.HasBlocked("m3"))
}

func TestProposalAge(t *testing.T) {
	sent := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	p := PendingProposal{SentAt: sent}
	assert.Equal(t, 30*time.Minute, p.Age(sent.Add(30*time.Minute)))
}
