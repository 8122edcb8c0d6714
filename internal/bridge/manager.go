package bridge

import (
	"fmt"

	"time"

	"github.com/alejandrodnm/whalebridge/internal/domain"
	"github.com/alejandrodnm/whalebridge/internal/ports"
)

// Manager owns the pending proposals state for one bridge run: the daily
// cap, the proposal records and their TTL cleanup. Persist is called right
// after every successful send so a crash mid-run never resends.
type Manager struct {
	state      *domain.PendingState
	store      ports.PendingStore
	maxPerDay  int
	sentTTL    time.Duration
	blockedTTL time.Duration
	dryRun     bool
}

// NewManager loads the pending state from the store.
func NewManager(store ports.PendingStore, maxPerDay int, sentTTL, blockedTTL time.Duration, dryRun bool) (*Manager, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("bridge.NewManager: %w", err)
	}
	return &Manager{
		state:      state,
		store:      store,
		maxPerDay:  maxPerDay,
		sentTTL:    sentTTL,
		blockedTTL: blockedTTL,
		dryRun:     dryRun,
	}, nil
}

// State exposes the loaded pending state to the guards.
func (m *Manager) State() *domain.PendingState {
	return m.state
}

// CanSend reports whether today's cap still has room, and how many
// proposals were already sent this UTC day.
func (m *Manager) CanSend(now time.Time) (bool, int) {
	sent := m.state.SentToday(now)
	return sent < m.maxPerDay, sent
}

// RecordSent appends a sent proposal, bumps the daily counter and persists
// immediately. Call only after the notifier accepted the message.
func (m *Manager) RecordSent(p domain.PendingProposal, now time.Time) error {
	p.Status = domain.ProposalSent
	p.SentAt = now.UTC()
	m.state.Proposals = append(m.state.Proposals, p)
	m.state.IncrementDaily(now)
	return m.persist()
}

// RecordBlocked appends a blocked record so the duplicate guard suppresses
// repeat alerts for the same market, and persists immediately.
func (m *Manager) RecordBlocked(marketID, marketName, reason string, now time.Time) error {
	m.state.Proposals = append(m.state.Proposals, domain.PendingProposal{
		MarketID:    marketID,
		MarketName:  marketName,
		Status:      domain.ProposalBlocked,
		BlockReason: reason,
		SentAt:      now.UTC(),
	})
	return m.persist()
}

// AlreadyBlocked reports whether the market already carries a blocked record.
func (m *Manager) AlreadyBlocked(marketID string) bool {
	return m.state.HasBlocked(marketID)
}

// Purge drops expired records: sent proposals older than twice their TTL
// (kept past expiry so the duplicate guard still sees them), blocked
// records older than the blocked TTL. Returns how many were removed.
func (m *Manager) Purge(now time.Time) (int, error) {
	kept := m.state.Proposals[:0]
	for _, p := range m.state.Proposals {
		limit := 2 * m.sentTTL
		if p.Status == domain.ProposalBlocked {
			limit = m.blockedTTL
		}
		if p.Age(now) < limit {
			kept = append(kept, p)
		}
	}

	removed := len(m.state.Proposals) - len(kept)
	m.state.Proposals = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, m.persist()
}

// persist writes the state unless running dry.
func (m *Manager) persist() error {
	if m.dryRun {
		return nil
	}
	if err := m.store.Save(m.state); err != nil {
		return fmt.Errorf("bridge.Manager: persist: %w", err)
	}
	return nil
}
