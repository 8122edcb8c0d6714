package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

var checkTime = time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)

type memSignals struct {
	scan *domain.ScanResult
	err  error
}

func (s *memSignals) LoadScan() (*domain.ScanResult, error) { return s.scan, s.err }
func (s *memSignals) SaveScan(*domain.ScanResult) error     { return nil }

type memLedgers struct {
	ledger *domain.Ledger
}

func (s *memLedgers) Load() (*domain.Ledger, error) {
	if s.ledger == nil {
		return nil, domain.ErrLedgerMissing
	}
	return s.ledger, nil
}
func (s *memLedgers) Save(l *domain.Ledger) error { s.ledger = l; return nil }
func (s *memLedgers) Exists() bool                { return s.ledger != nil }

type memPending struct {
	state *domain.PendingState
}

func (s *memPending) Load() (*domain.PendingState, error) {
	if s.state == nil {
		return domain.NewPendingState(), nil
	}
	return s.state, nil
}
func (s *memPending) Save(state *domain.PendingState) error { s.state = state; return nil }

type captureNotifier struct {
	sent []string
	err  error
}

func (n *captureNotifier) Send(_ context.Context, text string) error {
	n.sent = append(n.sent, text)
	return n.err
}

func healthyChecker() *Checker {
	c := New(
		&memSignals{scan: &domain.ScanResult{ScannedAt: checkTime.Add(-30 * time.Minute)}},
		&memLedgers{ledger: domain.NewLedger(66, checkTime.Add(-48*time.Hour))},
		&memPending{},
	)
	c.now = func() time.Time { return checkTime }
	return c
}

func TestRun_AllHealthy(t *testing.T) {
	checks, allOK := healthyChecker().Run()
	assert.True(t, allOK)
	require.Len(t, checks, 3)
	assert.Contains(t, checks[0].Message, "Last scan: 30min ago")
	assert.Contains(t, checks[1].Message, "Balance: $66.00")
	assert.Contains(t, checks[2].Message, "No proposal spam")
}

func TestCheckLastScan_Overdue(t *testing.T) {
	c := healthyChecker()
	c.signals = &memSignals{scan: &domain.ScanResult{ScannedAt: checkTime.Add(-3 * time.Hour)}}

	check := c.checkLastScan()
	assert.False(t, check.OK)
	assert.Contains(t, check.Message, "OVERDUE")
}

func TestCheckLastScan_MissingFile(t *testing.T) {
	c := healthyChecker()
	c.signals = &memSignals{err: errors.New("open whale_signals.json: no such file")}

	check := c.checkLastScan()
	assert.False(t, check.OK)
	assert.Contains(t, check.Message, "Cannot read signals file")
}

func TestCheckPortfolio_PnL(t *testing.T) {
	c := healthyChecker()
	ledger := domain.NewLedger(66, checkTime)
	ledger.Meta.VirtualBalance = 72.60
	ledger.OpenPositions = []domain.Position{{MarketID: "m1"}, {MarketID: "m2"}}
	c.ledgers = &memLedgers{ledger: ledger}

	check := c.checkPortfolio()
	assert.True(t, check.OK)
	assert.Contains(t, check.Message, "Balance: $72.60")
	assert.Contains(t, check.Message, "Positions: 2")
	assert.Contains(t, check.Message, "P&L: +10.0%")
}

func TestCheckPortfolio_MissingLedger(t *testing.T) {
	c := healthyChecker()
	c.ledgers = &memLedgers{}

	check := c.checkPortfolio()
	assert.False(t, check.OK)
	assert.Contains(t, check.Message, "Cannot read ledger")
}

func TestCheckRepeatProposals_ActiveSpam(t *testing.T) {
	c := healthyChecker()
	c.pending = &memPending{state: &domain.PendingState{Proposals: []domain.PendingProposal{
		{MarketID: "m1", MarketName: "Will the vote pass?", Status: domain.ProposalSent,
			SentAt: checkTime.Add(-5 * time.Hour)},
		{MarketID: "m1", MarketName: "Will the vote pass?", Status: domain.ProposalSent,
			SentAt: checkTime.Add(-20 * time.Minute)},
	}}}

	check := c.checkRepeatProposals()
	assert.False(t, check.OK)
	assert.Contains(t, check.Message, "Repeat proposal ACTIVE")
	assert.Contains(t, check.Message, "20min ago")
}

func TestCheckRepeatProposals_StaleDuplicatesIgnored(t *testing.T) {
	c := healthyChecker()
	c.pending = &memPending{state: &domain.PendingState{Proposals: []domain.PendingProposal{
		{MarketID: "m1", Status: domain.ProposalSent, SentAt: checkTime.Add(-10 * time.Hour)},
		{MarketID: "m1", Status: domain.ProposalSent, SentAt: checkTime.Add(-5 * time.Hour)},
	}}}

	check := c.checkRepeatProposals()
	assert.True(t, check.OK)
}

func TestReport_DeliversViaNotifier(t *testing.T) {
	notifier := &captureNotifier{}
	require.NoError(t, healthyChecker().Report(context.Background(), notifier))

	require.Len(t, notifier.sent, 1)
	msg := notifier.sent[0]
	assert.Contains(t, msg, "WHALEBRIDGE HEALTH CHECK")
	assert.Contains(t, msg, "ALL SYSTEMS OK")
	assert.NotContains(t, msg, "Action may be required")
}

func TestReport_FlagsIssues(t *testing.T) {
	c := healthyChecker()
	c.ledgers = &memLedgers{}
	notifier := &captureNotifier{}

	require.NoError(t, c.Report(context.Background(), notifier))
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "ISSUES DETECTED")
	assert.Contains(t, notifier.sent[0], "Action may be required")
}
