package bridge

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// --- stubs ---

type stubSignals struct {
	scan *domain.ScanResult
}

func (s *stubSignals) LoadScan() (*domain.ScanResult, error) { return s.scan, nil }
func (s *stubSignals) SaveScan(*domain.ScanResult) error     { return nil }

type stubLedgers struct {
	ledger *domain.Ledger
	saves  int
}

func (s *stubLedgers) Load() (*domain.Ledger, error) {
	if s.ledger == nil {
		return nil, domain.ErrLedgerMissing
	}
	return s.ledger, nil
}
func (s *stubLedgers) Save(l *domain.Ledger) error { s.ledger = l; s.saves++; return nil }
func (s *stubLedgers) Exists() bool                { return s.ledger != nil }

type stubPrices struct {
	price float64
	fail  bool
	calls int
}

func (s *stubPrices) Price(_ context.Context, _ string, _ domain.Side) (float64, error) {
	s.calls++
	if s.fail {
		return 0, domain.ErrPriceUnavailable
	}
	return s.price, nil
}

type recordNotifier struct {
	sent []string
}

func (n *recordNotifier) Send(_ context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

type stubArchive struct {
	runs     []domain.BridgeRun
	verdicts [][]domain.SignalVerdict
}

func (a *stubArchive) SaveRun(_ context.Context, run domain.BridgeRun, vs []domain.SignalVerdict) error {
	a.runs = append(a.runs, run)
	a.verdicts = append(a.verdicts, vs)
	return nil
}
func (a *stubArchive) Close() error { return nil }

// --- helpers ---

func tier1Signal(marketID, name string) domain.Signal {
	return domain.Signal{
		MarketID:      marketID,
		MarketName:    name,
		YesPrice:      0.50,
		Tier:          1,
		Divergence:    0.20,
		WhaleProb:     0.70,
		MarketProb:    0.50,
		Direction:     "BUY",
		SizeUSD:       1200,
		DaysToResolve: 5,
		EndDateISO:    "2026-03-01T00:00:00Z",
	}
}

func testConfig(dryRun bool) Config {
	return Config{
		Sizer:           domain.SizerConfig{MinBet: 3, MaxBet: 10, KellyFraction: 0.25},
		Guards:          testGuards,
		MaxProposalsDay: 5,
		DryRun:          dryRun,
	}
}

type bridgeFixture struct {
	bridge   *Bridge
	signals  *stubSignals
	ledgers  *stubLedgers
	pending  *memPendingStore
	notifier *recordNotifier
	archive  *stubArchive
}

func newFixture(cfg Config, signals []domain.Signal, ledger *domain.Ledger) *bridgeFixture {
	f := &bridgeFixture{
		signals: &stubSignals{scan: &domain.ScanResult{
			ScannedAt: time.Now().UTC(),
			Signals:   signals,
		}},
		ledgers:  &stubLedgers{ledger: ledger},
		pending:  &memPendingStore{},
		notifier: &recordNotifier{},
		archive:  &stubArchive{},
	}
	f.bridge = New(cfg, f.signals, f.ledgers, f.pending,
		&stubPrices{price: 0.5}, f.notifier, f.archive)
	return f
}

// --- tests ---

func TestRun_SendsProposalAndRecordsIt(t *testing.T) {
	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "NBA Finals winner")}, emptyLedger())

	require.NoError(t, f.bridge.Run(context.Background()))

	require.Len(t, f.notifier.sent, 1)
	msg := f.notifier.sent[0]
	assert.True(t, strings.HasPrefix(msg, "PAPER TRADE PROPOSAL"))
	assert.Contains(t, msg, "NBA Finals winner")
	assert.Contains(t, msg, "Side: YES")
	assert.Contains(t, msg, "Kelly=40%")
	assert.Contains(t, msg, "expires in 30 min")

	// Persisted immediately after send
	require.NotNil(t, f.pending.state)
	require.Len(t, f.pending.state.Proposals, 1)
	assert.Equal(t, domain.ProposalSent, f.pending.state.Proposals[0].Status)
	assert.Equal(t, 1, f.pending.state.Daily.ProposalsSent)
}

func TestRun_TierZeroShortCircuits(t *testing.T) {
	sig := tier1Signal("m1", "Something political about the election")
	sig.Tier = 0
	f := newFixture(testConfig(false), []domain.Signal{sig}, emptyLedger())

	require.NoError(t, f.bridge.Run(context.Background()))

	// Never reached the later guards or the notifier
	assert.Empty(t, f.notifier.sent)
	require.Len(t, f.archive.verdicts, 1)
	require.Len(t, f.archive.verdicts[0], 1)
	assert.Equal(t, "tier", f.archive.verdicts[0][0].Guard)
	assert.False(t, f.archive.verdicts[0][0].Sent)
}

func TestRun_DailyCapStopsMidLoop(t *testing.T) {
	var signals []domain.Signal
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		signals = append(signals, tier1Signal(id, "Market "+id))
	}
	f := newFixture(testConfig(false), signals, emptyLedger())

	require.NoError(t, f.bridge.Run(context.Background()))
	assert.Len(t, f.notifier.sent, 5)
	assert.Equal(t, 5, f.pending.state.Daily.ProposalsSent)
}

func TestRun_CapAlreadyReachedExitsEarly(t *testing.T) {
	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "Market")}, emptyLedger())
	f.pending.state = &domain.PendingState{
		Proposals: []domain.PendingProposal{},
		Daily:     domain.DailyStats{Date: domain.UTCDay(time.Now().UTC()), ProposalsSent: 5},
	}

	require.NoError(t, f.bridge.Run(context.Background()))
	assert.Empty(t, f.notifier.sent)
}

func TestRun_ExposureBlockAlertsOnceAndRecords(t *testing.T) {
	// $66 cash + $38 open at cost (stale prices) → headroom below MinBet
	ledger := emptyLedger()
	ledger.Meta.VirtualBalance = 62
	ledger.OpenPositions = []domain.Position{
		{MarketID: "open1", Category: domain.CategoryOther, VirtualAmount: 38, Shares: 50},
	}

	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "Big market")}, ledger)
	f.bridge.valuer = NewValuer(&stubPrices{fail: true}) // mark at cost

	require.NoError(t, f.bridge.Run(context.Background()))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "BLOCKED by exposure guard")
	assert.True(t, f.pending.state.HasBlocked("m1"))

	// Second run: duplicate guard suppresses both proposal and alert
	f2 := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "Big market")}, ledger)
	f2.pending.state = f.pending.state
	f2.bridge.valuer = NewValuer(&stubPrices{fail: true})

	require.NoError(t, f2.bridge.Run(context.Background()))
	assert.Empty(t, f2.notifier.sent)
	require.Len(t, f2.archive.verdicts[0], 1)
	assert.Equal(t, "duplicate", f2.archive.verdicts[0][0].Guard)
}

func TestRun_CategoryBlockAlwaysAlerts(t *testing.T) {
	// Sports already at 35% of a $100 portfolio; a $6.60 stake breaches 40%
	ledger := emptyLedger()
	ledger.Meta.VirtualBalance = 65
	ledger.OpenPositions = []domain.Position{
		{MarketID: "open1", Category: domain.CategorySports, VirtualAmount: 35, Shares: 35},
	}

	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "NBA Finals game")}, ledger)
	f.bridge.valuer = NewValuer(&stubPrices{fail: true})

	require.NoError(t, f.bridge.Run(context.Background()))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "BLOCKED by category cap")
	assert.Contains(t, f.notifier.sent[0], "Sports")
	// Category blocks are not recorded as blocked proposals
	assert.False(t, f.pending.state != nil && f.pending.state.HasBlocked("m1"))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(testConfig(true), []domain.Signal{tier1Signal("m1", "Market")}, emptyLedger())

	require.NoError(t, f.bridge.Run(context.Background()))
	assert.Len(t, f.notifier.sent, 1)
	assert.Equal(t, 0, f.pending.saves)
	assert.Equal(t, 0, f.ledgers.saves)
}

func TestRun_MissingLedgerIsFatal(t *testing.T) {
	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "Market")}, nil)

	err := f.bridge.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerMissing)
	assert.Contains(t, err.Error(), "paper init")
}

func TestRun_NoSignalsExitsCleanly(t *testing.T) {
	f := newFixture(testConfig(false), nil, emptyLedger())
	require.NoError(t, f.bridge.Run(context.Background()))
	assert.Empty(t, f.notifier.sent)
	assert.Empty(t, f.archive.runs)
}

func TestRun_StalePricesFlaggedInArchive(t *testing.T) {
	ledger := emptyLedger()
	ledger.OpenPositions = []domain.Position{
		{MarketID: "open1", Category: domain.CategoryOther, VirtualAmount: 5, Shares: 10},
	}
	f := newFixture(testConfig(false), []domain.Signal{tier1Signal("m1", "Market")}, ledger)
	f.bridge.valuer = NewValuer(&stubPrices{fail: true})

	require.NoError(t, f.bridge.Run(context.Background()))
	require.Len(t, f.archive.runs, 1)
	assert.Equal(t, 1, f.archive.runs[0].StalePrices)
}

func TestBuildProposal_TestModeHeader(t *testing.T) {
	t.Setenv("BRIDGE_TEST_MODE", "1")
	msg := buildProposal(proposalInput{
		Signal:   tier1Signal("m1", "Market"),
		Category: domain.CategorySports,
		Amount:   6.60,
		TTL:      30 * time.Minute,
	})
	assert.True(t, strings.HasPrefix(msg, "[TEST DO NOT FUND] PAPER TRADE PROPOSAL"))
}

func TestBuildProposal_FirstTradeSplit(t *testing.T) {
	msg := buildProposal(proposalInput{
		Signal:   tier1Signal("m1", "Market"),
		Category: domain.CategorySports,
		Amount:   6.60,
		Total:    0,
		TTL:      30 * time.Minute,
	})
	assert.Contains(t, msg, "First trade")
}

func TestBuildProposal_ResolutionLine(t *testing.T) {
	msg := buildProposal(proposalInput{
		Signal:   tier1Signal("m1", "Market"),
		Category: domain.CategorySports,
		Amount:   6.60,
		Total:    100,
		TTL:      30 * time.Minute,
	})
	assert.Contains(t, msg, "Resolves: Mar 01 (5 days)")
	// Entry 0.50 → max ROI 100%
	assert.Contains(t, msg, "Max ROI if correct: +100.0%")
}
