package ports

import "github.com/alejandrodnm/whalebridge/internal/domain"

// LedgerStore persists the paper trading ledger. Load returns
// domain.ErrLedgerMissing when the file does not exist.
type LedgerStore interface {
	Load() (*domain.Ledger, error)
	Save(ledger *domain.Ledger) error
	Exists() bool
}

// PendingStore persists the pending proposals state. A missing file loads
// as an empty state; the legacy bare-list format is accepted on load.
type PendingStore interface {
	Load() (*domain.PendingState, error)
	Save(state *domain.PendingState) error
}

// SignalStore reads and writes the tracker's scan output.
type SignalStore interface {
	LoadScan() (*domain.ScanResult, error)
	SaveScan(result *domain.ScanResult) error
}
