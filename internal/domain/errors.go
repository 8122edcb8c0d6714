package domain

import "errors"

// Sentinel errors for caller bugs and expected failure classes.
// Guard rejections are NOT errors — they are verdict values.
var (
	ErrInvalidSignal       = errors.New("invalid signal")
	ErrInvalidSide         = errors.New("invalid side")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrInsufficientBalance = errors.New("insufficient virtual balance")
	ErrPositionNotFound    = errors.New("position not found")
	ErrDuplicateTrade      = errors.New("duplicate trade")
	ErrLedgerExists        = errors.New("ledger already exists")
	ErrLedgerMissing       = errors.New("ledger not found")
	ErrPriceUnavailable    = errors.New("live price unavailable")
)
