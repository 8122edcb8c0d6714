package ports

import (
	"context"

	"github.com/alejandrodnm/whalebridge/internal/domain"
)

// Archive records bridge run history for later analysis. Archive failures
// never abort a run; callers log and continue.
type Archive interface {
	SaveRun(ctx context.Context, run domain.BridgeRun, verdicts []domain.SignalVerdict) error
	Close() error
}
