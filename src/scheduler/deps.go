package scheduler

import (
	"context"
	"time"

	"optionsmonitor/src/model"
)

// The scheduler consumes its collaborators through narrow interfaces so the
// poll cycle can be exercised with fakes. The gorm repositories satisfy the
// store interfaces; quotecache.Cache satisfies QuoteCache.

// PositionStore is the logical position read/write surface the cycle needs.
type PositionStore interface {
	FindActive(ctx context.Context) ([]model.Position, error)
	FindActiveBySymbol(ctx context.Context, symbol string) ([]model.Position, error)
	FindOpenByUser(ctx context.Context, userID uint) ([]model.Position, error)
	UserIDsWithOpen(ctx context.Context) ([]uint, error)
	ApplyQuote(ctx context.Context, id uint, quote *model.Quote) error
	UpdateTrailing(ctx context.Context, id uint, observedHigh float64, newHigh, newStop *float64) (bool, error)
	MarkTriggered(ctx context.Context, id uint, status string, actualPrice, realizedPnl float64, lossAvoided *float64) (bool, error)
	CloseExpired(ctx context.Context, id uint, now time.Time) (bool, error)
}

// PriceHistoryStore appends one row per successful price update.
type PriceHistoryStore interface {
	Record(ctx context.Context, positionID uint, price float64, at time.Time) error
}

// AlertStore appends one row per trigger event.
type AlertStore interface {
	Record(ctx context.Context, alert *model.Alert) error
}

// SettingsStore exposes the persisted tunables.
type SettingsStore interface {
	PollInterval(ctx context.Context) (time.Duration, error)
	SetPollInterval(ctx context.Context, interval time.Duration) error
	BriefingFrequency(ctx context.Context, userID uint) (string, error)
}

// QuoteCache is the fail-open cache in front of the pricer.
type QuoteCache interface {
	Get(ctx context.Context, contractKey string) (*model.Quote, bool)
	Set(ctx context.Context, contractKey string, quote *model.Quote)
}
