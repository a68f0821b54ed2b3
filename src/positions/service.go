package positions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"optionsmonitor/src/database"
	"optionsmonitor/src/model"
	"optionsmonitor/src/trigger"
)

var (
	// ErrNotFound means no position with that id belongs to the user.
	ErrNotFound = errors.New("position not found")
	// ErrInvalidStatus means the position's current status does not allow
	// the requested transition.
	ErrInvalidStatus = errors.New("position status does not allow this operation")
)

// Refresher requests an on-demand quote refresh for one underlying. The
// scheduler's Monitor satisfies it; a nil Refresher disables the post-write
// sync.
type Refresher interface {
	SyncSymbol(ctx context.Context, symbol string, bypassCache bool) error
}

// Service implements the manual position lifecycle: create, edit, close,
// partial close, reopen. Every mutation locks the row first so it cannot race
// the poll cycle's conditional trigger write.
type Service struct {
	db        *gorm.DB
	refresher Refresher
	now       func() time.Time
}

func NewService(refresher Refresher) *Service {
	return &Service{db: database.MainDB, refresher: refresher, now: time.Now}
}

func (s *Service) WithDB(db *gorm.DB) *Service {
	s.db = db
	return s
}

// CreateInput carries the caller-supplied fields for a new position.
type CreateInput struct {
	UserID              uint
	Symbol              string
	OptionType          string
	StrikePrice         float64
	ExpirationDate      time.Time
	EntryPrice          float64
	Quantity            int
	StopLossTrigger     *float64
	TakeProfitTrigger   *float64
	TrailingStopLossPct *float64
}

func (in CreateInput) validate() error {
	if in.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if in.OptionType != model.OptionTypeCall && in.OptionType != model.OptionTypePut {
		return fmt.Errorf("option type must be %s or %s", model.OptionTypeCall, model.OptionTypePut)
	}
	if in.StrikePrice <= 0 {
		return fmt.Errorf("strike price must be positive")
	}
	if in.EntryPrice <= 0 {
		return fmt.Errorf("entry price must be positive")
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if in.ExpirationDate.IsZero() {
		return fmt.Errorf("expiration date is required")
	}
	if in.TrailingStopLossPct != nil && (*in.TrailingStopLossPct <= 0 || *in.TrailingStopLossPct >= 100) {
		return fmt.Errorf("trailing stop pct must be between 0 and 100 exclusive")
	}
	return nil
}

// Create opens a new position. The trailing high-water mark starts at the
// entry price; with a trailing pct configured, the stop is seeded from the
// entry immediately so the position is protected before the first poll.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Position, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &model.Position{
		UserID:              in.UserID,
		Symbol:              in.Symbol,
		OptionType:          in.OptionType,
		StrikePrice:         in.StrikePrice,
		ExpirationDate:      in.ExpirationDate,
		EntryPrice:          in.EntryPrice,
		Quantity:            in.Quantity,
		StopLossTrigger:     in.StopLossTrigger,
		TakeProfitTrigger:   in.TakeProfitTrigger,
		TrailingStopLossPct: in.TrailingStopLossPct,
		TrailingHighPrice:   in.EntryPrice,
		Status:              model.PositionStatusOpen,
	}
	seedTrailingStop(p)

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("creating position: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"position_id": p.ID,
		"user_id":     p.UserID,
		"symbol":      p.Symbol,
	}).Info("Position created")

	s.refresh(ctx, p.Symbol)
	return p, nil
}

// EditInput updates triggers on an open position. Nil fields are left as-is.
type EditInput struct {
	StopLossTrigger     *float64
	TakeProfitTrigger   *float64
	TrailingStopLossPct *float64
}

// Edit adjusts trigger levels on an OPEN position. Changing the trailing pct
// recomputes the stop from the current high-water mark, adopted only if it
// raises the existing stop.
func (s *Service) Edit(ctx context.Context, userID, id uint, in EditInput) (*model.Position, error) {
	if in.TrailingStopLossPct != nil && (*in.TrailingStopLossPct <= 0 || *in.TrailingStopLossPct >= 100) {
		return nil, fmt.Errorf("trailing stop pct must be between 0 and 100 exclusive")
	}

	var p *model.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = lockPosition(tx, userID, id)
		if err != nil {
			return err
		}
		if p.Status != model.PositionStatusOpen {
			return ErrInvalidStatus
		}

		if in.StopLossTrigger != nil {
			p.StopLossTrigger = in.StopLossTrigger
		}
		if in.TakeProfitTrigger != nil {
			p.TakeProfitTrigger = in.TakeProfitTrigger
		}
		if in.TrailingStopLossPct != nil {
			p.TrailingStopLossPct = in.TrailingStopLossPct
			high := decimal.NewFromFloat(p.TrailingHighPrice)
			pct := decimal.NewFromFloat(*in.TrailingStopLossPct)
			candidate, _ := trigger.DeriveStop(high, pct).Float64()
			if p.StopLossTrigger == nil || candidate > *p.StopLossTrigger {
				p.StopLossTrigger = &candidate
			}
		}

		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close exits the full position at the given price. Any non-CLOSED status may
// be closed manually, including soft-triggered ones awaiting review.
func (s *Service) Close(ctx context.Context, userID, id uint, exitPrice float64) (*model.Position, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("exit price must be positive")
	}

	var p *model.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = lockPosition(tx, userID, id)
		if err != nil {
			return err
		}
		if p.Status == model.PositionStatusClosed {
			return ErrInvalidStatus
		}

		realized := p.DollarPnl(exitPrice, p.Quantity)
		closedAt := s.now()
		p.Status = model.PositionStatusClosed
		p.CurrentPrice = &exitPrice
		p.RealizedPnl = &realized
		p.ClosedAt = &closedAt

		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"position_id":  p.ID,
		"realized_pnl": *p.RealizedPnl,
	}).Info("Position closed")
	return p, nil
}

// PartialClose exits part of an OPEN position: a new, independently CLOSED
// record captures the exited contracts and their realized P&L, and the
// original keeps running with the reduced quantity and untouched triggers.
// Returns the new closed record.
func (s *Service) PartialClose(ctx context.Context, userID, id uint, quantity int, exitPrice float64) (*model.Position, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if exitPrice <= 0 {
		return nil, fmt.Errorf("exit price must be positive")
	}

	var closed *model.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := lockPosition(tx, userID, id)
		if err != nil {
			return err
		}
		if p.Status != model.PositionStatusOpen {
			return ErrInvalidStatus
		}
		if quantity >= p.Quantity {
			return fmt.Errorf("partial close quantity %d must be below position quantity %d", quantity, p.Quantity)
		}

		realized := p.DollarPnl(exitPrice, quantity)
		closedAt := s.now()
		closed = &model.Position{
			UserID:            p.UserID,
			Symbol:            p.Symbol,
			OptionType:        p.OptionType,
			StrikePrice:       p.StrikePrice,
			ExpirationDate:    p.ExpirationDate,
			EntryPrice:        p.EntryPrice,
			Quantity:          quantity,
			CurrentPrice:      &exitPrice,
			TrailingHighPrice: p.TrailingHighPrice,
			RealizedPnl:       &realized,
			Status:            model.PositionStatusClosed,
			ClosedAt:          &closedAt,
		}
		if err := tx.Create(closed).Error; err != nil {
			return err
		}

		p.Quantity -= quantity
		return tx.Save(p).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"position_id": id,
		"closed_id":   closed.ID,
		"quantity":    quantity,
	}).Info("Position partially closed")
	return closed, nil
}

// Reopen re-arms a triggered or closed position. The high-water mark resets
// to the entry price and a trailing stop is re-derived from it, so the stop
// reflects the fresh watermark rather than the pre-trigger peak.
func (s *Service) Reopen(ctx context.Context, userID, id uint) (*model.Position, error) {
	var p *model.Position
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = lockPosition(tx, userID, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PositionStatusStopTriggered,
			model.PositionStatusProfitTriggered,
			model.PositionStatusClosed:
		default:
			return ErrInvalidStatus
		}

		p.Status = model.PositionStatusOpen
		p.TrailingHighPrice = p.EntryPrice
		p.RealizedPnl = nil
		p.LossAvoided = nil
		p.ClosedAt = nil
		// The watermark dropped back to entry, so a trailing stop must be
		// re-derived from scratch rather than ratcheted against the old one.
		if p.TrailingStopLossPct != nil {
			p.StopLossTrigger = nil
		}
		seedTrailingStop(p)

		// Save skips zero/nil struct fields, so the cleared columns need an
		// explicit update list.
		return tx.Model(p).Updates(map[string]interface{}{
			"status":              p.Status,
			"trailing_high_price": p.TrailingHighPrice,
			"stop_loss_trigger":   p.StopLossTrigger,
			"realized_pnl":        nil,
			"loss_avoided":        nil,
			"closed_at":           nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithField("position_id", p.ID).Info("Position reopened")
	s.refresh(ctx, p.Symbol)
	return p, nil
}

// seedTrailingStop derives a stop from the current high-water mark when a
// trailing pct is configured, adopting it only if it raises the existing stop.
func seedTrailingStop(p *model.Position) {
	if p.TrailingStopLossPct == nil {
		return
	}
	high := decimal.NewFromFloat(p.TrailingHighPrice)
	pct := decimal.NewFromFloat(*p.TrailingStopLossPct)
	candidate, _ := trigger.DeriveStop(high, pct).Float64()
	if p.StopLossTrigger == nil || candidate > *p.StopLossTrigger {
		p.StopLossTrigger = &candidate
	}
}

func lockPosition(tx *gorm.DB, userID, id uint) (*model.Position, error) {
	var p model.Position
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) refresh(ctx context.Context, symbol string) {
	if s.refresher == nil {
		return
	}
	if err := s.refresher.SyncSymbol(ctx, symbol, true); err != nil {
		logger.WithField("symbol", symbol).
			WithError(err).Warn("Post-write quote sync failed")
	}
}
