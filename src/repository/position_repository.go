package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optionsmonitor/src/database"
	"optionsmonitor/src/model"
)

// PositionRepository handles read/write operations for tracked positions.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance using the main
// read/write database.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindActive returns every position that is not CLOSED, i.e. everything the
// poll cycle still cares about (soft-triggered positions keep getting price
// refreshes until they are explicitly closed or reopened).
func (r *PositionRepository) FindActive(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status <> ?", model.PositionStatusClosed).
		Order("id ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindActive",
		}).WithError(err).Error("Failed to fetch active positions")

		return nil, err
	}

	return positions, nil
}

// FindActiveBySymbol narrows FindActive to one underlying symbol.
func (r *PositionRepository) FindActiveBySymbol(ctx context.Context, symbol string) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("status <> ? AND symbol = ?", model.PositionStatusClosed, symbol).
		Order("id ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "FindActiveBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch active positions by symbol")

		return nil, err
	}

	return positions, nil
}

// FindOpenByUser returns a user's OPEN positions, used by the briefing job.
func (r *PositionRepository) FindOpenByUser(ctx context.Context, userID uint) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.PositionStatusOpen).
		Order("id ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "FindOpenByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch open positions for user")

		return nil, err
	}

	return positions, nil
}

// UserIDsWithOpen returns the distinct owners of OPEN positions.
func (r *PositionRepository) UserIDsWithOpen(ctx context.Context) ([]uint, error) {
	var userIDs []uint

	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("status = ?", model.PositionStatusOpen).
		Distinct().
		Pluck("user_id", &userIDs).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "UserIDsWithOpen",
		}).WithError(err).Error("Failed to fetch users with open positions")

		return nil, err
	}

	return userIDs, nil
}

// Create inserts a new position. The given position is updated with the
// generated ID and timestamps.
func (r *PositionRepository) Create(ctx context.Context, position *model.Position) error {
	err := r.db.WithContext(ctx).Create(position).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "Create",
			"symbol": position.Symbol,
		}).WithError(err).Error("Failed to create position")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "Create",
		"position_id": position.ID,
		"symbol":      position.Symbol,
	}).Info("Position created")

	return nil
}

// ApplyQuote stores the latest observed premium and pricer snapshot on a
// position. Greeks that the pricer omitted are left untouched.
func (r *PositionRepository) ApplyQuote(ctx context.Context, id uint, quote *model.Quote) error {
	updates := map[string]interface{}{
		"current_price": quote.Price,
	}
	if quote.Delta != nil {
		updates["delta"] = *quote.Delta
	}
	if quote.Theta != nil {
		updates["theta"] = *quote.Theta
	}
	if quote.Gamma != nil {
		updates["gamma"] = *quote.Gamma
	}
	if quote.Vega != nil {
		updates["vega"] = *quote.Vega
	}
	if quote.IV != nil {
		updates["iv"] = *quote.IV
	}
	if quote.UnderlyingPrice != nil {
		updates["underlying_price"] = *quote.UnderlyingPrice
	}

	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ?", id).
		Updates(updates).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "ApplyQuote",
			"position_id": id,
		}).WithError(err).Error("Failed to apply quote to position")

		return err
	}

	return nil
}

// UpdateTrailing applies the trigger engine's partial watermark update.
// Nil fields are unchanged and omitted from the statement. The write is
// guarded on the row still being OPEN with the watermark the cycle read, so
// a close or reopen that lands mid-cycle cannot be overwritten by stale
// trailing progress. Returns false when the guard matched zero rows.
func (r *PositionRepository) UpdateTrailing(ctx context.Context, id uint, observedHigh float64, newHigh, newStop *float64) (bool, error) {
	updates := map[string]interface{}{}
	if newHigh != nil {
		updates["trailing_high_price"] = *newHigh
	}
	if newStop != nil {
		updates["stop_loss_trigger"] = *newStop
	}
	if len(updates) == 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ? AND trailing_high_price = ?", id, model.PositionStatusOpen, observedHigh).
		Updates(updates)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "UpdateTrailing",
			"position_id": id,
		}).WithError(result.Error).Error("Failed to update trailing state")

		return false, result.Error
	}

	if result.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "UpdateTrailing",
			"position_id": id,
		}).Info("Position changed underneath the cycle, trailing update skipped")

		return false, nil
	}

	return true, nil
}

// MarkTriggered performs the conditional trigger transition: the status is
// written only while the row is still OPEN, so two overlapping poll cycles
// (or a racing manual close) cannot double-fire the same alert. Returns
// false when the guard matched zero rows, which callers treat as a no-op.
func (r *PositionRepository) MarkTriggered(
	ctx context.Context,
	id uint,
	status string,
	actualPrice float64,
	realizedPnl float64,
	lossAvoided *float64,
) (bool, error) {

	updates := map[string]interface{}{
		"status":        status,
		"current_price": actualPrice,
		"realized_pnl":  realizedPnl,
	}
	if lossAvoided != nil {
		updates["loss_avoided"] = *lossAvoided
	}

	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Updates(updates)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "MarkTriggered",
			"position_id": id,
			"status":      status,
		}).WithError(result.Error).Error("Failed to mark position triggered")

		return false, result.Error
	}

	if result.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "MarkTriggered",
			"position_id": id,
			"status":      status,
		}).Info("Position no longer OPEN, trigger transition skipped")

		return false, nil
	}

	return true, nil
}

// CloseExpired closes a position whose contract expired, with zero realized
// P&L. Conditional on the row not already being CLOSED so a concurrent
// manual close wins cleanly.
func (r *PositionRepository) CloseExpired(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status <> ?", id, model.PositionStatusClosed).
		Updates(map[string]interface{}{
			"status":       model.PositionStatusClosed,
			"realized_pnl": 0.0,
			"closed_at":    now,
		})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "CloseExpired",
			"position_id": id,
		}).WithError(result.Error).Error("Failed to close expired position")

		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
