package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optionsmonitor/src/database"
	"optionsmonitor/src/model"
)

// PriceHistoryRepository appends observed premiums. History is append-only;
// there are no update or delete operations.
type PriceHistoryRepository struct {
	db *gorm.DB
}

func NewPriceHistoryRepository() *PriceHistoryRepository {
	return &PriceHistoryRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PriceHistoryRepository) WithDB(db *gorm.DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Record appends one observed price for a position.
func (r *PriceHistoryRepository) Record(ctx context.Context, positionID uint, price float64, at time.Time) error {
	entry := model.PriceHistoryEntry{
		PositionID: positionID,
		Price:      price,
		RecordedAt: at,
	}

	err := r.db.WithContext(ctx).Create(&entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PriceHistoryRepository",
			"op":          "Record",
			"position_id": positionID,
		}).WithError(err).Error("Failed to record price history entry")

		return err
	}

	return nil
}
