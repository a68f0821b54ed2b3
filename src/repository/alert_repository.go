package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optionsmonitor/src/database"
	"optionsmonitor/src/model"
)

// AlertRepository appends trigger event records. Alerts are immutable.
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AlertRepository) WithDB(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Record appends one trigger event.
func (r *AlertRepository) Record(ctx context.Context, alert *model.Alert) error {
	err := r.db.WithContext(ctx).Create(alert).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":         "AlertRepository",
			"op":           "Record",
			"position_id":  alert.PositionID,
			"trigger_type": alert.TriggerType,
		}).WithError(err).Error("Failed to record alert")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":         "AlertRepository",
		"op":           "Record",
		"position_id":  alert.PositionID,
		"trigger_type": alert.TriggerType,
		"actual_price": alert.ActualPrice,
	}).Info("Alert recorded")

	return nil
}
