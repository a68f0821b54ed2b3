package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optionsmonitor/src/database"
	"optionsmonitor/src/model"
)

// schedulerSettingsUser owns the process-wide row holding the poll interval.
const schedulerSettingsUser uint = 0

// SettingsRepository reads and writes persisted tunables.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SettingsRepository) WithDB(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// PollInterval returns the persisted poll interval, falling back to the
// default when no row exists yet.
func (r *SettingsRepository) PollInterval(ctx context.Context) (time.Duration, error) {
	var settings model.Settings

	err := r.db.WithContext(ctx).
		Where("user_id = ?", schedulerSettingsUser).
		First(&settings).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Duration(model.DefaultPollIntervalSeconds) * time.Second, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "PollInterval",
		}).WithError(err).Error("Failed to fetch poll interval")

		return 0, err
	}

	if settings.PollIntervalSeconds <= 0 {
		return time.Duration(model.DefaultPollIntervalSeconds) * time.Second, nil
	}

	return time.Duration(settings.PollIntervalSeconds) * time.Second, nil
}

// SetPollInterval persists a new poll interval on the process-wide row,
// creating it if needed.
func (r *SettingsRepository) SetPollInterval(ctx context.Context, interval time.Duration) error {
	seconds := int(interval / time.Second)

	var settings model.Settings
	err := r.db.WithContext(ctx).
		Where(model.Settings{UserID: schedulerSettingsUser}).
		Attrs(model.Settings{BriefingFrequency: model.BriefingDisabled}).
		FirstOrCreate(&settings).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "SetPollInterval",
		}).WithError(err).Error("Failed to load settings row")

		return err
	}

	err = r.db.WithContext(ctx).
		Model(&settings).
		Update("poll_interval_seconds", seconds).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "SettingsRepository",
			"op":      "SetPollInterval",
			"seconds": seconds,
		}).WithError(err).Error("Failed to update poll interval")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "SettingsRepository",
		"op":      "SetPollInterval",
		"seconds": seconds,
	}).Info("Poll interval updated")

	return nil
}

// BriefingFrequency returns a user's briefing frequency, defaulting to
// disabled when the user has no settings row.
func (r *SettingsRepository) BriefingFrequency(ctx context.Context, userID uint) (string, error) {
	var settings model.Settings

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&settings).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.BriefingDisabled, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":    "SettingsRepository",
			"op":      "BriefingFrequency",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch briefing frequency")

		return "", err
	}

	if settings.BriefingFrequency == "" {
		return model.BriefingDisabled, nil
	}

	return settings.BriefingFrequency, nil
}
