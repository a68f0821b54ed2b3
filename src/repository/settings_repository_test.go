package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"optionsmonitor/src/model"
)

func expectSettingsSelect(mock sqlmock.Sqlmock, userID uint, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "settings" WHERE user_id = $1 ORDER BY "settings"."id" LIMIT $2`)).
		WithArgs(userID, 1).
		WillReturnRows(rows)
}

func TestSettingsRepositoryPollInterval(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &SettingsRepository{db: mockDB}

	rows := sqlmock.NewRows([]string{"id", "user_id", "poll_interval_seconds", "briefing_frequency"}).
		AddRow(1, 0, 30, model.BriefingDisabled)
	expectSettingsSelect(mock, 0, rows)

	interval, err := repo.PollInterval(context.Background())
	if err != nil {
		t.Fatalf("unexpected error fetching poll interval: %v", err)
	}
	if interval != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %s", interval)
	}
}

func TestSettingsRepositoryPollIntervalDefaultsWithoutRow(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &SettingsRepository{db: mockDB}

	expectSettingsSelect(mock, 0, sqlmock.NewRows([]string{"id"}))

	interval, err := repo.PollInterval(context.Background())
	if err != nil {
		t.Fatalf("unexpected error fetching poll interval: %v", err)
	}
	if interval != 60*time.Second {
		t.Fatalf("expected default 60s poll interval, got %s", interval)
	}
}

func TestSettingsRepositoryBriefingFrequencyDefaultsToDisabled(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &SettingsRepository{db: mockDB}

	expectSettingsSelect(mock, 42, sqlmock.NewRows([]string{"id"}))

	frequency, err := repo.BriefingFrequency(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error fetching briefing frequency: %v", err)
	}
	if frequency != model.BriefingDisabled {
		t.Fatalf("expected disabled frequency, got %q", frequency)
	}
}
