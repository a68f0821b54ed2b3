package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"optionsmonitor/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestPositionRepositoryFindActive(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	rows := sqlmock.NewRows([]string{"id", "user_id", "symbol", "status", "entry_price", "quantity"}).
		AddRow(1, 1, "AAPL", model.PositionStatusOpen, 10.0, 5).
		AddRow(2, 2, "TSLA", model.PositionStatusStopTriggered, 4.2, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "positions" WHERE status <> $1 ORDER BY id ASC`)).
		WithArgs(model.PositionStatusClosed).
		WillReturnRows(rows)

	positions, err := repo.FindActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error fetching active positions: %v", err)
	}

	if len(positions) != 2 {
		t.Fatalf("expected 2 active positions, got %d", len(positions))
	}

	if positions[0].Symbol != "AAPL" || positions[1].Symbol != "TSLA" {
		t.Fatalf("positions not returned in expected order: %+v", positions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryMarkTriggered(t *testing.T) {
	t.Run("transitions an OPEN position", func(t *testing.T) {
		mockDB, mock := newMockDB(t)
		repo := &PositionRepository{db: mockDB}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "positions" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		avoided := 1.0
		ok, err := repo.MarkTriggered(context.Background(), 7, model.PositionStatusStopTriggered, 9.0, -500.0, &avoided)
		if err != nil {
			t.Fatalf("unexpected error marking triggered: %v", err)
		}
		if !ok {
			t.Fatalf("expected transition to apply")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
	})

	t.Run("no-op when the position is no longer OPEN", func(t *testing.T) {
		mockDB, mock := newMockDB(t)
		repo := &PositionRepository{db: mockDB}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "positions" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		ok, err := repo.MarkTriggered(context.Background(), 7, model.PositionStatusProfitTriggered, 16.0, 3000.0, nil)
		if err != nil {
			t.Fatalf("conditional miss must not be an error, got: %v", err)
		}
		if ok {
			t.Fatalf("expected transition to be skipped")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
	})
}

func TestPositionRepositoryCloseExpired(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &PositionRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "positions" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.CloseExpired(context.Background(), 3, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error closing expired position: %v", err)
	}
	if !ok {
		t.Fatalf("expected expired position to close")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestPositionRepositoryUpdateTrailing(t *testing.T) {
	high := 12.0
	stop := 10.8

	t.Run("applies when the observed watermark still matches", func(t *testing.T) {
		mockDB, mock := newMockDB(t)
		repo := &PositionRepository{db: mockDB}

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "positions" SET .+ WHERE id = \$\d+ AND status = \$\d+ AND trailing_high_price = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, err := repo.UpdateTrailing(context.Background(), 1, 10.0, &high, &stop)
		if err != nil {
			t.Fatalf("unexpected error updating trailing state: %v", err)
		}
		if !ok {
			t.Fatalf("expected trailing update to apply")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
	})

	t.Run("no-op when the row changed underneath the cycle", func(t *testing.T) {
		mockDB, mock := newMockDB(t)
		repo := &PositionRepository{db: mockDB}

		// A reopen reset the watermark after this cycle read it: the guard
		// matches zero rows and the stale progress is discarded.
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "positions" SET .+ WHERE id = \$\d+ AND status = \$\d+ AND trailing_high_price = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		ok, err := repo.UpdateTrailing(context.Background(), 1, 10.0, &high, &stop)
		if err != nil {
			t.Fatalf("lost race must not be an error, got: %v", err)
		}
		if ok {
			t.Fatalf("expected trailing update to be skipped")
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
	})

	t.Run("skips the statement when both fields are unchanged", func(t *testing.T) {
		mockDB, _ := newMockDB(t)
		repo := &PositionRepository{db: mockDB}

		ok, err := repo.UpdateTrailing(context.Background(), 1, 10.0, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error on empty trailing update: %v", err)
		}
		if ok {
			t.Fatalf("empty update must not report an applied write")
		}
	})
}
