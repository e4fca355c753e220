package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPingDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestWaitReadyRetriesUntilServerAnswers(t *testing.T) {
	db, mock := newPingDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, WaitReady(ctx, db, time.Millisecond, zap.NewNop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitReadyStopsWithContext(t *testing.T) {
	db, mock := newPingDB(t)
	for i := 0; i < 100; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := WaitReady(ctx, db, 5*time.Millisecond, zap.NewNop())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
