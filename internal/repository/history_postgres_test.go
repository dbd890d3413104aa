package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"wisefido-wearable/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockHistoryDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SQLHistoryStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewSQLHistoryStore(db, Postgres, zap.NewNop())
	return db, mock, store
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", Postgres.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", SQLite.rebind("a = ? AND b = ?"))
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("Postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name)

	d, err = DialectByName("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name)

	_, err = DialectByName("mysql")
	assert.Error(t, err)
}

func TestPostgres_AppendReading_Success(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sensor_data")).
		WithArgs("2025-03-01T10:00:00.000000Z", int64(72), nil, nil, nil, "A").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendReading(context.Background(), models.Reading{
		DeviceID:  "A",
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		HeartRate: models.IntPtr(72),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendReading_Duplicate(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO sensor_data").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AppendReading(context.Background(), models.Reading{DeviceID: "A", Timestamp: t0, SpO2: models.IntPtr(97)})
	assert.ErrorIs(t, err, ErrDuplicateReading)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendReading_MissingDevice(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	err := store.AppendReading(context.Background(), models.Reading{Timestamp: t0, SpO2: models.IntPtr(97)})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendAlert(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO alerts (message, timestamp, status)")).
		WithArgs("msg", "2025-03-01 10:00:00", "Failed").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	record, err := store.AppendAlert(context.Background(), "msg", "2025-03-01 10:00:00", models.AlertStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, models.AlertStatusFailed, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AppendAlert_DBError(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO alerts").
		WillReturnError(errors.New("connection reset"))

	_, err := store.AppendAlert(context.Background(), "msg", "2025-03-01 10:00:00", models.AlertStatusSent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentReadings(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"timestamp", "heart_rate", "spo2", "step_count", "battery_level", "device_id"}).
		AddRow("2025-03-01T10:00:00.000000Z", int64(55), nil, int64(100), nil, "A").
		AddRow("not-a-timestamp", int64(60), nil, nil, nil, "A").
		AddRow("2025-03-01T10:00:10.000000Z", int64(65), nil, nil, int64(80), "A")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE device_id = $1 AND timestamp >= $2")).
		WithArgs("A", "2025-03-01T09:59:40.000000Z").
		WillReturnRows(rows)

	readings, err := store.RecentReadings(context.Background(), "A", t0.Add(-20*time.Second))
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 55, *readings[0].HeartRate)
	assert.Equal(t, 100, *readings[0].StepCount)
	assert.Nil(t, readings[0].SpO2)
	assert.Equal(t, 80, *readings[1].BatteryLevel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecentAlerts(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "message", "timestamp", "status"}).
		AddRow(int64(2), "b", "2025-03-01 10:00:01", "Sent").
		AddRow(int64(1), "a", "2025-03-01 10:00:00", "Failed")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC")).
		WithArgs(10).
		WillReturnRows(rows)

	alerts, err := store.RecentAlerts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(2), alerts[0].ID)
	assert.Equal(t, models.AlertStatusFailed, alerts[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PurgeBefore(t *testing.T) {
	db, mock, store := setupMockHistoryDB(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sensor_data WHERE timestamp < $1")).
		WithArgs("2025-02-22T10:00:00.000000Z").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := store.PurgeBefore(context.Background(), t0.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
