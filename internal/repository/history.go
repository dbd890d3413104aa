package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wisefido-wearable/internal/models"

	"go.uber.org/zap"
)

// ErrDuplicateReading 完全相同的读数已存在（不是故障，调用方可忽略）
var ErrDuplicateReading = errors.New("duplicate reading")

// HistoryStore 读数与报警的只追加历史
type HistoryStore interface {
	// AppendReading 写入读数；完全相同的元组返回 ErrDuplicateReading
	AppendReading(ctx context.Context, reading models.Reading) error
	// AppendAlert 写入报警记录，返回带 id 的记录
	AppendAlert(ctx context.Context, message, timestamp string, status models.AlertStatus) (models.AlertRecord, error)
	// RecentReadings 设备在 since 之后的读数，按时间升序（最新的在最后）
	RecentReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error)
	// LatestReadings 设备最新的 limit 条读数，最新的在前
	LatestReadings(ctx context.Context, deviceID string, limit int) ([]models.Reading, error)
	// RecentAlerts 最新的 limit 条报警，最新的在前
	RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error)
	// ActiveDevices since 之后有读数的设备
	ActiveDevices(ctx context.Context, since time.Time) ([]string, error)
	// PurgeBefore 删除 cutoff 之前的读数（报警不清理）
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLHistoryStore 基于 database/sql 的历史库（Postgres / SQLite）
type SQLHistoryStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLHistoryStore 创建历史库
func NewSQLHistoryStore(db *sql.DB, dialect Dialect, logger *zap.Logger) *SQLHistoryStore {
	return &SQLHistoryStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}
}

// Migrate 建表（幂等）
func (s *SQLHistoryStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate history store: %w", err)
		}
	}
	s.logger.Info("History store schema ready", zap.String("dialect", s.dialect.Name))
	return nil
}

// AppendReading 写入读数
func (s *SQLHistoryStore) AppendReading(ctx context.Context, reading models.Reading) error {
	if reading.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}

	query := s.dialect.rebind(`
		INSERT INTO sensor_data (timestamp, heart_rate, spo2, step_count, battery_level, device_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)

	result, err := s.db.ExecContext(ctx, query,
		models.FormatReadingTimestamp(reading.Timestamp),
		nullInt(reading.HeartRate),
		nullInt(reading.SpO2),
		nullInt(reading.StepCount),
		nullInt(reading.BatteryLevel),
		reading.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDuplicateReading
	}
	return nil
}

// AppendAlert 写入报警记录
func (s *SQLHistoryStore) AppendAlert(ctx context.Context, message, timestamp string, status models.AlertStatus) (models.AlertRecord, error) {
	if status != models.AlertStatusSent && status != models.AlertStatusFailed {
		return models.AlertRecord{}, fmt.Errorf("invalid alert status: %s", status)
	}

	query := s.dialect.rebind(`
		INSERT INTO alerts (message, timestamp, status)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	record := models.AlertRecord{
		Message:   message,
		Timestamp: timestamp,
		Status:    status,
	}
	if err := s.db.QueryRowContext(ctx, query, message, timestamp, string(status)).Scan(&record.ID); err != nil {
		return models.AlertRecord{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return record, nil
}

// RecentReadings 窗口内读数（升序）
func (s *SQLHistoryStore) RecentReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error) {
	query := s.dialect.rebind(`
		SELECT timestamp, heart_rate, spo2, step_count, battery_level, device_id
		FROM sensor_data
		WHERE device_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC, id ASC
	`)
	return s.queryReadings(ctx, query, deviceID, models.FormatReadingTimestamp(since))
}

// LatestReadings 最新读数（降序）
func (s *SQLHistoryStore) LatestReadings(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	query := s.dialect.rebind(`
		SELECT timestamp, heart_rate, spo2, step_count, battery_level, device_id
		FROM sensor_data
		WHERE device_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`)
	return s.queryReadings(ctx, query, deviceID, limit)
}

// RecentAlerts 最新报警（降序）
func (s *SQLHistoryStore) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	query := s.dialect.rebind(`
		SELECT id, message, timestamp, status
		FROM alerts
		ORDER BY id DESC
		LIMIT ?
	`)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AlertRecord
	for rows.Next() {
		var a models.AlertRecord
		var status string
		if err := rows.Scan(&a.ID, &a.Message, &a.Timestamp, &status); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Status = models.AlertStatus(status)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// ActiveDevices 窗口内有读数的设备
func (s *SQLHistoryStore) ActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	query := s.dialect.rebind(`
		SELECT DISTINCT device_id
		FROM sensor_data
		WHERE timestamp >= ?
		ORDER BY device_id
	`)

	rows, err := s.db.QueryContext(ctx, query, models.FormatReadingTimestamp(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query active devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device_id: %w", err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return devices, nil
}

// PurgeBefore 清理过期读数
func (s *SQLHistoryStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.dialect.rebind(`DELETE FROM sensor_data WHERE timestamp < ?`)

	result, err := s.db.ExecContext(ctx, query, models.FormatReadingTimestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to purge readings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLHistoryStore) queryReadings(ctx context.Context, query string, args ...interface{}) ([]models.Reading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.Reading
	for rows.Next() {
		var ts string
		var hr, spo2, steps, battery sql.NullInt64
		var r models.Reading
		if err := rows.Scan(&ts, &hr, &spo2, &steps, &battery, &r.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		t, err := models.ParseReadingTimestamp(ts)
		if err != nil {
			s.logger.Warn("Skipping reading with unparseable timestamp",
				zap.String("device_id", r.DeviceID),
				zap.String("timestamp", ts),
				zap.Error(err),
			)
			continue
		}
		r.Timestamp = t
		r.HeartRate = intPtr(hr)
		r.SpO2 = intPtr(spo2)
		r.StepCount = intPtr(steps)
		r.BatteryLevel = intPtr(battery)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
