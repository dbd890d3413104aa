package report

import (
	"bytes"
	"testing"
	"time"

	"wisefido-wearable/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportHistory(t *testing.T) {
	readings := []models.Reading{
		{DeviceID: "A", Timestamp: time.Date(2025, 3, 1, 10, 0, 1, 0, time.UTC), HeartRate: models.IntPtr(160), SpO2: models.IntPtr(85)},
		{DeviceID: "A", Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), StepCount: models.IntPtr(1200)},
	}
	alerts := []models.AlertRecord{
		{ID: 1, Message: "⚠️ [A] High Heart Rate Detected! HR: 160 BPM", Timestamp: "2025-03-01 10:00:01", Status: models.AlertStatusFailed},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportHistory(&buf, readings, alerts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ReadingsSheet, AlertsSheet}, f.GetSheetList())

	rows, err := f.GetRows(ReadingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ReadingsHeader, rows[0])
	assert.Equal(t, "2025-03-01T10:00:01.000000Z", rows[1][0])
	assert.Equal(t, "160", rows[1][2])
	assert.Equal(t, "85", rows[1][3])
	assert.Equal(t, "1200", rows[2][4])

	alertRows, err := f.GetRows(AlertsSheet)
	require.NoError(t, err)
	require.Len(t, alertRows, 2)
	assert.Equal(t, []string{"1", "2025-03-01 10:00:01", "Failed", alerts[0].Message}, alertRows[1])
}

func TestExportHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportHistory(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ReadingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
