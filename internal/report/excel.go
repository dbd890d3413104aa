package report

import (
	"fmt"
	"io"

	"wisefido-wearable/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	ReadingsSheet = "Readings"
	AlertsSheet   = "Alerts"
)

// ReadingsHeader 读数表头
var ReadingsHeader = []string{"Timestamp", "Device ID", "Heart Rate", "SpO2", "Step Count", "Battery Level"}

// AlertsHeader 报警表头
var AlertsHeader = []string{"ID", "Timestamp", "Status", "Message"}

// ExportHistory 把读数和报警写成 XLSX 工作簿
func ExportHistory(w io.Writer, readings []models.Reading, alerts []models.AlertRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(ReadingsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(AlertsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	// 删除默认的 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(ReadingsSheet)
	if err != nil {
		return fmt.Errorf("failed to locate sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	readingRows := make([][]interface{}, 0, len(readings))
	for _, r := range readings {
		readingRows = append(readingRows, []interface{}{
			models.FormatReadingTimestamp(r.Timestamp),
			r.DeviceID,
			cellValue(r.HeartRate),
			cellValue(r.SpO2),
			cellValue(r.StepCount),
			cellValue(r.BatteryLevel),
		})
	}
	if err := writeSheet(f, ReadingsSheet, ReadingsHeader, readingRows, headerStyle); err != nil {
		return err
	}

	alertRows := make([][]interface{}, 0, len(alerts))
	for _, a := range alerts {
		alertRows = append(alertRows, []interface{}{a.ID, a.Timestamp, string(a.Status), a.Message})
	}
	if err := writeSheet(f, AlertsSheet, AlertsHeader, alertRows, headerStyle); err != nil {
		return err
	}

	if err := f.SetColWidth(ReadingsSheet, "A", "B", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(AlertsSheet, "D", "D", 80); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

// cellValue 缺失字段写为空单元格
func cellValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
