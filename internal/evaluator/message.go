package evaluator

import (
	"fmt"
	"strings"

	"wisefido-wearable/internal/models"
)

const alertPrefix = "⚠️"

// BuildAnomalyMessage 把同一读数产生的多个异常合并为一条报警消息
// 一条读数最多派发一次，避免同一根因引起报警风暴
func BuildAnomalyMessage(deviceID string, events []models.AnomalyEvent) string {
	if len(events) == 0 {
		return ""
	}

	parts := make([]string, 0, len(events))
	for _, e := range events {
		parts = append(parts, describe(e))
	}

	return fmt.Sprintf("%s [%s] %s", alertPrefix, deviceID, strings.Join(parts, " | "))
}

// BuildRemovalMessage 构建摘除报警消息，location 为空表示定位失败
func BuildRemovalMessage(deviceID string, location *models.Location) string {
	msg := fmt.Sprintf("%s [%s] Watch removed! Possible danger.", alertPrefix, deviceID)
	if location == nil {
		return msg + " Location unavailable"
	}
	return fmt.Sprintf("%s Location: %.5f, %.5f", msg, location.Latitude, location.Longitude)
}

func describe(e models.AnomalyEvent) string {
	switch e.Kind {
	case models.AnomalyHeartRateHigh:
		return fmt.Sprintf("High Heart Rate Detected! HR: %d BPM", e.ObservedValue)
	case models.AnomalyHeartRateLow:
		return fmt.Sprintf("Low Heart Rate Detected! HR: %d BPM", e.ObservedValue)
	case models.AnomalySpO2Low:
		return fmt.Sprintf("Low Oxygen Level! SpO2: %d%%", e.ObservedValue)
	case models.AnomalyStepSpike:
		return fmt.Sprintf("Sudden running detected! Steps: +%d", e.ObservedValue)
	case models.AnomalyHeartRateDelta:
		return fmt.Sprintf("Drastic heart rate change detected: %d bpm", e.ObservedValue)
	case models.AnomalySpO2Delta:
		return fmt.Sprintf("Sudden SpO2 change: %d%%", e.ObservedValue)
	case models.AnomalyStepDelta:
		return fmt.Sprintf("Sudden step count change: %d steps", e.ObservedValue)
	case models.AnomalyBatteryLow:
		return fmt.Sprintf("Low battery: %d%%", e.ObservedValue)
	default:
		return fmt.Sprintf("%s: %d (threshold %d)", e.Kind, e.ObservedValue, e.ThresholdValue)
	}
}

// DeviceTag 报警消息中的设备标记，用于按设备筛选报警
func DeviceTag(deviceID string) string {
	return "[" + deviceID + "]"
}
