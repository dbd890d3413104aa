package models

import (
	"time"
)

// AnomalyKind 异常类型
type AnomalyKind string

const (
	AnomalyHeartRateHigh  AnomalyKind = "HeartRateHigh"
	AnomalyHeartRateLow   AnomalyKind = "HeartRateLow"
	AnomalySpO2Low        AnomalyKind = "Spo2Low"
	AnomalyStepSpike      AnomalyKind = "StepSpike"
	AnomalyHeartRateDelta AnomalyKind = "HeartRateDelta"
	AnomalySpO2Delta      AnomalyKind = "Spo2Delta"
	AnomalyStepDelta      AnomalyKind = "StepDelta"
	AnomalyBatteryLow     AnomalyKind = "BatteryLow"
)

// IsHeartRate 是否为心率类异常
func (k AnomalyKind) IsHeartRate() bool {
	return k == AnomalyHeartRateHigh || k == AnomalyHeartRateLow || k == AnomalyHeartRateDelta
}

// AnomalyEvent 检测器产生的异常事件（不可变）
// 差值类事件的 ObservedValue 为差值的绝对值，ThresholdValue 为触发阈值
type AnomalyEvent struct {
	EventID        string      `json:"event_id"`
	Kind           AnomalyKind `json:"kind"`
	DeviceID       string      `json:"device_id"`
	ObservedValue  int         `json:"observed_value"`
	ThresholdValue int         `json:"threshold_value"`
	Timestamp      time.Time   `json:"timestamp"`
}
