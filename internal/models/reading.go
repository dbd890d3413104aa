package models

import (
	"time"
)

// CharacteristicKind BLE 特征类型（网关按特征分别上报通知）
type CharacteristicKind string

const (
	CharacteristicHeartRate CharacteristicKind = "heart_rate"
	CharacteristicStepCount CharacteristicKind = "step_count"
	CharacteristicBattery   CharacteristicKind = "battery"
	CharacteristicSpO2      CharacteristicKind = "spo2"
)

// Notification 设备原始通知（一个特征的字节负载）
type Notification struct {
	DeviceID   string
	Kind       CharacteristicKind
	Payload    []byte
	ReceivedAt time.Time
}

// RawSample 未校验的读数（字段可能全部缺失或越界）
type RawSample struct {
	DeviceID     string    `json:"device_id"`
	Timestamp    time.Time `json:"-"`
	HeartRate    *int      `json:"heart_rate,omitempty"`
	SpO2         *int      `json:"spo2,omitempty"`
	StepCount    *int      `json:"steps,omitempty"`
	BatteryLevel *int      `json:"battery_level,omitempty"`
}

// Reading 规范化后的单次观测（可能只包含部分字段）
// HeartRate == 0 表示"无信号"，不是有效心率
type Reading struct {
	DeviceID     string    `json:"device_id"`
	Timestamp    time.Time `json:"timestamp"`
	HeartRate    *int      `json:"heart_rate,omitempty"`
	SpO2         *int      `json:"spo2,omitempty"`
	StepCount    *int      `json:"step_count,omitempty"`
	BatteryLevel *int      `json:"battery_level,omitempty"`
}

// HasSignal 是否携带非零心率
func (r Reading) HasSignal() bool {
	return r.HeartRate != nil && *r.HeartRate != 0
}

// IsEmpty 是否所有可选字段都缺失
func (r Reading) IsEmpty() bool {
	return r.HeartRate == nil && r.SpO2 == nil && r.StepCount == nil && r.BatteryLevel == nil
}

// ReadingTimestampLayout sensor_data.timestamp 的存储格式
// 固定宽度的 UTC 文本，字典序即时间序（Postgres / SQLite 通用）
const ReadingTimestampLayout = "2006-01-02T15:04:05.000000Z"

// AlertTimestampLayout alerts.timestamp 的显示格式
const AlertTimestampLayout = "2006-01-02 15:04:05"

// FormatReadingTimestamp 格式化读数时间戳
func FormatReadingTimestamp(t time.Time) string {
	return t.UTC().Format(ReadingTimestampLayout)
}

// ParseReadingTimestamp 解析读数时间戳
func ParseReadingTimestamp(s string) (time.Time, error) {
	return time.Parse(ReadingTimestampLayout, s)
}

// IntPtr 返回 int 指针
func IntPtr(v int) *int {
	return &v
}
