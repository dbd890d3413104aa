package models

import (
	"time"
)

// WearState 佩戴状态
type WearState string

const (
	WearStateWorn    WearState = "Worn"
	WearStateRemoved WearState = "Removed"
)

// DeviceState 单设备的可变状态，只在内存中维护，重启后冷启动
// 基线按字段分别维护：部分读数只推进它携带的字段
type DeviceState struct {
	DeviceID string

	LastReading     *Reading
	LastHeartRateAt *time.Time
	LastStepCount   *int

	LastHeartRate *int
	LastSpO2      *int
	LastBattery   *int

	WearState WearState

	// FirstSeenAt 首次观测时间，从未收到有效心率的设备以此计时
	FirstSeenAt time.Time
	// LastSeenAt 最近一次任意读数的时间，用于回收长期离线的设备
	LastSeenAt time.Time
}

// NewDeviceState 创建设备状态（初始为 Worn，无基线）
func NewDeviceState(deviceID string, now time.Time) *DeviceState {
	return &DeviceState{
		DeviceID:    deviceID,
		WearState:   WearStateWorn,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
}

// SignalReference 佩戴超时的计时起点
func (s *DeviceState) SignalReference() time.Time {
	if s.LastHeartRateAt != nil {
		return *s.LastHeartRateAt
	}
	return s.FirstSeenAt
}
