// Package normalizer 提供读数规范化功能
//
// 将网关上报的原始通知（BLE 特征负载）或组合 JSON 样本转换为 models.Reading，
// 无状态、无副作用。
package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"wisefido-wearable/internal/models"
)

var (
	// ErrIncomplete 读数所有字段均缺失
	ErrIncomplete = errors.New("normalization: reading has no fields")
	// ErrOutOfRange 字段超出取值范围
	ErrOutOfRange = errors.New("normalization: field out of range")
	// ErrMissingDevice 缺少 device_id
	ErrMissingDevice = errors.New("normalization: device_id is required")
	// ErrMalformedPayload 特征负载无法解析
	ErrMalformedPayload = errors.New("normalization: malformed payload")
)

// IsNormalizationError 判断是否为规范化错误（读数应丢弃，不产生报警）
func IsNormalizationError(err error) bool {
	return errors.Is(err, ErrIncomplete) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrMissingDevice) ||
		errors.Is(err, ErrMalformedPayload)
}

// Normalize 校验原始样本并生成 Reading
//
// 规则：
//   - device_id 必填
//   - 至少一个可选字段存在，否则 ErrIncomplete
//   - heart_rate >= 0（0 为"无信号"哨兵值，合法）
//   - spo2、battery_level 在 [0,100]
//   - step_count >= 0
func Normalize(s models.RawSample) (models.Reading, error) {
	deviceID := strings.TrimSpace(s.DeviceID)
	if deviceID == "" {
		return models.Reading{}, ErrMissingDevice
	}

	reading := models.Reading{
		DeviceID:     deviceID,
		Timestamp:    s.Timestamp,
		HeartRate:    s.HeartRate,
		SpO2:         s.SpO2,
		StepCount:    s.StepCount,
		BatteryLevel: s.BatteryLevel,
	}
	if reading.IsEmpty() {
		return models.Reading{}, fmt.Errorf("%w: device_id=%s", ErrIncomplete, deviceID)
	}

	if err := checkMin("heart_rate", reading.HeartRate, 0); err != nil {
		return models.Reading{}, err
	}
	if err := checkRange("spo2", reading.SpO2, 0, 100); err != nil {
		return models.Reading{}, err
	}
	if err := checkMin("step_count", reading.StepCount, 0); err != nil {
		return models.Reading{}, err
	}
	if err := checkRange("battery_level", reading.BatteryLevel, 0, 100); err != nil {
		return models.Reading{}, err
	}

	return reading, nil
}

// NormalizeNotification 解码单个特征通知并规范化
func NormalizeNotification(n models.Notification) (models.Reading, error) {
	sample, err := Decode(n)
	if err != nil {
		return models.Reading{}, err
	}
	return Normalize(sample)
}

func checkMin(field string, v *int, min int) error {
	if v != nil && *v < min {
		return fmt.Errorf("%w: %s=%d", ErrOutOfRange, field, *v)
	}
	return nil
}

func checkRange(field string, v *int, min, max int) error {
	if v != nil && (*v < min || *v > max) {
		return fmt.Errorf("%w: %s=%d", ErrOutOfRange, field, *v)
	}
	return nil
}
