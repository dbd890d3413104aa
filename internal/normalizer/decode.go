package normalizer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-wearable/internal/models"
)

// Heart Rate Measurement (0x2A37) flags bit0：1 表示心率为 uint16
const hrFormatUint16 = 0x01

// Decode 把单个特征通知解码为原始样本（只填充该特征对应的字段）
func Decode(n models.Notification) (models.RawSample, error) {
	sample := models.RawSample{
		DeviceID:  n.DeviceID,
		Timestamp: n.ReceivedAt,
	}

	switch n.Kind {
	case models.CharacteristicHeartRate:
		hr, err := decodeHeartRate(n.Payload)
		if err != nil {
			return sample, err
		}
		sample.HeartRate = &hr
	case models.CharacteristicStepCount:
		steps, err := decodeStepCount(n.Payload)
		if err != nil {
			return sample, err
		}
		sample.StepCount = &steps
	case models.CharacteristicBattery:
		if len(n.Payload) < 1 {
			return sample, fmt.Errorf("%w: empty battery payload", ErrMalformedPayload)
		}
		level := int(n.Payload[0])
		sample.BatteryLevel = &level
	case models.CharacteristicSpO2:
		if len(n.Payload) < 1 {
			return sample, fmt.Errorf("%w: empty spo2 payload", ErrMalformedPayload)
		}
		spo2 := int(n.Payload[0])
		sample.SpO2 = &spo2
	default:
		return sample, fmt.Errorf("%w: unknown characteristic %q", ErrMalformedPayload, n.Kind)
	}

	return sample, nil
}

// DecodeSample 解析网关上报的组合 JSON 样本
// 格式：{"heart_rate": 110, "steps": 4800, "spo2": 96, "battery_level": 80}
func DecodeSample(deviceID string, payload []byte) (models.RawSample, error) {
	var wire struct {
		models.RawSample
		Timestamp *time.Time `json:"timestamp,omitempty"` // RFC 3339，网关采样时间
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return models.RawSample{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	sample := wire.RawSample
	if wire.Timestamp != nil {
		sample.Timestamp = wire.Timestamp.UTC()
	}
	if deviceID != "" {
		sample.DeviceID = deviceID
	}
	return sample, nil
}

// decodeHeartRate 解析心率测量值
// 单字节负载直接视为心率；否则首字节为 flags
func decodeHeartRate(data []byte) (int, error) {
	switch {
	case len(data) == 0:
		return 0, fmt.Errorf("%w: empty heart rate payload", ErrMalformedPayload)
	case len(data) == 1:
		return int(data[0]), nil
	case data[0]&hrFormatUint16 != 0:
		if len(data) < 3 {
			return 0, fmt.Errorf("%w: short uint16 heart rate payload", ErrMalformedPayload)
		}
		return int(binary.LittleEndian.Uint16(data[1:3])), nil
	default:
		return int(data[1]), nil
	}
}

// decodeStepCount 步数为小端 uint16，4 字节以上按 uint32 解析
func decodeStepCount(data []byte) (int, error) {
	switch {
	case len(data) >= 4:
		return int(binary.LittleEndian.Uint32(data[:4])), nil
	case len(data) >= 2:
		return int(binary.LittleEndian.Uint16(data[:2])), nil
	default:
		return 0, fmt.Errorf("%w: short step count payload", ErrMalformedPayload)
	}
}
