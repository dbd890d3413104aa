package evaluator

import (
	"wisefido-wearable/internal/models"

	"github.com/google/uuid"
)

// Detector 异常检测器
//
// 对每个新读数，与固定阈值以及该设备的上一次取值（基线）比较，产生零个或多个异常事件。
// 绝对值检查与差值检查相互独立，同一读数可以同时触发两类事件。
// Detector 本身无状态，设备状态由调用方持有并串行化访问。
type Detector struct {
	thresholds Thresholds
	newID      func() string
}

// NewDetector 创建异常检测器
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		newID:      func() string { return uuid.New().String() },
	}
}

// Thresholds 当前阈值
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Evaluate 评估读数，返回异常事件并推进基线
//
// 规则：
//   - 差值检查只在该字段已有基线时触发，设备的第一条读数不会产生差值事件
//   - heart_rate == 0 视为无信号，不参与心率检查，也不更新心率基线
//   - 部分读数只推进它携带字段的基线；state.LastReading 无论结果如何都会更新
func (d *Detector) Evaluate(state *models.DeviceState, reading models.Reading) []models.AnomalyEvent {
	var events []models.AnomalyEvent
	th := d.thresholds

	emit := func(kind models.AnomalyKind, observed, threshold int) {
		events = append(events, models.AnomalyEvent{
			EventID:        d.newID(),
			Kind:           kind,
			DeviceID:       reading.DeviceID,
			ObservedValue:  observed,
			ThresholdValue: threshold,
			Timestamp:      reading.Timestamp,
		})
	}

	// 心率
	if reading.HasSignal() {
		hr := *reading.HeartRate
		if hr > th.HeartRateHigh {
			emit(models.AnomalyHeartRateHigh, hr, th.HeartRateHigh)
		}
		if hr < th.HeartRateLow {
			emit(models.AnomalyHeartRateLow, hr, th.HeartRateLow)
		}
		if state.LastHeartRate != nil && th.HeartRateDelta > 0 {
			if diff := abs(hr - *state.LastHeartRate); diff >= th.HeartRateDelta {
				emit(models.AnomalyHeartRateDelta, diff, th.HeartRateDelta)
			}
		}
		state.LastHeartRate = &hr
	}

	// 血氧
	if reading.SpO2 != nil {
		spo2 := *reading.SpO2
		if spo2 < th.SpO2Low {
			emit(models.AnomalySpO2Low, spo2, th.SpO2Low)
		}
		if state.LastSpO2 != nil && th.SpO2Delta > 0 {
			if diff := abs(spo2 - *state.LastSpO2); diff >= th.SpO2Delta {
				emit(models.AnomalySpO2Delta, diff, th.SpO2Delta)
			}
		}
		state.LastSpO2 = &spo2
	}

	// 步数（累计计数器，可能被设备重置）
	if reading.StepCount != nil {
		steps := *reading.StepCount
		if state.LastStepCount != nil {
			diff := steps - *state.LastStepCount
			if th.StepSpike > 0 && diff > th.StepSpike {
				emit(models.AnomalyStepSpike, diff, th.StepSpike)
			}
			if th.StepDelta > 0 && abs(diff) >= th.StepDelta {
				emit(models.AnomalyStepDelta, abs(diff), th.StepDelta)
			}
		}
		state.LastStepCount = &steps
	}

	// 电量：跌破阈值时触发一次
	if reading.BatteryLevel != nil {
		battery := *reading.BatteryLevel
		if battery < th.BatteryLow && (state.LastBattery == nil || *state.LastBattery >= th.BatteryLow) {
			emit(models.AnomalyBatteryLow, battery, th.BatteryLow)
		}
		state.LastBattery = &battery
	}

	last := reading
	state.LastReading = &last

	return events
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
