package evaluator

// Thresholds 异常检测阈值
// 差值/突增类阈值 <= 0 表示关闭该检查
type Thresholds struct {
	HeartRateHigh  int // heart_rate > HeartRateHigh
	HeartRateLow   int // heart_rate < HeartRateLow（0 为无信号，不参与）
	SpO2Low        int // spo2 < SpO2Low
	StepSpike      int // step_count - previous > StepSpike
	HeartRateDelta int // |heart_rate - previous| >= HeartRateDelta
	SpO2Delta      int // |spo2 - previous| >= SpO2Delta
	StepDelta      int // |step_count - previous| >= StepDelta
	BatteryLow     int // battery 跌破 BatteryLow 时触发一次
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeartRateHigh:  140,
		HeartRateLow:   50,
		SpO2Low:        90,
		StepSpike:      50,
		HeartRateDelta: 30,
		SpO2Delta:      5,
		StepDelta:      500,
		BatteryLow:     15,
	}
}
