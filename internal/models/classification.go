package models

import (
	"time"
)

// EmotionLabel 情绪标签（按平均心率划分）
type EmotionLabel string

const (
	EmotionCalm    EmotionLabel = "Calm/Relaxed"
	EmotionNormal  EmotionLabel = "Normal"
	EmotionExcited EmotionLabel = "Excited/Active"
	EmotionAnxious EmotionLabel = "Anxious/Stressed"
	EmotionUnknown EmotionLabel = "Unknown"
)

// ActivityLabel 运动判断
type ActivityLabel string

const (
	ActivityRunning          ActivityLabel = "Running"
	ActivityNotRunning       ActivityLabel = "Not Running"
	ActivityInsufficientData ActivityLabel = "InsufficientData"
)

// ClassificationResult 窗口分类结果（诊断用途，不参与报警判断）
type ClassificationResult struct {
	DeviceID      string        `json:"device_id"`
	Window        time.Duration `json:"window"`
	SampleCount   int           `json:"sample_count"`
	MeanHeartRate *float64      `json:"mean_heart_rate,omitempty"`
	Emotion       EmotionLabel  `json:"emotion"`
	StepDelta     *int          `json:"step_delta,omitempty"`
	Activity      ActivityLabel `json:"activity"`
	ComputedAt    time.Time     `json:"computed_at"`
}
