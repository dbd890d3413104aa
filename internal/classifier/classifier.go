package classifier

import (
	"context"
	"fmt"
	"time"

	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ReadingSource 历史读数（只读）
type ReadingSource interface {
	RecentReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error)
	ActiveDevices(ctx context.Context, since time.Time) ([]string, error)
}

// ResultSink 分类结果的下游（Redis 缓存），可以为 nil
type ResultSink interface {
	SetClassification(ctx context.Context, result models.ClassificationResult) error
}

// Config 分类配置
type Config struct {
	Interval             time.Duration // 批处理周期
	Window               time.Duration // 回看窗口
	RunningStepThreshold int           // 窗口内步数增量超过该值判定为跑步
}

// Classifier 情绪 / 运动分类器
// 只读历史库，结果仅用于展示，不参与报警判断
type Classifier struct {
	source  ReadingSource
	sink    ResultSink
	clock   clockwork.Clock
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewClassifier 创建分类器
func NewClassifier(source ReadingSource, sink ResultSink, clock clockwork.Clock, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Classifier {
	return &Classifier{
		source:  source,
		sink:    sink,
		clock:   clock,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Classify 对设备最近一个窗口的读数分类
func (c *Classifier) Classify(ctx context.Context, deviceID string) (models.ClassificationResult, error) {
	now := c.clock.Now()
	readings, err := c.source.RecentReadings(ctx, deviceID, now.Add(-c.cfg.Window))
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to load readings for %s: %w", deviceID, err)
	}

	result := Summarize(readings, c.cfg.RunningStepThreshold)
	result.DeviceID = deviceID
	result.Window = c.cfg.Window
	result.ComputedAt = now
	return result, nil
}

// RunOnce 对窗口内有读数的所有设备分类一次，单个设备失败不影响其他设备
func (c *Classifier) RunOnce(ctx context.Context) int {
	devices, err := c.source.ActiveDevices(ctx, c.clock.Now().Add(-c.cfg.Window))
	if err != nil {
		c.logger.Error("Failed to list active devices", zap.Error(err))
		return 0
	}

	done := 0
	for _, deviceID := range devices {
		if ctx.Err() != nil {
			break
		}

		result, err := c.Classify(ctx, deviceID)
		if err != nil {
			c.logger.Warn("Classification failed", zap.String("device_id", deviceID), zap.Error(err))
			continue
		}
		done++
		c.metrics.Classification(string(result.Emotion))

		c.logger.Debug("Device classified",
			zap.String("device_id", deviceID),
			zap.String("emotion", string(result.Emotion)),
			zap.String("activity", string(result.Activity)),
			zap.Int("samples", result.SampleCount),
		)

		if c.sink != nil {
			if err := c.sink.SetClassification(ctx, result); err != nil {
				c.logger.Warn("Failed to cache classification", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return done
}

// Run 周期执行分类，直到 ctx 取消
func (c *Classifier) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.logger.Info("Classifier started",
		zap.Duration("interval", c.cfg.Interval),
		zap.Duration("window", c.cfg.Window),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Classifier stopped")
			return
		case <-ticker.Chan():
			c.RunOnce(ctx)
		}
	}
}

// Summarize 对按时间升序排列的读数计算分类
// 心率均值只统计非零心率；步数比较窗口内最新与最旧的步数读数
func Summarize(readings []models.Reading, runningThreshold int) models.ClassificationResult {
	result := models.ClassificationResult{
		SampleCount: len(readings),
		Emotion:     models.EmotionUnknown,
		Activity:    models.ActivityInsufficientData,
	}

	sum, n := 0, 0
	var steps []int
	for _, r := range readings {
		if r.HasSignal() {
			sum += *r.HeartRate
			n++
		}
		if r.StepCount != nil {
			steps = append(steps, *r.StepCount)
		}
	}

	if n > 0 {
		mean := float64(sum) / float64(n)
		result.MeanHeartRate = &mean
		result.Emotion = EmotionFor(mean)
	}

	if len(steps) >= 2 {
		delta := steps[len(steps)-1] - steps[0]
		result.StepDelta = &delta
		if delta > runningThreshold {
			result.Activity = models.ActivityRunning
		} else {
			result.Activity = models.ActivityNotRunning
		}
	}

	return result
}

// EmotionFor 平均心率对应的情绪标签
func EmotionFor(mean float64) models.EmotionLabel {
	switch {
	case mean < 60:
		return models.EmotionCalm
	case mean <= 100:
		return models.EmotionNormal
	case mean <= 130:
		return models.EmotionExcited
	default:
		return models.EmotionAnxious
	}
}
