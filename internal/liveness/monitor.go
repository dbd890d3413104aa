package liveness

import (
	"context"
	"time"

	"wisefido-wearable/internal/evaluator"
	"wisefido-wearable/internal/location"
	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/state"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// AlertSubmitter 异步报警派发
type AlertSubmitter interface {
	Submit(ctx context.Context, deviceID, message string) error
}

// Config 佩戴检测配置
type Config struct {
	WearTimeout     time.Duration // 超过该时长没有非零心率则判定摘除
	TickInterval    time.Duration // 扫描周期
	DeviceStateTTL  time.Duration // 已摘除且长期无读数的设备回收时长，<=0 不回收
	LocationTimeout time.Duration
}

// Monitor 佩戴状态监测（Worn / Removed）
//
// 由周期扫描驱动：危险来自"没有数据"，不能只靠读数到达触发。
// 摘除是边沿触发，每次摘除只报警一次，直到下一条非零心率把设备恢复为 Worn。
type Monitor struct {
	registry *state.Registry
	locator  location.Provider
	alerts   AlertSubmitter
	clock    clockwork.Clock
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewMonitor 创建佩戴监测
func NewMonitor(
	registry *state.Registry,
	locator location.Provider,
	alerts AlertSubmitter,
	clock clockwork.Clock,
	cfg Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Monitor {
	if locator == nil {
		locator = location.Disabled{}
	}
	return &Monitor{
		registry: registry,
		locator:  locator,
		alerts:   alerts,
		clock:    clock,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Observe 在设备锁内记录一次读数到达，返回设备是否由 Removed 恢复为 Worn
// 只有非零心率才刷新 last_heart_rate_at
func (m *Monitor) Observe(s *models.DeviceState, reading models.Reading, now time.Time) bool {
	s.LastSeenAt = now
	if !reading.HasSignal() {
		return false
	}

	at := now
	s.LastHeartRateAt = &at

	if s.WearState != models.WearStateRemoved {
		return false
	}

	s.WearState = models.WearStateWorn
	m.metrics.WearTransition(string(models.WearStateWorn))
	m.logger.Info("Device worn again",
		zap.String("device_id", s.DeviceID),
		zap.Int("heart_rate", *reading.HeartRate),
	)
	return true
}

// Scan 扫描所有设备，返回本轮新判定为摘除的设备
// 状态在设备锁内更新，定位和派发在锁外进行
func (m *Monitor) Scan(ctx context.Context, now time.Time) []string {
	var removed []string

	m.registry.ForEach(func(s *models.DeviceState) {
		if s.WearState == models.WearStateRemoved {
			return
		}
		if now.Sub(s.SignalReference()) <= m.cfg.WearTimeout {
			return
		}
		s.WearState = models.WearStateRemoved
		removed = append(removed, s.DeviceID)
	})

	if len(removed) > 0 {
		loc := m.locate(ctx)
		for _, deviceID := range removed {
			m.metrics.WearTransition(string(models.WearStateRemoved))
			m.logger.Warn("Device removed",
				zap.String("device_id", deviceID),
				zap.Duration("wear_timeout", m.cfg.WearTimeout),
				zap.Bool("location_available", loc != nil),
			)
			// 派发器关停后的拒绝由派发器自己记录
			_ = m.alerts.Submit(ctx, deviceID, evaluator.BuildRemovalMessage(deviceID, loc))
		}
	}

	m.evict(now)
	m.metrics.TrackedDevices(m.registry.Len())

	return removed
}

// Run 按固定周期扫描，直到 ctx 取消
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	m.logger.Info("Liveness monitor started",
		zap.Duration("tick_interval", m.cfg.TickInterval),
		zap.Duration("wear_timeout", m.cfg.WearTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness monitor stopped")
			return
		case <-ticker.Chan():
			m.Scan(ctx, m.clock.Now())
		}
	}
}

// locate 尽力定位，失败返回 nil
func (m *Monitor) locate(ctx context.Context) *models.Location {
	if m.cfg.LocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.LocationTimeout)
		defer cancel()
	}

	loc, err := m.locator.Locate(ctx)
	if err != nil {
		m.logger.Warn("Location lookup failed, alerting without coordinates", zap.Error(err))
		return nil
	}
	return loc
}

func (m *Monitor) evict(now time.Time) {
	if m.cfg.DeviceStateTTL <= 0 {
		return
	}

	evicted := m.registry.EvictIf(func(s *models.DeviceState) bool {
		return s.WearState == models.WearStateRemoved && now.Sub(s.LastSeenAt) > m.cfg.DeviceStateTTL
	})
	for _, id := range evicted {
		m.logger.Info("Evicted idle device state", zap.String("device_id", id))
	}
}
