package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-wearable/internal/classifier"
	"wisefido-wearable/internal/config"
	"wisefido-wearable/internal/consumer"
	"wisefido-wearable/internal/dispatcher"
	"wisefido-wearable/internal/evaluator"
	"wisefido-wearable/internal/liveness"
	"wisefido-wearable/internal/location"
	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/notifier"
	"wisefido-wearable/internal/repository"
	"wisefido-wearable/internal/state"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrServiceStopped Stop 开始后不再接受读数
var ErrServiceStopped = errors.New("wearable monitor stopped")

// Options 监护核心的依赖
type Options struct {
	Config   *config.Config
	Store    repository.HistoryStore
	Notifier notifier.Notifier
	Locator  location.Provider      // 可选
	Cache    *consumer.CacheManager // 可选（未配置 Redis 时为 nil）
	Clock    clockwork.Clock        // 可选，默认真实时钟
	Metrics  *metrics.Metrics       // 可选
	Logger   *zap.Logger
}

// MonitorService 监护核心（整合各层）
//
// 三个独立的驱动：读数到达（Ingest）、佩戴扫描、周期分类。
// 另有历史读数的定期清理。
type MonitorService struct {
	config  *config.Config
	store   repository.HistoryStore
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger

	registry   *state.Registry
	detector   *evaluator.Detector
	monitor    *liveness.Monitor
	dispatcher *dispatcher.Dispatcher
	classifier *classifier.Classifier
	query      *QueryService

	cancel context.CancelFunc
	loops  sync.WaitGroup

	// Ingest 持读锁；Stop 取写锁置位 stopping，等进行中的读数处理完
	ingestMu sync.RWMutex
	stopping bool
}

// NewMonitorService 创建监护核心
func NewMonitorService(opts Options) *MonitorService {
	cfg := opts.Config
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger

	thresholds := evaluator.Thresholds{
		HeartRateHigh:  cfg.Wearable.Detector.HeartRateHigh,
		HeartRateLow:   cfg.Wearable.Detector.HeartRateLow,
		SpO2Low:        cfg.Wearable.Detector.SpO2Low,
		StepSpike:      cfg.Wearable.Detector.StepSpike,
		HeartRateDelta: cfg.Wearable.Detector.HeartRateDelta,
		SpO2Delta:      cfg.Wearable.Detector.SpO2Delta,
		StepDelta:      cfg.Wearable.Detector.StepDelta,
		BatteryLow:     cfg.Wearable.Detector.BatteryLow,
	}

	var alertSink dispatcher.AlertSink
	var resultSink classifier.ResultSink
	if opts.Cache != nil {
		alertSink = opts.Cache
		resultSink = opts.Cache
	}

	disp := dispatcher.NewDispatcher(opts.Notifier, opts.Store, alertSink, clock, dispatcher.Config{
		StoreRetries:  cfg.Wearable.Dispatch.StoreRetries,
		RetryBackoff:  cfg.Wearable.Dispatch.RetryBackoff,
		NotifyTimeout: cfg.Wearable.Dispatch.NotifyTimeout,
	}, opts.Metrics, logger.With(zap.String("component", "dispatcher")))

	registry := state.NewRegistry()

	monitor := liveness.NewMonitor(registry, opts.Locator, disp, clock, liveness.Config{
		WearTimeout:     cfg.Wearable.Liveness.WearTimeout,
		TickInterval:    cfg.Wearable.Liveness.TickInterval,
		DeviceStateTTL:  cfg.Wearable.Liveness.DeviceStateTTL,
		LocationTimeout: cfg.Location.Timeout,
	}, opts.Metrics, logger.With(zap.String("component", "liveness")))

	cls := classifier.NewClassifier(opts.Store, resultSink, clock, classifier.Config{
		Interval:             cfg.Wearable.Classifier.Interval,
		Window:               cfg.Wearable.Classifier.Window,
		RunningStepThreshold: cfg.Wearable.Classifier.RunningStepThreshold,
	}, opts.Metrics, logger.With(zap.String("component", "classifier")))

	return &MonitorService{
		config:     cfg,
		store:      opts.Store,
		clock:      clock,
		metrics:    opts.Metrics,
		logger:     logger,
		registry:   registry,
		detector:   evaluator.NewDetector(thresholds),
		monitor:    monitor,
		dispatcher: disp,
		classifier: cls,
		query:      NewQueryService(opts.Store, cls, opts.Cache, logger),
	}
}

// Query 查询接口
func (s *MonitorService) Query() *QueryService {
	return s.query
}

// Ingest 处理一条规范化读数
//
// 先写历史库（完全重复的读数直接丢弃），再在设备锁内评估异常并更新佩戴状态，
// 锁外把合并后的报警交给派发器。写库失败不阻止报警判断。
func (s *MonitorService) Ingest(ctx context.Context, reading models.Reading) error {
	s.ingestMu.RLock()
	defer s.ingestMu.RUnlock()
	if s.stopping {
		s.logger.Debug("Reading dropped during shutdown", zap.String("device_id", reading.DeviceID))
		return ErrServiceStopped
	}

	now := s.clock.Now()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}

	var storeErr error
	if err := s.store.AppendReading(ctx, reading); err != nil {
		if errors.Is(err, repository.ErrDuplicateReading) {
			s.metrics.ReadingDuplicate()
			s.logger.Debug("Duplicate reading ignored", zap.String("device_id", reading.DeviceID))
			return nil
		}
		storeErr = fmt.Errorf("failed to persist reading: %w", err)
		s.metrics.StoreFailure("sensor_data")
		s.logger.Error("Failed to persist reading",
			zap.String("device_id", reading.DeviceID),
			zap.Error(err),
		)
	}
	s.metrics.ReadingAccepted()

	var events []models.AnomalyEvent
	s.registry.WithDevice(reading.DeviceID, now, func(st *models.DeviceState) {
		events = s.detector.Evaluate(st, reading)
		s.monitor.Observe(st, reading, now)
	})

	if len(events) > 0 {
		for _, e := range events {
			s.metrics.Anomaly(string(e.Kind))
		}
		s.logger.Info("Anomalies detected",
			zap.String("device_id", reading.DeviceID),
			zap.Int("event_count", len(events)),
			zap.String("first_kind", string(events[0].Kind)),
		)
		if err := s.dispatcher.Submit(ctx, reading.DeviceID, evaluator.BuildAnomalyMessage(reading.DeviceID, events)); err != nil && storeErr == nil {
			return err
		}
	}

	return storeErr
}

// Start 启动佩戴扫描、分类和清理循环
func (s *MonitorService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("Starting wearable monitor",
		zap.Duration("wear_timeout", s.config.Wearable.Liveness.WearTimeout),
		zap.Duration("classifier_interval", s.config.Wearable.Classifier.Interval),
	)

	s.goLoop(func() { s.monitor.Run(ctx) })
	s.goLoop(func() { s.classifier.Run(ctx) })
	if s.config.Store.RetentionDays > 0 && s.config.Store.PurgeInterval > 0 {
		s.goLoop(func() { s.runPurge(ctx) })
	}
}

// Stop 拒绝新读数，停止循环，并在超时内等待进行中的报警派发
func (s *MonitorService) Stop() {
	s.logger.Info("Stopping wearable monitor")

	s.ingestMu.Lock()
	s.stopping = true
	s.ingestMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.loops.Wait()
	if !s.dispatcher.Shutdown(s.config.Wearable.Dispatch.ShutdownTimeout) {
		s.logger.Warn("Proceeding with shutdown while alert dispatches are still in flight")
	}
}

func (s *MonitorService) goLoop(fn func()) {
	s.loops.Add(1)
	go func() {
		defer s.loops.Done()
		fn()
	}()
}

// Purge 删除保留期之前的读数
func (s *MonitorService) Purge(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-time.Duration(s.config.Store.RetentionDays) * 24 * time.Hour)
	n, err := s.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Purged old readings",
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff),
	)
	return n, nil
}

func (s *MonitorService) runPurge(ctx context.Context) {
	ticker := s.clock.NewTicker(s.config.Store.PurgeInterval)
	defer ticker.Stop()

	for {
		if _, err := s.Purge(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Failed to purge readings", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
