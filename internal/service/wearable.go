package service

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-wearable/common/database"
	mqttcommon "wisefido-wearable/common/mqtt"
	rediscommon "wisefido-wearable/common/redis"
	"wisefido-wearable/internal/config"
	"wisefido-wearable/internal/consumer"
	"wisefido-wearable/internal/location"
	"wisefido-wearable/internal/metrics"
	"wisefido-wearable/internal/notifier"
	"wisefido-wearable/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// WearableService 可穿戴监护服务（连接外部依赖并整合各层）
type WearableService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	metrics  *metrics.Metrics
	monitor  *MonitorService
	consumer *consumer.MQTTConsumer
}

// NewWearableService 创建服务
func NewWearableService(cfg *config.Config, logger *zap.Logger) (*WearableService, error) {
	ctx := context.Background()
	clock := clockwork.NewRealClock()
	m := metrics.New()

	// 1. 历史库
	db, dialect, err := OpenHistoryDB(cfg)
	if err != nil {
		return nil, err
	}
	store := repository.NewSQLHistoryStore(db, dialect, logger.With(zap.String("component", "history")))
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// 2. Redis（可选，不可用时只关闭缓存和报警流）
	var redisClient *redis.Client
	var cache *consumer.CacheManager
	if cfg.Redis.Enabled() {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(ctx, redisClient); err != nil {
			logger.Warn("Redis unavailable, cache and alert stream disabled",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
			redisClient.Close()
			redisClient = nil
		} else {
			cache = consumer.NewCacheManager(cfg, redisClient, logger)
		}
	}

	// 3. 通知通道与定位
	n := newNotifier(cfg, logger)
	var locator location.Provider = location.Disabled{}
	if cfg.Location.Enabled {
		locator = location.NewIPInfoProvider(cfg.Location.URL, cfg.Location.Token, cfg.Location.Timeout, logger)
	}

	// 4. 监护核心
	monitor := NewMonitorService(Options{
		Config:   cfg,
		Store:    store,
		Notifier: n,
		Locator:  locator,
		Cache:    cache,
		Clock:    clock,
		Metrics:  m,
		Logger:   logger,
	})

	// 5. MQTT 设备数据源
	mqttClient, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		db.Close()
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, fmt.Errorf("failed to connect mqtt: %w", err)
	}
	mqttConsumer := consumer.NewMQTTConsumer(mqttClient, monitor, cfg.Wearable.Topic, cfg.MQTT.QoS, clock, m, logger)

	return &WearableService{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		logger:      logger,
		metrics:     m,
		monitor:     monitor,
		consumer:    mqttConsumer,
	}, nil
}

// Metrics 服务指标
func (s *WearableService) Metrics() *metrics.Metrics {
	return s.metrics
}

// Query 查询接口
func (s *WearableService) Query() *QueryService {
	return s.monitor.Query()
}

// Start 启动服务
func (s *WearableService) Start(ctx context.Context) error {
	s.logger.Info("Starting wearable service",
		zap.String("store_driver", s.config.Store.Driver),
		zap.String("topic", s.config.Wearable.Topic),
	)

	s.monitor.Start(ctx)

	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mqtt consumer: %w", err)
	}
	return nil
}

// Stop 停止服务：先断开数据源，再停止循环并等待派发，最后关闭连接
func (s *WearableService) Stop() error {
	s.logger.Info("Stopping wearable service")

	s.consumer.Stop()
	s.mqttClient.Disconnect()

	s.monitor.Stop()

	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	return nil
}

// OpenHistoryDB 按 STORE_DRIVER 打开历史库连接
func OpenHistoryDB(cfg *config.Config) (*sql.DB, repository.Dialect, error) {
	dialect, err := repository.DialectByName(cfg.Store.Driver)
	if err != nil {
		return nil, repository.Dialect{}, err
	}

	var db *sql.DB
	if dialect.Name == repository.Postgres.Name {
		db, err = database.NewPostgresDB(&cfg.Database)
	} else {
		db, err = database.NewSQLiteDB(&cfg.SQLite)
	}
	if err != nil {
		return nil, repository.Dialect{}, fmt.Errorf("failed to open history store: %w", err)
	}
	return db, dialect, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) notifier.Notifier {
	if cfg.Notifier.Provider == "twilio" {
		twilio := notifier.NewTwilioNotifier(notifier.TwilioConfig{
			BaseURL:    cfg.Notifier.Twilio.BaseURL,
			AccountSID: cfg.Notifier.Twilio.AccountSID,
			AuthToken:  cfg.Notifier.Twilio.AuthToken,
			From:       cfg.Notifier.Twilio.From,
			To:         cfg.Notifier.EmergencyContact,
		}, logger.With(zap.String("component", "notifier")))
		if !twilio.Configured() {
			// 每次发送返回 ErrNotConfigured，报警记录为 Failed
			logger.Warn("Twilio notifier is missing credentials or emergency contact")
		}
		return twilio
	}
	return notifier.NewLogNotifier(logger.With(zap.String("component", "notifier")))
}

