package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"wisefido-wearable/common/config"

	"github.com/joho/godotenv"
)

// Config 可穿戴监护服务配置
type Config struct {
	Database config.DatabaseConfig
	SQLite   config.SQLiteConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// 历史库配置
	Store struct {
		Driver        string        // "postgres" 或 "sqlite"
		RetentionDays int           // 读数保留天数，<=0 表示不清理
		PurgeInterval time.Duration // 清理周期
	}

	Wearable struct {
		// MQTT 主题：wearable/{device_id}/{characteristic}
		Topic string

		// 异常检测阈值
		Detector struct {
			HeartRateHigh  int
			HeartRateLow   int
			SpO2Low        int
			StepSpike      int
			HeartRateDelta int
			SpO2Delta      int
			StepDelta      int
			BatteryLow     int
		}

		// 佩戴检测
		Liveness struct {
			WearTimeout    time.Duration
			TickInterval   time.Duration
			DeviceStateTTL time.Duration
		}

		// 情绪/运动分类
		Classifier struct {
			Interval             time.Duration
			Window               time.Duration
			RunningStepThreshold int
		}

		// 报警派发
		Dispatch struct {
			StoreRetries    int
			RetryBackoff    time.Duration
			NotifyTimeout   time.Duration
			ShutdownTimeout time.Duration
		}

		// Redis 缓存配置
		Cache struct {
			KeyPrefix            string // 如 "wearable:device:"
			ClassificationSuffix string // 如 ":classification"
			AlertsSuffix         string // 如 ":alerts"
			AlertsLimit          int64
			AlertsTTL            time.Duration
			AlertStream          string
			AlertStreamMaxLen    int64
		}
	}

	Notifier struct {
		Provider         string // "twilio" 或 "log"
		EmergencyContact string
		Twilio           struct {
			BaseURL    string
			AccountSID string
			AuthToken  string
			From       string
		}
	}

	Location struct {
		Enabled bool
		URL     string
		Token   string
		Timeout time.Duration
	}

	Metrics struct {
		Addr string // 为空则不暴露 /metrics
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（可选的 .env 文件 + 环境变量 + 默认值）
func Load() (*Config, error) {
	// .env 不存在不是错误；已存在的环境变量优先
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database = config.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "wearable",
		SSLMode:         "disable",
		MaxConns:        10,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	cfg.SQLite = config.SQLiteConfig{Path: "smartwatch_data.db", BusyTimeoutMS: 5000}
	cfg.Redis = config.RedisConfig{Addr: "localhost:6379", PoolSize: 10, DialTimeout: 5 * time.Second}
	cfg.MQTT = config.MQTTConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       "wisefido-wearable",
		QoS:            1,
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.SQLite.LoadFromEnv("SQLITE")
	cfg.Redis.LoadFromEnv("REDIS")
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", "sqlite"))
	cfg.Store.RetentionDays = getEnvInt("STORE_RETENTION_DAYS", 7)
	cfg.Store.PurgeInterval = getEnvDuration("STORE_PURGE_INTERVAL", 24*time.Hour)

	cfg.Wearable.Topic = getEnv("WEARABLE_TOPIC", "wearable/+/+")

	cfg.Wearable.Detector.HeartRateHigh = getEnvInt("HR_THRESHOLD_HIGH", 140)
	cfg.Wearable.Detector.HeartRateLow = getEnvInt("HR_THRESHOLD_LOW", 50)
	cfg.Wearable.Detector.SpO2Low = getEnvInt("SPO2_THRESHOLD", 90)
	cfg.Wearable.Detector.StepSpike = getEnvInt("STEP_SPIKE_THRESHOLD", 50)
	cfg.Wearable.Detector.HeartRateDelta = getEnvInt("HR_DELTA_THRESHOLD", 30)
	cfg.Wearable.Detector.SpO2Delta = getEnvInt("SPO2_DELTA_THRESHOLD", 5)
	cfg.Wearable.Detector.StepDelta = getEnvInt("STEP_DELTA_THRESHOLD", 500)
	cfg.Wearable.Detector.BatteryLow = getEnvInt("BATTERY_LOW_THRESHOLD", 15)

	cfg.Wearable.Liveness.WearTimeout = getEnvDuration("WEAR_TIMEOUT", 10*time.Second)
	cfg.Wearable.Liveness.TickInterval = getEnvDuration("LIVENESS_TICK_INTERVAL", time.Second)
	cfg.Wearable.Liveness.DeviceStateTTL = getEnvDuration("DEVICE_STATE_TTL", 24*time.Hour)

	cfg.Wearable.Classifier.Interval = getEnvDuration("CLASSIFIER_INTERVAL", 5*time.Second)
	cfg.Wearable.Classifier.Window = getEnvDuration("CLASSIFIER_WINDOW", 30*time.Second)
	cfg.Wearable.Classifier.RunningStepThreshold = getEnvInt("RUNNING_STEP_THRESHOLD", 10)

	cfg.Wearable.Dispatch.StoreRetries = getEnvInt("DISPATCH_STORE_RETRIES", 3)
	cfg.Wearable.Dispatch.RetryBackoff = getEnvDuration("DISPATCH_RETRY_BACKOFF", 200*time.Millisecond)
	cfg.Wearable.Dispatch.NotifyTimeout = getEnvDuration("DISPATCH_NOTIFY_TIMEOUT", 15*time.Second)
	cfg.Wearable.Dispatch.ShutdownTimeout = getEnvDuration("DISPATCH_SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.Wearable.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "wearable:device:")
	cfg.Wearable.Cache.ClassificationSuffix = ":classification"
	cfg.Wearable.Cache.AlertsSuffix = ":alerts"
	cfg.Wearable.Cache.AlertsLimit = int64(getEnvInt("CACHE_ALERTS_LIMIT", 20))
	cfg.Wearable.Cache.AlertsTTL = getEnvDuration("CACHE_ALERTS_TTL", time.Hour)
	cfg.Wearable.Cache.AlertStream = getEnv("ALERT_STREAM", "wearable:alert:stream")
	cfg.Wearable.Cache.AlertStreamMaxLen = int64(getEnvInt("ALERT_STREAM_MAXLEN", 10000))

	cfg.Notifier.Provider = strings.ToLower(getEnv("NOTIFIER_PROVIDER", "log"))
	cfg.Notifier.EmergencyContact = getEnv("EMERGENCY_CONTACT", "")
	cfg.Notifier.Twilio.BaseURL = getEnv("TWILIO_BASE_URL", "https://api.twilio.com")
	cfg.Notifier.Twilio.AccountSID = getEnv("TWILIO_SID", "")
	cfg.Notifier.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Notifier.Twilio.From = getEnv("TWILIO_PHONE", "")

	cfg.Location.Enabled = getEnvBool("LOCATION_ENABLED", true)
	cfg.Location.URL = getEnv("LOCATION_URL", "https://ipinfo.io/json")
	cfg.Location.Token = getEnv("LOCATION_TOKEN", "")
	cfg.Location.Timeout = getEnvDuration("LOCATION_TIMEOUT", 3*time.Second)

	cfg.Metrics.Addr = getEnv("METRICS_ADDR", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}

// getEnvDuration 支持 "10s" 这样的时长，也兼容纯数字（秒）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
