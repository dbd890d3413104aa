package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "wearable", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Store.RetentionDays)
	assert.Equal(t, "smartwatch_data.db", cfg.SQLite.Path)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "wearable/+/+", cfg.Wearable.Topic)

	assert.Equal(t, 140, cfg.Wearable.Detector.HeartRateHigh)
	assert.Equal(t, 50, cfg.Wearable.Detector.HeartRateLow)
	assert.Equal(t, 90, cfg.Wearable.Detector.SpO2Low)
	assert.Equal(t, 50, cfg.Wearable.Detector.StepSpike)
	assert.Equal(t, 30, cfg.Wearable.Detector.HeartRateDelta)
	assert.Equal(t, 5, cfg.Wearable.Detector.SpO2Delta)
	assert.Equal(t, 500, cfg.Wearable.Detector.StepDelta)
	assert.Equal(t, 15, cfg.Wearable.Detector.BatteryLow)

	assert.Equal(t, 10*time.Second, cfg.Wearable.Liveness.WearTimeout)
	assert.Equal(t, time.Second, cfg.Wearable.Liveness.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.Wearable.Classifier.Interval)
	assert.Equal(t, 30*time.Second, cfg.Wearable.Classifier.Window)
	assert.Equal(t, 10, cfg.Wearable.Classifier.RunningStepThreshold)

	assert.Equal(t, 3, cfg.Wearable.Dispatch.StoreRetries)
	assert.Equal(t, 10*time.Second, cfg.Wearable.Dispatch.ShutdownTimeout)

	assert.Equal(t, "wearable:device:", cfg.Wearable.Cache.KeyPrefix)
	assert.Equal(t, "wearable:alert:stream", cfg.Wearable.Cache.AlertStream)

	assert.Equal(t, "log", cfg.Notifier.Provider)
	assert.True(t, cfg.Location.Enabled)
	assert.Equal(t, "", cfg.Metrics.Addr)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("HR_THRESHOLD_HIGH", "150")
	t.Setenv("WEAR_TIMEOUT", "5s")
	t.Setenv("CLASSIFIER_INTERVAL", "7")
	t.Setenv("LOCATION_ENABLED", "false")
	t.Setenv("NOTIFIER_PROVIDER", "TWILIO")
	t.Setenv("TWILIO_SID", "AC123")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 150, cfg.Wearable.Detector.HeartRateHigh)
	assert.Equal(t, 5*time.Second, cfg.Wearable.Liveness.WearTimeout)
	assert.Equal(t, 7*time.Second, cfg.Wearable.Classifier.Interval)
	assert.False(t, cfg.Location.Enabled)
	assert.Equal(t, "twilio", cfg.Notifier.Provider)
	assert.Equal(t, "AC123", cfg.Notifier.Twilio.AccountSID)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "not-a-duration")
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("TEST_DURATION", time.Minute))
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("TEST_KEY")
	assert.Equal(t, "default-value", getEnv("TEST_KEY", "default-value"))

	t.Setenv("TEST_KEY", "env-value")
	assert.Equal(t, "env-value", getEnv("TEST_KEY", "default-value"))
}
