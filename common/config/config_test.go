package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "wearable")
	t.Setenv("DB_MAX_CONNS", "12")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", SSLMode: "disable"}
	cfg.LoadFromEnv("DB")

	assert.Equal(t, "pg.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "wearable", cfg.Database)
	assert.Equal(t, 12, cfg.MaxConns)
	assert.Equal(t, "host=pg.internal port=6543 user=postgres password= dbname=wearable sslmode=disable", cfg.GetDSN())
}

func TestSQLiteConfig_GetDSN(t *testing.T) {
	assert.Equal(t, ":memory:", (&SQLiteConfig{}).GetDSN())
	assert.True(t, (&SQLiteConfig{Path: ":memory:"}).IsMemory())

	cfg := SQLiteConfig{Path: "/var/lib/wearable/history.db"}
	assert.Equal(t, "file:/var/lib/wearable/history.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.GetDSN())
	assert.False(t, cfg.IsMemory())
}

func TestMQTTConfig_LoadFromEnv_QoS(t *testing.T) {
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "1")

	cfg := MQTTConfig{}
	cfg.LoadFromEnv("MQTT")
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
	assert.Equal(t, byte(1), cfg.QoS)

	t.Setenv("MQTT_QOS", "7")
	cfg.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), cfg.QoS)
}

func TestRedisConfig_Enabled(t *testing.T) {
	assert.False(t, (&RedisConfig{}).Enabled())
	assert.True(t, (&RedisConfig{Addr: "localhost:6379"}).Enabled())
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("REDIS_DIAL_TIMEOUT", "2")

	cfg := RedisConfig{Addr: "localhost:6379", DB: 3}
	cfg.LoadFromEnv("REDIS")

	assert.Equal(t, "cache:6380", cfg.Addr)
	assert.Equal(t, 3, cfg.DB)
	assert.Equal(t, 2*time.Second, cfg.DialTimeout)
}
