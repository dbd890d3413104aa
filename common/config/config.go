package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// SQLiteConfig 嵌入式 SQLite 配置（网关/边缘盒子部署）
type SQLiteConfig struct {
	Path          string // 文件路径，":memory:" 表示内存库
	BusyTimeoutMS int
}

// RedisConfig Redis配置，Addr 为空表示不使用 Redis
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// GetDSN 获取 PostgreSQL 连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 用 {prefix}_HOST 等环境变量覆盖当前值
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	envString(&c.Host, prefix+"_HOST")
	envInt(&c.Port, prefix+"_PORT")
	envString(&c.User, prefix+"_USER")
	envString(&c.Password, prefix+"_PASSWORD")
	envString(&c.Database, prefix+"_NAME")
	envString(&c.SSLMode, prefix+"_SSLMODE")
	envInt(&c.MaxConns, prefix+"_MAX_CONNS")
	envInt(&c.MaxIdle, prefix+"_MAX_IDLE")
	envDuration(&c.ConnMaxLifetime, prefix+"_CONN_MAX_LIFETIME")
}

// GetDSN 获取 SQLite DSN（modernc.org/sqlite 的 _pragma 语法）
func (c *SQLiteConfig) GetDSN() string {
	if c.Path == "" || c.Path == ":memory:" {
		return ":memory:"
	}
	timeout := c.BusyTimeoutMS
	if timeout <= 0 {
		timeout = 5000
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", c.Path, timeout)
}

// IsMemory 是否为内存库
func (c *SQLiteConfig) IsMemory() bool {
	return c.GetDSN() == ":memory:"
}

// LoadFromEnv 用 {prefix}_PATH / {prefix}_BUSY_TIMEOUT_MS 覆盖当前值
func (c *SQLiteConfig) LoadFromEnv(prefix string) {
	envString(&c.Path, prefix+"_PATH")
	envInt(&c.BusyTimeoutMS, prefix+"_BUSY_TIMEOUT_MS")
}

// LoadFromEnv 用 {prefix}_ADDR 等环境变量覆盖当前值
func (c *RedisConfig) LoadFromEnv(prefix string) {
	envString(&c.Addr, prefix+"_ADDR")
	envString(&c.Password, prefix+"_PASSWORD")
	envInt(&c.DB, prefix+"_DB")
	envInt(&c.PoolSize, prefix+"_POOL_SIZE")
	envDuration(&c.DialTimeout, prefix+"_DIAL_TIMEOUT")
}

// Enabled Redis 地址为空时视为关闭
func (c *RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// LoadFromEnv 用 {prefix}_BROKER 等环境变量覆盖当前值，QoS 只接受 0-2
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	envString(&c.Broker, prefix+"_BROKER")
	envString(&c.ClientID, prefix+"_CLIENT_ID")
	envString(&c.Username, prefix+"_USERNAME")
	envString(&c.Password, prefix+"_PASSWORD")
	envDuration(&c.KeepAlive, prefix+"_KEEPALIVE")
	envDuration(&c.ConnectTimeout, prefix+"_CONNECT_TIMEOUT")

	qos := int(c.QoS)
	envInt(&qos, prefix+"_QOS")
	if qos >= 0 && qos <= 2 {
		c.QoS = byte(qos)
	}
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// envDuration 接受 "30s" 形式，也接受纯数字（秒）
func envDuration(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
	}
}
