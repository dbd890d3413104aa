package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-wearable/common/config"

	_ "github.com/lib/pq"
)

// pingTimeout 启动时探测数据库的最长等待时间
const pingTimeout = 5 * time.Second

// NewPostgresDB 打开 PostgreSQL 连接池并探活
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	applyPool(db, cfg.MaxConns, cfg.MaxIdle, cfg.ConnMaxLifetime)

	if err := pingWithTimeout(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// Close 关闭连接池，nil 安全
func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func applyPool(db *sql.DB, maxOpen, maxIdle int, lifetime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if lifetime > 0 {
		db.SetConnMaxLifetime(lifetime)
	}
}

func pingWithTimeout(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
