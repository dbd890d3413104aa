package database

import (
	"database/sql"
	"fmt"

	"wisefido-wearable/common/config"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB 打开 SQLite 数据库
// 内存库每个连接各自独立，只能用单连接；文件库写入串行，读可并发
func NewSQLiteDB(cfg *config.SQLiteConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cfg.Path, err)
	}
	if cfg.IsMemory() {
		applyPool(db, 1, 1, 0)
	}

	if err := pingWithTimeout(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", cfg.Path, err)
	}
	return db, nil
}
