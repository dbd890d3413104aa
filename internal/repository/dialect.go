package repository

import (
	"fmt"
	"strings"
)

// Dialect 历史库的 SQL 方言
type Dialect struct {
	Name string
	// Postgres 使用 $n 占位符，SQLite 使用 ?
	numberedPlaceholders bool
	// 自增主键列定义
	serialPK string
}

var (
	// Postgres 生产环境
	Postgres = Dialect{Name: "postgres", numberedPlaceholders: true, serialPK: "BIGSERIAL PRIMARY KEY"}
	// SQLite 嵌入式 / 边缘网关
	SQLite = Dialect{Name: "sqlite", serialPK: "INTEGER PRIMARY KEY AUTOINCREMENT"}
)

// DialectByName 根据驱动名选择方言
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver: %s", name)
	}
}

// rebind 把 ? 占位符转换为方言的占位符
func (d Dialect) rebind(query string) string {
	if !d.numberedPlaceholders {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// schema 建表语句
//
// 时间戳以定宽 UTC 文本存储（两种引擎通用，字典序即时间序）。
// 读数的唯一性约束覆盖全部列，可空列通过 COALESCE 参与比较，
// 否则 NULL 之间互不相等，部分读数无法去重。
func (d Dialect) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sensor_data (
			id %s,
			timestamp TEXT NOT NULL,
			heart_rate INTEGER,
			spo2 INTEGER,
			step_count INTEGER,
			battery_level INTEGER,
			device_id TEXT NOT NULL
		)`, d.serialPK),
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_sensor_data_tuple ON sensor_data (
			device_id,
			timestamp,
			COALESCE(heart_rate, -1),
			COALESCE(spo2, -1),
			COALESCE(step_count, -1),
			COALESCE(battery_level, -1)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_data_device_ts ON sensor_data (device_id, timestamp)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS alerts (
			id %s,
			message TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('Sent', 'Failed'))
		)`, d.serialPK),
	}
}
