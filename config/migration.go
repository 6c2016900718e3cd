package config

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// CurrentSchemaVersion 当前数据库版本号
const CurrentSchemaVersion = 1

// Migration 迁移函数类型
type Migration func(db *sql.DB, isMySQL bool) error

// migrations 所有迁移脚本，按版本号顺序执行
var migrations = map[int]Migration{
	1: migrationV1, // alert_executions.alert_id 索引（去重查询）
}

func migrationV1(db *sql.DB, isMySQL bool) error {
	q := `CREATE INDEX IF NOT EXISTS idx_alert_executions_alert_id ON alert_executions(alert_id)`
	if isMySQL {
		q = `CREATE INDEX idx_alert_executions_alert_id ON alert_executions(alert_id)`
	}
	if _, err := db.Exec(q); err != nil {
		return fmt.Errorf("创建 alert_id 索引失败: %w", err)
	}
	return nil
}

// schemaVersion 读取当前版本，无记录视为 0
func (d *Database) schemaVersion() (int, error) {
	var v sql.NullInt64
	if err := d.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, err
	}
	if !v.Valid {
		return 0, nil
	}
	return int(v.Int64), nil
}

// runMigrations 执行尚未应用的迁移
func (d *Database) runMigrations() error {
	current, err := d.schemaVersion()
	if err != nil {
		return fmt.Errorf("读取数据库版本失败: %w", err)
	}

	for v := current + 1; v <= CurrentSchemaVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return fmt.Errorf("缺少迁移脚本 v%d", v)
		}
		d.log.Info("🔄 执行数据库迁移", zap.Int("version", v))
		if err := m(d.db, d.isMySQL); err != nil {
			return err
		}
		if _, err := d.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v); err != nil {
			return fmt.Errorf("记录数据库版本失败: %w", err)
		}
	}
	return nil
}
