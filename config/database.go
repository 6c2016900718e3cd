package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"tvbridge/pkg/logger"
)

// ExecutionRecord 告警处理记录
type ExecutionRecord struct {
	ID          string    `json:"id"`
	AlertID     string    `json:"alert_id"`
	Source      string    `json:"source"` // imap | api
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
	Detail      string    `json:"detail"`
	Content     string    `json:"content"` // 已脱敏
	ProcessedAt time.Time `json:"processed_at"`
}

// Database 执行记录库
type Database struct {
	db      *sql.DB
	isMySQL bool
	log     *zap.Logger
}

// NewDatabase 创建执行记录库
// dbPath 包含 "@tcp(" 视为 MySQL DSN，否则为 SQLite 文件路径
func NewDatabase(dbPath string) (*Database, error) {
	if strings.Contains(dbPath, "@tcp(") {
		return NewMySQLDatabase(dbPath)
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开SQLite数据库失败: %w", err)
	}
	// SQLite 单写者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("启用WAL模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置synchronous失败: %w", err)
	}

	return openDatabase(db, false)
}

func openDatabase(db *sql.DB, isMySQL bool) (*Database, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	d := &Database{db: db, isMySQL: isMySQL, log: logger.NewModuleLogger("database")}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}
	if err := d.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return d, nil
}

func (d *Database) createTables() error {
	textType := "TEXT"
	if d.isMySQL {
		textType = "VARCHAR(255)"
	}

	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS alert_executions (
			id %s PRIMARY KEY,
			alert_id %s NOT NULL DEFAULT '',
			source %s NOT NULL DEFAULT '',
			sender %s NOT NULL DEFAULT '',
			subject TEXT,
			status %s NOT NULL,
			detail TEXT,
			content TEXT,
			processed_at DATETIME NOT NULL
		)`, textType, textType, textType, textType, textType),

		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := d.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveExecution 保存一条处理记录
func (d *Database) SaveExecution(r *ExecutionRecord) error {
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}
	_, err := d.db.Exec(`INSERT INTO alert_executions
		(id, alert_id, source, sender, subject, status, detail, content, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AlertID, r.Source, r.Sender, r.Subject, r.Status, r.Detail, r.Content, r.ProcessedAt.UTC())
	return err
}

// ExecutionExists 某条告警在 since 之后是否已有处理记录
func (d *Database) ExecutionExists(alertID string, since time.Time) (bool, error) {
	if alertID == "" {
		return false, nil
	}

	var one int
	err := d.db.QueryRow(`SELECT 1 FROM alert_executions WHERE alert_id = ? AND processed_at >= ? LIMIT 1`,
		alertID, since.UTC()).Scan(&one)
	if err == nil {
		return true, nil
	}
	if err == sql.ErrNoRows {
		return false, nil
	}
	return false, err
}

// GetRecentExecutions 最近的处理记录（按时间倒序）
func (d *Database) GetRecentExecutions(limit int) ([]ExecutionRecord, error) {
	query := `SELECT id, alert_id, source, sender, COALESCE(subject, ''), status, COALESCE(detail, ''), COALESCE(content, ''), processed_at
		FROM alert_executions ORDER BY processed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		if err := rows.Scan(&r.ID, &r.AlertID, &r.Source, &r.Sender, &r.Subject, &r.Status, &r.Detail, &r.Content, &r.ProcessedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Close 关闭数据库
func (d *Database) Close() error {
	return d.db.Close()
}
