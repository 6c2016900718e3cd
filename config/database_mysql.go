package config

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// NewMySQLDatabase 创建MySQL数据库连接
// dsn格式: user:password@tcp(host:port)/dbname
func NewMySQLDatabase(dsn string) (*Database, error) {
	// processed_at 需要扫描为 time.Time
	if !strings.Contains(dsn, "parseTime=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开MySQL数据库失败: %w", err)
	}

	// 连接生命周期小于服务端 wait_timeout，避免复用已断开的连接
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	return openDatabase(db, true)
}
