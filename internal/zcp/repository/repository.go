// Package repository 提供数据持久化层实现
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // 纯 Go SQLite 驱动，不需要 CGO
)

// Repository 数据库仓库
type Repository struct {
	db *gorm.DB
}

// New 创建新的 Repository 实例
func New(dbPath string) (*Repository, error) {
	// 确保数据库目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// 写事务直接获取写锁，并发写入时等待而不是立即返回 SQLITE_BUSY
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        dsn,
		Conn:       sqlDB,
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.UserZone{},
		&model.Zone{},
		&model.ZoneHost{},
		&model.ZoneNetwork{},
		&model.VirtualNetwork{},
		&model.Lease{},
		&model.VMType{},
		&model.VirtualMachine{},
		&model.VMLease{},
		&model.Transfer{},
	); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

// DB 返回 GORM 数据库实例（用于 Repository 实现）
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithContext 返回带上下文的数据库实例
func (r *Repository) WithContext(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Transaction 在一个事务内执行 fn，fn 返回错误时整体回滚
//
// fn 内只能使用 tx 构造的仓库，否则语句不在事务内
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Repository{db: db})
	})
}

// Close 关闭数据库连接
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound 判断错误是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate 判断错误是否违反唯一约束
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
