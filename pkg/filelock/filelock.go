// Package filelock 提供基于 flock 的独占文件锁
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout 默认获取锁超时时间
const DefaultTimeout = 30 * time.Second

const retryInterval = 20 * time.Millisecond

// Lock 对单个路径的独占锁
type Lock struct {
	path    string
	file    *os.File
	timeout time.Duration
}

// New 创建锁，path 是要加锁的文件（不存在时会创建）
func New(path string, timeout time.Duration) *Lock {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Lock{
		path:    path,
		timeout: timeout,
	}
}

// Path 返回加锁的文件路径
func (l *Lock) Path() string {
	return l.path
}

// Lock 获取独占锁（带超时）
func (l *Lock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(l.timeout)
	for {
		err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			l.file = file
			log.Debug().Str("lock_path", l.path).Msg("Lock acquired")
			return nil
		}

		if time.Now().After(deadline) {
			file.Close()
			return fmt.Errorf("lock timeout after %v", l.timeout)
		}

		select {
		case <-ctx.Done():
			file.Close()
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Unlock 释放锁，未持有时是空操作
func (l *Lock) Unlock() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		log.Warn().Err(err).Str("lock_path", l.path).Msg("Failed to unlock file")
	}
	if err := l.file.Close(); err != nil {
		log.Warn().Err(err).Str("lock_path", l.path).Msg("Failed to close lock file")
	}
	l.file = nil

	log.Debug().Str("lock_path", l.path).Msg("Lock released")
	return nil
}

// With 持有锁执行 fn，任何返回路径都会释放锁
func With(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	l := New(path, timeout)
	if err := l.Lock(ctx); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer l.Unlock()

	return fn()
}
