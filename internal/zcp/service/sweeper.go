package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/repository/model"
	"github.com/jimyag/zcp/pkg/rwlock"
	"github.com/rs/zerolog"
)

// Sweeper 定期删除超过 TTL 的传输会话，put 会话的残留文件一并删除
type Sweeper struct {
	transfers repository.TransferRepository
	locks     *rwlock.Set
	ttl       time.Duration
	interval  time.Duration
	now       func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper 创建清理器，locks 与 TransferService 共享
func NewSweeper(repo *repository.Repository, locks *rwlock.Set, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		transfers: repository.NewTransferRepository(repo.DB()),
		locks:     locks,
		ttl:       ttl,
		interval:  interval,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run 每隔 interval 清理一次，直到 Shutdown 或 ctx 结束
func (s *Sweeper) Run(ctx context.Context) error {
	defer close(s.done)

	logger := zerolog.Ctx(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.Error().Err(err).Msg("Transfer sweep failed")
			}
		}
	}
}

// Shutdown 唤醒并停止清理循环，等待正在进行的一轮结束
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name 实现 grace.Grace 接口
func (s *Sweeper) Name() string {
	return "transfer sweeper"
}

// Sweep 执行一轮清理，返回删除的会话数量
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	logger := zerolog.Ctx(ctx)

	stale, err := s.transfers.ListOlderThan(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}

	reaped := 0
	var errs []error
	for _, t := range stale {
		if t.Type == model.TransferPut {
			if err := s.removeFile(t.Path); err != nil {
				logger.Warn().Err(err).Str("path", t.Path).Msg("Failed to remove stale transfer file")
				errs = append(errs, err)
				continue
			}
		}
		if err := s.transfers.Delete(ctx, t.Name); err != nil {
			errs = append(errs, err)
			continue
		}
		reaped++
		transferSessionsReaped.Inc()
	}

	if reaped > 0 {
		logger.Info().Int("reaped", reaped).Msg("Stale transfer sessions removed")
	}
	return reaped, errors.Join(errs...)
}

func (s *Sweeper) removeFile(path string) error {
	unlock := s.locks.Lock(path)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
