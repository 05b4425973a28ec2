// Package zcp 提供 ZCP 服务器的主入口和初始化逻辑
package zcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jimmicro/grace"
	"github.com/jimyag/zcp/internal/zcp/api"
	"github.com/jimyag/zcp/internal/zcp/config"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/service"
	"github.com/jimyag/zcp/pkg/orchestrator"
	"github.com/jimyag/zcp/pkg/rwlock"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg     *config.Config
	repo    *repository.Repository
	api     *api.API
	sweeper *service.Sweeper
}

func New(cfg *config.Config) (*Server, error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Log.Level, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	// 1. 本地数据库
	repo, err := repository.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}

	// 2. 编排器客户端
	client, err := orchestrator.New(orchestrator.Config{
		Endpoint:    cfg.Orchestrator.Endpoint,
		Timeout:     cfg.Orchestrator.Timeout,
		ReadRetries: cfg.Orchestrator.ReadRetries,
		HostDrivers: cfg.Orchestrator.HostDrivers,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("create orchestrator client: %w", err)
	}

	// 3. 服务
	provisioner := service.NewProvisioner(repo, client, cfg.Orchestrator.Session, cfg.Network.Bridge)
	allocator := service.NewLeaseAllocator(repository.NewLeaseRepository(repo.DB()))
	locks := rwlock.NewSet()

	transferService, err := service.NewTransferService(repo, client, locks, cfg.Transfer.Root)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("create transfer service: %w", err)
	}

	services := &api.Services{
		Users:    service.NewUserService(repo, client, cfg.Orchestrator.Session),
		Zones:    service.NewZoneService(repo, client, provisioner),
		Networks: service.NewNetworkService(repo, client),
		Leases:   service.NewLeaseService(repo, client, allocator),
		VMTypes:  service.NewVMTypeService(repo, client),
		VMs: service.NewVMService(repo, client, allocator, service.VMConfig{
			AdminSession:   cfg.Orchestrator.Session,
			ArtifactRoot:   cfg.VM.ArtifactRoot,
			SwapRatio:      cfg.VM.SwapRatio,
			ImageDatastore: cfg.Orchestrator.ImageDatastore,
		}),
		Transfers: transferService,
	}

	// 4. 过期传输会话清理
	sweeper := service.NewSweeper(repo, locks, cfg.Transfer.TTL, cfg.Transfer.SweepInterval)

	// 5. API
	server := &Server{
		cfg:     cfg,
		repo:    repo,
		api:     api.New(cfg.Address, services),
		sweeper: sweeper,
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("data_dir", cfg.DataDir).
		Str("orchestrator", cfg.Orchestrator.Endpoint).
		Msg("ZCP server initialized")

	return server, nil
}

func (s *Server) Run(ctx context.Context) error {
	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
		s.sweeper,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	return s.repo.Close()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.api.Shutdown(ctx)
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "ZCP Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
