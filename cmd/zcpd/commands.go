package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jimyag/zcp/internal/zcp"
	"github.com/jimyag/zcp/internal/zcp/config"
	"github.com/jimyag/zcp/internal/zcp/repository"
	"github.com/jimyag/zcp/internal/zcp/service"
	"github.com/jimyag/zcp/pkg/rwlock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// loadConfig 指定了配置文件时读取文件，否则只使用默认值和环境变量
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control plane API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			server, err := zcp.New(cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			return server.Run(context.Background())
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reap expired transfer sessions once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			repo, err := repository.New(cfg.Database)
			if err != nil {
				return fmt.Errorf("open repository: %w", err)
			}
			defer repo.Close()

			sweeper := service.NewSweeper(repo, rwlock.NewSet(), cfg.Transfer.TTL, cfg.Transfer.SweepInterval)
			reaped, err := sweeper.Sweep(cmd.Context())
			log.Info().Int("reaped", reaped).Msg("Sweep finished")
			return err
		},
	}
}
