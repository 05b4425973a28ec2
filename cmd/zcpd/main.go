package main

import (
	"os"

	_ "github.com/jimmicro/version"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "zcpd",
		Short:         "Zone-based cloud control plane",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newConfigCmd(&configPath),
		newSweepCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
