// Command toga-server runs the aggregation HTTP server (C8), grounded on
// original_source/toga/server/server.py.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JPLMLIA/TOGA/internal/archive"
	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/logging"
	"github.com/JPLMLIA/TOGA/internal/server"
)

func main() {
	var configDir string

	root := &cobra.Command{
		Use:   "toga-server",
		Short: "Run the TOGA pareto-frontier aggregation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configDir)
		},
	}
	root.Flags().StringVar(&configDir, "config", "./config", "directory containing the *_settings.yml configuration files")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	settings, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if err := settings.CreateOutputDirectory(); err != nil {
		return err
	}

	log, err := logging.Setup(settings.OutputDir)
	if err != nil {
		return err
	}

	metrics := archive.MetricsFromConfig(settings.OptimizationMetrics)
	a, err := archive.New(metrics, settings.OptimizationStrategy, settings.IndividualsPerBin, settings.HistoryLog)
	if err != nil {
		return err
	}

	srv := server.New(settings, a, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("toga-server starting")
	return srv.Run(ctx)
}
