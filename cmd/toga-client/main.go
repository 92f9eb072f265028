// Command toga-client runs the producer/worker-pool evaluation pipeline
// (C7), grounded on original_source/toga/client.py.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JPLMLIA/TOGA/internal/archive"
	"github.com/JPLMLIA/TOGA/internal/client"
	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/gene"
	"github.com/JPLMLIA/TOGA/internal/logging"
	// Registers the typed mutation operators into gene.dispatchTable; nothing
	// else in the production import graph reaches internal/mutate (see
	// dispatch.go), so this blank import is required, not decorative.
	_ "github.com/JPLMLIA/TOGA/internal/mutate"
	"github.com/JPLMLIA/TOGA/internal/population"
	"github.com/JPLMLIA/TOGA/internal/rng"
)

func main() {
	var configDir string

	root := &cobra.Command{
		Use:   "toga-client",
		Short: "Run the TOGA evaluation client",
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

	schema, err := loadSchema(settings.GeneTemplate)
	if err != nil {
		return err
	}

	metrics := archive.MetricsFromConfig(settings.OptimizationMetrics)
	localArchive, err := archive.New(metrics, settings.OptimizationStrategy, settings.IndividualsPerBin, "")
	if err != nil {
		return err
	}

	rnd := rng.New(time.Now().UnixNano())
	sampler := population.New(schema, settings.GeneMutationScale, settings.ActiveMutatorsByType, localArchive, rnd)

	c := client.New(settings, sampler, localArchive, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("toga-client starting")
	return c.Run(ctx)
}

func loadSchema(path string) (gene.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("toga-client: reading gene template %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("toga-client: parsing gene template %s: %w", path, err)
	}
	return gene.ParseSchema(raw)
}
