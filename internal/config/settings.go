// Package config loads the run configuration for TOGA servers and clients.
//
// The original implementation (toga_settings.py) held this state behind a
// metaclass singleton so any package could call Settings() and get the same
// instance. This package instead loads a Settings value once at startup and
// expects callers to pass it explicitly into every constructor that needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MutatorWeights maps a mutator tag to its selection weight.
type MutatorWeights map[string]float64

// MetricConfig is one entry of the fitness.<name> configuration block.
type MetricConfig struct {
	FixedAxis  bool      `yaml:"fixed_axis"`
	Range      []float64 `yaml:"range"`
	Partitions int       `yaml:"partitions"`
	Index      int       `yaml:"index"`
}

type gaSettingsFile struct {
	Mutators struct {
		Scale MutatorWeights            `yaml:"scale"`
		Type  map[string]MutatorWeights `yaml:"type"`
	} `yaml:"mutators"`
	OptimizationStrategyMaximize bool `yaml:"optimization_strategy_maximize"`
	IndividualsPerBin            int  `yaml:"individuals_per_bin"`
}

type metricsFile struct {
	Fitness map[string]MetricConfig `yaml:"fitness"`
}

type serverSettingsFile struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type runSettingsFile struct {
	MetricsLocation string `yaml:"metrics_location"`
	GeneTemplate    string `yaml:"gene_template"`
	HistoryLog      string `yaml:"history_log"`
	WorkDir         struct {
		BaseDir string `yaml:"base_dir"`
	} `yaml:"work_dir"`
	Environment struct {
		Conda struct {
			Use             bool   `yaml:"use"`
			EnvironmentName string `yaml:"environment_name"`
		} `yaml:"conda"`
		CondaShellExecutableLocation string `yaml:"conda_shell_executable_location"`
	} `yaml:"environment"`
	Command struct {
		Cmd          string `yaml:"cmd"`
		GeneMapping  struct {
			Key string `yaml:"key"`
		} `yaml:"gene_mapping"`
		StaticArgs string `yaml:"static_args"`
	} `yaml:"command"`
	Workers struct {
		MaxWorkers      int     `yaml:"max_workers"`
		MaxRunTime      float64 `yaml:"max_run_time"`
		OverFillExecutor int    `yaml:"over_fill_executor"`
	} `yaml:"workers"`
}

// Settings is the union of the four YAML configuration documents the
// original implementation read independently
// (genetic_algorithm_settings.yml, gene_performance_metrics.yml,
// server_settings.yml, run_settings.yml).
type Settings struct {
	GeneMutationScale    MutatorWeights
	ActiveMutatorsByType map[string]MutatorWeights
	OptimizationStrategy bool // true = maximize
	IndividualsPerBin    int

	OptimizationMetrics map[string]MetricConfig

	Host string
	Port int

	MetricsOutLocation string
	GeneTemplate       string
	HistoryLog         string
	OutputDir          string

	UseCondaEnv        bool
	EnvironName        string
	CondaShellExecLoc  string
	RunnableCmd        string
	GeneArgKey         string
	StaticArgs         string

	ProcessPoolSize      int
	Timeout              float64
	OverfillExecutorLimit int
}

// Load reads the four YAML documents from dir and composes a Settings
// value. File names match the originals exactly so existing configuration
// directories can be reused without renaming anything.
func Load(dir string) (*Settings, error) {
	var ga gaSettingsFile
	if err := loadYAML(filepath.Join(dir, "genetic_algorithm_settings.yml"), &ga); err != nil {
		return nil, err
	}
	var metrics metricsFile
	if err := loadYAML(filepath.Join(dir, "gene_performance_metrics.yml"), &metrics); err != nil {
		return nil, err
	}
	var server serverSettingsFile
	if err := loadYAML(filepath.Join(dir, "server_settings.yml"), &server); err != nil {
		return nil, err
	}
	var run runSettingsFile
	if err := loadYAML(filepath.Join(dir, "run_settings.yml"), &run); err != nil {
		return nil, err
	}

	if _, err := os.Stat(run.GeneTemplate); err != nil {
		return nil, fmt.Errorf("config: gene_template %q: %w", run.GeneTemplate, err)
	}

	s := &Settings{
		GeneMutationScale:     ga.Mutators.Scale,
		ActiveMutatorsByType:  ga.Mutators.Type,
		OptimizationStrategy:  ga.OptimizationStrategyMaximize,
		IndividualsPerBin:     ga.IndividualsPerBin,
		OptimizationMetrics:   metrics.Fitness,
		Host:                  server.Host,
		Port:                  server.Port,
		MetricsOutLocation:    run.MetricsLocation,
		GeneTemplate:          run.GeneTemplate,
		HistoryLog:            run.HistoryLog,
		OutputDir:             run.WorkDir.BaseDir,
		UseCondaEnv:           run.Environment.Conda.Use,
		EnvironName:           run.Environment.Conda.EnvironmentName,
		CondaShellExecLoc:     run.Environment.CondaShellExecutableLocation,
		RunnableCmd:           run.Command.Cmd,
		GeneArgKey:            run.Command.GeneMapping.Key,
		StaticArgs:            run.Command.StaticArgs,
		ProcessPoolSize:       run.Workers.MaxWorkers,
		Timeout:               run.Workers.MaxRunTime,
		OverfillExecutorLimit: run.Workers.OverFillExecutor,
	}
	return s, nil
}

func loadYAML(path string, out interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// CreateOutputDirectory ensures the output directory tree exists, mirroring
// Settings.create_output_directory() in toga_settings.py. The "graph"
// subdirectory is created but never written to: frontier plotting is out of
// scope for this module, but downstream tooling that expects the directory
// to exist should not be broken by its absence.
func (s *Settings) CreateOutputDirectory() error {
	subdirs := []string{"best", "graph", "random_config", "workdir", "generation_log"}
	for _, d := range subdirs {
		if err := os.MkdirAll(filepath.Join(s.OutputDir, d), 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", d, err)
		}
	}
	return nil
}
