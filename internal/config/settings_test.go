package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadComposesAllFourDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gene_template.yml", "knob:\n  param_type: int\n  range: [0, 10]\n")
	writeFile(t, dir, "genetic_algorithm_settings.yml", `
mutators:
  scale:
    partial: 0.7
    min: 0.3
  type:
    int:
      random: 1.0
optimization_strategy_maximize: false
individuals_per_bin: 2
`)
	writeFile(t, dir, "gene_performance_metrics.yml", `
fitness:
  banana:
    fixed_axis: true
    range: [0, 400]
    partitions: 5
    index: 0
  sinc:
    fixed_axis: false
    range: [-0.5, 0.5]
    partitions: 1
    index: 1
`)
	writeFile(t, dir, "server_settings.yml", "host: 127.0.0.1\nport: 8080\n")
	writeFile(t, dir, "run_settings.yml", `
metrics_location: metrics.csv
gene_template: `+filepath.Join(dir, "gene_template.yml")+`
history_log: history.log
work_dir:
  base_dir: `+filepath.Join(dir, "out")+`
environment:
  conda:
    use: false
    environment_name: ""
  conda_shell_executable_location: ""
command:
  cmd: echo
  gene_mapping:
    key: --gene
  static_args: ""
workers:
  max_workers: 4
  max_run_time: 30.0
  over_fill_executor: 2
`)

	s, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Host != "127.0.0.1" || s.Port != 8080 {
		t.Fatalf("server settings not loaded: %+v", s)
	}
	if s.IndividualsPerBin != 2 || s.OptimizationStrategy {
		t.Fatalf("ga settings not loaded: %+v", s)
	}
	if len(s.OptimizationMetrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(s.OptimizationMetrics))
	}
	if s.ProcessPoolSize != 4 || s.OverfillExecutorLimit != 2 {
		t.Fatalf("worker settings not loaded: %+v", s)
	}
	if s.GeneMutationScale["partial"] != 0.7 {
		t.Fatalf("gene_mutation_scale not loaded: %+v", s.GeneMutationScale)
	}
}

func TestLoadFailsOnMissingGeneTemplate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "genetic_algorithm_settings.yml", "optimization_strategy_maximize: false\nindividuals_per_bin: 1\n")
	writeFile(t, dir, "gene_performance_metrics.yml", "fitness: {}\n")
	writeFile(t, dir, "server_settings.yml", "host: 127.0.0.1\nport: 8080\n")
	writeFile(t, dir, "run_settings.yml", "gene_template: /no/such/file.yml\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for a missing gene_template file")
	}
}

func TestCreateOutputDirectoryMakesExpectedSubtree(t *testing.T) {
	dir := t.TempDir()
	s := &Settings{OutputDir: filepath.Join(dir, "out")}
	if err := s.CreateOutputDirectory(); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"best", "graph", "random_config", "workdir", "generation_log"} {
		if info, err := os.Stat(filepath.Join(s.OutputDir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist", sub)
		}
	}
}
