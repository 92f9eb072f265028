// Package evalrun drives one evaluator subprocess invocation for an
// individual (the C7 "worker" stage, spec.md §4.7), grounded on
// original_source/toga/worker.py.
//
// The original used psutil to recursively kill a subprocess's children on
// timeout, working around a Python subprocess.call bug. Here the evaluator
// shell runs in its own process group and exec.CommandContext's Cancel hook
// kills that whole group when the timeout expires — see SPEC_FULL.md/DESIGN.md.
package evalrun

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/genome"
)

// Worker runs one individual's evaluator command in its own working
// directory, matching worker.Worker.
type Worker struct {
	settings   *config.Settings
	individual genome.Individual
	workDir    string
	serialPath string
}

// New builds a Worker for individual, computing its serialization path and
// working directory the same way worker.py does:
// <output>/random_config/<uuid>_<basename(gene_template)> and
// <output>/workdir/<uuid>.
func New(settings *config.Settings, individual genome.Individual) *Worker {
	return &Worker{
		settings:   settings,
		individual: individual,
		workDir:    filepath.Join(settings.OutputDir, "workdir", individual.UUID),
		serialPath: filepath.Join(settings.OutputDir, "random_config", individual.UUID+"_"+filepath.Base(settings.GeneTemplate)),
	}
}

// WorkDir returns the directory the evaluator ran in.
func (w *Worker) WorkDir() string { return w.workDir }

func (w *Worker) command() string {
	var prefix string
	if w.settings.UseCondaEnv {
		prefix = fmt.Sprintf("source %s activate %s && ", w.settings.CondaShellExecLoc, w.settings.EnvironName)
	}
	return fmt.Sprintf("%s%s %s %s %s", prefix, w.settings.RunnableCmd, w.settings.GeneArgKey, w.serialPath, w.settings.StaticArgs)
}

// Run serializes the individual's gene to YAML, then executes the
// configured evaluator command in workDir. A context deadline exceeded is
// not treated as an error (matching worker.run()'s catch of
// subprocess.TimeoutExpired) — it simply means no metrics file will be
// found afterward.
func (w *Worker) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.workDir, 0o755); err != nil {
		return fmt.Errorf("evalrun: creating work dir: %w", err)
	}
	if err := w.serializeGene(); err != nil {
		return err
	}

	// Cancelling ctx does not stop a running evaluator; only the timeout does.
	runCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if w.settings.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, time.Duration(w.settings.Timeout*float64(time.Second)))
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "sh", "-c", w.command())
	// Run the shell in its own process group and kill the whole group on
	// timeout, so children started by the evaluator do not outlive it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL) }
	cmd.Dir = w.workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stdout

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil
	}
	if err != nil {
		return fmt.Errorf("evalrun: running evaluator: %w", err)
	}
	return nil
}

func (w *Worker) serializeGene() error {
	b, err := yaml.Marshal(w.individual.Gene)
	if err != nil {
		return fmt.Errorf("evalrun: marshaling gene: %w", err)
	}
	if err := os.WriteFile(w.serialPath, b, 0o644); err != nil {
		return fmt.Errorf("evalrun: writing %s: %w", w.serialPath, err)
	}
	return nil
}

// ReadMetrics reads the evaluator's metrics CSV (header row = metric names,
// one row per trial) and returns each column as a slice of floats, matching
// Worker.response()'s pandas.read_csv. A missing file is not an error: it
// returns (nil, nil), matching the original's "not found" branch that
// leaves metrics_df as None.
func (w *Worker) ReadMetrics() (map[string][]float64, error) {
	path := filepath.Join(w.workDir, w.settings.MetricsOutLocation)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("evalrun: opening metrics file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evalrun: reading metrics header: %w", err)
	}

	out := make(map[string][]float64, len(header))
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("evalrun: reading metrics row: %w", err)
		}
		for i, col := range header {
			if i >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				continue
			}
			out[col] = append(out[col], v)
		}
	}
	return out, nil
}

// Cleanup removes the work directory and the serialized gene file, matching
// Worker.cleanup().
func (w *Worker) Cleanup() {
	_ = os.RemoveAll(w.workDir)
	_ = os.Remove(w.serialPath)
}
