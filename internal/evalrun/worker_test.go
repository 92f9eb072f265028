package evalrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/genome"
)

func testWorker(t *testing.T, cmd string) *Worker {
	t.Helper()
	dir := t.TempDir()
	geneTemplate := filepath.Join(dir, "gene_template.yml")
	if err := os.WriteFile(geneTemplate, []byte("knob: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	settings := &config.Settings{
		OutputDir:          filepath.Join(dir, "out"),
		GeneTemplate:       geneTemplate,
		RunnableCmd:        cmd,
		GeneArgKey:         "--gene",
		MetricsOutLocation: "metrics.csv",
	}
	ind := genome.Individual{UUID: "w1", Gene: map[string]interface{}{"knob": 3}}
	return New(settings, ind)
}

func TestRunWritesGeneAndExecutesCommand(t *testing.T) {
	w := testWorker(t, "echo ran")
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(w.serialPath)
	if err != nil {
		t.Fatalf("expected serialized gene file, got error: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("expected non-empty serialized gene")
	}
}

func TestRunTimeoutIsNotAnError(t *testing.T) {
	// The trailing '#' turns the appended gene arguments into a shell
	// comment; sleep would otherwise reject them and exit at once.
	w := testWorker(t, "sleep 5 #")
	w.settings.Timeout = 0.05
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected a deadline-exceeded timeout to be swallowed, got %v", err)
	}
}

func TestReadMetricsMissingFileReturnsNilNil(t *testing.T) {
	w := testWorker(t, "true")
	if err := os.MkdirAll(w.workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := w.ReadMetrics()
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil) for a missing metrics file, got (%v, %v)", got, err)
	}
}

func TestReadMetricsParsesColumns(t *testing.T) {
	w := testWorker(t, "true")
	if err := os.MkdirAll(w.workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "banana,sinc\n1.0,0.1\n3.0,0.3\n"
	if err := os.WriteFile(filepath.Join(w.workDir, "metrics.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := w.ReadMetrics()
	if err != nil {
		t.Fatal(err)
	}
	if len(got["banana"]) != 2 || got["banana"][0] != 1.0 || got["banana"][1] != 3.0 {
		t.Fatalf("banana column = %v, want [1 3]", got["banana"])
	}
	if len(got["sinc"]) != 2 {
		t.Fatalf("sinc column = %v, want 2 rows", got["sinc"])
	}
}

func TestCleanupRemovesWorkDirAndSerializedGene(t *testing.T) {
	w := testWorker(t, "true")
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Cleanup()
	if _, err := os.Stat(w.workDir); !os.IsNotExist(err) {
		t.Fatalf("expected workDir to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(w.serialPath); !os.IsNotExist(err) {
		t.Fatalf("expected serialized gene file to be removed, stat err = %v", err)
	}
}

func TestCommandPrefixesCondaActivateWhenConfigured(t *testing.T) {
	w := testWorker(t, "echo hi")
	w.settings.UseCondaEnv = true
	w.settings.CondaShellExecLoc = "/opt/conda/etc/profile.d/conda.sh"
	w.settings.EnvironName = "toga-env"
	got := w.command()
	want := "source /opt/conda/etc/profile.d/conda.sh activate toga-env && echo hi --gene " + w.serialPath + " "
	if got != want {
		t.Fatalf("command() = %q, want %q", got, want)
	}
}
