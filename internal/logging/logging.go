// Package logging configures structured logging for toga-server and
// toga-client, replacing the console-plus-rotating-file pair set up by
// original_source/toga/logger.py with a zerolog console writer and a
// size-capped rolling file writer.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxLogBytes/maxBackups mirror logger.py's
// RotatingFileHandler(maxBytes=512000, backupCount=9).
const (
	maxLogBytes = 512_000
	maxBackups  = 9
)

// Setup builds the process-wide logger, writing every event to both the
// console and <outputDir>/toga_log.log, rotating that file once it crosses
// maxLogBytes. Neither writer filters by level. No third-party rotation library (e.g. lumberjack)
// appears anywhere in the example corpus, so the rotation is hand-rolled
// here rather than importing one out of thin air — see DESIGN.md.
func Setup(outputDir string) (zerolog.Logger, error) {
	path := filepath.Join(outputDir, "toga_log.log")
	rf, err := newRollingFile(path, maxLogBytes, maxBackups)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("logging: opening %s: %w", path, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	multi := zerolog.MultiLevelWriter(console, rf)
	logger := zerolog.New(multi).With().Timestamp().Logger()
	return logger, nil
}

// rollingFile is a minimal byte-capped rotating writer: once the current
// file would exceed maxBytes it is renamed .1 (cascading older backups up
// to maxBackups) and a fresh file is opened.
type rollingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	maxBackups int
	f          *os.File
	size       int64
}

func newRollingFile(path string, maxBytes int64, maxBackups int) (*rollingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &rollingFile{path: path, maxBytes: maxBytes, maxBackups: maxBackups, f: f, size: info.Size()}, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rollingFile) rotate() error {
	r.f.Close()
	for i := r.maxBackups - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", r.path, i)
		dst := fmt.Sprintf("%s.%d", r.path, i+1)
		if _, err := os.Stat(src); err == nil {
			_ = os.Rename(src, dst)
		}
	}
	if _, err := os.Stat(r.path); err == nil {
		_ = os.Rename(r.path, r.path+".1")
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	r.f = f
	r.size = 0
	return nil
}
