// Package server implements the aggregation HTTP surface (C8, spec.md §6),
// grounded on original_source/toga/server/{server,frontier_state}.py.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/JPLMLIA/TOGA/internal/archive"
	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/genome"
)

// snapshotInterval matches schedule_serialization()'s literal
// asyncio.sleep(600) in server.py.
const snapshotInterval = 600 * time.Second

// Server holds the aggregation state shared by every request goroutine.
// Unlike the original's single-threaded asyncio loop, net/http dispatches
// each request on its own goroutine, so the trial counter needs its own
// lock even though FrontierState.trial_count_lock existed mostly out of an
// abundance of caution there.
type Server struct {
	settings *config.Settings
	archive  *archive.DataDict
	log      zerolog.Logger

	mu               sync.Mutex
	globalTrialCount int64
}

// New constructs a Server over an already-initialized archive.
func New(settings *config.Settings, a *archive.DataDict, log zerolog.Logger) *Server {
	return &Server{settings: settings, archive: a, log: log}
}

// Handler returns the CORS-wrapped HTTP mux, matching server.py's
// aiohttp_cors configuration (allow_credentials=True, all headers, all
// origins).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/get_state", s.handleGetState)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow-Credentials: true forbids a literal wildcard Allow-Origin
		// per the Fetch spec, so reflect the request's own Origin — the
		// same effective behavior aiohttp_cors produces when wildcarded
		// origins are combined with allow_credentials=True.
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type submitError struct {
	Error string `json:"error"`
}

type submitAck struct {
	Individual string `json:"individual"`
	Status     string `json:"status"`
}

// handleSubmit implements FrontierState.submit_individual: decode the
// submitted wire individual, fold its reported trial count into the global
// counter, insert it into the archive, and acknowledge.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var wire genome.Wire
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil || wire.UUID == "" {
		s.log.Warn().Err(err).Msg("malformed submission")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(submitError{Error: "malformed sample was sent, not storing"})
		return
	}

	ind := genome.FromWire(wire)
	if wire.Trials != nil {
		s.mu.Lock()
		s.globalTrialCount += int64(*wire.Trials)
		s.mu.Unlock()
	}
	s.archive.UpdateFromPopulation([]genome.Individual{ind})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(submitAck{Individual: ind.UUID, Status: "successfully stored"})
}

// handleGetState implements FrontierState.get_state: the full nested
// archive, serialized as-is.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.archive.GetDictionary())
}

// GlobalTrialCount returns the running total of trials reported across all
// submissions (a supplemented feature — see SPEC_FULL.md/DESIGN.md).
func (s *Server) GlobalTrialCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalTrialCount
}

// Run starts the HTTP listener and the periodic snapshot loop, blocking
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.settings.Host, s.settings.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", httpSrv.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go s.snapshotLoop(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// snapshotLoop calls Snapshot once immediately and then every
// snapshotInterval, matching schedule_serialization. The first call wipes
// best/ and rewrites it from the archive as it stands at startup; nothing is
// read back from an existing best/ directory.
func (s *Server) snapshotLoop(ctx context.Context) {
	if err := s.Snapshot(); err != nil {
		s.log.Error().Err(err).Msg("initial snapshot failed")
	}
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				s.log.Error().Err(err).Msg("snapshot failed")
			}
		}
	}
}

// Snapshot wipes and rewrites the best/ directory with one YAML file per
// retained individual, named by its metric values followed by its uuid,
// matching TogaServer.serialize().
func (s *Server) Snapshot() error {
	bestDir := filepath.Join(s.settings.OutputDir, "best")
	if err := os.RemoveAll(bestDir); err != nil {
		return fmt.Errorf("server: clearing best dir: %w", err)
	}
	if err := os.MkdirAll(bestDir, 0o755); err != nil {
		return fmt.Errorf("server: creating best dir: %w", err)
	}

	for _, ind := range s.archive.Serialize() {
		name := snapshotFileName(ind)
		b, err := yaml.Marshal(ind)
		if err != nil {
			return fmt.Errorf("server: marshaling individual: %w", err)
		}
		if err := os.WriteFile(filepath.Join(bestDir, name), b, 0o644); err != nil {
			return fmt.Errorf("server: writing %s: %w", name, err)
		}
	}
	return nil
}

func snapshotFileName(ind map[string]interface{}) string {
	uuid, _ := ind["uuid"].(string)
	metrics, _ := ind["metrics"].(map[string]interface{})
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	name := ""
	for _, k := range keys {
		name += fmt.Sprintf("%s_%v_", k, metrics[k])
	}
	return name + "uuid_" + uuid + ".yml"
}
