// Package client implements the producer/worker-pool evaluation pipeline
// (C7, spec.md §4.7), grounded on original_source/toga/client.py.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/JPLMLIA/TOGA/internal/archive"
	"github.com/JPLMLIA/TOGA/internal/config"
	"github.com/JPLMLIA/TOGA/internal/evalrun"
	"github.com/JPLMLIA/TOGA/internal/genome"
	"github.com/JPLMLIA/TOGA/internal/population"
)

// producerInterval/syncInterval match client.py's literal
// await asyncio.sleep(0.2) (heartbeat) and await asyncio.sleep(360)
// (request_server_state).
const (
	producerInterval = 200 * time.Millisecond
	syncInterval     = 360 * time.Second
)

// Client drives the bounded producer/worker-pool pipeline: a channel of
// capacity Q (OverfillExecutorLimit) holds individuals waiting to run, and P
// (ProcessPoolSize) worker goroutines continuously drain it — together
// bounding total in-flight work at P+Q, matching heartbeat()'s
// "len(executor._pending_work_items) < process_pool_size +
// overfill_executor_limit" check without needing to track that count
// separately.
type Client struct {
	settings *config.Settings
	sampler  *population.Sampler
	local    *archive.DataDict
	log      zerolog.Logger

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	baseURL    string

	queue chan genome.Individual

	trialsMu sync.Mutex
	trials   int
}

// New constructs a Client. local is the client's advisory copy of the
// archive, refreshed on each sync tick and updated locally by every scored
// run (used to decide whether a result is a "high performer" worth
// submitting).
func New(settings *config.Settings, sampler *population.Sampler, local *archive.DataDict, log zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "toga-server",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
	})
	return &Client{
		settings:   settings,
		sampler:    sampler,
		local:      local,
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		baseURL:    fmt.Sprintf("http://%s:%d", settings.Host, settings.Port),
		queue:      make(chan genome.Individual, settings.OverfillExecutorLimit),
	}
}

// Run blocks until ctx is cancelled, running the producer, sync, and P
// worker goroutines.
func (c *Client) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.produce(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.syncLoop(ctx)
	}()

	for i := 0; i < c.settings.ProcessPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx)
		}()
	}

	wg.Wait()
	return nil
}

// produce fills the queue one individual at a time, matching heartbeat()'s
// "if not population.full(): population.put(create_individual())" branch.
func (c *Client) produce(ctx context.Context) {
	ticker := time.NewTicker(producerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ind, err := c.sampler.CreateIndividual()
			if err != nil {
				c.log.Error().Err(err).Msg("creating individual")
				continue
			}
			select {
			case c.queue <- ind:
			default:
				// queue full, matching population.full() — drop this tick's draw
			}
		}
	}
}

// work pulls individuals off the queue and runs them until ctx is
// cancelled, matching the run_sample tasks heartbeat() schedules.
func (c *Client) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ind := <-c.queue:
			c.runSample(ctx, ind)
		}
	}
}

// runSample runs one individual's evaluator, scores it against the local
// archive, and submits it if it is a high performer. All failures here are
// logged and swallowed, matching client.py's
// "except Exception as e: print(e); pass".
func (c *Client) runSample(ctx context.Context, ind genome.Individual) {
	w := evalrun.New(c.settings, ind)
	if err := w.Run(ctx); err != nil {
		c.log.Error().Err(err).Str("uuid", ind.UUID).Msg("evaluator run failed")
	}

	values, err := w.ReadMetrics()
	if err != nil {
		c.log.Error().Err(err).Str("uuid", ind.UUID).Msg("reading metrics")
	}
	ind.Metrics = genome.ComposeMetrics(values, c.settings.OptimizationMetrics, c.settings.OptimizationStrategy)
	w.Cleanup()

	c.trialsMu.Lock()
	c.trials++
	trials := c.trials
	c.trialsMu.Unlock()

	results := c.local.UpdateFromPopulation([]genome.Individual{ind})
	highPerformer := false
	for _, r := range results {
		if r.UUID == ind.UUID && r.Retained {
			highPerformer = true
		}
	}
	if !highPerformer {
		return
	}

	c.trialsMu.Lock()
	c.trials = 0
	c.trialsMu.Unlock()
	ind.Trials = &trials

	if err := c.submitResults(ctx, ind); err != nil {
		c.log.Error().Err(err).Str("uuid", ind.UUID).Msg("submitting results")
	}
}

// submitResults performs PUT /submit, matching TogaClient.submit_results.
func (c *Client) submitResults(ctx context.Context, ind genome.Individual) error {
	body, err := json.Marshal(ind.ToWire())
	if err != nil {
		return fmt.Errorf("client: marshaling individual: %w", err)
	}
	_, err = c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/submit", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("client: submit returned %s", resp.Status)
		}
		return nil, nil
	})
	return err
}

// syncLoop periodically pulls the server's full archive state and merges it
// into the local archive, matching request_server_state().
func (c *Client) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.synchronizeState(ctx); err != nil {
				c.log.Error().Err(err).Msg("synchronizing state")
			}
		}
	}
}

func (c *Client) synchronizeState(ctx context.Context) error {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_state", nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		var state map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return nil, err
		}
		return state, nil
	})
	if err != nil {
		return err
	}
	state, _ := v.(map[string]interface{})
	if state != nil {
		c.local.DeepUpdate(state)
	}
	return nil
}
