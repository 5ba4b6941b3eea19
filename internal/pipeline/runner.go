package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/lukeacampbell/Stock-News-Sentiment/pkg/models"
)

// ErrUpdateInProgress is returned when a run is requested while another is
// still in flight.
var ErrUpdateInProgress = errors.New("pipeline: update already in progress")

// Status values reported by Runner.Status.
const (
	StatusUpdating = "updating"
	StatusReady    = "ready"
	StatusError    = "error"
	StatusEmpty    = "no_data"
)

// Refresher is the unit of work a Runner serializes.
type Refresher interface {
	Run(ctx context.Context, opts Options) (*Result, error)
}

// Event is delivered to completion listeners after every run.
type Event struct {
	RunID    string    `json:"run_id"`
	Options  Options   `json:"options"`
	Result   *Result   `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
	Finished time.Time `json:"finished"`
}

// Runner allows at most one refresh in flight and remembers the outcome of
// the last one.
type Runner struct {
	refresher Refresher
	ready     func(context.Context) bool
	baseCtx   context.Context

	mu         sync.Mutex
	running    bool
	lastUpdate time.Time
	lastErr    error
	lastRunID  string
	listeners  []func(Event)

	wg sync.WaitGroup
}

// NewRunner creates a runner. Background runs derive from ctx, so cancelling
// it aborts them. ready reports whether servable data exists; nil means
// "after the first successful run".
func NewRunner(ctx context.Context, refresher Refresher, ready func(context.Context) bool) *Runner {
	return &Runner{refresher: refresher, ready: ready, baseCtx: ctx}
}

// OnComplete registers a listener called after every run.
func (r *Runner) OnComplete(fn func(Event)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Trigger starts a run in the background and returns its ID.
func (r *Runner) Trigger(opts Options) (string, error) {
	id, err := r.begin()
	if err != nil {
		return "", err
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(r.baseCtx, id, opts)
	}()
	return id, nil
}

// Run executes a refresh synchronously.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	id, err := r.begin()
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, id, opts)
}

// Wait blocks until background runs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status reports the runner state for /api/status.
func (r *Runner) Status(ctx context.Context) models.Status {
	r.mu.Lock()
	s := models.Status{
		UpdateInProgress: r.running,
		LastRunID:        r.lastRunID,
	}
	if !r.lastUpdate.IsZero() {
		s.LastUpdate = r.lastUpdate.Format(time.RFC3339)
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	hasRun := !r.lastUpdate.IsZero()
	r.mu.Unlock()

	if r.ready != nil {
		s.DataReady = r.ready(ctx)
	} else {
		s.DataReady = hasRun
	}

	switch {
	case s.UpdateInProgress:
		s.Status = StatusUpdating
	case s.LastError != "":
		s.Status = StatusError
	case s.DataReady:
		s.Status = StatusReady
	default:
		s.Status = StatusEmpty
	}
	return s
}

func (r *Runner) begin() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", ErrUpdateInProgress
	}
	r.running = true
	r.lastRunID = uuid.NewString()
	return r.lastRunID, nil
}

func (r *Runner) execute(ctx context.Context, id string, opts Options) (*Result, error) {
	logger := log.Info().Str("run_id", id).Int("weeks_ahead", opts.WeeksAhead).
		Bool("sentiment", opts.RunSentiment)
	if opts.Ticker != "" {
		logger = logger.Str("ticker", opts.Ticker)
	}
	logger.Msg("refresh started")

	res, err := r.refresher.Run(ctx, opts)
	if res != nil {
		res.RunID = id
	}

	ev := Event{RunID: id, Options: opts, Result: res, Finished: time.Now()}
	r.mu.Lock()
	r.running = false
	r.lastErr = err
	if err == nil {
		r.lastUpdate = ev.Finished
	}
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	if err != nil {
		ev.Error = err.Error()
		log.Error().Str("run_id", id).Err(err).Msg("refresh failed")
	} else {
		log.Info().Str("run_id", id).Str("week", res.Week).Int("companies", res.Companies).
			Int("analyzed", res.Analyzed).Dur("duration", res.Duration).Msg("refresh complete")
	}

	for _, fn := range listeners {
		fn(ev)
	}
	return res, err
}
