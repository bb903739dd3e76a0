package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/gke-token-sidecar/internal/config"
)

// State is the refresher lifecycle state.
type State int32

const (
	Uninitialized State = iota
	Refreshing
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Refreshing:
		return "refreshing"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Stage names the step of a cycle that failed.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageWrite Stage = "write"
)

// RefreshError is the failure of one cycle. It never stops the loop.
type RefreshError struct {
	Stage Stage
	Err   error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.Stage, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Result is the outcome of one cycle.
type Result struct {
	CycleID  string
	Started  time.Time
	Duration time.Duration
	// Err is nil on success, otherwise a *RefreshError.
	Err error
}

// OK reports whether the cycle wrote a fresh kubeconfig.
func (r Result) OK() bool { return r.Err == nil }

// TokenSource returns a fresh bearer token.
type TokenSource interface {
	Fetch(ctx context.Context) (string, error)
}

// ConfigWriter persists the kubeconfig for the given values.
type ConfigWriter interface {
	Write(endpoint, caData, token, path string) error
}

// Sink consumes every cycle result. It is the only place outcomes are
// logged or counted.
type Sink interface {
	Record(Result)
}

// Refresher runs the fetch-then-write cycle on a fixed interval.
type Refresher struct {
	cfg    config.Config
	tokens TokenSource
	writer ConfigWriter
	sink   Sink

	trigger chan struct{}
	state   atomic.Int32

	// injectable for tests
	after func(time.Duration) <-chan time.Time
	now   func() time.Time
	newID func() string
}

// New returns a Refresher for cfg. cfg is copied and never modified.
func New(cfg config.Config, tokens TokenSource, writer ConfigWriter, sink Sink) *Refresher {
	return &Refresher{
		cfg:     cfg,
		tokens:  tokens,
		writer:  writer,
		sink:    sink,
		trigger: make(chan struct{}, 1),
		after:   time.After,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// State returns the current lifecycle state.
func (r *Refresher) State() State {
	return State(r.state.Load())
}

// Trigger asks for an extra cycle without waiting for the interval.
// Triggers that arrive while one is already pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run validates the required settings, then runs a cycle immediately and
// after every interval until ctx is cancelled. Cycle failures go to the sink
// and never end the loop. The only error returned is a
// *config.ConfigurationError, before any cycle runs.
func (r *Refresher) Run(ctx context.Context) error {
	if err := checkRequired(r.cfg); err != nil {
		r.state.Store(int32(Stopped))
		return err
	}

	r.state.Store(int32(Refreshing))
	defer r.state.Store(int32(Stopped))

	slog.Info("refresher: started",
		"endpoint", r.cfg.Endpoint,
		"path", r.cfg.KubeconfigPath,
		"interval", r.cfg.Interval,
	)

	for {
		res := r.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		r.sink.Record(res)

		select {
		case <-ctx.Done():
			return nil
		case <-r.after(r.cfg.Interval):
		case <-r.trigger:
			slog.Info("refresher: early refresh requested", "path", r.cfg.KubeconfigPath)
		}
	}
}

// RunOnce performs a single fetch-then-write cycle. A failed fetch skips the write.
func (r *Refresher) RunOnce(ctx context.Context) Result {
	res := Result{CycleID: r.newID(), Started: r.now()}

	tok, err := r.tokens.Fetch(ctx)
	if err != nil {
		res.Err = &RefreshError{Stage: StageFetch, Err: err}
	} else if err := r.writer.Write(r.cfg.Endpoint, r.cfg.CAData, tok, r.cfg.KubeconfigPath); err != nil {
		res.Err = &RefreshError{Stage: StageWrite, Err: err}
	}

	res.Duration = r.now().Sub(res.Started)
	return res
}

func checkRequired(cfg config.Config) error {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, config.EnvEndpoint)
	}
	if cfg.CAData == "" {
		missing = append(missing, config.EnvCAData)
	}
	if len(missing) > 0 {
		return &config.ConfigurationError{Missing: missing}
	}
	return nil
}
