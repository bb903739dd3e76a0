package refresher

import (
	"errors"
	"log/slog"
	"time"
)

// Observer receives cycle outcomes for metrics.
type Observer interface {
	Observe(ok bool, stage string, finished time.Time, took time.Duration)
}

// LogSink logs every result and forwards it to an optional Observer.
type LogSink struct {
	Logger  *slog.Logger
	Path    string
	Metrics Observer
}

func (s LogSink) Record(res Result) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	finished := res.Started.Add(res.Duration)

	if res.OK() {
		logger.Info("Updated kubeconfig with new token",
			"cycle_id", res.CycleID,
			"path", s.Path,
			"duration", res.Duration,
		)
		if s.Metrics != nil {
			s.Metrics.Observe(true, "", finished, res.Duration)
		}
		return
	}

	stage := "unknown"
	var rerr *RefreshError
	if errors.As(res.Err, &rerr) {
		stage = string(rerr.Stage)
	}
	logger.Error("Failed to refresh kubeconfig",
		"cycle_id", res.CycleID,
		"stage", stage,
		"path", s.Path,
		"err", res.Err,
	)
	if s.Metrics != nil {
		s.Metrics.Observe(false, stage, finished, res.Duration)
	}
}
