package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harunnryd/halo/pkg/async"
	"github.com/harunnryd/halo/pkg/config"
	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/harunnryd/halo/pkg/hooks"
	"github.com/harunnryd/halo/pkg/logging"
	"github.com/harunnryd/halo/pkg/metrics"
	"github.com/harunnryd/halo/pkg/observers"
	"github.com/harunnryd/halo/pkg/redact"
	"github.com/harunnryd/halo/pkg/resilience"
	"github.com/harunnryd/halo/pkg/runner"
	"github.com/harunnryd/halo/pkg/session"
	"github.com/harunnryd/halo/pkg/turn"
)

// wireOptions are the pieces that differ between live and simulated runs.
type wireOptions struct {
	Timer     turn.Timer
	Now       func() time.Time
	Clock     session.SteppedClock
	AsyncMode string
	Out       io.Writer
	ErrOut    io.Writer
	Listeners []turn.Listener
}

// app is one wired session plus everything that must be drained after it.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	session  *session.Session
	drainers []runner.Drainer
}

func wireApp(ctx context.Context, cfg config.Config, opts wireOptions) (*app, error) {
	if cfg.LogFormat == logging.FormatOTel {
		return nil, errorsx.Errorf(errorsx.ReasonConfigInvalid,
			"log_format: otel needs an OpenTelemetry logger provider and the halo binary installs none; use text or json")
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(opts.ErrOut, level, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	log = log.With(slog.String("environment", cfg.Environment))
	redact.SetEnabled(cfg.Privacy.RedactPII)

	id := uuid.NewString()
	a := &app{cfg: cfg, log: log}

	obs, err := a.wireObservers()
	if err != nil {
		return nil, err
	}

	built, err := hooks.NewRegistry().Build(cfg.Hooks.Provider, cfg.Hooks.Settings, hooks.Deps{
		Logger: log,
		Out:    opts.Out,
	})
	if err != nil {
		return nil, errors.Join(err, a.drain())
	}
	sp := cfg.Hooks.Speech
	if sp.MaxChars > 0 || sp.MaxSentences > 0 || len(sp.Replacements) > 0 {
		built = hooks.ShapeSpeech(built, hooks.SpeechOptions{
			Replacements: sp.Replacements,
			MaxSentences: sp.MaxSentences,
			MaxChars:     sp.MaxChars,
		})
	}
	if cfg.Hooks.Instrument {
		built = hooks.Instrument(built, obs, id)
	}

	listeners := append([]turn.Listener{observers.NewMetricsListener(obs, id)}, opts.Listeners...)
	if cfg.Observability.Tracing {
		listeners = append(listeners, observers.NewTracingListener(ctx, nil, id))
	}

	budget, err := cfg.TurnBudget()
	if err != nil {
		return nil, errors.Join(err, a.drain())
	}
	spawner := wireSpawner(ctx, cfg, opts.AsyncMode, logging.NewComponentLogger(log, "async"))
	s, err := session.New(session.Options{
		ID:        id,
		Budget:    budget,
		Timer:     opts.Timer,
		Spawner:   spawner,
		Hooks:     built,
		Listeners: listeners,
		Logger:    logging.NewComponentLogger(log, "session"),
		Now:       opts.Now,
		QueueSize: cfg.Session.QueueSize,
		Fairness:  cfg.Session.Fairness,
		Clock:     opts.Clock,
	})
	if err != nil {
		return nil, errors.Join(err, a.drain())
	}
	a.session = s
	// The session drains first so its hook work can still emit events.
	a.drainers = append([]runner.Drainer{s}, a.drainers...)
	return a, nil
}

// wireObservers builds the metrics fan-out and registers its closers.
func (a *app) wireObservers() (metrics.Observer, error) {
	cfg := a.cfg.Observability
	sinks := []metrics.Observer{
		observers.NewLoggerObserver(logging.NewComponentLogger(a.log, "metrics")),
		observers.NewPhaseLatencyObserver(logging.NewComponentLogger(a.log, "latency")),
	}
	var closers []runner.Drainer
	if cfg.ArtifactsDir != "" {
		if err := os.MkdirAll(cfg.ArtifactsDir, 0o755); err != nil {
			return nil, fmt.Errorf("artifacts dir: %w", err)
		}
		if window := a.cfg.RetentionWindow(); window > 0 {
			n, err := observers.PurgeArtifacts(cfg.ArtifactsDir, window, time.Now())
			if err != nil {
				a.log.Warn("artifacts_purge_failed", "error", err)
			} else if n > 0 {
				a.log.Info("artifacts_purged", "count", n)
			}
		}
		timeline := observers.NewTimelineObserver(cfg.ArtifactsDir)
		summary := observers.NewSummaryObserver(cfg.ArtifactsDir)
		sinks = append(sinks, timeline, summary)
		closers = append(closers, runner.DrainerFunc(timeline.Close), runner.DrainerFunc(summary.Close))
	}
	if cfg.MetricsJSONL != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.MetricsJSONL), 0o755); err != nil {
			return nil, fmt.Errorf("metrics jsonl: %w", err)
		}
		f, err := os.OpenFile(cfg.MetricsJSONL, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("metrics jsonl: %w", err)
		}
		sinks = append(sinks, metrics.NewJSONLObserver(f))
		closers = append(closers, runner.DrainerFunc(f.Close))
	}
	sampled := metrics.NewSamplingObserver(observers.NewMultiObserver(sinks...), cfg.MetricsSampleRate,
		metrics.EventStateChange, metrics.EventPhaseDuration)
	buffered := metrics.NewAsyncObserver(sampled, cfg.MetricsBuffer)
	a.drainers = append(a.drainers, runner.DrainerFunc(func() error {
		buffered.Close()
		if n := buffered.Dropped(); n > 0 {
			a.log.Warn("metrics_dropped", "count", n)
		}
		return nil
	}))
	a.drainers = append(a.drainers, closers...)
	return buffered, nil
}

func wireSpawner(ctx context.Context, cfg config.Config, mode string, log *slog.Logger) turn.Spawner {
	if mode == "" {
		mode = cfg.Async.Mode
	}
	switch mode {
	case config.AsyncInline:
		return async.NewInline(ctx, log, cfg.HookTimeout())
	case config.AsyncGo:
		return async.NewGo(ctx, log, cfg.HookTimeout())
	default:
		retry := resilience.NewRetryPolicy(cfg.Async.Retries, time.Duration(cfg.Async.RetryBackoffMs)*time.Millisecond)
		return async.NewPool(ctx, async.PoolOptions{
			Workers:   cfg.Async.Workers,
			QueueSize: cfg.Async.QueueSize,
			Timeout:   cfg.HookTimeout(),
			Retry:     &retry,
			Logger:    log,
		})
	}
}

func (a *app) drain() error {
	var errs []error
	for _, d := range a.drainers {
		if err := d.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
