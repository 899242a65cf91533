package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweep is a periodic job such as the confirmation request sweep.
type Sweep interface {
	Name() string
	Run(ctx context.Context) error
}

// SweepRecorder counts sweep runs. Implemented by metrics.Metrics.
type SweepRecorder interface {
	SweepRun(name string, err error)
}

// Scheduler runs every registered sweep, one after another, on one cron
// schedule. Overlapping runs are skipped.
type Scheduler struct {
	spec     string
	cron     *cron.Cron
	sweeps   []Sweep
	recorder SweepRecorder
	logger   *slog.Logger
}

// NewScheduler validates spec (standard five field cron syntax) and returns a
// scheduler for sweeps. recorder may be nil.
func NewScheduler(spec string, loc *time.Location, recorder SweepRecorder, logger *slog.Logger, sweeps ...Sweep) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	cronLogger := cronLogAdapter{logger: logger}
	return &Scheduler{
		spec: spec,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeps:   sweeps,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Run starts the cron loop and blocks until ctx is canceled and the running
// sweeps returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunAll(ctx) }); err != nil {
		return fmt.Errorf("schedule sweeps: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "sweeps", len(s.sweeps))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunAll runs each sweep once. A failing sweep does not stop the others.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, sweep := range s.sweeps {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		err := sweep.Run(ctx)
		if s.recorder != nil {
			s.recorder.SweepRun(sweep.Name(), err)
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep failed", "sweep", sweep.Name(), "error", err)
			continue
		}
		s.logger.InfoContext(ctx, "sweep finished", "sweep", sweep.Name(), "duration_ms", time.Since(start).Milliseconds())
	}
}

// cronLogAdapter routes cron's logging to slog.
type cronLogAdapter struct {
	logger *slog.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
