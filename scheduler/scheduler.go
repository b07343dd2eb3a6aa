// Package scheduler triggers a daily catalog ingestion run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aluiziolira/go-shop-catalog/config"
	"github.com/aluiziolira/go-shop-catalog/models"
	"github.com/aluiziolira/go-shop-catalog/pipeline"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// Scheduler fires Runner once a day at a fixed wall-clock time.
type Scheduler struct {
	runner   Runner
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	loc      *time.Location

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// CronSpec converts an HH:MM time into a five-field cron expression.
func CronSpec(dailyTime string) (string, error) {
	hour, minute, err := config.ParseDailyTime(dailyTime)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// New schedules runner at dailyTime in loc. A nil loc means UTC.
func New(runner Runner, dailyTime string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	spec, err := CronSpec(dailyTime)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner:   runner,
		cron:     c,
		schedule: schedule,
		spec:     spec,
		loc:      loc,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.Schedule(schedule, cron.FuncJob(s.Trigger))
	return s, nil
}

// Spec returns the cron expression in use.
func (s *Scheduler) Spec() string {
	return s.spec
}

// NextAfter returns the first scheduled run strictly after t.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Start begins firing runs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	slog.Info("daily ingestion scheduled",
		slog.String("cron", s.spec),
		slog.String("tz", s.loc.String()),
		slog.Time("next_run", s.NextAfter(time.Now())),
	)
}

// Stop cancels an in-flight scheduled run and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// Trigger performs one scheduled run. Overlap with a manual run is logged
// and skipped.
func (s *Scheduler) Trigger() {
	if s.ctx.Err() != nil {
		return
	}
	slog.Info("scheduled ingestion starting")
	result, err := s.runner.Run(s.ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		slog.Warn("scheduled ingestion skipped, a run is already in progress")
	case err != nil:
		state := models.RunFailed
		if result != nil {
			state = result.State
		}
		slog.Error("scheduled ingestion failed",
			slog.String("state", string(state)),
			slog.Any("error", err),
		)
	}
}

// cronLogger routes cron's internal logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
