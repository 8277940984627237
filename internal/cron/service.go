package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
)

const defaultTick = 30 * time.Second

// ServiceParams configure the job runner.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Tick     time.Duration
	Now      func() time.Time
}

// Service executes registered jobs whenever their interval has elapsed.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	tick     time.Duration
	now      func() time.Time
	nextRun  map[string]time.Time
}

// NewService builds a job runner. Without a lock, exclusive jobs run locally.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		tick:     tick,
		now:      now,
		nextRun:  map[string]time.Time{},
	}, nil
}

// Run starts the loop until the context is canceled. Every job runs once at
// startup.
func (s *Service) Run(ctx context.Context) error {
	s.runDue(ctx)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "job runner stopped")
			return nil
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Service) runDue(ctx context.Context) {
	now := s.now()
	for _, entry := range s.registry.Entries() {
		if ctx.Err() != nil {
			return
		}
		name := entry.Job.Name()
		planned, ok := s.nextRun[name]
		if ok && now.Before(planned) {
			continue
		}
		// Schedule from the planned slot so a late tick does not push the
		// following run a whole interval back.
		next := planned.Add(entry.Every)
		if !ok || !next.After(now) {
			next = now.Add(entry.Every)
		}
		s.nextRun[name] = next
		if entry.Exclusive && s.lock != nil {
			s.runLocked(ctx, entry.Job)
			continue
		}
		s.runJob(ctx, entry.Job)
	}
}

func (s *Service) runLocked(ctx context.Context, job Job) {
	locked, err := s.lock.Acquire(ctx, job.Name())
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "job", job.Name()), "lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(s.logg.WithField(ctx, "job", job.Name()), "job held by another instance; skipping")
		return
	}
	defer func() {
		if relErr := s.lock.Release(ctx, job.Name()); relErr != nil {
			s.logg.Error(ctx, "failed to release job lock", relErr)
		}
	}()
	s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.Observe(job.Name(), duration, err)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}
