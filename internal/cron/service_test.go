package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeLock struct {
	held     map[string]bool
	acquires int
}

func (f *fakeLock) Acquire(_ context.Context, name string) (bool, error) {
	f.acquires++
	if f.held[name] {
		return false, nil
	}
	f.held[name] = true
	return true, nil
}

func (f *fakeLock) Release(_ context.Context, name string) error {
	delete(f.held, name)
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunDueRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	bad := &testJob{name: "fail", err: errors.New("boom")}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(Entry{Job: ok, Every: time.Second}, Entry{Job: bad, Every: time.Second}),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runDue(context.Background())
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", ok.runs, bad.runs)
	}
}

func TestRunDueHonoursIntervals(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fast := &testJob{name: "fast"}
	slow := &testJob{name: "slow"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(Entry{Job: fast, Every: 30 * time.Second}, Entry{Job: slow, Every: time.Hour}),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	service.runDue(ctx)
	now = now.Add(30 * time.Second)
	service.runDue(ctx)
	now = now.Add(10 * time.Second)
	service.runDue(ctx)
	if fast.runs != 2 {
		t.Fatalf("expected fast job to run twice, ran %d", fast.runs)
	}
	if slow.runs != 1 {
		t.Fatalf("expected slow job to run once, ran %d", slow.runs)
	}
}

func TestRunDueKeepsScheduleAfterLateTick(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	start := now
	job := &testJob{name: "outbox-publish"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(Entry{Job: job, Every: 5 * time.Second}),
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	for _, at := range []time.Duration{0, 5200 * time.Millisecond, 10 * time.Second, 15 * time.Second} {
		now = start.Add(at)
		service.runDue(ctx)
	}
	if job.runs != 4 {
		t.Fatalf("expected a run on every tick despite the late one, ran %d", job.runs)
	}

	now = start.Add(time.Minute)
	service.runDue(ctx)
	now = now.Add(time.Second)
	service.runDue(ctx)
	if job.runs != 5 {
		t.Fatalf("expected one catch-up run after a long gap, ran %d", job.runs)
	}
}

func TestExclusiveJobSkipsWhenLockHeld(t *testing.T) {
	lock := &fakeLock{held: map[string]bool{"prune": true}}
	prune := &testJob{name: "prune"}
	refresh := &testJob{name: "refresh"}
	service, err := NewService(ServiceParams{
		Logger: logger.Nop(),
		Lock:   lock,
		Registry: NewRegistry(
			Entry{Job: prune, Every: time.Hour, Exclusive: true},
			Entry{Job: refresh, Every: time.Second},
		),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runDue(context.Background())
	if prune.runs != 0 {
		t.Fatalf("expected exclusive job to be skipped")
	}
	if refresh.runs != 1 {
		t.Fatalf("expected local job to run")
	}
	if lock.acquires != 1 {
		t.Fatalf("expected one lock attempt, got %d", lock.acquires)
	}
}

func TestRunJobRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Metrics:  metrics.NewJobMetrics(reg),
		Registry: NewRegistry(Entry{Job: &testJob{name: "market-rates-refresh", err: errors.New("db down")}, Every: time.Second}),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runDue(context.Background())
	if got := testutil.CollectAndCount(reg, "elitejewels_job_runs_total"); got != 1 {
		t.Fatalf("expected one job run series, got %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "refresh"}
	service, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: NewRegistry(Entry{Job: job, Every: time.Second}), Tick: time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

type countingPruner struct{ keep int }

func (c *countingPruner) Prune(_ context.Context, keep int) (int64, error) {
	c.keep = keep
	return 0, nil
}

func TestRatesPruneJobClampsKeep(t *testing.T) {
	pruner := &countingPruner{}
	job, err := NewRatesPruneJob(pruner, 0)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pruner.keep != 1 {
		t.Fatalf("expected keep=1, got %d", pruner.keep)
	}
	if _, err := NewRatesRefreshJob(nil); err == nil {
		t.Fatalf("expected error for missing tracker")
	}
}

type stubDrainer struct {
	calls int
	err   error
}

func (s *stubDrainer) Drain(context.Context) (int, error) {
	s.calls++
	return 0, s.err
}

type cutoffRecorder struct {
	cutoff time.Time
}

func (c *cutoffRecorder) PrunePublished(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return 0, nil
}

func TestOutboxJobs(t *testing.T) {
	drainer := &stubDrainer{err: errors.New("broker down")}
	publish, err := NewOutboxPublishJob(drainer)
	if err != nil {
		t.Fatalf("construct publish job: %v", err)
	}
	if err := publish.Run(context.Background()); err == nil {
		t.Fatalf("expected drain error to surface")
	}
	if drainer.calls != 1 {
		t.Fatalf("expected one drain, got %d", drainer.calls)
	}

	pruner := &cutoffRecorder{}
	retention, err := NewOutboxRetentionJob(pruner, 48*time.Hour)
	if err != nil {
		t.Fatalf("construct retention job: %v", err)
	}
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	retention.now = func() time.Time { return now }
	if err := retention.Run(context.Background()); err != nil {
		t.Fatalf("run retention: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !pruner.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, pruner.cutoff)
	}

	if _, err := NewOutboxRetentionJob(pruner, 0); err == nil {
		t.Fatalf("expected error for zero retention")
	}
	if _, err := NewOutboxPublishJob(nil); err == nil {
		t.Fatalf("expected error for missing relay")
	}
}
