package cron

import (
	"context"
	"errors"
)

type ratesRefresher interface {
	Refresh(ctx context.Context) error
}

// RatesRefreshJob reloads the newest market rate row into the live snapshot.
type RatesRefreshJob struct {
	tracker ratesRefresher
}

func NewRatesRefreshJob(tracker ratesRefresher) (*RatesRefreshJob, error) {
	if tracker == nil {
		return nil, errors.New("rates tracker required")
	}
	return &RatesRefreshJob{tracker: tracker}, nil
}

func (j *RatesRefreshJob) Name() string { return "market-rates-refresh" }

func (j *RatesRefreshJob) Run(ctx context.Context) error {
	return j.tracker.Refresh(ctx)
}

type ratesPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// RatesPruneJob trims old market rate history.
type RatesPruneJob struct {
	repo ratesPruner
	keep int
}

func NewRatesPruneJob(repo ratesPruner, keep int) (*RatesPruneJob, error) {
	if repo == nil {
		return nil, errors.New("rates repository required")
	}
	if keep < 1 {
		keep = 1
	}
	return &RatesPruneJob{repo: repo, keep: keep}, nil
}

func (j *RatesPruneJob) Name() string { return "market-rates-prune" }

func (j *RatesPruneJob) Run(ctx context.Context) error {
	_, err := j.repo.Prune(ctx, j.keep)
	return err
}
