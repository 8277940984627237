package cron

import (
	"context"
	"errors"
	"time"
)

type outboxDrainer interface {
	Drain(ctx context.Context) (int, error)
}

// OutboxPublishJob relays queued domain events to Pub/Sub.
type OutboxPublishJob struct {
	relay outboxDrainer
}

func NewOutboxPublishJob(relay outboxDrainer) (*OutboxPublishJob, error) {
	if relay == nil {
		return nil, errors.New("outbox relay required")
	}
	return &OutboxPublishJob{relay: relay}, nil
}

func (j *OutboxPublishJob) Name() string { return "outbox-publish" }

func (j *OutboxPublishJob) Run(ctx context.Context) error {
	_, err := j.relay.Drain(ctx)
	return err
}

type outboxPruner interface {
	PrunePublished(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetentionJob deletes published events older than the retention window.
type OutboxRetentionJob struct {
	repo      outboxPruner
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(repo outboxPruner, retention time.Duration) (*OutboxRetentionJob, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if retention <= 0 {
		return nil, errors.New("outbox retention must be positive")
	}
	return &OutboxRetentionJob{repo: repo, retention: retention, now: time.Now}, nil
}

func (j *OutboxRetentionJob) Name() string { return "outbox-retention" }

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	_, err := j.repo.PrunePublished(ctx, j.now().Add(-j.retention))
	return err
}
