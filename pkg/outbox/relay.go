package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	defaultSendTimeout = 15 * time.Second
)

type relayStore interface {
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error) error
}

// Sink delivers one stored event to the broker.
type Sink interface {
	EmitAt(ctx context.Context, eventID, eventType string, occurredAt time.Time, data any) error
}

type RelayParams struct {
	Store       relayStore
	Sink        Sink
	BatchSize   int
	MaxAttempts int
	SendTimeout time.Duration
	Logger      *logger.Logger
	Now         func() time.Time
}

// Relay moves pending rows to the sink. Rows that keep failing stop being
// picked up once they reach MaxAttempts and stay in the table for inspection.
type Relay struct {
	store       relayStore
	sink        Sink
	batchSize   int
	maxAttempts int
	sendTimeout time.Duration
	logg        *logger.Logger
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	if p.Store == nil {
		return nil, errors.New("outbox store required")
	}
	if p.Sink == nil {
		return nil, errors.New("outbox sink required")
	}
	if p.BatchSize <= 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.SendTimeout <= 0 {
		p.SendTimeout = defaultSendTimeout
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Relay{
		store:       p.Store,
		sink:        p.Sink,
		batchSize:   p.BatchSize,
		maxAttempts: p.MaxAttempts,
		sendTimeout: p.SendTimeout,
		logg:        p.Logger,
		now:         p.Now,
	}, nil
}

// Drain publishes one batch and reports how many rows were delivered. The
// returned error combines every row that failed.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	rows, err := r.store.FetchPending(ctx, r.batchSize, r.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("fetch pending events: %w", err)
	}

	published := 0
	var errs []error
	for _, row := range rows {
		if ctx.Err() != nil {
			return published, multierr.Append(multierr.Combine(errs...), ctx.Err())
		}
		if err := r.send(ctx, row); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", row.ID, err))
			r.fail(ctx, row, err)
			continue
		}
		if err := r.store.MarkPublished(ctx, row.ID, r.now()); err != nil {
			// Already delivered; the retry carries the same event_id.
			r.logg.Error(r.rowContext(ctx, row), "outbox: mark published failed", err)
			errs = append(errs, fmt.Errorf("mark %s published: %w", row.ID, err))
			continue
		}
		published++
	}
	return published, multierr.Combine(errs...)
}

func (r *Relay) send(ctx context.Context, row models.OutboxEvent) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.sink.EmitAt(sendCtx, row.ID.String(), row.EventType, row.OccurredAt, row.Payload)
}

func (r *Relay) fail(ctx context.Context, row models.OutboxEvent, cause error) {
	logCtx := r.rowContext(ctx, row)
	if err := r.store.MarkFailed(ctx, row.ID, cause); err != nil {
		r.logg.Error(logCtx, "outbox: recording failure failed", err)
	}
	if row.AttemptCount+1 >= r.maxAttempts {
		r.logg.Error(logCtx, "outbox: giving up on event", cause)
		return
	}
	r.logg.Warn(r.logg.WithField(logCtx, "error", cause.Error()), "outbox: publish failed, will retry")
}

func (r *Relay) rowContext(ctx context.Context, row models.OutboxEvent) context.Context {
	return r.logg.WithFields(ctx, map[string]any{
		"event_id":      row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID,
		"attempt_count": row.AttemptCount,
	})
}
