package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// Keyed is implemented by payloads that belong to one aggregate, such as an
// order. The key is stored alongside the event for lookups.
type Keyed interface {
	AggregateKey() string
}

type inserter interface {
	Insert(ctx context.Context, event *models.OutboxEvent) error
}

// Writer queues events for the relay instead of publishing them inline.
type Writer struct {
	repo inserter
	logg *logger.Logger
	now  func() time.Time
}

func NewWriter(repo inserter, logg *logger.Logger) *Writer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Writer{repo: repo, logg: logg, now: time.Now}
}

// Emit stores data under eventType. It returns once the row is committed.
func (w *Writer) Emit(ctx context.Context, eventType string, data any) error {
	if eventType == "" {
		return fmt.Errorf("event type required")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	row := &models.OutboxEvent{
		EventType:  eventType,
		Payload:    payload,
		OccurredAt: w.now().UTC(),
	}
	if k, ok := data.(Keyed); ok {
		row.AggregateID = k.AggregateKey()
	}
	if err := w.repo.Insert(ctx, row); err != nil {
		return fmt.Errorf("queue %s: %w", eventType, err)
	}
	w.logg.Info(w.logg.WithFields(ctx, map[string]any{
		"event_id":     row.ID.String(),
		"event_type":   eventType,
		"aggregate_id": row.AggregateID,
	}), "outbox event queued")
	return nil
}
