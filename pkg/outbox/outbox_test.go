package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/elitejewels-backend/internal/repo/repotest"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
)

type placed struct {
	OrderID string `json:"order_id"`
}

func (p placed) AggregateKey() string { return p.OrderID }

type sent struct {
	id, eventType string
	occurredAt    time.Time
	data          string
}

type recordingSink struct {
	sent []sent
	err  error
}

func (s *recordingSink) EmitAt(_ context.Context, eventID, eventType string, occurredAt time.Time, data any) error {
	if s.err != nil {
		return s.err
	}
	raw, _ := data.(json.RawMessage)
	s.sent = append(s.sent, sent{id: eventID, eventType: eventType, occurredAt: occurredAt, data: string(raw)})
	return nil
}

func newRelay(t *testing.T, repo *Repository, sink Sink, maxAttempts int, now time.Time) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{Store: repo, Sink: sink, MaxAttempts: maxAttempts, Now: func() time.Time { return now }})
	require.NoError(t, err)
	return relay
}

func TestWriterQueuesKeyedEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	w := NewWriter(repo, nil)
	at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return at }

	require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: "ORD42"}))
	require.Error(t, w.Emit(ctx, "", placed{}))

	rows, err := repo.FetchPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "order.placed", rows[0].EventType)
	assert.Equal(t, "ORD42", rows[0].AggregateID)
	assert.JSONEq(t, `{"order_id":"ORD42"}`, string(rows[0].Payload))
	assert.True(t, rows[0].OccurredAt.Equal(at))
}

func TestRelayPublishesAndMarksRows(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	w := NewWriter(repo, nil)
	require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: "ORD1"}))
	require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: "ORD2"}))

	sink := &recordingSink{}
	now := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	n, err := newRelay(t, repo, sink, 3, now).Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sink.sent, 2)
	assert.NotEmpty(t, sink.sent[0].id)
	assert.NotEqual(t, sink.sent[0].id, sink.sent[1].id)

	pending, err := repo.FetchPending(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = newRelay(t, repo, sink, 3, now).Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "published rows are not sent twice")
}

func TestRelayRetriesUntilMaxAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	require.NoError(t, NewWriter(repo, nil).Emit(ctx, "order.placed", placed{OrderID: "ORD9"}))

	sink := &recordingSink{err: errors.New("broker down")}
	relay := newRelay(t, repo, sink, 2, time.Now())
	for i := 0; i < 2; i++ {
		n, err := relay.Drain(ctx)
		require.Error(t, err)
		assert.Zero(t, n)
	}

	var row models.OutboxEvent
	require.NoError(t, repo.db.First(&row).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker down", *row.LastError)
	assert.Nil(t, row.PublishedAt)

	sink.err = nil
	n, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "exhausted rows are left for inspection")
	assert.Empty(t, sink.sent)
}

func TestRelayCombinesRowErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	w := NewWriter(repo, nil)
	require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: "X1"}))
	require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: "X2"}))

	_, err := newRelay(t, repo, &recordingSink{err: errors.New("timeout")}, 5, time.Now()).Drain(ctx)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestPrunePublishedKeepsPendingAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	w := NewWriter(repo, nil)
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, w.Emit(ctx, "order.placed", placed{OrderID: id}))
	}
	rows, err := repo.FetchPending(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkPublished(ctx, rows[0].ID, base))
	require.NoError(t, repo.MarkPublished(ctx, rows[1].ID, base.Add(48*time.Hour)))

	removed, err := repo.PrunePublished(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var left int64
	require.NoError(t, repo.db.Model(&models.OutboxEvent{}).Count(&left).Error)
	assert.EqualValues(t, 2, left)
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	_, err := NewRelay(RelayParams{Sink: &recordingSink{}})
	assert.Error(t, err)
	_, err = NewRelay(RelayParams{Store: NewRepository(nil)})
	assert.Error(t, err)
}
