package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/elitejewels-backend/internal/repo/repotest"
	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRate(t *testing.T, repo *Repository, gold string, at time.Time) *models.MarketRate {
	t.Helper()
	row := &models.MarketRate{GoldRate: decimal.NewNullDecimal(decimal.RequireFromString(gold)), UpdatedAt: at}
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestRefreshLoadsNewestAndClearsWhenEmpty(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	tracker := NewTracker(repo, nil)

	require.NoError(t, tracker.Refresh(ctx))
	assert.Nil(t, tracker.Snapshot().Gold)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	seedRate(t, repo, "7100", base)
	newest := seedRate(t, repo, "7150.25", base.Add(time.Hour))

	require.NoError(t, tracker.Refresh(ctx))
	snap := tracker.Snapshot()
	require.NotNil(t, snap.Gold)
	assert.True(t, snap.Gold.Equal(decimal.RequireFromString("7150.25")))
	assert.Nil(t, snap.Silver)

	require.NoError(t, repo.DB(ctx).Delete(&models.MarketRate{}, "id IS NOT NULL").Error)
	tracker.Apply(ctx, realtime.Event{Topic: realtime.TopicMarketRates, Type: realtime.Delete, Old: []byte(`{"id":"` + newest.ID.String() + `"}`)})
	assert.Nil(t, tracker.Snapshot().Gold, "delete reloads and finds nothing")
}

func TestApplyOverwritesFromEventRow(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(NewRepository(repotest.Open(t)), nil)

	evt, err := realtime.NewRowEvent(realtime.TopicMarketRates, realtime.Update, Row{
		ID:         "r1",
		SilverRate: decimal.NewNullDecimal(decimal.NewFromInt(92)),
		UpdatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	require.NoError(t, err)
	tracker.Apply(ctx, evt)

	snap := tracker.Snapshot()
	require.NotNil(t, snap.Silver)
	assert.True(t, snap.Silver.Equal(decimal.NewFromInt(92)))
	assert.Nil(t, snap.Gold)
	require.NotNil(t, snap.UpdatedAt)
}

func TestFollowReceivesPublishedRates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	tracker := NewTracker(repo, nil)
	feed := realtime.NewMemoryFeed()

	sub, err := tracker.Follow(ctx, feed)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	svc, err := NewService(repo, tracker, feed, nil)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, Input{GoldRate: "7200", SilverRate: "95.5", Note: "morning"})
	require.NoError(t, err)

	snap := svc.Current()
	require.NotNil(t, snap.Gold)
	assert.True(t, snap.Gold.Equal(decimal.NewFromInt(7200)))
	require.NotNil(t, snap.Note)
	assert.Equal(t, "morning", *snap.Note)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.SilverRate.Decimal.Equal(decimal.RequireFromString("95.5")))
}

func TestPublishValidates(t *testing.T) {
	repo := NewRepository(repotest.Open(t))
	svc, err := NewService(repo, NewTracker(repo, nil), nil, nil)
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), Input{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Publish(context.Background(), Input{GoldRate: "abc", SilverRate: "-1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "gold_rate")
	assert.Contains(t, details, "silver_rate")

	snap, err := svc.Publish(context.Background(), Input{SilverRate: "90"})
	require.NoError(t, err)
	assert.True(t, svc.Current().Silver.Equal(decimal.NewFromInt(90)), "without a feed the tracker is updated directly")
	assert.NotNil(t, snap.UpdatedAt)
}

type failingLatest struct{}

func (failingLatest) Latest(context.Context) (*models.MarketRate, error) {
	return nil, errors.New("db down")
}

func TestRefreshErrorKeepsSnapshot(t *testing.T) {
	tracker := NewTracker(failingLatest{}, nil)
	gold := decimal.NewFromInt(1)
	tracker.set(Snapshot{Gold: &gold})
	assert.Error(t, tracker.Refresh(context.Background()))
	assert.NotNil(t, tracker.Snapshot().Gold)
}

func TestPruneKeepsNewest(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repotest.Open(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRate(t, repo, "7000", base.Add(time.Duration(i)*time.Hour))
	}
	removed, err := repo.Prune(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.UpdatedAt.Equal(base.Add(4*time.Hour)))
}

func TestListenerHandleIgnoresBadPayloads(t *testing.T) {
	tracker := NewTracker(failingLatest{}, nil)
	l := NewListener("", tracker, nil)
	l.handle(context.Background(), "not json")
	l.handle(context.Background(), `{"type":"TRUNCATE"}`)
	l.handle(context.Background(), `{"type":"INSERT","id":"x"}`)
}
