package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/shopspring/decimal"
)

// Snapshot is the rate pair currently shown to shoppers.
type Snapshot struct {
	Gold      *decimal.Decimal `json:"gold_rate"`
	Silver    *decimal.Decimal `json:"silver_rate"`
	Note      *string          `json:"note,omitempty"`
	UpdatedAt *time.Time       `json:"updated_at"`
}

// Row is the market_rates row as carried on the change feed.
type Row struct {
	ID         string              `json:"id"`
	GoldRate   decimal.NullDecimal `json:"gold_rate"`
	SilverRate decimal.NullDecimal `json:"silver_rate"`
	Note       *string             `json:"note,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func rowOf(m models.MarketRate) Row {
	return Row{ID: m.ID.String(), GoldRate: m.GoldRate, SilverRate: m.SilverRate, Note: m.Note, UpdatedAt: m.UpdatedAt}
}

func (r Row) snapshot() Snapshot {
	s := Snapshot{Note: r.Note}
	if r.GoldRate.Valid {
		g := r.GoldRate.Decimal
		s.Gold = &g
	}
	if r.SilverRate.Valid {
		v := r.SilverRate.Decimal
		s.Silver = &v
	}
	if !r.UpdatedAt.IsZero() {
		at := r.UpdatedAt
		s.UpdatedAt = &at
	}
	return s
}

type latestReader interface {
	Latest(ctx context.Context) (*models.MarketRate, error)
}

// Tracker holds the live rates. Polled refreshes and pushed change events
// both overwrite the same snapshot; whichever lands last wins.
type Tracker struct {
	repo latestReader
	logg *logger.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker(repo latestReader, logg *logger.Logger) *Tracker {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Tracker{repo: repo, logg: logg}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Refresh reloads the newest row. An empty table clears the snapshot.
func (t *Tracker) Refresh(ctx context.Context) error {
	row, err := t.repo.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest rates: %w", err)
	}
	next := Snapshot{}
	if row != nil {
		next = rowOf(*row).snapshot()
	}
	t.set(next)
	return nil
}

// Apply folds one change event into the snapshot. Inserts and updates
// overwrite from the event row; deletes trigger a reload.
func (t *Tracker) Apply(ctx context.Context, evt realtime.Event) {
	switch evt.Type {
	case realtime.Insert, realtime.Update:
		var row Row
		if len(evt.New) == 0 || json.Unmarshal(evt.New, &row) != nil {
			t.logg.Warn(ctx, "rates: undecodable change event, reloading")
			t.refreshLogged(ctx)
			return
		}
		t.set(row.snapshot())
	case realtime.Delete:
		t.refreshLogged(ctx)
	}
}

// Follow subscribes the tracker to market rate changes on feed.
func (t *Tracker) Follow(ctx context.Context, feed realtime.Feed) (realtime.Subscription, error) {
	return feed.Subscribe(ctx, realtime.TopicMarketRates, t.Apply)
}

func (t *Tracker) refreshLogged(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil {
		t.logg.Error(ctx, "rates: refresh failed", err)
	}
}

func (t *Tracker) set(s Snapshot) {
	t.mu.Lock()
	t.snap = s
	t.mu.Unlock()
}
