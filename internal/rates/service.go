package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/shopspring/decimal"
)

type rateWriter interface {
	Create(ctx context.Context, row *models.MarketRate) error
}

// Input is the admin rate form. Empty values leave that metal unpriced.
type Input struct {
	GoldRate   string `json:"gold_rate"`
	SilverRate string `json:"silver_rate"`
	Note       string `json:"note"`
}

// Service publishes new rates and serves the live snapshot.
type Service struct {
	writer  rateWriter
	tracker *Tracker
	feed    realtime.Feed
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(writer rateWriter, tracker *Tracker, feed realtime.Feed, logg *logger.Logger) (*Service, error) {
	if writer == nil || tracker == nil {
		return nil, fmt.Errorf("rates repository and tracker are required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{writer: writer, tracker: tracker, feed: feed, logg: logg, now: time.Now}, nil
}

func (s *Service) Current() Snapshot {
	return s.tracker.Snapshot()
}

// Publish stores a new rate row and announces it on the change feed. When the
// feed is unavailable the local tracker is updated directly.
func (s *Service) Publish(ctx context.Context, in Input) (Snapshot, error) {
	gold, goldErr := optionalRate(in.GoldRate)
	silver, silverErr := optionalRate(in.SilverRate)
	problems := map[string]string{}
	if goldErr != nil {
		problems["gold_rate"] = goldErr.Error()
	}
	if silverErr != nil {
		problems["silver_rate"] = silverErr.Error()
	}
	if len(problems) == 0 && !gold.Valid && !silver.Valid {
		problems["gold_rate"] = "set at least one rate"
	}
	if len(problems) > 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid rates").WithDetails(problems)
	}

	row := &models.MarketRate{GoldRate: gold, SilverRate: silver, UpdatedAt: s.now().UTC()}
	if note := strings.TrimSpace(in.Note); note != "" {
		row.Note = &note
	}
	if err := s.writer.Create(ctx, row); err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store rates")
	}

	evt, err := realtime.NewRowEvent(realtime.TopicMarketRates, realtime.Insert, rowOf(*row), nil)
	if err == nil && s.feed != nil {
		err = s.feed.Publish(ctx, evt)
	}
	if err != nil || s.feed == nil {
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "rates: change event not published")
		}
		s.tracker.set(rowOf(*row).snapshot())
	}
	return rowOf(*row).snapshot(), nil
}

func optionalRate(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("must be numeric")
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, fmt.Errorf("must not be negative")
	}
	return decimal.NewNullDecimal(d), nil
}
