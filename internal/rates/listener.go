package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/jackc/pgx/v5"
)

const (
	notifyChannel   = "market_rates"
	listenRetryWait = 5 * time.Second
)

// notification is the payload the market_rates trigger sends.
type notification struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Listener bridges Postgres NOTIFY on market_rates into the tracker, so
// writes made outside this service (psql, other tools) show up without
// waiting for the next poll.
type Listener struct {
	dsn     string
	tracker *Tracker
	logg    *logger.Logger
}

func NewListener(dsn string, tracker *Tracker, logg *logger.Logger) *Listener {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Listener{dsn: dsn, tracker: tracker, logg: logg}
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logg.Error(ctx, "rates: listener disconnected", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenRetryWait):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{notifyChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.logg.Info(ctx, "rates: listening for market_rates notifications")
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(ctx, n.Payload)
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	var msg notification
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		l.logg.Warn(l.logg.WithField(ctx, "payload", payload), "rates: ignoring malformed notification")
		return
	}
	switch realtime.ChangeType(msg.Type) {
	case realtime.Insert, realtime.Update, realtime.Delete:
	default:
		l.logg.Warn(l.logg.WithField(ctx, "type", msg.Type), "rates: ignoring unknown notification type")
		return
	}
	// The trigger only carries the id, so every change reloads the newest row.
	if err := l.tracker.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.logg.Error(ctx, "rates: refresh after notification failed", err)
	}
}
