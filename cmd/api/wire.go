package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/elitejewels-backend/api/controllers"
	"github.com/angelmondragon/elitejewels-backend/internal/auth"
	"github.com/angelmondragon/elitejewels-backend/internal/cart"
	"github.com/angelmondragon/elitejewels-backend/internal/catalog"
	"github.com/angelmondragon/elitejewels-backend/internal/cron"
	"github.com/angelmondragon/elitejewels-backend/internal/favorites"
	"github.com/angelmondragon/elitejewels-backend/internal/identity"
	"github.com/angelmondragon/elitejewels-backend/internal/media"
	"github.com/angelmondragon/elitejewels-backend/internal/orders"
	"github.com/angelmondragon/elitejewels-backend/internal/otp"
	"github.com/angelmondragon/elitejewels-backend/internal/profiles"
	"github.com/angelmondragon/elitejewels-backend/internal/rates"
	"github.com/angelmondragon/elitejewels-backend/internal/users"
	pkgAuth "github.com/angelmondragon/elitejewels-backend/pkg/auth"
	"github.com/angelmondragon/elitejewels-backend/pkg/auth/session"
	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/angelmondragon/elitejewels-backend/pkg/db"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/metrics"
	"github.com/angelmondragon/elitejewels-backend/pkg/outbox"
	"github.com/angelmondragon/elitejewels-backend/pkg/pubsub"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/angelmondragon/elitejewels-backend/pkg/redis"
	"github.com/angelmondragon/elitejewels-backend/pkg/storage/gcs"
)

// application holds the wired services plus the loops that run beside the
// HTTP server.
type application struct {
	storefront    *metrics.Storefront
	health        map[string]controllers.Pinger
	sessions      *session.Manager
	auth          *auth.Service
	sessionStores controllers.SessionStoreFactory
	catalog       *catalog.Service
	cart          *cart.Service
	favorites     *favorites.Service
	orders        *orders.Service
	rates         *rates.Service

	background []func(context.Context) error
	closers    []func() error
}

func (a *application) close(logg *logger.Logger) {
	if a.orders != nil {
		a.orders.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logg.Error(context.Background(), "error closing dependency", err)
		}
	}
}

func wire(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (*application, error) {
	app := &application{
		storefront: metrics.NewStorefront(reg),
		health:     map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
	}
	gormDB := dbClient.DB()

	var feed realtime.Feed = realtime.NewMemoryFeed()
	if cfg.FeatureFlags.RedisFeed {
		feed = realtime.NewRedisFeed(redisClient, logg)
	}

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}
	app.sessions = sessions

	codes, err := otp.NewService(otp.ServiceParams{
		Store:   redisClient,
		Sender:  otp.NewLogSender(logg, !cfg.App.IsProd()),
		Config:  cfg.OTP,
		Secret:  cfg.JWT.Secret,
		Logger:  logg,
		Metrics: app.storefront,
	})
	if err != nil {
		return nil, fmt.Errorf("otp service: %w", err)
	}

	profileRepo := profiles.NewRepository(gormDB)
	app.auth, err = auth.NewService(auth.ServiceParams{
		Users:          users.NewRepository(gormDB),
		Profiles:       profileRepo,
		OTP:            codes,
		Sessions:       sessions,
		Pending:        redisClient,
		Feed:           feed,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		OTPConfig:      cfg.OTP,
		Logger:         logg,
		Metrics:        app.storefront,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	authSvc := app.auth
	app.sessionStores = func(claims *pkgAuth.AccessTokenClaims) *identity.Store {
		return identity.NewStore(authSvc.SessionFor(claims), profileRepo, logg)
	}

	images, err := wireMedia(ctx, cfg, logg, app)
	if err != nil {
		return nil, err
	}
	catalogParams := catalog.ServiceParams{
		Repo:        catalog.NewRepository(gormDB),
		Expansions:  catalog.NewRedisExpansions(redisClient, cfg.Storefront.ExpansionTTL),
		PreviewSize: cfg.Storefront.CatalogPreviewSize,
		Logger:      logg,
	}
	if images != nil {
		catalogParams.Images = images
	}
	if app.catalog, err = catalog.NewService(catalogParams); err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	if app.cart, err = cart.NewService(redisClient, cfg.Storefront.CartTTL, logg); err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}
	app.favorites = favorites.NewService(favorites.NewRedisBlobStore(redisClient), logg)

	orderParams := orders.ServiceParams{
		Repo:      orders.NewRepository(gormDB),
		Profiles:  profileRepo,
		Linker:    orders.NewLinker(cfg.Storefront.MessagingHost, cfg.Storefront.MessagingRecipient),
		ListLimit: cfg.Storefront.AdminOrderListLimit,
		Logger:    logg,
		Metrics:   app.storefront,
	}
	outboxJobs, err := wireOutbox(ctx, cfg, logg, gormDB, app, &orderParams)
	if err != nil {
		return nil, err
	}
	if app.orders, err = orders.NewService(orderParams); err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	rateJobs, err := wireRates(ctx, cfg, logg, gormDB, feed, app)
	if err != nil {
		return nil, err
	}
	if err := wireCron(cfg, logg, redisClient, reg, app, append(rateJobs, outboxJobs...)); err != nil {
		return nil, err
	}
	return app, nil
}

// wireMedia connects image storage. Catalog uploads fail with a dependency
// error when the bucket is unreachable; browsing keeps working.
func wireMedia(ctx context.Context, cfg *config.Config, logg *logger.Logger, app *application) (*media.Service, error) {
	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "image storage unavailable, uploads disabled")
		return nil, nil
	}
	app.closers = append(app.closers, gcsClient.Close)
	app.health["gcs"] = gcsClient

	svc, err := media.NewService(media.ServiceParams{
		Store:    gcsClient,
		Bucket:   cfg.GCS.BucketName,
		MaxBytes: cfg.Media.MaxUploadBytes(),
		Timeout:  cfg.GCS.UploadTimeout,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("media service: %w", err)
	}
	return svc, nil
}

// wirePubSub returns the order event emitter, or nil when no topic is set.
func wirePubSub(ctx context.Context, cfg *config.Config, logg *logger.Logger, app *application) *pubsub.Emitter {
	if strings.TrimSpace(cfg.PubSub.OrdersTopic) == "" || strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		logg.Info(ctx, "pubsub not configured, order events disabled")
		return nil
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "pubsub unavailable, order events disabled")
		return nil
	}
	emitter := pubsub.NewEmitter(client.Publisher(cfg.PubSub.OrdersTopic))
	app.closers = append(app.closers, client.Close, func() error {
		emitter.Stop()
		return nil
	})
	app.health["pubsub"] = client
	return emitter
}

// wireOutbox routes order events through the outbox table when Pub/Sub is
// configured and returns the jobs that relay and prune it.
func wireOutbox(ctx context.Context, cfg *config.Config, logg *logger.Logger, gormDB *gorm.DB, app *application, orderParams *orders.ServiceParams) ([]cron.Entry, error) {
	emitter := wirePubSub(ctx, cfg, logg, app)
	if emitter == nil {
		return nil, nil
	}
	repo := outbox.NewRepository(gormDB)
	orderParams.Events = outbox.NewWriter(repo, logg)

	relay, err := outbox.NewRelay(outbox.RelayParams{
		Store:       repo,
		Sink:        emitter,
		BatchSize:   cfg.PubSub.OutboxBatchSize,
		MaxAttempts: cfg.PubSub.OutboxMaxAttempts,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox relay: %w", err)
	}
	publish, err := cron.NewOutboxPublishJob(relay)
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(repo, cfg.PubSub.OutboxRetention)
	if err != nil {
		return nil, err
	}
	return []cron.Entry{
		{Job: publish, Every: cfg.PubSub.OutboxPublishInterval, Exclusive: true},
		{Job: retention, Every: cfg.PubSub.OutboxRetentionInterval, Exclusive: true},
	}, nil
}

// wireRates loads the current rates and starts the loops that keep them
// fresh: the change feed and the Postgres listener. The scheduled jobs are
// returned for the cron runner.
func wireRates(ctx context.Context, cfg *config.Config, logg *logger.Logger, gormDB *gorm.DB, feed realtime.Feed, app *application) ([]cron.Entry, error) {
	repo := rates.NewRepository(gormDB)
	tracker := rates.NewTracker(repo, logg)
	if err := tracker.Refresh(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial rates load failed")
	}

	svc, err := rates.NewService(repo, tracker, feed, logg)
	if err != nil {
		return nil, fmt.Errorf("rates service: %w", err)
	}
	app.rates = svc

	sub, err := tracker.Follow(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("follow market rates: %w", err)
	}
	app.closers = append(app.closers, func() error {
		sub.Unsubscribe()
		return nil
	})

	if !cfg.FeatureFlags.UseSQLite && cfg.DB.DSN != "" {
		listener := rates.NewListener(cfg.DB.DSN, tracker, logg)
		app.background = append(app.background, listener.Run)
	}

	refresh, err := cron.NewRatesRefreshJob(tracker)
	if err != nil {
		return nil, err
	}
	prune, err := cron.NewRatesPruneJob(repo, cfg.Storefront.RatesHistoryKeep)
	if err != nil {
		return nil, err
	}
	return []cron.Entry{
		{Job: refresh, Every: cfg.Storefront.RatesPollInterval},
		{Job: prune, Every: cfg.Storefront.RatesPruneInterval, Exclusive: true},
	}, nil
}

// wireCron runs the scheduled jobs. Exclusive jobs take a Redis lock so only
// one instance runs them per interval.
func wireCron(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, reg prometheus.Registerer, app *application, entries []cron.Entry) error {
	lock, err := cron.NewRedisLock(redisClient, 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	tick := cfg.Storefront.RatesPollInterval
	for _, e := range entries {
		if e.Every > 0 && (tick <= 0 || e.Every < tick) {
			tick = e.Every
		}
	}
	runner, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(entries...),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(reg),
		Tick:     tick,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}
	app.background = append(app.background, runner.Run)
	return nil
}
