// README: Entry point; loads config, wires the booking service, starts the HTTP server and the settlement scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"gohappygo/internal/cache"
	"gohappygo/internal/config"
	httptransport "gohappygo/internal/http"
	"gohappygo/internal/infra"
	"gohappygo/internal/jobs"
	"gohappygo/internal/logger"
	"gohappygo/internal/modules/booking"
	"gohappygo/internal/modules/pricing"
	"gohappygo/internal/notify"
	"gohappygo/internal/payment"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	log := logger.WithService("gohappygo-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Firebase.ProjectID == "" {
		return errors.New("GOHAPPYGO_FIREBASE_PROJECT_ID is required")
	}
	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return err
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		return err
	}
	identity, err := infra.NewFirebaseIdentity(ctx, app)
	if err != nil {
		return err
	}

	pool, err := infra.NewDB(ctx, cfg.DB.DSN, infra.DBOptions{MaxConns: int32(cfg.DB.MaxConns)})
	if err != nil {
		return err
	}
	defer pool.Close()
	if cfg.DB.AutoMigrate {
		res, err := infra.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		log.Info("migrations applied", "version", res.Version, "applied", res.Applied)
	}

	listCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(ctx, cfg, app, identity, log)
	if err != nil {
		return err
	}

	policy, err := pricingPolicy(cfg.Pricing)
	if err != nil {
		return err
	}

	svc := booking.NewService(booking.Deps{
		UnitOfWork: booking.NewPgUnitOfWork(pool),
		Pricing:    pricing.NewService(policy),
		Payments:   newGateway(cfg.Payments, log),
		Notifier:   notifier,
		Identity:   identity,
		Cache:      listCache,
		CacheTTL:   cfg.Cache.TTL,
		Currency:   cfg.Pricing.Currency,
		Logger:     log.With("component", "booking"),
	})

	runner := jobs.NewJobRunner(svc, cfg.Jobs.SettlementBatch, log.With("component", "jobs"))
	scheduler, err := jobs.NewScheduler(runner, cfg.Jobs.SettlementSchedule)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Booking:     svc,
		Verifier:    verifier,
		Logger:      log.With("component", "http"),
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Ready:       pool.Ping,
	})
	return httptransport.NewServer(cfg.HTTP.Addr, router, log).Run(ctx)
}

// newCache returns the redis list-view cache, or a no-op cache when caching is
// disabled or redis is unreachable at boot.
func newCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return cache.Nop{}, nil
	}
	client, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("redis unavailable, list views are not cached", "error", err)
		return cache.Nop{}, nil
	}
	c := cache.NewRedis(client)
	go func() {
		err := c.Listen(ctx, func(tags []string) {
			log.Debug("cache invalidated", "tags", tags)
		})
		if err != nil {
			log.Warn("cache invalidation listener stopped", "error", err)
		}
		_ = client.Close()
	}()
	return c, nil
}

func newNotifier(ctx context.Context, cfg config.Config, app *firebase.App, dir notify.Directory, log *slog.Logger) (notify.Notifier, error) {
	var channels notify.Fanout
	if cfg.Notify.Push {
		client, err := app.Messaging(ctx)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.NewPush(client))
	}
	if cfg.Notify.SendGridKey != "" {
		channels = append(channels, notify.NewSendGrid(cfg.Notify.SendGridKey, cfg.Notify.FromEmail, cfg.Notify.FromName, dir))
	}
	if len(channels) == 0 {
		log.Warn("no notification channel configured")
		return notify.Nop{}, nil
	}
	return channels, nil
}

func newGateway(cfg config.PaymentsConfig, log *slog.Logger) payment.Gateway {
	if cfg.Mode == "http" {
		return payment.NewHTTP(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
	}
	return payment.NewLedger(log.With("component", "payment"))
}

func pricingPolicy(cfg config.PricingConfig) (pricing.Policy, error) {
	surcharge, err := decimal.NewFromString(cfg.SurchargeFactor)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("pricing surcharge factor %q: %w", cfg.SurchargeFactor, err)
	}
	fee, err := decimal.NewFromString(cfg.FlatFee)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("pricing flat fee %q: %w", cfg.FlatFee, err)
	}
	return pricing.Policy{SurchargeFactor: surcharge, FlatFee: fee, Currency: cfg.Currency}, nil
}
