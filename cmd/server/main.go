package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexconsultoria/checkout/modules/billing"
	"github.com/apexconsultoria/checkout/modules/checkout"
	"github.com/apexconsultoria/checkout/pkg/blob"
	"github.com/apexconsultoria/checkout/pkg/config"
	"github.com/apexconsultoria/checkout/pkg/email"
	"github.com/apexconsultoria/checkout/pkg/httpserver"
	"github.com/apexconsultoria/checkout/pkg/logger"
	"github.com/apexconsultoria/checkout/pkg/pg"
	"github.com/apexconsultoria/checkout/pkg/redis"
	"github.com/apexconsultoria/checkout/pkg/requestid"
)

type appConfig struct {
	Log       logger.Config
	HTTP      httpserver.Config
	PG        pg.Config
	Redis     redis.Config
	Blob      blob.Config
	Email     email.Config
	Paddle    billing.PaddleConfig
	Stripe    billing.StripeConfig
	Processor checkout.ProcessorConfig

	// CheckoutProvider selects which provider creates hosted checkout
	// sessions; both providers' webhooks stay mounted regardless.
	CheckoutProvider string `env:"CHECKOUT_PROVIDER" envDefault:"paddle"`
	PlansFile        string `env:"PLANS_FILE" envDefault:"plans.yaml"`
	PortalURL        string `env:"PORTAL_URL,required"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Log, "checkout-server",
		logger.WithContextExtractors(requestid.LoggerExtractor()))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	catalog, err := checkout.NewCatalog(ctx, checkout.NewFileSource(cfg.PlansFile))
	if err != nil {
		return fmt.Errorf("load plan catalog: %w", err)
	}

	paddle, err := billing.NewPaddleProvider(cfg.Paddle)
	if err != nil {
		return fmt.Errorf("init paddle provider: %w", err)
	}
	stripe, err := billing.NewStripeProvider(cfg.Stripe)
	if err != nil {
		return fmt.Errorf("init stripe provider: %w", err)
	}

	var checkoutProvider billing.Provider
	switch strings.ToLower(cfg.CheckoutProvider) {
	case "paddle":
		checkoutProvider = paddle
	case "stripe":
		checkoutProvider = stripe
	default:
		return fmt.Errorf("unknown checkout provider: %s", cfg.CheckoutProvider)
	}

	subs := billing.NewPGSubscriptionStore(pool)
	customers := billing.NewPGCustomerStore(pool)
	events := billing.NewPGEventStore(pool)

	reconcilerOpts := []billing.ReconcilerOption{}
	if archive, err := newArchive(ctx, cfg.Blob, log); err != nil {
		return err
	} else if archive != nil {
		reconcilerOpts = append(reconcilerOpts, billing.WithArchive(archive))
	}
	if cfg.Email.PostmarkServerToken != "" {
		sender, err := email.NewPostmarkSender(cfg.Email)
		if err != nil {
			return fmt.Errorf("init email sender: %w", err)
		}
		reconcilerOpts = append(reconcilerOpts, billing.WithActivationEmail(sender, cfg.PortalURL))
	}
	reconciler := billing.NewReconciler(subs, customers, events, log, reconcilerOpts...)

	recoveryStore := checkout.NewRedisRecoveryStore(redisClient)
	processor := checkout.NewProcessor(catalog, checkoutProvider, customers, cfg.Processor, log)
	controller := checkout.NewController(recoveryStore, processor, log)
	success := checkout.NewSuccessHandler(recoveryStore, subs, customers, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(prometheusMiddleware)

	r.Mount("/checkout", checkout.Router(controller, success, log))
	r.Mount("/webhooks", billing.Router(reconciler, log, paddle, stripe))
	r.Get("/health", httpserver.HealthCheckHandler(log))
	r.Get("/ready", httpserver.HealthCheckHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.New(cfg.HTTP, log).Run(ctx, r)
}

// newArchive picks the payload archive backend: S3 when a bucket is
// configured, otherwise a local directory.
func newArchive(ctx context.Context, cfg blob.Config, log *slog.Logger) (blob.Storage, error) {
	if cfg.Bucket != "" {
		storage, err := blob.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init s3 archive: %w", err)
		}
		return storage, nil
	}
	if cfg.LocalDir == "" {
		return nil, nil
	}
	storage, err := blob.NewLocalStorage(cfg.LocalDir)
	if err != nil {
		log.Warn("payload archive disabled", slog.Any("error", err))
		return nil, nil
	}
	return storage, nil
}
