package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZetsyKe/vacvpn-sub000/internal/config"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
	payAdapters "github.com/ZetsyKe/vacvpn-sub000/internal/infra/adapters/payment"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/adapters/provision"
	pg "github.com/ZetsyKe/vacvpn-sub000/internal/infra/db/postgres"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/logging"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/metrics"
	red "github.com/ZetsyKe/vacvpn-sub000/internal/infra/redis"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/sched"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/web"
	"github.com/ZetsyKe/vacvpn-sub000/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway and notifier)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Tariff catalog ----
	tariffs := make([]model.Tariff, 0, len(cfg.Tariffs))
	for _, t := range cfg.Tariffs {
		tariff, err := model.NewTariff(t.ID, t.Days, t.Price, t.Description)
		if err != nil {
			logger.Fatal().Err(err).Str("tariff", t.ID).Msg("invalid tariff")
		}
		tariffs = append(tariffs, tariff)
	}
	catalog, err := model.NewTariffCatalog(tariffs)
	if err != nil {
		logger.Fatal().Err(err).Msg("tariff catalog")
	}

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	refRepo := pg.NewReferralRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Adapters ----
	var gateway adapter.PaymentGateway
	var notifier adapter.ProvisioningNotifier
	if cfg.Runtime.Dev {
		gateway = payAdapters.NewNoopPaymentGateway()
		notifier = provision.NewNoopNotifier()
	} else {
		yk := cfg.Payment.YooKassa
		gateway, err = payAdapters.NewYooKassaGateway(yk.ShopID, yk.SecretKey, yk.ReturnURL, yk.APIURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("yookassa gateway")
		}
		if cfg.Provision.BaseURL != "" {
			notifier, err = provision.NewHTTPNotifier(cfg.Provision.BaseURL, cfg.Provision.APIKey, cfg.Provision.Timeout)
			if err != nil {
				logger.Fatal().Err(err).Msg("provision notifier")
			}
		} else {
			logger.Warn().Msg("provision.base_url not set; provisioning notifications disabled")
			notifier = provision.NewNoopNotifier()
		}
	}

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	refUC := usecase.NewReferralUseCase(refRepo, logger)
	paymentUC := usecase.NewPaymentUseCase(payRepo, subUC, catalog, gateway, notifier, tm, logger)

	// ---- Metrics ----
	metrics.MustRegister()

	// ---- Background reconciler ----
	reconciler := sched.NewPaymentReconciler(paymentUC, payRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.Batch, logger)
	go reconciler.Start(ctx)

	// ---- HTTP API ----
	server := web.NewServer(paymentUC, subUC, refUC, rateLimiter, cfg.RateLimit.PerUser, cfg.RateLimit.Window, logger)
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Str("gateway", gateway.Name()).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
