package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"access-code-service/internal/config"
	"access-code-service/internal/domain/model"
	"access-code-service/internal/domain/ports/adapter"
	"access-code-service/internal/infra/adapters/coupon"
	"access-code-service/internal/infra/api"
	pg "access-code-service/internal/infra/db/postgres"
	"access-code-service/internal/infra/logging"
	"access-code-service/internal/infra/metrics"
	red "access-code-service/internal/infra/redis"
	"access-code-service/internal/infra/sched"
	"access-code-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no-op coupon provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient, cfg.RateLimit.RedeemPerMinute)

	// ---- Repositories ----
	codeRepo := pg.NewCodeRepo(pool)
	redemptionRepo := pg.NewRedemptionRepo(pool)
	entitlementRepo := pg.NewEntitlementRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewMembershipPlanRepo(pool), redisClient, cfg.Redis.TTL)
	membershipRepo := pg.NewUserMembershipRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Policies ----
	prefixes := model.PrefixPolicy{Invite: cfg.Policy.InvitePrefix, Promo: cfg.Policy.PromoPrefix}
	grants := model.NewGrantPolicy(cfg.Policy.GrantableRoles)

	// ---- Coupon provider ----
	var coupons adapter.CouponProvider
	if cfg.Runtime.Dev || cfg.Stripe.SecretKey == "" {
		logger.Warn().Msg("stripe secret key not set; using no-op coupon provider")
		coupons = coupon.NewNoopProvider()
	} else {
		coupons, err = coupon.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.Currency)
		if err != nil {
			log.Fatalf("stripe provider: %v", err)
		}
	}

	// ---- Use cases ----
	issuanceUC := usecase.NewIssuanceUseCase(codeRepo, txm, coupons, prefixes, grants, cfg.Policy.MaxBatch, logger)
	eval := usecase.NewEligibilityEvaluator(redemptionRepo)
	applier := usecase.NewEntitlementApplier(planRepo, membershipRepo, userRepo, entitlementRepo, grants, logger)
	redemptionUC := usecase.NewRedemptionUseCase(codeRepo, redemptionRepo, eval, applier, txm, prefixes, logger)
	entitlementUC := usecase.NewEntitlementUseCase(entitlementRepo, logger)

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Scheduler.EntitlementSweepInterval, entitlementUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- HTTP server ----
	srv := api.NewServer(issuanceUC, redemptionUC, entitlementUC, rateLimiter, cfg.Auth.JWTSecret, cfg.Auth.AdminAPIKey, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
