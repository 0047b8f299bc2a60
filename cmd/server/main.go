package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/valle1212i/admin-portal-sub000/internal/api"
	"github.com/valle1212i/admin-portal-sub000/internal/archive"
	"github.com/valle1212i/admin-portal-sub000/internal/auth"
	"github.com/valle1212i/admin-portal-sub000/internal/config"
	"github.com/valle1212i/admin-portal-sub000/internal/notify"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/distlock"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/logger"
	"github.com/valle1212i/admin-portal-sub000/internal/pkg/ratelimit"
	"github.com/valle1212i/admin-portal-sub000/internal/portal"
	"github.com/valle1212i/admin-portal-sub000/internal/repository/postgres"
	"github.com/valle1212i/admin-portal-sub000/internal/service/cases"
	"github.com/valle1212i/admin-portal-sub000/internal/service/ingest"
	"github.com/valle1212i/admin-portal-sub000/internal/service/packages"
	"github.com/valle1212i/admin-portal-sub000/internal/signature"
	"github.com/valle1212i/admin-portal-sub000/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at boot, continuing without it", "error", err)
		}
	}

	// Repositories.
	submissionRepo, err := postgres.NewSubmissionRepo(ctx, db)
	if err != nil {
		log.Fatalf("failed to bind submission table: %v", err)
	}
	caseRepo := postgres.NewCaseRepo(db)
	customerRepo := postgres.NewCustomerRepo(db)
	outboxRepo := postgres.NewOutboxRepo(db)
	deliveryRepo := postgres.NewDeliveryRepo(db)

	// Transcript archive (optional).
	var archiver cases.Archiver
	if cfg.Archive.Enabled {
		a, err := archive.NewS3Archiver(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("failed to initialize transcript archive: %v", err)
		}
		archiver = a
	}

	portalClient := portal.NewClient(cfg.Portal)

	ingestSvc := ingest.NewService(submissionRepo)
	caseSvc := cases.NewService(caseRepo, archiver)
	packageSvc := packages.NewService(customerRepo, portalClient, outboxRepo, cfg.Auth.ApproverEmails)

	var limiter *ratelimit.Limiter
	if cfg.Ingest.RatePerMinute > 0 {
		limiter = ratelimit.NewLimiter(redisClient, cfg.Ingest.RatePerMinute, time.Minute)
	}

	var authManager *auth.Manager
	if cfg.Auth.Enabled && cfg.Auth.GoogleClientID != "" {
		authManager = auth.NewManager(cfg.Auth, cfg.Server.BaseURL)
		authManager.CleanupExpiredSessions(ctx)
	} else {
		logger.Warn("admin auth disabled: /api is open (development only)")
	}

	handlers := api.NewHandlers(
		cfg.Ingest,
		signature.NewVerifier(cfg.Ingest.WebhookSecret),
		limiter,
		ingestSvc,
		caseSvc,
		packageSvc,
		outboxRepo,
		deliveryRepo,
		authManager,
		cfg.Email.NotifyEmails,
		db,
		redisClient,
	)
	router := api.SetupRoutes(handlers, authManager, cfg.Server.AllowedOrigins)
	server := api.NewServer(router)

	// Outbox delivery worker with leader election.
	if cfg.Outbox.Enabled {
		var emailSender worker.EmailDeliverer
		if cfg.Email.Enabled {
			sender, err := notify.NewEmailSender(ctx, cfg.Email)
			if err != nil {
				log.Fatalf("failed to initialize SES sender: %v", err)
			}
			emailSender = sender
		}
		lock := distlock.NewLock(redisClient, db, "outbox-drain", time.Minute)
		go worker.NewOutboxWorker(outboxRepo, portalClient, emailSender, lock, cfg.Outbox).Run(ctx)
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(cfg.Server.Addr()); err != nil {
			logger.Error("server stopped", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
