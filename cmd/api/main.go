package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-api-verification/internal/application/verification"
	"github.com/go-api-verification/internal/config"
	"github.com/go-api-verification/internal/infrastructure/console"
	"github.com/go-api-verification/internal/infrastructure/dynamo"
	"github.com/go-api-verification/internal/infrastructure/memory"
	"github.com/go-api-verification/internal/infrastructure/postgres"
	redisstore "github.com/go-api-verification/internal/infrastructure/redis"
	"github.com/go-api-verification/internal/infrastructure/smtp"
	"github.com/go-api-verification/internal/infrastructure/sns"
	"github.com/go-api-verification/internal/pkg/codehash"
	"github.com/go-api-verification/internal/pkg/logger"
	transporthttp "github.com/go-api-verification/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.MustLoad()

	lg, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	store, closeStore, err := newCodeStore(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("code store: %w", err)
	}
	defer closeStore()

	notifier, err := newNotifier(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}

	if sw, ok := store.(verification.Sweeper); ok {
		go verification.NewJanitor(sw, cfg.Verification.SweepInterval, cfg.Verification.StoreTimeout, lg).Run(ctx)
	}

	svc := verification.NewService(verification.ServiceDeps{
		Store:           store,
		Notifier:        notifier,
		Logger:          lg,
		CodeTTL:         cfg.Verification.CodeTTL,
		StoreTimeout:    cfg.Verification.StoreTimeout,
		DispatchTimeout: cfg.Verification.DispatchTimeout,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Verification: svc,
		Logger:       lg,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Verification.StoreBackend),
			zap.String("notifier", cfg.Verification.NotifierBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	lg.Info("server stopped")
	return nil
}

// newCodeStore builds the configured backend and returns a func releasing it.
func newCodeStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (verification.CodeStore, func(), error) {
	if cfg.Verification.StoreBackend == config.StoreMemory {
		s := memory.New()
		return s, func() { _ = s.Close() }, nil
	}

	hasher, err := codehash.New(cfg.Verification.CodeHashKey)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Verification.CodeHashKey == "" {
		lg.Warn("CODE_HASH_KEY is empty, code digests are unkeyed")
	}

	switch cfg.Verification.StoreBackend {
	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, lg)
		return dynamo.NewVerificationRepo(client, cfg.DynamoTables.VerificationCodes, hasher), func() {}, nil

	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStore(client, cfg.Redis.KeyPrefix, hasher), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(cfg.Postgres.DSN); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPgxPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStore(pool, hasher), pool.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Verification.StoreBackend)
}

func newNotifier(ctx context.Context, cfg *config.Config, lg *zap.Logger) (verification.Notifier, error) {
	switch cfg.Verification.NotifierBackend {
	case config.NotifierSMTP:
		return smtp.NewNotifier(cfg.SMTP, smtp.Content{
			VerifyURL:  cfg.Email.VerifyURL,
			PrivacyURL: cfg.Email.PrivacyURL,
			Brand:      cfg.Email.Brand,
		})
	case config.NotifierSNS:
		return sns.NewNotifier(ctx, cfg.AWS, cfg.SNS)
	case config.NotifierConsole:
		lg.Warn("console notifier active, codes are written to the log")
		return console.NewNotifier(lg), nil
	}
	return nil, fmt.Errorf("unknown notifier backend %q", cfg.Verification.NotifierBackend)
}
