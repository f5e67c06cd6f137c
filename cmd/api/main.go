package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-email-service/internal/application/notification"
	"github.com/go-email-service/internal/application/verification"
	"github.com/go-email-service/internal/config"
	"github.com/go-email-service/internal/infrastructure/dynamo"
	"github.com/go-email-service/internal/infrastructure/smtp"
	"github.com/go-email-service/internal/infrastructure/sns"
	"github.com/go-email-service/internal/infrastructure/tokensvc"
	"github.com/go-email-service/internal/infrastructure/userdir"
	"github.com/go-email-service/internal/metrics"
	"github.com/go-email-service/internal/pkg/logger"
	transporthttp "github.com/go-email-service/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	ctx := context.Background()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.SMTP, l)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	dispatchDeps := notification.DispatcherDeps{
		Transport: mailer,
		Metrics:   m,
		Logger:    l,
		Workers:   cfg.Dispatch.Workers,
		LogTTL:    cfg.Dispatch.LogTTL,
	}
	// Dispatch audit log (optional).
	if cfg.DynamoTables.Dispatches != "" {
		client, err := dynamo.NewClient(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("dynamo: %w", err)
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, l)
		dispatchDeps.Log = dynamo.NewDispatchRepo(client, cfg.DynamoTables.Dispatches)
	} else {
		l.Warn("dispatch audit log disabled: DYNAMO_TABLE_DISPATCHES not set")
	}
	dispatcher := notification.NewDispatcher(dispatchDeps)

	svcDeps := verification.ServiceDeps{
		Tokens:     tokensvc.NewClient(cfg.TokenService, m, l),
		Directory:  userdir.NewClient(cfg.UserService, m, l),
		Mailer:     dispatcher,
		Metrics:    m,
		Logger:     l,
		BaseURL:    cfg.Verification.BaseURL,
		VerifyPath: cfg.Verification.VerifyPath,
		Subject:    cfg.Verification.Subject,
	}
	// Reconciliation feed (optional).
	if cfg.SNS.ReconciliationTopicARN != "" {
		publisher, err := sns.NewPublisher(ctx, cfg.AWS, cfg.SNS.ReconciliationTopicARN)
		if err != nil {
			return fmt.Errorf("sns: %w", err)
		}
		svcDeps.Reconciler = publisher
	} else {
		l.Warn("reconciliation feed disabled: SNS_RECONCILIATION_TOPIC_ARN not set")
	}

	verifier := verification.NewService(svcDeps)

	router, limiter := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Dispatcher:   dispatcher,
		Verification: verifier,
		Metrics:      m,
		Logger:       l,
	})
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	l.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		return err
	}
	// delivery reports fire after the dispatcher resolves each send
	if err := verifier.Shutdown(shutdownCtx); err != nil {
		return err
	}
	l.Info("server stopped")
	return nil
}
