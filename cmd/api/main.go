// @title           Fest Registration API
// @version         1.0
// @description     Event catalogue, participant accounts and solo or team registrations for a college fest.
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"festregistration/config"
	_ "festregistration/docs"
	"festregistration/internal/adapters/auth"
	"festregistration/internal/adapters/cooldown"
	"festregistration/internal/adapters/email"
	"festregistration/internal/adapters/storage"
	delivery "festregistration/internal/delivery/http"
	"festregistration/internal/delivery/http/controllers"
	"festregistration/internal/domain"
	"festregistration/internal/jobs"
	"festregistration/internal/metrics"
	"festregistration/internal/repository/sqldb"
	"festregistration/internal/services"
)

const (
	notificationTimeout = 30 * time.Second
	shutdownTimeout     = 15 * time.Second
	startupTimeout      = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := sqldb.Open(startCtx, cfg.DBDriver, cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info("database ready", "driver", cfg.DBDriver)

	images, err := newImageStore(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	limiter, closeLimiter, err := newCooldown(startCtx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mail.SESRegion,
			AccessKeyID:     cfg.Mail.SESAccessKeyID,
			SecretAccessKey: cfg.Mail.SESSecretAccessKey,
		},
	}, logger)
	emailService := services.NewEmailService(mailer, renderer, logger)
	notifier := services.NewNotificationService(emailService, logger, notificationTimeout)

	m := metrics.New()
	tokens := auth.NewJWTService(cfg.JWTSecret)

	userRepo := sqldb.NewUserRepository(db)
	eventRepo := sqldb.NewEventRepository(db)
	registrationRepo := sqldb.NewRegistrationRepository(db)

	authService := services.NewAuthService(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens,
		notifier, cfg.AdminEmails, cfg.JWTExpiry, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, registrationRepo, images, logger, cfg.ContextTimeout)
	registrationService := services.NewRegistrationService(registrationRepo, eventRepo, userRepo, notifier,
		emailService, limiter, m, logger, cfg.SummaryEmailCooldown, cfg.ContextTimeout)
	adminService := services.NewAdminService(eventRepo, registrationRepo, userRepo, images, notifier, m,
		logger, cfg.ContextTimeout)

	handler := delivery.NewRouter(delivery.RouterConfig{
		Logger:         logger,
		Verifier:       tokens,
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           controllers.NewAuthController(logger, authService),
		Events:         controllers.NewEventController(logger, eventService),
		Registrations:  controllers.NewRegistrationController(logger, registrationService),
		Admin:          controllers.NewAdminController(logger, adminService, eventService),
	})

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Add("reconcile-counters", cfg.ReconcileSchedule,
		jobs.NewReconcileJob(adminService, logger, cfg.ContextTimeout)); err != nil {
		return fmt.Errorf("schedule reconcile job: %w", err)
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}
	if err := scheduler.Stop(ctx); err != nil {
		logger.Warn("scheduler did not stop in time", "err", err)
	}
	notifier.Wait()
	logger.Info("server exited")
	return nil
}

func newImageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.ImageStore, error) {
	if cfg.Storage.Provider != "s3" {
		logger.Warn("image storage disabled, uploads are discarded")
		return storage.NewNoopStore(logger), nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		Endpoint:      cfg.Storage.S3Endpoint,
		AccessKey:     cfg.Storage.S3AccessKey,
		SecretKey:     cfg.Storage.S3SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 storage: %w", err)
	}
	return store, nil
}

func newCooldown(ctx context.Context, cfg *config.Config) (domain.Cooldown, func(), error) {
	if cfg.CooldownBackend != "redis" {
		return cooldown.NewMemoryStore(), func() {}, nil
	}
	client, err := cooldown.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return cooldown.NewRedisStore(client), func() { _ = client.Close() }, nil
}
