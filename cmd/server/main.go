package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewplanner/config"
	_ "crewplanner/docs"
	"crewplanner/internal/adapters/auth"
	"crewplanner/internal/adapters/email"
	httpdelivery "crewplanner/internal/delivery/http"
	"crewplanner/internal/delivery/http/controllers"
	"crewplanner/internal/domain"
	"crewplanner/internal/metrics"
	"crewplanner/internal/repository/postgres"
	redisrepo "crewplanner/internal/repository/redis"
	"crewplanner/internal/services"
	"crewplanner/internal/worker"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	positionCacheTTL = 5 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

// @title			Crew Planner API
// @version		1.0
// @description	Event planning and crew registration backend.
// @BasePath		/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	connector, err := pq.NewConnector(cfg.DBUrl)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := postgres.ApplySchema(ctx, db); err != nil {
		return err
	}
	logger.Info("connected to database")

	m := metrics.New()

	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)
	qualificationRepo := postgres.NewQualificationRepository(db)
	queueRepo := postgres.NewNotificationQueueRepository(db)
	var positionRepo domain.PositionRepository = postgres.NewPositionRepository(db)
	if cfg.RedisURL != "" {
		client, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		positionRepo = redisrepo.NewPositionCache(positionRepo, client, positionCacheTTL, logger)
		logger.Info("position cache enabled")
	}

	notifier := services.NewNotifier(queueRepo, userRepo, cfg.PublicBaseURL, m, logger)
	eventSvc := services.NewEventService(eventRepo, positionRepo, notifier, logger, cfg.ContextTimeout)
	registrationSvc := services.NewRegistrationService(eventRepo, positionRepo, notifier, logger, cfg.ContextTimeout)
	positionSvc := services.NewPositionService(positionRepo, cfg.ContextTimeout)
	qualificationSvc := services.NewQualificationService(qualificationRepo, positionRepo, cfg.ContextTimeout)
	userSvc := services.NewUserService(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost),
		auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry, cfg.ContextTimeout)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return err
	}
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	loc, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return err
	}
	scheduler, err := worker.NewScheduler(cfg.SchedulerDailySpec, loc, m, logger,
		services.NewConfirmationSweep(eventRepo, notifier, logger),
		services.NewQualificationSweep(userRepo, qualificationRepo, notifier, logger),
	)
	if err != nil {
		return err
	}
	drainer := worker.NewQueueDrainer(queueRepo, emailSvc, m, logger, worker.DrainerConfig{
		Interval:    cfg.NotificationPollInterval,
		MaxAttempts: cfg.NotificationMaxAttempts,
	})

	router := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth:          controllers.NewAuthController(logger, userSvc),
		Event:         controllers.NewEventController(logger, eventSvc),
		Registration:  controllers.NewRegistrationController(logger, registrationSvc),
		Position:      controllers.NewPositionController(logger, positionSvc),
		Qualification: controllers.NewQualificationController(logger, qualificationSvc),
		User:          controllers.NewUserController(logger, userSvc),
	}, httpdelivery.RouterConfig{
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
		Recorder:       m,
		MetricsHandler: m.Handler(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return drainer.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })
	return g.Wait()
}
