package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-exam-grader/internal/config"
	"github.com/noah-isme/gema-exam-grader/internal/database"
	"github.com/noah-isme/gema-exam-grader/internal/handler"
	"github.com/noah-isme/gema-exam-grader/internal/lock"
	"github.com/noah-isme/gema-exam-grader/internal/middleware"
	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/internal/repository"
	"github.com/noah-isme/gema-exam-grader/internal/router"
	"github.com/noah-isme/gema-exam-grader/internal/service"
	"github.com/noah-isme/gema-exam-grader/internal/utils"
	"github.com/noah-isme/gema-exam-grader/pkg/ai"
	cloud "github.com/noah-isme/gema-exam-grader/pkg/cloudinary"
	"github.com/noah-isme/gema-exam-grader/pkg/drive"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	judge, err := ai.NewGeminiJudge(ctx, ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	auditor := buildAuditor(cfg, logger)

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create storage backend: %v", err)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient, "grader:lock", cfg.LockTTL)
	} else {
		logger.Warn().Msg("redis not configured, student folder lock is local to this instance")
	}

	var reports repository.GradingReportRepository
	if cfg.DatabaseURL != "" {
		db, err := connectDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		reports = repository.NewGradingReportRepository(db)
	}

	var events service.EventPublisher
	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, grading events disabled")
		} else {
			defer drainNATS(natsConn, logger)
			events = natsConn
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradingService := service.NewGradingService(service.GradingDependencies{
		Ingestor:     service.NewIngestor(validate, cfg.MaxUploadMB, logger),
		Judge:        service.NewJudgeStage(judge, cfg.JudgeTimeout, logger),
		Audit:        service.NewAuditStage(auditor, cfg.AuditTimeout, logger),
		Persister:    service.NewPersistenceService(store, locker, cfg.StorageTimeout, logger),
		Reports:      reports,
		Events:       events,
		EventSubject: cfg.NATSSubject,
	}, logger)

	gradingHandler := handler.NewGradingHandler(gradingService, reports, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		// Multipart framing needs headroom beyond the artifact limit enforced by the ingestor.
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		ErrorHandler: errorHandler,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Msg("grading service started")
	waitForShutdown(app)
}

func buildAuditor(cfg config.Config, logger zerolog.Logger) ai.Auditor {
	switch cfg.AuditorProvider {
	case config.AuditorProviderAnthropic:
		auditor, err := ai.NewAnthropicAuditor(ai.AnthropicConfig{
			APIKey:  cfg.AuditorAPIKey,
			BaseURL: cfg.AuditorBaseURL,
			Model:   cfg.AuditorModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create anthropic auditor: %v", err)
		}
		return auditor
	default:
		auditor, err := ai.NewOpenAIAuditor(ai.OpenAIConfig{
			APIKey:  cfg.AuditorAPIKey,
			BaseURL: cfg.AuditorBaseURL,
			Model:   cfg.AuditorModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai auditor: %v", err)
		}
		return auditor
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.FolderStore, error) {
	if cfg.StorageProvider == config.StorageProviderCloudinary {
		return cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
			APIURL:    cfg.CloudinaryAPIURL,
		}, logger)
	}

	return drive.New(ctx, drive.Config{
		CredentialsFile: cfg.DriveCredentialsFile,
		RootFolderID:    cfg.DriveRootFolderID,
	}, logger)
}

func connectDatabase(dsn string) (*gorm.DB, error) {
	db, err := database.Connect(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.GradingReport{}); err != nil {
		return nil, err
	}
	return db, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	if status == fiber.StatusRequestEntityTooLarge {
		message = service.ErrArtifactTooLarge.Error()
	}

	return utils.SendError(c, status, message)
}

func drainNATS(conn *nats.Conn, logger zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn().Err(err).Msg("failed to drain nats connection")
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
