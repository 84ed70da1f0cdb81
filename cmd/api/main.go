package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/koreksi-go-api/internal/config"
	"github.com/noah-isme/koreksi-go-api/internal/database"
	"github.com/noah-isme/koreksi-go-api/internal/handler"
	"github.com/noah-isme/koreksi-go-api/internal/middleware"
	"github.com/noah-isme/koreksi-go-api/internal/models"
	"github.com/noah-isme/koreksi-go-api/internal/repository"
	"github.com/noah-isme/koreksi-go-api/internal/router"
	"github.com/noah-isme/koreksi-go-api/internal/rubric"
	"github.com/noah-isme/koreksi-go-api/internal/service"
	"github.com/noah-isme/koreksi-go-api/pkg/blobstore"
	"github.com/noah-isme/koreksi-go-api/pkg/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// rubric.Evaluation is owned by the rubric system and read-only here,
	// so it is not part of the migration set.
	if err := db.AutoMigrate(
		&models.Student{},
		&models.Assignment{},
		&models.AnswerSlot{},
		&models.Submission{},
		&models.Iteration{},
		&models.FeedbackEntry{},
		&models.ApprovalRecord{},
		&models.StatusHistory{},
		&models.Comment{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	notifier := notify.NewNoop()
	if cfg.NATSURL != "" {
		natsConn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain() //nolint:errcheck
		notifier = notify.NewNATS(natsConn, "koreksi", logger)
	}

	uploader, err := blobstore.New(blobstore.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	iterationRepo := repository.NewIterationRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	historyRepo := repository.NewStatusHistoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	rubricService := rubric.NewService(db)

	activitySources := service.DefaultActivitySources(feedbackRepo, iterationRepo, historyRepo, commentRepo, rubricService)
	activityService := service.NewActivityService(activitySources, submissionRepo, approvalRepo, redisClient, cfg.ActivityCacheTTL, logger)
	iterationService := service.NewIterationService(iterationRepo, feedbackRepo, submissionRepo, assignmentRepo, validate, uploader, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, iterationRepo, validate, notifier, logger)
	lifecycleService := service.NewLifecycleService(submissionRepo, assignmentRepo, historyRepo, validate, notifier, logger)
	approvalService := service.NewApprovalService(approvalRepo, submissionRepo, activityService, validate, notifier, logger)
	commentService := service.NewCommentService(commentRepo, submissionRepo, validate, logger)
	slotService := service.NewSlotService(assignmentRepo, validate, logger)

	assignmentHandler := handler.NewAssignmentHandler(slotService, logger)
	iterationHandler := handler.NewIterationHandler(iterationService, logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, logger)
	submissionHandler := handler.NewSubmissionHandler(lifecycleService, commentService, logger)
	approvalHandler := handler.NewApprovalHandler(approvalService, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		IterationHandler:  iterationHandler,
		FeedbackHandler:   feedbackHandler,
		SubmissionHandler: submissionHandler,
		ApprovalHandler:   approvalHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
