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
	"github.com/rs/zerolog"

	"github.com/openclass/exam-api/internal/config"
	"github.com/openclass/exam-api/internal/database"
	"github.com/openclass/exam-api/internal/handler"
	"github.com/openclass/exam-api/internal/middleware"
	"github.com/openclass/exam-api/internal/models"
	"github.com/openclass/exam-api/internal/repository"
	"github.com/openclass/exam-api/internal/router"
	"github.com/openclass/exam-api/internal/service"
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

	if err := db.AutoMigrate(&models.Student{}, &models.Exam{}, &models.Attempt{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	runCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()

	eventBus := service.NewExamEventBus(redisClient, cfg.EventChannel, natsConn, logger)
	eventBus.Start(runCtx)

	examService := service.NewExamService(examRepo, eventBus, validate, logger)
	runnerService := service.NewRunnerService(examRepo, attemptRepo, eventBus, redisClient, cfg.ResultCacheTTL, validate, logger)
	runnerService.Start(runCtx)
	gradingService := service.NewGradingService(attemptRepo, eventBus, redisClient, validate, logger)

	examHandler := handler.NewExamHandler(examService, logger)
	attemptHandler := handler.NewAttemptHandler(runnerService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ExamHandler:    examHandler,
		AttemptHandler: attemptHandler,
		GradingHandler: gradingHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
