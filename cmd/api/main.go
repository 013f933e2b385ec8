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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codesnap-api/internal/config"
	"github.com/noah-isme/codesnap-api/internal/database"
	"github.com/noah-isme/codesnap-api/internal/handler"
	"github.com/noah-isme/codesnap-api/internal/middleware"
	"github.com/noah-isme/codesnap-api/internal/repository"
	"github.com/noah-isme/codesnap-api/internal/router"
	"github.com/noah-isme/codesnap-api/internal/service"
	"github.com/noah-isme/codesnap-api/pkg/ai"
	"github.com/noah-isme/codesnap-api/pkg/grader"
	"github.com/noah-isme/codesnap-api/pkg/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, exercise cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	workspace, err := sandbox.NewWorkspace(cfg.WorkspaceRoot, logger)
	if err != nil {
		log.Fatalf("failed to prepare sandbox workspace: %v", err)
	}

	runner, closeRunner := buildRunner(cfg, logger)
	defer closeRunner()

	toolchain := grader.Toolchain{
		PythonBin:   cfg.PythonBin,
		NodeBin:     cfg.NodeBin,
		PylintBin:   cfg.PylintBin,
		ESLintCmd:   cfg.ESLintCmd,
		PythonImage: cfg.PythonImage,
		NodeImage:   cfg.NodeImage,
		PylintImage: cfg.PylintImage,
		ESLintImage: cfg.ESLintImage,
	}
	analyzer := grader.NewAnalyzer(workspace, runner, toolchain, cfg.LintTimeout, logger)
	codeGrader := grader.New(workspace, runner, analyzer, toolchain, grader.Config{ExecutionTimeout: cfg.ExecutionTimeout}, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	exerciseRepo := repository.NewExerciseRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	exerciseService := service.NewExerciseService(exerciseRepo, redisClient, cfg.ExerciseCacheTTL, validate, logger)
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	attemptFeed := service.NewAttemptFeed(natsConn, cfg.EventsSubject, logger)
	if err := attemptFeed.Start(feedCtx); err != nil {
		log.Fatalf("failed to subscribe attempt feed: %v", err)
	}

	attemptService := service.NewAttemptService(attemptRepo, exerciseService, codeGrader, attemptFeed, validate, logger)
	executionService := service.NewCodeExecutionService(workspace, runner, toolchain, cfg.ExecutionTimeout, validate, logger)
	assistantService := service.NewAssistantService(exerciseService, buildAssistant(cfg, logger), validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    256 * 1024,
	})

	var limiterStore fiber.Storage
	if redisClient != nil {
		limiterStore = middleware.NewRedisStorage(redisClient, "codesnap:ratelimit:")
	}

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		HealthHandler:    handler.NewHealthHandler(cfg, db, redisClient, natsConn),
		ExerciseHandler:  handler.NewExerciseHandler(exerciseService, logger),
		AttemptHandler:   handler.NewAttemptHandler(attemptService, validate, logger),
		ExecutionHandler: handler.NewExecutionHandler(executionService, validate, logger),
		AssistantHandler: handler.NewAssistantHandler(assistantService, validate, logger),
		FeedHandler:      handler.NewFeedHandler(attemptFeed, logger),
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		RateLimitStorage: limiterStore,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().
		Str("address", cfg.HTTPAddress()).
		Str("sandbox_driver", cfg.SandboxDriver).
		Msg("api started")

	waitForShutdown(app)
}

func buildRunner(cfg config.Config, logger zerolog.Logger) (sandbox.Runner, func()) {
	if cfg.SandboxDriver == config.SandboxDriverDocker {
		runner, err := sandbox.NewDockerRunner(sandbox.DockerConfig{
			Host:          cfg.DockerHost,
			Timeout:       cfg.ExecutionTimeout,
			MemoryLimitMB: int64(cfg.CodeRunMemoryMB),
			CPUShares:     int64(cfg.CodeRunCPUShares),
			OutputLimit:   cfg.OutputLimitBytes,
			Logger:        logger,
		})
		if err != nil {
			log.Fatalf("failed to create docker sandbox: %v", err)
		}
		return runner, func() { _ = runner.Close() }
	}

	runner := sandbox.NewLocalRunner(sandbox.LocalConfig{
		Timeout:     cfg.ExecutionTimeout,
		OutputLimit: cfg.OutputLimitBytes,
		Logger:      logger,
	})
	return runner, func() {}
}

// buildAssistant returns nil when no provider is configured.
func buildAssistant(cfg config.Config, logger zerolog.Logger) ai.Assistant {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("openai api key not set, assistant endpoints disabled")
		return nil
	}

	assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to create assistant: %v", err)
	}
	return assistant
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
