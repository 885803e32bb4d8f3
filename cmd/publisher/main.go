package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/api/handlers"
	"github.com/maheshrc27/postflow-publisher/internal/api/middleware"
	"github.com/maheshrc27/postflow-publisher/internal/database"
	job "github.com/maheshrc27/postflow-publisher/internal/jobs"
	"github.com/maheshrc27/postflow-publisher/internal/queue"
	"github.com/maheshrc27/postflow-publisher/internal/repository"
	"github.com/maheshrc27/postflow-publisher/internal/service"
	"github.com/robfig/cron"
)

const (
	apiRequestTimeout = 2 * time.Minute
	drainTimeout      = 10 * time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	store := repository.NewPostgresStore(db)
	scheduleRepo := repository.NewScheduleRepository(store)
	productRepo := repository.NewProductRepository(store)
	credentialRepo := repository.NewCredentialRepository(store)

	credentialService, err := service.NewCredentialService(*cfg, credentialRepo)
	if err != nil {
		log.Fatalf("Invalid SECRET_KEY: %v", err)
	}
	contentService := service.NewContentService()

	apiClient := func() *http.Client {
		return service.NewPlatformHTTPClient(nil, cfg.PlatformRatePerSec, apiRequestTimeout)
	}
	uploadClient := service.NewPlatformHTTPClient(nil, cfg.PlatformRatePerSec, 0)
	mediaService := service.NewMediaService(*cfg, uploadClient)

	youtubeService := service.NewYoutubeService(*cfg, uploadClient, mediaService)
	registry := service.NewRegistry(
		service.NewFacebookService(*cfg, apiClient()),
		service.NewInstagramService(*cfg, apiClient()),
		service.NewTwitterService(*cfg, apiClient(), mediaService),
		youtubeService,
	)

	dispatchJob := job.NewDispatchJob(*cfg, scheduleRepo, productRepo, credentialService, contentService, registry)
	ticker := job.NewTicker(cfg.TickInterval, dispatchJob.Tick)

	var (
		driver      *queue.Driver
		asynqClient *asynq.Client
	)
	switch cfg.TickDriver {
	case config.TickDriverAsynq:
		redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
		driver = queue.NewDriver(redisConn, cfg.TickInterval, queue.NewQueue(ticker))
		if err := driver.Start(); err != nil {
			log.Fatalf("Could not start Asynq tick driver: %v", err)
		}
		asynqClient = asynq.NewClient(redisConn)
		defer asynqClient.Close()
	default:
		if err := ticker.Start(); err != nil {
			log.Fatalf("Could not start dispatch ticker: %v", err)
		}
	}

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(credentialService, youtubeService)

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", cfg.TokenRefreshInterval), refreshTokenJob.RefreshTokens); err != nil {
		log.Fatalf("Could not schedule token refresh: %v", err)
	}
	c.Start()

	var app *fiber.App
	if cfg.OpsAddr != "" {
		app = fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				slog.Error("ops request failed", "path", c.Path(), "error", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			},
		})
		app.Use(logger.New())

		status := handlers.NewStatusHandler(dispatchJob, ticker)
		if asynqClient != nil {
			status.WithEnqueue(func() error {
				return queue.EnqueueTick(asynqClient, queue.DispatchTickPayload{Trigger: queue.TriggerManual}, 0)
			})
		}

		var protect fiber.Handler
		if cfg.OpsToken != "" {
			protect = middleware.NewAuthMiddleware(*cfg).AuthMiddleware()
		} else {
			log.Println("Warning: OPS_TOKEN is empty, manual ticks are disabled")
		}
		status.Register(app, protect)

		go func() {
			if err := app.Listen(cfg.OpsAddr); err != nil {
				log.Fatalf("Failed to start ops server: %v", err)
			}
		}()
		log.Printf("Ops server is running on %s", cfg.OpsAddr)
	}

	log.Printf("Publisher started with %s tick driver every %s", cfg.TickDriver, cfg.TickInterval)
	gracefulShutdown(app, c, driver, ticker, dispatchJob)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

// gracefulShutdown stops new ticks, then waits for every dispatched schedule
// to be finalized before returning.
func gracefulShutdown(app *fiber.App, c *cron.Cron, driver *queue.Driver, ticker *job.Ticker, dispatchJob *job.DispatchJob) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down publisher...")

	c.Stop()
	if driver != nil {
		driver.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := ticker.Stop(ctx); err != nil {
		log.Printf("Dispatch tick did not drain: %v", err)
	}
	if err := dispatchJob.Drain(ctx); err != nil {
		log.Printf("Dispatched schedules did not drain: %v", err)
	}

	if app != nil {
		if err := app.Shutdown(); err != nil {
			log.Printf("Failed to shut down ops server: %v", err)
		}
	}

	log.Println("Publisher shutdown complete.")
}
