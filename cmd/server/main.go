package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/api/handlers"
	"github.com/maheshrc27/reels-poster/internal/api/middleware"
	job "github.com/maheshrc27/reels-poster/internal/jobs"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/queue"
	"github.com/maheshrc27/reels-poster/internal/repository"
	"github.com/maheshrc27/reels-poster/internal/service"
	"github.com/robfig/cron"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduleRepo, err := repository.NewScheduleRepository(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to set up schedule storage: %v", err)
	}

	graphClient := service.NewGraphClient(*cfg, nil)
	instagramService := service.NewInstagramService(*cfg, graphClient)
	publishJob := job.NewPublishJob(*cfg, scheduleRepo, instagramService)
	runner := queue.NewRunner(ctx, publishJob)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Minute,
		WriteTimeout: 15 * time.Minute,
		BodyLimit:    64 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	run := handlers.NewRunHandler(runner, *cfg)
	app.Get("/health", run.Health)
	app.Get("/last", run.Last)
	app.Post("/run", authMiddleware.AuthMiddleware(), run.Run)

	// background loop
	var c *cron.Cron
	if cfg.RunLoop {
		c = startLoop(runner, *cfg)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

	gracefulShutdown(app, c, runner, cancel)
}

func startLoop(runner *queue.Runner, cfg config.Config) *cron.Cron {
	opts := models.RunOptions{
		WindowMin: cfg.WindowMin,
		DryRun:    cfg.DryRun,
		AlsoStory: cfg.AlsoStory,
		MaxItems:  cfg.MaxItems,
	}
	interval := cfg.Interval
	if interval < time.Second {
		interval = time.Minute
	}

	tick := func() {
		if _, ok := runner.TryDispatch(opts); !ok {
			log.Println("Previous cycle still running, skipping tick")
		}
	}

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", interval), tick); err != nil {
		log.Fatalf("Failed to schedule background loop: %v", err)
	}
	tick()
	c.Start()
	log.Printf("Background loop every %s (window %d min)", interval, opts.WindowMin)
	return c
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, runner *queue.Runner, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if c != nil {
		c.Stop()
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}

	cancel()
	runner.Wait()
	log.Println("Server shutdown complete.")
}
