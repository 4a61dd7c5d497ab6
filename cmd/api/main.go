package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"talentrank/internal/config"
	"talentrank/internal/handlers"
	"talentrank/internal/repositories"
	"talentrank/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize repositories
	taskRepo := repositories.NewTaskRepository()
	log.Println("✅ Repositories initialized successfully")

	// Initialize services
	scoringService := services.NewScoringService(cfg.Scoring, services.DefaultProviderFactory(cfg))
	cancels := services.NewCancelRegistry()
	runner := services.NewTaskRunner(taskRepo, scoringService, cancels)
	log.Println("✅ Services initialized successfully")

	// Initialize worker
	worker := services.NewWorker(
		taskRepo,
		runner,
		cfg.Worker.Concurrency,
	)
	log.Println("✅ Worker initialized successfully")

	// Start worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)
	log.Println("✅ Worker started successfully")

	// Task manager drives the lifecycle; the janitor sweeps expired tasks.
	taskManager := services.NewTaskManager(taskRepo, worker, cancels, cfg.Task)
	taskManager.StartJanitor(ctx)

	// Initialize handlers
	scoreHandler := handlers.NewScoreHandler(taskManager)
	statusHandler := handlers.NewStatusHandler(taskManager)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "TalentRank API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// API endpoints
	api.Post("/score", scoreHandler.HandleScore)
	api.Get("/score/:id", statusHandler.HandleGetStatus)
	api.Delete("/score/:id", statusHandler.HandleDeleteTask)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "TalentRank API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/score",
				"GET /api/v1/score/:id",
				"DELETE /api/v1/score/:id",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		cancel()
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
