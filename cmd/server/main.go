package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"knowledge_platform/internal/api"
	"knowledge_platform/internal/app/service"
	"knowledge_platform/internal/app/worker"
	"knowledge_platform/internal/common/security"
	"knowledge_platform/internal/domain/repository"
	"knowledge_platform/internal/platform/config"
	"knowledge_platform/internal/platform/database"
	"knowledge_platform/internal/platform/logger"
	"knowledge_platform/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	lg, err := logger.New(config.AppConfig.AppEnv)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer lg.Sync()
	lg.Info("configuration loaded", "env", config.AppConfig.AppEnv)

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	if err := database.Connect(config.AppConfig.DBConnStr); err != nil {
		lg.Fatal("database connection failed", "error", err)
	}
	defer database.Close()
	lg.Info("database connected")

	// 4. Initialize Redis
	if err := queue.ConnectRedis(); err != nil {
		lg.Fatal("redis connection failed", "error", err)
	}
	defer queue.CloseRedis()
	lg.Info("redis connected")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	courseRepo := repository.NewPgCourseRepository(database.DB)

	// 6. Initialize Services
	cleanupService := service.NewFileCleanupService(queue.RDB, lg)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)
	courseService := service.NewCourseService(courseRepo, userRepo, cleanupService, lg)
	uploadService := service.NewUploadService()

	// 7. Start the file cleanup worker
	cleanupWorker := worker.NewCleanupWorker(queue.RDB, lg)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go cleanupWorker.Start(workerCtx)

	// 8. Schedule the orphaned-upload sweep
	sweeper := worker.NewOrphanSweeper(courseRepo, lg)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(config.AppConfig.OrphanSweepSpec, sweeper.Sweep); err != nil {
		lg.Fatal("invalid orphan sweep schedule", "spec", config.AppConfig.OrphanSweepSpec, "error", err)
	}
	scheduler.Start()

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(authService, userService, courseService, uploadService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		lg.Info("server starting", "port", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server failed", "error", err)
		}
	}()

	<-stop // Wait for interrupt signal

	lg.Info("shutting down")
	workerCancel()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Fatal("server shutdown failed", "error", err)
	}

	lg.Info("server and workers stopped")
}
