package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/archive"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cache"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/database"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/env"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/router"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/scheduler"
)

func main() {
	app, sched := NewApplication()

	if env.GetEnvBool("SCHEDULER_ENABLED", true) {
		if err := sched.Start(); err != nil {
			log.Fatalf("[Main] Failed to start scheduler: %v", err)
		}
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("[Main] Shutting down...")
		sched.Stop()
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Errorf("[Main] Shutdown failed: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *scheduler.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	runner := batch.NewRunner(repository.GetGlobalFactory(), runnerOptions()...)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "PayMatrix",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, runner)

	return app, scheduler.NewManager(runner, scheduler.LoadConfig())
}

func runnerOptions() []batch.Option {
	lockTTL := time.Duration(env.GetEnvInt("BATCH_LOCK_TTL_MINUTES", 60)) * time.Minute
	opts := []batch.Option{
		batch.WithLocker(cache.NewLocker(cache.GetClient(), lockTTL)),
	}

	cfg, err := archive.LoadConfig()
	if err != nil {
		log.Warnf("[Main] Report archive disabled: %v", err)
		return opts
	}
	if !cfg.IsEnabled() {
		return opts
	}
	client, err := archive.NewClient(context.Background(), cfg)
	if err != nil {
		log.Warnf("[Main] Report archive disabled: %v", err)
		return opts
	}
	return append(opts, batch.WithArchiver(client))
}
