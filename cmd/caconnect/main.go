package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/caconnect/CAConnect/app/repository"
	"github.com/caconnect/CAConnect/internal/pkg/cache"
	"github.com/caconnect/CAConnect/internal/pkg/database"
	"github.com/caconnect/CAConnect/internal/pkg/docstore"
	"github.com/caconnect/CAConnect/internal/pkg/env"
	"github.com/caconnect/CAConnect/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	store, err := docstore.NewS3Store(context.Background())
	if err != nil {
		log.Fatalf("document store initialization failed: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:   "CAConnect",
		BodyLimit: 30 * 1024 * 1024,
	})

	app.Use(recover.New(), logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	router.InstallRouter(app, store)

	return app
}
