// Package server exposes a thin HTTP status surface next to the bot, mainly
// for container health checks.
package server

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"vagonetka-bot/internal/albums"
	"vagonetka-bot/internal/queue"
)

// New builds the status app.
func New(q *queue.Queue, aggregator *albums.Aggregator, version string) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":        version,
			"queue_length":   q.Len(),
			"pending_albums": aggregator.Pending(),
		})
	})

	return app
}

// Listen starts the app on the given port; intended to run in its own
// goroutine.
func Listen(app *fiber.App, port int) {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Status server listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("Status server stopped: %v", err)
	}
}
