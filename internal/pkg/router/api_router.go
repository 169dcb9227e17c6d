package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/madaniagency/licensee-checkout/app/controllers"
	"github.com/madaniagency/licensee-checkout/internal/pkg/metrics/counter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Multi-step checkout protocol, dispatched on the step query parameter.
	api.Post("/checkout", controllers.HandleCheckout)

	// Per-step traffic counters accumulated in Redis.
	api.Get("/stats", func(ctx *fiber.Ctx) error {
		steps, err := counter.StepCounts()
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "counters_unavailable"})
		}
		stepErrors, err := counter.StepErrorCounts()
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "counters_unavailable"})
		}
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"steps": steps, "errors": stepErrors})
	})

	// Vendor webhook; the limiter stays off this route so retries from the
	// vendor are never dropped.
	app.Post("/api/webhooks/whop", controllers.HandleCheckoutWebhook)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
