package router

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/madaniagency/licensee-checkout/app/controllers"
	"github.com/madaniagency/licensee-checkout/internal/pkg/database"
	"github.com/madaniagency/licensee-checkout/internal/pkg/registry"
	"github.com/madaniagency/licensee-checkout/internal/pkg/upgrade"
	"github.com/madaniagency/licensee-checkout/internal/pkg/whop"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Wire the checkout service before the API routes register against it.
	initializeCheckoutService()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"service": "licensee-checkout",
			"docs":    "/docs/api/v1",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		dbState := "up"
		if db := database.GetDB(); db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
				dbState = "down"
				status = fiber.StatusServiceUnavailable
			}
		} else {
			dbState = "down"
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"status": "ok", "database": dbState})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// initializeCheckoutService builds the registry lookup, vendor client and
// step-log repository and hands the assembled service to the controllers.
// Wiring failures are logged, not fatal: the endpoint then answers every
// request with a configuration error instead of taking the process down.
func initializeCheckoutService() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sheetsLookup, err := registry.NewSheetsLookupFromEnv(ctx)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("checkout service not wired: registry setup failed: %v", err))
		return
	}
	lookup := registry.NewCachedLookup(sheetsLookup)

	var repo upgrade.Repository
	if db := database.GetDB(); db != nil {
		repo = upgrade.NewRepository(db)
	}

	svc, err := upgrade.NewServiceFromEnv(lookup, whop.NewClientFromEnv(), repo)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("checkout service not wired: %v", err))
		return
	}
	controllers.SetCheckoutService(svc)
}
