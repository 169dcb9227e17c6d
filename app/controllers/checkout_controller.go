package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/madaniagency/licensee-checkout/internal/pkg/metrics/counter"
	"github.com/madaniagency/licensee-checkout/internal/pkg/upgrade"
)

// Step values accepted by the checkout endpoint. An absent or unknown step
// falls through to the plain checkout flow.
const (
	StepGetInfo               = "getInfo"
	StepTerminateMembership   = "terminateMembership"
	StepCreatePlanAndCheckout = "createPlanAndCheckout"
	StepCreateCheckout        = "createCheckout"
)

var checkoutService *upgrade.Service

// SetCheckoutService wires the upgrade service used by the checkout and
// webhook handlers. Called once at startup; tests swap in fakes.
func SetCheckoutService(svc *upgrade.Service) {
	checkoutService = svc
}

type getInfoResponse struct {
	Success bool `json:"success"`
	upgrade.GetInfoResult
}

// HandleCheckout dispatches the multi-step checkout protocol. Each step is a
// separate stateless POST; the client round-trips all prior results as form
// fields.
func HandleCheckout(c *fiber.Ctx) error {
	svc := checkoutService
	if svc == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server configuration error: checkout service not initialized."})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	step := c.Query("step", StepCreateCheckout)
	if err := counter.AddStep(counterStep(step)); err != nil {
		fiberlog.Debug(fmt.Sprintf("checkout: step counter not recorded: %v", err))
	}

	switch step {
	case StepGetInfo:
		var in upgrade.GetInfoInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
		}
		ipv4, ipv6 := GetClientIP(c)
		fiberlog.Info(fmt.Sprintf("checkout: upgrade quote requested for licensee %s (ipv4=%s ipv6=%s)", in.LicenseeID, ipv4, ipv6))
		result, err := svc.GetInfo(ctx, in)
		if err != nil {
			return checkoutError(c, step, err)
		}
		return c.Status(fiber.StatusOK).JSON(getInfoResponse{Success: true, GetInfoResult: *result})

	case StepTerminateMembership:
		var in upgrade.TerminateInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
		}
		if err := svc.TerminateMembership(ctx, in); err != nil {
			return checkoutError(c, step, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})

	case StepCreatePlanAndCheckout:
		var in upgrade.CreatePlanAndCheckoutInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
		}
		result, err := svc.CreatePlanAndCheckout(ctx, in)
		if err != nil {
			return checkoutError(c, step, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "purchase_url": result.PurchaseURL})

	default:
		var in upgrade.CreateCheckoutInput
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
		}
		result, err := svc.CreateCheckout(ctx, in)
		if err != nil {
			return checkoutError(c, step, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "purchase_url": result.PurchaseURL})
	}
}

// checkoutError maps the orchestrator error taxonomy to HTTP statuses. Every
// failure becomes a single {error} payload; there are no partial successes.
// counterStep clamps the raw query value to the known steps so arbitrary
// client strings cannot grow the counter hash without bound.
func counterStep(step string) string {
	switch step {
	case StepGetInfo, StepTerminateMembership, StepCreatePlanAndCheckout, StepCreateCheckout:
		return step
	}
	return "other"
}

func checkoutError(c *fiber.Ctx, step string, err error) error {
	_ = counter.AddStepError(counterStep(step))

	flowErr, ok := upgrade.AsError(err)
	if !ok {
		fiberlog.Error(fmt.Sprintf("checkout: unclassified error: %v", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error."})
	}

	status := fiber.StatusInternalServerError
	message := flowErr.Message

	switch flowErr.Kind {
	case upgrade.KindConfigurationMissing:
		status = fiber.StatusInternalServerError
	case upgrade.KindValidationFailed:
		status = fiber.StatusBadRequest
		if flowErr.Field != "" {
			message = fmt.Sprintf("Field %s %s.", flowErr.Field, flowErr.Message)
		}
	case upgrade.KindNotFound:
		status = fiber.StatusNotFound
	case upgrade.KindPermissionDenied:
		status = fiber.StatusForbidden
	case upgrade.KindUpstreamError:
		status = fiber.StatusInternalServerError
		if flowErr.VendorStatus > 0 {
			status = flowErr.VendorStatus
		}
	}

	if status >= fiber.StatusInternalServerError {
		fiberlog.Error(fmt.Sprintf("checkout: %v", err))
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
