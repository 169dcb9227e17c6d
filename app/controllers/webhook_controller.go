package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/madaniagency/licensee-checkout/internal/pkg/env"
	"github.com/madaniagency/licensee-checkout/internal/pkg/upgrade"
	"github.com/madaniagency/licensee-checkout/internal/pkg/whop"
)

// HandleCheckoutWebhook receives vendor notifications about finished checkouts.
// Every payload is persisted before processing; duplicates are acknowledged
// without reprocessing so vendor retries stay harmless.
func HandleCheckoutWebhook(c *fiber.Ctx) error {
	svc := checkoutService
	if svc == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_service_unavailable"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Whop-Signature"))
	secret := env.GetEnv("WHOP_WEBHOOK_SECRET", "")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := whop.VerifyWebhookSignature(rawBody, signature, secret)

	event, parseErr := whop.ParseWebhookEvent(rawBody)
	eventID := ""
	eventType := ""
	if parseErr == nil {
		eventID = event.EventID()
		eventType = event.Action
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, upgrade.WebhookEventInput{
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if parseErr != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, parseErr)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if !event.IsCheckoutCompletion() {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	// Only upgrade checkouts carry an upgrade id; fixed-plan checkouts have
	// nothing to close out.
	var processErr error
	if upgradeID := event.UpgradeID(); upgradeID != "" {
		if err := svc.CompleteUpgrade(ctx, upgradeID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			processErr = err
		}
	}
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, processErr)
	if processErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upgrade_update_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
