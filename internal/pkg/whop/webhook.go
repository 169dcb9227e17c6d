package whop

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Webhook actions we react to. Everything else is stored and acknowledged.
const (
	ActionMembershipWentValid = "membership.went_valid"
	ActionPaymentSucceeded    = "payment.succeeded"
)

// WebhookEvent is a parsed vendor webhook notification.
type WebhookEvent struct {
	Action       string
	MembershipID string
	PlanID       string
	Metadata     map[string]string
}

// EventID derives a stable identifier for deduplication. The vendor does not
// send a dedicated event id, so the action plus the membership id serves.
func (e *WebhookEvent) EventID() string {
	return e.Action + ":" + e.MembershipID
}

// IsCheckoutCompletion reports whether the event signals a finished checkout.
func (e *WebhookEvent) IsCheckoutCompletion() bool {
	return e.Action == ActionMembershipWentValid || e.Action == ActionPaymentSucceeded
}

// UpgradeID returns the upgrade id attached to the plan metadata at checkout
// creation, or "" for events outside the upgrade flow.
func (e *WebhookEvent) UpgradeID() string {
	return e.Metadata["upgradeId"]
}

// ParseWebhookEvent decodes a vendor webhook payload. Metadata values arrive
// as arbitrary JSON scalars and are normalized to strings.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var raw struct {
		Action string `json:"action"`
		Data   struct {
			ID       string                 `json:"id"`
			Plan     string                 `json:"plan"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	action := strings.TrimSpace(raw.Action)
	if action == "" {
		return nil, fmt.Errorf("parse webhook payload: missing action")
	}

	event := &WebhookEvent{
		Action:       action,
		MembershipID: raw.Data.ID,
		PlanID:       raw.Data.Plan,
		Metadata:     make(map[string]string, len(raw.Data.Metadata)),
	}
	for k, v := range raw.Data.Metadata {
		switch val := v.(type) {
		case string:
			event.Metadata[k] = val
		case float64:
			event.Metadata[k] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
		case bool:
			event.Metadata[k] = fmt.Sprintf("%t", val)
		case nil:
			// skip
		default:
			b, err := json.Marshal(val)
			if err == nil {
				event.Metadata[k] = string(b)
			}
		}
	}
	return event, nil
}
