package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/madaniagency/licensee-checkout/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.whop.com/api/v2"

const (
	// The vendor bills every plan we create on a fixed 30-day period.
	billingPeriodDays = 30

	planTypeRenewal = "renewal"
	planVisibility  = "hidden"
	planCurrency    = "eur"
)

// Client talks to the Whop v2 REST API. All monetary fields sent upstream are
// rounded to 2 decimal places at this boundary.
type Client struct {
	APIKey     string
	ProductID  string
	APIBaseURL string

	HTTPClient *http.Client
}

// Membership is the subset of the vendor membership object the upgrade flow
// needs: the current billing cycle bounds in epoch seconds.
type Membership struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	RenewalPeriodStart int64  `json:"renewal_period_start"`
	RenewalPeriodEnd   int64  `json:"renewal_period_end"`
}

// CreatePlanInput describes the dynamic upgrade plan created per transaction.
type CreatePlanInput struct {
	RenewalPrice decimal.Decimal
	InitialPrice decimal.Decimal
	TrialDays    int
	Metadata     map[string]string
}

// CreateCheckoutInput describes a hosted checkout session against a plan.
type CreateCheckoutInput struct {
	PlanID      string
	Metadata    map[string]string
	RedirectURL string
	CancelURL   string
}

func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("WHOP_API_KEY", "")),
		ProductID:  strings.TrimSpace(env.GetEnv("WHOP_PRODUCT_ID", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("WHOP_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetMembership fetches the membership's billing cycle bounds. A response with
// missing or non-positive cycle timestamps is treated as an upstream error.
func (c *Client) GetMembership(ctx context.Context, membershipID string) (*Membership, error) {
	id := strings.TrimSpace(membershipID)
	if id == "" {
		return nil, errors.New("membership id is required")
	}

	body, err := c.do(ctx, http.MethodGet, "/memberships/"+id, nil)
	if err != nil {
		return nil, err
	}

	var m Membership
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, &APIError{Op: "get membership", Message: "unparseable membership response: " + err.Error()}
	}
	if m.RenewalPeriodStart <= 0 || m.RenewalPeriodEnd <= 0 {
		return nil, &APIError{Op: "get membership", Message: "membership response missing billing cycle timestamps"}
	}
	if m.ID == "" {
		m.ID = id
	}
	return &m, nil
}

// TerminateMembership cancels a membership immediately. Callers that need the
// idempotent-by-policy contract should treat IsAlreadyTerminated errors as
// success.
func (c *Client) TerminateMembership(ctx context.Context, membershipID string) error {
	id := strings.TrimSpace(membershipID)
	if id == "" {
		return errors.New("membership id is required")
	}

	_, err := c.do(ctx, http.MethodPost, "/memberships/"+id+"/terminate", map[string]any{})
	return err
}

// CreatePlan creates a hidden per-upgrade renewal plan and returns its id.
func (c *Client) CreatePlan(ctx context.Context, in CreatePlanInput) (string, error) {
	if strings.TrimSpace(c.ProductID) == "" {
		return "", errors.New("WHOP_PRODUCT_ID is not configured")
	}
	if in.TrialDays < 0 {
		return "", errors.New("trial days must not be negative")
	}

	payload := map[string]any{
		"product_id":        c.ProductID,
		"plan_type":         planTypeRenewal,
		"billing_period":    billingPeriodDays,
		"currency":          planCurrency,
		"renewal_price":     in.RenewalPrice.Round(2).InexactFloat64(),
		"initial_price":     in.InitialPrice.Round(2).InexactFloat64(),
		"trial_period_days": in.TrialDays,
		"visibility":        planVisibility,
		"metadata":          in.Metadata,
	}

	body, err := c.do(ctx, http.MethodPost, "/plans", payload)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &APIError{Op: "create plan", Message: "unparseable plan response: " + err.Error()}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &APIError{Op: "create plan", Message: "plan response missing id"}
	}
	return out.ID, nil
}

// CreateCheckoutSession creates a hosted checkout session and returns the
// purchase URL the customer is redirected to.
func (c *Client) CreateCheckoutSession(ctx context.Context, in CreateCheckoutInput) (string, error) {
	if strings.TrimSpace(in.PlanID) == "" {
		return "", errors.New("plan id is required")
	}

	payload := map[string]any{
		"plan_id":  in.PlanID,
		"metadata": in.Metadata,
	}
	if in.RedirectURL != "" {
		payload["redirect_url"] = in.RedirectURL
	}
	if in.CancelURL != "" {
		payload["cancel_url"] = in.CancelURL
	}

	body, err := c.do(ctx, http.MethodPost, "/checkout_sessions", payload)
	if err != nil {
		return "", err
	}

	var out struct {
		PurchaseURL string `json:"purchase_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &APIError{Op: "create checkout session", Message: "unparseable checkout response: " + err.Error()}
	}
	if strings.TrimSpace(out.PurchaseURL) == "" {
		return "", &APIError{Op: "create checkout session", Message: "checkout response missing purchase_url"}
	}
	return out.PurchaseURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("WHOP_API_KEY is not configured")
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}

	base := strings.TrimRight(c.APIBaseURL, "/")
	if base == "" {
		base = defaultAPIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reqBody)
	if err != nil {
		return nil, err
	}
	// The vendor expects the raw API key in the Authorization header.
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whop request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Op:         method + " " + path,
			StatusCode: resp.StatusCode,
			Message:    vendorErrorMessage(body, resp.StatusCode),
		}
	}
	return body, nil
}

// vendorErrorMessage pulls the human-readable error text out of a vendor error
// body, falling back to the raw body or status code.
func vendorErrorMessage(body []byte, status int) string {
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		if msg := strings.TrimSpace(wrapped.Error.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(wrapped.Message); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("vendor returned status %d", status)
}
