package whop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		APIKey:     "test-key",
		ProductID:  "prod_123",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}
}

func TestGetMembership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/memberships/mem_1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                   "mem_1",
			"status":               "active",
			"renewal_period_start": 1700000000,
			"renewal_period_end":   1702592000,
		})
	}))
	defer srv.Close()

	m, err := newTestClient(srv).GetMembership(context.Background(), "mem_1")
	require.NoError(t, err)
	assert.Equal(t, "mem_1", m.ID)
	assert.Equal(t, int64(1700000000), m.RenewalPeriodStart)
	assert.Equal(t, int64(1702592000), m.RenewalPeriodEnd)
}

func TestGetMembership_MissingCycleTimestamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "mem_1", "status": "active"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).GetMembership(context.Background(), "mem_1")
	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "billing cycle")
}

func TestTerminateMembership_VendorErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/memberships/mem_1/terminate", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "cannot terminate a canceled subscription"},
		})
	}))
	defer srv.Close()

	err := newTestClient(srv).TerminateMembership(context.Background(), "mem_1")
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "cannot terminate a canceled subscription", apiErr.Message)
	assert.True(t, IsAlreadyTerminated(err))
}

func TestCreatePlan(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plans", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "plan_new"})
	}))
	defer srv.Close()

	planID, err := newTestClient(srv).CreatePlan(context.Background(), CreatePlanInput{
		RenewalPrice: decimal.RequireFromString("300"),
		InitialPrice: decimal.RequireFromString("33.333333333333333"),
		TrialDays:    10,
		Metadata:     map[string]string{"licenseeId": "lic_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "plan_new", planID)

	assert.Equal(t, "prod_123", got["product_id"])
	assert.Equal(t, "renewal", got["plan_type"])
	assert.Equal(t, float64(30), got["billing_period"])
	assert.Equal(t, "eur", got["currency"])
	assert.Equal(t, "hidden", got["visibility"])
	assert.Equal(t, float64(10), got["trial_period_days"])
	// Rounded to 2 decimals at the vendor boundary.
	assert.Equal(t, 33.33, got["initial_price"])
	assert.Equal(t, float64(300), got["renewal_price"])
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout_sessions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "plan_new", body["plan_id"])
		assert.Equal(t, "https://example.com/ok", body["redirect_url"])
		_ = json.NewEncoder(w).Encode(map[string]any{"purchase_url": "https://whop.com/checkout/abc"})
	}))
	defer srv.Close()

	url, err := newTestClient(srv).CreateCheckoutSession(context.Background(), CreateCheckoutInput{
		PlanID:      "plan_new",
		Metadata:    map[string]string{"email": "mario.rossi@example.com"},
		RedirectURL: "https://example.com/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://whop.com/checkout/abc", url)
}

func TestCreateCheckoutSession_MissingPurchaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "chk_1"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateCheckoutSession(context.Background(), CreateCheckoutInput{PlanID: "plan_new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purchase_url")
}

func TestDo_MissingAPIKey(t *testing.T) {
	c := &Client{APIBaseURL: "http://localhost:0"}
	_, err := c.GetMembership(context.Background(), "mem_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WHOP_API_KEY")
}
