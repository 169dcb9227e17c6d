package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRemainingDays(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name  string
		cycle BillingCycle
		want  int
	}{
		{
			name:  "ten full days remaining",
			cycle: BillingCycle{StartTimestamp: now - 20*86400, RenewalTimestamp: now + 10*86400},
			want:  10,
		},
		{
			name:  "partial day rounds up",
			cycle: BillingCycle{StartTimestamp: now - 86400, RenewalTimestamp: now + 86400 + 1},
			want:  2,
		},
		{
			name:  "renewal already passed",
			cycle: BillingCycle{StartTimestamp: now - 40*86400, RenewalTimestamp: now - 10*86400},
			want:  0,
		},
		{
			name:  "renewal exactly now",
			cycle: BillingCycle{StartTimestamp: now - 30*86400, RenewalTimestamp: now},
			want:  0,
		},
		{
			name:  "cycle not started yet",
			cycle: BillingCycle{StartTimestamp: now + 86400, RenewalTimestamp: now + 31*86400},
			want:  0,
		},
	}

	for _, tt := range tests {
		if got := RemainingDays(tt.cycle, now); got != tt.want {
			t.Fatalf("%s: RemainingDays() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestComputeQuote_ActiveCycle(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC).Unix()
	cycle := BillingCycle{
		StartTimestamp:   now - 20*86400,
		RenewalTimestamp: now + 10*86400,
	}
	unit := decimal.RequireFromString("100.00")

	q := ComputeQuote(cycle, 2, unit, now)

	if q.RemainingDays != 10 {
		t.Fatalf("RemainingDays = %d, want 10", q.RemainingDays)
	}
	if q.NewAccountCount != 3 {
		t.Fatalf("NewAccountCount = %d, want 3", q.NewAccountCount)
	}
	if got := VendorAmount(q.ProratedInitialChargePreVat); got.String() != "33.33" {
		t.Fatalf("rounded initial charge = %s, want 33.33", got)
	}
	if !q.NewRenewalPricePreVat.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("NewRenewalPricePreVat = %s, want 300", q.NewRenewalPricePreVat)
	}
}

func TestComputeQuote_ExpiredCycle(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC).Unix()
	cycle := BillingCycle{
		StartTimestamp:   now - 40*86400,
		RenewalTimestamp: now - 10*86400,
	}

	q := ComputeQuote(cycle, 5, decimal.RequireFromString("100.00"), now)

	if q.RemainingDays != 0 {
		t.Fatalf("RemainingDays = %d, want 0", q.RemainingDays)
	}
	if !q.ProratedInitialChargePreVat.IsZero() {
		t.Fatalf("ProratedInitialChargePreVat = %s, want 0", q.ProratedInitialChargePreVat)
	}
	if q.NewAccountCount != 6 {
		t.Fatalf("NewAccountCount = %d, want 6", q.NewAccountCount)
	}
	if !q.NewRenewalPricePreVat.Equal(decimal.RequireFromString("600")) {
		t.Fatalf("NewRenewalPricePreVat = %s, want 600", q.NewRenewalPricePreVat)
	}
}

func TestComputeQuote_RenewalPriceScalesWithSeats(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC).Unix()
	cycle := BillingCycle{StartTimestamp: now - 86400, RenewalTimestamp: now + 15*86400}
	unit := decimal.RequireFromString("49.90")

	for _, count := range []int{0, 1, 2, 7} {
		q := ComputeQuote(cycle, count, unit, now)
		if q.NewAccountCount != count+1 {
			t.Fatalf("NewAccountCount = %d, want %d", q.NewAccountCount, count+1)
		}
		want := unit.Mul(decimal.NewFromInt(int64(count + 1)))
		if !q.NewRenewalPricePreVat.Equal(want) {
			t.Fatalf("NewRenewalPricePreVat = %s, want %s", q.NewRenewalPricePreVat, want)
		}
	}
}

func TestComputeQuote_RoundingOnlyAtBoundary(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC).Unix()
	cycle := BillingCycle{StartTimestamp: now - 86400, RenewalTimestamp: now + 7*86400}
	unit := decimal.RequireFromString("99.99")

	q := ComputeQuote(cycle, 1, unit, now)

	// 99.99 / 30 * 7 = 23.331, unrounded beyond the vendor boundary.
	if got := VendorAmount(q.ProratedInitialChargePreVat); got.String() != "23.33" {
		t.Fatalf("rounded initial charge = %s, want 23.33", got)
	}
	if q.ProratedInitialChargePreVat.Equal(VendorAmount(q.ProratedInitialChargePreVat)) {
		t.Fatalf("expected intermediate value to keep full precision")
	}
}

func TestWithVAT(t *testing.T) {
	got := WithVAT(decimal.RequireFromString("100"))
	if !got.Equal(decimal.RequireFromString("122")) {
		t.Fatalf("WithVAT(100) = %s, want 122", got)
	}
}
