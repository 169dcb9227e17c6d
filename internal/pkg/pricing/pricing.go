package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	// The vendor bills every plan on a fixed 30-day period, so proration uses a
	// nominal 30-day cycle regardless of calendar month length.
	NominalCycleDays = 30

	secondsPerDay = 86400
)

// VATRate is the Italian VAT applied to display prices. The pre-VAT values are
// canonical; VAT-inclusive amounts are derived for presentation only.
var VATRate = decimal.NewFromFloat(0.22)

// BillingCycle holds the current cycle bounds of a membership in epoch seconds.
// A valid active cycle has RenewalTimestamp > StartTimestamp and contains now.
type BillingCycle struct {
	StartTimestamp   int64
	RenewalTimestamp int64
}

// ActiveAt reports whether now falls inside the cycle's [start, renewal) window.
func (c BillingCycle) ActiveAt(now int64) bool {
	return c.StartTimestamp < now && c.RenewalTimestamp > now
}

// ProrationQuote is the computed upgrade pricing for a single added seat. It is
// valid only for the instant it was computed. Monetary values are pre-VAT and
// unrounded; rounding to 2 decimals happens at the vendor boundary so the three
// quote fields don't accumulate rounding error against each other.
type ProrationQuote struct {
	RemainingDays               int
	ProratedInitialChargePreVat decimal.Decimal
	NewRenewalPricePreVat       decimal.Decimal
	NewAccountCount             int
}

// RemainingDays returns the whole days left in the cycle, rounding partial days
// up. An expired or not-yet-started cycle yields 0.
func RemainingDays(cycle BillingCycle, now int64) int {
	if !cycle.ActiveAt(now) {
		return 0
	}
	remainingSeconds := cycle.RenewalTimestamp - now
	return int((remainingSeconds + secondsPerDay - 1) / secondsPerDay)
}

// ComputeQuote prices an upgrade that adds exactly one seat to a membership.
//
// The initial charge covers the remaining days of the old cycle at a daily rate
// of unitPricePerCycle/30. The new renewal price is the full per-cycle price for
// the increased seat count. An inactive cycle gets no proration credit: zero
// remaining days, zero initial charge, zero trial.
func ComputeQuote(cycle BillingCycle, currentAccountCount int, unitPricePerCycle decimal.Decimal, now int64) ProrationQuote {
	remainingDays := RemainingDays(cycle, now)

	dailyRate := unitPricePerCycle.Div(decimal.NewFromInt(NominalCycleDays))
	proratedInitial := dailyRate.Mul(decimal.NewFromInt(int64(remainingDays)))

	newAccountCount := currentAccountCount + 1
	newRenewal := unitPricePerCycle.Mul(decimal.NewFromInt(int64(newAccountCount)))

	return ProrationQuote{
		RemainingDays:               remainingDays,
		ProratedInitialChargePreVat: proratedInitial,
		NewRenewalPricePreVat:       newRenewal,
		NewAccountCount:             newAccountCount,
	}
}

// WithVAT derives the VAT-inclusive presentation value for a pre-VAT amount.
func WithVAT(preVat decimal.Decimal) decimal.Decimal {
	return preVat.Mul(decimal.NewFromInt(1).Add(VATRate))
}

// VendorAmount rounds a pre-VAT amount to the 2 decimal places the vendor API
// accepts. Only call this at the point a value is sent upstream.
func VendorAmount(preVat decimal.Decimal) decimal.Decimal {
	return preVat.Round(2)
}
