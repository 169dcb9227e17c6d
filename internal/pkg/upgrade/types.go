package upgrade

import (
	"github.com/madaniagency/licensee-checkout/internal/pkg/registry"
)

// The Italian dialing prefix applied to the bare digits collected by the form.
const phonePrefix = "+39"

// ContactFields are the contact/company details round-tripped through every
// step and attached to the checkout session as vendor metadata.
type ContactFields struct {
	CompanyName    string `form:"companyName" json:"companyName" validate:"required"`
	FirstName      string `form:"firstName" json:"firstName" validate:"required"`
	LastName       string `form:"lastName" json:"lastName" validate:"required"`
	Email          string `form:"email" json:"email" validate:"required,email"`
	RawPhone       string `form:"rawPhone" json:"rawPhone" validate:"required,number,min=9,max=10"`
	CompanyWebsite string `form:"companyWebsite" json:"companyWebsite" validate:"omitempty,url"`
	CompanyLogoURL string `form:"companyLogoUrl" json:"companyLogoUrl" validate:"omitempty,url"`
}

// Phone returns the E.164 number sent to the vendor.
func (c ContactFields) Phone() string {
	return phonePrefix + c.RawPhone
}

// GetInfoInput starts an upgrade: resolve the licensee, fetch the billing
// cycle and quote the added seat.
type GetInfoInput struct {
	LicenseeID string `form:"licenseeId" validate:"required"`
	ContactFields
}

// GetInfoResult carries everything the client needs to render the summary and
// to drive the later steps. All pricing values are pre-VAT unless suffixed.
type GetInfoResult struct {
	UpgradeID string                  `json:"upgradeId"`
	Licensee  registry.LicenseeRecord `json:"licensee"`

	StartTimestamp   int64  `json:"startTimestamp"`
	RenewalTimestamp int64  `json:"renewalTimestamp"`
	NextCycleInfo    string `json:"nextCycleInfo"`

	RemainingDays               int    `json:"remainingDays"`
	ProratedInitialChargePreVat string `json:"proratedInitialChargePreVat"`
	NewRenewalPricePreVat       string `json:"newRenewalPricePreVat"`
	NewAccountCount             int    `json:"newAccountCount"`

	// VAT-inclusive presentation values, derived for display only.
	ProratedInitialChargeWithVat string `json:"proratedInitialChargeWithVat"`
	NewRenewalPriceWithVat       string `json:"newRenewalPriceWithVat"`

	Contact ContactFields `json:"contact"`
}

// TerminateInput terminates the licensee's current membership. The upgrade id
// is round-tripped by the client to keep the step log attached.
type TerminateInput struct {
	MembershipID string `form:"membershipId" validate:"required"`
	UpgradeID    string `form:"upgradeId"`
}

// CreatePlanAndCheckoutInput creates the dynamic upgrade plan and the hosted
// checkout session. All calculation results come back from the client exactly
// as getInfo produced them.
type CreatePlanAndCheckoutInput struct {
	LicenseeID            string `form:"licenseeId" validate:"required"`
	OldMembershipID       string `form:"oldMembershipId" validate:"required"`
	OldRenewalTimestamp   int64  `form:"oldRenewalTimestamp" validate:"required,gt=0"`
	AccountCount          int    `form:"accountCount" validate:"min=0"`
	RemainingDays         int    `form:"remainingDays" validate:"min=0"`
	ProratedInitialPreVat string `form:"proratedInitialChargePreVat" validate:"required"`
	NewRenewalPricePreVat string `form:"newRenewalPricePreVat" validate:"required"`
	UpgradeID             string `form:"upgradeId"`
	ContactFields
}

// CreateCheckoutInput is the simple flow: checkout against a fixed plan, no
// pricing step. isClientActivation selects which configured plan is used.
type CreateCheckoutInput struct {
	IsClientActivation bool   `form:"isClientActivation"`
	LicenseeID         string `form:"licenseeId"`
	ContactFields
}

// CheckoutResult is the terminal output of both checkout paths.
type CheckoutResult struct {
	PurchaseURL string `json:"purchase_url"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
