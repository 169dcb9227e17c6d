package models

import "time"

const (
	UpgradeStatusQuoted          = "quoted"
	UpgradeStatusTerminated      = "terminated"
	UpgradeStatusPlanCreated     = "plan_created"
	UpgradeStatusCheckoutCreated = "checkout_created"
	UpgradeStatusCompleted       = "completed"
	UpgradeStatusFailed          = "failed"
)

const (
	UpgradeStageTerminate  = "terminate"
	UpgradeStageCreatePlan = "create_plan"
	UpgradeStageCheckout   = "create_checkout"
)

// UpgradeRecord is the server-side step log of one seat upgrade. The client
// still drives the step sequence and round-trips the quote between calls; this
// record exists so a failure mid-sequence (membership terminated, no new plan)
// is visible to operators instead of silently lost.
type UpgradeRecord struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	UpgradeID        string `gorm:"type:varchar(36);not null;uniqueIndex" json:"upgrade_id"`
	LicenseeID       string `gorm:"type:varchar(100);not null;index" json:"licensee_id"`
	MembershipID     string `gorm:"type:varchar(100);not null;index" json:"membership_id"`
	AccountCount     int    `gorm:"not null" json:"account_count"`
	RenewalTimestamp int64  `gorm:"not null" json:"renewal_timestamp"`
	RemainingDays    int    `gorm:"not null" json:"remaining_days"`

	// Pre-VAT quote amounts, stored as decimal strings to avoid float drift.
	ProratedInitialPreVat string `gorm:"type:varchar(32);not null" json:"prorated_initial_pre_vat"`
	NewRenewalPricePreVat string `gorm:"type:varchar(32);not null" json:"new_renewal_price_pre_vat"`

	NewPlanID   string `gorm:"type:varchar(100)" json:"new_plan_id"`
	CheckoutURL string `gorm:"type:text" json:"checkout_url"`

	Status         string `gorm:"type:varchar(32);not null;default:'quoted';index" json:"status"`
	FailureStage   string `gorm:"type:varchar(32)" json:"failure_stage"`
	FailureMessage string `gorm:"type:text" json:"failure_message"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
