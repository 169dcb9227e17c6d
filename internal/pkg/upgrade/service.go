package upgrade

import (
	"context"
	"log"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/madaniagency/licensee-checkout/app/models"
	"github.com/madaniagency/licensee-checkout/internal/pkg/env"
	"github.com/madaniagency/licensee-checkout/internal/pkg/pricing"
	"github.com/madaniagency/licensee-checkout/internal/pkg/registry"
	"github.com/madaniagency/licensee-checkout/internal/pkg/whop"
)

// Gateway is the subscription vendor surface the orchestrator needs. The REST
// client in internal/pkg/whop implements it; tests inject fakes.
type Gateway interface {
	GetMembership(ctx context.Context, membershipID string) (*whop.Membership, error)
	TerminateMembership(ctx context.Context, membershipID string) error
	CreatePlan(ctx context.Context, in whop.CreatePlanInput) (string, error)
	CreateCheckoutSession(ctx context.Context, in whop.CreateCheckoutInput) (string, error)
}

// Service sequences registry lookup, pricing and vendor calls for the upgrade
// and new-licensee checkout flows. Each step is stateless: the client echoes
// all prior results back as input. The repository keeps an audit step log, it
// is never read to drive the flow.
type Service struct {
	registry registry.Lookup
	gateway  Gateway
	repo     Repository

	UnitPrice       decimal.Decimal
	NewLicenseePlan string
	ActivationPlan  string
	SuccessURL      string
	CancelURL       string

	now      func() int64
	validate *validator.Validate
}

func NewService(reg registry.Lookup, gw Gateway, repo Repository) *Service {
	v := validator.New()
	// Report form field names in validation errors, not Go struct fields.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Service{
		registry: reg,
		gateway:  gw,
		repo:     repo,
		now:      func() int64 { return time.Now().Unix() },
		validate: v,
	}
}

// NewServiceFromEnv wires the service with prices, plan ids and redirect URLs
// from the environment. A missing or unparseable unit price is fatal here;
// missing plan ids surface per-step so the upgrade flow works without them.
func NewServiceFromEnv(reg registry.Lookup, gw Gateway, repo Repository) (*Service, error) {
	raw := strings.TrimSpace(env.GetEnv("LICENSE_UNIT_PRICE", ""))
	if raw == "" {
		return nil, errConfigMissing("LICENSE_UNIT_PRICE")
	}
	unit, err := decimal.NewFromString(raw)
	if err != nil || unit.IsNegative() {
		return nil, errConfigMissing("LICENSE_UNIT_PRICE")
	}

	s := NewService(reg, gw, repo)
	s.UnitPrice = unit
	s.NewLicenseePlan = strings.TrimSpace(env.GetEnv("WHOP_PLAN_ID", ""))
	s.ActivationPlan = strings.TrimSpace(env.GetEnv("WHOP_PLAN_ID2", ""))
	s.SuccessURL = strings.TrimSpace(env.GetEnv("CHECKOUT_SUCCESS_URL", ""))
	s.CancelURL = strings.TrimSpace(env.GetEnv("CHECKOUT_CANCEL_URL", ""))
	return s, nil
}

// GetInfo resolves the licensee, fetches the membership billing cycle and
// quotes the single-seat upgrade. It also opens the upgrade step log.
func (s *Service) GetInfo(ctx context.Context, in GetInfoInput) (*GetInfoResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if !s.UnitPrice.IsPositive() {
		return nil, errConfigMissing("LICENSE_UNIT_PRICE")
	}

	rec, err := s.registry.GetLicensee(ctx, in.LicenseeID)
	if err != nil {
		return nil, classifyRegistryError(in.LicenseeID, err)
	}

	membership, err := s.gateway.GetMembership(ctx, rec.MembershipID)
	if err != nil {
		return nil, errUpstream("membership fetch", err)
	}

	cycle := pricing.BillingCycle{
		StartTimestamp:   membership.RenewalPeriodStart,
		RenewalTimestamp: membership.RenewalPeriodEnd,
	}
	quote := pricing.ComputeQuote(cycle, rec.AccountCount, s.UnitPrice, s.now())

	initial := pricing.VendorAmount(quote.ProratedInitialChargePreVat)
	renewal := pricing.VendorAmount(quote.NewRenewalPricePreVat)

	upgradeID := uuid.NewString()
	s.logStepCreate(&models.UpgradeRecord{
		UpgradeID:             upgradeID,
		LicenseeID:            rec.LicenseeID,
		MembershipID:          rec.MembershipID,
		AccountCount:          rec.AccountCount,
		RenewalTimestamp:      membership.RenewalPeriodEnd,
		RemainingDays:         quote.RemainingDays,
		ProratedInitialPreVat: initial.StringFixed(2),
		NewRenewalPricePreVat: renewal.StringFixed(2),
		Status:                models.UpgradeStatusQuoted,
	})

	return &GetInfoResult{
		UpgradeID:        upgradeID,
		Licensee:         *rec,
		StartTimestamp:   membership.RenewalPeriodStart,
		RenewalTimestamp: membership.RenewalPeriodEnd,
		NextCycleInfo:    time.Unix(membership.RenewalPeriodEnd, 0).UTC().Format("02/01/2006"),

		RemainingDays:               quote.RemainingDays,
		ProratedInitialChargePreVat: initial.StringFixed(2),
		NewRenewalPricePreVat:       renewal.StringFixed(2),
		NewAccountCount:             quote.NewAccountCount,

		ProratedInitialChargeWithVat: pricing.WithVAT(initial).Round(2).StringFixed(2),
		NewRenewalPriceWithVat:       pricing.WithVAT(renewal).Round(2).StringFixed(2),

		Contact: in.ContactFields,
	}, nil
}

// TerminateMembership cancels the old membership. Vendor responses meaning the
// membership is already dead count as success, so the step is safe to retry.
func (s *Service) TerminateMembership(ctx context.Context, in TerminateInput) error {
	if err := s.validateInput(in); err != nil {
		return err
	}

	if err := s.gateway.TerminateMembership(ctx, in.MembershipID); err != nil {
		if !whop.IsAlreadyTerminated(err) {
			s.logStepFailure(in.UpgradeID, models.UpgradeStageTerminate, err)
			return errUpstream("membership termination", err)
		}
		log.Printf("upgrade: membership %s already terminated, treating as success", in.MembershipID)
	}

	s.logStepStatus(in.UpgradeID, models.UpgradeStatusTerminated)
	return nil
}

// CreatePlanAndCheckout creates the per-upgrade vendor plan priced from the
// echoed quote, then the hosted checkout session against it. The old
// membership id and renewal timestamp travel as opaque metadata for lineage.
func (s *Service) CreatePlanAndCheckout(ctx context.Context, in CreatePlanAndCheckoutInput) (*CheckoutResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	initial, err := decimal.NewFromString(in.ProratedInitialPreVat)
	if err != nil || initial.IsNegative() {
		return nil, errValidation("proratedInitialChargePreVat", "must be a non-negative decimal")
	}
	renewal, err := decimal.NewFromString(in.NewRenewalPricePreVat)
	if err != nil || renewal.IsNegative() {
		return nil, errValidation("newRenewalPricePreVat", "must be a non-negative decimal")
	}

	metadata := s.contactMetadata(in.ContactFields)
	metadata["form"] = "license upgrade"
	metadata["licenseeId"] = in.LicenseeID
	metadata["oldMembershipId"] = in.OldMembershipID
	metadata["oldRenewalTimestamp"] = strconv.FormatInt(in.OldRenewalTimestamp, 10)
	metadata["accountCount"] = strconv.Itoa(in.AccountCount)
	if in.UpgradeID != "" {
		metadata["upgradeId"] = in.UpgradeID
	}

	planID, err := s.gateway.CreatePlan(ctx, whop.CreatePlanInput{
		RenewalPrice: renewal,
		InitialPrice: initial,
		TrialDays:    in.RemainingDays,
		Metadata:     metadata,
	})
	if err != nil {
		s.logStepFailure(in.UpgradeID, models.UpgradeStageCreatePlan, err)
		return nil, errUpstream("plan creation", err)
	}
	s.logStepPlanCreated(in.UpgradeID, planID)

	purchaseURL, err := s.gateway.CreateCheckoutSession(ctx, whop.CreateCheckoutInput{
		PlanID:      planID,
		Metadata:    metadata,
		RedirectURL: s.SuccessURL,
		CancelURL:   s.CancelURL,
	})
	if err != nil {
		s.logStepFailure(in.UpgradeID, models.UpgradeStageCheckout, err)
		return nil, errUpstream("checkout creation", err)
	}
	s.logStepCheckoutCreated(in.UpgradeID, purchaseURL)

	return &CheckoutResult{PurchaseURL: purchaseURL}, nil
}

// CreateCheckout is the fixed-plan path for new licensees and client
// activations: no pricing, straight to a checkout session.
func (s *Service) CreateCheckout(ctx context.Context, in CreateCheckoutInput) (*CheckoutResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	planID := s.NewLicenseePlan
	planName := "WHOP_PLAN_ID"
	formKind := "licensee start + setup fee"
	if in.IsClientActivation {
		planID = s.ActivationPlan
		planName = "WHOP_PLAN_ID2"
		formKind = "client activation"
		if strings.TrimSpace(in.LicenseeID) == "" {
			return nil, errValidation("licenseeId", "is required for client activation")
		}
	}
	if planID == "" {
		return nil, errConfigMissing(planName)
	}

	metadata := s.contactMetadata(in.ContactFields)
	metadata["form"] = formKind
	if in.IsClientActivation {
		metadata["licenseeId"] = strings.TrimSpace(in.LicenseeID)
	}

	purchaseURL, err := s.gateway.CreateCheckoutSession(ctx, whop.CreateCheckoutInput{
		PlanID:      planID,
		Metadata:    metadata,
		RedirectURL: s.SuccessURL,
		CancelURL:   s.CancelURL,
	})
	if err != nil {
		return nil, errUpstream("checkout creation", err)
	}
	return &CheckoutResult{PurchaseURL: purchaseURL}, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.CheckoutWebhookEvent, error) {
	_ = ctx
	if s.repo == nil {
		return false, nil, errConfigMissing("database")
	}
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		provider = models.CheckoutProviderWhop
	}
	// Only verified payloads may occupy the dedup key: a forged body carrying
	// a real event id must never make the genuine delivery look like a replay.
	var providerEventID *string
	if id := strings.TrimSpace(in.ProviderEventID); id != "" && in.SignatureValid {
		providerEventID = &id
	}
	event := &models.CheckoutWebhookEvent{
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if s.repo == nil {
		return nil
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// CompleteUpgrade closes an upgrade's step log when its checkout completes.
func (s *Service) CompleteUpgrade(ctx context.Context, upgradeID string) error {
	_ = ctx
	id := strings.TrimSpace(upgradeID)
	if id == "" || s.repo == nil {
		return nil
	}
	if _, err := s.repo.GetUpgradeByID(id); err != nil {
		return err
	}
	return s.repo.SetUpgradeStatus(id, models.UpgradeStatusCompleted)
}

func (s *Service) contactMetadata(c ContactFields) map[string]string {
	return map[string]string{
		"companyName":    c.CompanyName,
		"firstName":      c.FirstName,
		"lastName":       c.LastName,
		"email":          c.Email,
		"phone":          c.Phone(),
		"companyWebsite": c.CompanyWebsite,
		"companyLogoUrl": c.CompanyLogoURL,
	}
}

func (s *Service) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		first := verrs[0]
		if first.Tag() == "required" {
			return errValidation(first.Field(), "is required")
		}
		return errValidation(first.Field(), "is invalid")
	}
	return errValidation("", err.Error())
}

// Step log writes are best effort: the log is an operational audit aid and
// must never fail a customer-facing step.
func (s *Service) logStepCreate(rec *models.UpgradeRecord) {
	if s.repo == nil {
		return
	}
	if err := s.repo.CreateUpgrade(rec); err != nil {
		log.Printf("upgrade: step log create failed for %s: %v", rec.UpgradeID, err)
	}
}

func (s *Service) logStepStatus(upgradeID, status string) {
	if s.repo == nil || upgradeID == "" {
		return
	}
	if err := s.repo.SetUpgradeStatus(upgradeID, status); err != nil {
		log.Printf("upgrade: step log update failed for %s: %v", upgradeID, err)
	}
}

func (s *Service) logStepPlanCreated(upgradeID, planID string) {
	if s.repo == nil || upgradeID == "" {
		return
	}
	if err := s.repo.SetPlanCreated(upgradeID, planID); err != nil {
		log.Printf("upgrade: step log update failed for %s: %v", upgradeID, err)
	}
}

func (s *Service) logStepCheckoutCreated(upgradeID, checkoutURL string) {
	if s.repo == nil || upgradeID == "" {
		return
	}
	if err := s.repo.SetCheckoutCreated(upgradeID, checkoutURL); err != nil {
		log.Printf("upgrade: step log update failed for %s: %v", upgradeID, err)
	}
}

func (s *Service) logStepFailure(upgradeID, stage string, cause error) {
	if s.repo == nil || upgradeID == "" {
		return
	}
	if err := s.repo.SetUpgradeFailed(upgradeID, stage, cause.Error()); err != nil {
		log.Printf("upgrade: step log update failed for %s: %v", upgradeID, err)
	}
}
