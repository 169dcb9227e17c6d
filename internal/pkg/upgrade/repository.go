package upgrade

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/madaniagency/licensee-checkout/app/models"
)

// Repository provides DB operations used by the upgrade service: the per-upgrade
// step log and idempotent webhook event storage.
type Repository interface {
	CreateUpgrade(rec *models.UpgradeRecord) error
	GetUpgradeByID(upgradeID string) (*models.UpgradeRecord, error)
	SetUpgradeStatus(upgradeID, status string) error
	SetPlanCreated(upgradeID, planID string) error
	SetCheckoutCreated(upgradeID, checkoutURL string) error
	SetUpgradeFailed(upgradeID, stage, message string) error
	CreateWebhookEventIfNotExists(event *models.CheckoutWebhookEvent) (bool, *models.CheckoutWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an upgrade repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateUpgrade(rec *models.UpgradeRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) GetUpgradeByID(upgradeID string) (*models.UpgradeRecord, error) {
	var rec models.UpgradeRecord
	if err := r.db.Where("upgrade_id = ?", upgradeID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) SetUpgradeStatus(upgradeID, status string) error {
	return r.db.Model(&models.UpgradeRecord{}).
		Where("upgrade_id = ?", upgradeID).
		Update("status", status).Error
}

func (r *gormRepository) SetPlanCreated(upgradeID, planID string) error {
	return r.db.Model(&models.UpgradeRecord{}).
		Where("upgrade_id = ?", upgradeID).
		Updates(map[string]interface{}{
			"status":      models.UpgradeStatusPlanCreated,
			"new_plan_id": planID,
		}).Error
}

func (r *gormRepository) SetCheckoutCreated(upgradeID, checkoutURL string) error {
	return r.db.Model(&models.UpgradeRecord{}).
		Where("upgrade_id = ?", upgradeID).
		Updates(map[string]interface{}{
			"status":       models.UpgradeStatusCheckoutCreated,
			"checkout_url": checkoutURL,
		}).Error
}

func (r *gormRepository) SetUpgradeFailed(upgradeID, stage, message string) error {
	return r.db.Model(&models.UpgradeRecord{}).
		Where("upgrade_id = ?", upgradeID).
		Updates(map[string]interface{}{
			"status":          models.UpgradeStatusFailed,
			"failure_stage":   stage,
			"failure_message": message,
		}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.CheckoutWebhookEvent) (bool, *models.CheckoutWebhookEvent, error) {
	// No dedup key: unverified or unparseable payloads are stored for audit
	// but never deduplicated against each other.
	if event.ProviderEventID == nil {
		if err := r.db.Create(event).Error; err != nil {
			return false, nil, err
		}
		return true, event, nil
	}

	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.CheckoutWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.CheckoutWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
