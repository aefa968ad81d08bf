package payments

import (
	"errors"
	"time"

	"github.com/ManuelReschke/OrderFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkPaidResult reports how the conditional paid-update ended.
type MarkPaidResult int

const (
	MarkPaidUpdated MarkPaidResult = iota
	MarkPaidAlready
	MarkPaidNotFound
)

// DeleteResult reports how the conditional unpaid-delete ended.
type DeleteResult int

const (
	DeleteDone DeleteResult = iota
	DeleteRejectedPaid
	DeleteNotFound
)

// Repository provides the DB operations used by the reconciliation service.
// The two order mutations are conditional writes; the WHERE clause on the
// paid flag is what serializes concurrent deliveries for the same order.
type Repository interface {
	MarkOrderPaid(publicID string) (MarkPaidResult, error)
	DeleteOrderIfUnpaid(publicID string) (DeleteResult, error)
	ClearUserCart(userID uint) error
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) MarkOrderPaid(publicID string) (MarkPaidResult, error) {
	tx := r.db.Model(&models.Order{}).
		Where("public_id = ? AND paid = ?", publicID, false).
		Update("paid", true)
	if tx.Error != nil {
		return MarkPaidNotFound, tx.Error
	}
	if tx.RowsAffected > 0 {
		return MarkPaidUpdated, nil
	}

	// Nothing matched: either the order is already paid (idempotent no-op)
	// or it does not exist at all.
	var order models.Order
	err := r.db.Where("public_id = ?", publicID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MarkPaidNotFound, nil
	}
	if err != nil {
		return MarkPaidNotFound, err
	}
	if order.Paid {
		return MarkPaidAlready, nil
	}
	// Lost a race against a concurrent delete between UPDATE and SELECT.
	return MarkPaidNotFound, nil
}

func (r *gormRepository) DeleteOrderIfUnpaid(publicID string) (DeleteResult, error) {
	tx := r.db.Where("public_id = ? AND paid = ?", publicID, false).Delete(&models.Order{})
	if tx.Error != nil {
		return DeleteNotFound, tx.Error
	}
	if tx.RowsAffected > 0 {
		return DeleteDone, nil
	}

	var order models.Order
	err := r.db.Where("public_id = ?", publicID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DeleteNotFound, nil
	}
	if err != nil {
		return DeleteNotFound, err
	}
	if order.Paid {
		return DeleteRejectedPaid, nil
	}
	return DeleteNotFound, nil
}

func (r *gormRepository) ClearUserCart(userID uint) error {
	// Deleting by user id is naturally idempotent; an empty cart stays empty.
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
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
	var stored models.PaymentWebhookEvent
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
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
