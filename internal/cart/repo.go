package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
)

// Repository exposes cart persistence for the cart and checkout services.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	FindByIDAndBuyer(ctx context.Context, cartID, buyerID uuid.UUID) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) error
	AddLine(ctx context.Context, line *models.CartLine) error
	UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error
	RemoveLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) error
	MarkConverted(ctx context.Context, cartID, buyerID, checkoutGroupID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("buyer_id = ? AND status = ?", buyerID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByIDAndBuyer(ctx context.Context, cartID, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ? AND buyer_id = ?", cartID, buyerID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.CartRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) AddLine(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (r *repository) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

func (r *repository) RemoveLines(ctx context.Context, cartID uuid.UUID, lineIDs []uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, lineIDs).
		Delete(&models.CartLine{}).Error
}

// MarkConverted claims the cart for a checkout. The guarded update makes the
// first writer win; a concurrent checkout of the same cart observes a conflict.
func (r *repository) MarkConverted(ctx context.Context, cartID, buyerID, checkoutGroupID uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ? AND buyer_id = ? AND status = ?", cartID, buyerID, enums.CartStatusActive).
		Updates(map[string]any{
			"status":            enums.CartStatusConverted,
			"checkout_group_id": checkoutGroupID,
			"converted_at":      now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart already checked out")
	}
	return nil
}
