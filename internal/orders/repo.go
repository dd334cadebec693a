package orders

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

// Repository persists checkout groups and the orders fanned out from them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCheckoutGroup(ctx context.Context, group *models.CheckoutGroup) error
	FindCheckoutGroupByIdempotencyKey(ctx context.Context, key string) (*models.CheckoutGroup, error)
	FindCheckoutGroupByID(ctx context.Context, id uuid.UUID) (*models.CheckoutGroup, error)
	UpdateCheckoutGroupStatus(ctx context.Context, id uuid.UUID, status enums.CheckoutGroupStatus) error
	ListCheckoutGroupsByStatus(ctx context.Context, status enums.CheckoutGroupStatus, limit int) ([]models.CheckoutGroup, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListOrdersByProject(ctx context.Context, projectID uuid.UUID) ([]models.Order, error)
	FindOrderByIDAndBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
	MarkOrdersPaidByTransaction(ctx context.Context, transactionID string, paidAt time.Time) (int64, error)
	CancelOrdersByGroup(ctx context.Context, groupID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCheckoutGroup(ctx context.Context, group *models.CheckoutGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *repository) FindCheckoutGroupByIdempotencyKey(ctx context.Context, key string) (*models.CheckoutGroup, error) {
	var group models.CheckoutGroup
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Preload("Orders.Items").
		Where("idempotency_key = ?", key).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout group not found")
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindCheckoutGroupByID(ctx context.Context, id uuid.UUID) (*models.CheckoutGroup, error) {
	var group models.CheckoutGroup
	err := r.db.WithContext(ctx).
		Preload("Orders").
		Preload("Orders.Items").
		Where("id = ?", id).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout group not found")
		}
		return nil, err
	}
	return &group, nil
}

func (r *repository) UpdateCheckoutGroupStatus(ctx context.Context, id uuid.UUID, status enums.CheckoutGroupStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutGroup{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) ListCheckoutGroupsByStatus(ctx context.Context, status enums.CheckoutGroupStatus, limit int) ([]models.CheckoutGroup, error) {
	var groups []models.CheckoutGroup
	query := r.db.WithContext(ctx).
		Preload("Orders").
		Where("status = ?", status).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateOrder writes a single order row with its line items. Callers persist
// orders one at a time on purpose: the fan-out loop reports exactly which
// rows landed when a write in the middle fails.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListOrdersByProject(ctx context.Context, projectID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindOrderByIDAndBuyer(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND buyer_id = ?", orderID, buyerID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return &row, nil
}

// MarkOrdersPaidByTransaction flips every pending order on the transaction to
// paid. Orders already paid or canceled are left alone, so a replayed
// confirmation never regresses a row.
func (r *repository) MarkOrdersPaidByTransaction(ctx context.Context, transactionID string, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_transaction_id = ? AND status = ?", transactionID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": paidAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) CancelOrdersByGroup(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("checkout_group_id = ? AND status = ?", groupID, enums.OrderStatusPending).
		Update("status", enums.OrderStatusCanceled).Error
}
