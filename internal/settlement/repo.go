package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
)

// Repository persists project payment confirmations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.ProjectPayment) error
	FindByExternalRef(ctx context.Context, externalRef string) (*models.ProjectPayment, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.ProjectPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByExternalRef(ctx context.Context, externalRef string) (*models.ProjectPayment, error) {
	var row models.ProjectPayment
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPayment, error) {
	var rows []models.ProjectPayment
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
