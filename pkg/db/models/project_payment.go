package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/enums"
)

// ProjectPayment records one milestone payment attempt against a project's
// design fee. ExternalRef is unique so replayed gateway events collapse into
// one row; the partial unique index on (project_id, payment_type) where
// status='paid' keeps concurrent confirmations from double-advancing state.
type ProjectPayment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	PaymentType enums.PaymentType   `gorm:"column:payment_type;type:text;not null"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountCents int                 `gorm:"column:amount_cents;not null"`
	ExternalRef string              `gorm:"column:external_ref;not null;uniqueIndex:ux_project_payments_external_ref"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
