package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a design engagement between a designer and a client. The fee
// estimate backs settlement review when a balance arrives without an advance.
type Project struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID         uuid.UUID `gorm:"column:client_id;type:uuid;not null;index"`
	DesignerID       uuid.UUID `gorm:"column:designer_id;type:uuid;not null;index"`
	Name             string    `gorm:"column:name;not null"`
	FeeEstimateCents int       `gorm:"column:fee_estimate_cents;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
