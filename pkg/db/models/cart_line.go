package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one buyer-selected product with an optional owning project.
// A nil ProjectID puts the line in the "general" bucket at partition time.
type CartLine struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID  `gorm:"column:cart_id;type:uuid;not null"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	ProjectID      *uuid.UUID `gorm:"column:project_id;type:uuid"`
	ProductName    string     `gorm:"column:product_name;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
