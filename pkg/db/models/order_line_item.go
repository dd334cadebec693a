package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the frozen snapshot of a cart line on an order.
type OrderLineItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	CartLineID     *uuid.UUID `gorm:"column:cart_line_id;type:uuid"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	Name           string     `gorm:"column:name;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	TotalCents     int        `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
