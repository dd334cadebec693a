package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/enums"
)

// Order is the per-project record produced from a checkout group. Every order
// created from the same checkout carries the same PaymentTransactionID. A nil
// ProjectID marks the "general" bucket order.
type Order struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckoutGroupID      uuid.UUID         `gorm:"column:checkout_group_id;type:uuid;not null"`
	BuyerID              uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	ProjectID            *uuid.UUID        `gorm:"column:project_id;type:uuid"`
	PaymentTransactionID string            `gorm:"column:payment_transaction_id;not null"`
	Currency             enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents        int               `gorm:"column:subtotal_cents;not null"`
	TaxCents             int               `gorm:"column:tax_cents;not null;default:0"`
	TaxRateBps           int               `gorm:"column:tax_rate_bps;not null;default:0"`
	TotalCents           int               `gorm:"column:total_cents;not null"`
	Status               enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaidAt               *time.Time        `gorm:"column:paid_at"`
	Items                []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
