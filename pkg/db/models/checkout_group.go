package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/enums"
)

// CheckoutGroup anchors one checkout attempt: the single gateway transaction
// plus the per-project orders fanned out from it. The unique idempotency key
// makes retried checkouts return the original result instead of charging twice.
type CheckoutGroup struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID              uuid.UUID                 `gorm:"column:buyer_id;type:uuid;not null"`
	CartID               uuid.UUID                 `gorm:"column:cart_id;type:uuid;not null"`
	IdempotencyKey       string                    `gorm:"column:idempotency_key;not null;uniqueIndex:ux_checkout_groups_idempotency_key"`
	PaymentTransactionID string                    `gorm:"column:payment_transaction_id;not null"`
	Currency             enums.Currency            `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents        int                       `gorm:"column:subtotal_cents;not null"`
	TaxCents             int                       `gorm:"column:tax_cents;not null;default:0"`
	TaxRateBps           int                       `gorm:"column:tax_rate_bps;not null;default:0"`
	TotalCents           int                       `gorm:"column:total_cents;not null"`
	Status               enums.CheckoutGroupStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Orders               []Order                   `gorm:"foreignKey:CheckoutGroupID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
