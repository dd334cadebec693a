package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/enums"
)

// CartRecord is the buyer-owned cart aggregate. Lines stay mutable until a
// checkout converts the record; conversion is guarded so a cart is consumed
// at most once.
type CartRecord struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null"`
	CheckoutGroupID *uuid.UUID       `gorm:"column:checkout_group_id;type:uuid"`
	Status          enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Currency        enums.Currency   `gorm:"column:currency;not null;default:'USD'"`
	ConvertedAt     *time.Time       `gorm:"column:converted_at"`
	Lines           []CartLine       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
