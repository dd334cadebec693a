package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
)

const (
	EventOrdersCreated = "orders.created"

	AggregateCheckoutGroup = "checkout_group"
)

// DomainEvent describes a state change to announce through the outbox.
type DomainEvent struct {
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	Data          any
}

// OrdersCreatedEvent is the payload written when a checkout fans out orders.
type OrdersCreatedEvent struct {
	CheckoutGroupID      uuid.UUID   `json:"checkout_group_id"`
	PaymentTransactionID string      `json:"payment_transaction_id"`
	OrderIDs             []uuid.UUID `json:"order_ids"`
}

// Emitter appends outbox rows in the caller's transaction scope.
type Emitter struct{}

// NewEmitter builds an outbox emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Emit serializes and appends the event. The write shares the caller's tx so
// the event only exists if the surrounding domain change committed.
func (e *Emitter) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return fmt.Errorf("outbox emit requires a transaction")
	}
	if event.EventType == "" || event.AggregateType == "" {
		return fmt.Errorf("outbox event type and aggregate type are required")
	}
	if event.AggregateID == uuid.Nil {
		return fmt.Errorf("outbox aggregate id is required")
	}

	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	row := &models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}
	return tx.WithContext(ctx).Create(row).Error
}
