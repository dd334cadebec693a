package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/internal/cart"
	"github.com/decorlyhq/decorly-backend/internal/orders"
	"github.com/decorlyhq/decorly-backend/pkg/config"
	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
	"github.com/decorlyhq/decorly-backend/pkg/outbox"
	"github.com/decorlyhq/decorly-backend/pkg/square"
)

// PaymentGateway is the slice of the Square client the checkout core uses.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, params square.TransactionCreateParams) (*square.Transaction, error)
	VerifyTransaction(ctx context.Context, transactionID string) (enums.PaymentStatus, error)
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events in the caller's transaction scope.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input describes one checkout attempt over the buyer's whole cart.
type Input struct {
	CartID         uuid.UUID
	IdempotencyKey string
	SourceID       string
}

// Result is returned for both fresh checkouts and idempotent replays.
type Result struct {
	CheckoutGroupID      uuid.UUID                 `json:"checkout_group_id"`
	PaymentTransactionID string                    `json:"payment_transaction_id"`
	Status               enums.CheckoutGroupStatus `json:"status"`
	Currency             enums.Currency            `json:"currency"`
	SubtotalCents        int                       `json:"subtotal_cents"`
	TaxCents             int                       `json:"tax_cents"`
	TotalCents           int                       `json:"total_cents"`
	Orders               []models.Order            `json:"orders"`
	Replayed             bool                      `json:"replayed"`
}

// PartialPersistenceDetails names the rows that landed before a mid-loop
// write failure. The transaction id lets support and the reconciler tie the
// incomplete ledger back to the charge.
type PartialPersistenceDetails struct {
	CheckoutGroupID      uuid.UUID   `json:"checkout_group_id"`
	PaymentTransactionID string      `json:"payment_transaction_id"`
	WrittenOrderIDs      []uuid.UUID `json:"written_order_ids"`
}

// Service turns one cart into one gateway charge and N per-project orders.
type Service struct {
	carts    cart.Repository
	orders   orders.Repository
	gateway  PaymentGateway
	tx       TxRunner
	emitter  EventEmitter
	cfg      config.CheckoutConfig
	commerce *metrics.CommerceMetrics
	log      *logger.Logger
}

// NewService builds a checkout service.
func NewService(
	carts cart.Repository,
	ordersRepo orders.Repository,
	gateway PaymentGateway,
	tx TxRunner,
	emitter EventEmitter,
	cfg config.CheckoutConfig,
	commerce *metrics.CommerceMetrics,
	log *logger.Logger,
) *Service {
	return &Service{
		carts:    carts,
		orders:   ordersRepo,
		gateway:  gateway,
		tx:       tx,
		emitter:  emitter,
		cfg:      cfg,
		commerce: commerce,
		log:      log,
	}
}

// Checkout charges the cart's aggregate total once, then fans the charge out
// into one order per project. The gateway is called before any row is
// written: a declined or unreachable gateway leaves the cart untouched.
// Order rows are written one at a time afterwards, and a failure in the
// middle of that loop is reported as partial persistence rather than a
// retryable failure, because the buyer has already been charged.
func (s *Service) Checkout(ctx context.Context, buyerID uuid.UUID, input Input) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	if input.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	ctx = s.log.WithBuyerID(ctx, buyerID.String())

	// A retried key returns the original outcome without touching the
	// gateway again.
	if existing, err := s.orders.FindCheckoutGroupByIdempotencyKey(ctx, input.IdempotencyKey); err == nil {
		s.log.Info(ctx, "checkout replayed from idempotency key")
		return s.resultFromGroup(existing, true), nil
	} else if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	record, err := s.carts.FindByIDAndBuyer(ctx, input.CartID, buyerID)
	if err != nil {
		return nil, err
	}
	if record.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart already checked out")
	}

	groups, err := Partition(record.Lines, s.cfg.TaxRateBps)
	if err != nil {
		return nil, err
	}

	subtotal, tax := 0, 0
	for _, g := range groups {
		subtotal += g.SubtotalCents
		tax += g.TaxCents
	}
	aggregate := AggregateTotal(groups)

	txn, err := s.gateway.CreateTransaction(ctx, square.TransactionCreateParams{
		AmountCents:    int64(aggregate),
		Currency:       string(record.Currency),
		SourceID:       input.SourceID,
		BuyerID:        buyerID.String(),
		IdempotencyKey: input.IdempotencyKey,
		ReferenceID:    record.ID.String(),
		Note:           fmt.Sprintf("decorly checkout, %d project(s)", len(groups)),
	})
	if err != nil {
		s.commerce.IncCheckout("gateway_failed")
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "gateway charge failed")
	}
	if txn.Status == enums.PaymentStatusFailed {
		s.commerce.IncCheckout("gateway_declined")
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway declined the charge")
	}

	ctx = s.log.WithTransactionID(ctx, txn.ID)

	group := &models.CheckoutGroup{
		ID:                   uuid.New(),
		BuyerID:              buyerID,
		CartID:               record.ID,
		IdempotencyKey:       input.IdempotencyKey,
		PaymentTransactionID: txn.ID,
		Currency:             record.Currency,
		SubtotalCents:        subtotal,
		TaxCents:             tax,
		TaxRateBps:           s.cfg.TaxRateBps,
		TotalCents:           aggregate,
		Status:               enums.CheckoutGroupStatusPending,
	}
	if err := s.orders.CreateCheckoutGroup(ctx, group); err != nil {
		if isIdempotencyCollision(err) {
			// A concurrent retry with the same key won the insert. The
			// gateway deduplicated the charge on that key, so returning
			// the winner's result is safe.
			if existing, findErr := s.orders.FindCheckoutGroupByIdempotencyKey(ctx, input.IdempotencyKey); findErr == nil {
				return s.resultFromGroup(existing, true), nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent checkout with same idempotency key")
		}
		return nil, s.partialFailure(ctx, group, nil, err)
	}

	// Claim the cart before fanning out orders. First writer wins; the
	// loser of a concurrent checkout has already been charged under its own
	// key, so the incomplete group is left for reconciliation.
	if err := s.carts.MarkConverted(ctx, record.ID, buyerID, group.ID); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			_ = s.orders.UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusPartiallyPersisted)
			s.commerce.IncCheckout("cart_conflict")
			return nil, err
		}
		return nil, s.partialFailure(ctx, group, nil, err)
	}

	written := make([]uuid.UUID, 0, len(groups))
	orderRows := make([]models.Order, 0, len(groups))
	for _, g := range groups {
		order := buildOrder(group, g)
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return nil, s.partialFailure(ctx, group, written, err)
		}
		written = append(written, order.ID)
		orderRows = append(orderRows, *order)
	}

	lineIDs := make([]uuid.UUID, 0, len(record.Lines))
	for _, l := range record.Lines {
		lineIDs = append(lineIDs, l.ID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.carts.WithTx(tx).RemoveLines(ctx, record.ID, lineIDs); err != nil {
			return err
		}
		if err := s.orders.WithTx(tx).UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusComplete); err != nil {
			return err
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outbox.EventOrdersCreated,
			AggregateType: outbox.AggregateCheckoutGroup,
			AggregateID:   group.ID,
			Data: outbox.OrdersCreatedEvent{
				CheckoutGroupID:      group.ID,
				PaymentTransactionID: txn.ID,
				OrderIDs:             written,
			},
		})
	})
	if err != nil {
		return nil, s.partialFailure(ctx, group, written, err)
	}

	s.commerce.IncCheckout("success")
	s.log.Info(s.log.WithField(ctx, "order_count", len(written)), "checkout completed")

	group.Status = enums.CheckoutGroupStatusComplete
	result := s.resultFromGroup(group, false)
	result.Orders = orderRows
	return result, nil
}

// GetGroup returns one checkout group scoped to the requesting buyer.
func (s *Service) GetGroup(ctx context.Context, groupID, buyerID uuid.UUID) (*Result, error) {
	group, err := s.orders.FindCheckoutGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout group not found")
	}
	return s.resultFromGroup(group, false), nil
}

func (s *Service) partialFailure(ctx context.Context, group *models.CheckoutGroup, written []uuid.UUID, cause error) error {
	_ = s.orders.UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusPartiallyPersisted)
	s.commerce.IncCheckout("partial_persistence")
	s.log.Error(ctx, "checkout persisted partially after charge", cause)

	return pkgerrors.Wrap(pkgerrors.CodePartialPersistence, cause, "orders persisted partially").
		WithDetails(PartialPersistenceDetails{
			CheckoutGroupID:      group.ID,
			PaymentTransactionID: group.PaymentTransactionID,
			WrittenOrderIDs:      written,
		})
}

func (s *Service) resultFromGroup(group *models.CheckoutGroup, replayed bool) *Result {
	return &Result{
		CheckoutGroupID:      group.ID,
		PaymentTransactionID: group.PaymentTransactionID,
		Status:               group.Status,
		Currency:             group.Currency,
		SubtotalCents:        group.SubtotalCents,
		TaxCents:             group.TaxCents,
		TotalCents:           group.TotalCents,
		Orders:               group.Orders,
		Replayed:             replayed,
	}
}

func isIdempotencyCollision(err error) bool {
	return db.IsUniqueViolation(err)
}

func buildOrder(group *models.CheckoutGroup, g ProjectGroup) *models.Order {
	order := &models.Order{
		ID:                   uuid.New(),
		CheckoutGroupID:      group.ID,
		BuyerID:              group.BuyerID,
		ProjectID:            g.ProjectID,
		PaymentTransactionID: group.PaymentTransactionID,
		Currency:             group.Currency,
		SubtotalCents:        g.SubtotalCents,
		TaxCents:             g.TaxCents,
		TaxRateBps:           group.TaxRateBps,
		TotalCents:           g.TotalCents,
		Status:               enums.OrderStatusPending,
	}
	for _, line := range g.Lines {
		lineID := line.ID
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			CartLineID:     &lineID,
			ProductID:      line.ProductID,
			Name:           line.ProductName,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			TotalCents:     line.Quantity * line.UnitPriceCents,
		})
	}
	return order
}
