package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// Service reads the order ledger and applies payment confirmations to it.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService builds an orders service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListByBuyer returns the buyer's orders, newest first.
func (s *Service) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	return s.repo.ListOrdersByBuyer(ctx, buyerID)
}

// ListByProject returns every order attributed to a project, so a project's
// procurement history reads as its own ledger.
func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Order, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	return s.repo.ListOrdersByProject(ctx, projectID)
}

// Get returns one order scoped to the requesting buyer.
func (s *Service) Get(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and buyer id are required")
	}
	return s.repo.FindOrderByIDAndBuyer(ctx, orderID, buyerID)
}

// MarkPaidByTransaction settles all pending orders that share a gateway
// transaction. Replays are harmless: rows already paid are not touched.
func (s *Service) MarkPaidByTransaction(ctx context.Context, transactionID string) (int64, error) {
	if transactionID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	updated, err := s.repo.MarkOrdersPaidByTransaction(ctx, transactionID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark orders paid")
	}

	lctx := s.log.WithTransactionID(ctx, transactionID)
	if updated == 0 {
		s.log.Info(lctx, "payment confirmation matched no pending orders")
	} else {
		s.log.Info(s.log.WithField(lctx, "orders_updated", updated), "orders marked paid")
	}
	return updated, nil
}
