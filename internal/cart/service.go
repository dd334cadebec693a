package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// AddLineInput carries a new cart line. A nil ProjectID means the purchase is
// not tied to a design project and lands in the general bucket at checkout.
type AddLineInput struct {
	ProductID      uuid.UUID
	ProjectID      *uuid.UUID
	ProductName    string
	Quantity       int
	UnitPriceCents int
}

// Service owns buyer cart lifecycle up to the checkout handoff.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService builds a cart service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetOrCreateActive returns the buyer's active cart, creating one on first use.
func (s *Service) GetOrCreateActive(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}

	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err == nil {
		return record, nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	record = &models.CartRecord{
		ID:       uuid.New(),
		BuyerID:  buyerID,
		Status:   enums.CartStatusActive,
		Currency: enums.CurrencyUSD,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// A concurrent request may have created the active cart first.
		if db.IsUniqueViolation(err) {
			return s.repo.FindActiveByBuyer(ctx, buyerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return record, nil
}

// AddLine appends a line to the buyer's active cart.
func (s *Service) AddLine(ctx context.Context, buyerID uuid.UUID, input AddLineInput) (*models.CartLine, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.UnitPriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.ProjectID != nil && *input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id cannot be the zero uuid")
	}

	record, err := s.GetOrCreateActive(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	line := &models.CartLine{
		ID:             uuid.New(),
		CartID:         record.ID,
		ProductID:      input.ProductID,
		ProjectID:      input.ProjectID,
		ProductName:    input.ProductName,
		Quantity:       input.Quantity,
		UnitPriceCents: input.UnitPriceCents,
	}
	if err := s.repo.AddLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}

	s.log.Info(s.log.WithBuyerID(ctx, buyerID.String()), "cart line added")
	return line, nil
}

// UpdateLineQuantity changes the quantity of an existing line on the active cart.
func (s *Service) UpdateLineQuantity(ctx context.Context, buyerID, lineID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		return err
	}
	return s.repo.UpdateLineQuantity(ctx, record.ID, lineID, quantity)
}

// RemoveLine deletes a line from the active cart.
func (s *Service) RemoveLine(ctx context.Context, buyerID, lineID uuid.UUID) error {
	record, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		return err
	}
	return s.repo.RemoveLine(ctx, record.ID, lineID)
}
