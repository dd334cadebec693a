package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/api/responses"
	"github.com/decorlyhq/decorly-backend/api/validators"
	"github.com/decorlyhq/decorly-backend/internal/cart"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// CartService is the slice of the cart domain the HTTP layer calls.
type CartService interface {
	GetOrCreateActive(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	AddLine(ctx context.Context, buyerID uuid.UUID, input cart.AddLineInput) (*models.CartLine, error)
	UpdateLineQuantity(ctx context.Context, buyerID, lineID uuid.UUID, quantity int) error
	RemoveLine(ctx context.Context, buyerID, lineID uuid.UUID) error
}

type addCartLineRequest struct {
	ProductID      string  `json:"product_id" validate:"required,uuid"`
	ProjectID      *string `json:"project_id,omitempty" validate:"omitempty,uuid"`
	ProductName    string  `json:"product_name" validate:"required,max=255"`
	Quantity       int     `json:"quantity" validate:"required,min=1"`
	UnitPriceCents int     `json:"unit_price_cents" validate:"min=0"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func GetCart(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetOrCreateActive(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

func AddCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id must be a valid uuid"))
			return
		}

		input := cart.AddLineInput{
			ProductID:      productID,
			ProductName:    body.ProductName,
			Quantity:       body.Quantity,
			UnitPriceCents: body.UnitPriceCents,
		}
		if body.ProjectID != nil {
			projectID, err := uuid.Parse(*body.ProjectID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project_id must be a valid uuid"))
				return
			}
			input.ProjectID = &projectID
		}

		line, err := svc.AddLine(r.Context(), buyerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

func UpdateCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := uuidParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateLineQuantity(r.Context(), buyerID, lineID, body.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func RemoveCartLine(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := uuidParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLine(r.Context(), buyerID, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
