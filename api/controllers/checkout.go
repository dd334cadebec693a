package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/api/responses"
	"github.com/decorlyhq/decorly-backend/api/validators"
	"github.com/decorlyhq/decorly-backend/internal/checkout"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// CheckoutService is the slice of the checkout domain the HTTP layer calls.
type CheckoutService interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, input checkout.Input) (*checkout.Result, error)
	GetGroup(ctx context.Context, groupID, buyerID uuid.UUID) (*checkout.Result, error)
}

type checkoutRequest struct {
	CartID   string `json:"cart_id" validate:"required,uuid"`
	SourceID string `json:"source_id" validate:"required,max=255"`
}

// Checkout charges the whole cart once and fans it out into per-project
// orders. The idempotency key rides in on the same header the replay
// middleware uses, so retries short-circuit at either layer.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if idempotencyKey == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartID, err := uuid.Parse(body.CartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart_id must be a valid uuid"))
			return
		}

		result, err := svc.Checkout(r.Context(), buyerID, checkout.Input{
			CartID:         cartID,
			IdempotencyKey: idempotencyKey,
			SourceID:       body.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func GetCheckoutGroup(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		groupID, err := uuidParam(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetGroup(r.Context(), groupID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
