package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/api/responses"
	"github.com/decorlyhq/decorly-backend/api/validators"
	"github.com/decorlyhq/decorly-backend/internal/settlement"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// SettlementApplier records provider payment confirmations.
type SettlementApplier interface {
	ApplyEvent(ctx context.Context, event settlement.PaymentEvent) (*settlement.ApplyResult, error)
}

type paymentConfirmationRequest struct {
	ExternalRef string `json:"external_ref" validate:"required,max=255"`
	ProjectID   string `json:"project_id" validate:"required,uuid"`
	PaymentType string `json:"payment_type" validate:"required"`
	AmountCents int    `json:"amount_cents" validate:"min=0"`
	Status      string `json:"status" validate:"required"`
}

type paymentConfirmationResponse struct {
	Duplicate  bool               `json:"duplicate"`
	Settlement *settlement.Status `json:"settlement"`
}

// ConfirmPayment ingests one milestone payment confirmation. Replays of the
// same external reference are acknowledged without side effects.
func ConfirmPayment(svc SettlementApplier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := buyerFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentConfirmationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := uuid.Parse(body.ProjectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project_id must be a valid uuid"))
			return
		}
		paymentType, err := enums.ParsePaymentType(body.PaymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment type"))
			return
		}
		status, err := enums.ParsePaymentStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment status"))
			return
		}

		result, err := svc.ApplyEvent(r.Context(), settlement.PaymentEvent{
			ExternalRef: body.ExternalRef,
			ProjectID:   projectID,
			PaymentType: paymentType,
			AmountCents: body.AmountCents,
			Status:      status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentConfirmationResponse{
			Duplicate:  result.Duplicate,
			Settlement: result.Status,
		})
	}
}
