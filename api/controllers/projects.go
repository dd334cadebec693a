package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/api/responses"
	"github.com/decorlyhq/decorly-backend/internal/settlement"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// SettlementReader exposes the derived payment view for a project.
type SettlementReader interface {
	GetStatus(ctx context.Context, projectID uuid.UUID) (*settlement.Status, error)
}

// GetProjectPaymentStatus returns the settlement state and deliverable
// unlock flags for one project. The flags are derived on every read.
func GetProjectPaymentStatus(svc SettlementReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := buyerFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		projectID, err := uuidParam(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.GetStatus(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
