package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/api/responses"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
)

// OrderService is the slice of the order ledger the HTTP layer calls.
type OrderService interface {
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Order, error)
	Get(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
}

func ListOrders(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func GetOrder(svc OrderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListProjectOrders returns the procurement ledger for one project.
func ListProjectOrders(svc OrderService, logg *logger.Logger) http.HandlerFunc {
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
		rows, err := svc.ListByProject(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
