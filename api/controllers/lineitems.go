package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/luisarteaga/marketdesk-backend/internal/duplicates"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"

	"github.com/luisarteaga/marketdesk-backend/api/middleware"
	"github.com/luisarteaga/marketdesk-backend/api/responses"
	"github.com/luisarteaga/marketdesk-backend/api/validators"
)

// DuplicateGroups flags line items within an order that share a product with
// another active item.
func DuplicateGroups(svc duplicates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groups, err := svc.Detect(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groups)
	}
}

type setLineItemStatusRequest struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Status string      `json:"status" validate:"required"`
}

// SetLineItemStatus applies one status to a set of line items atomically.
func SetLineItemStatus(svc duplicates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setLineItemStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseLineItemStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line item status"))
			return
		}

		result, err := svc.SetStatus(r.Context(), duplicates.SetStatusInput{
			IDs:     req.IDs,
			Status:  status,
			AdminID: middleware.AdminIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
