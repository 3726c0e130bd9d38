package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/refunds"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"

	"github.com/luisarteaga/marketdesk-backend/api/middleware"
	"github.com/luisarteaga/marketdesk-backend/api/responses"
	"github.com/luisarteaga/marketdesk-backend/api/validators"
)

type refundRequest struct {
	LineItemID uuid.UUID        `json:"line_item_id" validate:"required"`
	Type       string           `json:"type" validate:"required"`
	Amount     *decimal.Decimal `json:"amount"`
}

// RefundApply records a refund against one line item and, when the item was
// already settled, books the deduction against the vendor's next payout.
func RefundApply(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refundType, err := enums.ParseRefundType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund type"))
			return
		}

		result, err := svc.ApplyRefund(r.Context(), refunds.ApplyRefundInput{
			LineItemID: req.LineItemID,
			Type:       refundType,
			Amount:     req.Amount,
			AdminID:    middleware.AdminIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeductionList returns refund deductions not yet applied to a batch.
func DeductionList(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor := strings.TrimSpace(chi.URLParam(r, "vendor"))
		if vendor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required"))
			return
		}

		deductions, err := svc.ListOpenDeductions(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deductions)
	}
}
