package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"

	"github.com/luisarteaga/marketdesk-backend/api/responses"
	"github.com/luisarteaga/marketdesk-backend/api/validators"
)

type upsertRuleRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"required"`
	VendorName   string          `json:"vendor_name" validate:"required"`
	PayoutAmount decimal.Decimal `json:"payout_amount" validate:"required"`
	IsPercentage bool            `json:"is_percentage"`
}

// RuleUpsert replaces the payout rule for a (product, vendor) pair.
func RuleUpsert(svc payoutrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req upsertRuleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rule, err := svc.Upsert(r.Context(), payoutrules.UpsertRuleInput{
			ProductID:    req.ProductID,
			VendorName:   req.VendorName,
			PayoutAmount: req.PayoutAmount,
			IsPercentage: req.IsPercentage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// RuleList returns every payout rule configured for a vendor.
func RuleList(svc payoutrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor := strings.TrimSpace(chi.URLParam(r, "vendor"))
		if vendor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required"))
			return
		}

		rules, err := svc.ListRules(r.Context(), vendor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}
