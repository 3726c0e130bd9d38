package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/pagination"

	"github.com/luisarteaga/marketdesk-backend/api/middleware"
	"github.com/luisarteaga/marketdesk-backend/api/responses"
	"github.com/luisarteaga/marketdesk-backend/api/validators"
)

type pendingItemView struct {
	LineItemID uuid.UUID       `json:"line_item_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type pendingResponse struct {
	VendorName     string            `json:"vendor_name"`
	Items          []pendingItemView `json:"items"`
	NeedsPricing   []uuid.UUID       `json:"needs_pricing"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	CandidateCount int64             `json:"candidate_count"`
}

// PendingItems previews the line items a settlement batch would cover right
// now, without creating one.
func PendingItems(svc pending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendor := strings.TrimSpace(chi.URLParam(r, "vendor"))
		if vendor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required"))
			return
		}

		dateRange, err := parseDateRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolution, err := svc.FindEligible(r.Context(), vendor, dateRange)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := pendingResponse{
			VendorName:     vendor,
			Items:          make([]pendingItemView, 0, len(resolution.Items)),
			NeedsPricing:   make([]uuid.UUID, 0, len(resolution.NeedsPricing)),
			TotalAmount:    resolution.TotalAmount,
			CandidateCount: resolution.CandidateCount,
		}
		for _, eligible := range resolution.Items {
			resp.Items = append(resp.Items, pendingItemView{
				LineItemID: eligible.Item.ID,
				ProductID:  eligible.Item.ProductID,
				OrderID:    eligible.Item.OrderID,
				Amount:     eligible.Amount,
			})
		}
		for _, item := range resolution.NeedsPricing {
			resp.NeedsPricing = append(resp.NeedsPricing, item.ID)
		}
		responses.WriteSuccess(w, resp)
	}
}

type createBatchRequest struct {
	VendorName string `json:"vendor_name" validate:"required"`
}

// BatchCreate attaches every currently eligible item for the vendor to a new
// batch in requested status.
func BatchCreate(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.CreateBatch(r.Context(), settlement.CreateBatchInput{
			VendorName: req.VendorName,
			AdminID:    middleware.AdminIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

// BatchList pages through settlement batches, newest first.
func BatchList(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListBatches(r.Context(), settlement.ListBatchesInput{
			VendorName: strings.TrimSpace(r.URL.Query().Get("vendor")),
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// BatchDetail returns one settlement batch by id.
func BatchDetail(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID, err := parseUUIDParam(r, "batchID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.GetBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

type markMonthPaidRequest struct {
	VendorName        string `json:"vendor_name" validate:"required"`
	Year              int    `json:"year" validate:"required"`
	Month             int    `json:"month" validate:"required"`
	Reference         string `json:"reference"`
	CreateBatchRecord bool   `json:"create_batch_record"`
}

// MarkMonthPaid records an out-of-band settlement for a whole calendar month.
func MarkMonthPaid(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markMonthPaidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MarkMonthPaid(r.Context(), settlement.MarkMonthPaidInput{
			VendorName:        req.VendorName,
			Year:              req.Year,
			Month:             req.Month,
			Reference:         req.Reference,
			CreateBatchRecord: req.CreateBatchRecord,
			AdminID:           middleware.AdminIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseDateRange(r *http.Request) (*pending.DateRange, error) {
	rawFrom := strings.TrimSpace(r.URL.Query().Get("from"))
	rawTo := strings.TrimSpace(r.URL.Query().Get("to"))
	if rawFrom == "" && rawTo == "" {
		return nil, nil
	}

	dateRange := &pending.DateRange{}
	if rawFrom != "" {
		from, err := time.Parse("2006-01-02", rawFrom)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date, expected YYYY-MM-DD")
		}
		dateRange.From = from
	}
	if rawTo != "" {
		to, err := time.Parse("2006-01-02", rawTo)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to date, expected YYYY-MM-DD")
		}
		dateRange.To = to
	}
	return dateRange, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
