package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"

	"github.com/luisarteaga/marketdesk-backend/api/middleware"
)

type stubPendingService struct {
	findFn func(ctx context.Context, vendorName string, dateRange *pending.DateRange) (*pending.Resolution, error)
}

func (s stubPendingService) FindEligible(ctx context.Context, vendorName string, dateRange *pending.DateRange) (*pending.Resolution, error) {
	if s.findFn != nil {
		return s.findFn(ctx, vendorName, dateRange)
	}
	return &pending.Resolution{TotalAmount: decimal.Zero}, nil
}

type stubSettlementService struct {
	createFn func(ctx context.Context, input settlement.CreateBatchInput) (*models.SettlementBatch, error)
	markFn   func(ctx context.Context, input settlement.MarkMonthPaidInput) (*settlement.MarkMonthPaidResult, error)
	listFn   func(ctx context.Context, input settlement.ListBatchesInput) (*settlement.BatchPage, error)
	getFn    func(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
}

func (s stubSettlementService) CreateBatch(ctx context.Context, input settlement.CreateBatchInput) (*models.SettlementBatch, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.SettlementBatch{}, nil
}

func (s stubSettlementService) MarkMonthPaid(ctx context.Context, input settlement.MarkMonthPaidInput) (*settlement.MarkMonthPaidResult, error) {
	if s.markFn != nil {
		return s.markFn(ctx, input)
	}
	return &settlement.MarkMonthPaidResult{}, nil
}

func (s stubSettlementService) ListBatches(ctx context.Context, input settlement.ListBatchesInput) (*settlement.BatchPage, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &settlement.BatchPage{}, nil
}

func (s stubSettlementService) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if s.getFn != nil {
		return s.getFn(ctx, batchID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
}

func withVendorParam(req *http.Request, vendor string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("vendor", vendor)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func withAdmin(req *http.Request, adminID string) *http.Request {
	return req.WithContext(middleware.WithAdminID(req.Context(), adminID))
}

func TestPendingItems(t *testing.T) {
	itemID := uuid.New()
	productID := uuid.New()
	orderID := uuid.New()
	unpriced := uuid.New()

	svc := stubPendingService{
		findFn: func(ctx context.Context, vendorName string, dateRange *pending.DateRange) (*pending.Resolution, error) {
			if vendorName != "acme supply" {
				t.Fatalf("unexpected vendor %q", vendorName)
			}
			if dateRange == nil || dateRange.From.IsZero() {
				t.Fatalf("expected parsed date range, got %+v", dateRange)
			}
			return &pending.Resolution{
				Items: []pending.EligibleItem{{
					Item:   models.LineItem{ID: itemID, ProductID: productID, OrderID: orderID},
					Amount: decimal.RequireFromString("12.345"),
				}},
				NeedsPricing:   []models.LineItem{{ID: unpriced}},
				TotalAmount:    decimal.RequireFromString("12.345"),
				CandidateCount: 2,
			}, nil
		},
	}

	handler := PendingItems(svc, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/?from=2026-01-01&to=2026-06-30", nil), "acme supply")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data pendingResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].LineItemID != itemID {
		t.Fatalf("unexpected items %+v", envelope.Data.Items)
	}
	if len(envelope.Data.NeedsPricing) != 1 || envelope.Data.NeedsPricing[0] != unpriced {
		t.Fatalf("unexpected needs pricing %+v", envelope.Data.NeedsPricing)
	}
	if envelope.Data.CandidateCount != 2 {
		t.Fatalf("unexpected candidate count %d", envelope.Data.CandidateCount)
	}
}

func TestPendingItemsBadDate(t *testing.T) {
	handler := PendingItems(stubPendingService{}, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/?from=january", nil), "acme supply")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPendingItemsRequiresVendor(t *testing.T) {
	handler := PendingItems(stubPendingService{}, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/", nil), "  ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBatchCreate(t *testing.T) {
	batchID := uuid.New()
	svc := stubSettlementService{
		createFn: func(ctx context.Context, input settlement.CreateBatchInput) (*models.SettlementBatch, error) {
			if input.VendorName != "acme supply" {
				t.Fatalf("unexpected vendor %q", input.VendorName)
			}
			if input.AdminID != "admin-1" {
				t.Fatalf("expected admin id from context, got %q", input.AdminID)
			}
			return &models.SettlementBatch{ID: batchID, VendorName: input.VendorName}, nil
		},
	}

	handler := BatchCreate(svc, nil)
	body := strings.NewReader(`{"vendor_name":"acme supply"}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data models.SettlementBatch `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != batchID {
		t.Fatalf("unexpected batch %+v", envelope.Data)
	}
}

func TestBatchCreateRejectsEmptyBody(t *testing.T) {
	handler := BatchCreate(stubSettlementService{}, nil)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBatchCreateNoEligibleItems(t *testing.T) {
	svc := stubSettlementService{
		createFn: func(ctx context.Context, input settlement.CreateBatchInput) (*models.SettlementBatch, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNoEligibleItems, "no eligible items found")
		},
	}

	handler := BatchCreate(svc, nil)
	body := strings.NewReader(`{"vendor_name":"acme supply"}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestBatchList(t *testing.T) {
	svc := stubSettlementService{
		listFn: func(ctx context.Context, input settlement.ListBatchesInput) (*settlement.BatchPage, error) {
			if input.Pagination.Limit != 5 {
				t.Fatalf("unexpected limit %d", input.Pagination.Limit)
			}
			if input.VendorName != "acme supply" {
				t.Fatalf("unexpected vendor %q", input.VendorName)
			}
			return &settlement.BatchPage{
				Batches:    []models.SettlementBatch{{VendorName: input.VendorName}},
				NextCursor: "next",
			}, nil
		},
	}

	handler := BatchList(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&vendor=acme+supply", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data settlement.BatchPage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Batches) != 1 || envelope.Data.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", envelope.Data)
	}
}

func TestBatchDetailInvalidID(t *testing.T) {
	handler := BatchDetail(stubSettlementService{}, nil)

	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("batchID", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkMonthPaid(t *testing.T) {
	svc := stubSettlementService{
		markFn: func(ctx context.Context, input settlement.MarkMonthPaidInput) (*settlement.MarkMonthPaidResult, error) {
			if input.VendorName != "acme supply" || input.Year != 2026 || input.Month != 7 {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.Reference != "wire-991" || !input.CreateBatchRecord {
				t.Fatalf("unexpected input %+v", input)
			}
			if input.AdminID != "admin-1" {
				t.Fatalf("expected admin id from context, got %q", input.AdminID)
			}
			return &settlement.MarkMonthPaidResult{ItemsMarked: 3, TotalAmount: decimal.RequireFromString("70.01")}, nil
		},
	}

	handler := MarkMonthPaid(svc, nil)
	body := strings.NewReader(`{"vendor_name":"acme supply","year":2026,"month":7,"reference":"wire-991","create_batch_record":true}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data settlement.MarkMonthPaidResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ItemsMarked != 3 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}
