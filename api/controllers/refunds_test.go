package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/refunds"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
)

type stubRefundService struct {
	applyFn func(ctx context.Context, input refunds.ApplyRefundInput) (*refunds.ApplyRefundResult, error)
	listFn  func(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error)
}

func (s stubRefundService) ApplyRefund(ctx context.Context, input refunds.ApplyRefundInput) (*refunds.ApplyRefundResult, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, input)
	}
	return &refunds.ApplyRefundResult{}, nil
}

func (s stubRefundService) ListOpenDeductions(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error) {
	if s.listFn != nil {
		return s.listFn(ctx, vendorName)
	}
	return nil, nil
}

func TestRefundApplyPartial(t *testing.T) {
	itemID := uuid.New()
	svc := stubRefundService{
		applyFn: func(ctx context.Context, input refunds.ApplyRefundInput) (*refunds.ApplyRefundResult, error) {
			if input.LineItemID != itemID {
				t.Fatalf("unexpected line item %s", input.LineItemID)
			}
			if input.Type != enums.RefundTypePartial {
				t.Fatalf("unexpected type %s", input.Type)
			}
			if input.Amount == nil || !input.Amount.Equal(decimal.RequireFromString("5.50")) {
				t.Fatalf("unexpected amount %v", input.Amount)
			}
			if input.AdminID != "admin-1" {
				t.Fatalf("expected admin id from context, got %q", input.AdminID)
			}
			return &refunds.ApplyRefundResult{
				Item:            &models.LineItem{ID: itemID, RefundStatus: enums.RefundStatusPartial},
				DeductionOwed:   true,
				DeductionAmount: decimal.RequireFromString("1.93"),
			}, nil
		},
	}

	handler := RefundApply(svc, nil)
	body := strings.NewReader(`{"line_item_id":"` + itemID.String() + `","type":"partial","amount":"5.50"}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data refunds.ApplyRefundResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.DeductionOwed || !envelope.Data.DeductionAmount.Equal(decimal.RequireFromString("1.93")) {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestRefundApplyInvalidType(t *testing.T) {
	handler := RefundApply(stubRefundService{}, nil)
	body := strings.NewReader(`{"line_item_id":"` + uuid.NewString() + `","type":"chargeback"}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRefundApplyStateConflict(t *testing.T) {
	svc := stubRefundService{
		applyFn: func(ctx context.Context, input refunds.ApplyRefundInput) (*refunds.ApplyRefundResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refund transition disallowed")
		},
	}

	handler := RefundApply(svc, nil)
	body := strings.NewReader(`{"line_item_id":"` + uuid.NewString() + `","type":"full"}`)
	req := withAdmin(httptest.NewRequest(http.MethodPost, "/", body), "admin-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestDeductionList(t *testing.T) {
	svc := stubRefundService{
		listFn: func(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error) {
			if vendorName != "acme supply" {
				t.Fatalf("unexpected vendor %q", vendorName)
			}
			return []models.PayoutDeduction{{Amount: decimal.RequireFromString("7.00")}}, nil
		},
	}

	handler := DeductionList(svc, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/", nil), "acme supply")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []models.PayoutDeduction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("unexpected deductions %+v", envelope.Data)
	}
}

func TestDeductionListRequiresVendor(t *testing.T) {
	handler := DeductionList(stubRefundService{}, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/", nil), "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
