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

	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
)

type stubRulesService struct {
	upsertFn func(ctx context.Context, input payoutrules.UpsertRuleInput) (*models.PayoutRule, error)
	listFn   func(ctx context.Context, vendorName string) ([]models.PayoutRule, error)
}

func (s stubRulesService) Resolve(ctx context.Context, productID uuid.UUID, vendorName string) (*models.PayoutRule, error) {
	return nil, nil
}

func (s stubRulesService) ResolveForVendor(ctx context.Context, vendorName string) (map[uuid.UUID]models.PayoutRule, error) {
	return nil, nil
}

func (s stubRulesService) Upsert(ctx context.Context, input payoutrules.UpsertRuleInput) (*models.PayoutRule, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, input)
	}
	return &models.PayoutRule{}, nil
}

func (s stubRulesService) ListRules(ctx context.Context, vendorName string) ([]models.PayoutRule, error) {
	if s.listFn != nil {
		return s.listFn(ctx, vendorName)
	}
	return nil, nil
}

func TestRuleUpsert(t *testing.T) {
	productID := uuid.New()
	svc := stubRulesService{
		upsertFn: func(ctx context.Context, input payoutrules.UpsertRuleInput) (*models.PayoutRule, error) {
			if input.ProductID != productID || input.VendorName != "acme supply" {
				t.Fatalf("unexpected input %+v", input)
			}
			if !input.PayoutAmount.Equal(decimal.RequireFromString("35")) || !input.IsPercentage {
				t.Fatalf("unexpected rule %+v", input)
			}
			return &models.PayoutRule{
				ID:           uuid.New(),
				ProductID:    input.ProductID,
				VendorName:   input.VendorName,
				PayoutAmount: input.PayoutAmount,
				IsPercentage: input.IsPercentage,
			}, nil
		},
	}

	handler := RuleUpsert(svc, nil)
	body := strings.NewReader(`{"product_id":"` + productID.String() + `","vendor_name":"acme supply","payout_amount":"35","is_percentage":true}`)
	req := httptest.NewRequest(http.MethodPut, "/", body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data models.PayoutRule `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ProductID != productID {
		t.Fatalf("unexpected rule %+v", envelope.Data)
	}
}

func TestRuleUpsertRejectsMissingFields(t *testing.T) {
	handler := RuleUpsert(stubRulesService{}, nil)
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"vendor_name":"acme supply"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRuleList(t *testing.T) {
	svc := stubRulesService{
		listFn: func(ctx context.Context, vendorName string) ([]models.PayoutRule, error) {
			return []models.PayoutRule{
				{VendorName: vendorName, PayoutAmount: decimal.RequireFromString("30"), IsPercentage: true},
				{VendorName: vendorName, PayoutAmount: decimal.RequireFromString("12.50")},
			}, nil
		},
	}

	handler := RuleList(svc, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/", nil), "acme supply")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []models.PayoutRule `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("unexpected rules %+v", envelope.Data)
	}
}

func TestRuleListRequiresVendor(t *testing.T) {
	handler := RuleList(stubRulesService{}, nil)
	req := withVendorParam(httptest.NewRequest(http.MethodGet, "/", nil), " ")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
