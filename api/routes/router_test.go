package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/api/controllers"
	"github.com/luisarteaga/marketdesk-backend/internal/duplicates"
	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/internal/refunds"
	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	pkgauth "github.com/luisarteaga/marketdesk-backend/pkg/auth"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRulesService struct{}

func (stubRulesService) Resolve(context.Context, uuid.UUID, string) (*models.PayoutRule, error) {
	return nil, nil
}

func (stubRulesService) ResolveForVendor(context.Context, string) (map[uuid.UUID]models.PayoutRule, error) {
	return nil, nil
}

func (stubRulesService) Upsert(ctx context.Context, input payoutrules.UpsertRuleInput) (*models.PayoutRule, error) {
	return &models.PayoutRule{ProductID: input.ProductID, VendorName: input.VendorName}, nil
}

func (stubRulesService) ListRules(ctx context.Context, vendorName string) ([]models.PayoutRule, error) {
	return []models.PayoutRule{}, nil
}

type stubPendingService struct{}

func (stubPendingService) FindEligible(ctx context.Context, vendorName string, dateRange *pending.DateRange) (*pending.Resolution, error) {
	return &pending.Resolution{TotalAmount: decimal.Zero}, nil
}

type stubDuplicatesService struct{}

func (stubDuplicatesService) Detect(context.Context, uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	return map[uuid.UUID][]uuid.UUID{}, nil
}

func (stubDuplicatesService) SetStatus(context.Context, duplicates.SetStatusInput) (*duplicates.SetStatusResult, error) {
	return &duplicates.SetStatusResult{}, nil
}

type stubSettlementService struct{}

func (stubSettlementService) CreateBatch(ctx context.Context, input settlement.CreateBatchInput) (*models.SettlementBatch, error) {
	return &models.SettlementBatch{ID: uuid.New(), VendorName: input.VendorName}, nil
}

func (stubSettlementService) MarkMonthPaid(context.Context, settlement.MarkMonthPaidInput) (*settlement.MarkMonthPaidResult, error) {
	return &settlement.MarkMonthPaidResult{}, nil
}

func (stubSettlementService) ListBatches(context.Context, settlement.ListBatchesInput) (*settlement.BatchPage, error) {
	return &settlement.BatchPage{}, nil
}

func (stubSettlementService) GetBatch(context.Context, uuid.UUID) (*models.SettlementBatch, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
}

type stubRefundService struct{}

func (stubRefundService) ApplyRefund(context.Context, refunds.ApplyRefundInput) (*refunds.ApplyRefundResult, error) {
	return &refunds.ApplyRefundResult{}, nil
}

func (stubRefundService) ListOpenDeductions(context.Context, string) ([]models.PayoutDeduction, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret: "secret",
			Issuer: "marketdesk",
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		nil, // redis: rate limiting and idempotency replay off in tests
		controllers.Dependencies{DB: stubPinger{}},
		nil,
		Services{
			Rules:      stubRulesService{},
			Pending:    stubPendingService{},
			Duplicates: stubDuplicatesService{},
			Settlement: stubSettlementService{},
			Refunds:    stubRefundService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgauth.AccessTokenPayload{
		AdminID: "admin-1",
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutesAreOpen(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/batches", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestBatchListWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/batches", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBatchCreateRequiresFinanceRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"vendor_name":"acme supply"}`

	asAdmin := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/batches", strings.NewReader(body))
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin role got %d", resp.Code)
	}

	asFinance := httptest.NewRequest(http.MethodPost, "/api/v1/payouts/batches", strings.NewReader(body))
	asFinance.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleFinance))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asFinance)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for finance role got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRefundRequiresFinanceRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"line_item_id":"` + uuid.NewString() + `","type":"full"}`

	asAdmin := httptest.NewRequest(http.MethodPost, "/api/v1/refunds", strings.NewReader(body))
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin role got %d", resp.Code)
	}
}

func TestRuleUpsertRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"product_id":"` + uuid.NewString() + `","vendor_name":"acme supply","payout_amount":"35","is_percentage":true}`

	asFinance := httptest.NewRequest(http.MethodPut, "/api/v1/payout-rules", strings.NewReader(body))
	asFinance.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleFinance))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, asFinance)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for finance role got %d", resp.Code)
	}

	asAdmin := httptest.NewRequest(http.MethodPut, "/api/v1/payout-rules", strings.NewReader(body))
	asAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, asAdmin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPendingRouteThreadsVendorParam(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/acme%20supply/pending", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleFinance))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBatchDetailNotFound(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/batches/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AdminRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
