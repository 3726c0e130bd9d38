package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgAuth "github.com/luisarteaga/marketdesk-backend/pkg/auth"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "marketdesk"}
}

func mintToken(t *testing.T, cfg config.JWTConfig, adminID string, role enums.AdminRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), 10*time.Minute, pkgAuth.AccessTokenPayload{
		AdminID: adminID,
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsAdminContext(t *testing.T) {
	cfg := testJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "test"})

	var gotAdmin, gotRole string
	handler := Auth(cfg, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin = AdminIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/batches", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, "admin-7", enums.AdminRoleFinance))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotAdmin != "admin-7" || gotRole != "finance" {
		t.Fatalf("context not seeded: admin=%q role=%q", gotAdmin, gotRole)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	cfg := testJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "test"})
	handler := Auth(cfg, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := map[string]string{
		"missing":       "",
		"empty bearer":  "Bearer ",
		"garbage":       "Bearer not-a-jwt",
		"wrong secret":  "Bearer " + mintToken(t, config.JWTConfig{Secret: "other", Issuer: "marketdesk"}, "admin-1", enums.AdminRoleAdmin),
		"unknown role":  "Bearer " + mintTokenRawRole(t, cfg, "admin-1", "superuser"),
		"missing admin": "Bearer " + mintTokenRawRole(t, cfg, "", "admin"),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payouts/batches", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
	}
}

// mintTokenRawRole signs claims directly so invalid role and identity values
// can reach the middleware's own validation.
func mintTokenRawRole(t *testing.T, cfg config.JWTConfig, adminID, role string) string {
	t.Helper()
	now := time.Now()
	claims := pkgAuth.AccessTokenClaims{
		AdminID: adminID,
		Role:    enums.AdminRole(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			ID:        "test-jti",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign raw claims: %v", err)
	}
	return token
}
