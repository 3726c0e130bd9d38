package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AdminID string
	Role    enums.AdminRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT accepted by the API. Tokens are
// minted by the identity service sharing the same secret; this service only
// verifies them.
type AccessTokenClaims struct {
	AdminID string          `json:"admin_id"`
	Role    enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
