package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT. JTI may
// be supplied by the caller; a random identifier is generated when empty.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	ClientID  string
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to service accounts.
type AccessTokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	ClientID  string    `json:"client_id"`
	jwt.RegisteredClaims
}
