package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims embedded in a minted bearer token.
type TokenClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}
