package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CarrierTokenClaims represents the typed JWT presented by carrier clients.
type CarrierTokenClaims struct {
	CarrierID uuid.UUID `json:"carrier_id"`
	jwt.RegisteredClaims
}
