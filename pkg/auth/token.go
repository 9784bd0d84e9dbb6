package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintCarrierToken issues a signed JWT for the carrier. Tokens are minted by
// the identity service in production; this exists for tooling and tests.
func MintCarrierToken(cfg config.JWTConfig, now time.Time, ttl time.Duration, carrierID uuid.UUID) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}
	if carrierID == uuid.Nil {
		return "", fmt.Errorf("carrier id is required")
	}

	claims := CarrierTokenClaims{
		CarrierID: carrierID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseCarrierToken validates the JWT string and returns typed claims.
func ParseCarrierToken(cfg config.JWTConfig, tokenString string) (*CarrierTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &CarrierTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	if claims.CarrierID == uuid.Nil {
		return nil, fmt.Errorf("token missing carrier id")
	}

	return claims, nil
}
