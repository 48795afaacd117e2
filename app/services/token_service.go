package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and validates the per-node registration tokens the
// central hands out on registration. A nil *TokenService means auth is
// disabled.
type TokenService struct {
	secret     []byte
	expiration time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(secret string, expirationSec int64) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		expiration: time.Duration(expirationSec) * time.Second,
	}
}

// Expiration returns the configured token lifetime.
func (t *TokenService) Expiration() time.Duration {
	return t.expiration
}

// Claims represents JWT claims
type Claims struct {
	NodeID string `json:"node_id"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token bound to a node id.
func (t *TokenService) GenerateToken(nodeID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		NodeID: nodeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   nodeID,
			Issuer:    "homefleet-central",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a token and returns the node id it was issued to.
func (t *TokenService) ValidateToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	return claims.NodeID, nil
}
