package token

import (
	"time"

	"authgate/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds upstream token generation configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// upstreamClaims represents the JWT claims forwarded to upstream services.
type upstreamClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer generates JWT tokens for upstream service authentication.
// Implements domain.TokenIssuer.
type JWTIssuer struct {
	cfg JWTConfig
}

// NewJWTIssuer creates a new JWT issuer.
func NewJWTIssuer(cfg JWTConfig) *JWTIssuer {
	return &JWTIssuer{cfg: cfg}
}

// IssueUpstreamToken generates a signed JWT from resolved identity claims.
func (j *JWTIssuer) IssueUpstreamToken(claims domain.Claims) (string, error) {
	if j.cfg.Secret == "" {
		return "", domain.ErrTokenGeneration
	}

	now := time.Now()
	tokenClaims := upstreamClaims{
		Email: claims.Email(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			Subject:   claims.Subject(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	return token.SignedString([]byte(j.cfg.Secret))
}
