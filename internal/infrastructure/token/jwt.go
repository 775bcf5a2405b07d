// Package token issues the short-lived JWTs backend services accept in
// place of a provider round trip.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth-gateway/internal/domain"
)

const minSecretLength = 32

// JWTConfig holds JWT generation configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// backendClaims carries the resolved identity for backend services.
type backendClaims struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Source string `json:"src,omitempty"`
	jwt.RegisteredClaims
}

// JWTIssuer generates signed backend tokens.
type JWTIssuer struct {
	cfg JWTConfig
}

// NewJWTIssuer creates a JWT issuer. The secret must be long enough for
// HS256 to mean anything.
func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("backend token secret must be at least %d bytes", minSecretLength)
	}
	return &JWTIssuer{cfg: cfg}, nil
}

// TTL returns the configured token lifetime.
func (j *JWTIssuer) TTL() time.Duration {
	return j.cfg.TTL
}

// IssueBackendToken signs a token carrying the resolved role, so
// downstream services authorize without consulting the gateway again.
func (j *JWTIssuer) IssueBackendToken(identity *domain.IdentityContext) (string, error) {
	now := time.Now()
	claims := backendClaims{
		Email:  identity.Email,
		Role:   string(identity.Role),
		Source: string(identity.Source),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Audience:  jwt.ClaimStrings{j.cfg.Audience},
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.cfg.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.Secret))
}
