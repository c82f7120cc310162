// Package jwttoken issues and checks the HS256 bearer tokens that identify
// callers on both ledgers' HTTP surfaces.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "skimvault/pkg/domain-errors"
)

// Claims carries the caller identity in Subject.
type Claims struct {
	jwt.RegisteredClaims
}

type JWTService struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

func NewJWTService(signingKey, issuer, audience string) *JWTService {
	return &JWTService{
		key:      []byte(signingKey),
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

// Issue signs a token for caller that expires after ttl.
func (s *JWTService) Issue(caller string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   caller,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Parse verifies signature, issuer, audience and expiry. Every failure is a
// CodeUnauthorized domain error.
func (s *JWTService) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.key, nil })
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
}
