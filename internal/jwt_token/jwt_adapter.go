package jwttoken

import (
	dErrors "skimvault/pkg/domain-errors"
	authmw "skimvault/pkg/platform/middleware/auth"
)

var errNoSubject = dErrors.New(dErrors.CodeUnauthorized, "token has no subject")

// ValidatorFunc adapts a plain function to authmw.TokenValidator.
type ValidatorFunc func(token string) (*authmw.Claims, error)

func (f ValidatorFunc) ValidateToken(token string) (*authmw.Claims, error) { return f(token) }

// ForMiddleware exposes s to the auth middleware. The token subject becomes
// the ledger caller, so a token without one is refused.
func ForMiddleware(s *JWTService) ValidatorFunc {
	return func(token string) (*authmw.Claims, error) {
		claims, err := s.Parse(token)
		if err != nil {
			return nil, err
		}
		if claims.Subject == "" {
			return nil, errNoSubject
		}
		return &authmw.Claims{Caller: claims.Subject, JTI: claims.ID}, nil
	}
}
