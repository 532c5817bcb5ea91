package aps

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes the APS bearer token carried by the client.
type TokenInfo struct {
	ClientID  string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry is in the past. A zero expiry
// (no exp claim) is treated as not expired.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}

// InspectToken decodes the bearer token without verifying its signature.
// APS issues JWTs; the claims are used only to report expiry at startup,
// never for authorization decisions.
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing bearer token: %w", err)
	}

	info := &TokenInfo{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if cid, ok := claims["client_id"].(string); ok {
		info.ClientID = cid
	}
	return info, nil
}
