package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes what can be read from a token without verifying it
type TokenInfo struct {
	Opaque    bool
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry that has passed
func (ti TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && now.After(*ti.ExpiresAt)
}

// InspectToken decodes JWT-shaped tokens without checking the signature.
// The result is informational only; the backend decides whether a token is valid.
func InspectToken(token string) TokenInfo {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{Opaque: true}
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
	}
	return info
}
