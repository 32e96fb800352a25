package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by sandbox bearer tokens.
type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// MintToken signs a sandbox token for a session.
func MintToken(secret []byte, sb *Sandbox, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:  sb.Username(),
		SessionID: sb.SessionID(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "attredit-sandbox",
			Subject:   sb.UserID(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a sandbox token.
func ParseToken(secret []byte, token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return &claims, nil
}

// PeekClaims reads a bearer token's claims without verifying it. The store
// verifies tokens; the claims are only for display and the local expiry
// check. ok is false for tokens that are not JWTs.
func PeekClaims(token string) (claims Claims, ok bool) {
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}

// PeekUsername is the display name in token, or "".
func PeekUsername(token string) string {
	claims, _ := PeekClaims(token)
	if claims.Username != "" {
		return claims.Username
	}
	return claims.Subject
}

// Expiry is the token's exp claim, or the zero time.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
