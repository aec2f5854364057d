package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrSecretNotConfigured = errors.New("JWT secret not configured")
	ErrInvalidToken        = errors.New("invalid or expired token")
)

// Claims is the identity carried by an access token.
type Claims struct {
	UserID string
	Role   string
}

// Verifier validates HMAC-signed access tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a verifier for secret. An empty secret yields a
// verifier that rejects every token.
func NewVerifier(secret string) *Verifier {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Verifier{}
	}
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (v *Verifier) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if !v.Enabled() {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// Identify validates tokenStr and extracts the caller identity. The user id
// is read from "user_id", falling back to the registered "sub" claim.
func (v *Verifier) Identify(tokenStr string) (Claims, error) {
	claims, err := v.ParseAndValidateToken(tokenStr, "")
	if err != nil {
		return Claims{}, err
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if strings.TrimSpace(userID) == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	return Claims{UserID: userID, Role: role}, nil
}
