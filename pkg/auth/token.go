package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims carried by a refresh token.
type TokenClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// JWTSource mints and validates HMAC-signed refresh tokens. It satisfies
// the session manager's token source contract.
type JWTSource struct {
	issuer     string
	signingKey []byte
}

// NewJWTSource creates a token source for the given issuer and HMAC key.
func NewJWTSource(issuer string, signingKey []byte) (*JWTSource, error) {
	if issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if len(signingKey) == 0 {
		return nil, fmt.Errorf("token signing key is required")
	}
	return &JWTSource{issuer: issuer, signingKey: signingKey}, nil
}

// Mint signs a refresh token tied to the given user and session.
func (s *JWTSource) Mint(userID, sessionID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse validates a refresh token and returns its claims.
func (s *JWTSource) Parse(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("missing sub claim")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return nil, fmt.Errorf("missing sid claim")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading exp claim: %w", err)
	}

	return &TokenClaims{UserID: sub, SessionID: sid, ExpiresAt: exp.Time}, nil
}
