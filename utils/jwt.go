package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "SimpleDock"

var ErrInvalidToken = errors.New("invalid or expired token")

// DriverClaims carries the driver's phone number as the token subject.
type DriverClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates driver bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}

func (ti *TokenIssuer) GenerateToken(phone string) (string, error) {
	issuedAt := ti.now()
	claims := &DriverClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

func (ti *TokenIssuer) ParseToken(tokenString string) (*DriverClaims, error) {
	if ti.IsRevoked(tokenString) {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &DriverClaims{}, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(ti.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*DriverClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke blocks a token until its own expiry.
func (ti *TokenIssuer) Revoke(tokenString string, expiresAt time.Time) {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	now := ti.now()
	for tok, exp := range ti.revoked {
		if now.After(exp) {
			delete(ti.revoked, tok)
		}
	}
	ti.revoked[tokenString] = expiresAt
}

func (ti *TokenIssuer) IsRevoked(tokenString string) bool {
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	exp, ok := ti.revoked[tokenString]
	return ok && ti.now().Before(exp)
}
