package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"family-locator/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt secret not configured")
	ErrTokenEmpty    = errors.New("token is empty")
	ErrInvalidToken  = errors.New("invalid token")
)

type Config struct {
	Secret string
	Issuer string
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier implementa auth.AuthVerifier y auth.TokenIssuer con HS256.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func New(cfg Config) *Verifier {
	return &Verifier{
		secret: []byte(strings.TrimSpace(cfg.Secret)),
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    time.Now,
	}
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(tc.Subject)
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return auth.Claims{
		UserID: uid,
		Email:  strings.TrimSpace(tc.Email),
	}, nil
}

func (v *Verifier) Issue(c auth.Claims, ttl time.Duration) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(c.UserID) == "" {
		return "", errors.New("user id required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := v.now()
	tc := tokenClaims{
		Email: c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(v.secret)
}
