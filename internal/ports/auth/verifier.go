package auth

import (
	"context"
	"time"
)

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// TokenIssuer emite tokens firmados (CLI de dev y tests).
type TokenIssuer interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
}
