package middleware

import (
	"context"
	"net/http"
	"strings"

	"family-locator/internal/platform/logger"
	"family-locator/internal/ports/auth"
)

// DebugUserHeader identifica al usuario cuando no hay verifier configurado.
const DebugUserHeader = "X-Debug-User-ID"

type claimsCtxKey struct{}

// AuthContext deja los claims del usuario en el contexto.
// Con verifier nil (modo dev) el usuario sale de DebugUserHeader.
// Un token ausente o inválido no corta el request: cada handler responde 401.
func AuthContext(verifier auth.AuthVerifier, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := resolveClaims(r, verifier, log)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func resolveClaims(r *http.Request, verifier auth.AuthVerifier, log logger.Logger) (auth.Claims, bool) {
	if verifier == nil {
		uid := strings.TrimSpace(r.Header.Get(DebugUserHeader))
		return auth.Claims{UserID: uid}, uid != ""
	}

	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := verifier.Verify(r.Context(), token)
	if err != nil {
		log.Debug("auth: token rejected", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		return auth.Claims{}, false
	}
	claims.UserID = strings.TrimSpace(claims.UserID)
	return claims, claims.UserID != ""
}

func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(auth.Claims)
	return c, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
