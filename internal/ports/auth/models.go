package auth

// Claims representa la información extraída del token.
// Familia y rol no viajan en el token: se resuelven contra el directorio en cada request.
type Claims struct {
	UserID string
	Email  string
}
