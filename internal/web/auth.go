package web

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

func (s *Server) jwtEnabled() bool {
	return s.cfg != nil && s.cfg.Auth.JWT != nil && s.cfg.Auth.JWT.Secret != ""
}

func newBearerParser(issuer string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return jwt.NewParser(opts...)
}

// validBearer reports whether r carries a valid HS256 bearer token.
func (s *Server) validBearer(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !s.jwtEnabled() || !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	secret := []byte(s.cfg.Auth.JWT.Secret)
	tok, err := s.bearer.Parse(strings.TrimPrefix(auth, "Bearer "), func(*jwt.Token) (any, error) {
		return secret, nil
	})
	return err == nil && tok.Valid
}

// jwtMiddleware requires a bearer token on every POST. Reads stay behind
// basic auth only.
func (s *Server) jwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !s.validBearer(r) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
