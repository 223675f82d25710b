package middleware

import (
	"net/http"

	"github.com/de-tools/cloud-audit/pkg/services/auth"
	"github.com/rs/zerolog"
)

type TokenVerifier interface {
	Enabled() bool
	Verify(token string) (*auth.Claims, error)
}

type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// Authenticate rejects requests without a valid bearer token. A disabled
// verifier lets every request through.
func Authenticate(verifier TokenVerifier, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !verifier.Enabled() {
				next.ServeHTTP(w, req)
				return
			}

			token, err := auth.BearerToken(req.Header.Get("Authorization"))
			if err == nil {
				var claims *auth.Claims
				claims, err = verifier.Verify(token)
				if err == nil {
					reqLogger := zerolog.Ctx(req.Context()).With().
						Str("subject", claims.Subject).
						Logger()
					next.ServeHTTP(w, req.WithContext(reqLogger.WithContext(req.Context())))
					return
				}
			}

			zerolog.Ctx(req.Context()).Info().Err(err).Msg("request rejected")
			w.Header().Set("WWW-Authenticate", `Bearer realm="cloud-audit"`)
			writeError(w, req, http.StatusUnauthorized, err)
		})
	}
}
