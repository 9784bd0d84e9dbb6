package middleware

import (
	"net/http"
	"strings"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/responses"
	pkgAuth "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/auth"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
)

// CarrierAuth validates a bearer token and seeds the request context with the
// carrier identity.
func CarrierAuth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseCarrierToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithCarrierID(r.Context(), claims.CarrierID.String())
			if logg != nil {
				ctx = logg.WithCarrierID(ctx, claims.CarrierID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
