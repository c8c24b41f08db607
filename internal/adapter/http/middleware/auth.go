package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

// Auth validates the bearer token, if any, and injects the passenger into the context.
// Requests without a header pass through anonymously.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		nickname, err := h.auth.Authenticate(ctx, token)
		if err != nil || nickname == "" {
			h.log.Warn(wrap.ErrorCtx(ctx, err), "failed to authenticate passenger", "reason", fmt.Sprint(err))
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithUser(models.WithPassenger(ctx, nickname), nickname)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePassenger rejects anonymous requests with 401.
func (h *Middleware) RequirePassenger(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if models.PassengerFromContext(r.Context()) == "" {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
