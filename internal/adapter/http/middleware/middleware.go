package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

type (
	Authenticator interface {
		Authenticate(ctx context.Context, token string) (string, error)
	}

	Middleware struct {
		auth    Authenticator
		service string
		log     logger.Logger
	}
)

func NewMiddleware(auth Authenticator, service string, log logger.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		service: service,
		log:     log,
	}
}

// HasAuth reports whether an authenticator is configured.
func (h *Middleware) HasAuth() bool {
	return h.auth != nil
}
