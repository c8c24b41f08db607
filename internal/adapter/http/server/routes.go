package server

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupDispatchRoutes setups the passenger protocol routes under base
func setupDispatchRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware, base string, requireAuth bool) {
	setupSystemRoutes(mux, routes)

	mux.HandleFunc("POST "+base+"/signin", routes.passenger.Signin)

	command := http.Handler(http.HandlerFunc(routes.passenger.Command))
	if requireAuth {
		command = m.RequirePassenger(routes.passenger.Command)
	}
	if base == "" {
		mux.Handle("POST /{$}", command)
	} else {
		mux.Handle("POST "+base, command)
	}

	if routes.events != nil {
		events := http.Handler(http.HandlerFunc(routes.events.HandleWS))
		if requireAuth {
			events = m.RequirePassenger(routes.events.HandleWS)
		}
		mux.Handle("GET "+base+"/events", events)
	}
}

// setupSystemRoutes setups health and metrics
func setupSystemRoutes(mux *http.ServeMux, routes *handlers) {
	mux.HandleFunc("GET /health", routes.health.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())
}
