package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

const (
	serverIPAddress = "%s:%s"

	DispatchServiceName  = "dispatch-mock"
	PassengerServiceName = "passenger"
)

type API struct {
	name   string
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health    *handler.Health
	passenger *handler.Passenger
	events    *handler.Events
}

// NewDispatch builds the mock dispatch server: the passenger protocol under
// cfg.BasePath plus health and metrics.
func NewDispatch(
	cfg config.MockConfig,
	service handler.DispatchService,
	auth middleware.Authenticator,
	events *handler.Events,
	logger logger.Logger,
) (*API, error) {
	if service == nil {
		return nil, errors.New("dispatch service is required")
	}
	if auth == nil {
		return nil, errors.New("authenticator is required")
	}

	api := newAPI(DispatchServiceName, cfg.Port, auth, logger)
	api.routes.passenger = handler.NewPassenger(service, logger)
	api.routes.events = events

	setupDispatchRoutes(api.mux, api.routes, api.m, normalizeBasePath(cfg.BasePath), cfg.RequireAuth)

	return api, nil
}

// NewMetrics builds the passenger side server exposing only health and metrics.
func NewMetrics(port string, logger logger.Logger) *API {
	api := newAPI(PassengerServiceName, port, nil, logger)
	setupSystemRoutes(api.mux, api.routes)
	return api
}

func newAPI(name, port string, auth middleware.Authenticator, logger logger.Logger) *API {
	api := &API{
		name:   name,
		mux:    http.NewServeMux(),
		routes: &handlers{health: handler.NewHealth(name, logger)},
		m:      middleware.NewMiddleware(auth, name, logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", port),
		log:    logger,
	}

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api
}

// Handler returns the full handler chain.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr, "service", a.name)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr, "service", a.name)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	var h http.Handler = a.mux
	if a.m.HasAuth() {
		h = a.m.Auth(h)
	}
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Metrics(h))))
}

func normalizeBasePath(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/" {
		return ""
	}
	return p
}
