package microservices

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/handler"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/mockdispatch"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
)

// fleetSpread is how far seeded taxis lie from the center, micro-degrees.
const fleetSpread = 20000

type DispatchMock struct {
	service    *mockdispatch.Service
	hub        *ws.ConnectionHub
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewDispatchMock(ctx context.Context, cfg config.Config, log logger.Logger) (*DispatchMock, error) {
	mock := cfg.Mock

	service := mockdispatch.New(mockdispatch.Options{
		AcceptDelay:   mock.AcceptDelay,
		CompleteDelay: mock.CompleteDelay,
		TickInterval:  mock.TickInterval,
		SearchRadius:  mock.SearchRadius,
		TaxiSpeed:     mock.TaxiSpeed,
		TokenTTL:      mock.TokenTTL,
		Secret:        mock.JWTSecret,
	}, log)

	if err := service.AddAccount(cfg.Passenger.Nickname, cfg.Passenger.Phone, cfg.Passenger.Password); err != nil {
		return nil, fmt.Errorf("failed to register passenger account: %w", err)
	}

	center := models.Position{Lat: mock.CenterLat, Lon: mock.CenterLon}
	taxis := service.SeedFleet(center, mock.FleetSize, fleetSpread)
	log.Info(ctx, "fleet seeded", "taxis", len(taxis), "center", center.String())

	hub := ws.NewConnHub(server.DispatchServiceName, log)
	events := handler.NewEvents(hub, log)
	service.SetPublisher(events)

	httpServer, err := server.NewDispatch(mock, service, service, events, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	return &DispatchMock{
		service:    service,
		hub:        hub,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *DispatchMock) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := s.service.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "dispatch mock closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "dispatch mock has been started", "base_path", s.cfg.Mock.BasePath)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

func (s *DispatchMock) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}
}
