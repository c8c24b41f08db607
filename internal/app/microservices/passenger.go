package microservices

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/ride-hail-client/config"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/cli"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/http/server"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/presenter"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/push"
	"github.com/Temutjin2k/ride-hail-client/internal/adapter/rabbit"
	"github.com/Temutjin2k/ride-hail-client/internal/client"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/service/dispatch"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	rabbitmq "github.com/Temutjin2k/ride-hail-client/pkg/rabbit"
)

const notifierDrainTimeout = 5 * time.Second

type PassengerService struct {
	client     *client.Client
	repl       *cli.REPL
	rabbit     *rabbitmq.RabbitMQ
	notifier   *rabbit.CallNotifier
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewPassenger(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer, log logger.Logger) (*PassengerService, error) {
	s := &PassengerService{
		cfg: cfg,
		log: log,
	}

	view := presenter.NewFanout(presenter.NewConsole(out, log))

	c, err := client.New(client.Options{
		From:           cfg.Passenger.Phone,
		BaseURL:        cfg.Server.BaseURL,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		UpdateDistance: cfg.Dispatch.LocationUpdateDistance,
		Dispatch: dispatch.Options{
			PollInterval:    cfg.Dispatch.PollInterval,
			RetryDelay:      cfg.Dispatch.RetryDelay,
			ShutdownTimeout: cfg.Dispatch.ShutdownTimeout,
			NoRetryStatuses: cfg.Dispatch.NoRetryStatuses,
		},
	}, view, log)
	if err != nil {
		log.Error(ctx, "Failed to setup passenger client", err)
		return nil, err
	}
	s.client = c

	if cfg.RabbitMQ.Enabled {
		r, err := rabbitmq.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to rabbitMQ", err)
			return nil, err
		}
		if err := r.DeclareTopicExchange(cfg.RabbitMQ.Exchange); err != nil {
			_ = r.Close(ctx)
			log.Error(ctx, "Failed to declare exchange", err)
			return nil, err
		}
		s.rabbit = r

		phone := cfg.Passenger.Phone
		s.notifier = rabbit.NewCallNotifier(r, cfg.RabbitMQ.Exchange, func() string { return phone }, server.PassengerServiceName, cfg.RabbitMQ.Backlog, log)
		view.Add(s.notifier)
	}

	if cfg.Push.Enabled {
		c.AttachPush(push.NewListener(cfg.Push.URL, c.Token, c.Router(), cfg.Push.ReconnectDelay, log))
	}

	if cfg.Metrics.Enabled {
		s.httpServer = server.NewMetrics(cfg.Metrics.Port, log)
	}

	s.repl = cli.New(c, cli.Credentials{
		Nickname: cfg.Passenger.Nickname,
		Password: cfg.Passenger.Password,
	}, in, out, log)

	return s, nil
}

func (s *PassengerService) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.httpServer != nil {
		s.httpServer.Run(ctx, errCh)
	}
	defer func() {
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "passenger service closed")
	}()

	s.client.SetUserPosition(ctx, models.Position{Lat: s.cfg.Passenger.Latitude, Lon: s.cfg.Passenger.Longitude})

	go func() {
		err := s.repl.Run(ctx)
		if errors.Is(err, cli.ErrQuit) || errors.Is(err, context.Canceled) {
			err = nil
		}
		errCh <- err
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "passenger has been started", "server", s.cfg.Server.BaseURL)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

func (s *PassengerService) close(ctx context.Context) {
	if s.client.LoggedIn() {
		if err := s.client.Logout(ctx); err != nil {
			s.log.Warn(ctx, "Failed to log out cleanly", "error", err.Error())
		}
	}

	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.notifier != nil {
		closeCtx, cancel := context.WithTimeout(ctx, notifierDrainTimeout)
		if err := s.notifier.Close(closeCtx); err != nil {
			s.log.Warn(ctx, "Call notifications left unpublished", "error", err.Error())
		}
		cancel()
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitMQ", "error", err.Error())
		}
	}
}
