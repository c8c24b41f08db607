package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/configparser"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	"github.com/Temutjin2k/ride-hail-client/pkg/validator"
)

// Flags
var (
	modeFlag = flag.String("mode", "", "application mode: passenger | dispatch-mock")
)

// Errors
var (
	ErrModeNotProvided = errors.New("mode flag not provided")
	ErrInvalidConfig   = errors.New("invalid config")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Mode types.ServiceMode `env:"MODE"`

		Server    ServerConfig
		Dispatch  DispatchConfig
		Passenger PassengerConfig
		Log       LogConfig
		Metrics   MetricsConfig
		Push      PushConfig
		RabbitMQ  RabbitMQConfig
		Mock      MockConfig
	}

	// ServerConfig is how the passenger reaches the dispatch server.
	ServerConfig struct {
		BaseURL        string        `env:"SERVER_BASE_URL" default:"http://127.0.0.1:9000/passenger"`
		RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
		RateLimit      float64       `env:"SERVER_RATE_LIMIT" default:"0"` // requests per second, 0 = unlimited
		RateBurst      int           `env:"SERVER_RATE_BURST" default:"1"`
	}

	DispatchConfig struct {
		PollInterval           time.Duration `env:"DISPATCH_POLL_INTERVAL" default:"5s"`
		RetryDelay             time.Duration `env:"DISPATCH_RETRY_DELAY" default:"1s"`
		ShutdownTimeout        time.Duration `env:"DISPATCH_SHUTDOWN_TIMEOUT" default:"10s"`
		LocationUpdateDistance float64       `env:"DISPATCH_LOCATION_UPDATE_DISTANCE" default:"5"` // metres
		NoRetryStatuses        []int         `env:"DISPATCH_NO_RETRY_STATUSES"`
	}

	PassengerConfig struct {
		Phone    string `env:"PASSENGER_PHONE" default:"0101234567"`
		Nickname string `env:"PASSENGER_NICKNAME" default:"passenger"`
		Password string `env:"PASSENGER_PASSWORD" default:"passenger" secret:"true"`

		// first position fix, micro-degrees
		Latitude  int `env:"PASSENGER_LATITUDE" default:"37566500"`
		Longitude int `env:"PASSENGER_LONGITUDE" default:"126978000"`
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}

	MetricsConfig struct {
		Enabled bool   `env:"METRICS_ENABLED" default:"false"`
		Port    string `env:"METRICS_PORT" default:"9100"`
	}

	// PushConfig enables the websocket event channel next to refresh polling.
	PushConfig struct {
		Enabled        bool          `env:"PUSH_ENABLED" default:"false"`
		URL            string        `env:"PUSH_URL" default:"ws://127.0.0.1:9000/passenger/events"`
		ReconnectDelay time.Duration `env:"PUSH_RECONNECT_DELAY" default:"2s"`
	}

	// RabbitMQConfig enables publishing call lifecycle notifications.
	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest" secret:"true"`
		Exchange string `env:"RABBITMQ_EXCHANGE" default:"passenger_topic"`
		Backlog  int    `env:"RABBITMQ_BACKLOG" default:"64"` // notifications waiting for the publisher
	}

	// MockConfig drives the in-memory dispatch server.
	MockConfig struct {
		Port        string        `env:"MOCK_PORT" default:"9000"`
		BasePath    string        `env:"MOCK_BASE_PATH" default:"/passenger"`
		RequireAuth bool          `env:"MOCK_REQUIRE_AUTH" default:"true"`
		JWTSecret   string        `env:"MOCK_JWT_SECRET" default:"supersecretkey" secret:"true"`
		TokenTTL    time.Duration `env:"MOCK_TOKEN_TTL" default:"1h"`

		AcceptDelay   time.Duration `env:"MOCK_ACCEPT_DELAY" default:"3s"`
		CompleteDelay time.Duration `env:"MOCK_COMPLETE_DELAY" default:"60s"`
		TickInterval  time.Duration `env:"MOCK_TICK_INTERVAL" default:"1s"`
		SearchRadius  float64       `env:"MOCK_SEARCH_RADIUS" default:"3000"` // metres
		TaxiSpeed     float64       `env:"MOCK_TAXI_SPEED" default:"50"`      // metres per tick

		FleetSize int `env:"MOCK_FLEET_SIZE" default:"10"`
		CenterLat int `env:"MOCK_CENTER_LAT" default:"37566500"`
		CenterLon int `env:"MOCK_CENTER_LON" default:"126978000"`
	}
)

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	// Parsing flags
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFlags(cfg *Config) error {
	if modeFlag != nil && *modeFlag != "" {
		cfg.Mode = types.ServiceMode(*modeFlag)
	}

	if cfg.Mode == "" {
		return ErrModeNotProvided
	}

	return nil
}

// Validate checks the values the application cannot run without.
func (c *Config) Validate() error {
	v := validator.New()

	v.Check(validator.PermittedValue(c.Mode, types.PassengerMode, types.DispatchMockMode), "mode", "must be passenger or dispatch-mock")
	v.Check(logger.ValidateLogLevel(c.Log.Level), "log.level", "must be one of DEBUG, INFO, WARN, ERROR")
	v.Check(c.Server.RequestTimeout > 0, "server.request_timeout", "must be positive")
	v.Check(c.Dispatch.PollInterval > 0, "dispatch.poll_interval", "must be positive")
	v.Check(c.Dispatch.ShutdownTimeout > 0, "dispatch.shutdown_timeout", "must be positive")
	v.Check(c.Dispatch.LocationUpdateDistance >= 0, "dispatch.location_update_distance", "must not be negative")

	switch c.Mode {
	case types.PassengerMode:
		v.Check(c.Server.BaseURL != "", "server.base_url", "must be provided")
		v.Check(c.Passenger.Phone != "", "passenger.phone", "must be provided")
		v.Check(c.Passenger.Nickname != "", "passenger.nickname", "must be provided")
		v.Check(!c.Push.Enabled || c.Push.URL != "", "push.url", "must be provided when push is enabled")
	case types.DispatchMockMode:
		v.Check(c.Mock.Port != "", "mock.port", "must be provided")
		v.Check(!c.Mock.RequireAuth || c.Mock.JWTSecret != "", "mock.jwt_secret", "must be provided when auth is required")
		v.Check(c.Mock.FleetSize >= 0, "mock.fleet_size", "must not be negative")
	}

	if !v.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, v.String())
	}
	return nil
}
