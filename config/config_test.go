package config

import (
	"bytes"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/configparser"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	require.NoError(t, configparser.ParseEnv(cfg))
	return cfg
}

func TestDefaultsArePassengerReady(t *testing.T) {
	cfg := defaults(t)
	cfg.Mode = types.PassengerMode

	require.NoError(t, cfg.Validate())
	require.Equal(t, "http://127.0.0.1:9000/passenger", cfg.Server.BaseURL)
	require.Equal(t, 5.0, cfg.Dispatch.LocationUpdateDistance)
	require.Empty(t, cfg.Dispatch.NoRetryStatuses)
}

func TestValidate(t *testing.T) {
	cfg := defaults(t)
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "mode is required")

	cfg.Mode = types.DispatchMockMode
	cfg.Log.Level = "LOUD"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.ErrorContains(t, err, "log.level")
}

func TestPrintConfigMasksSecrets(t *testing.T) {
	cfg := defaults(t)

	var buf bytes.Buffer
	FprintConfig(&buf, cfg)

	require.Contains(t, buf.String(), "SERVER_BASE_URL=")
	require.Contains(t, buf.String(), "MOCK_JWT_SECRET=******")
	require.NotContains(t, buf.String(), "supersecretkey")
}
