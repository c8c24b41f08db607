package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Mode string `env:"MODE" default:"passenger"`

	Server struct {
		BaseURL string        `env:"TEST_SERVER_BASE_URL" default:"http://127.0.0.1:9000"`
		Timeout time.Duration `env:"TEST_SERVER_TIMEOUT" default:"30s"`
		Rate    float64       `env:"TEST_SERVER_RATE"`
	}

	Dispatch struct {
		NoRetry []int `env:"TEST_DISPATCH_NO_RETRY" default:"400,401"`
		Enabled bool  `env:"TEST_DISPATCH_ENABLED" default:"true"`
	}

	Secret string `env:"TEST_SECRET" secret:"true"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	require.Equal(t, "http://127.0.0.1:9000", cfg.Server.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Server.Timeout)
	require.Equal(t, []int{400, 401}, cfg.Dispatch.NoRetry)
	require.True(t, cfg.Dispatch.Enabled)
	require.Zero(t, cfg.Server.Rate)
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("TEST_SERVER_TIMEOUT", "5s")
	t.Setenv("TEST_SERVER_RATE", "2.5")
	t.Setenv("TEST_DISPATCH_NO_RETRY", "")

	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))
	require.Equal(t, 5*time.Second, cfg.Server.Timeout)
	require.Equal(t, 2.5, cfg.Server.Rate)
	require.Equal(t, []int{400, 401}, cfg.Dispatch.NoRetry, "empty value falls back to default")
}

func TestParseEnvBadValue(t *testing.T) {
	t.Setenv("TEST_SERVER_TIMEOUT", "soon")

	var cfg testConfig
	require.ErrorContains(t, ParseEnv(&cfg), "TEST_SERVER_TIMEOUT")
	require.ErrorIs(t, ParseEnv(cfg), ErrNotStructPointer)
}

func TestFlatten(t *testing.T) {
	t.Setenv("FROM_ENV", "injected")

	vars, err := Flatten([]byte(`
server:
  base_url: http://dispatch:9000/passenger
  request_timeout: 10s
dispatch:
  no_retry_statuses: [400, 401, 403]
mock:
  jwt_secret: ${FROM_ENV:-fallback}
  other: ${MISSING_VAR:-fallback}
  empty:
`))
	require.NoError(t, err)
	require.Equal(t, "http://dispatch:9000/passenger", vars["SERVER_BASE_URL"])
	require.Equal(t, "10s", vars["SERVER_REQUEST_TIMEOUT"])
	require.Equal(t, "400,401,403", vars["DISPATCH_NO_RETRY_STATUSES"])
	require.Equal(t, "injected", vars["MOCK_JWT_SECRET"])
	require.Equal(t, "fallback", vars["MOCK_OTHER"])
	_, ok := vars["MOCK_EMPTY"]
	require.False(t, ok)
}

func TestLoadYamlFileKeepsExistingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test:\n  server:\n    base_url: from-file\n    timeout: 7s\n"), 0o600))

	t.Setenv("TEST_SERVER_BASE_URL", "from-env")
	t.Setenv("TEST_SERVER_TIMEOUT", "")
	os.Unsetenv("TEST_SERVER_TIMEOUT")

	var cfg testConfig
	require.NoError(t, LoadAndParseYaml(path, &cfg))
	require.Equal(t, "from-env", cfg.Server.BaseURL)
	require.Equal(t, 7*time.Second, cfg.Server.Timeout)

	require.ErrorIs(t, LoadYamlFile(""), ErrNoFilePath)
}

func TestDumpMasksSecrets(t *testing.T) {
	var cfg testConfig
	cfg.Secret = "hunter2"
	cfg.Dispatch.NoRetry = []int{400}

	lines := Dump(&cfg)
	require.Contains(t, lines, "TEST_SECRET=******")
	require.Contains(t, lines, "TEST_DISPATCH_NO_RETRY=400")
}
