package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/bgv-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	for _, v := range []string{"BGV_API_URL", "ENV", "BGV_MIN_LATENCY", "BGV_REFRESH_POLICY", "BGV_PUBLIC_PATHS", "BGV_RATE_LIMIT"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, "http://localhost:8080/api", c.GetAPIBaseURL())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, config.DefaultMinLatency, c.GetMinLatency())
	require.Equal(t, int64(config.DefaultLargePayloadThreshold), c.GetLargePayloadThreshold())
	require.Equal(t, "share", c.GetRefreshPolicy())
	require.Zero(t, c.GetRateLimit())
	require.Equal(t, 1, c.GetRateBurst())
	require.Nil(t, c.GetPublicPaths())
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("BGV_API_URL", "https://bgv.example.com/api/")
	t.Setenv("BGV_MIN_LATENCY", "250ms")
	t.Setenv("BGV_REFRESH_POLICY", "DROP")
	t.Setenv("BGV_PUBLIC_PATHS", "/kiosk, /status ,")
	c := config.New()

	require.Equal(t, "https://bgv.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, 250*time.Millisecond, c.GetMinLatency())
	require.Equal(t, "drop", c.GetRefreshPolicy())
	require.Equal(t, []string{"/kiosk", "/status"}, c.GetPublicPaths())
}

func TestNew_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BGV_MIN_LATENCY", "soon")
	t.Setenv("BGV_RATE_BURST", "-3")
	t.Setenv("BGV_REFRESH_POLICY", "queue")
	c := config.New()

	require.Equal(t, config.DefaultMinLatency, c.GetMinLatency())
	require.Equal(t, 1, c.GetRateBurst())
	require.Equal(t, "share", c.GetRefreshPolicy())
}

func TestLoadFile(t *testing.T) {
	for _, v := range []string{"BGV_API_URL", "ENV", "BGV_MIN_LATENCY", "BGV_PUBLIC_PATHS", "BGV_RATE_LIMIT", "BGV_ALLOW_INSECURE"} {
		t.Setenv(v, "")
	}
	path := filepath.Join(t.TempDir(), "bgv.yaml")
	err := os.WriteFile(path, []byte(`
api_url: https://file.example.com/api
env: prod
gateway:
  min_latency: 500ms
  rate_limit: "2.5"
  public_paths:
    - /kiosk
  allow_insecure: true
`), 0o600)
	require.NoError(t, err)

	c, err := config.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com/api", c.GetAPIBaseURL())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, 500*time.Millisecond, c.GetMinLatency())
	require.Equal(t, 2.5, c.GetRateLimit())
	require.Equal(t, []string{"/kiosk"}, c.GetPublicPaths())
	require.True(t, c.GetAllowInsecure())

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("BGV_MIN_LATENCY", "1s")
		require.Equal(t, time.Second, c.GetMinLatency())
	})
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [unclosed"), 0o600))
	_, err = config.LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse config file")
}
