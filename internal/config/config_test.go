package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chdirTemp isolates Load from any .env file in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.False(t, cfg.Storage.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
transport:
  mode: stdio
auth:
  enabled: true
  secret: from-file
storage:
  endpoint: localhost:9000
  url_expiry: 5m
rate_limit:
  rps: 2.5
render:
  not_approved_label: Waiting
`), 0o600))

	t.Setenv("RECORDBASE_CONFIG_PATH", path)
	t.Setenv("RECORDBASE_SERVER_PORT", "9100")
	t.Setenv("RECORDBASE_AUTH_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "from-env", cfg.Auth.Secret)
	require.True(t, cfg.Storage.Enabled())
	require.Equal(t, 5*time.Minute, cfg.Storage.URLExpiry)
	require.Equal(t, 2.5, cfg.RateLimit.RPS)
	require.Equal(t, "Waiting", cfg.Render.NotApprovedLabel)
	require.Equal(t, "Approved", cfg.Render.ApprovedLabel)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RECORDBASE_DB_PATH=dotenv.db\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RECORDBASE_DB_PATH") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "dotenv.db", cfg.DB.Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{"RECORDBASE_SERVER_PORT": "http"}},
		{"unknown transport", map[string]string{"RECORDBASE_TRANSPORT_MODE": "carrier-pigeon"}},
		{"auth without secret", map[string]string{"RECORDBASE_AUTH_ENABLED": "true"}},
		{"bad duration", map[string]string{"RECORDBASE_RATE_LIMIT_WINDOW": "soon"}},
		{"bad timezone", map[string]string{"RECORDBASE_RENDER_TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
