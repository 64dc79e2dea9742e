package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "memory", cfg.Lock.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.GeofenceTTL)
	assert.True(t, cfg.Auth.DevMode())
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9090
  read_timeout: 2s
engine:
  timezone: UTC
ratelimit:
  per_second: 0
`), 0o644)
	require.NoError(t, err)

	t.Setenv("FAMILY_LOCATOR_SERVER__PORT", "9191")
	t.Setenv("FAMILY_LOCATOR_AUTH__JWT_SECRET", "s3cret")
	t.Setenv("FAMILY_LOCATOR_SERVER__TRUST_PROXY", "true")

	cfg, err := Load(newFlags(t, "--config", path, "--env-file", ""))
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "UTC", cfg.Engine.Timezone)
	assert.Equal(t, float64(0), cfg.RateLimit.PerSecond)
	assert.False(t, cfg.Auth.DevMode())
	assert.True(t, cfg.Server.TrustProxy)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Lock.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg.Cache.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())

	cfg.Engine.Timezone = "Not/AZone"
	assert.Error(t, cfg.Validate())
}

func TestServerConfig_AllowedOrigins(t *testing.T) {
	s := ServerConfig{CORSOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins())
	assert.Equal(t, []string{"*"}, Default().Server.AllowedOrigins())
}
