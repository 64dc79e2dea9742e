package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "FAMILY_LOCATOR_"

type ServerConfig struct {
	Port             int           `koanf:"port"`
	ReadTimeout      time.Duration `koanf:"read_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
	GracefulShutdown time.Duration `koanf:"graceful_shutdown"`
	// Lista separada por comas. "*" = cualquier origen.
	CORSOrigins string `koanf:"cors_origins"`
	// TrustProxy toma la IP del cliente de X-Forwarded-For / X-Real-IP.
	// Activar solo detrás de un proxy que reescriba esos headers.
	TrustProxy bool `koanf:"trust_proxy"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
	App    string `koanf:"app"`
}

type DBConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

type AuthConfig struct {
	// Secret vacío => modo dev (X-Debug-User-ID).
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type CacheConfig struct {
	MaxSize     int           `koanf:"max_size"`
	RedisAddr   string        `koanf:"redis_addr"`
	RedisPass   string        `koanf:"redis_pass"`
	GeofenceTTL time.Duration `koanf:"geofence_ttl"`
}

type LockConfig struct {
	Backend string        `koanf:"backend"` // memory | redis
	TTL     time.Duration `koanf:"ttl"`
	Wait    time.Duration `koanf:"wait"`
}

type RateLimitConfig struct {
	PerSecond float64 `koanf:"per_second"` // 0 desactiva
	Burst     int     `koanf:"burst"`
}

type EngineConfig struct {
	// Zona horaria para evaluar horarios de geocercas (IANA, ej "America/Lima").
	Timezone string `koanf:"timezone"`
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	DB        DBConfig        `koanf:"db"`
	Auth      AuthConfig      `koanf:"auth"`
	Cache     CacheConfig     `koanf:"cache"`
	Lock      LockConfig      `koanf:"lock"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Engine    EngineConfig    `koanf:"engine"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      5 * time.Second,
			WriteTimeout:     10 * time.Second,
			GracefulShutdown: 10 * time.Second,
			CORSOrigins:      "*",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			App:    "family-locator",
		},
		DB: DBConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer:   "family-locator",
			TokenTTL: 24 * time.Hour,
		},
		Cache: CacheConfig{
			MaxSize:     10 * 1024 * 1024,
			GeofenceTTL: 30 * time.Second,
		},
		Lock: LockConfig{
			Backend: "memory",
			TTL:     5 * time.Second,
			Wait:    3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 2,
			Burst:     10,
		},
		Engine: EngineConfig{
			Timezone: "Local",
		},
	}
}

// AddFlags registra los flags comunes de configuración.
func AddFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Config file path (yaml)")
	fs.String("env-file", ".env", "Dotenv file loaded before reading the environment")
}

// Load arma la configuración en este orden: defaults -> archivo yaml -> env.
// Variables: FAMILY_LOCATOR_<SECCION>__<CLAVE>, ej FAMILY_LOCATOR_DB__DSN.
func Load(fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	envFile, _ := fs.GetString("env-file")
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	k := koanf.New(".")

	cfgFile, _ := fs.GetString("config")
	if cfgFile = strings.TrimSpace(cfgFile); cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return errors.New("lock.backend=redis requires cache.redis_addr")
		}
	default:
		return fmt.Errorf("invalid lock.backend %q", c.Lock.Backend)
	}
	if c.RateLimit.PerSecond < 0 {
		return errors.New("ratelimit.per_second must be >= 0")
	}
	if _, err := c.Engine.Location(); err != nil {
		return fmt.Errorf("invalid engine.timezone: %w", err)
	}
	return nil
}

// Location resuelve la zona horaria configurada.
func (e EngineConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(e.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// AllowedOrigins parte CORSOrigins en una lista sin vacíos.
func (s ServerConfig) AllowedOrigins() []string {
	out := make([]string, 0)
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DevMode indica que no hay secreto JWT configurado.
func (a AuthConfig) DevMode() bool {
	return strings.TrimSpace(a.JWTSecret) == ""
}
