package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Token store drivers.
const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

// Presence transports.
const (
	PresenceWebSocket = "websocket"
	PresenceRedis     = "redis"
	PresenceNone      = "none"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend  BackendConfig
	Session  SessionConfig
	Redis    RedisConfig
	Presence PresenceConfig
	Screens  ScreensConfig
	Exports  ExportsConfig
	CORS     CORSConfig
	Log      LogConfig
}

// BackendConfig points the console at the marketplace REST API.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// SessionConfig selects where the bearer token is persisted.
type SessionConfig struct {
	TokenStore string
	TokenFile  string
	TokenKey   string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PresenceConfig configures the push channel used for the online indicator.
type PresenceConfig struct {
	Transport      string
	URL            string
	ReconnectDelay time.Duration
}

// ScreensConfig tunes the list screens.
type ScreensConfig struct {
	PageSize       int
	SearchDebounce time.Duration
}

// ExportsConfig controls where exported files land and how downloads are signed.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Backend = BackendConfig{
		BaseURL:   strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout:   parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
		UserAgent: v.GetString("BACKEND_USER_AGENT"),
	}

	cfg.Session = SessionConfig{
		TokenStore: strings.ToLower(v.GetString("TOKEN_STORE")),
		TokenFile:  v.GetString("TOKEN_FILE"),
		TokenKey:   v.GetString("TOKEN_KEY"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Presence = PresenceConfig{
		Transport:      strings.ToLower(v.GetString("PRESENCE_TRANSPORT")),
		URL:            v.GetString("PRESENCE_URL"),
		ReconnectDelay: parseDuration(v.GetString("PRESENCE_RECONNECT_DELAY"), 3*time.Second),
	}

	pageSize := v.GetInt("PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 10
	}
	cfg.Screens = ScreensConfig{
		PageSize:       pageSize,
		SearchDebounce: parseDuration(v.GetString("SEARCH_DEBOUNCE"), 500*time.Millisecond),
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_USER_AGENT", "backoffice-console")

	v.SetDefault("TOKEN_STORE", TokenStoreFile)
	v.SetDefault("TOKEN_FILE", "")
	v.SetDefault("TOKEN_KEY", "backoffice:auth_token")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PRESENCE_TRANSPORT", PresenceWebSocket)
	v.SetDefault("PRESENCE_URL", "ws://localhost:3000/presence")
	v.SetDefault("PRESENCE_RECONNECT_DELAY", "3s")

	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("SEARCH_DEBOUNCE", "500ms")

	v.SetDefault("EXPORTS_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "15m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
