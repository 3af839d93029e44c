package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Uploads    UploadsConfig
	Appeals    AppealsConfig
	Bot        BotConfig
	Statistics StatisticsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls evidence file storage and access.
type UploadsConfig struct {
	StorageDir       string
	MaxFileSizeBytes int64
	IntakeMaxBytes   int64
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// AppealsConfig tunes workflow defaults.
type AppealsConfig struct {
	DefaultDeadline time.Duration
}

// BotConfig configures the outbound messaging-bot channel.
type BotConfig struct {
	Enabled       bool
	Token         string
	APIBaseURL    string
	Timeout       time.Duration
	WorkerCount   int
	WorkerRetries int
}

// StatisticsConfig governs cache behaviour for the statistics endpoints.
type StatisticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 3*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 20 * 1024 * 1024
	}
	intakeMaxSize := v.GetInt64("INTAKE_MAX_FILE_SIZE")
	if intakeMaxSize <= 0 {
		intakeMaxSize = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:       v.GetString("UPLOADS_STORAGE_DIR"),
		MaxFileSizeBytes: maxUploadSize,
		IntakeMaxBytes:   intakeMaxSize,
		SignedURLSecret:  v.GetString("UPLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("UPLOADS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Appeals = AppealsConfig{
		DefaultDeadline: parseDuration(v.GetString("APPEAL_DEFAULT_DEADLINE"), 15*24*time.Hour),
	}

	cfg.Bot = BotConfig{
		Enabled:       v.GetBool("BOT_ENABLED"),
		Token:         v.GetString("BOT_TOKEN"),
		APIBaseURL:    v.GetString("BOT_API_BASE_URL"),
		Timeout:       parseDuration(v.GetString("BOT_TIMEOUT"), 30*time.Second),
		WorkerCount:   v.GetInt("BOT_WORKER_COUNT"),
		WorkerRetries: v.GetInt("BOT_WORKER_RETRIES"),
	}

	cfg.Statistics = StatisticsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATISTICS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATISTICS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "appeals")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "3h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./appeal-files")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("INTAKE_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOADS_SIGNED_URL_SECRET", "dev_uploads_secret")
	v.SetDefault("UPLOADS_SIGNED_URL_TTL", "24h")

	v.SetDefault("APPEAL_DEFAULT_DEADLINE", "360h")

	v.SetDefault("BOT_ENABLED", false)
	v.SetDefault("BOT_TOKEN", "")
	v.SetDefault("BOT_API_BASE_URL", "https://api.telegram.org")
	v.SetDefault("BOT_TIMEOUT", "30s")
	v.SetDefault("BOT_WORKER_COUNT", 1)
	v.SetDefault("BOT_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_STATISTICS_CACHE", false)
	v.SetDefault("STATISTICS_CACHE_TTL", "5m")
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
