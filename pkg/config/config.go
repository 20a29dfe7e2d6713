package config

import (
	"errors"
	"os"
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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Admin    AdminConfig
	Statuses StatusConfig
	Stats    StatsConfig
	Mail     MailConfig
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

// RedisConfig configures the statistics cache. URL, when set, wins over the discrete fields.
type RedisConfig struct {
	Enabled     bool
	URL         string
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
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

// AdminConfig holds static admin surface settings and the profile names used for access control.
type AdminConfig struct {
	SiteHeader         string
	SiteTitle          string
	TeacherProfileName string
	ManagerProfiles    []string
}

// StatusConfig maps lifecycle roles to the description of the status rows backing them.
type StatusConfig struct {
	Pending   string
	Sent      string
	Validated string
	Rejected  string
}

// StatsConfig tunes caching of submission statistics.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// MailConfig configures the attachment relay.
type MailConfig struct {
	SendgridAPIKey   string
	FromName         string
	FromAddress      string
	SpoolDir         string
	SpoolTTL         time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	Workers          int
	Retries          int
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
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
		Enabled:     v.GetBool("REDIS_ENABLED"),
		URL:         v.GetString("REDIS_URL"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		SiteHeader:         v.GetString("ADMIN_SITE_HEADER"),
		SiteTitle:          v.GetString("ADMIN_SITE_TITLE"),
		TeacherProfileName: v.GetString("TEACHER_PROFILE_NAME"),
		ManagerProfiles:    splitAndTrim(v.GetString("MANAGER_PROFILES")),
	}

	cfg.Statuses = StatusConfig{
		Pending:   v.GetString("STATUS_PENDING"),
		Sent:      v.GetString("STATUS_SENT"),
		Validated: v.GetString("STATUS_VALIDATED"),
		Rejected:  v.GetString("STATUS_REJECTED"),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	maxAttachment := v.GetInt64("MAIL_MAX_FILE_SIZE")
	if maxAttachment <= 0 {
		maxAttachment = 10 * 1024 * 1024
	}
	cfg.Mail = MailConfig{
		SendgridAPIKey:   v.GetString("SENDGRID_API_KEY"),
		FromName:         v.GetString("MAIL_FROM_NAME"),
		FromAddress:      v.GetString("MAIL_FROM_ADDRESS"),
		SpoolDir:         v.GetString("MAIL_SPOOL_DIR"),
		SpoolTTL:         parseDuration(v.GetString("MAIL_SPOOL_TTL"), 24*time.Hour),
		MaxFileSizeBytes: maxAttachment,
		AllowedMIMEs:     splitAndTrim(v.GetString("MAIL_ALLOWED_MIME_TYPES")),
		Workers:          v.GetInt("MAIL_WORKERS"),
		Retries:          v.GetInt("MAIL_RETRIES"),
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
	v.SetDefault("DB_NAME", "material_didatico")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "material-submission-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_SITE_HEADER", "Envio de Material Didático")
	v.SetDefault("ADMIN_SITE_TITLE", "Administração")
	v.SetDefault("TEACHER_PROFILE_NAME", "Professor")
	v.SetDefault("MANAGER_PROFILES", "Administrador,Coordenador")

	v.SetDefault("STATUS_PENDING", "Pendente")
	v.SetDefault("STATUS_SENT", "Enviado")
	v.SetDefault("STATUS_VALIDATED", "Validado")
	v.SetDefault("STATUS_REJECTED", "Rejeitado")

	v.SetDefault("ENABLE_STATS_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Envio de Material")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@localhost")
	v.SetDefault("MAIL_SPOOL_DIR", "./spool")
	v.SetDefault("MAIL_SPOOL_TTL", "24h")
	v.SetDefault("MAIL_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("MAIL_ALLOWED_MIME_TYPES", "")
	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_RETRIES", 3)
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
