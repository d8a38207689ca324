package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Store    StoreConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Media    MediaConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Reminder ReminderConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	RequestTimeoutSeconds int
}

// TelegramConfig identifies the bot and the shared admin channel.
type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

// StoreConfig selects and configures the report store backend.
type StoreConfig struct {
	Driver   string // "postgres" or "sqlite"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// SQLiteConfig holds the embedded database path.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// QueueConfig holds the optional AMQP event queue settings.
type QueueConfig struct {
	URL       string
	QueueName string
}

// MediaConfig holds the optional MinIO attachment store settings.
type MediaConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines service token parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

// ReminderConfig tunes the stale-report reminder loop.
type ReminderConfig struct {
	IntervalMinutes  int
	ThresholdMinutes int
	PauseSeconds     int
	RemindedCap      int
}

// Load reads configuration from environment variables, applying defaults
// where possible. It fails when a required credential is absent so the
// process refuses to start misconfigured.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	adminChatID, err := strconv.ParseInt(getEnv("ADMIN_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "feedback-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Telegram: TelegramConfig{
			BotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
			AdminChatID: adminChatID,
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "sqlite"),
			Postgres: PostgresConfig{
				DSN:            os.Getenv("POSTGRES_DSN"),
				MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
				MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
				RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
				ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
				ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("FEEDBACK_DB_PATH", "feedback.db"),
			},
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Queue: QueueConfig{
			URL:       os.Getenv("AMQP_URL"),
			QueueName: getEnv("AMQP_QUEUE", "report_events"),
		},
		Media: MediaConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "report-attachments"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 0),
		},
		Reminder: ReminderConfig{
			IntervalMinutes:  getEnvAsInt("REMINDER_INTERVAL_MINUTES", 30),
			ThresholdMinutes: getEnvAsInt("REMINDER_THRESHOLD_MINUTES", 60),
			PauseSeconds:     getEnvAsInt("REMINDER_PAUSE_SECONDS", 5),
			RemindedCap:      getEnvAsInt("REMINDER_SET_CAP", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.AdminChatID == 0 {
		return errors.New("ADMIN_CHAT_ID is required")
	}
	switch c.Store.Driver {
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return errors.New("FEEDBACK_DB_PATH is required when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Interval returns the sweep interval.
func (r ReminderConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

// Threshold returns the staleness threshold.
func (r ReminderConfig) Threshold() time.Duration {
	return time.Duration(r.ThresholdMinutes) * time.Minute
}

// Pause returns the delay inserted between reminder sends.
func (r ReminderConfig) Pause() time.Duration {
	return time.Duration(r.PauseSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
