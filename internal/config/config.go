package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT (issued by the identity provider, verified here)
	JWTSecret string

	// Roles granted by configuration on top of token claims
	CoordinatorUserIDs string

	// Statement timings
	StatementReminderOffset time.Duration
	StatementOverdueOffset  time.Duration
	ReminderInterval        time.Duration

	// Reminder poller
	ReminderPollInterval  time.Duration
	ReminderMaxIterations int
	ReminderPollerEnabled bool

	// Notify (email)
	NotifyAPIURL           string
	NotifyAPIKey           string
	NotifyTemplateInvolved string
	NotifyTemplateReminder string
	NotifyTemplateOverdue  string
	AppBaseURL             string

	// Auth API (staff email lookup)
	AuthAPIURL   string
	AuthAPIToken string

	ExternalTimeout time.Duration

	// Events
	RedisAddr     string
	RedisPassword string
	EventsChannel string

	// Logging and error tracking
	LogLevel  string
	SentryDSN string
	AppEnv    string

	// Server
	Port        string
	CORSOrigins string

	// Agency registry
	AgenciesConfigPath string
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "use_of_force"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "use_of_force.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CoordinatorUserIDs: getEnv("COORDINATOR_USER_IDS", ""),

		StatementReminderOffset: parseDuration(getEnv("STATEMENT_REMINDER_OFFSET", "24h"), 24*time.Hour),
		StatementOverdueOffset:  parseDuration(getEnv("STATEMENT_OVERDUE_OFFSET", "72h"), 72*time.Hour),
		ReminderInterval:        parseDuration(getEnv("REMINDER_INTERVAL", "24h"), 24*time.Hour),

		ReminderPollInterval:  parseDuration(getEnv("REMINDER_POLL_INTERVAL", "5m"), 5*time.Minute),
		ReminderMaxIterations: parseInt(getEnv("REMINDER_MAX_ITERATIONS", "50"), 50),
		ReminderPollerEnabled: parseBool(getEnv("REMINDER_POLLER_ENABLED", "true"), true),

		NotifyAPIURL:           getEnv("NOTIFY_API_URL", "https://api.notifications.service.gov.uk"),
		NotifyAPIKey:           getEnv("NOTIFY_API_KEY", ""),
		NotifyTemplateInvolved: getEnv("NOTIFY_TEMPLATE_INVOLVED", ""),
		NotifyTemplateReminder: getEnv("NOTIFY_TEMPLATE_REMINDER", ""),
		NotifyTemplateOverdue:  getEnv("NOTIFY_TEMPLATE_OVERDUE", ""),
		AppBaseURL:             getEnv("APP_BASE_URL", "http://localhost:3000"),

		AuthAPIURL:   getEnv("AUTH_API_URL", ""),
		AuthAPIToken: getEnv("AUTH_API_TOKEN", ""),

		ExternalTimeout: parseDuration(getEnv("EXTERNAL_TIMEOUT", "10s"), 10*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		EventsChannel: getEnv("EVENTS_CHANNEL", "use-of-force.events"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		AgenciesConfigPath: getEnv("AGENCIES_CONFIG_PATH", "agencies.json"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return b
}
