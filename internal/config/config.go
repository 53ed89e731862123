package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Logger LoggerConfig

	DefaultEnterpriseID int64
	BootstrapAdminToken string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr string

	Scoring   ScoringConfig
	Scheduler SchedulerConfig
}

type LoggerConfig struct {
	Level string
}

// ScoringConfig carries the tunable constants of the scoring module: band
// thresholds over the 0-100 score and per-priority SLA windows. Defaults
// mirror the business rules the product shipped with (a 12k debt at 90
// days delinquent lands in high).
type ScoringConfig struct {
	AmountCap      float64
	DelinquencyCap int

	MediumThreshold   int
	HighThreshold     int
	CriticalThreshold int

	ContactWindowCritical time.Duration
	ContactWindowHigh     time.Duration
	ContactWindowMedium   time.Duration
	ContactWindowLow      time.Duration

	ResolutionWindowCritical time.Duration
	ResolutionWindowHigh     time.Duration
	ResolutionWindowMedium   time.Duration
	ResolutionWindowLow      time.Duration
}

type SchedulerConfig struct {
	SLAScanInterval  time.Duration
	SLAScanTimeout   time.Duration
	EscalationAfter  time.Duration
	EscalationEnable bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:             getenv("APP_SERVICE", "recova"),
		AppVersion:          getenv("APP_VERSION", "0.1.0"),
		Environment:         getenv("ENVIRONMENT", "development"),
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		Logger:              LoggerConfig{Level: getenv("LOG_LEVEL", "info")},
		DefaultEnterpriseID: getenvInt64("DEFAULT_ENTERPRISE", 0),
		BootstrapAdminToken: getenv("BOOTSTRAP_ADMIN_TOKEN", ""),
		DBType:              getenv("DATABASE_TYPE", "postgres"),
		DBHost:              getenv("DATABASE_HOST", "localhost"),
		DBPort:              getenv("DATABASE_PORT", "5432"),
		DBName:              getenv("DATABASE_NAME", "recova"),
		DBUser:              getenv("DATABASE_USER", "postgres"),
		DBPassword:          getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:           getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:       getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:       getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime:   getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		RedisAddr:           strings.TrimSpace(getenv("REDIS_ADDR", "")),
		Scoring: ScoringConfig{
			AmountCap:                getenvFloat("SCORING_AMOUNT_CAP", 25000),
			DelinquencyCap:           getenvInt("SCORING_DELINQUENCY_CAP", 90),
			MediumThreshold:          getenvInt("SCORING_MEDIUM_THRESHOLD", 30),
			HighThreshold:            getenvInt("SCORING_HIGH_THRESHOLD", 55),
			CriticalThreshold:        getenvInt("SCORING_CRITICAL_THRESHOLD", 80),
			ContactWindowCritical:    getenvDuration("SLA_CONTACT_CRITICAL", 12*time.Hour),
			ContactWindowHigh:        getenvDuration("SLA_CONTACT_HIGH", 24*time.Hour),
			ContactWindowMedium:      getenvDuration("SLA_CONTACT_MEDIUM", 3*24*time.Hour),
			ContactWindowLow:         getenvDuration("SLA_CONTACT_LOW", 5*24*time.Hour),
			ResolutionWindowCritical: getenvDuration("SLA_RESOLUTION_CRITICAL", 3*24*time.Hour),
			ResolutionWindowHigh:     getenvDuration("SLA_RESOLUTION_HIGH", 7*24*time.Hour),
			ResolutionWindowMedium:   getenvDuration("SLA_RESOLUTION_MEDIUM", 15*24*time.Hour),
			ResolutionWindowLow:      getenvDuration("SLA_RESOLUTION_LOW", 30*24*time.Hour),
		},
		Scheduler: SchedulerConfig{
			SLAScanInterval:  getenvDuration("SLA_SCAN_INTERVAL", time.Hour),
			SLAScanTimeout:   getenvDuration("SLA_SCAN_TIMEOUT", 5*time.Minute),
			EscalationAfter:  getenvDuration("ESCALATION_AFTER", 7*24*time.Hour),
			EscalationEnable: getenvBool("ESCALATION_ENABLED", true),
		},
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getenvInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getenvFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	return raw == "1" || raw == "true" || raw == "yes"
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
