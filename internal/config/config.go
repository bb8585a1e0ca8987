package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   int

	// Postgres (pgxpool DSN); empty when the service carries no store.
	DBDSN string

	// RabbitMQ
	RabbitURL string

	// Peer services (booking orchestrator only)
	AccessURL string
	QuotaURL  string

	// Time zone used to interpret naive timestamps and render reads.
	LocalTZ *time.Location

	// Quota accountant
	QuotaMaxMinPerWeek int

	// Access provisioner fault injection, [0,1].
	AccessFailRate float64

	// Redis (rate limiting)
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Rate limit
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Port = getInt("PORT", 8080)

	// --- Postgres: prefer DATABASE_URL if present, else build from POSTGRES_*
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL != "" {
		cfg.DBDSN = dbURL
	} else {
		addr := getEnv("POSTGRES_ADDR", "")
		user := getEnv("POSTGRES_USER", "")
		pass := getEnv("POSTGRES_PASSWORD", "")
		db := getEnv("POSTGRES_DB", "")
		sslmode := getEnv("POSTGRES_SSLMODE", "disable")
		cfg.DBDSN = buildPostgresURL(addr, user, pass, db, sslmode)
	}

	// --- RabbitMQ: full URL wins, else assemble from RABBITMQ_HOST
	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))
	if cfg.RabbitURL == "" {
		host := getEnv("RABBITMQ_HOST", "localhost")
		cfg.RabbitURL = fmt.Sprintf("amqp://guest:guest@%s:5672/", host)
	}

	// --- Peers
	cfg.AccessURL = getEnv("ACCESS_URL", "http://access:8001")
	cfg.QuotaURL = getEnv("QUOTA_URL", "http://quota:8002")

	// --- Local time zone (IANA id)
	tzName := getEnv("LOCAL_TZ", "America/Toronto")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCAL_TZ %q: %w", tzName, err)
	}
	cfg.LocalTZ = loc

	// --- Quota
	cfg.QuotaMaxMinPerWeek = getInt("QUOTA_MAX_MIN_PER_WEEK", 180)
	if cfg.QuotaMaxMinPerWeek < 0 {
		return nil, fmt.Errorf("QUOTA_MAX_MIN_PER_WEEK must be non-negative")
	}

	// --- Access fault injection
	cfg.AccessFailRate = getFloat("ACCESS_FAIL_RATE", 0.10)
	if cfg.AccessFailRate < 0 || cfg.AccessFailRate > 1 {
		return nil, fmt.Errorf("ACCESS_FAIL_RATE must be within [0,1]")
	}

	// --- Redis
	cfg.RedisAddr = getEnv("REDIS_ADDR", "127.0.0.1:6379")
	cfg.RedisPass = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)

	// --- Rate limit
	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_REQUESTS_LIMIT", 100)
	cfg.RLWindow = time.Duration(getInt("RL_WINDOW_SECONDS", 60)) * time.Second

	// --- Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

// buildPostgresURL builds a safe postgres URL DSN (handles special characters).
func buildPostgresURL(addr, user, pass, db, sslmode string) string {
	if strings.TrimSpace(addr) == "" || strings.TrimSpace(user) == "" || strings.TrimSpace(db) == "" {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   strings.TrimSpace(addr),
		Path:   "/" + strings.TrimPrefix(strings.TrimSpace(db), "/"),
	}
	if pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}

	q := url.Values{}
	if strings.TrimSpace(sslmode) != "" {
		q.Set("sslmode", strings.TrimSpace(sslmode))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		// prefer failing fast over silent misconfig
		panic(fmt.Errorf("invalid boolean env %s=%q", k, v))
	}
}
