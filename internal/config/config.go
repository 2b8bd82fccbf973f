package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv string
	Port   string

	DBHost           string
	DBPort           string
	DBName           string
	DBUser           string
	DBPassword       string
	DBSSLMode        string
	DBConnectRetries int

	RedisAddr string

	KafkaBroker  string
	KafkaGroupID string

	JWTSecret      string
	AccessTokenTTL time.Duration

	DefaultCasualDays  int
	DefaultMedicalDays int

	RateLimitRPS   float64
	RateLimitBurst int

	IdempotencyTTL     time.Duration
	BalanceCacheTTL    time.Duration
	BalanceLockTTL     time.Duration
	OutboxPollInterval time.Duration
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return d
}

// durations accept Go syntax ("15m", "24h").
func getenvDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if n, err := time.ParseDuration(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	return &Config{
		AppEnv: getenv("APP_ENV", "development"),
		Port:   getenv("PORT", "3000"),

		DBHost:           getenv("DB_HOST", "localhost"),
		DBPort:           getenv("DB_PORT", "5432"),
		DBName:           getenv("DB_NAME", "go_leave"),
		DBUser:           getenv("DB_USER", "postgres"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBSSLMode:        getenv("DB_SSLMODE", "disable"),
		DBConnectRetries: getenvInt("DB_CONNECT_RETRIES", 5),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		KafkaBroker:  os.Getenv("KAFKA_BROKER"),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "go-leave-balance-provisioner"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: getenvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		DefaultCasualDays:  getenvInt("DEFAULT_CASUAL_DAYS", 12),
		DefaultMedicalDays: getenvInt("DEFAULT_MEDICAL_DAYS", 10),

		RateLimitRPS:   getenvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getenvInt("RATE_LIMIT_BURST", 10),

		IdempotencyTTL:     getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		BalanceCacheTTL:    getenvDuration("BALANCE_CACHE_TTL", 10*time.Minute),
		BalanceLockTTL:     getenvDuration("BALANCE_LOCK_TTL", 10*time.Second),
		OutboxPollInterval: getenvDuration("OUTBOX_POLL_INTERVAL", 3*time.Second),
	}
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks what the API needs. Worker and consumer call ValidateKafka on top.
func (c *Config) Validate() error {
	if c.DBHost == "" || c.DBPort == "" || c.DBName == "" || c.DBUser == "" {
		return errors.New("missing database config (DB_HOST/DB_PORT/DB_NAME/DB_USER)")
	}
	if _, err := net.LookupPort("tcp", c.DBPort); err != nil {
		return fmt.Errorf("invalid DB_PORT %q: %w", c.DBPort, err)
	}
	if c.DBConnectRetries < 1 {
		return errors.New("DB_CONNECT_RETRIES must be at least 1")
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.DefaultCasualDays < 0 || c.DefaultMedicalDays < 0 {
		return errors.New("default leave days must not be negative")
	}
	if c.Port == "" {
		return errors.New("missing PORT")
	}
	return nil
}

func (c *Config) ValidateKafka() error {
	if c.KafkaBroker == "" {
		return errors.New("KAFKA_BROKER is required")
	}
	return nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
