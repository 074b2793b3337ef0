package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	Path         string
	MaxOpenConns int
}

// DSN returns the connection string understood by the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL returns the migrate-style database URL.
func (c DatabaseConfig) URL() string {
	if c.Driver == DriverSQLite {
		return "sqlite://" + c.Path
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type SMTPConfig struct {
	Server      string
	Port        int
	Username    string
	Password    string
	From        string
	RatePerSec  float64
	DialTimeout time.Duration
}

func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WorkerConfig struct {
	CheckInterval     time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	ProcessingTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int
	ShutdownTimeout   time.Duration
}

type HTTPConfig struct {
	Addr      string
	JWTSecret string
	RateLimit string
}

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	DB      DatabaseConfig
	SMTP    SMTPConfig
	Catalog CatalogConfig
	Worker  WorkerConfig
	HTTP    HTTPConfig
	Log     LogConfig
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DB: DatabaseConfig{
			Driver:       v.GetString("DB_DRIVER"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			Path:         v.GetString("DB_PATH"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		},
		SMTP: SMTPConfig{
			Server:      v.GetString("SMTP_SERVER"),
			Port:        v.GetInt("SMTP_PORT"),
			Username:    v.GetString("SMTP_USERNAME"),
			Password:    v.GetString("SMTP_PASSWORD"),
			From:        v.GetString("EMAIL_FROM"),
			RatePerSec:  v.GetFloat64("EMAIL_RATE_PER_SEC"),
			DialTimeout: seconds(v, "SMTP_TIMEOUT"),
		},
		Catalog: CatalogConfig{
			BaseURL: v.GetString("API_BASE_URL"),
			Timeout: seconds(v, "API_TIMEOUT"),
		},
		Worker: WorkerConfig{
			CheckInterval:     seconds(v, "CHECK_INTERVAL"),
			MaxRetries:        v.GetInt("MAX_RETRIES"),
			RetryDelay:        seconds(v, "RETRY_DELAY"),
			ProcessingTimeout: seconds(v, "PROCESSING_TIMEOUT"),
			PollInterval:      seconds(v, "POLL_INTERVAL"),
			BatchSize:         v.GetInt("QUEUE_BATCH_SIZE"),
			ShutdownTimeout:   seconds(v, "SHUTDOWN_TIMEOUT"),
		},
		HTTP: HTTPConfig{
			Addr:      v.GetString("HTTP_ADDR"),
			JWTSecret: v.GetString("JWT_SECRET"),
			RateLimit: v.GetString("API_RATE_LIMIT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Intervals are configured in whole seconds, as the deployment scripts expect.
func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "advint_vendor_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "vendoralerts.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)

	v.SetDefault("SMTP_SERVER", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "notifications@advintpharma.in")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("EMAIL_FROM", "notifications@advintpharma.in")
	v.SetDefault("EMAIL_RATE_PER_SEC", 5)
	v.SetDefault("SMTP_TIMEOUT", 30)

	v.SetDefault("API_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("API_TIMEOUT", 30)

	v.SetDefault("CHECK_INTERVAL", 300)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_DELAY", 60)
	v.SetDefault("PROCESSING_TIMEOUT", 900)
	v.SetDefault("POLL_INTERVAL", 1)
	v.SetDefault("QUEUE_BATCH_SIZE", 100)
	v.SetDefault("SHUTDOWN_TIMEOUT", 5)

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("API_RATE_LIMIT", "300-M")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if c.Worker.MaxRetries < 1 {
		errs = append(errs, errors.New("MAX_RETRIES must be at least 1"))
	}
	if c.Worker.CheckInterval <= 0 || c.Worker.PollInterval <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL and POLL_INTERVAL must be positive"))
	}
	if c.Worker.RetryDelay < 0 {
		errs = append(errs, errors.New("RETRY_DELAY must not be negative"))
	}
	if c.Worker.BatchSize < 1 {
		errs = append(errs, errors.New("QUEUE_BATCH_SIZE must be at least 1"))
	}
	return errors.Join(errs...)
}

// LogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c LogConfig) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
