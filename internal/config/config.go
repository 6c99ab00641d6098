package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	// Embedded zone database so TIMEZONE resolves on minimal images.
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"

	MailSMTP  = "smtp"
	MailRelay = "relay"
	MailLog   = "log"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Mail      MailConfig
	Scheduler SchedulerConfig
	Email     EmailQueueConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// MailConfig selects and configures the outbound email transport.
type MailConfig struct {
	Driver       string
	From         string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	RelayURL     string
	RelayToken   string
}

// SchedulerConfig holds the daily job schedules.
type SchedulerConfig struct {
	ExpiryCronSchedule   string
	MealPlanCronSchedule string
	Timezone             string
}

// EmailQueueConfig sizes the asynchronous email worker pool.
type EmailQueueConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Location loads the configured timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	smtpPort, err := getenvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	workers, err := getenvInt("EMAIL_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	queueSize, err := getenvInt("EMAIL_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(getenvWithDefault("EMAIL_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: getenvWithDefault("STORAGE_DRIVER", StorageMongoDB),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "fridge"),
		},
		Mail: MailConfig{
			Driver:       getenvWithDefault("MAIL_DRIVER", MailLog),
			From:         getenvWithDefault("SMTP_FROM", "no-reply@fridge.local"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     smtpPort,
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			RelayURL:     os.Getenv("MAIL_RELAY_URL"),
			RelayToken:   os.Getenv("MAIL_RELAY_TOKEN"),
		},
		Scheduler: SchedulerConfig{
			ExpiryCronSchedule:   getenvWithDefault("EXPIRY_CRON_SCHEDULE", "0 7 * * *"),
			MealPlanCronSchedule: getenvWithDefault("MEALPLAN_CRON_SCHEDULE", "0 18 * * *"),
			Timezone:             getenvWithDefault("TIMEZONE", "Asia/Ho_Chi_Minh"),
		},
		Email: EmailQueueConfig{
			Workers:   workers,
			QueueSize: queueSize,
			Timeout:   timeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Storage.Driver {
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Mail.Driver {
	case MailSMTP:
		if c.Mail.SMTPHost == "" {
			return errors.New("SMTP_HOST must be provided when MAIL_DRIVER=smtp")
		}
		if c.Mail.SMTPPort <= 0 {
			return errors.New("SMTP_PORT must be positive")
		}
	case MailRelay:
		if c.Mail.RelayURL == "" {
			return errors.New("MAIL_RELAY_URL must be provided when MAIL_DRIVER=relay")
		}
	case MailLog:
	default:
		return fmt.Errorf("unsupported MAIL_DRIVER %q", c.Mail.Driver)
	}

	if c.Scheduler.ExpiryCronSchedule == "" {
		return errors.New("EXPIRY_CRON_SCHEDULE must be provided")
	}

	if c.Scheduler.MealPlanCronSchedule == "" {
		return errors.New("MEALPLAN_CRON_SCHEDULE must be provided")
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}

	if c.Email.Workers <= 0 {
		return errors.New("EMAIL_WORKERS must be positive")
	}

	if c.Email.QueueSize <= 0 {
		return errors.New("EMAIL_QUEUE_SIZE must be positive")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
