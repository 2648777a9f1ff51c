// Package config loads service configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables (a .env file in the working directory is
// loaded into the environment first, without overriding variables that are
// already set).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/event-reservations/internal/database"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

const minSecretLen = 16

// Config is the complete service configuration.
type Config struct {
	LogLevel string          `yaml:"log_level"`
	Store    string          `yaml:"store"`
	HTTP     HTTPConfig      `yaml:"http"`
	Database database.Config `yaml:"database"`
	Auth     AuthConfig      `yaml:"auth"`
	Ticket   TicketConfig    `yaml:"ticket"`
	Storage  StorageConfig   `yaml:"storage"`
	Notify   NotifyConfig    `yaml:"notify"`
	Mail     MailConfig      `yaml:"mail"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// AuthConfig configures the bearer-token identity adapter.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// TicketConfig configures ticket signing and the verification link.
type TicketConfig struct {
	// SigningSecret keys ticket signatures. Rotating it invalidates every
	// ticket already handed out.
	SigningSecret string `yaml:"signing_secret"`

	// PublicBaseURL prefixes the verification URL encoded in the QR code.
	PublicBaseURL string `yaml:"public_base_url"`
}

// StorageConfig configures the object store for rendered tickets and avatars.
type StorageConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// NotifyConfig sizes the notification worker pool.
type NotifyConfig struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// MailConfig configures the mail gateway. An empty API key selects the
// logging sender.
type MailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
	Endpoint     string `yaml:"endpoint"`
}

// Default returns the local-development configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store:    StorePostgres,
		HTTP: HTTPConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: database.Config{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "eventreservations",
			SSLMode:  "disable",
		},
		Ticket: TicketConfig{
			PublicBaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Dir:     "./data",
			BaseURL: "http://localhost:8080/files",
		},
		Notify: NotifyConfig{
			Workers:     4,
			QueueSize:   256,
			TaskTimeout: 30 * time.Second,
		},
		Mail: MailConfig{
			From:     "Event Reservations <noreply@localhost>",
			Endpoint: "https://api.resend.com/emails",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that required settings are present and coherent.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}
	if len(c.Auth.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", minSecretLen))
	}
	if len(c.Ticket.SigningSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("ticket.signing_secret must be at least %d bytes", minSecretLen))
	}
	if c.Ticket.PublicBaseURL == "" {
		errs = append(errs, errors.New("ticket.public_base_url is required"))
	}
	if c.Storage.Dir == "" {
		errs = append(errs, errors.New("storage.dir is required"))
	}
	if c.Notify.Workers <= 0 || c.Notify.QueueSize <= 0 {
		errs = append(errs, errors.New("notify.workers and notify.queue_size must be positive"))
	}
	return errors.Join(errs...)
}

// applyEnv overrides cfg with well-known environment variables.
func applyEnv(cfg *Config) error {
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Store, "STORE")
	setString(&cfg.HTTP.Port, "PORT")

	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Ticket.SigningSecret, "TICKET_SIGNING_SECRET")
	setString(&cfg.Ticket.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.Storage.Dir, "STORAGE_DIR")
	setString(&cfg.Storage.BaseURL, "STORAGE_BASE_URL")

	setString(&cfg.Mail.ResendAPIKey, "RESEND_API_KEY")
	setString(&cfg.Mail.From, "MAIL_FROM")

	if err := setInt(&cfg.Notify.Workers, "NOTIFY_WORKERS"); err != nil {
		return err
	}
	if err := setInt(&cfg.Notify.QueueSize, "NOTIFY_QUEUE_SIZE"); err != nil {
		return err
	}

	cfg.Ticket.PublicBaseURL = strings.TrimRight(cfg.Ticket.PublicBaseURL, "/")
	cfg.Storage.BaseURL = strings.TrimRight(cfg.Storage.BaseURL, "/")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
