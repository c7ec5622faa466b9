package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       int    `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	Dsn        string `env:"DSN" envDefault:"postgres://localhost:5432/parklist?sslmode=disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/parklist.sqlite"`

	// IPHashSalt keys the one-way hash of voter IP addresses.
	IPHashSalt     string        `env:"IP_HASH_SALT,required,notEmpty"`
	AuthSecret     string        `env:"AUTH_SECRET,required,notEmpty"`
	SessionExpires time.Duration `env:"SESSION_EXPIRES" envDefault:"720h"`

	AppURL       string `env:"APP_URL" envDefault:"http://localhost:8080"`
	AuthURL      string `env:"AUTH_URL"`
	AuthEmailLog bool   `env:"AUTH_EMAIL_LOG" envDefault:"false"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"ParkListMc <no-reply@parklist.mc>"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	DiscordClientID       string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret   string `env:"DISCORD_CLIENT_SECRET"`
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`
	MicrosoftTenantID     string `env:"MICROSOFT_TENANT_ID" envDefault:"common"`

	VotifierServiceName string `env:"VOTIFIER_SERVICE_NAME" envDefault:"ParkListMc"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// BaseURL is the public origin used for OAuth redirects and reset links.
func (c *Config) BaseURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return c.AppURL
}

// New loads .env when present and parses the environment. A missing secret
// is an error; callers should refuse to start.
func New() (*Config, error) {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		slog.Debug("[Env]: unable to load .env file", "error", loadErr)
	}
	return Parse()
}

// Parse reads the process environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("[Env]: failed to parse environment variables: %w", err)
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, errors.New("[Env]: DB_DRIVER must be postgres or sqlite")
	}
	return &cfg, nil
}
