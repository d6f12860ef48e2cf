package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	App struct {
		Mode        string `env:"APP_MODE"`
		HTTPPort    string `env:"HTTP_PORT"`
		Secret      string `env:"SECRET"`
		CORSOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	}
	Database struct {
		Driver  string `env:"DATABASE_DRIVER"`
		DSN     string `env:"DATABASE_DSN"`
		SeedCSV string `env:"SEED_PRODUCTS_CSV"`
	}
	Admin struct {
		Email    string `env:"ADMIN_EMAIL"`
		Password string `env:"ADMIN_PASSWORD"`
	}
	Backend struct {
		URL            string `env:"BACKEND_API_URL"`
		TimeoutSeconds int    `env:"BACKEND_TIMEOUT_SECONDS"`
	}
	Scheduler struct {
		ExpiryAlertDays    int `env:"EXPIRY_ALERT_DAYS"`
		SessionIdleMinutes int `env:"SESSION_IDLE_MINUTES"`
	}
}

// Load reads configuration from the environment, after an optional .env
// file, and fills in defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Mode == "" {
		c.App.Mode = "production"
	}
	if c.App.Secret == "" {
		c.App.Secret = "dev_secret"
	}
	if c.App.HTTPPort == "" {
		c.App.HTTPPort = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(c.App.HTTPPort); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", c.App.HTTPPort)
		c.App.HTTPPort = "8080"
	}
	if c.App.CORSOrigins == "" {
		c.App.CORSOrigins = "*"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "pharmapos.db"
	}
	if c.Database.SeedCSV == "" {
		c.Database.SeedCSV = "assets/products.csv"
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Scheduler.ExpiryAlertDays <= 0 {
		c.Scheduler.ExpiryAlertDays = 30
	}
	if c.Scheduler.SessionIdleMinutes <= 0 {
		c.Scheduler.SessionIdleMinutes = 60
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.App.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c Config) SessionIdle() time.Duration {
	return time.Duration(c.Scheduler.SessionIdleMinutes) * time.Minute
}
