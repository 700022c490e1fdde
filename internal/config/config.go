package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret     string   `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes int      `mapstructure:"JWT_TTL_MINUTES"`
	ClinicTZ      string   `mapstructure:"CLINIC_TZ"`
	FrontendURL   string   `mapstructure:"FRONTEND_BASE_URL"`
	MailFrom      string   `mapstructure:"MAIL_FROM"`
	SMTPAddr      string   `mapstructure:"SMTP_ADDR"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	DocumentsDir  string   `mapstructure:"DOCUMENTS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("CLINIC_TZ", "America/Argentina/Cordoba")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:5173")
	v.SetDefault("MAIL_FROM", "no-reply@lazos.local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("DOCUMENTS_DIR", "media/documentos")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_MINUTES")
	v.BindEnv("CLINIC_TZ")
	v.BindEnv("FRONTEND_BASE_URL")
	v.BindEnv("MAIL_FROM")
	v.BindEnv("SMTP_ADDR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("DOCUMENTS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

// JWTTTL returns the session token lifetime.
func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// Location resolves the clinic's timezone. Business-hour rules are
// evaluated in this zone regardless of the timestamps' own offsets.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTZ)
	if err != nil {
		return nil, fmt.Errorf("load clinic timezone %q: %w", c.ClinicTZ, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. In production
// the JWT secret must be set; development falls back to an ephemeral
// secret generated at startup.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("JWT_TTL_MINUTES must be positive, got %d", c.JWTTTLMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
