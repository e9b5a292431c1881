package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	SessionSecret   string   `mapstructure:"SESSION_SECRET"`
	SessionTTLMin   int      `mapstructure:"SESSION_TTL_MIN"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	ClinicName      string   `mapstructure:"CLINIC_NAME"`
	ClinicAddress   string   `mapstructure:"CLINIC_ADDRESS"`
	LogFile         string   `mapstructure:"LOG_FILE"`
	LogMaxSizeMB    int      `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups   int      `mapstructure:"LOG_MAX_BACKUPS"`
	MaxAttachmentMB int      `mapstructure:"MAX_ATTACHMENT_MB"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL_MIN", 480)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CLINIC_NAME", "Clínica del Sol")
	v.SetDefault("CLINIC_ADDRESS", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 50)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("MAX_ATTACHMENT_MB", 20)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_TTL_MIN")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("CLINIC_NAME")
	v.BindEnv("CLINIC_ADDRESS")
	v.BindEnv("LOG_FILE")
	v.BindEnv("LOG_MAX_SIZE_MB")
	v.BindEnv("LOG_MAX_BACKUPS")
	v.BindEnv("MAX_ATTACHMENT_MB")

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

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.SessionSecret == "" {
		log.Println("WARNING: SESSION_SECRET not set; using an insecure development secret.")
		log.Println("WARNING: Set SESSION_SECRET before running outside development.")
		cfg.SessionSecret = "dev-secret-do-not-use"
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a real SESSION_SECRET is mandatory: session tokens are signed with it.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.SessionSecret == "" || c.SessionSecret == "dev-secret-do-not-use" {
			return fmt.Errorf("SESSION_SECRET must be set when ENV=%q", c.Env)
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(c.SessionSecret))
		}
	}
	if c.SessionTTLMin <= 0 {
		return fmt.Errorf("SESSION_TTL_MIN must be positive, got %d", c.SessionTTLMin)
	}
	if c.MaxAttachmentMB <= 0 {
		return fmt.Errorf("MAX_ATTACHMENT_MB must be positive, got %d", c.MaxAttachmentMB)
	}
	return nil
}
