package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string `mapstructure:"PORT"`
	Env             string `mapstructure:"ENV"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32  `mapstructure:"DB_MIN_CONNS"`
	MLLPAddr        string `mapstructure:"MLLP_ADDR"`
	SendingApp      string `mapstructure:"SENDING_APP"`
	SendingFacility string `mapstructure:"SENDING_FACILITY"`
	AuthSecret      string `mapstructure:"AUTH_SECRET"`
	DefaultSystem   string `mapstructure:"DEFAULT_SYSTEM"`
	DefaultOID      string `mapstructure:"DEFAULT_OID"`
	MigrationsDir   string `mapstructure:"MIGRATIONS_DIR"`
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
	v.SetDefault("MLLP_ADDR", ":2575")
	v.SetDefault("SENDING_APP", "PAM")
	v.SetDefault("SENDING_FACILITY", "PAM")
	v.SetDefault("DEFAULT_SYSTEM", "LOCAL")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MLLP_ADDR")
	v.BindEnv("SENDING_APP")
	v.BindEnv("SENDING_FACILITY")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("DEFAULT_SYSTEM")
	v.BindEnv("DEFAULT_OID")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Production
// deployments must protect the query API with a token secret.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV is not development")
	}
	return nil
}
