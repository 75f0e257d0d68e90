package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port           string  `mapstructure:"port"`
		MetricsPort    string  `mapstructure:"metrics_port"`
		LogLevel       string  `mapstructure:"log_level"`
		Environment    string  `mapstructure:"environment"`
		JWTSecret      string  `mapstructure:"jwt_secret"`
		RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
		RateLimitBurst int     `mapstructure:"rate_limit_burst"`
		Timezone       string  `mapstructure:"timezone"`
	} `mapstructure:"server"`
	Database struct {
		Driver   string `mapstructure:"driver"` // postgres or sqlite
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		Path     string `mapstructure:"path"` // sqlite file
	} `mapstructure:"database"`
	Storage struct {
		Provider        string `mapstructure:"provider"` // s3 or local
		KeyID           string `mapstructure:"key_id"`
		AppKey          string `mapstructure:"app_key"`
		Endpoint        string `mapstructure:"endpoint"`
		Region          string `mapstructure:"region"`
		BucketManifests string `mapstructure:"bucket_manifests"`
		LocalRoot       string `mapstructure:"local_root"`
	} `mapstructure:"storage"`
	Publisher struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
		HorizonDays     int `mapstructure:"horizon_days"`
	} `mapstructure:"publisher"`
	Seed struct {
		TimeTagsFile string `mapstructure:"timetags_file"`
	} `mapstructure:"seed"`
}

var keys = []string{
	"server.port",
	"server.metrics_port",
	"server.log_level",
	"server.environment",
	"server.jwt_secret",
	"server.rate_limit_rps",
	"server.rate_limit_burst",
	"server.timezone",

	"database.driver",
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.name",
	"database.path",

	"storage.provider",
	"storage.key_id",
	"storage.app_key",
	"storage.endpoint",
	"storage.region",
	"storage.bucket_manifests",
	"storage.local_root",

	"publisher.interval_seconds",
	"publisher.horizon_days",

	"seed.timetags_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8081")
	v.SetDefault("server.metrics_port", ":9091")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.timezone", "UTC")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.path", "signage.db")

	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.bucket_manifests", "signage-manifests")
	v.SetDefault("storage.local_root", "./data")

	v.SetDefault("publisher.interval_seconds", 300)
	v.SetDefault("publisher.horizon_days", 14)
}

// Need names a section a binary cannot run without.
type Need int

const (
	// NeedAuth requires a JWT secret.
	NeedAuth Need = iota
	// NeedStorage requires credentials for the configured storage provider.
	NeedStorage
)

// Load reads .env (if present), then config.yaml and SIGNAGE_* variables.
// Environment variables win over the file.
func Load(needs ...Need) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("SIGNAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(needs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every binary uses, plus those named by needs.
func (c *Config) Validate(needs ...Need) error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q: must be postgres or sqlite", c.Database.Driver)
	}
	switch c.Storage.Provider {
	case "local", "s3":
	default:
		return fmt.Errorf("storage.provider %q: must be s3 or local", c.Storage.Provider)
	}
	for _, n := range needs {
		switch n {
		case NeedAuth:
			if c.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is required (SIGNAGE_SERVER_JWT_SECRET)")
			}
		case NeedStorage:
			if c.Storage.Provider == "s3" && c.Storage.KeyID == "" {
				return errors.New("storage.key_id is required for the s3 provider (SIGNAGE_STORAGE_KEY_ID)")
			}
		}
	}
	if c.Publisher.HorizonDays < 1 {
		c.Publisher.HorizonDays = 1
	}
	return nil
}
