package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type RemoteConfig struct {
	BaseURL       string
	InternalToken string
	Timeout       time.Duration
}

type PlateConfig struct {
	MaxLength              int
	HotRefreshInterval     time.Duration
	WatchlistRefreshPeriod time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Remote      RemoteConfig
	Plate       PlateConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Remote: RemoteConfig{
			BaseURL:       v.GetString("REMOTE_BASE_URL"),
			InternalToken: v.GetString("REMOTE_INTERNAL_TOKEN"),
			Timeout:       v.GetDuration("REMOTE_TIMEOUT"),
		},
		Plate: PlateConfig{
			MaxLength:              v.GetInt("PLATE_MAX_LENGTH"),
			HotRefreshInterval:     v.GetDuration("HOT_REFRESH_INTERVAL"),
			WatchlistRefreshPeriod: v.GetDuration("WATCHLIST_REFRESH_PERIOD"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 30 * time.Second
	}
	if cfg.Plate.MaxLength == 0 {
		cfg.Plate.MaxLength = 8
	}
	if cfg.Plate.HotRefreshInterval == 0 {
		cfg.Plate.HotRefreshInterval = 24 * time.Hour
	}
	if cfg.Plate.WatchlistRefreshPeriod == 0 {
		cfg.Plate.WatchlistRefreshPeriod = time.Hour
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}
