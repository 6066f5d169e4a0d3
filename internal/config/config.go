package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env                     string        `mapstructure:"ENV"`
	Port                    string        `mapstructure:"PORT"`
	DatabaseURL             string        `mapstructure:"DATABASE_URL" validate:"required"`
	AdminKey                string        `mapstructure:"ADMIN_KEY"`
	NATSURL                 string        `mapstructure:"NATS_URL"`
	CORSAllowed             string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout          time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"gt=0"`
	RegistryRefreshInterval time.Duration `mapstructure:"REGISTRY_REFRESH_INTERVAL" validate:"gt=0"`
	QueryTimeout            time.Duration `mapstructure:"QUERY_TIMEOUT" validate:"gt=0"`
	WorkloadFailOpen        bool          `mapstructure:"WORKLOAD_FAIL_OPEN"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("REGISTRY_REFRESH_INTERVAL", "5m")
	v.SetDefault("QUERY_TIMEOUT", "5s")
	v.SetDefault("WORKLOAD_FAIL_OPEN", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
