package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Env           string `mapstructure:"ENV"`
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`
	AdminKey      string `mapstructure:"ADMIN_KEY"`
	CORSAllowed   string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LocalTZ       string `mapstructure:"LOCAL_TZ"`
	SAUsername    string `mapstructure:"SA_USERNAME"`
	SAPassword    string `mapstructure:"SA_PASSWORD"`
	SAFirstName   string `mapstructure:"SA_FIRST_NAME"`
	SALastName    string `mapstructure:"SA_LAST_NAME"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOCAL_TZ", "America/Argentina/Tucuman")
	v.SetDefault("SA_FIRST_NAME", "sa")
	v.SetDefault("SA_LAST_NAME", "user")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
