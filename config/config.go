/*
config.go - Application configuration

PURPOSE:
  Loads configuration from environment variables and an optional .env
  file via Viper. Env vars take priority over the file; every setting
  has a working default so the server runs with zero configuration.

SETTINGS:
  APP_ENV     development | staging | production (default: development)
  APP_NAME    Service name used in logs (default: stock-engine)
  HTTP_HOST   Listen host (default: 0.0.0.0)
  HTTP_PORT   Listen port (default: 8080)
  DB_PATH     SQLite database path, ":memory:" allowed (default: stock.db)
  LOG_LEVEL   zerolog level: trace..panic (default: info)

SEE ALSO:
  - cmd/server/main.go: Consumes the loaded config
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config groups the application configuration.
type Config struct {
	App  AppConfig
	HTTP HTTPConfig
	DB   DBConfig
	Log  LogConfig
}

// AppConfig is general application configuration.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// HTTPConfig is the HTTP server configuration.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig is the SQLite configuration.
type DBConfig struct {
	Path string
}

// LogConfig is the logging configuration.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and an optional
// .env file. Env vars take priority.
func Load() (*Config, error) {
	v := viper.New()

	// Optional .env file in the working directory
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "stock-engine")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("DB_PATH", "stock.db")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			Path: v.GetString("DB_PATH"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	return cfg, nil
}
