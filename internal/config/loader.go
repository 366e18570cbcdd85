package config

import (
	"fmt"

	"github.com/rpattn/advfilter/internal/db"
	"github.com/rpattn/advfilter/internal/domain"
	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	MigrationsPath string
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	DB       db.Config
	Catalogs map[string]domain.FieldCatalog
}

// DefaultServerConfig returns the default HTTP server settings.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		MigrationsPath: "./migrations",
	}
}

// Load reads config.yaml from the given path with environment overrides. The
// entities section supplies per-entity-type field catalogs so filter
// validation never needs a database round trip.
func Load(configPath string) (Config, error) {
	cfg := Config{
		Server: DefaultServerConfig(),
		DB:     db.DefaultConfig(),
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()       // allow environment overrides
	v.SetEnvPrefix("ADVF") // map env vars like ADVF_DATABASE.HOST

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.migrations_path") {
		cfg.Server.MigrationsPath = v.GetString("server.migrations_path")
	}

	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("entities") {
		if err := v.UnmarshalKey("entities", &cfg.Catalogs); err != nil {
			return Config{}, fmt.Errorf("failed to parse entity field catalogs: %w", err)
		}
	}

	return cfg, nil
}
