package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress    = "localhost:8080"
	defaultMigrations    = "migrations"
	defaultStorageDir    = "data/photos"
	defaultSessionTTL    = 30 * 24 * time.Hour
	defaultShutdownAfter = 10 * time.Second
)

type Config struct {
	Env     string
	DB      DB
	Server  Server
	Storage Storage
	Logger  Logger
	Session Session
}

type DB struct {
	DatabaseURI string `mapstructure:"database_uri"`
	Migrations  string `mapstructure:"migrations_path"`
}

type Server struct {
	RunAddress      string        `mapstructure:"run_address"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Storage struct {
	Dir string `mapstructure:"storage_dir"`
}

type Logger struct {
	LogLevel string `mapstructure:"log_level"`
}

type Session struct {
	TTL time.Duration `mapstructure:"session_ttl"`
}

// MustLoad загружает конфигурацию сервера из окружения и .env
func MustLoad() *Config {
	cfg, err := Load(".env")
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает конфигурацию; отсутствие envPath не считается ошибкой.
func Load(envPath string) (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("RUN_ADDRESS", defaultRunAddress)
	v.SetDefault("MIGRATIONS_PATH", defaultMigrations)
	v.SetDefault("STORAGE_DIR", defaultStorageDir)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SESSION_TTL", defaultSessionTTL)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownAfter)

	runAddress := v.GetString("RUN_ADDRESS")
	publicURL := v.GetString("PUBLIC_BASE_URL")
	if publicURL == "" {
		publicURL = "http://" + runAddress
	}

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: DB{
			DatabaseURI: v.GetString("DATABASE_URI"),
			Migrations:  v.GetString("MIGRATIONS_PATH"),
		},
		Server: Server{
			RunAddress:      runAddress,
			PublicBaseURL:   publicURL,
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Storage: Storage{Dir: v.GetString("STORAGE_DIR")},
		Logger:  Logger{LogLevel: v.GetString("LOG_LEVEL")},
		Session: Session{TTL: v.GetDuration("SESSION_TTL")},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.DatabaseURI == "" {
		return fmt.Errorf("database_uri не может быть пустым")
	}
	if c.Server.RunAddress == "" {
		return fmt.Errorf("run_address не может быть пустым")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session_ttl должен быть положительным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
