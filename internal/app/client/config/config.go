package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".scorekeeper"
	defaultDataFile      = "scorekeeper.db"
)

type Config struct {
	Env               string        `mapstructure:"app_env"`
	ServerAddress     string        `mapstructure:"server_address"`
	LogLevel          string        `mapstructure:"log_level"`
	ConfigDir         string        `mapstructure:"config_dir"`
	DataPath          string        `mapstructure:"data_path"`
	UserID            string        `mapstructure:"user_id"`
	APIToken          string        `mapstructure:"api_token"`
	SyncInterval      int           `mapstructure:"sync_interval_seconds"`
	ConnectivityCheck int           `mapstructure:"connectivity_check_seconds"`
	SyncDebounce      time.Duration `mapstructure:"sync_debounce_ms"`
	BatchSize         int           `mapstructure:"batch_size"`
	MaxRetries        int           `mapstructure:"max_retries"`
	EnableTLS         bool          `mapstructure:"enable_tls"`
	MetricsStdout     bool          `mapstructure:"metrics_stdout"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	config, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

// Load читает конфигурацию из глобального viper. Значения из файла,
// прочитанного командой, перекрываются переменными окружения.
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("CONNECTIVITY_CHECK_SECONDS", 10)
	viper.SetDefault("SYNC_DEBOUNCE_MS", 500)
	viper.SetDefault("BATCH_SIZE", 50)
	viper.SetDefault("MAX_RETRIES", 5)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("METRICS_STDOUT", false)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("ошибка создания директории конфигурации: %w", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, defaultDataFile)
	}

	config := &Config{
		Env:               viper.GetString("APP_ENV"),
		ServerAddress:     viper.GetString("SERVER_ADDRESS"),
		LogLevel:          viper.GetString("LOG_LEVEL"),
		ConfigDir:         configDir,
		DataPath:          dataPath,
		UserID:            viper.GetString("USER_ID"),
		APIToken:          viper.GetString("API_TOKEN"),
		SyncInterval:      viper.GetInt("SYNC_INTERVAL_SECONDS"),
		ConnectivityCheck: viper.GetInt("CONNECTIVITY_CHECK_SECONDS"),
		SyncDebounce:      time.Duration(viper.GetInt("SYNC_DEBOUNCE_MS")) * time.Millisecond,
		BatchSize:         viper.GetInt("BATCH_SIZE"),
		MaxRetries:        viper.GetInt("MAX_RETRIES"),
		EnableTLS:         viper.GetBool("ENABLE_TLS"),
		MetricsStdout:     viper.GetBool("METRICS_STDOUT"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size должен быть положительным")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries не может быть отрицательным")
	}
	if c.SyncDebounce <= 0 {
		return fmt.Errorf("sync_debounce_ms должен быть положительным")
	}
	if (c.UserID == "") != (c.APIToken == "") {
		return fmt.Errorf("user_id и api_token задаются вместе")
	}
	return nil
}

// Authenticated сообщает, заданы ли учетные данные
func (c *Config) Authenticated() bool {
	return c.UserID != "" && c.APIToken != ""
}

// BaseURL адрес сервера со схемой
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
