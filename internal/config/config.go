package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Conversion ConversionConfig `mapstructure:"conversion"`
	Validator  ValidatorConfig  `mapstructure:"validator"`
	Index      IndexConfig      `mapstructure:"index"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Credential CredentialConfig `mapstructure:"credential"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
	}
	return c.Path
}

// ConversionConfig points at the external format conversion service.
type ConversionConfig struct {
	Provider string        `mapstructure:"provider"` // http, local
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ValidatorConfig points at the external schema validation service.
type ValidatorConfig struct {
	Provider string        `mapstructure:"provider"` // http, envelope
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// IndexConfig points at the bulk event index.
type IndexConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexName string        `mapstructure:"index_name"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// CredentialConfig selects how routing credentials are resolved.
type CredentialConfig struct {
	Provider string `mapstructure:"provider"` // env, file
	FilePath string `mapstructure:"file_path"`
}

type NotifierConfig struct {
	Provider   string        `mapstructure:"provider"` // webhook, log
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/traceflow.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("conversion.provider", "http")
	v.SetDefault("conversion.base_url", "http://localhost:8091")
	v.SetDefault("conversion.timeout", "60s")
	v.SetDefault("validator.provider", "http")
	v.SetDefault("validator.base_url", "http://localhost:8092")
	v.SetDefault("validator.timeout", "30s")
	v.SetDefault("index.base_url", "http://localhost:9200")
	v.SetDefault("index.index_name", "trace-events")
	v.SetDefault("index.timeout", "60s")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "trace-documents")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("credential.provider", "env")
	v.SetDefault("notifier.provider", "log")
	v.SetDefault("notifier.timeout", "10s")
	v.SetDefault("pipeline.workers", 4)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.name", "DATABASE_NAME")
	v.BindEnv("conversion.base_url", "CONVERSION_BASE_URL")
	v.BindEnv("conversion.api_key", "CONVERSION_API_KEY")
	v.BindEnv("validator.base_url", "VALIDATOR_BASE_URL")
	v.BindEnv("validator.api_key", "VALIDATOR_API_KEY")
	v.BindEnv("index.base_url", "INDEX_BASE_URL")
	v.BindEnv("index.api_key", "INDEX_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("notifier.webhook_url", "NOTIFIER_WEBHOOK_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
