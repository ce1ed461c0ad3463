package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Currency CurrencyConfig `mapstructure:"currency"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// OpenAIConfig holds the extraction and classification model settings
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	ExtractionModel string        `mapstructure:"extraction_model"`
	ClassifierModel string        `mapstructure:"classifier_model"`
	Temperature     float32       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CurrencyConfig holds rate lookup settings
type CurrencyConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
}

// StorageConfig holds document storage settings
type StorageConfig struct {
	DocumentDir string `mapstructure:"document_dir"`
	PublicURL   string `mapstructure:"public_url"`
}

// LarkConfig holds optional review-notification settings
type LarkConfig struct {
	AppID      string `mapstructure:"app_id"`
	AppSecret  string `mapstructure:"app_secret"`
	ReviewChat string `mapstructure:"review_chat"`
}

// PipelineConfig holds approval pipeline tunables
type PipelineConfig struct {
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/benefits.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("openai.extraction_model", "gpt-4o")
	viper.SetDefault("openai.classifier_model", "gpt-4")
	viper.SetDefault("openai.temperature", 0.3)
	viper.SetDefault("openai.timeout", 60*time.Second)

	viper.SetDefault("currency.cache_ttl", time.Hour)
	viper.SetDefault("currency.provider_timeout", 10*time.Second)

	viper.SetDefault("storage.document_dir", "data/documents")
	viper.SetDefault("storage.public_url", "/documents")

	viper.SetDefault("pipeline.provider_timeout", 60*time.Second)
	viper.SetDefault("pipeline.confidence_threshold", 0.70)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.review_chat", "LARK_REVIEW_CHAT")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Pipeline.ConfidenceThreshold <= 0 || c.Pipeline.ConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.confidence_threshold must be in (0, 1]")
	}
	if c.Storage.DocumentDir == "" {
		return fmt.Errorf("storage.document_dir is required")
	}
	return nil
}
