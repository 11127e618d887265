package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Host            string        `mapstructure:"server_host" validate:"required"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// Processing
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
	MaxImagePixels    int           `mapstructure:"max_image_pixels" validate:"gt=0"`
	ProcessingWorkers int           `mapstructure:"processing_workers" validate:"gte=0"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout" validate:"gt=0"`
	NoiseThreshold    float64       `mapstructure:"noise_threshold" validate:"gt=0"`

	// Chat providers
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	GeminiModel       string        `mapstructure:"gemini_model" validate:"required"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	OpenAIModel       string        `mapstructure:"openai_model" validate:"required"`
	ChatRatePerSecond float64       `mapstructure:"chat_rate_per_second" validate:"gte=0"`
	ChatTimeout       time.Duration `mapstructure:"chat_timeout" validate:"gt=0"`

	// Upload backends
	ImgBBAPIKey           string `mapstructure:"imgbb_api_key"`
	CloudinaryCloudName   string `mapstructure:"cloudinary_cloud_name"`
	CloudinaryAPIKey      string `mapstructure:"cloudinary_api_key" validate:"required_with=CloudinaryCloudName"`
	CloudinaryAPISecret   string `mapstructure:"cloudinary_api_secret" validate:"required_with=CloudinaryCloudName"`
	AzureStorageAccount   string `mapstructure:"azure_storage_account"`
	AzureStorageKey       string `mapstructure:"azure_storage_key" validate:"required_with=AzureStorageAccount"`
	AzureStorageContainer string `mapstructure:"azure_storage_container" validate:"required"`
	UploadDir             string `mapstructure:"upload_dir" validate:"required"`
	UploadMetaDir         string `mapstructure:"upload_meta_dir" validate:"nefield=UploadDir"`

	// Client-supplied image URLs
	BlockPrivateImageHosts bool     `mapstructure:"block_private_image_hosts"`
	AllowedImageHosts      []string `mapstructure:"allowed_image_hosts"`

	// Wikipedia
	WikipediaEnabled bool   `mapstructure:"wikipedia_enabled"`
	WikipediaBaseURL string `mapstructure:"wikipedia_base_url" validate:"required,url"`

	// History and events
	DatabaseURL  string `mapstructure:"database_url"`
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange" validate:"required_with=AMQPURL"`

	// Logging and CORS
	LogLevel           string   `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal"`
	LogFile            string   `mapstructure:"log_file"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" validate:"min=1"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads configuration from the environment. When CONFIG_FILE is
// set, that YAML file supplies values the environment does not.
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.CORSAllowedOrigins = trimAll(cfg.CORSAllowedOrigins)
	cfg.AllowedImageHosts = trimAll(cfg.AllowedImageHosts)
	if cfg.UploadMetaDir == "" {
		cfg.UploadMetaDir = filepath.Clean(cfg.UploadDir) + "-meta"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("port", "5000")
	v.SetDefault("read_timeout", 30*time.Second)
	v.SetDefault("write_timeout", 120*time.Second)
	v.SetDefault("idle_timeout", 60*time.Second)
	v.SetDefault("shutdown_timeout", 30*time.Second)

	v.SetDefault("max_upload_bytes", 16<<20) // 16MB
	v.SetDefault("max_image_pixels", 40_000_000)
	v.SetDefault("processing_workers", 0)
	v.SetDefault("processing_timeout", 90*time.Second)
	v.SetDefault("noise_threshold", 1800.0)

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-3.5-turbo")
	v.SetDefault("chat_rate_per_second", 2.0)
	v.SetDefault("chat_timeout", 30*time.Second)

	v.SetDefault("imgbb_api_key", "")
	v.SetDefault("cloudinary_cloud_name", "")
	v.SetDefault("cloudinary_api_key", "")
	v.SetDefault("cloudinary_api_secret", "")
	v.SetDefault("azure_storage_account", "")
	v.SetDefault("azure_storage_key", "")
	v.SetDefault("azure_storage_container", "heri-science")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("upload_meta_dir", "")

	v.SetDefault("block_private_image_hosts", true)
	v.SetDefault("allowed_image_hosts", []string{})

	v.SetDefault("wikipedia_enabled", true)
	v.SetDefault("wikipedia_base_url", "https://en.wikipedia.org/w/api.php")

	v.SetDefault("database_url", "")
	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "heri.events")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("cors_allowed_origins", []string{"*"})
}

var validate = validator.New()

// Validate checks struct constraints and the port range
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, formatValidationError(e))
		}
		sort.Strings(msgs)
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "required_with":
		return field + " is required when " + e.Param() + " is set"
	case "gt", "gte":
		return field + " must be " + e.Tag() + " " + e.Param()
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "url":
		return field + " must be a valid URL"
	case "nefield":
		return field + " must differ from " + e.Param()
	default:
		return field + " is invalid"
	}
}

// ChatConfigured reports whether any chat provider has credentials
func (c *Config) ChatConfigured() bool {
	return c.GeminiAPIKey != "" || c.OpenAIAPIKey != ""
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
