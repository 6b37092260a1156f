package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Builder  BuilderConfig  `yaml:"builder"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"SERVER_ADDR"             env-default:":8080"`
	AllowedOrigins  string        `yaml:"allowed_origins"  env:"SERVER_ALLOWED_ORIGINS"  env-default:""`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Origins splits AllowedOrigins on commas
func (c ServerConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"data/invitations.db"`
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string        `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"wedding-builder"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"  env-default:"720h"`
}

// BuilderConfig holds settings of the terminal builder
type BuilderConfig struct {
	APIBaseURL     string        `yaml:"api_base_url"    env:"BUILDER_API_BASE_URL"    env-default:"http://localhost:8080"`
	Token          string        `yaml:"token"           env:"BUILDER_TOKEN"`
	LocalStorePath string        `yaml:"local_store"     env:"BUILDER_LOCAL_STORE"     env-default:"data/local-storage.json"`
	AutosaveDelay  time.Duration `yaml:"autosave_delay"  env:"BUILDER_AUTOSAVE_DELAY"  env-default:"2s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"BUILDER_REQUEST_TIMEOUT" env-default:"15s"`
}

// WhatsAppConfig holds settings of the WhatsApp RSVP bot
type WhatsAppConfig struct {
	DataDir      string `yaml:"data_dir"      env:"WHATSAPP_DATA_DIR"      env-default:"data"`
	InvitationID string `yaml:"invitation_id" env:"WHATSAPP_INVITATION_ID"`
	PublicURL    string `yaml:"public_url"    env:"WHATSAPP_PUBLIC_URL"    env-default:"http://localhost:8080/api/public/invitations/"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY" env-default:"false"`
}

// LoadConfig reads configuration from a YAML file and environment variables.
// Environment wins over the file, the file over defaults. The file is taken
// from CONFIG_PATH; without it only the environment is read.
func LoadConfig() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	return &cfg, nil
}

// ValidateServer checks what the API server needs
func (c *Config) ValidateServer() error {
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("AUTH_JWT_SECRET must be at least 32 characters")
	}
	if c.Database.Path == "" {
		return errors.New("DATABASE_PATH is required")
	}
	return nil
}

// ValidateBuilder checks what the terminal builder needs
func (c *Config) ValidateBuilder() error {
	if c.Builder.APIBaseURL == "" {
		return errors.New("BUILDER_API_BASE_URL is required")
	}
	if c.Builder.AutosaveDelay <= 0 {
		return errors.New("BUILDER_AUTOSAVE_DELAY must be positive")
	}
	return nil
}
