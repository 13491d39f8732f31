package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. FOODRESCUE_SERVER_PORT.
const EnvPrefix = "FOODRESCUE"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	AWS      AWSConfig      `yaml:"aws"`
	APNS     APNSConfig     `yaml:"apns"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// TrustProxy honours X-Forwarded-For and X-Real-IP. Enable only behind
	// a proxy that overwrites them.
	TrustProxy bool `yaml:"trust_proxy" split_words:"true"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate" split_words:"true"`
}

// RedisConfig holds redis configuration. An empty address disables rate
// limiting and session revocation.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AuthConfig holds session and password configuration
type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL            time.Duration `yaml:"token_ttl" split_words:"true"`
	RequireConfirmation bool          `yaml:"require_confirmation" split_words:"true"`
	MinPasswordLength   int           `yaml:"min_password_length" split_words:"true"`

	ArgonMemoryKB    uint32 `yaml:"argon_memory_kb" envconfig:"ARGON_MEMORY_KB"`
	ArgonTime        uint32 `yaml:"argon_time" split_words:"true"`
	ArgonParallelism uint8  `yaml:"argon_parallelism" split_words:"true"`

	RateLimitWindow   time.Duration `yaml:"rate_limit_window" split_words:"true"`
	RateLimitPerEmail int           `yaml:"rate_limit_per_email" split_words:"true"`
	RateLimitPerIP    int           `yaml:"rate_limit_per_ip" envconfig:"RATE_LIMIT_PER_IP"`
}

// AWSConfig holds AWS configuration for avatar uploads
type AWSConfig struct {
	Region       string        `yaml:"region"`
	S3Bucket     string        `yaml:"s3_bucket" envconfig:"S3_BUCKET"`
	AccessKey    string        `yaml:"access_key" split_words:"true"`
	SecretKey    string        `yaml:"secret_key" split_words:"true"`
	Endpoint     string        `yaml:"endpoint"`
	PublicURL    string        `yaml:"public_url" split_words:"true"`
	UploadExpiry time.Duration `yaml:"upload_expiry" split_words:"true"`
}

// Enabled reports whether avatar uploads are configured.
func (a AWSConfig) Enabled() bool {
	return a.S3Bucket != "" && a.Region != ""
}

// APNSConfig holds Apple push notification configuration
type APNSConfig struct {
	CertFile     string `yaml:"cert_file" split_words:"true"`
	CertPassword string `yaml:"cert_password" split_words:"true"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// Enabled reports whether push notifications are configured.
func (a APNSConfig) Enabled() bool {
	return a.CertFile != "" && a.Topic != ""
}

// CacheConfig holds the profile cache configuration
type CacheConfig struct {
	ProfileSize int           `yaml:"profile_size" split_words:"true"`
	ProfileTTL  time.Duration `yaml:"profile_ttl" split_words:"true"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when a value is not set anywhere.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080, Host: "0.0.0.0"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "foodrescue",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			TokenTTL:          7 * 24 * time.Hour,
			MinPasswordLength: 6,
			ArgonMemoryKB:     64 * 1024,
			ArgonTime:         3,
			ArgonParallelism:  2,
			RateLimitWindow:   time.Minute,
			RateLimitPerEmail: 5,
			RateLimitPerIP:    20,
		},
		AWS:   AWSConfig{UploadExpiry: 5 * time.Minute},
		Cache: CacheConfig{ProfileSize: 1024, ProfileTTL: 30 * time.Minute},
		Log:   LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from a YAML file, then applies a .env file and
// FOODRESCUE_* environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive, got %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
