package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment
func GetEnvironment() Environment {
	// CI environment is automatically detected
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch os.Getenv("ENV") {
	case "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// LLM provider configuration
	LLMAPIKey string
	LLMAPIURL string
	LLMModel  string

	// S3 photo storage; empty bucket disables uploads
	S3Bucket string
	S3Region string

	// CORS allowed origins
	AllowedOrigins []string
}

// LoadConfig creates a new Config instance with values from environment
// variables, or from secret files in production.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if IsProduction() {
		loadFromSecrets(cfg)
	} else {
		loadFromEnv(cfg)
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadFromEnv(cfg *Config) {
	cfg.ServerPort = os.Getenv("SERVER_PORT")
	cfg.ServerHost = os.Getenv("SERVER_HOST")
	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = os.Getenv("DB_PORT")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = os.Getenv("DB_SSL_MODE")
	cfg.RedisHost = os.Getenv("REDIS_HOST")
	cfg.RedisPort = os.Getenv("REDIS_PORT")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.LLMAPIKey = readKeyWithFileFallback("LLM_API_KEY")
	cfg.LLMAPIURL = os.Getenv("LLM_API_URL")
	cfg.LLMModel = os.Getenv("LLM_MODEL")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3Region = os.Getenv("S3_REGION")

	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.RedisDB = db
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
}

// loadFromSecrets loads configuration from Docker secrets in production
func loadFromSecrets(cfg *Config) {
	cfg.ServerPort = readSecret("server_port")
	cfg.ServerHost = readSecret("server_host")
	cfg.DBHost = readSecret("db_host")
	cfg.DBPort = readSecret("db_port")
	cfg.DBUser = readSecret("db_user")
	cfg.DBPassword = readSecret("db_password")
	cfg.DBName = readSecret("db_name")
	cfg.DBSSLMode = readSecret("db_ssl_mode")
	cfg.RedisHost = readSecret("redis_host")
	cfg.RedisPort = readSecret("redis_port")
	cfg.RedisPassword = readSecret("redis_password")
	cfg.RedisURL = readSecret("redis_url")
	cfg.JWTSecret = readSecret("jwt_secret")
	cfg.LLMAPIKey = readSecret("llm_api_key")
	cfg.LLMAPIURL = readSecret("llm_api_url")
	cfg.LLMModel = readSecret("llm_model")
	cfg.S3Bucket = readSecret("s3_bucket")
	cfg.S3Region = readSecret("s3_region")

	if origins := readSecret("allowed_origins"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.RedisHost == "" {
		cfg.RedisHost = "localhost"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}
	if cfg.LLMAPIURL == "" {
		cfg.LLMAPIURL = "https://api.deepseek.com/v1/chat/completions"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "deepseek-chat"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:4321"}
	}
}

// readKeyWithFileFallback reads NAME, falling back to the file named by
// NAME_FILE. Used for the LLM API key so it can be mounted as a secret file
// outside production too.
func readKeyWithFileFallback(name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	file := os.Getenv(name + "_FILE")
	if file == "" {
		return ""
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
