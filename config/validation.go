package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that everything the server cannot run without is set.
// The LLM key and S3 bucket are intentionally not required: the server starts
// without them and the corresponding features degrade (analysis endpoints
// return provider errors, photos are not persisted).
func ValidateConfig(cfg *Config) error {
	var errs []string

	required := map[string]string{
		"DB_HOST":    cfg.DBHost,
		"DB_PORT":    cfg.DBPort,
		"DB_USER":    cfg.DBUser,
		"DB_NAME":    cfg.DBName,
		"JWT_SECRET": cfg.JWTSecret,
	}
	for field, value := range required {
		if value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"}.Error())
		}
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 16 {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "must be at least 16 characters"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
