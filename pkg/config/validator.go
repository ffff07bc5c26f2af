package config

import (
	"fmt"
	"strings"

	"github.com/ocrkit/ocrkit/pkg/constants"
	"github.com/ocrkit/ocrkit/pkg/utils"
)

// ConfigValidator validates invocation settings before any file is touched
type ConfigValidator struct{}

// NewConfigValidator creates a config validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// Validate checks the configuration and collects every violation
func (v *ConfigValidator) Validate(c *Config) error {
	var errors []string

	if err := v.validateNumericValues(c); err != nil {
		errors = append(errors, err.Error())
	}

	if err := v.validateOptimizeLevel(c.OptimizeLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if err := v.validateLogLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return utils.NewValidationError("configuration validation failed",
			fmt.Errorf("validation errors: %s", strings.Join(errors, "; ")))
	}

	return nil
}

// validateNumericValues checks worker, batch and thread counts
func (v *ConfigValidator) validateNumericValues(c *Config) error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Workers > constants.MaxWorkers {
		return fmt.Errorf("workers should not exceed %d", constants.MaxWorkers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1")
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must be non-negative")
	}
	if c.MinTextThreshold < 0 {
		return fmt.Errorf("min text threshold must be non-negative")
	}
	return nil
}

// validateOptimizeLevel checks the searchable PDF optimization level
func (v *ConfigValidator) validateOptimizeLevel(level int) error {
	if level < constants.MinOptimizeLevel || level > constants.MaxOptimizeLevel {
		return fmt.Errorf("optimization level must be between %d and %d",
			constants.MinOptimizeLevel, constants.MaxOptimizeLevel)
	}
	return nil
}

// validateLogLevel checks the log level string
func (v *ConfigValidator) validateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}

	for _, valid := range validLevels {
		if strings.ToLower(level) == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid log level: %s", level)
}
