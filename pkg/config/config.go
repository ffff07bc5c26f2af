package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ocrkit/ocrkit/pkg/constants"
)

// Default values
const (
	DefaultLogLevel      = "info"
	DefaultEnableVerbose = false
)

// Config holds one invocation's settings. It is constructed from defaults,
// then OCRKIT_* environment overrides, then CLI flag overrides, and is
// read-only once a command starts processing files.
type Config struct {
	// Batch settings
	OutputDir        string
	Workers          int
	SkipExisting     bool
	MinTextThreshold int
	OCRFallback      bool // retry failed/low-text PDF conversions on the OCR pipeline

	// OCR settings
	BatchSize int
	UseCPU    bool
	DetArch   string
	RecoArch  string
	FastMode  bool
	Threads   int
	Pages     string

	// Searchable PDF settings
	OptimizeLevel int
	NoJBIG2       bool

	// External tool paths, auto-detected when empty
	PandocPath  string
	SofficePath string

	// Logging
	LogLevel      string
	EnableVerbose bool
}

// NewConfig creates a configuration with defaults
func NewConfig() *Config {
	return &Config{
		Workers:          constants.DefaultWorkers,
		SkipExisting:     false,
		MinTextThreshold: constants.DefaultMinTextThreshold,
		BatchSize:        constants.DefaultBatchSize,
		DetArch:          constants.DefaultDetArch,
		RecoArch:         constants.DefaultRecoArch,
		OptimizeLevel:    constants.DefaultOptimizeLevel,
		LogLevel:         DefaultLogLevel,
		EnableVerbose:    DefaultEnableVerbose,
	}
}

// LoadConfigWithEnvOverrides creates config and applies environment variable
// overrides. CLI flags are applied on top by the command layer.
func LoadConfigWithEnvOverrides() *Config {
	config := NewConfig()

	if value := os.Getenv("OCRKIT_OUTPUT_DIR"); value != "" {
		config.OutputDir = value
	}
	if value := os.Getenv("OCRKIT_WORKERS"); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			config.Workers = intVal
		}
	}
	if value := os.Getenv("OCRKIT_BATCH_SIZE"); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			config.BatchSize = intVal
		}
	}
	if value := os.Getenv("OCRKIT_CPU"); value != "" {
		config.UseCPU = isTruthy(value)
	}
	if value := os.Getenv("OCRKIT_DET_ARCH"); value != "" {
		config.DetArch = value
	}
	if value := os.Getenv("OCRKIT_RECO_ARCH"); value != "" {
		config.RecoArch = value
	}
	if value := os.Getenv("OCRKIT_THREADS"); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			config.Threads = intVal
		}
	}
	if value := os.Getenv("OCRKIT_OCR_FALLBACK"); value != "" {
		config.OCRFallback = isTruthy(value)
	}
	if value := os.Getenv("OCRKIT_SKIP_EXISTING"); value != "" {
		config.SkipExisting = isTruthy(value)
	}
	if value := os.Getenv("OCRKIT_MIN_TEXT_THRESHOLD"); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			config.MinTextThreshold = intVal
		}
	}
	if value := os.Getenv("OCRKIT_PANDOC_PATH"); value != "" {
		config.PandocPath = value
	}
	if value := os.Getenv("OCRKIT_SOFFICE_PATH"); value != "" {
		config.SofficePath = value
	}
	if value := os.Getenv("OCRKIT_LOG_LEVEL"); value != "" {
		config.LogLevel = value
	}
	if value := os.Getenv("OCRKIT_VERBOSE"); value != "" {
		config.EnableVerbose = isTruthy(value)
	}

	return config
}

func isTruthy(value string) bool {
	return value == "true" || value == "1" || value == "yes"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()
	return validator.Validate(c)
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Workers: %d, BatchSize: %d, LogLevel: %s, Verbose: %v}",
		c.Workers, c.BatchSize, c.LogLevel, c.EnableVerbose)
}
