package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Batch    BatchConfig
	Log      LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite | bolt
	DSN              string
	SQLitePath       string
	BoltPath         string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract           string
	Lang                string
	TessdataDir         string
	PSM                 int
	OEM                 int
	EnableTSVConfidence bool
	Preprocess          bool
	ArtifactCacheDir    string
}

// PipelineConfig tunes the extraction heuristics.
type PipelineConfig struct {
	CorpusFile            string
	VendorHeaderLines     int
	VendorHeaderThreshold int
	VendorScanStrategy    string
	VendorScanThreshold   int
	DateOrder             string
	TotalStrategy         string
	CategoryMinSimilarity float64
}

// BatchConfig holds batch driver configuration
type BatchConfig struct {
	Workers      int
	QueueSize    int
	FileTimeout  time.Duration
	Recursive    bool
	RelocateDir  string
	RelocateMode string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "receipts.db"),
			BoltPath:         getEnv("BOLT_PATH", "receipts.bolt"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		OCR: OCRConfig{
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			Lang:                getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			PSM:                 getEnvAsInt("OCR_PSM", 0),
			OEM:                 getEnvAsInt("OCR_OEM", 0),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
			Preprocess:          getEnvAsBool("OCR_PREPROCESS", true),
			ArtifactCacheDir:    getEnv("ARTIFACT_CACHE_DIR", ""),
		},
		Pipeline: PipelineConfig{
			CorpusFile:            getEnv("CORPUS_FILE", ""),
			VendorHeaderLines:     getEnvAsInt("VENDOR_HEADER_LINES", 10),
			VendorHeaderThreshold: getEnvAsInt("VENDOR_HEADER_THRESHOLD", 75),
			VendorScanStrategy:    strings.ToLower(getEnv("VENDOR_SCAN_STRATEGY", "partial")),
			VendorScanThreshold:   getEnvAsInt("VENDOR_SCAN_THRESHOLD", 80),
			DateOrder:             strings.ToLower(getEnv("DATE_ORDER", "day_first")),
			TotalStrategy:         strings.ToLower(getEnv("TOTAL_STRATEGY", "largest_amount")),
			CategoryMinSimilarity: getEnvAsFloat64("CATEGORY_MIN_SIMILARITY", 0.2),
		},
		Batch: BatchConfig{
			Workers:      getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:    getEnvAsInt("BATCH_QUEUE_SIZE", 64),
			FileTimeout:  getEnvAsDuration("BATCH_FILE_TIMEOUT", 2*time.Minute),
			Recursive:    getEnvAsBool("BATCH_RECURSIVE", false),
			RelocateDir:  getEnv("RELOCATE_DIR", ""),
			RelocateMode: strings.ToLower(getEnv("RELOCATE_MODE", "move")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite", "bolt"))
	switch c.Database.Driver {
	case "postgres":
		v.Field("DB_URL", c.Database.DSN, Required)
	case "sqlite":
		v.Field("SQLITE_PATH", c.Database.SQLitePath, Required)
	case "bolt":
		v.Field("BOLT_PATH", c.Database.BoltPath, Required)
	}
	v.Field("VENDOR_HEADER_LINES", c.Pipeline.VendorHeaderLines, IntRange(1, 1000))
	v.Field("VENDOR_HEADER_THRESHOLD", c.Pipeline.VendorHeaderThreshold, IntRange(0, 100))
	v.Field("VENDOR_SCAN_THRESHOLD", c.Pipeline.VendorScanThreshold, IntRange(0, 100))
	v.Field("VENDOR_SCAN_STRATEGY", c.Pipeline.VendorScanStrategy, OneOf("partial", "token_sort"))
	v.Field("DATE_ORDER", c.Pipeline.DateOrder, OneOf("day_first", "month_first"))
	v.Field("TOTAL_STRATEGY", c.Pipeline.TotalStrategy, OneOf("largest_amount", "highest_weight"))
	v.Field("BATCH_WORKERS", c.Batch.Workers, IntRange(1, 256))
	v.Field("RELOCATE_MODE", c.Batch.RelocateMode, OneOf("move", "copy"))
	v.Field("LOG_FORMAT", c.Log.Format, OneOf("json", "text"))
	v.Field("CATEGORY_MIN_SIMILARITY", c.Pipeline.CategoryMinSimilarity, FloatRange(0, 1))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
