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
	Server   ServerConfig
	OCR      OCRConfig
	Remote   RemoteConfig
	Cache    CacheConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds run-ledger configuration. An empty DSN disables the ledger.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string
	MaxUploadBytes int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Enabled      bool
	Engine       string // "gosseract" or "cli"
	Languages    string
	TessdataDir  string
	MaxPages     int
	PrimaryDPI   int
	FallbackDPI  int
	PageTimeout  time.Duration
	TotalTimeout time.Duration
}

// RemoteConfig holds remote-assisted extraction configuration
type RemoteConfig struct {
	BaseURL  string
	APIKey   string
	Variants []string
	Timeout  time.Duration
	// SendDocument attaches the original PDF to remote requests.
	SendDocument bool
}

// CacheConfig holds remote response cache configuration
type CacheConfig struct {
	RedisAddr string
	RedisDB   int
	TTL       time.Duration
}

// PipelineConfig holds orchestration tuning
type PipelineConfig struct {
	IncludeDebug bool
	BatchWorkers int
	BatchQueue   int
	FileTimeout  time.Duration

	GateMinMeasurements int
	GateMinConfidence   float64
	GateMinImportant    int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			DSN:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			MaxUploadBytes: getEnvAsInt("MAX_UPLOAD_BYTES", 32<<20),
		},
		OCR: OCRConfig{
			Enabled:      getEnvAsBool("OCR_ENABLED", true),
			Engine:       getEnv("OCR_ENGINE", "gosseract"),
			Languages:    getEnv("OCR_LANGUAGES", "eng+nld"),
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			MaxPages:     getEnvAsInt("OCR_MAX_PAGES", 6),
			PrimaryDPI:   getEnvAsInt("OCR_PRIMARY_DPI", 300),
			FallbackDPI:  getEnvAsInt("OCR_FALLBACK_DPI", 200),
			PageTimeout:  getEnvAsDuration("OCR_PAGE_TIMEOUT", 25*time.Second),
			TotalTimeout: getEnvAsDuration("OCR_TOTAL_TIMEOUT", 90*time.Second),
		},
		Remote: RemoteConfig{
			BaseURL:  getEnv("REMOTE_BASE_URL", ""),
			APIKey:   getEnv("REMOTE_API_KEY", ""),
			Variants: getEnvAsList("REMOTE_VARIANTS", []string{"v2", "v1"}),
			Timeout:  getEnvAsDuration("REMOTE_TIMEOUT", 45*time.Second),

			SendDocument: getEnvAsBool("REMOTE_SEND_DOCUMENT", false),
		},
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			RedisDB:   getEnvAsInt("REDIS_DB", 0),
			TTL:       getEnvAsDuration("REMOTE_CACHE_TTL", 24*time.Hour),
		},
		Pipeline: PipelineConfig{
			IncludeDebug: getEnvAsBool("EXTRACT_DEBUG", true),
			BatchWorkers: getEnvAsInt("BATCH_WORKERS", 2),
			BatchQueue:   getEnvAsInt("BATCH_QUEUE", 32),
			FileTimeout:  getEnvAsDuration("FILE_TIMEOUT", 3*time.Minute),

			GateMinMeasurements: getEnvAsInt("GATE_MIN_MEASUREMENTS", 5),
			GateMinConfidence:   getEnvAsFloat("GATE_MIN_CONFIDENCE", 0.65),
			GateMinImportant:    getEnvAsInt("GATE_MIN_IMPORTANT", 2),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Database.DSN != "" && c.Database.Driver != "sqlite" && c.Database.Driver != "pgx" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or pgx", ErrInvalidInput)
	}
	if c.OCR.MaxPages < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_PAGES must be positive", ErrInvalidInput)
	}
	if c.OCR.PrimaryDPI <= 0 || c.OCR.FallbackDPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR DPI values must be positive", ErrInvalidInput)
	}
	if c.Pipeline.GateMinConfidence < 0 || c.Pipeline.GateMinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "GATE_MIN_CONFIDENCE must be within [0,1]", ErrInvalidInput)
	}
	if c.Remote.BaseURL != "" && len(c.Remote.Variants) == 0 {
		return NewAppError("CONFIG_ERROR", "REMOTE_VARIANTS is required when REMOTE_BASE_URL is set", ErrInvalidInput)
	}
	return nil
}
