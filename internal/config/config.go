// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	HealthFoodAPI HealthFoodAPIConfig
	Store         StoreConfig
	AWS           AWSConfig
	Archive       ArchiveConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// OptionalFieldPolicy controls how optional upstream fields that are absent
// from an item end up on the normalized record.
type OptionalFieldPolicy string

const (
	OptionalFieldsUnset OptionalFieldPolicy = "unset"
	OptionalFieldsEmpty OptionalFieldPolicy = "empty"
)

// FallbackIDPolicy selects how an identifier is derived for items whose
// registration number carries no digits.
type FallbackIDPolicy string

const (
	FallbackIDTimeSalted FallbackIDPolicy = "time_salted"
	FallbackIDContent    FallbackIDPolicy = "content"
)

const (
	MinPageSize     = 10
	MaxPageSize     = 20
	DefaultPageSize = 10
)

// HealthFoodAPIConfig describes the public data API used as the remote
// product source.
type HealthFoodAPIConfig struct {
	BaseURL        string
	ServiceKey     string
	SearchParam    string
	PageSize       int
	Timeout        time.Duration
	OptionalFields OptionalFieldPolicy
	FallbackID     FallbackIDPolicy
}

type StoreConfig struct {
	SearchLimit int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

// ArchiveConfig enables keeping a copy of every raw upstream response.
// S3 is used when AWS credentials are present, LocalDir otherwise.
type ArchiveConfig struct {
	Enabled  bool
	Prefix   string
	LocalDir string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "suppleit"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		HealthFoodAPI: HealthFoodAPIConfig{
			BaseURL:        getEnv("HEALTHFOOD_API_URL", "https://apis.data.go.kr/1471000/HtfsInfoService03/getHtfsList01"),
			ServiceKey:     getEnv("HEALTHFOOD_API_KEY", ""),
			SearchParam:    getEnv("HEALTHFOOD_SEARCH_PARAM", "Prduct"),
			PageSize:       ClampPageSize(getEnvAsInt("HEALTHFOOD_PAGE_SIZE", DefaultPageSize)),
			Timeout:        getEnvAsDuration("HEALTHFOOD_API_TIMEOUT", 10*time.Second),
			OptionalFields: OptionalFieldPolicy(getEnv("HEALTHFOOD_OPTIONAL_FIELDS", string(OptionalFieldsUnset))),
			FallbackID:     FallbackIDPolicy(getEnv("HEALTHFOOD_FALLBACK_ID", string(FallbackIDTimeSalted))),
		},
		Store: StoreConfig{
			SearchLimit: getEnvAsInt("STORE_SEARCH_LIMIT", 100),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "suppleit-upstream-archive"),
		},
		Archive: ArchiveConfig{
			Enabled:  getEnvAsBool("ARCHIVE_ENABLED", false),
			Prefix:   getEnv("ARCHIVE_PREFIX", "healthfood"),
			LocalDir: getEnv("ARCHIVE_LOCAL_DIR", "./data/archive"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.HealthFoodAPI.BaseURL == "" {
		return fmt.Errorf("health food API url is required")
	}

	if c.HealthFoodAPI.ServiceKey == "" && c.IsProduction() {
		return fmt.Errorf("health food API key is required in production")
	}

	if c.HealthFoodAPI.SearchParam == "" {
		return fmt.Errorf("health food API search parameter name is required")
	}

	switch c.HealthFoodAPI.OptionalFields {
	case OptionalFieldsUnset, OptionalFieldsEmpty:
	default:
		return fmt.Errorf("unknown optional field policy %q", c.HealthFoodAPI.OptionalFields)
	}

	switch c.HealthFoodAPI.FallbackID {
	case FallbackIDTimeSalted, FallbackIDContent:
	default:
		return fmt.Errorf("unknown fallback id policy %q", c.HealthFoodAPI.FallbackID)
	}

	if c.Database.Password == "" && c.IsProduction() {
		return fmt.Errorf("database password is required in production")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ClampPageSize keeps the upstream page size within the range the public
// data API accepts for a single-page lookup.
func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size < MinPageSize:
		return MinPageSize
	case size > MaxPageSize:
		return MaxPageSize
	}
	return size
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
