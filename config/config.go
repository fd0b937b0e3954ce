package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Vonage   VonageConfig
	AWS      AWSConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/videos?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings for the pipeline job queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds user-login JWT signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// VonageConfig holds recording-provider credentials.
type VonageConfig struct {
	APIKey  string
	Secret  string
	BaseURL string // overridable for tests; default https://api.opentok.com
}

// AWSConfig holds AWS credentials and the S3 bucket for media artifacts.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Bucket               string
	PresignExpireMinutes int
}

// PipelineConfig holds archive pipeline settings.
type PipelineConfig struct {
	PollRetries       int    // bounded availability poll attempts
	PollDelayMS       int    // fixed delay between poll attempts
	ThumbnailRequired bool   // false = thumbnail failure is logged, not fatal
	WorkDir           string // directory for temp artifacts; empty = os.TempDir()
	TempFileTTLMin    int    // reaper deletes temp files older than this
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "videos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Vonage: VonageConfig{
			APIKey:  getEnv("VONAGE_API_KEY", ""),
			Secret:  getEnv("VONAGE_SECRET", ""),
			BaseURL: getEnv("VONAGE_API_URL", "https://api.opentok.com"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:               getEnv("AWS_S3_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Pipeline: PipelineConfig{
			PollRetries:       getEnvInt("ARCHIVE_POLL_RETRIES", 5),
			PollDelayMS:       getEnvInt("ARCHIVE_POLL_DELAY_MS", 1000),
			ThumbnailRequired: getEnvBool("PIPELINE_THUMBNAIL_REQUIRED", true),
			WorkDir:           getEnv("PIPELINE_WORK_DIR", ""),
			TempFileTTLMin:    getEnvInt("TEMP_FILE_TTL_MINUTES", 60),
		},
	}
	return cfg, nil
}

// Validate returns an error naming every missing required setting.
// The process must not serve requests in a misconfigured state.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Vonage.APIKey == "" {
		missing = append(missing, "VONAGE_API_KEY")
	}
	if c.Vonage.Secret == "" {
		missing = append(missing, "VONAGE_SECRET")
	}
	if c.AWS.Region == "" {
		missing = append(missing, "AWS_REGION")
	}
	if c.AWS.Bucket == "" {
		missing = append(missing, "AWS_S3_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Pipeline.PollRetries <= 0 {
		return fmt.Errorf("ARCHIVE_POLL_RETRIES must be a positive integer")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
