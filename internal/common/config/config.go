package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogLevel     string
	CORSOrigins  []string

	Database DatabaseConfig
	Assets   AssetConfig

	PageCacheSize int
	PageCacheTTL  time.Duration
	SessionLimit  int

	CLIHistoryFile string
	CLILogFile     string
}

type DatabaseConfig struct {
	Driver string // sqlite | postgres
	Path   string
	URL    string
}

type AssetConfig struct {
	Backend    string // file | s3
	Root       string
	BaseURL    string
	QuotaBytes int64
	S3         S3Config
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	PublicURL string
}

// Load загружает конфигурацию из переменных окружения (.env подхватывается, если есть)
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"*"}),
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			Path:   getEnv("DB_PATH", "./data/pages.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Assets: AssetConfig{
			Backend:    getEnv("ASSET_BACKEND", "file"),
			Root:       getEnv("ASSET_ROOT", "./data/assets"),
			BaseURL:    getEnv("ASSET_BASE_URL", "/assets"),
			QuotaBytes: int64(getEnvAsInt("ASSET_QUOTA_BYTES", 50<<20)),
			S3: S3Config{
				Endpoint:  getEnv("ASSET_S3_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("ASSET_S3_ACCESS_KEY", ""),
				SecretKey: getEnv("ASSET_S3_SECRET_KEY", ""),
				Bucket:    getEnv("ASSET_S3_BUCKET", "page-assets"),
				UseSSL:    getEnvAsBool("ASSET_S3_USE_SSL", false),
				Region:    getEnv("ASSET_S3_REGION", ""),
				PublicURL: getEnv("ASSET_S3_PUBLIC_URL", ""),
			},
		},
		PageCacheSize: getEnvAsInt("PAGE_CACHE_SIZE", 256),
		PageCacheTTL:  time.Duration(getEnvAsInt("PAGE_CACHE_TTL", 300)) * time.Second,
		SessionLimit:  getEnvAsInt("SESSION_LIMIT", 1000),

		CLIHistoryFile: getEnv("CLI_HISTORY_FILE", "./data/.builder_history"),
		CLILogFile:     getEnv("CLI_LOG_FILE", "./data/builder-cli.log"),
	}
}

// IsDevelopment: локальный режим (человекочитаемые логи).
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
