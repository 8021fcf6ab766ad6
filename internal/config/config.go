package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort       string
	DBDriver         string
	DatabaseDSN      string
	RedisAddr        string
	RedisDB          int
	RedisPass        string
	JWTSecret        string
	JWTIssuer        string
	TokenTTL         time.Duration
	DocumentDir      string
	PublicBaseURL    string
	MaxDocumentBytes int64
	CORSOrigins      []string
	LogLevel         string
	LogFile          string
	SwaggerHost      string
	ResetDB          bool
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/reimburse?charset=utf8mb4&parseTime=True&loc=Local")
	}

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DatabaseDSN:      dsn,
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        getEnv("JWT_SECRET", "change-me"),
		JWTIssuer:        getEnv("JWT_ISSUER", "reimburse"),
		TokenTTL:         time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		DocumentDir:      getEnv("DOCUMENT_DIR", "./wwwroot/Documents"),
		PublicBaseURL:    strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		MaxDocumentBytes: int64(getEnvInt("MAX_DOCUMENT_BYTES", 10<<20)),
		CORSOrigins:      parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		SwaggerHost:      os.Getenv("SWAGGER_HOST"),
		ResetDB:          os.Getenv("RESET_DB") == "true",
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL_HOURS must be positive")
	}
	if c.MaxDocumentBytes <= 0 {
		return errors.New("MAX_DOCUMENT_BYTES must be positive")
	}
	return nil
}

// HTTPAddress returns the address the HTTP server binds to.
func (c *Config) HTTPAddress() string {
	return ":" + c.ServerPort
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
