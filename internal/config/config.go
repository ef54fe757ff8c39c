package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreModeLocal  = "local"
	StoreModeRemote = "remote"

	StorageTypeLocal = "local"
	StorageTypeNone  = "none"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Store    StoreConfig
	Storage  StorageConfig
	Upload   UploadConfig
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	AutoMigrate bool
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret                string
	StreamTokenExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// StoreConfig selects where attendance batches are written
type StoreConfig struct {
	Mode           string
	BaseURL        string
	Timeout        time.Duration
	HealthInterval time.Duration
	ClientID       string
	ClientSecret   string
	TokenURL       string
	Scopes         []string
}

// StorageConfig holds the uploaded document archive configuration
type StorageConfig struct {
	Type     string
	BasePath string
}

// UploadConfig bounds attendance uploads
type UploadConfig struct {
	MaxFileSize  int64
	MaxRangeDays int
	Retention    time.Duration
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	autoMigrate, err := getEnvBool("DB_AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:        getEnv("DB_HOST", "localhost"),
		Port:        dbPort,
		User:        getEnv("DB_USER", "postgres"),
		Password:    getEnv("DB_PASSWORD", ""),
		Name:        getEnv("DB_NAME", "attendance_ingest"),
		SSLMode:     getEnv("DB_SSL_MODE", "disable"),
		MaxConns:    int32(maxConns),
		MinConns:    int32(minConns),
		AutoMigrate: autoMigrate,
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	// JWT configuration
	streamExpiration, err := getEnvDuration("JWT_STREAM_TOKEN_EXPIRATION", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:                getEnv("JWT_SECRET_KEY", ""),
		StreamTokenExpiration: streamExpiration,
	}

	// Attendance store configuration
	storeTimeout, err := getEnvDuration("STORE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	healthInterval, err := getEnvDuration("STORE_HEALTH_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	config.Store = StoreConfig{
		Mode:           strings.ToLower(getEnv("STORE_MODE", StoreModeLocal)),
		BaseURL:        getEnv("STORE_BASE_URL", ""),
		Timeout:        storeTimeout,
		HealthInterval: healthInterval,
		ClientID:       getEnv("STORE_CLIENT_ID", ""),
		ClientSecret:   getEnv("STORE_CLIENT_SECRET", ""),
		TokenURL:       getEnv("STORE_TOKEN_URL", ""),
		Scopes:         getEnvSlice("STORE_SCOPES"),
	}

	// Document archive configuration
	config.Storage = StorageConfig{
		Type:     strings.ToLower(getEnv("STORAGE_TYPE", StorageTypeLocal)),
		BasePath: getEnv("STORAGE_BASE_PATH", "./storage"),
	}

	// Upload configuration
	maxFileSize, err := getEnvInt("UPLOAD_MAX_FILE_SIZE", 10<<20)
	if err != nil {
		return nil, err
	}
	maxRangeDays, err := getEnvInt("UPLOAD_MAX_RANGE_DAYS", 62)
	if err != nil {
		return nil, err
	}
	retention, err := getEnvDuration("UPLOAD_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	config.Upload = UploadConfig{
		MaxFileSize:  int64(maxFileSize),
		MaxRangeDays: maxRangeDays,
		Retention:    retention,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.Store.Mode {
	case StoreModeLocal:
	case StoreModeRemote:
		if c.Store.BaseURL == "" {
			return fmt.Errorf("STORE_BASE_URL is required when STORE_MODE=remote")
		}
		set := 0
		for _, v := range []string{c.Store.ClientID, c.Store.ClientSecret, c.Store.TokenURL} {
			if v != "" {
				set++
			}
		}
		if set != 0 && set != 3 {
			return fmt.Errorf("STORE_CLIENT_ID, STORE_CLIENT_SECRET and STORE_TOKEN_URL must be set together")
		}
	default:
		return fmt.Errorf("STORE_MODE must be one of: local, remote")
	}

	switch c.Storage.Type {
	case StorageTypeLocal, StorageTypeNone:
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of: local, none")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxRangeDays <= 0 {
		return fmt.Errorf("UPLOAD_MAX_RANGE_DAYS must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
