package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnMaxIdleTime    time.Duration
	// ApplicationName is reported to the server as application_name.
	ApplicationName string
	// StatementTimeout bounds every statement server side. Zero leaves the server default.
	StatementTimeout time.Duration
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AzureConfig holds Azure Blob Storage settings.
type AzureConfig struct {
	ConnectionString string
	Container        string
}

// BlobConfig selects the blob backend. Backend is "minio" or "azure".
type BlobConfig struct {
	Backend string
	Prefix  string
	MinIO   MinIOConfig
	Azure   AzureConfig
}

// ClassifierConfig holds settings for the external vision classifier.
type ClassifierConfig struct {
	Enabled bool
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// VerificationConfig holds the accept/reject policy settings.
//
// FailOpen decides what happens when the classifier is unavailable: true accepts the
// document with DegradedConfidence and a warning reason, false rejects it.
type VerificationConfig struct {
	Threshold          float64
	FailOpen           bool
	DegradedConfidence float64
}

// UploadConfig holds local payload constraints enforced before classification.
type UploadConfig struct {
	MaxBytes     int64
	AllowedTypes []string
	ValidatePDF  bool
}

// AnchorConfig selects the hash anchoring backend. Backend is "stub" or "redis".
type AnchorConfig struct {
	Backend       string
	Timeout       time.Duration
	MaxAttempts   int
	KeyPrefix     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Timezone  string
	SentryDSN string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost      string
	Port         string
	Env          string
	Database     DatabaseConfig
	Blob         BlobConfig
	Classifier   ClassifierConfig
	Verification VerificationConfig
	Upload       UploadConfig
	Anchor       AnchorConfig
	Auth         AuthConfig
	Log          LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Env:     getEnv("APP_ENV", "production"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnMaxIdleTime:    getEnvDuration("DB_CONN_MAX_IDLE_TIME_SEC", 60*time.Second),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "doccustody"),
			StatementTimeout:   getEnvDuration("DB_STATEMENT_TIMEOUT_SEC", 10*time.Second),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getEnv("BLOB_BACKEND", "minio")),
			Prefix:  getEnv("BLOB_PREFIX", "documents"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			Azure: AzureConfig{
				ConnectionString: getEnv("AZURE_STORAGE_CONNECTION_STRING", ""),
				Container:        getEnv("AZURE_STORAGE_CONTAINER", "documents"),
			},
		},
		Classifier: ClassifierConfig{
			Enabled: getEnvBool("CLASSIFIER_ENABLED", true),
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout: getEnvDuration("CLASSIFIER_TIMEOUT_SEC", 15*time.Second),
		},
		Verification: VerificationConfig{
			Threshold:          getEnvFloat("VERIFICATION_THRESHOLD", 0.75),
			FailOpen:           getEnvBool("VERIFICATION_FAIL_OPEN", true),
			DegradedConfidence: getEnvFloat("VERIFICATION_DEGRADED_CONFIDENCE", 0.5),
		},
		Upload: UploadConfig{
			MaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
			AllowedTypes: getEnvList("UPLOAD_ALLOWED_TYPES", []string{"image/jpeg", "image/png", "application/pdf"}),
			ValidatePDF:  getEnvBool("UPLOAD_VALIDATE_PDF", true),
		},
		Anchor: AnchorConfig{
			Backend:       strings.ToLower(getEnv("ANCHOR_BACKEND", "stub")),
			Timeout:       getEnvDuration("ANCHOR_TIMEOUT_SEC", 5*time.Second),
			MaxAttempts:   getEnvInt("ANCHOR_MAX_ATTEMPTS", 3),
			KeyPrefix:     getEnv("ANCHOR_KEY_PREFIX", "doccustody:anchor"),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Timezone:  getEnv("LOG_TIMEZONE", "UTC"),
			SentryDSN: getEnv("SENTRY_DSN", ""),
		},
	}
}

// Validate reports settings that are missing or inconsistent.
// Database and blob settings are checked by their own constructors.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Verification.Threshold < 0 || c.Verification.Threshold > 1 {
		errs = append(errs, fmt.Errorf("VERIFICATION_THRESHOLD must be within [0,1], got %v", c.Verification.Threshold))
	}
	if c.Verification.DegradedConfidence < 0 || c.Verification.DegradedConfidence > 1 {
		errs = append(errs, fmt.Errorf("VERIFICATION_DEGRADED_CONFIDENCE must be within [0,1], got %v", c.Verification.DegradedConfidence))
	}
	// A fail-closed deployment without a classifier would reject every upload.
	if c.Classifier.Enabled && c.Classifier.APIKey == "" && !c.Verification.FailOpen {
		errs = append(errs, errors.New("GEMINI_API_KEY is required when the classifier is enabled and VERIFICATION_FAIL_OPEN=false"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if len(c.Upload.AllowedTypes) == 0 {
		errs = append(errs, errors.New("UPLOAD_ALLOWED_TYPES must not be empty"))
	}

	switch c.Blob.Backend {
	case "minio", "azure":
	default:
		errs = append(errs, fmt.Errorf("unsupported BLOB_BACKEND %q", c.Blob.Backend))
	}

	switch c.Anchor.Backend {
	case "stub":
	case "redis":
		if c.Anchor.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when ANCHOR_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported ANCHOR_BACKEND %q", c.Anchor.Backend))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
