package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		Mode            string        `yaml:"mode" env:"SERVER_MODE"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		TrustedProxies  []string      `yaml:"trusted_proxies" env:"SERVER_TRUSTED_PROXIES"`
	} `yaml:"server"`

	Database struct {
		Driver          string        `yaml:"driver" env:"DB_DRIVER"`
		Host            string        `yaml:"host" env:"DB_HOST"`
		Port            string        `yaml:"port" env:"DB_PORT"`
		User            string        `yaml:"user" env:"DB_USER"`
		Password        string        `yaml:"password" env:"DB_PASSWORD"`
		DBName          string        `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		SQLitePath      string        `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
	} `yaml:"database"`

	JWT struct {
		Secret                string        `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration time.Duration `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string        `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
		Password string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int           `yaml:"db" env:"REDIS_DB"`
		Key      string        `yaml:"key" env:"REDIS_CATALOG_KEY"`
		TTL      time.Duration `yaml:"ttl" env:"REDIS_CATALOG_TTL"`
	} `yaml:"redis"`

	Storage struct {
		Backend   string `yaml:"backend" env:"STORAGE_BACKEND"`
		LocalPath string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		SubPath   string `yaml:"sub_path" env:"STORAGE_SUB_PATH"`
		Bucket    string `yaml:"bucket" env:"STORAGE_S3_BUCKET"`
		Region    string `yaml:"region" env:"STORAGE_S3_REGION"`
		Endpoint  string `yaml:"endpoint" env:"STORAGE_S3_ENDPOINT"`
		Prefix    string `yaml:"prefix" env:"STORAGE_S3_PREFIX"`
	} `yaml:"storage"`

	Ingestion struct {
		ExtractTimeout   time.Duration `yaml:"extract_timeout" env:"INGEST_EXTRACT_TIMEOUT"`
		MaxDocumentBytes int64         `yaml:"max_document_bytes" env:"INGEST_MAX_DOCUMENT_BYTES"`
		Workers          int           `yaml:"workers" env:"INGEST_WORKERS"`
		OCRURL           string        `yaml:"ocr_url" env:"INGEST_OCR_URL"`
		OCRModel         string        `yaml:"ocr_model" env:"INGEST_OCR_MODEL"`
		OCRTimeout       time.Duration `yaml:"ocr_timeout" env:"INGEST_OCR_TIMEOUT"`
	} `yaml:"ingestion"`

	Catalog struct {
		MaxDepth        int           `yaml:"max_depth" env:"CATALOG_MAX_DEPTH"`
		RefreshInterval time.Duration `yaml:"refresh_interval" env:"CATALOG_REFRESH_INTERVAL"`
		ImportPath      string        `yaml:"import_path" env:"CATALOG_IMPORT_PATH"`
		SeedDemo        bool          `yaml:"seed_demo" env:"CATALOG_SEED_DEMO"`
	} `yaml:"catalog"`

	RateLimit struct {
		UploadsPerMinute float64 `yaml:"uploads_per_minute" env:"RATE_LIMIT_UPLOADS_PER_MINUTE"`
		Burst            int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file in the working directory is applied to the environment first.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	// Try to read config file if it exists
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse YAML into Config structure
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate config
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ShutdownTimeout = 5 * time.Second

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "enrollplan"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = time.Hour
	config.Database.SQLitePath = "enrollplan.db"

	// JWT defaults
	config.JWT.AccessTokenExpiration = time.Hour
	config.JWT.Issuer = "enrollplan.app"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Redis defaults; an empty address disables the snapshot cache
	config.Redis.Key = "enrollplan:catalog:snapshot"
	config.Redis.TTL = 24 * time.Hour

	// Storage defaults
	config.Storage.Backend = "local"
	config.Storage.LocalPath = "./uploads"
	config.Storage.SubPath = "transcripts"
	config.Storage.Prefix = "transcripts"

	// Ingestion defaults
	config.Ingestion.ExtractTimeout = 30 * time.Second
	config.Ingestion.MaxDocumentBytes = 10 << 20
	config.Ingestion.Workers = 4
	config.Ingestion.OCRModel = "llama3.2-vision"
	config.Ingestion.OCRTimeout = time.Minute

	// Catalog defaults
	config.Catalog.MaxDepth = 50
	config.Catalog.RefreshInterval = 10 * time.Minute

	// Rate limit defaults
	config.RateLimit.UploadsPerMinute = 6
	config.RateLimit.Burst = 3
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "sqlite":
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	switch config.Storage.Backend {
	case "local":
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case "s3":
		if config.Storage.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", config.Storage.Backend)
	}

	// A zero refresh interval disables periodic refresh and a zero TTL keeps
	// the cached snapshot until it is invalidated.
	required := []struct {
		name  string
		value time.Duration
	}{
		{"jwt access token expiration", config.JWT.AccessTokenExpiration},
		{"server shutdown timeout", config.Server.ShutdownTimeout},
		{"ingestion extract timeout", config.Ingestion.ExtractTimeout},
		{"ingestion ocr timeout", config.Ingestion.OCRTimeout},
		{"database connection max lifetime", config.Database.ConnMaxLifetime},
	}
	for _, d := range required {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if config.Catalog.RefreshInterval < 0 || config.Redis.TTL < 0 {
		return fmt.Errorf("catalog refresh interval and redis ttl must not be negative")
	}

	if config.Ingestion.Workers < 1 {
		return fmt.Errorf("ingestion workers must be at least 1")
	}
	if config.Ingestion.MaxDocumentBytes < 1 {
		return fmt.Errorf("ingestion max document bytes must be positive")
	}
	if config.RateLimit.UploadsPerMinute < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
