package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mysql-loader/internal/batch"
	"mysql-loader/internal/driver"
	"mysql-loader/internal/loader"

	"github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-multierror"
	"github.com/lib/pq"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// AppEnv is the running environment (development/production).
	AppEnv string
	// DBDriver selects the target database: "mysql" or "postgres".
	DBDriver string
	// DatabaseDSN is the connection string for the target database.
	DatabaseDSN string
	// AWSRegion is the AWS region for S3 downloads.
	AWSRegion string
	// S3Bucket is the source S3 bucket name.
	S3Bucket string
	// S3Endpoint is an optional custom endpoint (for non-AWS S3 providers like MinIO/Contabo).
	S3Endpoint string
	// S3PathStyle enables path-style addressing (required for some S3 providers).
	S3PathStyle bool
	// StorageType determines where input files are read from: "local" or "s3".
	StorageType string
	// LocalStoragePath is the base directory for local input files.
	LocalStoragePath string
	// WorkerCount is the number of concurrent load jobs allowed.
	WorkerCount int
	// MaxDBConcurrency restricts the global number of concurrent loads.
	MaxDBConcurrency int64
	// DefaultTimeout is the maximum duration for a load job.
	DefaultTimeout time.Duration
	// BatchWeight is the buffered size in bytes that triggers a flush.
	BatchWeight int
	// FloatNullType and DoubleNullType name the SQL type bound in place of
	// NaN/Infinity when a column's declared type is unknown.
	FloatNullType  string
	DoubleNullType string
	// BeforeLoad and AfterLoad are SQL statements run around each load.
	BeforeLoad string
	AfterLoad  string
	// DefaultTimezone is the IANA zone for timestamps without an offset.
	DefaultTimezone string
}

func Load() *Config {
	return &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		DBDriver:         strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", "mysql"))),
		DatabaseDSN:      getEnv("DATABASE_DSN", "user:password@tcp(localhost:3306)/dbname?parseTime=true"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3PathStyle:      getEnvBool("S3_PATH_STYLE", false),
		StorageType:      getEnv("STORAGE_TYPE", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./imports"),
		WorkerCount:      getEnvInt("WORKER_COUNT", 5),
		MaxDBConcurrency: int64(getEnvInt("MAX_DB_CONCURRENCY", 3)),
		DefaultTimeout:   getEnvDuration("DEFAULT_TIMEOUT", 15*time.Minute),
		BatchWeight:      getEnvInt("BATCH_WEIGHT", 16*1024*1024),
		FloatNullType:    getEnv("FLOAT_NULL_TYPE", "REAL"),
		DoubleNullType:   getEnv("DOUBLE_NULL_TYPE", "DOUBLE"),
		BeforeLoad:       getEnv("BEFORE_LOAD", ""),
		AfterLoad:        getEnv("AFTER_LOAD", ""),
		DefaultTimezone:  getEnv("DEFAULT_TIMEZONE", "UTC"),
	}
}

// Validate checks the loaded values before anything connects and reports
// every problem found, not just the first.
func (c *Config) Validate() error {
	var errs *multierror.Error

	switch c.DBDriver {
	case "mysql":
		if _, err := mysql.ParseDSN(c.DatabaseDSN); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("DATABASE_DSN: %w", err))
		}
	case "postgres", "postgresql":
		if strings.HasPrefix(c.DatabaseDSN, "postgres://") || strings.HasPrefix(c.DatabaseDSN, "postgresql://") {
			if _, err := pq.ParseURL(c.DatabaseDSN); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("DATABASE_DSN: %w", err))
			}
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver))
	}

	switch c.StorageType {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			errs = multierror.Append(errs, errors.New("S3_BUCKET is required for s3 storage"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("STORAGE_TYPE: unsupported storage %q", c.StorageType))
	}

	if c.WorkerCount < 1 {
		errs = multierror.Append(errs, errors.New("WORKER_COUNT must be at least 1"))
	}
	if c.MaxDBConcurrency < 1 {
		errs = multierror.Append(errs, errors.New("MAX_DB_CONCURRENCY must be at least 1"))
	}
	if _, err := batch.ParseSQLType(c.FloatNullType); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("FLOAT_NULL_TYPE: %w", err))
	}
	if _, err := batch.ParseSQLType(c.DoubleNullType); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("DOUBLE_NULL_TYPE: %w", err))
	}

	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("DEFAULT_TIMEZONE: %w", err))
	}

	return errs.ErrorOrNil()
}

// BatchOptions converts the configured NULL types. Call Validate first;
// unparseable names fall back to the defaults.
func (c *Config) BatchOptions() driver.BatchOptions {
	opts := driver.DefaultBatchOptions()
	if t, err := batch.ParseSQLType(c.FloatNullType); err == nil {
		opts.FloatNullType = t
	}
	if t, err := batch.ParseSQLType(c.DoubleNullType); err == nil {
		opts.DoubleNullType = t
	}
	return opts
}

// LoaderOptions returns the statement and timezone settings for a loader.
// Call Validate first; an unknown zone falls back to UTC.
func (c *Config) LoaderOptions() []loader.Option {
	opts := []loader.Option{
		loader.WithBeforeLoad(c.BeforeLoad),
		loader.WithAfterLoad(c.AfterLoad),
	}
	if loc, err := time.LoadLocation(c.DefaultTimezone); err == nil {
		opts = append(opts, loader.WithLocation(loc))
	}
	return opts
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
