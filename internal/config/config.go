// Package config defines all configuration structures for the NPL scoring
// engine.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// OpsConfig holds the worker's operational HTTP server tunables.
type OpsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (o OpsConfig) Addr() string { return fmt.Sprintf("%s:%d", o.Host, o.Port) }

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig holds scoring-event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	ClientID     string        `mapstructure:"client_id"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	Compression  string        `mapstructure:"compression"` // "none" | "gzip" | "snappy" | "lz4" | "zstd"
}

// MinIOConfig holds run-report archive parameters.
type MinIOConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	ReportPrefix string `mapstructure:"report_prefix"`
}

// WorkerConfig holds batch orchestrator execution parameters.
type WorkerConfig struct {
	Concurrency           int           `mapstructure:"concurrency"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryInitialInterval  time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval      time.Duration `mapstructure:"retry_max_interval"`
	Interval              time.Duration `mapstructure:"interval"`
	PublishMoleculeEvents bool          `mapstructure:"publish_molecule_events"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Fragment store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Per-key lock backends for stores without atomic insert-if-absent.
const (
	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// ScoringConfig holds the scoring engine parameters.
type ScoringConfig struct {
	Height                 int      `mapstructure:"height"`
	BatchSize              int      `mapstructure:"batch_size"`
	RingFormulas           []string `mapstructure:"ring_formulas"`
	OnlySugarMaxHeavyAtoms int      `mapstructure:"only_sugar_max_heavy_atoms"`
	LinearMinAtoms         int      `mapstructure:"linear_min_atoms"`
	LinearSugarSet         string   `mapstructure:"linear_sugar_set"` // "default" | "extended"
	Store                  string   `mapstructure:"store"`            // "postgres" | "redis" | "memory"
	StoreLock              string   `mapstructure:"store_lock"`       // "none" | "local" | "redis"
	CacheSize              int      `mapstructure:"cache_size"`
	IsoStepBudget          int      `mapstructure:"iso_step_budget"`
	RingMaxCandidates      int      `mapstructure:"ring_max_candidates"`
	IncludeScored          bool     `mapstructure:"include_scored"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure
// component and application service reads its settings from the relevant
// sub-struct.
type Config struct {
	Ops      OpsConfig      `mapstructure:"ops"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Log      LogConfig      `mapstructure:"log"`
}

// UsesPostgres reports whether either the corpus or the fragment store lives
// in PostgreSQL.  The corpus is in PostgreSQL unless the memory store is
// selected.
func (c *Config) UsesPostgres() bool {
	return c.Scoring.Store != StoreMemory
}

// UsesRedis reports whether Redis backs the fragment store or its locks.
func (c *Config) UsesRedis() bool {
	return c.Scoring.Store == StoreRedis || c.Scoring.StoreLock == LockRedis
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	// Scoring
	if c.Scoring.Height < 0 {
		return fmt.Errorf("config: scoring.height must be ≥ 0, got %d", c.Scoring.Height)
	}
	if c.Scoring.BatchSize < 1 {
		return fmt.Errorf("config: scoring.batch_size must be ≥ 1, got %d", c.Scoring.BatchSize)
	}
	if len(c.Scoring.RingFormulas) == 0 {
		return fmt.Errorf("config: scoring.ring_formulas must list at least one formula")
	}
	switch c.Scoring.LinearSugarSet {
	case "default", "extended":
	default:
		return fmt.Errorf("config: scoring.linear_sugar_set %q is invalid; expected default|extended", c.Scoring.LinearSugarSet)
	}
	switch c.Scoring.Store {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("config: scoring.store %q is invalid; expected postgres|redis|memory", c.Scoring.Store)
	}
	switch c.Scoring.StoreLock {
	case LockNone, LockLocal, LockRedis:
	default:
		return fmt.Errorf("config: scoring.store_lock %q is invalid; expected none|local|redis", c.Scoring.StoreLock)
	}

	// Database
	if c.UsesPostgres() {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("config: database.user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	// Redis
	if c.UsesRedis() {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required")
		}
	}

	// Ops
	if c.Ops.Enabled {
		if c.Ops.Port < 1 || c.Ops.Port > 65535 {
			return fmt.Errorf("config: ops.port %d is out of range [1, 65535]", c.Ops.Port)
		}
		switch c.Ops.Mode {
		case "debug", "release", "test":
		default:
			return fmt.Errorf("config: ops.mode %q is invalid; expected debug|release|test", c.Ops.Mode)
		}
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.MaxRetries < 0 {
		return fmt.Errorf("config: worker.max_retries must be ≥ 0, got %d", c.Worker.MaxRetries)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
