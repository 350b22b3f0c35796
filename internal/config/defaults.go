package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultOpsHost            = "0.0.0.0"
	DefaultOpsPort            = 9090
	DefaultOpsMode            = "release"
	DefaultOpsReadTimeout     = 10 * time.Second
	DefaultOpsWriteTimeout    = 10 * time.Second
	DefaultOpsShutdownTimeout = 15 * time.Second

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "npl"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "npl:"
	DefaultRedisLockTTL   = 10 * time.Second

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "npl.scoring.events"

	DefaultMinIOEndpoint     = "localhost:9000"
	DefaultMinIOBucket       = "npl-reports"
	DefaultMinIOReportPrefix = "runs/"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency          = 8
	DefaultWorkerMaxRetries           = 3
	DefaultWorkerRetryInitialInterval = 500 * time.Millisecond
	DefaultWorkerRetryMaxInterval     = 30 * time.Second
	DefaultWorkerInterval             = 10 * time.Minute

	DefaultScoringHeight                 = 2
	DefaultScoringBatchSize              = 1000
	DefaultScoringOnlySugarMaxHeavyAtoms = 6
	DefaultScoringLinearMinAtoms         = 4
	DefaultScoringLinearSugarSet         = "default"
	DefaultScoringStore                  = StorePostgres
	DefaultScoringStoreLock              = LockNone
	DefaultScoringCacheSize              = 100_000
	DefaultScoringIsoStepBudget          = 2_000_000
	DefaultScoringRingMaxCandidates      = 20_000
)

// DefaultScoringRingFormulas are the ring compositions treated as sugar
// candidates: four carbons plus one oxygen (furanose) and five carbons plus
// one oxygen (pyranose).
var DefaultScoringRingFormulas = []string{"C4O", "C5O"}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with the default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Ops ───────────────────────────────────────────────────────────────────
	if cfg.Ops.Host == "" {
		cfg.Ops.Host = DefaultOpsHost
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = DefaultOpsPort
	}
	if cfg.Ops.Mode == "" {
		cfg.Ops.Mode = DefaultOpsMode
	}
	if cfg.Ops.ReadTimeout == 0 {
		cfg.Ops.ReadTimeout = DefaultOpsReadTimeout
	}
	if cfg.Ops.WriteTimeout == 0 {
		cfg.Ops.WriteTimeout = DefaultOpsWriteTimeout
	}
	if cfg.Ops.ShutdownTimeout == 0 {
		cfg.Ops.ShutdownTimeout = DefaultOpsShutdownTimeout
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultRedisLockTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = "npl-scorer"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.ReportPrefix == "" {
		cfg.MinIO.ReportPrefix = DefaultMinIOReportPrefix
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = DefaultWorkerMaxRetries
	}
	if cfg.Worker.RetryInitialInterval == 0 {
		cfg.Worker.RetryInitialInterval = DefaultWorkerRetryInitialInterval
	}
	if cfg.Worker.RetryMaxInterval == 0 {
		cfg.Worker.RetryMaxInterval = DefaultWorkerRetryMaxInterval
	}
	if cfg.Worker.Interval == 0 {
		cfg.Worker.Interval = DefaultWorkerInterval
	}

	// ── Scoring ───────────────────────────────────────────────────────────────
	// Height 0 is a valid explicit value (atom-only signatures) but cannot be
	// told apart from "not set"; a zero height is therefore replaced.
	if cfg.Scoring.Height == 0 {
		cfg.Scoring.Height = DefaultScoringHeight
	}
	if cfg.Scoring.BatchSize == 0 {
		cfg.Scoring.BatchSize = DefaultScoringBatchSize
	}
	if len(cfg.Scoring.RingFormulas) == 0 {
		cfg.Scoring.RingFormulas = append([]string(nil), DefaultScoringRingFormulas...)
	}
	if cfg.Scoring.OnlySugarMaxHeavyAtoms == 0 {
		cfg.Scoring.OnlySugarMaxHeavyAtoms = DefaultScoringOnlySugarMaxHeavyAtoms
	}
	if cfg.Scoring.LinearMinAtoms == 0 {
		cfg.Scoring.LinearMinAtoms = DefaultScoringLinearMinAtoms
	}
	if cfg.Scoring.LinearSugarSet == "" {
		cfg.Scoring.LinearSugarSet = DefaultScoringLinearSugarSet
	}
	if cfg.Scoring.Store == "" {
		cfg.Scoring.Store = DefaultScoringStore
	}
	if cfg.Scoring.StoreLock == "" {
		cfg.Scoring.StoreLock = DefaultScoringStoreLock
	}
	if cfg.Scoring.CacheSize == 0 {
		cfg.Scoring.CacheSize = DefaultScoringCacheSize
	}
	if cfg.Scoring.IsoStepBudget == 0 {
		cfg.Scoring.IsoStepBudget = DefaultScoringIsoStepBudget
	}
	if cfg.Scoring.RingMaxCandidates == 0 {
		cfg.Scoring.RingMaxCandidates = DefaultScoringRingMaxCandidates
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
