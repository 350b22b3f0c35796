package app

import (
	"context"
	"time"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/config"
	"github.com/turtacn/npl-scorer/internal/domain/fragment"
	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/memory"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/postgres"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/npl-scorer/internal/infrastructure/database/redis"
	"github.com/turtacn/npl-scorer/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/npl-scorer/internal/infrastructure/storage/minio"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// Options selects the optional parts of Infrastructure.
type Options struct {
	// Publish connects the Kafka producer when kafka.enabled is set.
	Publish bool
	// Archive connects MinIO when minio.enabled is set and the Redis summary
	// cache when Redis is in use.
	Archive bool
	// Metrics registers the Prometheus collector.
	Metrics bool
}

// Infrastructure holds every connected backend.  Fields for backends the
// configuration does not use are nil.
type Infrastructure struct {
	Config *config.Config
	Logger logging.Logger

	Postgres *postgres.Connection
	Redis    *redis.Client
	MinIO    *minio.MinIOClient
	Producer *kafka.Producer

	Molecules     molecule.Repository
	Fragments     fragment.Store
	FragmentStats fragment.Stats

	SummaryCache *redis.SummaryCache
	Reports      *minio.ReportArchiver

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.NPLMetrics

	closers []func() error
}

// NewInfrastructure connects the backends cfg selects.  On error every
// backend connected so far is closed.
func NewInfrastructure(ctx context.Context, cfg *config.Config, log logging.Logger, opts Options) (_ *Infrastructure, err error) {
	in := &Infrastructure{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			in.Close()
		}
	}()

	if err := in.connectStores(cfg, log); err != nil {
		return nil, err
	}
	if err := in.buildFragmentStore(cfg, log); err != nil {
		return nil, err
	}

	if opts.Metrics {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            "npl",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return nil, err
		}
		in.Collector = collector
		in.Metrics = prometheus.NewNPLMetrics(collector)
	}

	if opts.Publish && cfg.Kafka.Enabled {
		if err := ensureEventsTopic(ctx, cfg.Kafka, log); err != nil {
			log.Warn("could not ensure events topic", logging.String("topic", cfg.Kafka.Topic), logging.Err(err))
		}
		p, err := kafka.NewProducer(cfg.Kafka, log.Named("kafka"))
		if err != nil {
			return nil, err
		}
		in.Producer = p
		in.closers = append(in.closers, p.Close)
	}

	if opts.Archive {
		if cfg.MinIO.Enabled {
			mc, err := minio.NewMinIOClient(cfg.MinIO, log.Named("minio"))
			if err != nil {
				return nil, err
			}
			in.MinIO = mc
			in.Reports = minio.NewReportArchiver(mc, log.Named("reports"))
			in.closers = append(in.closers, mc.Close)
		}
		if in.Redis != nil {
			in.SummaryCache = redis.NewSummaryCache(redis.NewCache(in.Redis, log.Named("cache")), 0)
		}
	}
	return in, nil
}

func (in *Infrastructure) connectStores(cfg *config.Config, log logging.Logger) error {
	if cfg.UsesPostgres() {
		conn, err := postgres.NewConnection(cfg.Database, log.Named("postgres"))
		if err != nil {
			return err
		}
		in.Postgres = conn
		in.closers = append(in.closers, conn.Close)
		in.Molecules = repositories.NewMoleculeRepository(conn, log.Named("molecules"))
	} else {
		in.Molecules = memory.NewMoleculeRepository()
	}

	if cfg.UsesRedis() {
		rc, err := redis.NewClient(cfg.Redis, log.Named("redis"))
		if err != nil {
			return err
		}
		in.Redis = rc
		in.closers = append(in.closers, rc.Close)
	}
	return nil
}

// buildFragmentStore layers, from the bottom up: the backend, an optional
// per-key lock around find-then-save, and the in-process LRU.
func (in *Infrastructure) buildFragmentStore(cfg *config.Config, log logging.Logger) error {
	height := cfg.Scoring.Height

	var (
		base  fragment.Store
		repo  fragment.Repository
		stats fragment.Stats
	)
	switch cfg.Scoring.Store {
	case config.StorePostgres:
		r := repositories.NewFragmentRepository(in.Postgres, height, log.Named("fragments"))
		base, repo, stats = r, r, r
	case config.StoreRedis:
		s := redis.NewFragmentStore(in.Redis, height, log.Named("fragments"))
		base, repo, stats = s, s, s
	default:
		m := fragment.NewMemoryStore(height)
		base, repo, stats = m, m, m
	}

	switch cfg.Scoring.StoreLock {
	case config.LockLocal:
		base = fragment.NewSerialized(repo, fragment.NewLocalLocker(0), height)
	case config.LockRedis:
		factory := redis.NewLockFactory(in.Redis, log.Named("lock"), redis.WithLockTTL(cfg.Redis.LockTTL))
		base = fragment.NewSerialized(repo, redis.NewFragmentLocker(factory, log.Named("lock")), height)
	}

	store := base
	if cfg.Scoring.CacheSize > 0 {
		cached, err := fragment.NewCached(base, cfg.Scoring.CacheSize)
		if err != nil {
			return err
		}
		store = cached
	}
	in.Fragments = store
	in.FragmentStats = stats
	return nil
}

func ensureEventsTopic(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, log.Named("kafka"))
	if err != nil {
		return err
	}
	defer tm.Close()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return tm.EnsureTopic(ctx, kafka.EventsTopic(cfg.Topic))
}

// Archiver returns the configured report archivers, or nil when none is.
func (in *Infrastructure) Archiver() scoring.ReportArchiver {
	var as scoring.Archivers
	if in.Reports != nil {
		as = append(as, in.Reports)
	}
	if in.SummaryCache != nil {
		as = append(as, in.SummaryCache)
	}
	if len(as) == 0 {
		return nil
	}
	return as
}

// NewOrchestrator wires an orchestrator over the infrastructure and engine.
func (in *Infrastructure) NewOrchestrator(engine *Engine) (*scoring.Orchestrator, error) {
	if engine.Scorer == nil {
		return nil, errors.InvalidParam("engine has no fragment store")
	}
	cfg := in.Config
	deps := scoring.Deps{
		Repository: in.Molecules,
		Scorer:     engine.Scorer,
		Archiver:   in.Archiver(),
		Logger:     in.Logger,
	}
	if in.Producer != nil {
		deps.Events = in.Producer
	}
	if in.Metrics != nil {
		deps.Metrics = in.Metrics
	}
	return scoring.NewOrchestrator(scoring.Config{
		BatchSize:             cfg.Scoring.BatchSize,
		Concurrency:           cfg.Worker.Concurrency,
		MaxRetries:            cfg.Worker.MaxRetries,
		RetryInitialInterval:  cfg.Worker.RetryInitialInterval,
		RetryMaxInterval:      cfg.Worker.RetryMaxInterval,
		IncludeScored:         cfg.Scoring.IncludeScored,
		PublishMoleculeEvents: cfg.Worker.PublishMoleculeEvents,
	}, deps)
}

// Close releases every backend in reverse connection order.
func (in *Infrastructure) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			in.Logger.Warn("close failed", logging.Err(err))
		}
	}
	in.closers = nil
}
