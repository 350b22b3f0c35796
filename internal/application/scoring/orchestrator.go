// Package scoring provides the batch orchestrator: it partitions the
// molecule corpus into batches, scores them on a fixed pool of workers and
// resubmits the unprocessed remainder of a batch whose worker hit a
// repository failure.
package scoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/turtacn/npl-scorer/internal/domain/molecule"
	domainScoring "github.com/turtacn/npl-scorer/internal/domain/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

// Orchestrator defaults.
const (
	DefaultBatchSize            = 1000
	DefaultMaxRetries           = 3
	DefaultRetryInitialInterval = 500 * time.Millisecond
	DefaultRetryMaxInterval     = 30 * time.Second
)

// RecordScorer is the part of the domain scorer the orchestrator drives.
type RecordScorer interface {
	Score(ctx context.Context, rec *molecule.Record) (domainScoring.Outcome, error)
}

// Config tunes batching, parallelism and resubmission.
type Config struct {
	BatchSize             int           `mapstructure:"batch_size"`
	Concurrency           int           `mapstructure:"concurrency"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryInitialInterval  time.Duration `mapstructure:"retry_initial_interval"`
	RetryMaxInterval      time.Duration `mapstructure:"retry_max_interval"`
	IncludeScored         bool          `mapstructure:"include_scored"`
	PublishMoleculeEvents bool          `mapstructure:"publish_molecule_events"`
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = DefaultRetryInitialInterval
	}
	if c.RetryMaxInterval <= 0 {
		c.RetryMaxInterval = DefaultRetryMaxInterval
	}
	return c
}

// Deps are the collaborators of an Orchestrator.  Events, Archiver and
// Metrics are optional.
type Deps struct {
	Repository molecule.Repository
	Scorer     RecordScorer
	Events     EventPublisher
	Archiver   ReportArchiver
	Metrics    Metrics
	Logger     logging.Logger
}

// Orchestrator runs scoring over the corpus.  One run executes at a time.
type Orchestrator struct {
	cfg     Config
	repo    molecule.Repository
	scorer  RecordScorer
	events  EventPublisher
	archive ReportArchiver
	metrics Metrics
	logger  logging.Logger

	now   func() time.Time
	newID func() string
	sleep func(ctx context.Context, d time.Duration) error

	running sync.Mutex
	mu      sync.RWMutex
	last    *Summary
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Repository == nil {
		return nil, errors.InvalidParam("orchestrator: molecule repository is required")
	}
	if deps.Scorer == nil {
		return nil, errors.InvalidParam("orchestrator: scorer is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &Orchestrator{
		cfg:     cfg.withDefaults(),
		repo:    deps.Repository,
		scorer:  deps.Scorer,
		events:  deps.Events,
		archive: deps.Archiver,
		metrics: deps.Metrics,
		logger:  deps.Logger.Named("orchestrator"),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		sleep:   sleepCtx,
	}, nil
}

// LastSummary returns the summary of the most recent finished run, or nil.
func (o *Orchestrator) LastSummary() *Summary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last
}

// batch is one unit of work.  A resubmitted remainder keeps the retry
// schedule of the batch it came from.
type batch struct {
	id      string
	records []*molecule.Record
	attempt int
	retry   backoff.BackOff
}

type run struct {
	id      string
	log     logging.Logger
	tally   *tally
	jobs    chan *batch
	pending sync.WaitGroup
}

// Run scores every pending record of the corpus.  The returned summary is
// always non-nil once the run started.  The error is BATCH_001 when the
// corpus could not be listed and BATCH_002 when records were left unscored
// after all retries.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if !o.running.TryLock() {
		return nil, errors.Conflict("a scoring run is already in progress")
	}
	defer o.running.Unlock()

	r := &run{id: o.newID(), jobs: make(chan *batch)}
	r.log = o.logger.With(logging.String("run_id", r.id))
	r.tally = &tally{s: newSummary(r.id, o.now())}
	r.log.Info("scoring run started",
		logging.Int("batch_size", o.cfg.BatchSize),
		logging.Int("concurrency", o.cfg.Concurrency))

	var workers sync.WaitGroup
	for i := 0; i < o.cfg.Concurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for b := range r.jobs {
				o.process(ctx, r, b)
			}
		}()
	}
	o.metrics.SetActiveWorkers(o.cfg.Concurrency)

	listErr := o.produce(ctx, r)
	r.pending.Wait()
	close(r.jobs)
	workers.Wait()
	o.metrics.SetActiveWorkers(0)

	if listErr != nil {
		r.tally.failed(0, listErr)
	}
	summary := r.tally.finish(o.now())
	o.finish(ctx, r, summary)

	switch {
	case listErr != nil:
		return summary, listErr
	case summary.Failed > 0:
		return summary, errors.Newf(errors.ErrCodeBatchExhausted,
			"%d molecules left unscored after %d retries", summary.Failed, o.cfg.MaxRetries)
	}
	return summary, nil
}

// produce pages through the corpus by id and feeds fixed-size batches to the
// workers.
func (o *Orchestrator) produce(ctx context.Context, r *run) error {
	after := ""
	pageSize := o.cfg.BatchSize * o.cfg.Concurrency
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeBatchAborted, "scoring run cancelled")
		}
		page, err := o.listPage(ctx, r, after, pageSize)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeBatchAborted, "list molecule corpus")
		}
		if len(page) == 0 {
			return nil
		}
		for _, chunk := range lo.Chunk(page, o.cfg.BatchSize) {
			r.pending.Add(1)
			select {
			case r.jobs <- &batch{id: o.newID(), records: chunk}:
			case <-ctx.Done():
				r.pending.Done()
				r.tally.failed(len(chunk), nil)
			}
		}
		after = page[len(page)-1].ID
		if len(page) < pageSize {
			return nil
		}
	}
}

func (o *Orchestrator) listPage(ctx context.Context, r *run, after string, limit int) ([]*molecule.Record, error) {
	var page []*molecule.Record
	op := func() error {
		var err error
		page, err = o.repo.List(ctx, molecule.ListOptions{
			AfterID:       after,
			Limit:         limit,
			IncludeScored: o.cfg.IncludeScored,
		})
		return err
	}
	notify := func(err error, d time.Duration) {
		r.log.Warn("listing corpus failed, retrying",
			logging.String("after_id", after), logging.Duration("delay", d), logging.Err(err))
	}
	err := backoff.RetryNotify(op, backoff.WithContext(o.newBackOff(), ctx), notify)
	return page, err
}

// process scores one batch strictly in order.  A repository failure
// terminates the batch; the records from the failing one onward are
// resubmitted.
func (o *Orchestrator) process(ctx context.Context, r *run, b *batch) {
	defer r.pending.Done()
	start := o.now()
	log := r.log.With(logging.String("batch_id", b.id), logging.Int("attempt", b.attempt))
	log.Info("batch started", logging.Int("size", len(b.records)))

	for i, rec := range b.records {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", logging.Int("remaining", len(b.records)-i))
			r.tally.failed(len(b.records)-i, errors.Wrap(err, errors.ErrCodeBatchAborted, "scoring run cancelled"))
			o.metrics.ObserveBatch(BatchFailed, len(b.records), o.now().Sub(start))
			return
		}

		molStart := o.now()
		out, err := o.scorer.Score(ctx, rec)
		r.tally.fragments(out.FragmentsCreated)
		o.metrics.AddFragmentsCreated(out.FragmentsCreated)
		if err == nil {
			err = o.repo.SaveScores(ctx, rec)
		}
		if err != nil {
			log.Error("repository failure, stopping batch",
				logging.String("molecule_id", rec.ID), logging.Err(err))
			o.resubmit(ctx, r, b, b.records[i:], err)
			o.metrics.ObserveBatch(BatchResubmitted, len(b.records), o.now().Sub(start))
			return
		}

		r.tally.record(out)
		status := "scored"
		if out.Skipped != molecule.SkipNone {
			status = string(out.Skipped)
		}
		o.metrics.ObserveMolecule(status, o.now().Sub(molStart))
		if o.cfg.PublishMoleculeEvents && out.Skipped == molecule.SkipNone {
			o.emit(ctx, r, Event{
				Type:        EventMoleculeScored,
				BatchID:     b.id,
				MoleculeID:  rec.ID,
				NPLScore:    rec.NPLScore,
				SugarStatus: rec.ContainsSugar.String(),
			})
		}
		rec.Graph, rec.SugarFreeGraph = nil, nil
	}

	r.tally.batch()
	elapsed := o.now().Sub(start)
	o.metrics.ObserveBatch(BatchCompleted, len(b.records), elapsed)
	log.Info("batch finished", logging.Int("size", len(b.records)), logging.Duration("elapsed", elapsed))
	o.emit(ctx, r, Event{Type: EventBatchCompleted, BatchID: b.id, Attempt: b.attempt, Size: len(b.records)})
}

// resubmit schedules remainder as a fresh batch after the next backoff delay,
// or gives up on it once the retry budget of the chain is spent.
func (o *Orchestrator) resubmit(ctx context.Context, r *run, b *batch, remainder []*molecule.Record, cause error) {
	retry := b.retry
	if retry == nil {
		retry = o.newBackOff()
	}
	delay := retry.NextBackOff()
	if delay == backoff.Stop {
		r.log.Error("retries exhausted, giving up on remainder",
			logging.String("batch_id", b.id), logging.Int("remaining", len(remainder)))
		r.tally.failed(len(remainder), errors.Wrap(cause, errors.ErrCodeBatchExhausted, "batch retries exhausted"))
		return
	}

	next := &batch{id: o.newID(), records: remainder, attempt: b.attempt + 1, retry: retry}
	r.tally.resubmitted()
	o.emit(ctx, r, Event{
		Type:      EventRemainderResubmitted,
		BatchID:   next.id,
		Attempt:   next.attempt,
		Size:      len(b.records),
		Remaining: len(remainder),
	})

	r.pending.Add(1)
	go func() {
		if err := o.sleep(ctx, delay); err != nil {
			r.pending.Done()
			r.tally.failed(len(remainder), errors.Wrap(err, errors.ErrCodeBatchAborted, "scoring run cancelled"))
			return
		}
		select {
		case r.jobs <- next:
		case <-ctx.Done():
			r.pending.Done()
			r.tally.failed(len(remainder), errors.Wrap(ctx.Err(), errors.ErrCodeBatchAborted, "scoring run cancelled"))
		}
	}()
}

func (o *Orchestrator) finish(ctx context.Context, r *run, s *Summary) {
	if o.archive != nil {
		loc, err := o.archive.Archive(ctx, s)
		if err != nil {
			r.log.Warn("archiving run report failed", logging.Err(err))
		} else {
			s.ReportLocation = loc
		}
	}
	o.emit(ctx, r, Event{Type: EventRunCompleted, Summary: s})

	o.mu.Lock()
	o.last = s
	o.mu.Unlock()

	r.log.Info("scoring run finished",
		logging.Int("scored", s.Scored),
		logging.Int("skipped", s.SkippedTotal()),
		logging.Int("resubmitted", s.Resubmitted),
		logging.Int("failed", s.Failed),
		logging.Int("fragments_created", s.FragmentsCreated),
		logging.Duration("duration", s.Duration))
}

func (o *Orchestrator) emit(ctx context.Context, r *run, e Event) {
	if o.events == nil {
		return
	}
	e.RunID = r.id
	e.OccurredAt = o.now().UTC()
	if err := o.events.Publish(ctx, e); err != nil {
		r.log.Warn("publishing scoring event failed", logging.String("type", string(e.Type)), logging.Err(err))
	}
}

func (o *Orchestrator) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.cfg.RetryInitialInterval
	exp.MaxInterval = o.cfg.RetryMaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(exp, uint64(o.cfg.MaxRetries))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
