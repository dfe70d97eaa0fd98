// Package pipeline runs ingest batches: every tuple of one pull or webhook
// delivery is normalized, archived, upserted and audited inside a single
// storage transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmaynor/property-mangement-pane/common/database"
	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/archive"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/audit"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/metrics"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/normalizer"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/repository"
)

// ErrTupleRejected is returned in strict mode when any tuple fails.
var ErrTupleRejected = errors.New("tuple rejected in strict mode")

// BatchError reports a batch that did not commit. None of its writes
// persisted.
type BatchError struct {
	IngestID string
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("ingest %s failed: %v", e.IngestID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Notifier announces committed batches.
type Notifier interface {
	BatchCompleted(ctx context.Context, evt *models.BatchCompleted) error
}

// DeadLetterWriter keeps tuples that failed normalization.
type DeadLetterWriter interface {
	Write(ctx context.Context, ft *models.FailedTuple) error
}

// Config tunes batch execution.
type Config struct {
	// BatchTimeout bounds one batch from BEGIN to COMMIT.
	BatchTimeout time.Duration
	// Strict turns any tuple failure into a batch failure.
	Strict bool
}

// Pipeline is safe for concurrent use; each RunBatch owns its transaction.
type Pipeline struct {
	repo        repository.Repository
	normalizer  *normalizer.Normalizer
	recorder    *audit.Recorder
	cfg         Config
	logger      *logging.Logger
	notifier    Notifier
	deadLetters DeadLetterWriter
	now         func() time.Time
	newID       func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithConfig(cfg Config) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithDeadLetters(w DeadLetterWriter) Option {
	return func(p *Pipeline) { p.deadLetters = w }
}

// WithClock overrides the latency clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides ingest id generation.
func WithIDGenerator(newID func() string) Option {
	return func(p *Pipeline) { p.newID = newID }
}

func New(repo repository.Repository, n *normalizer.Normalizer, recorder *audit.Recorder, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:       repo,
		normalizer: n,
		recorder:   recorder,
		logger:     logging.Default(),
		now:        time.Now,
		newID:      newIngestID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newIngestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// ProcessTuple takes one tuple through normalize, archive, upsert and
// audit inside b. A tuple the normalizer rejects is audited as an Error
// event and returned as a failed result with a nil error. A non-nil error
// is always a storage failure and poisons the whole batch.
func (p *Pipeline) ProcessTuple(ctx context.Context, b repository.Batch, ingestID, sourceApp string, t connector.Tuple) (models.TupleResult, error) {
	start := p.now()
	result := models.TupleResult{EntityType: models.EntityType(t.EntityType)}

	rec, err := p.normalizer.Normalize(sourceApp, t.EntityType, t.Record)
	if err != nil {
		reason := normalizer.Reason(err)
		metrics.NormalizationErrors.WithLabelValues(reason).Inc()

		result.ExternalID = normalizer.ExternalID(t.EntityType, t.Record)
		result.Status = models.StatusFailed
		result.EventType = models.EventError
		result.Reason = reason
		result.Error = err.Error()
		if spec, ok := models.LookupEntity(result.EntityType); ok {
			result.Table = spec.Table
		}

		evt := p.recorder.Failed(ingestID, sourceApp, result.ExternalID, reason, err, p.now().Sub(start))
		if werr := audit.Write(ctx, b, evt); werr != nil {
			return result, werr
		}
		p.logger.DebugContext(ctx, "tuple rejected",
			logging.EntityType(t.EntityType),
			logging.ExternalID(result.ExternalID),
			logging.Error(err))
		return result, nil
	}

	result.Table = rec.Table
	result.ExternalID = rec.ExternalID

	if _, err := archive.Write(ctx, b, rec, t.Record); err != nil {
		return result, err
	}

	changed, err := b.Upsert(ctx, rec)
	if err != nil {
		return result, err
	}

	latency := p.now().Sub(start)
	evt := p.recorder.Upserted(ingestID, rec, changed, latency)
	if err := audit.Write(ctx, b, evt); err != nil {
		return result, err
	}

	result.Changed = changed
	result.Status = models.StatusOK
	result.EventType = evt.EventType

	metrics.TupleDuration.WithLabelValues(t.EntityType).Observe(latency.Seconds())
	p.logger.DebugContext(ctx, "tuple processed",
		logging.Table(rec.Table),
		logging.ExternalID(rec.ExternalID),
		logging.Changed(changed),
		logging.Duration(latency.Milliseconds()))
	return result, nil
}

// RunBatch processes tuples as one batch under a fresh ingest id. Either
// every write commits, with failed tuples itemized in the result, or
// nothing does and a *BatchError is returned.
func (p *Pipeline) RunBatch(ctx context.Context, sourceApp string, trigger models.Trigger, tuples []connector.Tuple) (*models.BatchResult, error) {
	ingestID := p.newID()
	ctx = logging.ContextWithIngestID(ctx, ingestID)
	start := p.now()

	result, failed, err := p.runBatch(ctx, ingestID, sourceApp, trigger, tuples)
	metrics.BatchDuration.WithLabelValues(sourceApp, string(trigger)).Observe(p.now().Sub(start).Seconds())
	if err != nil {
		metrics.BatchesTotal.WithLabelValues(sourceApp, string(trigger), "failed").Inc()
		var se *repository.StorageError
		if errors.As(err, &se) {
			metrics.StorageErrors.WithLabelValues(se.Code).Inc()
		}
		p.logger.ErrorContext(ctx, "ingest batch rolled back",
			logging.Connector(sourceApp),
			logging.Trigger(string(trigger)),
			logging.Count(len(tuples)),
			logging.Error(err))
		return nil, &BatchError{IngestID: ingestID, Err: err}
	}

	metrics.BatchesTotal.WithLabelValues(sourceApp, string(trigger), "committed").Inc()
	for _, r := range result.Results {
		et := string(r.EntityType)
		if r.Reason == normalizer.ReasonUnsupportedEntity {
			et = "unsupported"
		}
		metrics.TuplesTotal.WithLabelValues(sourceApp, et, outcome(r)).Inc()
	}
	p.logger.InfoContext(ctx, "ingest batch committed",
		logging.Connector(sourceApp),
		logging.Trigger(string(trigger)),
		logging.Count(result.Summary.Processed),
		"changed", result.Summary.Changed,
		"noop", result.Summary.Noop,
		"failed", result.Summary.Failed,
		logging.Duration(p.now().Sub(start).Milliseconds()))

	p.afterCommit(ctx, result, failed)
	return result, nil
}

func (p *Pipeline) runBatch(ctx context.Context, ingestID, sourceApp string, trigger models.Trigger, tuples []connector.Tuple) (*models.BatchResult, []*models.FailedTuple, error) {
	ctx, cancel := database.BatchContext(ctx, p.cfg.BatchTimeout)
	defer cancel()

	b, err := p.repo.BeginBatch(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer b.Rollback()

	result := &models.BatchResult{
		IngestID:  ingestID,
		SourceApp: sourceApp,
		Trigger:   trigger,
		Results:   make([]models.TupleResult, 0, len(tuples)),
	}
	var failed []*models.FailedTuple

	for _, t := range tuples {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		r, err := p.ProcessTuple(ctx, b, ingestID, sourceApp, t)
		if err != nil {
			return nil, nil, err
		}
		if r.Failed() {
			if p.cfg.Strict {
				return nil, nil, fmt.Errorf("%w: %s", ErrTupleRejected, r.Error)
			}
			failed = append(failed, &models.FailedTuple{
				IngestID:   ingestID,
				SourceApp:  sourceApp,
				EntityType: t.EntityType,
				ExternalID: r.ExternalID,
				Record:     t.Record,
				Reason:     r.Reason,
				Error:      r.Error,
			})
		}
		result.Add(r)
	}

	if err := b.Commit(); err != nil {
		return nil, nil, err
	}
	return result, failed, nil
}

// afterCommit publishes the batch notification and dead letters. Both
// are best effort: the batch is already durable.
func (p *Pipeline) afterCommit(ctx context.Context, result *models.BatchResult, failed []*models.FailedTuple) {
	now := models.Timestamp(p.now())

	if p.notifier != nil {
		if err := p.notifier.BatchCompleted(ctx, result.Completed(now)); err != nil {
			metrics.NotificationsTotal.WithLabelValues("error").Inc()
			p.logger.WarnContext(ctx, "failed to publish batch notification", logging.Error(err))
		} else {
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		}
	}

	if p.deadLetters == nil {
		return
	}
	for _, ft := range failed {
		ft.FailedAt = now
		if err := p.deadLetters.Write(ctx, ft); err != nil {
			metrics.DeadLettersTotal.WithLabelValues(ft.Reason, "error").Inc()
			p.logger.WarnContext(ctx, "failed to dead-letter tuple",
				logging.EntityType(ft.EntityType),
				logging.ExternalID(ft.ExternalID),
				logging.Error(err))
			continue
		}
		metrics.DeadLettersTotal.WithLabelValues(ft.Reason, "written").Inc()
	}
}

func outcome(r models.TupleResult) string {
	switch {
	case r.Failed():
		return "failed"
	case r.Changed:
		return "changed"
	default:
		return "noop"
	}
}
