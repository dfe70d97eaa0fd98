// Package service implements the connector operations behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/ratelimit"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/repository"
)

// ErrRateLimited is returned when a connector exceeded its webhook budget.
var ErrRateLimited = errors.New("rate limit exceeded")

// VendorError reports a failed call to a connector's vendor API.
type VendorError struct {
	Connector string
	Op        string
	Err       error
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Connector, e.Err)
}

func (e *VendorError) Unwrap() error {
	return e.Err
}

// MaxEventLimit caps one events page.
const MaxEventLimit = 500

// BatchRunner runs one ingest batch.
type BatchRunner interface {
	RunBatch(ctx context.Context, sourceApp string, trigger models.Trigger, tuples []connector.Tuple) (*models.BatchResult, error)
}

// Reconciliation puts vendor snapshot counts next to what pmap stores.
type Reconciliation struct {
	SourceApp      string           `json:"source_app"`
	SnapshotCounts map[string]int   `json:"snapshot_counts"`
	LocalCounts    map[string]int64 `json:"local_counts"`
}

// ConnectorInfo is one entry of the connector listing.
type ConnectorInfo struct {
	Name string `json:"name"`
}

type IngestService struct {
	connectors *connector.Registry
	runner     BatchRunner
	repo       repository.Repository
	limiter    ratelimit.RateLimiter
	logger     *logging.Logger

	stats      models.IngestionStats
	statsMutex sync.RWMutex
}

// Option configures an IngestService.
type Option func(*IngestService)

func WithRateLimiter(l ratelimit.RateLimiter) Option {
	return func(s *IngestService) { s.limiter = l }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *IngestService) { s.logger = l }
}

func NewIngestService(connectors *connector.Registry, runner BatchRunner, repo repository.Repository, opts ...Option) *IngestService {
	s := &IngestService{
		connectors: connectors,
		runner:     runner,
		repo:       repo,
		limiter:    &ratelimit.NoOpRateLimiter{},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connectors lists the registered connectors by name.
func (s *IngestService) Connectors() []ConnectorInfo {
	names := s.connectors.Names()
	infos := make([]ConnectorInfo, len(names))
	for i, n := range names {
		infos[i] = ConnectorInfo{Name: n}
	}
	return infos
}

func (s *IngestService) Discover(ctx context.Context, name string) (*connector.Discovery, error) {
	c, err := s.connectors.Get(name)
	if err != nil {
		return nil, err
	}
	d, err := c.Discover(ctx)
	if err != nil {
		return nil, &VendorError{Connector: name, Op: "discover", Err: err}
	}
	return d, nil
}

// Pull fetches a full vendor snapshot and ingests it as one batch.
func (s *IngestService) Pull(ctx context.Context, name string) (*models.BatchResult, error) {
	c, err := s.connectors.Get(name)
	if err != nil {
		return nil, err
	}
	tuples, err := c.Pull(ctx)
	if err != nil {
		return nil, &VendorError{Connector: name, Op: "pull", Err: err}
	}
	return s.run(ctx, c.SourceApp(), models.TriggerPull, tuples)
}

// Webhook ingests one push delivery as one batch. Deliveries over the
// connector's rate limit are rejected with ErrRateLimited before decoding.
func (s *IngestService) Webhook(ctx context.Context, name string, payload []byte) (*models.BatchResult, error) {
	c, err := s.connectors.Get(name)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, c.SourceApp())
	if err != nil {
		// Fail open.
		s.logger.WarnContext(ctx, "rate limiter unavailable", logging.Connector(name), logging.Error(err))
	} else if !allowed {
		s.statsMutex.Lock()
		s.stats.RateLimited++
		s.statsMutex.Unlock()
		return nil, fmt.Errorf("%w for connector %s", ErrRateLimited, name)
	}

	tuples, err := c.Webhook(ctx, payload)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, c.SourceApp(), models.TriggerWebhook, tuples)
}

// Reconcile reports vendor snapshot counts and the local row counts for
// the same source.
func (s *IngestService) Reconcile(ctx context.Context, name string) (*Reconciliation, error) {
	c, err := s.connectors.Get(name)
	if err != nil {
		return nil, err
	}
	snap, err := c.Reconcile(ctx)
	if err != nil {
		return nil, &VendorError{Connector: name, Op: "reconcile", Err: err}
	}
	local, err := s.repo.Counts(ctx, c.SourceApp())
	if err != nil {
		return nil, err
	}
	return &Reconciliation{
		SourceApp:      snap.SourceApp,
		SnapshotCounts: snap.SnapshotCounts,
		LocalCounts:    local,
	}, nil
}

// Events returns audit events newest first. The limit defaults to
// repository.DefaultEventLimit and is capped at MaxEventLimit.
func (s *IngestService) Events(ctx context.Context, filter repository.EventFilter) ([]*models.AuditEvent, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = repository.DefaultEventLimit
	case filter.Limit > MaxEventLimit:
		filter.Limit = MaxEventLimit
	}
	events, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}
	return events, nil
}

// Verify recomputes stored checksums of table, or of every canonical
// table when table is empty.
func (s *IngestService) Verify(ctx context.Context, table string) ([]*repository.VerifyReport, error) {
	tables := models.Tables()
	if table != "" {
		tables = []string{table}
	}

	reports := make([]*repository.VerifyReport, 0, len(tables))
	for _, t := range tables {
		r, err := s.repo.VerifyChecksums(ctx, t)
		if err != nil {
			return nil, err
		}
		if !r.OK() {
			s.logger.WarnContext(ctx, "checksum mismatches found", logging.Table(t), logging.Count(len(r.Mismatches)))
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Ready reports whether the store is reachable.
func (s *IngestService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *IngestService) run(ctx context.Context, sourceApp string, trigger models.Trigger, tuples []connector.Tuple) (*models.BatchResult, error) {
	result, err := s.runner.RunBatch(ctx, sourceApp, trigger, tuples)
	s.updateStats(result, err)
	return result, err
}

func (s *IngestService) updateStats(result *models.BatchResult, err error) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.LastBatch = time.Now().UTC()
	if err != nil || result == nil {
		s.stats.FailedBatches++
		return
	}
	s.stats.Batches++
	s.stats.Tuples += int64(result.Summary.Processed)
	s.stats.Changed += int64(result.Summary.Changed)
	s.stats.Noop += int64(result.Summary.Noop)
	s.stats.FailedTuples += int64(result.Summary.Failed)
}

func (s *IngestService) GetStats() models.IngestionStats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()
	return s.stats
}
