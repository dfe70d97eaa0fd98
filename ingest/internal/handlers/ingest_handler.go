package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmaynor/property-mangement-pane/common/httputil"
	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/pipeline"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/repository"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/service"
)

// ReadinessCheck contributes one named section to /readyz.
type ReadinessCheck func(ctx context.Context) any

type IngestHandler struct {
	service  *service.IngestService
	logger   *logging.Logger
	maxBody  int64
	checks   map[string]ReadinessCheck
	checkSeq []string
}

// Option configures an IngestHandler.
type Option func(*IngestHandler)

func WithLogger(l *logging.Logger) Option {
	return func(h *IngestHandler) { h.logger = l }
}

// WithMaxBodyBytes caps webhook bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *IngestHandler) { h.maxBody = n }
}

// WithReadinessCheck adds a section to the /readyz body. Checks never fail
// readiness; only the database does.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(h *IngestHandler) {
		if _, exists := h.checks[name]; !exists {
			h.checkSeq = append(h.checkSeq, name)
		}
		h.checks[name] = check
	}
}

func NewIngestHandler(svc *service.IngestService, opts ...Option) *IngestHandler {
	h := &IngestHandler{
		service: svc,
		logger:  logging.Default(),
		maxBody: httputil.DefaultMaxBodyBytes,
		checks:  map[string]ReadinessCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health answers liveness probes.
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   models.Timestamp(time.Now()),
	})
}

// Ready reports database reachability and ingestion stats.
func (h *IngestHandler) Ready(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"stats": h.service.GetStats(),
	}
	for _, name := range h.checkSeq {
		body[name] = h.checks[name](r.Context())
	}

	if err := h.service.Ready(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", logging.Error(err))
		body["status"] = "not ready"
		body["error"] = err.Error()
		httputil.WriteJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *IngestHandler) ListConnectors(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"connectors": h.service.Connectors(),
	})
}

func (h *IngestHandler) Discover(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Discover(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *IngestHandler) Pull(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Pull(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *IngestHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, http.StatusRequestEntityTooLarge, "webhook payload too large")
			return
		}
		httputil.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, httputil.ErrEmptyBody.Error())
		return
	}

	res, err := h.service.Webhook(r.Context(), r.PathValue("name"), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *IngestHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Reconcile(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// Events lists audit events, newest first.
func (h *IngestHandler) Events(w http.ResponseWriter, r *http.Request) {
	filter := repository.EventFilter{
		Limit:     httputil.ParseLimit(r, repository.DefaultEventLimit, service.MaxEventLimit),
		IngestID:  r.URL.Query().Get("ingest_id"),
		SourceApp: r.URL.Query().Get("source_app"),
	}
	events, err := h.service.Events(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Verify recomputes stored checksums. The response status is 200 even when
// mismatches are found; callers inspect "ok".
func (h *IngestHandler) Verify(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Verify(r.Context(), r.URL.Query().Get("table"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ok := true
	for _, rep := range reports {
		ok = ok && rep.OK()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": ok, "tables": reports})
}

// writeError maps service errors to HTTP statuses.
func (h *IngestHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vendorErr *service.VendorError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, connector.ErrUnknownConnector):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, connector.ErrMalformedPayload):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrUnknownTable):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrTupleRejected):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &vendorErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(status),
			logging.Error(err))
	}
	httputil.WriteError(w, status, err.Error())
}
