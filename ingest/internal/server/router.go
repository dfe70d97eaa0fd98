package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmaynor/property-mangement-pane/common/httputil"
	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/common/middleware"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/handlers"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/metrics"
)

// NewRouter constructs a ServeMux with ingest API routes registered.
func NewRouter(h *handlers.IngestHandler, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, logger, fn))
	}

	// Connector operations
	handle("GET /connectors", h.ListConnectors)
	handle("GET /connectors/{name}/discover", h.Discover)
	handle("POST /connectors/{name}/pull", h.Pull)
	handle("POST /connectors/{name}/webhook", h.Webhook)
	handle("GET /connectors/{name}/reconcile", h.Reconcile)

	// Audit and integrity
	handle("GET /events", h.Events)
	handle("GET /verify", h.Verify)

	// Health endpoints
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts and logs requests by route pattern.
func instrument(route string, logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		logger.InfoContext(r.Context(), "request",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.ClientIP(httputil.GetClientIP(r)),
			logging.Status(rec.status),
			logging.Duration(time.Since(start).Milliseconds()))
	})
}
