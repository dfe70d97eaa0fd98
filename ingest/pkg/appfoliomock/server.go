package appfoliomock

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmaynor/property-mangement-pane/common/httputil"
)

// Defaults shared with the AppFolio connector.
const (
	DefaultAPIKey = "fake-appfolio-api-key"
	DefaultAddr   = ":8001"
	HeaderAPIKey  = "X-API-KEY"
)

// Server is the fake AppFolio API.
type Server struct {
	apiKey   string
	fixtures Fixtures
	logger   *slog.Logger
}

// NewServer returns a handler serving fixtures to callers presenting
// apiKey.
func NewServer(apiKey string, fixtures Fixtures, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{apiKey: apiKey, fixtures: fixtures, logger: logger}
}

// Handler returns the HTTP routes of the fake API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	for _, resource := range Resources {
		mux.HandleFunc("GET /"+resource, s.list(resource))
	}
	return mux
}

func (s *Server) list(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderAPIKey) != s.apiKey {
			s.logger.Warn("rejected request with invalid api key",
				slog.String("path", r.URL.Path))
			httputil.WriteJSON(w, http.StatusForbidden, map[string]string{"detail": "Invalid API key"})
			return
		}
		records := s.fixtures[resource]
		if records == nil {
			records = []Record{}
		}
		s.logger.Debug("served resource",
			slog.String("resource", strings.TrimPrefix(r.URL.Path, "/")),
			slog.Int("count", len(records)))
		httputil.WriteJSON(w, http.StatusOK, records)
	}
}
