package taskapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/reinhart/mcpdemo/internal/logger"
)

// APIKeyHeader carries the shared secret on every request but /health.
const APIKeyHeader = "X-API-Key"

// Version is reported by /health.
var Version = "0.1.0"

type handlers struct {
	repo   *Repository
	apiKey string
}

// NewRouter wires every endpoint, the API key check, request logging and tracing.
func NewRouter(repo *Repository, apiKey string) http.Handler {
	h := &handlers{repo: repo, apiKey: apiKey}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.Handle("POST /users", h.authorized(h.handleCreateUser))
	mux.Handle("GET /users", h.authorized(h.handleListUsers))
	mux.Handle("GET /users/{id}", h.authorized(h.handleGetUser))

	mux.Handle("POST /calls", h.authorized(h.handleScheduleCall))
	mux.Handle("GET /calls", h.authorized(h.handleListCalls))
	mux.Handle("GET /calls/{id}", h.authorized(h.handleGetCall))
	mux.Handle("PATCH /calls/{id}/status", h.authorized(h.handleUpdateCallStatus))

	mux.Handle("POST /tasks", h.authorized(h.handleCreateTask))
	mux.Handle("GET /tasks", h.authorized(h.handleListTasks))
	mux.Handle("GET /tasks/{id}", h.authorized(h.handleGetTask))
	mux.Handle("PATCH /tasks/{id}/status", h.authorized(h.handleUpdateTaskStatus))

	return otelhttp.NewHandler(logRequests(mux), "taskapi")
}

func (h *handlers) authorized(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			prefix := key
			if len(prefix) > 10 {
				prefix = prefix[:10]
			}
			logger.Warn("Invalid API key attempt: %s...", prefix)
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		logger.Logger().Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
