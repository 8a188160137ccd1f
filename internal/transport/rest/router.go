package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs HTTP requests with method, path, status and duration.
func RequestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			dur := time.Since(start)
			log.Infow("http",
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"status", ww.Status(),
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// NewRouter wires the handlers. requestTimeout bounds each request when positive.
func NewRouter(h *Handler, log *zap.SugaredLogger, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/open", h.Open)

	r.Route("/repos/{owner}/{repo}", func(r chi.Router) {
		r.Get("/reviewers", h.GetReviewers)
		r.Get("/authors", h.GetAuthors)
		r.Get("/feed", h.GetFeed)
		r.Get("/contributors", h.GetContributors)
		r.Get("/issues/metrics", h.GetIssueMetrics)
		r.Get("/issues/trends", h.GetIssueTrends)
		r.Get("/export/reviewers.csv", h.ExportReviewers)
		r.Get("/export/events.csv", h.ExportEvents)
	})
	return r
}
