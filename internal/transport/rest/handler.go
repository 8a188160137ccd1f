// Package rest exposes the dashboards over HTTP.
package rest

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/naka-gawa/github-insights/internal/dataview"
	"github.com/naka-gawa/github-insights/internal/domain"
	"github.com/naka-gawa/github-insights/internal/export"
	"github.com/naka-gawa/github-insights/internal/safeurl"
	"github.com/naka-gawa/github-insights/internal/usecase"
)

// Service is what the handlers need from the use case layer. *usecase.Insights implements it.
type Service interface {
	Dashboard(ctx context.Context, owner, repo string, refresh bool) (*usecase.Dashboard, error)
	IssueMetrics(ctx context.Context, owner, repo string, days int) domain.IssueMetrics
	IssueTrends(ctx context.Context, owner, repo string, days int) domain.IssueTrendReport
}

// Options holds the request defaults.
type Options struct {
	MaxVisible int
	Days       int
}

// Handler serves the insights API.
type Handler struct {
	log     *zap.SugaredLogger
	svc     Service
	limiter *export.Limiter
	opts    Options
}

// NewHandler constructs a Handler.
func NewHandler(log *zap.SugaredLogger, svc Service, limiter *export.Limiter, opts Options) *Handler {
	if opts.Days <= 0 {
		opts.Days = 30
	}
	return &Handler{log: log, svc: svc, limiter: limiter, opts: opts}
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) (*usecase.Dashboard, bool) {
	owner, repo := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")
	d, err := h.svc.Dashboard(r.Context(), owner, repo, boolParam(r, "refresh", false))
	if err != nil {
		h.log.Errorw("failed to load dashboard", "owner", owner, "repo", repo, "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
		return nil, false
	}
	return d, true
}

func (h *Handler) distributionOptions(w http.ResponseWriter, r *http.Request) (usecase.DistributionOptions, bool) {
	mode, err := domain.ParseViewMode(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return usecase.DistributionOptions{}, false
	}
	return usecase.DistributionOptions{
		ExcludeBots: boolParam(r, "exclude_bots", true),
		ViewMode:    mode,
		MaxVisible:  intParam(r, "max_visible", h.opts.MaxVisible),
		Expanded:    boolParam(r, "expanded", false),
	}, true
}

// GetReviewers handles GET /repos/{owner}/{repo}/reviewers.
func (h *Handler) GetReviewers(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.distributionOptions(w, r)
	if !ok {
		return
	}
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.ReviewerDistribution(opts))
}

// GetAuthors handles GET /repos/{owner}/{repo}/authors.
func (h *Handler) GetAuthors(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.distributionOptions(w, r)
	if !ok {
		return
	}
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.AuthorStatus(opts))
}

// GetFeed handles GET /repos/{owner}/{repo}/feed.
// q searches actor, title and type; from and to bound the event time (RFC 3339).
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	q := usecase.FeedQuery{
		IncludeBots:   boolParam(r, "include_bots", false),
		SelectedTypes: eventTypes(r.URL.Query().Get("types")),
		VisibleCount:  intParam(r, "visible", usecase.DefaultPageSize),
	}
	writeJSON(w, http.StatusOK, d.SearchFeed(filter, q))
}

// GetContributors handles GET /repos/{owner}/{repo}/contributors.
func (h *Handler) GetContributors(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	stats := d.Contributors(boolParam(r, "include_bots", false))
	if key := r.URL.Query().Get("sort"); key != "" {
		cfg := dataview.SortConfig{Key: key, Direction: dataview.ParseDirection(r.URL.Query().Get("dir"))}
		stats = dataview.SortData(stats, cfg, nil)
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetIssueMetrics handles GET /repos/{owner}/{repo}/issues/metrics.
// The body always carries a status; failures are reported with 502.
func (h *Handler) GetIssueMetrics(w http.ResponseWriter, r *http.Request) {
	m := h.svc.IssueMetrics(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), intParam(r, "days", h.opts.Days))
	writeJSON(w, statusOf(m.Status), m)
}

// GetIssueTrends handles GET /repos/{owner}/{repo}/issues/trends.
func (h *Handler) GetIssueTrends(w http.ResponseWriter, r *http.Request) {
	t := h.svc.IssueTrends(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), intParam(r, "days", h.opts.Days))
	writeJSON(w, statusOf(t.Status), t)
}

// allowExport charges one export to the caller and answers 429 when none are left.
func (h *Handler) allowExport(w http.ResponseWriter, r *http.Request) bool {
	res := h.limiter.Check(clientKey(r))
	if !res.Allowed {
		h.log.Warnw("export rate limited", "client", clientKey(r), "reason", res.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Round(time.Second)/time.Second)))
		writeJSON(w, http.StatusTooManyRequests, res)
		return false
	}
	w.Header().Set("X-Export-Remaining", strconv.Itoa(res.Remaining))
	return true
}

// ExportReviewers handles GET /repos/{owner}/{repo}/export/reviewers.csv.
func (h *Handler) ExportReviewers(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.distributionOptions(w, r)
	if !ok {
		return
	}
	if !h.allowExport(w, r) {
		return
	}
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	opts.Expanded = true
	dist := d.ReviewerDistribution(opts)
	rows := make([]domain.StatusCounts, 0, len(dist.Reviewers))
	for _, rv := range dist.Reviewers {
		rows = append(rows, rv.StatusCounts)
	}
	writeCSV(w, "reviewers.csv")
	if err := export.WriteStatusCSV(w, rows); err != nil {
		h.log.Errorw("failed to write reviewers csv", "error", err)
	}
}

// ExportEvents handles GET /repos/{owner}/{repo}/export/events.csv.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	if !h.allowExport(w, r) {
		return
	}
	d, ok := h.dashboard(w, r)
	if !ok {
		return
	}
	events := d.FilteredEvents(boolParam(r, "include_bots", false), eventTypes(r.URL.Query().Get("types")))
	writeCSV(w, "events.csv")
	if err := export.WriteEventsCSV(w, events); err != nil {
		h.log.Errorw("failed to write events csv", "error", err)
	}
}

// Open handles GET /open?url=. Safe URLs are redirected to, anything else is
// dropped with 204.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	opened := safeurl.Open(h.log, r.URL.Query().Get("url"), func(u string) {
		http.Redirect(w, r, u, http.StatusFound)
	})
	if !opened {
		w.WriteHeader(http.StatusNoContent)
	}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusOf(s domain.MetricsStatus) int {
	if s == domain.StatusError {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func eventTypes(raw string) []domain.EventType {
	var out []domain.EventType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, domain.EventType(strings.ToLower(t)))
		}
	}
	return out
}
