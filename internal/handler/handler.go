package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	_ "github.com/mtlprog/askwidget/docs" // Import generated docs
	"github.com/mtlprog/askwidget/internal/handler/dto"
	"github.com/mtlprog/askwidget/internal/middleware"
	"github.com/mtlprog/askwidget/internal/repository"
	"github.com/mtlprog/askwidget/internal/service"
	"github.com/mtlprog/askwidget/internal/static"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	// DefaultMaxWait bounds a long-poll on GET /api/v1/exchange?wait=true.
	DefaultMaxWait = 25 * time.Second

	pageRefreshSeconds = 1
)

// StatsReader is the journal query used by GET /api/v1/stats.
type StatsReader interface {
	GetExchangeStats(ctx context.Context, filters repository.StatsFilters) (*repository.ExchangeStatsResult, error)
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds dependencies for HTTP handlers.
type Options struct {
	Sessions      *service.Sessions
	FAQs          *service.FAQShortcuts
	Stats         StatsReader // nil when the journal is disabled
	DB            Pinger      // nil when the journal is disabled
	Title         string
	SessionTTL    time.Duration
	SecureCookies bool
	MaxWait       time.Duration
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions          *service.Sessions
	faqs              *service.FAQShortcuts
	stats             StatsReader
	db                Pinger
	title             string
	maxWait           time.Duration
	page              *template.Template
	sessionMiddleware *middleware.SessionMiddleware
}

// New creates a new Handler instance with all dependencies.
func New(opts Options) (*Handler, error) {
	page, err := template.New("index").Parse(static.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.FAQs == nil {
		opts.FAQs = service.NewFAQShortcuts()
	}

	return &Handler{
		sessions:          opts.Sessions,
		faqs:              opts.FAQs,
		stats:             opts.Stats,
		db:                opts.DB,
		title:             opts.Title,
		maxWait:           opts.MaxWait,
		page:              page,
		sessionMiddleware: middleware.NewSessionMiddleware(opts.SessionTTL, opts.SecureCookies),
	}, nil
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	// Widget page (form posts, no JavaScript required)
	mux.HandleFunc("GET /{$}", h.handlePage)
	mux.HandleFunc("GET /static/style.css", h.handleStyle)
	mux.HandleFunc("POST /ask", h.handleAskForm)
	mux.HandleFunc("POST /faq/{index}", h.handleFAQForm)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/exchange", h.handleGetExchange)
	mux.HandleFunc("POST /api/v1/exchange", h.handleSubmitExchange)
	mux.HandleFunc("GET /api/v1/faqs", h.handleListFAQs)
	mux.HandleFunc("POST /api/v1/faqs/{index}", h.handleSelectFAQ)
	mux.HandleFunc("GET /api/v1/stats", h.handleGetStats)
}

// Routes returns every route wrapped in the widget session middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.sessionMiddleware.Attach(mux)
}

// handleHealthz returns 200 OK if the journal database (when configured) is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			slog.Error("database health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractFAQIndex parses the {index} path parameter.
// Returns (index, true) if valid, (0, false) if invalid (error already sent to client).
func extractFAQIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "faq index must be a number")
		return 0, false
	}
	return index, true
}

// sessionID returns the widget session attached by the middleware.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Error("request reached handler without a widget session", "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return "", false
	}
	return id, true
}
