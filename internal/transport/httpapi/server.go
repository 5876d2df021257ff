// Package httpapi serves recommendations over a JSON API built on chi.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bookrec/internal/domain"
	logpkg "bookrec/internal/logger"
	"bookrec/internal/metrics"
)

// Recommender is the query surface the API needs from a model-bound recommender.
type Recommender interface {
	SimilarByTitle(ctx context.Context, titleOrID string, k int) ([]domain.SimilarityResult, error)
	Recommend(ctx context.Context, title, summary string, k int) ([]domain.SimilarityResult, error)
}

// Summarizer shortens book summaries for responses that ask for them.
type Summarizer interface {
	ShortSummary(text string) string
}

// Info describes the loaded model for the health endpoint.
type Info struct {
	Documents int
	Provider  string
}

// Server holds the HTTP handlers.
type Server struct {
	svc        Recommender
	summarizer Summarizer
	info       Info
	logger     *zap.Logger
}

func NewServer(svc Recommender, summarizer Summarizer, info Info, logger *zap.Logger) *Server {
	return &Server{svc: svc, summarizer: summarizer, info: info, logger: logger}
}

// Router mounts the API routes and middleware. requestTimeout bounds every request.
func (s *Server) Router(requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(chiMiddleware.Timeout(requestTimeout))

	r.Get("/healthz", s.health)
	r.Get("/books/{id}/similar", s.similar)
	r.Post("/recommendations", s.recommend)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type bookJSON struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Genres       []string `json:"genres"`
	Year         int      `json:"year,omitempty"`
	Correlation  float64  `json:"correlation"`
	ShortSummary string   `json:"short_summary,omitempty"`
}

type resultsJSON struct {
	Results []bookJSON `json:"results"`
}

type recommendRequest struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	K           int    `json:"k"`
	ShowSummary bool   `json:"show_summary"`
}

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.info.Documents,
		"provider":  s.info.Provider,
	})
}

// similar handles GET /books/{id}/similar?k=&summary=.
func (s *Server) similar(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid book id")
		return
	}
	k, err := parseK(r.URL.Query().Get("k"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	showSummary, _ := strconv.ParseBool(r.URL.Query().Get("summary"))

	res, err := s.svc.SimilarByTitle(r.Context(), id, k)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.results(res, showSummary))
}

// recommend handles POST /recommendations.
func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if req.K < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "k must not be negative")
		return
	}
	res, err := s.svc.Recommend(r.Context(), req.Title, req.Summary, req.K)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.results(res, req.ShowSummary))
}

func (s *Server) results(res []domain.SimilarityResult, showSummary bool) resultsJSON {
	out := resultsJSON{Results: make([]bookJSON, len(res))}
	for i, r := range res {
		b := bookJSON{
			ID:          r.Document.ID,
			Title:       r.Document.Title,
			Author:      r.Document.Author,
			Genres:      r.Document.Genres,
			Year:        r.Document.Year,
			Correlation: r.Score,
		}
		if b.Genres == nil {
			b.Genres = []string{}
		}
		if showSummary && s.summarizer != nil {
			b.ShortSummary = s.summarizer.ShortSummary(r.Document.Summary)
		}
		out.Results[i] = b
	}
	return out
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "empty_query", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("query timed out", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "timeout", "query timed out")
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func parseK(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 {
		return 0, errors.New("k must be a non-negative integer")
	}
	return k, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorJSON{Code: code, Message: message})
}

// requestLogger emits one log line per request and stores a request-scoped logger in the context.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
