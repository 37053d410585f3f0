// Package httpapi is the thin JSON request/response layer over the pipeline.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
)

// Service is what the handlers need from the pipeline.
type Service interface {
	Run(ctx context.Context, q domain.Query) (domain.Response, error)
	Sources() []domain.SourceID
}

type handler struct {
	svc    Service
	logger *slog.Logger
}

// Options tunes the router. Without allowed origins no CORS headers are sent.
type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter mounts the search and health endpoints.
func NewRouter(svc Service, opts Options) http.Handler {
	h := &handler{svc: svc, logger: logging.OrDiscard(opts.Logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", h.search)
		r.Get("/sources", h.sources)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) sources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.SourceID{"sources": h.svc.Sources()})
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSearch(r.Body)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	resp, err := h.svc.Run(r.Context(), req.toQuery(h.svc.Sources()))
	if err != nil {
		var iq *domain.InvalidQueryError
		if errors.As(err, &iq) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: iq.Reason, Field: iq.Field})
			return
		}
		h.logger.Error("search failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(resp))
}

func (h *handler) badRequest(w http.ResponseWriter, err error) {
	var fe *fieldError
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fe.Message, Field: fe.Field})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
