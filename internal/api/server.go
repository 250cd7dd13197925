package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"hn-mirror/internal/mirror"
	"hn-mirror/internal/model"
	"hn-mirror/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Reader is the read side of the store.
type Reader interface {
	List(ctx context.Context) ([]model.Item, error)
	GetImage(ctx context.Context, id string) (*model.Image, error)
}

// Updater triggers a synchronisation run.
type Updater interface {
	Update(ctx context.Context, force bool) (mirror.Stats, error)
}

// FeedInfo describes the RSS channel.
type FeedInfo struct {
	Title       string
	Link        string
	Description string
}

// Server exposes the mirror over HTTP.
type Server struct {
	router  *chi.Mux
	store   Reader
	updater Updater
	feed    FeedInfo
}

// New creates a new server instance. updater may be nil, in which case the
// update endpoint is not mounted.
func New(store Reader, updater Updater, feed FeedInfo) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		store:   store,
		updater: updater,
		feed:    feed,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(120 * time.Second))
		r.Get("/news", s.handleNewsList)
		r.Get("/rss.xml", s.handleRSS)
		r.Get("/images/{id}", s.handleImage)
	})
	if s.updater != nil {
		s.router.Post("/update", s.handleUpdate)
	}

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Router returns the Chi router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleNewsList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		slog.Error("api: list items", "error", err)
		http.Error(w, "failed to list items", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		slog.Error("api: list items", "error", err)
		http.Error(w, "failed to list items", http.StatusInternalServerError)
		return
	}
	rss, err := GenerateRSSFeed(items, s.feed, time.Now())
	if err != nil {
		slog.Error("api: generate rss", "error", err)
		http.Error(w, "failed to generate feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.store.GetImage(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("api: get image", "error", err)
		http.Error(w, "failed to load image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Write(img.Data)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid force parameter", http.StatusBadRequest)
			return
		}
		force = b
	}
	// A run always completes; a client disconnect must not skip eviction.
	stats, err := s.updater.Update(context.WithoutCancel(r.Context()), force)
	if err != nil {
		slog.Error("api: update failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
