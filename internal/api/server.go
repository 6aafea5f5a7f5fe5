package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/cache"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
	"github.com/JakeFAU/melon-chart-api/internal/metrics"
)

// Catalog serves the records exposed over HTTP.
type Catalog interface {
	FetchChart(ctx context.Context, chartType string) ([]melon.Track, error)
	FetchSong(ctx context.Context, songID string) (melon.SongData, error)
	FetchAlbum(ctx context.Context, albumID string) (melon.AlbumData, error)
}

// Prefetcher reports whether background refreshes are running.
type Prefetcher interface {
	IsActive() bool
}

// Server wires HTTP handlers to the catalog.
type Server struct {
	router     chi.Router
	catalog    Catalog
	prefetcher Prefetcher
	logger     *zap.Logger
}

var numericID = regexp.MustCompile(`^\d+$`)

// NewServer constructs a Server with middleware and routes. prefetcher may be
// nil when background refresh is disabled.
func NewServer(catalog Catalog, prefetcher Prefetcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		catalog:    catalog,
		prefetcher: prefetcher,
		logger:     logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(analyticsMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/chart/{chartType}", s.getChart)
		r.Get("/song/{songId}", s.getSong)
		r.Get("/album/{albumId}", s.getAlbum)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	endpoints := make([]string, 0, len(melon.ChartTypes())+2)
	for _, ct := range melon.ChartTypes() {
		endpoints = append(endpoints, "/api/chart/"+string(ct))
	}
	endpoints = append(endpoints, "/api/song/:songId", "/api/album/:albumId")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Melon Music API",
		"endpoints": endpoints,
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	active := s.prefetcher != nil && s.prefetcher.IsActive()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "prefetch": active})
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.catalog.FetchChart(r.Context(), chi.URLParam(r, "chartType"))
	if err != nil {
		s.writeFailure(w, r, "chart", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) getSong(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songId")
	if !numericID.MatchString(songID) {
		s.writeError(w, http.StatusBadRequest, "Invalid song ID. Must be a number.")
		return
	}
	song, err := s.catalog.FetchSong(r.Context(), songID)
	if err != nil {
		s.writeFailure(w, r, "song", err)
		return
	}
	s.writeJSON(w, http.StatusOK, song)
}

func (s *Server) getAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "albumId")
	if !numericID.MatchString(albumID) {
		s.writeError(w, http.StatusBadRequest, "Invalid album ID. Must be a number.")
		return
	}
	album, err := s.catalog.FetchAlbum(r.Context(), albumID)
	if err != nil {
		s.writeFailure(w, r, "album", err)
		return
	}
	s.writeJSON(w, http.StatusOK, album)
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, entity string, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("entity", entity),
		zap.String("path", r.URL.Path),
		zap.String("kind", melon.KindOf(err).String()),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("lookup failed", fields...)
	} else {
		s.logger.Info("lookup rejected", fields...)
	}
	s.writeError(w, status, err.Error())
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	switch melon.KindOf(err) {
	case melon.KindInvalidArgument:
		return http.StatusBadRequest
	case melon.KindUpstream:
		return http.StatusNotFound
	case melon.KindTimeout:
		return http.StatusGatewayTimeout
	case melon.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusClientClosedRequest is the de facto code for a caller that hung up.
const statusClientClosedRequest = 499

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
