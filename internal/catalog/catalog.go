// Package catalog composes the fetcher, the extractors and the caches into
// the chart, song and album lookups served by the API and the prefetcher.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/cache"
	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/extract"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

// Fetcher retrieves a parsed upstream page.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (document.Node, error)
}

// Config sets the freshness window of each record class. Zero values fall
// back to cache.DefaultTTL.
type Config struct {
	ChartTTL time.Duration
	SongTTL  time.Duration
	AlbumTTL time.Duration
}

// Service serves catalog records through per-class caches. Returned values
// are shared with other callers and must not be modified.
type Service struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	cfg       Config
	logger    *zap.Logger

	charts *cache.Cache[[]melon.Track]
	songs  *cache.Cache[melon.SongData]
	albums *cache.Cache[melon.AlbumData]
}

// New builds a Service.
func New(fetcher Fetcher, cfg Config, clk cache.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher:   fetcher,
		extractor: extract.New(logger),
		cfg:       cfg,
		logger:    logger.Named("catalog"),
		charts:    cache.New[[]melon.Track]("chart", cache.Config{DefaultTTL: cfg.ChartTTL}, clk, logger),
		songs:     cache.New[melon.SongData]("song", cache.Config{DefaultTTL: cfg.SongTTL}, clk, logger),
		albums:    cache.New[melon.AlbumData]("album", cache.Config{DefaultTTL: cfg.AlbumTTL}, clk, logger),
	}
}

// FetchChart validates chartType and returns the chart. Unknown chart types
// fail without touching the network.
func (s *Service) FetchChart(ctx context.Context, chartType string) ([]melon.Track, error) {
	ct, err := melon.ParseChartType(chartType)
	if err != nil {
		return nil, err
	}
	return s.Chart(ctx, ct)
}

// Chart returns the tracks of ct.
func (s *Service) Chart(ctx context.Context, ct melon.ChartType) ([]melon.Track, error) {
	return s.chart(ctx, ct, s.cfg.ChartTTL)
}

func (s *Service) chart(ctx context.Context, ct melon.ChartType, ttl time.Duration) ([]melon.Track, error) {
	return s.charts.GetOrCompute(ctx, ct.CacheKey(), ttl, func(ctx context.Context) ([]melon.Track, error) {
		doc, err := s.fetcher.Fetch(ctx, ct.Path())
		if err != nil {
			return nil, err
		}
		return s.extractor.Chart(doc)
	})
}

// RefreshChart returns the tracks of ct, recomputing them when the cached
// entry is at least maxAge old. It shares in-flight fetches with Chart.
// A non-positive maxAge, or one above the chart TTL, selects the chart TTL.
func (s *Service) RefreshChart(ctx context.Context, ct melon.ChartType, maxAge time.Duration) ([]melon.Track, error) {
	if s.cfg.ChartTTL > 0 && maxAge > s.cfg.ChartTTL {
		maxAge = s.cfg.ChartTTL
	}
	return s.chart(ctx, ct, maxAge)
}

// FetchSong returns the detail record for a numeric song id.
func (s *Service) FetchSong(ctx context.Context, songID string) (melon.SongData, error) {
	return s.songs.GetOrCompute(ctx, "song_"+songID, s.cfg.SongTTL, func(ctx context.Context) (melon.SongData, error) {
		doc, err := s.fetcher.Fetch(ctx, melon.SongPath(songID))
		if err != nil {
			return melon.SongData{}, err
		}
		return s.extractor.Song(doc)
	})
}

// FetchAlbum returns the detail record for a numeric album id.
func (s *Service) FetchAlbum(ctx context.Context, albumID string) (melon.AlbumData, error) {
	return s.albums.GetOrCompute(ctx, "album_"+albumID, s.cfg.AlbumTTL, func(ctx context.Context) (melon.AlbumData, error) {
		doc, err := s.fetcher.Fetch(ctx, melon.AlbumPath(albumID))
		if err != nil {
			return melon.AlbumData{}, err
		}
		return s.extractor.Album(doc, albumID)
	})
}

// Clear drops every cached record.
func (s *Service) Clear() {
	s.charts.Clear()
	s.songs.Clear()
	s.albums.Clear()
	s.logger.Info("catalog caches cleared")
}

// Close releases the caches. Later lookups fail with cache.ErrClosed.
func (s *Service) Close() {
	s.charts.Close()
	s.songs.Close()
	s.albums.Close()
}
