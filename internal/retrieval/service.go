// Package retrieval serves stored GPX files and trip paths.
package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/ukydev/fleet-tracks/internal/db"
	"github.com/ukydev/fleet-tracks/internal/metrics"
	"github.com/ukydev/fleet-tracks/internal/models"
)

// ErrNotFound is returned when no file or trip matches, or the file has no content.
var ErrNotFound = errors.New("not found")

const (
	lookupCacheHit = "cache_hit"
	lookupStoreHit = "store_hit"
	lookupNotFound = "not_found"
)

// Service answers read queries against the trip store.
type Service struct {
	store   db.TripStore
	content *cache.Cache
	metrics *metrics.TrackMetrics
}

// NewService creates a retrieval service. File contents are cached for ttl;
// a ttl of zero disables the cache.
func NewService(store db.TripStore, ttl time.Duration, m *metrics.TrackMetrics) *Service {
	s := &Service{store: store, metrics: m}
	if ttl > 0 {
		s.content = cache.New(ttl, 2*ttl)
	}
	return s
}

// ListFiles returns every stored file, newest upload first. An empty store
// yields an empty slice.
func (s *Service) ListFiles(ctx context.Context) ([]models.FileSummary, error) {
	files, err := s.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.FileSummary{}
	}
	return files, nil
}

// FileContent returns the GPX text stored under fileName.
func (s *Service) FileContent(ctx context.Context, fileName string) (string, error) {
	if s.content != nil {
		if v, ok := s.content.Get(fileName); ok {
			s.metrics.ObserveContentLookup(lookupCacheHit)
			return v.(string), nil
		}
	}

	file, err := s.store.FindFile(ctx, fileName)
	if errors.Is(err, db.ErrNotFound) {
		s.metrics.ObserveContentLookup(lookupNotFound)
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if file.Content == "" {
		s.metrics.ObserveContentLookup(lookupNotFound)
		return "", ErrNotFound
	}

	// Stored files are never rewritten, so a hit stays valid until it expires.
	if s.content != nil {
		s.content.SetDefault(fileName, file.Content)
	}
	s.metrics.ObserveContentLookup(lookupStoreHit)
	return file.Content, nil
}

// TripPath returns a trip with its points in insertion order.
func (s *Service) TripPath(ctx context.Context, tripID int64) (*models.Trip, error) {
	trip, err := s.store.FindTripWithPoints(ctx, tripID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return trip, nil
}
