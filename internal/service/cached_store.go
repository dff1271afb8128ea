package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/naperu/leadlens/internal/domain"
	"github.com/naperu/leadlens/internal/report"
	"github.com/naperu/leadlens/pkg/cache"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/naperu/leadlens/pkg/metrics"
)

// CachedStore serves slow-changing reference data (sources, links, agents)
// from Redis and passes everything else through. Cache errors degrade to
// a direct read.
type CachedStore struct {
	Store
	cache *cache.Cache
	ttl   time.Duration
	log   logger.Logger
}

func NewCachedStore(store Store, c *cache.Cache, ttl time.Duration, log logger.Logger) *CachedStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedStore{Store: store, cache: c, ttl: ttl, log: log}
}

func (s *CachedStore) ListSources(ctx context.Context, accountID uuid.UUID) ([]*domain.LeadSource, error) {
	return cached(ctx, s, accountID, report.CollectionSources, "", func() ([]*domain.LeadSource, error) {
		return s.Store.ListSources(ctx, accountID)
	})
}

func (s *CachedStore) ListTrackableLinks(ctx context.Context, accountID uuid.UUID) ([]*domain.TrackableLink, error) {
	return cached(ctx, s, accountID, report.CollectionLinks, "", func() ([]*domain.TrackableLink, error) {
		return s.Store.ListTrackableLinks(ctx, accountID)
	})
}

func (s *CachedStore) ListAgents(ctx context.Context, accountID uuid.UUID, roles []string) ([]*domain.Agent, error) {
	return cached(ctx, s, accountID, report.CollectionAgents, strings.Join(roles, ","), func() ([]*domain.Agent, error) {
		return s.Store.ListAgents(ctx, accountID, roles)
	})
}

// Invalidate drops every cached entry of an account.
func (s *CachedStore) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DelPattern(ctx, s.cache.Key(accountID.String(), "*"))
}

func cached[T any](ctx context.Context, s *CachedStore, accountID uuid.UUID, coll report.Collection, variant string, load func() ([]T, error)) ([]T, error) {
	if s.cache == nil {
		return load()
	}
	parts := []string{accountID.String(), string(coll)}
	if variant != "" {
		parts = append(parts, variant)
	}
	key := s.cache.Key(parts...)

	var out []T
	hit, err := cache.GetJSON(ctx, s.cache, key, &out)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(string(coll), "error").Inc()
		s.log.Warn("cache read failed", "key", key, "error", err.Error())
	case hit:
		metrics.CacheLookups.WithLabelValues(string(coll), "hit").Inc()
		return out, nil
	default:
		metrics.CacheLookups.WithLabelValues(string(coll), "miss").Inc()
	}

	out, err = load()
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, out, s.ttl); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err.Error())
	}
	return out, nil
}
