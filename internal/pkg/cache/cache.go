package cache

import (
	"context"
	"encoding/json"
	"time"

	pkgredis "github.com/icmpp/concursuri/internal/pkg/redis"
)

const (
	keyPrefix  = "concursuri:"
	defaultTTL = 5 * time.Minute
)

// Service is a read-through cache for competition reads. Every mutation in
// the data-access layer invalidates the keys it touches, so reads after a
// write always reflect the write. A nil Service is a no-op, which keeps the
// services usable without Redis (tests, local runs).
type Service struct {
	rc  *pkgredis.Client
	ttl time.Duration
}

func New(rc *pkgredis.Client) *Service {
	return &Service{rc: rc, ttl: defaultTTL}
}

// Cache keys mirror the query keys the previous frontend invalidated.
func KeyCompetitionList(status string) string {
	if status == "" {
		status = "all"
	}
	return keyPrefix + "competitions:" + status
}

func KeyCompetitionBySlug(slug string) string { return keyPrefix + "competition:slug:" + slug }
func KeyCompetitionByID(id string) string     { return keyPrefix + "competition:id:" + id }
func KeyDocuments(competitionID string) string {
	return keyPrefix + "documents:" + competitionID
}

// GetJSON loads a cached value into dest. Returns false on miss or any
// decode problem (a broken entry is treated as a miss).
func (s *Service) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if s == nil || s.rc == nil {
		return false
	}
	raw, err := s.rc.Get(ctx, key)
	if err != nil || raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

// SetJSON stores a value under key. Failures are ignored; the cache is an
// optimization, not a source of truth.
func (s *Service) SetJSON(ctx context.Context, key string, value interface{}) {
	if s == nil || s.rc == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.rc.Set(ctx, key, raw, s.ttl)
}

// InvalidateCompetitionLists drops every cached list variant.
func (s *Service) InvalidateCompetitionLists(ctx context.Context) {
	if s == nil || s.rc == nil {
		return
	}
	_, _ = s.rc.DelPattern(ctx, keyPrefix+"competitions:*")
}

// InvalidateCompetition drops the single-entity keys for one competition.
func (s *Service) InvalidateCompetition(ctx context.Context, id, slug string) {
	if s == nil || s.rc == nil {
		return
	}
	keys := []string{KeyCompetitionByID(id)}
	if slug != "" {
		keys = append(keys, KeyCompetitionBySlug(slug))
	}
	_ = s.rc.Del(ctx, keys...)
}

// InvalidateDocuments drops the cached document list of one competition,
// plus the joined competition reads that embed it.
func (s *Service) InvalidateDocuments(ctx context.Context, competitionID, slug string) {
	if s == nil || s.rc == nil {
		return
	}
	keys := []string{KeyDocuments(competitionID), KeyCompetitionByID(competitionID)}
	if slug != "" {
		keys = append(keys, KeyCompetitionBySlug(slug))
	}
	_ = s.rc.Del(ctx, keys...)
}
