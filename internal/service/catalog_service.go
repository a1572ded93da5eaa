package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/quizpath/session-gateway/internal/config"
	"github.com/quizpath/session-gateway/internal/model"
	"github.com/quizpath/session-gateway/internal/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CatalogService proxies the upstream subject/chapter catalog with a Redis
// cache in front. The catalog is read-only from the gateway's point of view.
type CatalogService struct {
	cfg      *config.Config
	upstream *upstream.Client
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(cfg *config.Config, up *upstream.Client, rdb *redis.Client, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		cfg:      cfg,
		upstream: up,
		rdb:      rdb,
		log:      log.With().Str("component", "catalog_service").Logger(),
	}
}

// Subjects lists the subject catalog.
func (s *CatalogService) Subjects(ctx context.Context, token string) ([]model.Subject, error) {
	var subjects []model.Subject
	if s.cacheGet(ctx, config.CacheKey.SubjectsKey(), &subjects) {
		return subjects, nil
	}

	subjects, err := s.upstream.ListSubjects(ctx, token)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, config.CacheKey.SubjectsKey(), subjects)
	return subjects, nil
}

// Chapters lists a subject's chapters.
func (s *CatalogService) Chapters(ctx context.Context, subjectID, token string) ([]model.Chapter, error) {
	key := config.CacheKey.SubjectChaptersKey(subjectID)

	var chapters []model.Chapter
	if s.cacheGet(ctx, key, &chapters) {
		return chapters, nil
	}

	chapters, err := s.upstream.ListChapters(ctx, subjectID, token)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, key, chapters)
	return chapters, nil
}

// cacheGet reads and decodes a cached value. A Redis failure only means a
// cache miss.
func (s *CatalogService) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
		}
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

func (s *CatalogService) cacheSet(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.cfg.QuestionCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}
}
