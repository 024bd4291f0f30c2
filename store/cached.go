package store

import (
	"context"
	"time"

	"prolific/cache"
	"prolific/logger"
	"prolific/models"
)

// CachedStore serves topic and course reads from a cache. Exercises, steps
// and everything per-learner always go to the underlying store.
type CachedStore struct {
	ContentStore
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedStore(inner ContentStore, c cache.Cache, ttl time.Duration, baseLog *logger.Logger) *CachedStore {
	return &CachedStore{ContentStore: inner, cache: c, ttl: ttl, log: baseLog.With("store", "CachedStore")}
}

func (s *CachedStore) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var out []models.Topic
	if s.lookup(ctx, "topics", &out) {
		return out, nil
	}
	out, err := s.ContentStore.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, "topics", out)
	return out, nil
}

func (s *CachedStore) ListCoursesByTopic(ctx context.Context, topicID string) ([]models.Course, error) {
	key := "courses:topic:" + topicID
	var out []models.Course
	if s.lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := s.ContentStore.ListCoursesByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *CachedStore) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	key := "course:" + id
	var out models.Course
	if s.lookup(ctx, key, &out) {
		return &out, nil
	}
	c, err := s.ContentStore.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, c)
	return c, nil
}

// cache failures degrade to a miss
func (s *CachedStore) lookup(ctx context.Context, key string, dst interface{}) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	return ok
}

func (s *CachedStore) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn("cache set failed", "key", key, "error", err)
	}
}

// Forget drops the cached rows of the given topics and courses along with
// the topic list.
func (s *CachedStore) Forget(ctx context.Context, topicIDs, courseIDs []string) {
	keys := []string{"topics"}
	for _, id := range topicIDs {
		keys = append(keys, "courses:topic:"+id)
	}
	for _, id := range courseIDs {
		keys = append(keys, "course:"+id)
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn("cache delete failed", "key", key, "error", err)
		}
	}
}
