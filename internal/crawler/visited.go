package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VisitedSet records page identities seen during one run. Visit reports true
// the first time a key is seen. Implementations are safe for concurrent use.
type VisitedSet interface {
	Visit(ctx context.Context, key string) (bool, error)
}

// VisitedStore creates the visited set for a run
type VisitedStore interface {
	ForRun(runID string) VisitedSet
}

type memoryStore struct{}

func NewMemoryVisitedStore() VisitedStore {
	return memoryStore{}
}

func (memoryStore) ForRun(string) VisitedSet {
	return &memorySet{seen: make(map[string]struct{})}
}

type memorySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (s *memorySet) Visit(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

const visitedKeyPrefix = "storesync:visited:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisVisitedStore keeps each run's visited set in one Redis set that
// expires after ttl, so several crawler processes can share it.
func NewRedisVisitedStore(client *redis.Client, ttl time.Duration) VisitedStore {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) ForRun(runID string) VisitedSet {
	return &redisSet{
		client: s.client,
		key:    visitedKeyPrefix + runID,
		ttl:    s.ttl,
	}
}

type redisSet struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	expire sync.Once
}

func (s *redisSet) Visit(ctx context.Context, key string) (bool, error) {
	// SADD is atomic, so two workers can never both see a key as new.
	added, err := s.client.SAdd(ctx, s.key, hashKey(key)).Result()
	if err != nil {
		return false, err
	}

	if s.ttl > 0 {
		s.expire.Do(func() {
			s.client.Expire(ctx, s.key, s.ttl)
		})
	}

	return added == 1, nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
