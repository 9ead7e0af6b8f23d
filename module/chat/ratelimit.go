package chat

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateStore decides whether a session may send another message. The chat
// engine allows 10 messages per fixed 60-second window per session id;
// windows reset lazily on the first request after expiry.
type RateStore interface {
	Allow(sessionID string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// MemoryStore is the process-local default. Approximate and non-durable
// is acceptable here: a restart resets all windows.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewMemoryStore(limit int, period time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) Allow(sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[sessionID]
	if !ok || now.Sub(w.start) >= s.period {
		s.windows[sessionID] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= s.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// sweep reclaims windows that expired long ago.
func (s *MemoryStore) sweep() {
	for {
		time.Sleep(5 * time.Minute)
		s.mu.Lock()
		now := s.now()
		for id, w := range s.windows {
			if now.Sub(w.start) > 2*s.period {
				delete(s.windows, id)
			}
		}
		s.mu.Unlock()
	}
}

// RedisStore shares the window across instances. INCR-with-expiry gives
// the same fixed-window semantics as MemoryStore.
type RedisStore struct {
	client *redis.Client
	limit  int
	period time.Duration
}

func NewRedisStore(client *redis.Client, limit int, period time.Duration) *RedisStore {
	return &RedisStore{client: client, limit: limit, period: period}
}

func (s *RedisStore) Allow(sessionID string) (bool, error) {
	ctx := context.Background()
	key := "chat_rate:" + sessionID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, s.period).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(s.limit), nil
}
