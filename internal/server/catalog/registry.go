package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Registry keeps locations whose compact reference does not fit the
// transport budget, addressed by a short random token.
type Registry interface {
	Put(ctx context.Context, loc Location) (string, error)
	// Get returns common.ErrInvalidNavRef for unknown or expired tokens.
	Get(ctx context.Context, token string) (Location, error)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

type memoryEntry struct {
	loc     Location
	expires time.Time
}

// MemoryRegistry is a bounded in-process Registry with TTL eviction.
type MemoryRegistry struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]memoryEntry
	order    []string
	now      func() time.Time
}

func NewMemoryRegistry(ttl time.Duration, capacity int) *MemoryRegistry {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryRegistry{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (r *MemoryRegistry) Put(_ context.Context, loc Location) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evict(now)

	token := newToken()
	r.entries[token] = memoryEntry{loc: loc, expires: now.Add(r.ttl)}
	r.order = append(r.order, token)
	return token, nil
}

func (r *MemoryRegistry) Get(_ context.Context, token string) (Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if !ok || !r.now().Before(e.expires) {
		delete(r.entries, token)
		return Location{}, common.ErrInvalidNavRef
	}
	return e.loc, nil
}

func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evict drops expired entries from the head of the insertion order and the
// oldest entries above capacity. Must be called with mu held.
func (r *MemoryRegistry) evict(now time.Time) {
	i := 0
	for ; i < len(r.order); i++ {
		e, ok := r.entries[r.order[i]]
		if ok && now.Before(e.expires) && len(r.order)-i < r.capacity {
			break
		}
		delete(r.entries, r.order[i])
	}
	r.order = r.order[i:]
}

// RedisKV is the part of the redis client used by RedisRegistry.
type RedisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

const redisKeyPrefix = "navref:"

// RedisRegistry shares tokens between bot instances; expiry is left to
// redis.
type RedisRegistry struct {
	client RedisKV
	ttl    time.Duration
}

func NewRedisRegistry(client RedisKV, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func (r *RedisRegistry) Put(ctx context.Context, loc Location) (string, error) {
	b, err := json.Marshal(loc)
	if err != nil {
		return "", err
	}
	token := newToken()
	if err := r.client.Set(ctx, redisKeyPrefix+token, b, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return token, nil
}

func (r *RedisRegistry) Get(ctx context.Context, token string) (Location, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Location{}, common.ErrInvalidNavRef
		}
		return Location{}, fmt.Errorf("redis get: %w", err)
	}

	var loc Location
	if err := json.Unmarshal([]byte(val), &loc); err != nil {
		return Location{}, common.ErrInvalidNavRef
	}
	return loc, nil
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
