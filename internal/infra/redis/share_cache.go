// Package redis caches share-token lookups in front of the backing store.
// Every public attempt resolves its quiz through a token, so the hot path is
// a single GET instead of a database round trip.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizlytic-service/internal/app"
	"quizlytic-service/internal/domain"
)

// ShareCache caches quizzes by share token as JSON strings:
// SET share:{token} {quiz JSON} EX {ttl+jitter}.
// Misses fall through to the loader under singleflight so a popular link
// hitting a cold cache issues one backing query, not one per request.
type ShareCache struct {
	client *redis.Client
	loader app.ShareResolver
	ttl    time.Duration
	sf     singleflight.Group
}

func NewShareCache(client *redis.Client, loader app.ShareResolver, ttl time.Duration) *ShareCache {
	return &ShareCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *ShareCache) QuizByShareToken(ctx context.Context, token string) (domain.Quiz, error) {
	key := c.key(token)

	if quiz, ok := c.cached(ctx, key); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(token, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if quiz, ok := c.cached(ctx, key); ok {
			return quiz, nil
		}

		quiz, err := c.loader.QuizByShareToken(ctx, token)
		if err != nil {
			return domain.Quiz{}, err
		}
		if payload, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, key, payload, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// InvalidateShareToken drops the cached quiz so rule changes take effect on
// the next attempt instead of after TTL expiry.
func (c *ShareCache) InvalidateShareToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.client.Del(ctx, c.key(token)).Err()
}

func (c *ShareCache) cached(ctx context.Context, key string) (domain.Quiz, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *ShareCache) key(token string) string {
	return "share:" + token
}

// ttlWithJitter spreads expiries by up to 10% so tokens cached together do
// not all miss together. The package-level source is goroutine-safe; misses
// for different tokens can fill concurrently.
func (c *ShareCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
