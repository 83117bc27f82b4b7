package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ActiveQuizLoader fetches the active quiz bundle from the backing store.
type ActiveQuizLoader interface {
	ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error)
}

// QuizCache caches the active quiz bundle in Redis and falls back to a
// loader on miss. Cache fills are deduplicated with singleflight and expire
// with up to 10% jitter to spread refills. A "no active quiz" answer is not
// cached; it must track the window edge closely.
type QuizCache struct {
	client *redis.Client
	loader ActiveQuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const activeQuizKey = "quiz:active"

func NewQuizCache(client *redis.Client, loader ActiveQuizLoader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) ActivePublicQuiz(ctx context.Context, at time.Time) (domain.PublicQuiz, error) {
	if pub, ok := c.fromCache(ctx, at); ok {
		return pub, nil
	}

	result, err, _ := c.sf.Do(activeQuizKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if pub, ok := c.fromCache(ctx, at); ok {
			return pub, nil
		}

		pub, err := c.loader.ActivePublicQuiz(ctx, at)
		if err != nil {
			return domain.PublicQuiz{}, err
		}

		if data, err := json.Marshal(pub); err == nil {
			// Best effort; a failed cache write must not fail the read.
			_ = c.client.Set(ctx, activeQuizKey, data, c.ttlWithJitter()).Err()
		}
		return pub, nil
	})
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return result.(domain.PublicQuiz), nil
}

// fromCache returns the cached bundle only while its window still contains
// at, so a quiz that just ended cannot be served from a stale entry.
func (c *QuizCache) fromCache(ctx context.Context, at time.Time) (domain.PublicQuiz, bool) {
	raw, err := c.client.Get(ctx, activeQuizKey).Bytes()
	if err != nil {
		return domain.PublicQuiz{}, false
	}
	var pub domain.PublicQuiz
	if err := json.Unmarshal(raw, &pub); err != nil {
		return domain.PublicQuiz{}, false
	}
	if !pub.Quiz.WindowContains(at) {
		return domain.PublicQuiz{}, false
	}
	return pub, true
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
