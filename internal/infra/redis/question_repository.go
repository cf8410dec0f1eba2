package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-gamemaster/internal/domain"
)

// QuestionSetLoader fetches a game script from a backing store (file,
// database, etc).
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets in Redis as a single JSON value
// per set and falls back to the loader on cache miss:
//
//	SET trivia:set:{setID}:questions {json} EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionSetLoader
	ttl    time.Duration
	sf     singleflight.Group
}

var _ domain.QuestionSource = (*QuestionRepository)(nil)

func NewQuestionRepository(client *redis.Client, loader QuestionSetLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	key := r.key(setID)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		if set, ok := decodeSet(raw); ok {
			return set, nil
		}
	}

	result, err, _ := r.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			if set, ok := decodeSet(raw); ok {
				return set, nil
			}
		}

		set, err := r.loader.LoadQuestionSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) key(setID string) string {
	return "trivia:set:" + setID + ":questions"
}

func decodeSet(raw []byte) (domain.QuestionSet, bool) {
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil || len(set.Questions) == 0 {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
