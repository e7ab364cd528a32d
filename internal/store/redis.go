package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhruvjindal555/AlumLink-sub001/internal/models"
)

const searchTTL = 7 * 24 * time.Hour

// RedisStore handles Redis operations: the message search word-index
// and the counters backing rate limiting and IP blocking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// searchWordKey returns the key for a search word index.
func searchWordKey(word string) string {
	return fmt.Sprintf("search:words:%s", strings.ToLower(word))
}

// wordRegex matches word characters for search indexing.
var wordRegex = regexp.MustCompile(`\w+`)

// Tokenize splits free text into the lowercased words the search
// index is keyed by; words shorter than 3 characters are dropped.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(words))
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// IndexMessage indexes a message's text for search. Best-effort: the
// message log remains the source of truth and entries expire.
func (s *RedisStore) IndexMessage(ctx context.Context, msg *models.Message) error {
	for _, word := range Tokenize(msg.Text) {
		key := searchWordKey(word)
		s.client.ZAdd(ctx, key, redis.Z{
			Score:  float64(msg.CreatedAt.UnixMilli()),
			Member: msg.ID,
		})
		s.client.Expire(ctx, key, searchTTL)
	}
	return nil
}

// SearchMessageIDs returns ids of indexed messages matching all
// tokens, newest first.
func (s *RedisStore) SearchMessageIDs(ctx context.Context, tokens []string, limit int) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = searchWordKey(t)
	}

	if len(keys) == 1 {
		return s.client.ZRevRangeByScore(ctx, keys[0], &redis.ZRangeBy{
			Min:   "-inf",
			Max:   "+inf",
			Count: int64(limit),
		}).Result()
	}

	// Multiple words: intersect into a short-lived temp key.
	tempKey := fmt.Sprintf("search:temp:%d", time.Now().UnixNano())

	s.client.ZInterStore(ctx, tempKey, &redis.ZStore{
		Keys:      keys,
		Aggregate: "MIN",
	})
	s.client.Expire(ctx, tempKey, 10*time.Second)

	ids, err := s.client.ZRevRangeByScore(ctx, tempKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()

	s.client.Del(ctx, tempKey)
	return ids, err
}
