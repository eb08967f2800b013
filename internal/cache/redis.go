package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

// Cache memoises prediction results for a model version and input vector.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func buildKey(modelVersion string, v domain.NutrientVector) string {
	features := v.Features()
	parts := make([]string, len(features))
	for i, x := range features {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	sum := xxhash.Sum64String(strings.Join(parts, ","))
	return fmt.Sprintf("grade:model:%s:input:%016x", modelVersion, sum)
}

// Get a prediction from cache
func (c *Cache) Get(ctx context.Context, modelVersion string, v domain.NutrientVector) (*domain.PredictionResult, bool, error) {
	key := buildKey(modelVersion, v)
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get prediction from cache: %w", err)
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal prediction %s: %w", key, err)
	}
	return &result, true, nil
}

// Store a prediction in cache
func (c *Cache) Set(ctx context.Context, modelVersion string, v domain.NutrientVector, result *domain.PredictionResult) error {
	key := buildKey(modelVersion, v)
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set prediction in cache: %w", err)
	}
	return nil
}

// Ping connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
