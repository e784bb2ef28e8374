package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/plagued/storefront/internal/domain"
)

// RedisStorage keeps the cart as a single JSON value under StorageKey, the
// server-side stand-in for the browser's local storage slot.
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

func (r *RedisStorage) Load(ctx context.Context) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, StorageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSavedCart
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var saved persistedCart
	if err2 := json.Unmarshal(data, &saved); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}
	if saved.Version != schemaVersion {
		return nil, ErrNoSavedCart
	}

	return saved.Items, nil
}

func (r *RedisStorage) Save(ctx context.Context, lines []domain.CartLine) error {
	data, err := json.Marshal(persistedCart{Version: schemaVersion, Items: lines})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, StorageKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}
