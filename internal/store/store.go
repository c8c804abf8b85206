// Package store is the persistence boundary. Entities are JSON blobs in
// Redis with per-tenant index sets, giving upsert-by-key semantics
// ("update if key exists, else insert") without cross-tenant visibility.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned for any missing entity.
	ErrNotFound = errors.New("not found")
	// ErrEmailImmutable is returned when mutating or deleting an email
	// whose persisted status is already sent.
	ErrEmailImmutable = errors.New("email already sent and immutable")
)

func putJSON(ctx context.Context, rdb *redis.Client, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return rdb.Set(ctx, key, data, 0).Err()
}

func getJSON(ctx context.Context, rdb *redis.Client, key string, v any) error {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// getMany loads every id via the given loader, skipping records that
// disappeared between the index read and the fetch.
func getMany[T any](ctx context.Context, ids []string, load func(ctx context.Context, id string) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		item, err := load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
