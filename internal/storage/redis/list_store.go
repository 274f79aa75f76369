// Package redis provides the per-user list storage used for login logs.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/redis/go-redis/v9"

	"github.com/foliotrack/backend/internal/storage"
)

type listStore struct {
	client *redis.Client
	prefix string
}

// NewListStore creates a ListStore over the given Redis client. Entries for
// each owner live in one list under prefix:ownerID, newest first.
func NewListStore(client *redis.Client, prefix string) storage.ListStore {
	return &listStore{client: client, prefix: prefix}
}

func (s *listStore) key(ownerID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, ownerID)
}

func (s *listStore) Append(ctx context.Context, ownerID string, entry any) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode list entry for %s: %w", ownerID, err)
	}
	if err := s.client.LPush(ctx, s.key(ownerID), payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrBackendUnavailable, err)
	}
	return nil
}

func (s *listStore) List(ctx context.Context, ownerID string, limit int64, dest any) error {
	if limit <= 0 {
		limit = 100
	}
	values, err := s.client.LRange(ctx, s.key(ownerID), 0, limit-1).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrBackendUnavailable, err)
	}

	destV := reflect.ValueOf(dest)
	if destV.Kind() != reflect.Pointer || destV.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("list store: dest must be a pointer to a slice, got %T", dest)
	}
	sliceV := destV.Elem()
	elemT := sliceV.Type().Elem()
	out := reflect.MakeSlice(sliceV.Type(), 0, len(values))
	for _, raw := range values {
		elem := reflect.New(elemT)
		if err := json.Unmarshal([]byte(raw), elem.Interface()); err != nil {
			return fmt.Errorf("failed to decode list entry for %s: %w", ownerID, err)
		}
		out = reflect.Append(out, elem.Elem())
	}
	sliceV.Set(out)
	return nil
}
