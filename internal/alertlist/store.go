package alertlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Store persists lists keyed by their unique title.
type Store interface {
	Create(ctx context.Context, list *List) error
	Update(ctx context.Context, title string, list *List) error
	Load(ctx context.Context, title string) (*List, error)
	All(ctx context.Context) ([]*List, error)
	Delete(ctx context.Context, title string) (int, error)
	IsPresent(ctx context.Context, title string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// RedisStore keeps each list as a JSON document under <prefix>list:<title>
// and the set of titles under <prefix>lists. SETNX on the document key
// enforces title uniqueness.
type RedisStore struct {
	client RedisClient
	prefix string
}

// NewRedisStore creates a RedisStore. keyPrefix namespaces every key.
func NewRedisStore(client RedisClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) listKey(title string) string {
	return s.prefix + "list:" + title
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "lists"
}

// Create implements Store.
func (s *RedisStore) Create(ctx context.Context, list *List) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode alert list: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.listKey(list.Title), data)
	if err != nil {
		return fmt.Errorf("failed to store alert list: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTitle, list.Title)
	}

	if err := s.client.SAdd(ctx, s.indexKey(), list.Title); err != nil {
		// An unindexed document would still hold the title.
		if _, delErr := s.client.Delete(ctx, s.listKey(list.Title)); delErr != nil {
			return fmt.Errorf("failed to index alert list: %w (rollback: %v)", err, delErr)
		}
		return fmt.Errorf("failed to index alert list: %w", err)
	}
	return nil
}

// Update implements Store. A changed title renames the list, which fails
// with ErrDuplicateTitle when the new title is taken.
func (s *RedisStore) Update(ctx context.Context, title string, list *List) error {
	present, err := s.client.Exists(ctx, s.listKey(title))
	if err != nil {
		return fmt.Errorf("failed to check alert list: %w", err)
	}
	if !present {
		return fmt.Errorf("%w: %q", ErrNotFound, title)
	}

	if list.Title == title {
		data, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("failed to encode alert list: %w", err)
		}
		if err := s.client.Set(ctx, s.listKey(title), data); err != nil {
			return fmt.Errorf("failed to store alert list: %w", err)
		}
		return nil
	}

	if err := s.Create(ctx, list); err != nil {
		return err
	}
	if _, err := s.Delete(ctx, title); err != nil {
		return fmt.Errorf("renamed alert list but failed to remove %q: %w", title, err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, title string) (*List, error) {
	data, err := s.client.Get(ctx, s.listKey(title))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert list: %w", err)
	}

	var list List
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode alert list %q: %w", title, err)
	}
	return &list, nil
}

// All implements Store. Lists are ordered by title; index entries whose
// document is gone are skipped.
func (s *RedisStore) All(ctx context.Context) ([]*List, error) {
	titles, err := s.client.SMembers(ctx, s.indexKey())
	if err != nil {
		return nil, fmt.Errorf("failed to list alert lists: %w", err)
	}
	sort.Strings(titles)

	lists := make([]*List, 0, len(titles))
	for _, title := range titles {
		list, err := s.Load(ctx, title)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// Delete implements Store and returns the number of removed lists.
func (s *RedisStore) Delete(ctx context.Context, title string) (int, error) {
	n, err := s.client.Delete(ctx, s.listKey(title))
	if err != nil {
		return 0, fmt.Errorf("failed to delete alert list: %w", err)
	}
	if err := s.client.SRem(ctx, s.indexKey(), title); err != nil {
		return 0, fmt.Errorf("failed to unindex alert list: %w", err)
	}
	return int(n), nil
}

// IsPresent implements Store.
func (s *RedisStore) IsPresent(ctx context.Context, title string) (bool, error) {
	present, err := s.client.Exists(ctx, s.listKey(title))
	if err != nil {
		return false, fmt.Errorf("failed to check alert list: %w", err)
	}
	return present, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.indexKey())
	if err != nil {
		return 0, fmt.Errorf("failed to count alert lists: %w", err)
	}
	return n, nil
}
