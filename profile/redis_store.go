package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON document per profile plus a sorted-set index
// ordered by creation time.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store whose keys all start with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) docKey(id string) string {
	return s.prefix + "profile:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "profiles:created"
}

// Get returns the profile for id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Profile, error) {
	raw, err := s.redis.Get(ctx, s.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

// Put writes p and indexes it by creation time. Zero timestamps are
// filled with the current time.
func (s *RedisStore) Put(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	stampProfile(&p, time.Now().UTC())

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(p.ID), raw, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(p.CreatedAt.UnixMilli()), Member: p.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// List returns profiles newest first, filtered by opts.Role.
func (s *RedisStore) List(ctx context.Context, opts ListOptions) ([]Profile, error) {
	ids, err := s.redis.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []Profile{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]Profile, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry without a document
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue
		}
		if opts.Role != "" && p.Role != opts.Role {
			continue
		}
		out = append(out, p)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// UpdateRole changes the role of an existing profile.
func (s *RedisStore) UpdateRole(ctx context.Context, id string, role Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	key := s.docKey(id)
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		p.Role = role
		p.UpdatedAt = time.Now().UTC()

		next, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// Delete removes the profile and its index entry.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByRole returns the number of profiles per role. Every known role
// is present in the result.
func (s *RedisStore) CountByRole(ctx context.Context) (map[Role]int, error) {
	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	return countRoles(all), nil
}

func stampProfile(p *Profile, now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
}

func countRoles(profiles []Profile) map[Role]int {
	out := make(map[Role]int, len(Roles()))
	for _, r := range Roles() {
		out[r] = 0
	}
	for _, p := range profiles {
		out[p.Role]++
	}
	return out
}
