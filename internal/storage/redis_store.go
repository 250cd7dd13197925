package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"hn-mirror/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ItemsIndexKey is the set of URLs currently mirrored.
	ItemsIndexKey = "hn:items"

	fieldListing    = "listing"
	fieldEnrichment = "enrichment"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)

type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func itemKey(url string) string {
	return fmt.Sprintf("hn:item:%s", url)
}

func imageKey(id string) string {
	return fmt.Sprintf("hn:image:%s", id)
}

// Get returns the stored item for url, or nil if there is none.
func (s *RedisStore) Get(ctx context.Context, url string) (*model.Item, error) {
	res, err := s.rdb.HGetAll(ctx, itemKey(url)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return decodeItem(res)
}

// Add stores a new item with its enrichment.
func (s *RedisStore) Add(ctx context.Context, item model.NewsItem, enr model.Enrichment) error {
	listing, err := json.Marshal(item)
	if err != nil {
		return err
	}
	enrichment, err := json.Marshal(enr)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, itemKey(item.URL),
			fieldListing, listing,
			fieldEnrichment, enrichment,
			fieldCreatedAt, now,
			fieldUpdatedAt, now,
		)
		p.SAdd(ctx, ItemsIndexKey, item.URL)
		return nil
	})
	return err
}

// Update overwrites the listing fields of an existing item. The enrichment
// field is never written here.
func (s *RedisStore) Update(ctx context.Context, item model.NewsItem) error {
	key := itemKey(item.URL)
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, item.URL)
	}
	listing, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, key,
		fieldListing, listing,
		fieldUpdatedAt, s.now().UTC().Format(time.RFC3339Nano),
	).Err()
}

// RemoveExcept deletes every item whose URL is not in keep and returns how
// many were removed. An empty keep set deletes everything.
func (s *RedisStore) RemoveExcept(ctx context.Context, keep []string) (int, error) {
	urls, err := s.rdb.SMembers(ctx, ItemsIndexKey).Result()
	if err != nil {
		return 0, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, u := range keep {
		keepSet[u] = struct{}{}
	}
	var stale []string
	for _, u := range urls {
		if _, ok := keepSet[u]; !ok {
			stale = append(stale, u)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		keys := make([]string, 0, len(stale))
		members := make([]any, 0, len(stale))
		for _, u := range stale {
			keys = append(keys, itemKey(u))
			members = append(members, u)
		}
		p.Del(ctx, keys...)
		p.SRem(ctx, ItemsIndexKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// List returns all stored items ordered by rank.
func (s *RedisStore) List(ctx context.Context) ([]model.Item, error) {
	urls, err := s.rdb.SMembers(ctx, ItemsIndexKey).Result()
	if err != nil {
		return nil, err
	}
	cmds := make([]*redis.MapStringStringCmd, len(urls))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, u := range urls {
			cmds[i] = p.HGetAll(ctx, itemKey(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Item, 0, len(urls))
	for _, c := range cmds {
		res := c.Val()
		if len(res) == 0 {
			continue
		}
		it, err := decodeItem(res)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// AddImage stores an image blob and returns its id.
func (s *RedisStore) AddImage(ctx context.Context, contentType string, data []byte) (string, error) {
	id := uuid.NewString()
	err := s.rdb.HSet(ctx, imageKey(id), "content_type", contentType, "data", data).Err()
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetImage returns the image with the given id, or ErrNotFound.
func (s *RedisStore) GetImage(ctx context.Context, id string) (*model.Image, error) {
	res, err := s.rdb.HGetAll(ctx, imageKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}
	return &model.Image{ID: id, ContentType: res["content_type"], Data: []byte(res["data"])}, nil
}

func decodeItem(res map[string]string) (*model.Item, error) {
	var it model.Item
	raw, ok := res[fieldListing]
	if !ok {
		return nil, errors.New("storage: item without listing field")
	}
	if err := json.Unmarshal([]byte(raw), &it.NewsItem); err != nil {
		return nil, fmt.Errorf("storage: decode listing: %w", err)
	}
	if raw := res[fieldEnrichment]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &it.Enrichment); err != nil {
			return nil, fmt.Errorf("storage: decode enrichment: %w", err)
		}
	}
	it.CreatedAt, _ = time.Parse(time.RFC3339Nano, res[fieldCreatedAt])
	it.UpdatedAt, _ = time.Parse(time.RFC3339Nano, res[fieldUpdatedAt])
	return &it, nil
}
