package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"tubelists/shared/go/models"
)

const defaultRedisPrefix = "tubelists:search"

// RedisIndex keeps one JSON document per playlist and per video, plus one
// set per kind holding the identifiers that are currently searchable.
type RedisIndex struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisIndex creates an index on rdb. An empty prefix selects the default.
func NewRedisIndex(rdb redis.UniversalClient, prefix string) *RedisIndex {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisIndex{rdb: rdb, prefix: prefix}
}

func (r *RedisIndex) docKey(id string) string {
	return r.prefix + ":playlist:" + id
}

func (r *RedisIndex) searchableKey() string {
	return r.prefix + ":searchable"
}

func (r *RedisIndex) videoKey(id string) string {
	return r.prefix + ":video:" + id
}

func (r *RedisIndex) searchableVideosKey() string {
	return r.prefix + ":videos:searchable"
}

// Upsert stores doc under id and updates the searchable set.
func (r *RedisIndex) Upsert(ctx context.Context, id string, doc models.PlaylistDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode playlist document: %w", err)
	}
	if err := r.put(ctx, r.docKey(id), r.searchableKey(), id, body, Searchable(doc)); err != nil {
		return fmt.Errorf("upsert playlist document: %w", err)
	}
	return nil
}

// DeleteIfExists removes the document stored under id, if any.
func (r *RedisIndex) DeleteIfExists(ctx context.Context, id string) error {
	if err := r.remove(ctx, r.docKey(id), r.searchableKey(), id); err != nil {
		return fmt.Errorf("delete playlist document: %w", err)
	}
	return nil
}

// UpsertVideo stores the video document under id and updates the video set.
func (r *RedisIndex) UpsertVideo(ctx context.Context, id string, doc models.VideoDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode video document: %w", err)
	}
	if err := r.put(ctx, r.videoKey(id), r.searchableVideosKey(), id, body, SearchableVideo(doc)); err != nil {
		return fmt.Errorf("upsert video document: %w", err)
	}
	return nil
}

// DeleteVideoIfExists removes the video document stored under id, if any.
func (r *RedisIndex) DeleteVideoIfExists(ctx context.Context, id string) error {
	if err := r.remove(ctx, r.videoKey(id), r.searchableVideosKey(), id); err != nil {
		return fmt.Errorf("delete video document: %w", err)
	}
	return nil
}

// Get returns the stored playlist document for id and whether it exists.
func (r *RedisIndex) Get(ctx context.Context, id string) (models.PlaylistDocument, bool, error) {
	var doc models.PlaylistDocument
	ok, err := r.get(ctx, r.docKey(id), &doc)
	return doc, ok, err
}

// GetVideo returns the stored video document for id and whether it exists.
func (r *RedisIndex) GetVideo(ctx context.Context, id string) (models.VideoDocument, bool, error) {
	var doc models.VideoDocument
	ok, err := r.get(ctx, r.videoKey(id), &doc)
	return doc, ok, err
}

// SearchPlaylists scores every searchable playlist document against q.
// Collections are bounded in size, so a scan of the searchable set is sufficient.
func (r *RedisIndex) SearchPlaylists(ctx context.Context, q Query) (Page, error) {
	return r.scan(ctx, r.searchableKey(), r.docKey, q, func(raw []byte) (int, error) {
		var doc models.PlaylistDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return 0, err
		}
		if !Searchable(doc) || !matchesFilter(doc.Language, q.Languages) || !matchesFilter(doc.Difficulty, q.Difficulties) {
			return 0, nil
		}
		return Score(doc, q.Text), nil
	})
}

// SearchVideos scores every searchable video document against q.
func (r *RedisIndex) SearchVideos(ctx context.Context, q Query) (Page, error) {
	return r.scan(ctx, r.searchableVideosKey(), r.videoKey, q, func(raw []byte) (int, error) {
		var doc models.VideoDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return 0, err
		}
		if !SearchableVideo(doc) || !matchesFilter(doc.Language, q.Languages) || !matchesFilter(doc.Difficulty, q.Difficulties) {
			return 0, nil
		}
		return VideoScore(doc, q.Text), nil
	})
}

func (r *RedisIndex) put(ctx context.Context, key, set, id string, body []byte, searchable bool) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, body, 0)
		if searchable {
			pipe.SAdd(ctx, set, id)
		} else {
			pipe.SRem(ctx, set, id)
		}
		return nil
	})
	return err
}

func (r *RedisIndex) remove(ctx context.Context, key, set, id string) error {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, set, id)
		return nil
	})
	return err
}

func (r *RedisIndex) get(ctx context.Context, key string, into any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// scan loads every document in set, scores it and pages the hits. A zero
// score drops the document.
func (r *RedisIndex) scan(ctx context.Context, set string, keyOf func(string) string, q Query, score func([]byte) (int, error)) (Page, error) {
	ids, err := r.rdb.SMembers(ctx, set).Result()
	if err != nil {
		return Page{}, fmt.Errorf("list %s: %w", set, err)
	}
	if len(ids) == 0 {
		return Page{IDs: []string{}}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyOf(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return Page{}, fmt.Errorf("load documents of %s: %w", set, err)
	}

	type hit struct {
		id    string
		score int
	}
	hits := make([]hit, 0, len(ids))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		s, err := score([]byte(raw))
		if err != nil {
			return Page{}, fmt.Errorf("decode document %s: %w", ids[i], err)
		}
		if s > 0 {
			hits = append(hits, hit{id: ids[i], score: s})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})

	start := q.offset()
	if start >= len(hits) {
		return Page{IDs: []string{}}, nil
	}
	end := start + PageSize + 1
	if end > len(hits) {
		end = len(hits)
	}
	out := make([]string, 0, end-start)
	for _, h := range hits[start:end] {
		out = append(out, h.id)
	}
	return paginate(out, q), nil
}
