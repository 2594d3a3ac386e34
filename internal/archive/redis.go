package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/park285/Cheese-LocalChess/internal/domain"
)

const (
	keyResults = "chess:results"
	keyTally   = "chess:results:tally"
	keySeenFmt = "chess:results:seen:%s"
)

// RedisStore keeps the newest results in a capped list plus a tally per score.
type RedisStore struct {
	rdb   *redis.Client
	limit int64
}

func NewRedisStore(rdb *redis.Client, limit int) *RedisStore {
	if limit <= 0 {
		limit = 200
	}
	return &RedisStore{rdb: rdb, limit: int64(limit)}
}

// OpenRedis dials REDIS_URL (redis://[:password@]host:port/db) and pings it.
func OpenRedis(ctx context.Context, rawURL string, limit int) (*RedisStore, error) {
	opts, err := ParseRedisURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(rdb, limit), nil
}

func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing redis host")
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func (s *RedisStore) Save(ctx context.Context, game domain.FinishedGame) error {
	raw, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal finished game: %w", err)
	}
	fresh, err := s.rdb.SetNX(ctx, fmt.Sprintf(keySeenFmt, game.ID), 1, 0).Result()
	if err != nil {
		return fmt.Errorf("mark finished game: %w", err)
	}
	if !fresh {
		return ErrDuplicateGame
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, keyResults, raw)
		pipe.LTrim(ctx, keyResults, 0, s.limit-1)
		pipe.HIncrBy(ctx, keyTally, game.Result, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive finished game: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]domain.FinishedGame, error) {
	limit = normalizeLimit(limit)
	items, err := s.rdb.LRange(ctx, keyResults, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	out := make([]domain.FinishedGame, 0, len(items))
	for _, item := range items {
		var g domain.FinishedGame
		if err := json.Unmarshal([]byte(item), &g); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Tally returns how many games ended with each score ("1-0", "0-1", "1/2-1/2").
func (s *RedisStore) Tally(ctx context.Context) (map[string]int64, error) {
	raw, err := s.rdb.HGetAll(ctx, keyTally).Result()
	if err != nil {
		return nil, fmt.Errorf("read tally: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tally %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
