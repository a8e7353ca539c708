package position

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key layout for position records
const (
	// Format: patterntrader:position:{symbol}
	PositionKeyPrefix = "patterntrader:position"
	// ClosedListKey holds JSON of recently closed positions, newest first
	ClosedListKey = "patterntrader:positions:closed"

	closedListMax = 500
	closedTTL     = 30 * 24 * time.Hour
)

// RedisStore keeps open positions as JSON values, one key per symbol
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(symbol string) string {
	return fmt.Sprintf("%s:%s", PositionKeyPrefix, symbol)
}

// SavePosition writes an open record, or archives a closed one and removes its key.
func (s *RedisStore) SavePosition(ctx context.Context, p Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal position %s: %w", p.ID, err)
	}

	if p.Status == StatusOpen {
		if err := s.client.Set(ctx, s.key(p.Symbol), data, 0).Err(); err != nil {
			return fmt.Errorf("save position %s: %w", p.Symbol, err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(p.Symbol))
	pipe.LPush(ctx, ClosedListKey, data)
	pipe.LTrim(ctx, ClosedListKey, 0, closedListMax-1)
	pipe.Expire(ctx, ClosedListKey, closedTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive position %s: %w", p.Symbol, err)
	}
	return nil
}

// LoadOpenPositions scans all position keys.
func (s *RedisStore) LoadOpenPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	iter := s.client.Scan(ctx, 0, PositionKeyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		var p Position
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", strings.TrimPrefix(key, PositionKeyPrefix+":"), err)
		}
		positions = append(positions, p)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan positions: %w", err)
	}
	return positions, nil
}

// RecentClosed returns up to n archived positions, newest first.
func (s *RedisStore) RecentClosed(ctx context.Context, n int64) ([]Position, error) {
	raw, err := s.client.LRange(ctx, ClosedListKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read closed positions: %w", err)
	}
	out := make([]Position, 0, len(raw))
	for _, item := range raw {
		var p Position
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("decode closed position: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}
