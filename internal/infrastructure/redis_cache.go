package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConversationCache keeps the recent SMS exchange per user so the agent can
// carry short-lived context between texts without a database round trip.
type ConversationCache interface {
	Append(ctx context.Context, userID int, role, content string) error
	Recent(ctx context.Context, userID int) ([]CachedTurn, error)
	Clear(ctx context.Context, userID int) error
}

type CachedTurn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

const conversationWindow = 20

type RedisConversationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisConversationCache(rdb *redis.Client, ttl time.Duration) *RedisConversationCache {
	return &RedisConversationCache{rdb: rdb, ttl: ttl}
}

func convKey(userID int) string {
	return fmt.Sprintf("conv:%d", userID)
}

func (c *RedisConversationCache) Append(ctx context.Context, userID int, role, content string) error {
	b, err := json.Marshal(CachedTurn{Role: role, Content: content, At: time.Now().UTC()})
	if err != nil {
		return err
	}

	key := convKey(userID)
	pipe := c.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.LTrim(ctx, key, -conversationWindow, -1)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisConversationCache) Recent(ctx context.Context, userID int) ([]CachedTurn, error) {
	raw, err := c.rdb.LRange(ctx, convKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]CachedTurn, 0, len(raw))
	for _, item := range raw {
		var t CachedTurn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("corrupt cached turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (c *RedisConversationCache) Clear(ctx context.Context, userID int) error {
	return c.rdb.Del(ctx, convKey(userID)).Err()
}

// NoopConversationCache is used when REDIS_ADDR is unset; every text starts
// a fresh conversation.
type NoopConversationCache struct{}

func (NoopConversationCache) Append(context.Context, int, string, string) error { return nil }
func (NoopConversationCache) Recent(context.Context, int) ([]CachedTurn, error) { return nil, nil }
func (NoopConversationCache) Clear(context.Context, int) error                  { return nil }
