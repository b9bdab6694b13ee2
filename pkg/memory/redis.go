package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

// RedisSessionService stores thread history as a Redis list of JSON
// messages, refreshing the TTL on every write. Use it when serving
// over HTTP where threads must survive process restarts.
type RedisSessionService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionService(cfg *config.MemoryConfig) (*RedisSessionService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisSessionService{
		client: client,
		ttl:    time.Duration(cfg.TTL) * time.Second,
	}, nil
}

func threadKey(threadID string) string {
	return "biomed:thread:" + threadID
}

func (s *RedisSessionService) AddMessage(ctx context.Context, threadID string, msg *protocol.Message) error {
	if threadID == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := threadKey(threadID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *RedisSessionService) GetMessages(ctx context.Context, threadID string) ([]*protocol.Message, error) {
	raw, err := s.client.LRange(ctx, threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read thread history: %w", err)
	}

	messages := make([]*protocol.Message, 0, len(raw))
	for _, item := range raw {
		var msg protocol.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("corrupt message in thread %s: %w", threadID, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

func (s *RedisSessionService) ClearThread(ctx context.Context, threadID string) error {
	return s.client.Del(ctx, threadKey(threadID)).Err()
}

func (s *RedisSessionService) Close() error {
	return s.client.Close()
}
