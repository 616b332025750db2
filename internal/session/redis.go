package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/health-intelligence-engine/internal/domain"
)

const defaultKeyPrefix = "hie:conversation:"

// RedisConversationStore keeps each conversation as a Redis list. Appends and
// the trim to cap run in one MULTI/EXEC transaction.
type RedisConversationStore struct {
	client    *redis.Client
	keyPrefix string
	cap       int
	ttl       time.Duration
}

// NewRedisConversationStore wraps an existing client. A ttl of zero keeps
// conversations until they are cleared.
func NewRedisConversationStore(client *redis.Client, keyPrefix string, cap int, ttl time.Duration) *RedisConversationStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if cap <= 0 {
		cap = DefaultConversationCap
	}
	return &RedisConversationStore{
		client:    client,
		keyPrefix: keyPrefix,
		cap:       cap,
		ttl:       ttl,
	}
}

// NewRedisConversationStoreFromURL connects to Redis and verifies the connection.
func NewRedisConversationStoreFromURL(ctx context.Context, redisURL, keyPrefix string, cap int, ttl time.Duration) (*RedisConversationStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisConversationStore(client, keyPrefix, cap, ttl), nil
}

func (s *RedisConversationStore) key(conversationID string) string {
	return s.keyPrefix + conversationID
}

// Append pushes messages and trims the list to the cap.
func (s *RedisConversationStore) Append(ctx context.Context, conversationID string, messages ...domain.Message) error {
	if conversationID == "" {
		return domain.NewInvalidInputError("conversation id is required",
			domain.NewValidationError("conversation_id", "must not be empty", conversationID))
	}
	if len(messages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := s.key(conversationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.cap), -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append conversation: %w", err)
	}
	return nil
}

// History returns the stored messages, oldest first.
func (s *RedisConversationStore) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	values, err := s.client.LRange(ctx, s.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}

	messages := make([]domain.Message, 0, len(values))
	for _, v := range values {
		var m domain.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Clear deletes the conversation.
func (s *RedisConversationStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisConversationStore) Close() error {
	return s.client.Close()
}
