// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for round action logs.
var DefaultQueueName = "blackjack_actions"

// RoundActionRecord holds the minimal info needed by the historian to replay a round.
// RoundID is unique per deal; TableID is the table the deal was played on.
type RoundActionRecord struct {
	RoundID       uuid.UUID              `json:"round_id"`
	TableID       uuid.UUID              `json:"table_id"`
	ActionIndex   int                    `json:"action_index"`
	PlayerName    string                 `json:"player_name,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Queue is a Redis list carrying RoundActionRecords from the game server to the historian.
type Queue struct {
	client *redis.Client
	name   string
}

// NewQueue wraps client. An empty name reads HISTORIAN_QUEUE_NAME, falling back to DefaultQueueName.
func NewQueue(client *redis.Client, name string) *Queue {
	if name == "" {
		name = getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	}
	return &Queue{client: client, name: name}
}

func (q *Queue) Name() string {
	return q.name
}

// PublishRoundAction serializes the record to JSON and pushes it to the tail of the queue.
func (q *Queue) PublishRoundAction(ctx context.Context, record RoundActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundActionRecord: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// PopRoundAction blocks up to timeout for the head of the queue.
// It returns (nil, nil) when the timeout elapses with nothing queued.
func (q *Queue) PopRoundAction(ctx context.Context, timeout time.Duration) (*RoundActionRecord, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return DecodeRoundAction([]byte(res[1]))
}

// DecodeRoundAction parses a queued payload.
func DecodeRoundAction(data []byte) (*RoundActionRecord, error) {
	var rec RoundActionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &rec, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
