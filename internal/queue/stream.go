package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// InboundMessage is one client frame together with the model selection of its connection.
type InboundMessage struct {
	ConnID            string    `json:"conn_id"`
	Payload           string    `json:"payload"`
	ChatProvider      string    `json:"chat_provider"`
	ChatModel         string    `json:"chat_model"`
	EmbeddingProvider string    `json:"embedding_provider"`
	EmbeddingModel    string    `json:"embedding_model"`
	ReceivedAt        time.Time `json:"received_at"`

	// Set for custom_openai sessions. ChatAPIKey is sealed with the master keyring.
	ChatBaseURL string `json:"chat_base_url,omitempty"`
	ChatAPIKey  string `json:"chat_api_key,omitempty"`
}

type StreamQueue struct {
	redis    *redis.Client
	stream   string
	group    string
	consumer string
	block    time.Duration
	maxLen   int64
}

type Message struct {
	ID      string
	Inbound InboundMessage
}

type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
	MaxLen   int64
}

func NewStreamQueue(rdb *redis.Client, cfg StreamConfig) *StreamQueue {
	return &StreamQueue{
		redis:    rdb,
		stream:   cfg.Stream,
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    cfg.Block,
		maxLen:   cfg.MaxLen,
	}
}

func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	if q == nil {
		return fmt.Errorf("queue is nil")
	}
	err := q.redis.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create stream group: %w", err)
	}
	return nil
}

func (q *StreamQueue) Publish(ctx context.Context, msg InboundMessage) (string, error) {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal inbound message: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{"payload": payload},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}
	id, err := q.redis.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return id, nil
}

func (q *StreamQueue) Read(ctx context.Context, count int64) ([]Message, error) {
	res, err := q.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    q.block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	out := make([]Message, 0)
	for _, s := range res {
		for _, m := range s.Messages {
			var b []byte
			switch v := m.Values["payload"].(type) {
			case string:
				b = []byte(v)
			case []byte:
				b = v
			default:
				continue
			}

			var in InboundMessage
			if err := json.Unmarshal(b, &in); err != nil {
				continue
			}
			out = append(out, Message{ID: m.ID, Inbound: in})
		}
	}
	return out, nil
}

func (q *StreamQueue) Ack(ctx context.Context, messageID string) error {
	if err := q.redis.XAck(ctx, q.stream, q.group, messageID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (q *StreamQueue) Stream() string {
	return q.stream
}
