package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/logrelay/logrelay/internal/model"
)

// RedisConfig configures the Redis Streams sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream length approximately; 0 means unbounded.
	MaxLen int64
}

// RedisSink publishes events to a Redis stream via XADD, acting as the
// message-bus destination.
type RedisSink struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisSink creates a Redis Streams sink.
func NewRedisSink(cfg RedisConfig) *RedisSink {
	if cfg.Stream == "" {
		cfg.Stream = "logrelay:events"
	}
	return &RedisSink{cfg: cfg}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Start connects and pings the server.
func (s *RedisSink) Start(ctx context.Context) error {
	s.client = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Addr,
		Password: s.cfg.Password,
		DB:       s.cfg.DB,
	})
	return s.client.Ping(ctx).Err()
}

// Write implements Sink.
func (s *RedisSink) Write(ctx context.Context, ev *model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, s.xAddArgs(ev, payload)).Err()
}

// WriteBatch pipelines one XADD per event, preserving order.
func (s *RedisSink) WriteBatch(ctx context.Context, batch model.Batch) error {
	pipe := s.client.Pipeline()
	for _, ev := range batch {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, s.xAddArgs(ev, payload))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisSink) xAddArgs(ev *model.Event, payload []byte) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: s.cfg.Stream,
		MaxLen: s.cfg.MaxLen,
		Approx: s.cfg.MaxLen > 0,
		Values: map[string]any{
			"id":    ev.ID,
			"level": ev.Level.String(),
			"event": payload,
		},
	}
}

// Stop closes the client. It tolerates a Start that never ran.
func (s *RedisSink) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
