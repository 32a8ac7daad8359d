// Package queue provides a Redis list receiver.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/receivers"
	redis "github.com/redis/go-redis/v9"
)

const (
	popTimeout   = time.Second
	errorBackoff = time.Second
)

var ErrQueueRequired = errors.New("queue receiver queue name is required")

// Config describes the Redis server and list to read from.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Message is the JSON document pushed on the list.
type Message struct {
	EventType models.TriggerType `json:"event_type"`
	Data      map[string]any     `json:"data"`
}

// Receiver pops messages with BLPOP and hands each one to the callback.
type Receiver struct {
	config Config

	client   redis.UniversalClient
	callback receivers.Callback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewReceiver(logger *slog.Logger, config Config) (*Receiver, error) {
	if config.Queue == "" {
		return nil, ErrQueueRequired
	}

	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	return &Receiver{
		config: config,
		stopCh: make(chan struct{}),
		now:    time.Now,
		logger: logger.With(
			"module", "queue_receiver",
			"queue", config.Queue,
		),
	}, nil
}

// Start connects to Redis and consumes in a background goroutine until Stop
// or ctx cancellation.
func (r *Receiver) Start(ctx context.Context, callback receivers.Callback) error {
	r.logger.InfoContext(ctx, "Starting queue receiver")
	r.callback = callback

	r.client = redis.NewClient(&redis.Options{
		Addr:     r.config.Addr,
		Password: r.config.Password,
		DB:       r.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := r.client.Ping(pingCtx).Err()
	if err != nil {
		_ = r.client.Close()
		r.client = nil

		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", r.config.Addr, "db", r.config.DB)

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue receiver stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue receiver")

			return
		default:
			err := r.processMessage(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)

				select {
				case <-time.After(errorBackoff):
				case <-r.stopCh:
				case <-ctx.Done():
				}
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, popTimeout, r.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	triggerType, data := ParseMessage(result[1], r.now())
	r.logger.DebugContext(ctx, "Received message from queue", "trigger_type", triggerType)

	err = r.callback(ctx, triggerType, data)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error dispatching queued event", "trigger_type", triggerType, "error", err)
	}

	return nil
}

// ParseMessage decodes a queued payload. Anything that is not a Message with
// an event type becomes a custom event carrying the raw text.
func ParseMessage(raw string, now time.Time) (models.TriggerType, map[string]any) {
	var msg Message

	err := json.Unmarshal([]byte(raw), &msg)
	if err != nil || msg.EventType == "" {
		return models.TriggerCustom, map[string]any{
			"message":   raw,
			"timestamp": now.UTC().Format(time.RFC3339),
		}
	}

	if msg.Data == nil {
		msg.Data = map[string]any{}
	}

	return msg.EventType, msg.Data
}

// Stop ends the consumer loop and closes the client.
func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}

	r.wg.Wait()

	if r.client != nil {
		err := r.client.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
