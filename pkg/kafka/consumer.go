package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/segmentio/kafka-go"

	xlogger "EconDash/pkg/logger"
)

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc processes one message payload.
type HandlerFunc func(ctx context.Context, key, value []byte) error

// Consumer reads a single topic and hands each message to a handler. Offsets
// are committed once the handler succeeds or its retries are exhausted.
type Consumer struct {
	cfg    *ConsumerConfig
	topic  string
	reader Reader
	logger *xlogger.Logger
}

// NewConsumer creates a consumer for topic.
func NewConsumer(topic string, logger *xlogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "econdash",
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if logger == nil {
		logger = xlogger.Nop()
	}

	reader := cfg.Reader
	if reader == nil {
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("brokers are required")
		}
		reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}

	return &Consumer{cfg: cfg, topic: topic, reader: reader, logger: logger}, nil
}

// Run consumes until ctx is done. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	c.logger.Info("kafka consumer started", xlogger.String("topic", c.topic))
	defer c.logger.Info("kafka consumer stopped", xlogger.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		if err := c.handle(ctx, msg, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("message dropped",
				xlogger.String("topic", c.topic),
				xlogger.Int64("offset", msg.Offset),
				xlogger.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warn("commit failed", xlogger.String("topic", c.topic), xlogger.Error(err))
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handle HandlerFunc) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(ctx, msg, handle)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Consumer) safeHandle(ctx context.Context, msg kafka.Message, handle HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handle(ctx, msg.Key, msg.Value)
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}
