package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	// ErrProducerClosed is returned when producing on a closed producer.
	ErrProducerClosed = errors.New("kafka: producer is closed")
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON messages to a single topic with retries.
type Producer struct {
	writer messageWriter
	topic  string
	retry  retryPolicy
	logger *slog.Logger
	closed atomic.Bool

	produced atomic.Int64
	failures atomic.Int64
	retries  atomic.Int64

	mu            sync.Mutex
	lastError     string
	lastErrorTime time.Time
}

type retryPolicy struct {
	maxRetries int
	backoff    time.Duration
}

// NewProducer creates a producer for config.Topic.
func NewProducer(config *Config, logger *slog.Logger) (*Producer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dialer, err := config.GetDialer()
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: config.BatchTimeout,
		MaxAttempts:  1,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		Compression:  config.GetCompression(),
		Transport: &kafka.Transport{
			Dial: dialer.DialFunc,
			TLS:  dialer.TLS,
			SASL: dialer.SASLMechanism,
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer")
		}),
	}

	logger.Info("kafka producer initialized",
		"brokers", config.Brokers,
		"topic", config.Topic,
		"compression", config.CompressionType,
	)

	return newProducer(writer, config, logger), nil
}

func newProducer(w messageWriter, config *Config, logger *slog.Logger) *Producer {
	return &Producer{
		writer: w,
		topic:  config.Topic,
		retry:  retryPolicy{maxRetries: config.MaxRetries, backoff: config.RetryBackoff},
		logger: logger.With("topic", config.Topic),
	}
}

// ProduceJSON marshals value to JSON and writes it under key. Messages with
// the same key land on the same partition, so changes to one definition
// stay ordered.
func (p *Producer) ProduceJSON(ctx context.Context, key string, value any) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal message: %w", err)
	}

	return p.write(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	var lastErr error
	backoff := p.retry.backoff

	for attempt := 0; attempt <= p.retry.maxRetries; attempt++ {
		if attempt > 0 {
			p.retries.Add(1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := p.writer.WriteMessages(ctx, msg)
		if err == nil {
			p.produced.Add(1)
			p.logger.Debug("produced message", "key", string(msg.Key), "bytes", len(msg.Value))
			return nil
		}

		lastErr = err
		p.recordError(err)
		p.logger.Warn("kafka produce failed",
			"error", err,
			"attempt", attempt+1,
			"max_attempts", p.retry.maxRetries+1,
		)

		if isNonRetryableError(err) {
			return fmt.Errorf("kafka: non-retryable error: %w", err)
		}
	}

	return fmt.Errorf("kafka: failed after %d attempts: %w", p.retry.maxRetries+1, lastErr)
}

func (p *Producer) recordError(err error) {
	p.failures.Add(1)
	p.mu.Lock()
	p.lastError = err.Error()
	p.lastErrorTime = time.Now()
	p.mu.Unlock()
}

// Stats returns the producer counters.
func (p *Producer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		MessagesProduced: p.produced.Load(),
		Errors:           p.failures.Load(),
		Retries:          p.retries.Load(),
		LastError:        p.lastError,
		LastErrorTime:    p.lastErrorTime,
	}
}

// Close flushes buffered messages and closes the writer.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.logger.Info("closing kafka producer", "messages_produced", p.produced.Load())

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close producer: %w", err)
	}
	return nil
}

func isNonRetryableError(err error) bool {
	switch {
	case errors.Is(err, kafka.MessageSizeTooLarge),
		errors.Is(err, kafka.InvalidTopic),
		errors.Is(err, kafka.TopicAuthorizationFailed),
		errors.Is(err, kafka.ClusterAuthorizationFailed):
		return true
	}
	return false
}
