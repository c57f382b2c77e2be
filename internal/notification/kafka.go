package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"mentorship-backend/config"
)

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer keyed by channel so one user's events stay ordered.
func NewKafkaWriter(cfg config.KafkaConfig, log *zap.Logger) *kafka.Writer {
	errLog := log.Sugar()
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger:  kafka.LoggerFunc(errLog.Errorf),
	}
}

// KafkaSink forwards events to an event bus for other services.
type KafkaSink struct {
	writer MessageWriter
	queue  chan kafka.Message
	done   chan struct{}
	log    *zap.Logger
}

// NewKafkaSink creates a sink with a bounded queue.
func NewKafkaSink(w MessageWriter, queueSize int, log *zap.Logger) *KafkaSink {
	return &KafkaSink{
		writer: w,
		queue:  make(chan kafka.Message, queueSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Deliver queues the event, dropping it when the queue is full.
func (k *KafkaSink) Deliver(channelKey string, ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		k.log.Error("failed to encode event", zap.Error(err))
		return
	}
	msg := kafka.Message{
		Key:   []byte(channelKey),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}
	select {
	case k.queue <- msg:
	default:
		k.log.Warn("kafka queue full, dropping event", zap.String("channel", channelKey))
	}
}

// Run writes queued events until ctx is cancelled, then closes the writer.
func (k *KafkaSink) Run(ctx context.Context) {
	defer close(k.done)
	defer func() {
		if err := k.writer.Close(); err != nil {
			k.log.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		select {
		case msg := <-k.queue:
			if err := k.writer.WriteMessages(ctx, msg); err != nil {
				k.log.Warn("failed to publish event", zap.String("channel", string(msg.Key)), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (k *KafkaSink) Done() <-chan struct{} {
	return k.done
}
