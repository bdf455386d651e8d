package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const writeTimeout = 5 * time.Second

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// KafkaPublisher queues messages in memory and writes them from a single goroutine.
type KafkaPublisher struct {
	w        Writer
	producer string
	log      *slog.Logger

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewKafkaPublisher(w Writer, producer string, buf int, log *slog.Logger) *KafkaPublisher {
	if buf <= 0 {
		buf = 256
	}
	p := &KafkaPublisher{
		w:        w,
		producer: producer,
		log:      log.With("component", "events"),
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := p.w.WriteMessages(ctx, m); err != nil {
			p.log.Warn("event_write_failed", "topic", m.Topic, "key", string(m.Key), "error", err)
		}
		cancel()
	}
	if err := p.w.Close(); err != nil {
		p.log.Warn("event_writer_close_failed", "error", err)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, payload any) {
	l := logging.FromContext(ctx)

	env, err := newEnvelope(ctx, p.producer, eventType, payload)
	if err != nil {
		l.Warn("event_marshal_failed", "event_type", eventType, "error", err)
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		l.Warn("event_marshal_failed", "event_type", eventType, "error", err)
		return
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		l.Warn("event_dropped", "event_type", eventType, "reason", "publisher closed")
		return
	}
	select {
	case p.inbox <- msg:
	default:
		l.Warn("event_dropped", "event_type", eventType, "reason", "queue full")
	}
}

// Close flushes queued messages and waits for the writer goroutine to exit.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
