// Package events publishes domain events to a RabbitMQ topic exchange.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

const (
	AttemptRecorded   = "attempt.recorded"
	BookmarkAdded     = "bookmark.added"
	BookmarkRemoved   = "bookmark.removed"
	QuestionsUploaded = "questions.uploaded"
	ContentChanged    = "content.changed"
)

// Publisher is what services depend on.
type Publisher interface {
	Publish(eventType string, payload interface{}) error
	Close()
}

// Envelope is the message body on the wire.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt int64       `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// AMQPPublisher routes every event by its type.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

var _ Publisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	log.Printf("[events] publishing to exchange %q", exchange)
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(eventType string, payload interface{}) error {
	body, err := Encode(eventType, payload, time.Now())
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Encode renders the JSON envelope for an event.
func Encode(eventType string, payload interface{}, at time.Time) ([]byte, error) {
	body, err := json.Marshal(Envelope{Type: eventType, OccurredAt: at.UnixMilli(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return body, nil
}

// NopPublisher drops events. Used when RABBITMQ_URI is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) error { return nil }
func (NopPublisher) Close()                             {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{Type: eventType, Payload: payload})
	return nil
}

func (r *Recorder) Close() {}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
