package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kendall-kelly/hostel-management-api/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// Queues that domain events are published to
const (
	QueueComplaintCreated   = "complaint.created"
	QueueComplaintResolved  = "complaint.resolved"
	QueueStudentRoomChanged = "student.room_changed"
)

var eventQueues = []string{QueueComplaintCreated, QueueComplaintResolved, QueueStudentRoomChanged}

// ComplaintCreatedEvent is published when a user files a complaint
type ComplaintCreatedEvent struct {
	ComplaintID uint      `json:"complaintId"`
	UserID      uint      `json:"userId"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	HasImage    bool      `json:"hasImage"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ComplaintResolvedEvent is published when staff resolve a complaint
type ComplaintResolvedEvent struct {
	ComplaintID uint      `json:"complaintId"`
	UserID      uint      `json:"userId"`
	ResolvedBy  uint      `json:"resolvedBy"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// StudentRoomChangedEvent is published whenever the ledger moves a student
type StudentRoomChangedEvent struct {
	StudentID  uint      `json:"studentId"`
	FromRoomID *uint     `json:"fromRoomId"`
	ToRoomID   *uint     `json:"toRoomId"`
	ChangedAt  time.Time `json:"changedAt"`
}

// EventPublisher delivers domain events to a named queue
type EventPublisher interface {
	Publish(ctx context.Context, queue string, event interface{}) error
	Close() error
}

// RabbitMQPublisher publishes JSON events to durable queues on the default
// exchange. A channel is not safe for concurrent use, so publishes are
// serialized.
type RabbitMQPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	cb   *gobreaker.CircuitBreaker
}

// NewRabbitMQPublisher dials url and declares every event queue
func NewRabbitMQPublisher(url string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range eventQueues {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	return &RabbitMQPublisher{
		conn: conn,
		ch:   ch,
		cb:   config.NewCircuitBreaker("RabbitMQ-Publisher"),
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return nil, p.ch.PublishWithContext(ctx,
			"",    // default exchange
			queue, // routing key == queue name
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			},
		)
	})
	return err
}

func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, queue string, event interface{}) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

var eventPublisher EventPublisher

// InitEventPublisher connects to RabbitMQ when url is set. A broker that
// cannot be reached leaves the API running with the no-op publisher.
func InitEventPublisher(url string) EventPublisher {
	if url == "" {
		eventPublisher = NoopPublisher{}
		return eventPublisher
	}

	publisher, err := NewRabbitMQPublisher(url)
	if err != nil {
		config.Warnf("Event publishing disabled: %v", err)
		eventPublisher = NoopPublisher{}
		return eventPublisher
	}

	config.Infof("Publishing domain events to RabbitMQ")
	eventPublisher = publisher
	return eventPublisher
}

// GetEventPublisher returns the global event publisher
func GetEventPublisher() EventPublisher {
	if eventPublisher == nil {
		return NoopPublisher{}
	}
	return eventPublisher
}

// SetEventPublisher sets the global event publisher (primarily for testing)
func SetEventPublisher(publisher EventPublisher) {
	eventPublisher = publisher
}

// PublishEvent hands event to the global publisher. Failures are logged and
// counted but never returned: events must not fail the request that caused them.
func PublishEvent(ctx context.Context, queue string, event interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := GetEventPublisher().Publish(ctx, queue, event); err != nil {
		eventsPublished.WithLabelValues(queue, "error").Inc()
		config.Warnf("Failed to publish %s event: %v", queue, err)
		return
	}
	eventsPublished.WithLabelValues(queue, "ok").Inc()
}

// PublishRoomChange publishes a StudentRoomChangedEvent when the move changed
// the student's room
func PublishRoomChange(ctx context.Context, move RoomMove) {
	if !move.Changed() {
		return
	}
	PublishEvent(ctx, QueueStudentRoomChanged, StudentRoomChangedEvent{
		StudentID:  move.StudentID,
		FromRoomID: move.From,
		ToRoomID:   move.To,
		ChangedAt:  time.Now().UTC(),
	})
}
