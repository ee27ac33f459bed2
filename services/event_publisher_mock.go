package services

import (
	"context"
	"sync"
)

// PublishedEvent is an event captured by MockEventPublisher
type PublishedEvent struct {
	Queue string
	Event interface{}
}

// MockEventPublisher records published events for testing
type MockEventPublisher struct {
	mu        sync.Mutex
	Events    []PublishedEvent
	PublishFn func(queue string, event interface{}) error
}

// NewMockEventPublisher creates a new mock publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, queue string, event interface{}) error {
	if m.PublishFn != nil {
		if err := m.PublishFn(queue, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{Queue: queue, Event: event})
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// EventsFor returns the events published to queue
func (m *MockEventPublisher) EventsFor(queue string) []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []interface{}
	for _, e := range m.Events {
		if e.Queue == queue {
			events = append(events, e.Event)
		}
	}
	return events
}

// SetAsMockForTesting installs this mock as the global event publisher
func (m *MockEventPublisher) SetAsMockForTesting() {
	SetEventPublisher(m)
}
