package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/inboxpilot/warmup-backend/internal/logging"
	"github.com/inboxpilot/warmup-backend/internal/service"
)

// TopicDispatch carries the IDs of pending emails awaiting a send attempt.
const TopicDispatch = "warmup_dispatch"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is the in-process pub/sub used in single-binary mode.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// Publish hands a message to all subscribers, each in its own goroutine.
// Retry policy lives with the handlers, not the queue; the dispatch path in
// particular bounds its retry to a single token refresh.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go func(handler func(payload any) error) {
			if err := handler(payload); err != nil {
				logging.Warn().Str("topic", topic).Err(err).Msg("queue handler failed")
			}
		}(handler)
	}
	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Sink adapts a Queue to the processor's dispatch sink.
type Sink struct {
	Queue Queue
	Topic string
}

func (s *Sink) Enqueue(emailID int) error {
	return s.Queue.Publish(s.Topic, emailID)
}

var _ service.DispatchSink = (*Sink)(nil)

// StartDispatchSubscriber wires the dispatcher onto the dispatch topic.
func StartDispatchSubscriber(ctx context.Context, q Queue, d *service.Dispatcher) error {
	return q.Subscribe(TopicDispatch, func(payload any) error {
		emailID, ok := payload.(int)
		if !ok {
			logging.Warn().Msgf("invalid dispatch payload type %T", payload)
			return nil
		}

		outcome, err := d.DispatchByID(ctx, emailID)
		if err != nil {
			return err
		}
		if outcome != "" {
			logging.Debug().Int("email_id", emailID).Str("outcome", outcome).Msg("dispatch finished")
		}
		return nil
	})
}
