package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/inboxpilot/warmup-backend/internal/service"
)

// DispatchJob is the wire payload on the RabbitMQ dispatch queue.
type DispatchJob struct {
	EmailID int `json:"email_id"`
}

// AMQPSink publishes dispatch jobs to RabbitMQ for the worker deployment.
type AMQPSink struct {
	Channel *amqp.Channel
	Name    string
}

// NewAMQPSink declares the durable dispatch queue on the given connection.
func NewAMQPSink(conn *amqp.Connection) (*AMQPSink, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		TopicDispatch, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPSink{Channel: ch, Name: q.Name}, nil
}

func (s *AMQPSink) Enqueue(emailID int) error {
	body, err := json.Marshal(DispatchJob{EmailID: emailID})
	if err != nil {
		return err
	}

	return s.Channel.Publish(
		"",     // exchange
		s.Name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

var _ service.DispatchSink = (*AMQPSink)(nil)
