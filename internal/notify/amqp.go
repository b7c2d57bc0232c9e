package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// publisher is the part of *amqp091.Channel the dispatcher needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPDispatcher hands messages to a broker queue; a separate push worker
// performs the actual device delivery. Every token counts as sent once the
// broker accepts the message.
type AMQPDispatcher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	pub          publisher
	exchangeName string
	queueName    string
}

// pushPayload is the JSON document published per message.
type pushPayload struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	Tokens []string          `json:"tokens"`
	SentAt time.Time         `json:"sent_at"`
}

// DialAMQP connects to the broker and declares a durable direct exchange and
// queue bound by the queue name.
func DialAMQP(url, exchangeName, queueName string) (*AMQPDispatcher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	d := &AMQPDispatcher{
		conn:         conn,
		channel:      channel,
		pub:          channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := d.setup(); err != nil {
		d.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return d, nil
}

func (d *AMQPDispatcher) setup() error {
	if err := d.channel.ExchangeDeclare(
		d.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := d.channel.QueueDeclare(
		d.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := d.channel.QueueBind(
		d.queueName,    // queue name
		d.queueName,    // routing key
		d.exchangeName, // exchange
		false,
		nil,
	); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// Send publishes msg as one persistent JSON message.
func (d *AMQPDispatcher) Send(ctx context.Context, msg Message) (Result, error) {
	if len(msg.Tokens) == 0 {
		return Result{}, ErrNoTokens
	}

	body, err := json.Marshal(pushPayload{
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   msg.Data,
		Tokens: msg.Tokens,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = d.pub.PublishWithContext(ctx,
		d.exchangeName, // exchange
		d.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return Result{Failed: len(msg.Tokens)}, fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published push message",
		"exchange", d.exchangeName,
		"queue", d.queueName,
		"tokens", len(msg.Tokens),
	)

	return Result{Sent: len(msg.Tokens)}, nil
}

// Close closes the channel and connection.
func (d *AMQPDispatcher) Close() error {
	if d.channel != nil {
		d.channel.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
