// Package notify delivers push notifications to device tokens.
//
// Delivery is best effort: each Send makes at most one attempt per token and
// never retries. Callers decide whether a failure matters.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTokens is returned when a message has nothing to deliver to.
var ErrNoTokens = errors.New("message has no delivery tokens")

// Message is a notification fanned out to every token.
type Message struct {
	Title  string
	Body   string
	Data   map[string]string
	Tokens []string
}

// Result reports how a fan-out went.
type Result struct {
	Sent   int
	Failed int
}

// Dispatcher sends a message to all of its tokens.
// Send returns an error when nothing could be delivered; partial failures are
// reported through Result.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// Driver names accepted by New.
const (
	DriverLog  = "log"
	DriverFCM  = "fcm"
	DriverAMQP = "amqp"
)

// Config selects and configures a dispatcher.
type Config struct {
	Driver string

	FCMProjectID       string
	FCMCredentialsFile string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// New builds the dispatcher named by cfg.Driver. The returned close function
// releases any connection the dispatcher holds and is always non-nil.
func New(ctx context.Context, cfg Config) (Dispatcher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", DriverLog:
		return NewLogDispatcher(nil), noop, nil
	case DriverFCM:
		d, err := NewFCMDispatcher(ctx, cfg.FCMProjectID, FCMCredentialsFile(cfg.FCMCredentialsFile))
		if err != nil {
			return nil, noop, err
		}
		return d, noop, nil
	case DriverAMQP:
		d, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, noop, err
		}
		return d, d.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown notifier driver %q", cfg.Driver)
	}
}
