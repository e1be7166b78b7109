package dispatch

import (
	"context"
	"fmt"
	"time"
)

// State is a step of the translation request state machine.
type State int

const (
	StateIdle State = iota
	StateAwaitingReference
	StateValidating
	StateTranslating
	StateDelivering
	StateDone
	StateErrorReported
	// StateIgnored is returned for messages that are not translation commands.
	StateIgnored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReference:
		return "awaiting_reference"
	case StateValidating:
		return "validating"
	case StateTranslating:
		return "translating"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateErrorReported:
		return "error_reported"
	case StateIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Delivery is where a translation was posted.
type Delivery int

const (
	DeliveryNone Delivery = iota
	DeliveryThread
	DeliveryChannel
)

func (d Delivery) String() string {
	switch d {
	case DeliveryThread:
		return "thread"
	case DeliveryChannel:
		return "channel"
	default:
		return "none"
	}
}

// Event summarizes one finished request.
type Event struct {
	RequestID    string
	Time         time.Time
	Duration     time.Duration
	GuildID      string
	ChannelID    string
	AuthorID     string
	Language     string
	State        State
	Delivery     Delivery
	ThreadID     string
	Outcome      string
	Chunks       int
	SourceLength int
	Detail       string
}

// Observer receives an Event after each request reaches a terminal state.
// Observers must not block for long; their errors are logged and ignored.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc func(ctx context.Context, ev Event) error

func (fn ObserverFunc) Observe(ctx context.Context, ev Event) error {
	return fn(ctx, ev)
}
