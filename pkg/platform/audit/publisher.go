package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher decouples decision logic from audit persistence. Publish is
// non-blocking: when the buffer is full the event is dropped and counted,
// because an audit stall must never delay or change a decision.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	dropped func()
}

type PublisherOption func(*Publisher)

func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithDropCallback observes dropped events, typically wired to a counter.
func WithDropCallback(fn func()) PublisherOption {
	return func(p *Publisher) { p.dropped = fn }
}

func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{inbox: make(chan Event, buffer)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues an event, stamping the time if unset.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped",
				"action", event.Action, "tenant_id", event.TenantID)
		}
	}
}

// Inbox exposes the event channel for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }
