package worker

import (
	"context"
	"log/slog"

	audit "riskgate/pkg/platform/audit"
)

// Worker consumes audit events from the publisher inbox, persists them, and
// fans out to delivery sinks. Store and sink failures are logged and skipped;
// the worker only stops when its context does.
type Worker struct {
	store  audit.Store
	sinks  []audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, sinks ...audit.Sink) *Worker {
	return &Worker{store: store, sinks: sinks, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event audit.Event) {
	if w.store != nil {
		if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
			w.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action, "error", err)
		}
	}
	for _, sink := range w.sinks {
		if err := sink.Deliver(ctx, event); err != nil && w.logger != nil {
			w.logger.ErrorContext(ctx, "audit delivery failed",
				"action", event.Action, "error", err)
		}
	}
}
