package engine

import (
	"context"
	"log/slog"
)

// Loop is the single-writer event loop in front of an Engine.
//
// Input adapters call Enqueue from any goroutine; Run handles the events one
// at a time, in arrival order, on the calling goroutine.
//
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Loop struct {
	engine *Engine
	queue  *eventQueue
	logger *slog.Logger
}

// NewLoop creates a loop that feeds e.
func NewLoop(e *Engine) *Loop {
	return &Loop{
		engine: e,
		queue:  newEventQueue(),
		logger: e.logger,
	}
}

// Enqueue submits an event. Returns false once the loop has been stopped.
func (l *Loop) Enqueue(ev Event) bool {
	return l.queue.Enqueue(ev)
}

// Len returns the number of events waiting to be handled.
func (l *Loop) Len() int {
	return l.queue.Len()
}

// Run handles events until ctx is cancelled or Stop is called and the queue
// has drained.
//
// An event the engine rejects is logged and the loop continues: the engine
// has already reported it as a Diagnostic and its state is unchanged, so
// there is nothing to retry.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("drag loop starting")

	for {
		ev, ok := l.queue.TryDequeue()
		if ok {
			if err := l.engine.Handle(ev); err != nil {
				l.logger.Warn("event rejected",
					"type", ev.Type,
					"id", ev.ID,
					"error", err,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("drag loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop, so this case keeps firing
			// until the queue drains.
			if l.queue.Len() == 0 && l.closed() {
				l.logger.Info("drag loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns after handling what was already queued.
func (l *Loop) Stop() {
	l.queue.Close()
}

func (l *Loop) closed() bool {
	l.queue.mu.Lock()
	defer l.queue.mu.Unlock()
	return l.queue.closed
}
