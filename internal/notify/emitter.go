// Package notify delivers lifecycle events to the notification collaborator.
// Emission is fire-and-forget: the session transition has already committed
// by the time an event is queued, and delivery failure is logged, never
// propagated.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Sender delivers a single event.
type Sender interface {
	SendEvent(ctx context.Context, ev Event) error
}

// Emitter fans events out to worker goroutines over a buffered channel.
type Emitter struct {
	events  chan Event
	sender  Sender
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewEmitter builds an emitter with the given worker count and queue size.
func NewEmitter(sender Sender, workers, queueSize int, logger *zap.Logger) *Emitter {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Emitter{
		events:  make(chan Event, queueSize),
		sender:  sender,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers; they drain until ctx is done.
func (e *Emitter) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
}

// Emit queues an event without blocking. A full queue drops the event with a
// warning; notifications are best-effort.
func (e *Emitter) Emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("notification queue full, dropping event",
			zap.String("kind", ev.Kind),
			zap.String("session_id", ev.SessionID),
		)
	}
}

// Wait blocks until all workers have exited.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			if err := e.sender.SendEvent(sendCtx, ev); err != nil {
				e.logger.Warn("failed to deliver notification event",
					zap.String("kind", ev.Kind),
					zap.String("session_id", ev.SessionID),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}
