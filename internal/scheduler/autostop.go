// Package scheduler arms the deferred auto-stop that terminates a session
// when its reservation window ends. Timers are one-shot and never cancelled
// per session: a stale timer finds the session already completed and is a
// no-op.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chargehub/internal/service"
)

const fireTimeout = 30 * time.Second

// SessionController is the stop surface the scheduler drives.
type SessionController interface {
	StopBySystem(ctx context.Context, sessionID string, cachedPercent *float64, at time.Time) error
	ForceCompleteWithoutBilling(ctx context.Context, sessionID string, at time.Time) error
}

// ChargeReader reads the last cached battery percentage.
type ChargeReader interface {
	Get(sessionID string) (float64, bool)
}

// AutoStop keeps one-shot timers keyed by session id. Each fired timer runs
// in its own goroutine with a fresh context, isolated from the scope that
// armed it.
type AutoStop struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	ctrl    SessionController
	cache   ChargeReader
	logger  *zap.Logger
	stopped bool
}

// NewAutoStop builds an unbound scheduler; Bind must be called before the
// first timer can fire usefully.
func NewAutoStop(cache ChargeReader, logger *zap.Logger) *AutoStop {
	return &AutoStop{
		timers: make(map[string]*time.Timer),
		cache:  cache,
		logger: logger,
	}
}

// Bind attaches the controller. Separate from construction because the
// controller and the scheduler reference each other.
func (a *AutoStop) Bind(ctrl SessionController) {
	a.mu.Lock()
	a.ctrl = ctrl
	a.mu.Unlock()
}

// Arm schedules a stop at the given instant. Instants already past fire
// immediately. Re-arming an armed session is a no-op.
func (a *AutoStop) Arm(sessionID string, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	if _, exists := a.timers[sessionID]; exists {
		return
	}
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	a.timers[sessionID] = time.AfterFunc(delay, func() {
		a.fire(sessionID, at)
	})
}

// Shutdown stops all pending timers.
func (a *AutoStop) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	for id, timer := range a.timers {
		timer.Stop()
		delete(a.timers, id)
	}
}

func (a *AutoStop) fire(sessionID string, at time.Time) {
	a.mu.Lock()
	delete(a.timers, sessionID)
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		a.logger.Error("auto-stop fired before controller was bound", zap.String("session_id", sessionID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	var cached *float64
	if v, ok := a.cache.Get(sessionID); ok {
		cached = &v
	}

	err := ctrl.StopBySystem(ctx, sessionID, cached, at)
	if err == nil {
		return
	}
	if errors.Is(err, service.ErrNotActive) {
		// Another initiator won the race; nothing to do.
		return
	}

	a.logger.Error("auto-stop failed, forcing completion without billing",
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	forceCtx, forceCancel := context.WithTimeout(context.Background(), fireTimeout)
	defer forceCancel()
	if err := ctrl.ForceCompleteWithoutBilling(forceCtx, sessionID, at); err != nil && !errors.Is(err, service.ErrNotActive) {
		a.logger.Error("force-complete failed, session left for manual recovery",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
