package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chargehub/internal/service"
)

type stopCall struct {
	sessionID string
	cached    *float64
	at        time.Time
}

type fakeController struct {
	mu       sync.Mutex
	stopErr  error
	forceErr error
	stops    chan stopCall
	forces   chan stopCall
}

func newFakeController() *fakeController {
	return &fakeController{
		stops:  make(chan stopCall, 4),
		forces: make(chan stopCall, 4),
	}
}

func (f *fakeController) StopBySystem(ctx context.Context, sessionID string, cached *float64, at time.Time) error {
	f.stops <- stopCall{sessionID: sessionID, cached: cached, at: at}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopErr
}

func (f *fakeController) ForceCompleteWithoutBilling(ctx context.Context, sessionID string, at time.Time) error {
	f.forces <- stopCall{sessionID: sessionID, at: at}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forceErr
}

type fakeReader struct {
	mu     sync.Mutex
	values map[string]float64
}

func (f *fakeReader) Get(sessionID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[sessionID]
	return v, ok
}

func waitForCall(t *testing.T, ch <-chan stopCall) stopCall {
	t.Helper()
	select {
	case call := <-ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for controller call")
		return stopCall{}
	}
}

func assertNoCall(t *testing.T, ch <-chan stopCall) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected controller call")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestArmFiresWithCachedPercent(t *testing.T) {
	ctrl := newFakeController()
	reader := &fakeReader{values: map[string]float64{"sess-1": 42}}
	sched := NewAutoStop(reader, zap.NewNop())
	defer sched.Shutdown()
	sched.Bind(ctrl)

	at := time.Now().Add(10 * time.Millisecond)
	sched.Arm("sess-1", at)

	call := waitForCall(t, ctrl.stops)
	assert.Equal(t, "sess-1", call.sessionID)
	assert.Equal(t, at, call.at)
	require.NotNil(t, call.cached)
	assert.Equal(t, 42.0, *call.cached)
	assertNoCall(t, ctrl.forces)
}

func TestArmPastInstantFiresImmediately(t *testing.T) {
	ctrl := newFakeController()
	sched := NewAutoStop(&fakeReader{}, zap.NewNop())
	defer sched.Shutdown()
	sched.Bind(ctrl)

	at := time.Now().Add(-time.Hour)
	sched.Arm("sess-1", at)

	call := waitForCall(t, ctrl.stops)
	assert.Equal(t, at, call.at)
	assert.Nil(t, call.cached)
}

func TestArmIsIdempotentPerSession(t *testing.T) {
	ctrl := newFakeController()
	sched := NewAutoStop(&fakeReader{}, zap.NewNop())
	defer sched.Shutdown()
	sched.Bind(ctrl)

	at := time.Now().Add(10 * time.Millisecond)
	sched.Arm("sess-1", at)
	sched.Arm("sess-1", at.Add(time.Hour))

	waitForCall(t, ctrl.stops)
	assertNoCall(t, ctrl.stops)
}

func TestFireNotActiveIsNoOp(t *testing.T) {
	ctrl := newFakeController()
	ctrl.stopErr = service.ErrNotActive
	sched := NewAutoStop(&fakeReader{}, zap.NewNop())
	defer sched.Shutdown()
	sched.Bind(ctrl)

	sched.Arm("sess-1", time.Now())

	waitForCall(t, ctrl.stops)
	assertNoCall(t, ctrl.forces)
}

func TestFireFailureForcesCompletion(t *testing.T) {
	ctrl := newFakeController()
	ctrl.stopErr = errors.New("tariff backend down")
	sched := NewAutoStop(&fakeReader{}, zap.NewNop())
	defer sched.Shutdown()
	sched.Bind(ctrl)

	at := time.Now()
	sched.Arm("sess-1", at)

	waitForCall(t, ctrl.stops)
	call := waitForCall(t, ctrl.forces)
	assert.Equal(t, "sess-1", call.sessionID)
	assert.Equal(t, at, call.at)
}

func TestShutdownCancelsPendingTimers(t *testing.T) {
	ctrl := newFakeController()
	sched := NewAutoStop(&fakeReader{}, zap.NewNop())
	sched.Bind(ctrl)

	sched.Arm("sess-1", time.Now().Add(30*time.Millisecond))
	sched.Shutdown()

	assertNoCall(t, ctrl.stops)

	// Arming after shutdown is ignored.
	sched.Arm("sess-2", time.Now())
	assertNoCall(t, ctrl.stops)
}
