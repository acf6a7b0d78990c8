package service

import "errors"

// Sentinel errors surfaced to callers. Tariff absence and calculator
// failures are not here on purpose: they are recovered locally by the
// force-complete path and never reach the API as failures.
var (
	// ErrConflict: the reservation already has a session, whatever its state.
	ErrConflict = errors.New("session already exists for reservation")
	// ErrWindowViolation: start attempted outside the reserved window, or the
	// window itself is malformed.
	ErrWindowViolation = errors.New("start outside reserved window")
	// ErrNotActive: stop or force-complete attempted on a non-running session.
	ErrNotActive = errors.New("session is not in progress")
	// ErrForbidden: the actor does not control this reservation.
	ErrForbidden = errors.New("actor may not control this session")
	// ErrReservationNotFound: no such reservation in confirmed state.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrSessionNotFound: lookup miss on the violation-checker path.
	ErrSessionNotFound = errors.New("session not found")
)
