package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"chargehub/internal/models"
)

// ErrDuplicateSession indicates a session already exists for the reservation.
var ErrDuplicateSession = errors.New("session already exists for reservation")

// ErrSessionNotFound indicates a missing session row.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository returns repository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// WithTx returns a view of the repository bound to the given transaction.
func (r *SessionRepository) WithTx(tx *sql.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

// Create inserts a new IN_PROGRESS session. The UNIQUE constraint on
// reservation_id is the authoritative one-session-per-reservation guard;
// a violation surfaces as ErrDuplicateSession.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO charging_sessions
			(id, reservation_id, status, start_time, initial_percent, final_percent, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.ReservationID,
		session.Status,
		session.StartTime,
		session.InitialPercent,
		session.Currency,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateSession
		}
		return err
	}
	return nil
}

const sessionColumns = `
	id, reservation_id, status, start_time, end_time, initial_percent, final_percent,
	energy_kwh, cost, currency, duration_minutes, stopped_by, billed, created_at, updated_at
`

func scanSession(row *sql.Row) (*models.Session, error) {
	var s models.Session
	var endTime sql.NullTime
	var stoppedBy sql.NullString
	err := row.Scan(
		&s.ID,
		&s.ReservationID,
		&s.Status,
		&s.StartTime,
		&endTime,
		&s.InitialPercent,
		&s.FinalPercent,
		&s.EnergyKWh,
		&s.Cost,
		&s.Currency,
		&s.DurationMinutes,
		&stoppedBy,
		&s.Billed,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if stoppedBy.Valid {
		s.StoppedBy = models.StopInitiator(stoppedBy.String)
	}
	return &s, nil
}

// GetForUpdate loads a session and locks its row for the current transaction.
// Stop paths call this first so concurrent terminations serialize on the row.
func (r *SessionRepository) GetForUpdate(ctx context.Context, sessionID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE id = $1
		FOR UPDATE
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// Get loads a session without locking it.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE id = $1
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// FindByReservation returns the session bound to a reservation, if any.
// Used by the violation checker to decide whether a booking was honored.
func (r *SessionRepository) FindByReservation(ctx context.Context, reservationID int64) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM charging_sessions
		WHERE reservation_id = $1
	`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

// SessionWindow pairs an active session with its reservation window end,
// used to re-arm auto-stop timers after a restart.
type SessionWindow struct {
	SessionID    string
	ScheduledEnd time.Time
}

// ListInProgressWindows returns all IN_PROGRESS sessions with their window
// end instants.
func (r *SessionRepository) ListInProgressWindows(ctx context.Context) ([]SessionWindow, error) {
	const query = `
		SELECT s.id, r.scheduled_end
		FROM charging_sessions s
		JOIN reservations r ON r.id = s.reservation_id
		WHERE s.status = $1
	`
	rows, err := r.db.QueryContext(ctx, query, models.SessionStatusInProgress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []SessionWindow
	for rows.Next() {
		var w SessionWindow
		if err := rows.Scan(&w.SessionID, &w.ScheduledEnd); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}

// CompleteParams carries the final values written on termination.
type CompleteParams struct {
	EndTime         time.Time
	FinalPercent    float64
	EnergyKWh       float64
	Cost            float64
	DurationMinutes int
	StoppedBy       models.StopInitiator
	Billed          bool
}

// Complete finalizes an IN_PROGRESS session. The status predicate keeps the
// transition one-way even if a caller raced past the row lock.
func (r *SessionRepository) Complete(ctx context.Context, sessionID string, p CompleteParams) error {
	const query = `
		UPDATE charging_sessions
		SET status = $2,
		    end_time = $3,
		    final_percent = $4,
		    energy_kwh = $5,
		    cost = $6,
		    duration_minutes = $7,
		    stopped_by = $8,
		    billed = $9,
		    updated_at = NOW()
		WHERE id = $1 AND status = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		sessionID,
		models.SessionStatusCompleted,
		p.EndTime,
		p.FinalPercent,
		p.EnergyKWh,
		p.Cost,
		p.DurationMinutes,
		string(p.StoppedBy),
		p.Billed,
		models.SessionStatusInProgress,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
