package repository

import (
	"context"
	"database/sql"
	"time"

	"chargehub/internal/models"
)

// SlotRepository manages the reserved sub-intervals of a reservation.
type SlotRepository struct {
	db DBTX
}

// NewSlotRepository returns repository.
func NewSlotRepository(db DBTX) *SlotRepository {
	return &SlotRepository{db: db}
}

// WithTx returns a view of the repository bound to the given transaction.
func (r *SlotRepository) WithTx(tx *sql.Tx) *SlotRepository {
	return &SlotRepository{db: tx}
}

// CountByReservation returns how many slots the reservation booked.
func (r *SlotRepository) CountByReservation(ctx context.Context, reservationID int64) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM reservation_slots
		WHERE reservation_id = $1
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, reservationID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ReleaseFrom reverts reserved slots starting at or after the given instant
// back to AVAILABLE, returning unused capacity to the pool immediately.
func (r *SlotRepository) ReleaseFrom(ctx context.Context, reservationID int64, from time.Time) (int64, error) {
	const query = `
		UPDATE reservation_slots
		SET status = $3, updated_at = NOW()
		WHERE reservation_id = $1 AND slot_start >= $2 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, reservationID, from, models.SlotStatusAvailable, models.SlotStatusReserved)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
