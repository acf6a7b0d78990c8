package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargehub/internal/models"
)

// ErrReservationNotFound indicates a missing reservation row.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepository reads reservations and advances their status.
// Creation and confirmation belong to the reservation collaborator.
type ReservationRepository struct {
	db DBTX
}

// NewReservationRepository returns repository.
func NewReservationRepository(db DBTX) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx returns a view of the repository bound to the given transaction.
func (r *ReservationRepository) WithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// GetForUpdate loads a reservation and locks its row.
func (r *ReservationRepository) GetForUpdate(ctx context.Context, reservationID int64) (*models.Reservation, error) {
	const query = `
		SELECT id, subscriber_id, station_id, point_id, connector_type,
		       scheduled_start, scheduled_end, slot_minutes, battery_capacity_kwh, status
		FROM reservations
		WHERE id = $1
		FOR UPDATE
	`
	var res models.Reservation
	err := r.db.QueryRowContext(ctx, query, reservationID).Scan(
		&res.ID,
		&res.SubscriberID,
		&res.StationID,
		&res.PointID,
		&res.ConnectorType,
		&res.ScheduledStart,
		&res.ScheduledEnd,
		&res.SlotMinutes,
		&res.BatteryCapacityKWh,
		&res.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateStatus advances reservation status.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, reservationID int64, status models.ReservationStatus) error {
	const query = `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, reservationID, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrReservationNotFound
	}
	return nil
}
