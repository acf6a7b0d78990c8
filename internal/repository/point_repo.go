package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargehub/internal/models"
)

// ErrPointNotFound indicates a missing charging point row.
var ErrPointNotFound = errors.New("charging point not found")

// PointRepository reads charging point metadata (station descriptors and
// rated power used by billing).
type PointRepository struct {
	db DBTX
}

// NewPointRepository returns repository.
func NewPointRepository(db DBTX) *PointRepository {
	return &PointRepository{db: db}
}

// WithTx returns a view of the repository bound to the given transaction.
func (r *PointRepository) WithTx(tx *sql.Tx) *PointRepository {
	return &PointRepository{db: tx}
}

// Get returns point metadata joined with its station name.
func (r *PointRepository) Get(ctx context.Context, pointID string) (*models.ChargingPoint, error) {
	const query = `
		SELECT p.id, p.station_id, s.name, p.connector_type, p.rated_power_kw
		FROM charging_points p
		JOIN stations s ON s.id = p.station_id
		WHERE p.id = $1
	`
	var point models.ChargingPoint
	err := r.db.QueryRowContext(ctx, query, pointID).Scan(
		&point.ID,
		&point.StationID,
		&point.StationName,
		&point.ConnectorType,
		&point.RatedPowerKW,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPointNotFound
	}
	if err != nil {
		return nil, err
	}
	return &point, nil
}
