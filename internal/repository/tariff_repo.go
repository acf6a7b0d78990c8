package repository

import (
	"context"
	"time"

	"chargehub/internal/models"
)

// TariffRepository handles tariff lookups.
type TariffRepository struct {
	db DBTX
}

// NewTariffRepository returns repository.
func NewTariffRepository(db DBTX) *TariffRepository {
	return &TariffRepository{db: db}
}

// FindActive returns the tariff in effect for the connector type at the given
// instant, preferring the most recently started interval when several match.
// Absence is reported as sql.ErrNoRows; the resolver above turns that into
// the zero-rate sentinel.
func (r *TariffRepository) FindActive(ctx context.Context, connectorType string, at time.Time) (*models.Tariff, error) {
	const query = `
		SELECT id, connector_type, price_per_kwh, price_per_minute, valid_from, valid_to
		FROM tariffs
		WHERE connector_type = $1
		  AND valid_from <= $2
		  AND (valid_to IS NULL OR valid_to > $2)
		ORDER BY valid_from DESC
		LIMIT 1
	`
	var t models.Tariff
	err := r.db.QueryRowContext(ctx, query, connectorType, at).Scan(
		&t.ID,
		&t.ConnectorType,
		&t.PricePerKWh,
		&t.PricePerMinute,
		&t.ValidFrom,
		&t.ValidTo,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
