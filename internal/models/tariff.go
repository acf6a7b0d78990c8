package models

import "time"

// Tariff is a time-bounded price pair for a connector type.
type Tariff struct {
	ID             int64      `db:"id" json:"id"`
	ConnectorType  string     `db:"connector_type" json:"connector_type"`
	PricePerKWh    float64    `db:"price_per_kwh" json:"price_per_kwh"`
	PricePerMinute float64    `db:"price_per_minute" json:"price_per_minute"`
	ValidFrom      time.Time  `db:"valid_from" json:"valid_from"`
	ValidTo        *time.Time `db:"valid_to" json:"valid_to,omitempty"`
}

// IsZeroRate reports whether this is the unpriced sentinel. Callers must
// treat a zero-rate tariff as "complete without billing", never as free
// chargeable energy.
func (t Tariff) IsZeroRate() bool {
	return t.PricePerKWh == 0 && t.PricePerMinute == 0
}
