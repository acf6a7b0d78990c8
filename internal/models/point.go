package models

// ChargingPoint metadata needed to describe and bill a session.
type ChargingPoint struct {
	ID            string  `db:"id" json:"id"`
	StationID     string  `db:"station_id" json:"station_id"`
	StationName   string  `db:"station_name" json:"station_name"`
	ConnectorType string  `db:"connector_type" json:"connector_type"`
	RatedPowerKW  float64 `db:"rated_power_kw" json:"rated_power_kw"`
}
