package models

import "time"

// SessionStatus is the lifecycle state of a charging session. Transitions
// only ever go IN_PROGRESS -> COMPLETED.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// StopInitiator identifies the actor that terminated a session.
type StopInitiator string

const (
	InitiatorSystemAuto StopInitiator = "SYSTEM_AUTO"
	InitiatorSubscriber StopInitiator = "SUBSCRIBER"
	InitiatorOperator   StopInitiator = "OPERATOR"
)

// Session represents one physical charging event bound to exactly one
// reservation. Sessions are audit records and are never deleted.
type Session struct {
	ID              string        `db:"id" json:"id"`
	ReservationID   int64         `db:"reservation_id" json:"reservation_id"`
	Status          SessionStatus `db:"status" json:"status"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         *time.Time    `db:"end_time" json:"end_time,omitempty"`
	InitialPercent  float64       `db:"initial_percent" json:"initial_percent"`
	FinalPercent    float64       `db:"final_percent" json:"final_percent"`
	EnergyKWh       float64       `db:"energy_kwh" json:"energy_kwh"`
	Cost            float64       `db:"cost" json:"cost"`
	Currency        string        `db:"currency" json:"currency"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	StoppedBy       StopInitiator `db:"stopped_by" json:"stopped_by,omitempty"`
	Billed          bool          `db:"billed" json:"billed"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}
