package models

import "time"

// ReservationStatus is advanced by this engine from CONFIRMED through
// IN_USE to COMPLETED; earlier states belong to the reservation workflow.
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusInUse     ReservationStatus = "IN_USE"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

// Reservation holds the confirmed window a subscriber booked on a charging
// point. Owned by the reservation collaborator; this engine only reads it and
// advances its status.
type Reservation struct {
	ID                 int64             `db:"id" json:"id"`
	SubscriberID       int64             `db:"subscriber_id" json:"subscriber_id"`
	StationID          string            `db:"station_id" json:"station_id"`
	PointID            string            `db:"point_id" json:"point_id"`
	ConnectorType      string            `db:"connector_type" json:"connector_type"`
	ScheduledStart     time.Time         `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd       time.Time         `db:"scheduled_end" json:"scheduled_end"`
	SlotMinutes        int               `db:"slot_minutes" json:"slot_minutes"`
	BatteryCapacityKWh float64           `db:"battery_capacity_kwh" json:"battery_capacity_kwh"`
	Status             ReservationStatus `db:"status" json:"status"`
}

// SlotStatus marks whether a reserved sub-interval is still held.
type SlotStatus string

const (
	SlotStatusReserved  SlotStatus = "RESERVED"
	SlotStatusAvailable SlotStatus = "AVAILABLE"
)

// ReservationSlot is one fixed-duration sub-interval within a reservation's
// window, tied to a specific charging point.
type ReservationSlot struct {
	ID            int64      `db:"id" json:"id"`
	ReservationID int64      `db:"reservation_id" json:"reservation_id"`
	PointID       string     `db:"point_id" json:"point_id"`
	SlotStart     time.Time  `db:"slot_start" json:"slot_start"`
	SlotEnd       time.Time  `db:"slot_end" json:"slot_end"`
	Status        SlotStatus `db:"status" json:"status"`
}
