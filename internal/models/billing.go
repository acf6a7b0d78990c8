package models

// BillingOutcome is the value object handed to invoicing and notification
// after a session completes. Not persisted as such; the session row carries
// the totals.
type BillingOutcome struct {
	SessionID             string        `json:"session_id"`
	EnergyKWh             float64       `json:"energy_kwh"`
	ActiveChargingMinutes int           `json:"active_charging_minutes"`
	TimeMinutesBilled     int           `json:"time_minutes_billed"`
	TimeCost              float64       `json:"time_cost"`
	EnergyCost            float64       `json:"energy_cost"`
	Total                 float64       `json:"total"`
	Currency              string        `json:"currency"`
	Initiator             StopInitiator `json:"initiator"`
	Billed                bool          `json:"billed"`
}
