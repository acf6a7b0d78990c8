package notify

// Event kinds delivered to the notification collaborator.
const (
	KindSessionStarted   = "session.started"
	KindSessionCompleted = "session.completed"
)

// Event is the envelope for both kinds; completed events carry the cost
// breakdown, started events only the initial reading.
type Event struct {
	Kind          string `json:"kind"`
	SessionID     string `json:"session_id"`
	ReservationID int64  `json:"reservation_id"`

	InitialPercent float64 `json:"initial_percent,omitempty"`

	DurationMinutes int     `json:"duration_minutes,omitempty"`
	EnergyKWh       float64 `json:"energy_kwh,omitempty"`
	TimeCost        float64 `json:"time_cost,omitempty"`
	EnergyCost      float64 `json:"energy_cost,omitempty"`
	Total           float64 `json:"total,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	Initiator       string  `json:"initiator,omitempty"`
	Billed          bool    `json:"billed,omitempty"`
}
