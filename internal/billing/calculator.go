// Package billing computes session cost from metered charge percentages and
// elapsed time. Calculate is a pure function: same input, same output, no
// hidden state.
package billing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"chargehub/internal/models"
)

// ChargingEfficiency is the assumed grid-to-battery efficiency used when
// converting rated power to delivered energy.
const ChargingEfficiency = 0.90

// ErrInvalidInput marks inputs the calculator cannot price. Callers treat it
// as an internal billing failure and complete the session without billing.
var ErrInvalidInput = errors.New("billing: invalid input")

// Input is everything the calculator needs. Rates come from the resolved
// tariff; the rest describes the session and its reservation.
type Input struct {
	SessionStart time.Time
	SessionStop  time.Time

	WindowStart time.Time
	WindowEnd   time.Time
	SlotMinutes int
	BookedSlots int

	BatteryCapacityKWh float64
	RatedPowerKW       float64
	InitialPercent     float64
	FinalPercent       float64

	Initiator models.StopInitiator

	PricePerMinute float64
	PricePerKWh    float64
}

// Result is the priced breakdown of a session.
type Result struct {
	SessionMinutes        int
	EnergyKWh             float64
	ActiveChargingMinutes int
	TimeMinutesBilled     int
	TimeCost              float64
	EnergyCost            float64
	Total                 float64
}

// Calculate prices a session according to who stopped it:
//
//	OPERATOR:    elapsed minutes at the time rate, no energy charge.
//	SYSTEM_AUTO: delivered energy at the energy rate, no time charge.
//	SUBSCRIBER:  hybrid. Elapsed time rounded up to whole booked slots,
//	             minutes beyond the active-charging estimate billed at the
//	             time rate, energy billed at the energy rate. Minutes that
//	             produced measured energy are never billed twice.
func Calculate(in Input) (Result, error) {
	if in.BatteryCapacityKWh <= 0 {
		return Result{}, fmt.Errorf("%w: battery capacity %.2f", ErrInvalidInput, in.BatteryCapacityKWh)
	}
	if in.RatedPowerKW <= 0 {
		return Result{}, fmt.Errorf("%w: rated power %.2f", ErrInvalidInput, in.RatedPowerKW)
	}
	if in.FinalPercent < in.InitialPercent {
		return Result{}, fmt.Errorf("%w: final percent %.2f below initial %.2f", ErrInvalidInput, in.FinalPercent, in.InitialPercent)
	}

	var res Result
	res.SessionMinutes = wholeMinutes(in.SessionStart, in.SessionStop)
	res.EnergyKWh = round2((in.FinalPercent - in.InitialPercent) / 100 * in.BatteryCapacityKWh)

	// A session cannot have charged longer than it ran.
	res.ActiveChargingMinutes = int(math.Ceil(res.EnergyKWh / (in.RatedPowerKW * ChargingEfficiency) * 60))
	if res.ActiveChargingMinutes > res.SessionMinutes {
		res.ActiveChargingMinutes = res.SessionMinutes
	}

	switch in.Initiator {
	case models.InitiatorOperator:
		res.TimeMinutesBilled = res.SessionMinutes
		res.TimeCost = round2(float64(res.SessionMinutes) * in.PricePerMinute)
	case models.InitiatorSystemAuto:
		res.EnergyCost = round2(res.EnergyKWh * in.PricePerKWh)
	case models.InitiatorSubscriber:
		if in.SlotMinutes <= 0 || in.BookedSlots <= 0 {
			return Result{}, fmt.Errorf("%w: slot layout %d min x %d", ErrInvalidInput, in.SlotMinutes, in.BookedSlots)
		}
		roundedMinutes := roundedSlotMinutes(in.WindowStart, in.SessionStop, in.SlotMinutes, in.BookedSlots)
		res.TimeMinutesBilled = roundedMinutes - res.ActiveChargingMinutes
		if res.TimeMinutesBilled < 0 {
			res.TimeMinutesBilled = 0
		}
		res.TimeCost = round2(float64(res.TimeMinutesBilled) * in.PricePerMinute)
		res.EnergyCost = round2(res.EnergyKWh * in.PricePerKWh)
	default:
		return Result{}, fmt.Errorf("%w: unknown initiator %q", ErrInvalidInput, in.Initiator)
	}

	res.Total = round2(res.TimeCost + res.EnergyCost)
	return res, nil
}

// EstimateFinalPercent derives a final battery percentage when no telemetry
// reading exists: energy from rated power over elapsed time at the assumed
// efficiency, clamped to [initial, 100], with a minimum one point increase
// for any positive elapsed time.
func EstimateFinalPercent(initialPercent float64, elapsed time.Duration, ratedPowerKW, batteryCapacityKWh float64) float64 {
	if elapsed <= 0 || ratedPowerKW <= 0 || batteryCapacityKWh <= 0 {
		return initialPercent
	}
	energyKWh := elapsed.Hours() * ratedPowerKW * ChargingEfficiency
	estimate := initialPercent + energyKWh/batteryCapacityKWh*100
	if estimate < initialPercent+1 {
		estimate = initialPercent + 1
	}
	if estimate > 100 {
		estimate = 100
	}
	if estimate < initialPercent {
		estimate = initialPercent
	}
	return round2(estimate)
}

// roundedSlotMinutes rounds elapsed time since the window start up to whole
// slot units, capped at the number of slots actually booked. Charges for
// reserved-but-idle time without exceeding the booking.
func roundedSlotMinutes(windowStart, stop time.Time, slotMinutes, bookedSlots int) int {
	elapsed := stop.Sub(windowStart).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	slots := int(math.Ceil(elapsed / float64(slotMinutes)))
	if slots > bookedSlots {
		slots = bookedSlots
	}
	return slots * slotMinutes
}

func wholeMinutes(start, stop time.Time) int {
	if stop.Before(start) {
		return 0
	}
	return int(stop.Sub(start).Minutes())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
