package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chargehub/internal/billing"
	"chargehub/internal/models"
	"chargehub/internal/notify"
	"chargehub/internal/repository"
)

const invoiceTimeout = 10 * time.Second

// AutoStopScheduler arms the deferred stop at the reservation window end.
type AutoStopScheduler interface {
	Arm(sessionID string, at time.Time)
}

// EventEmitter queues fire-and-forget lifecycle events.
type EventEmitter interface {
	Emit(ev notify.Event)
}

// InvoiceCreator is the invoicing collaborator boundary.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, sessionID string, amount float64, currency string) error
}

// ChargeLevelCache is the ephemeral battery-percentage store.
type ChargeLevelCache interface {
	Put(sessionID string, percent float64)
	Get(sessionID string) (float64, bool)
	Remove(sessionID string)
}

// SessionsService orchestrates the session state machine: start, stop by any
// initiator, and forced completion. Every Start/Stop attempt runs in its own
// transaction scope, so a fired timer's failure can never roll back the
// start that armed it.
type SessionsService struct {
	db           *sql.DB
	sessions     *repository.SessionRepository
	reservations *repository.ReservationRepository
	points       *repository.PointRepository
	slots        *repository.SlotRepository
	tariffs      *TariffService
	cache        ChargeLevelCache
	scheduler    AutoStopScheduler
	emitter      EventEmitter
	invoices     InvoiceCreator
	currency     string
	logger       *zap.Logger
	now          func() time.Time
}

// NewSessionsService builds the controller.
func NewSessionsService(
	db *sql.DB,
	sessions *repository.SessionRepository,
	reservations *repository.ReservationRepository,
	points *repository.PointRepository,
	slots *repository.SlotRepository,
	tariffs *TariffService,
	cache ChargeLevelCache,
	scheduler AutoStopScheduler,
	emitter EventEmitter,
	invoices InvoiceCreator,
	currency string,
	logger *zap.Logger,
) *SessionsService {
	return &SessionsService{
		db:           db,
		sessions:     sessions,
		reservations: reservations,
		points:       points,
		slots:        slots,
		tariffs:      tariffs,
		cache:        cache,
		scheduler:    scheduler,
		emitter:      emitter,
		invoices:     invoices,
		currency:     currency,
		logger:       logger,
		now:          time.Now,
	}
}

// StartSessionInput activates a confirmed reservation. InitialPercent is the
// last telemetry reading at plug-in; it is a required external input.
type StartSessionInput struct {
	ReservationID  int64
	SubscriberID   int64
	InitialPercent float64
}

// StartSessionResult describes the opened session.
type StartSessionResult struct {
	SessionID      string    `json:"session_id"`
	StationID      string    `json:"station_id"`
	StationName    string    `json:"station_name"`
	PointID        string    `json:"point_id"`
	StartTime      time.Time `json:"start_time"`
	InitialPercent float64   `json:"initial_percent"`
}

// StartSession opens a session for a confirmed reservation. The insert races
// safely on the reservation_id unique constraint: of two concurrent starts
// exactly one wins, the other observes ErrConflict.
func (s *SessionsService) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionResult, error) {
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start session: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservations.WithTx(tx).GetForUpdate(ctx, in.ReservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("start session: load reservation: %w", err)
	}
	if res.SubscriberID != in.SubscriberID {
		return nil, ErrForbidden
	}
	if res.Status != models.ReservationStatusConfirmed {
		return nil, ErrConflict
	}
	if !res.ScheduledEnd.After(res.ScheduledStart) {
		return nil, fmt.Errorf("%w: malformed window", ErrWindowViolation)
	}
	if now.Before(res.ScheduledStart) {
		return nil, fmt.Errorf("%w: too early", ErrWindowViolation)
	}
	if now.After(res.ScheduledEnd) {
		return nil, fmt.Errorf("%w: too late", ErrWindowViolation)
	}

	point, err := s.points.WithTx(tx).Get(ctx, res.PointID)
	if err != nil {
		return nil, fmt.Errorf("start session: load point: %w", err)
	}

	session := &models.Session{
		ID:             uuid.NewString(),
		ReservationID:  res.ID,
		Status:         models.SessionStatusInProgress,
		StartTime:      now,
		InitialPercent: in.InitialPercent,
		FinalPercent:   in.InitialPercent,
		Currency:       s.currency,
	}
	if err := s.sessions.WithTx(tx).Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("start session: create: %w", err)
	}
	if err := s.reservations.WithTx(tx).UpdateStatus(ctx, res.ID, models.ReservationStatusInUse); err != nil {
		return nil, fmt.Errorf("start session: advance reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("start session: commit: %w", err)
	}

	s.cache.Put(session.ID, in.InitialPercent)
	s.scheduler.Arm(session.ID, res.ScheduledEnd)
	s.emitter.Emit(notify.Event{
		Kind:           notify.KindSessionStarted,
		SessionID:      session.ID,
		ReservationID:  res.ID,
		InitialPercent: in.InitialPercent,
	})

	s.logger.Info("charging session started",
		zap.String("session_id", session.ID),
		zap.Int64("reservation_id", res.ID),
		zap.String("point_id", res.PointID),
		zap.Float64("initial_percent", in.InitialPercent),
	)

	return &StartSessionResult{
		SessionID:      session.ID,
		StationID:      point.StationID,
		StationName:    point.StationName,
		PointID:        point.ID,
		StartTime:      session.StartTime,
		InitialPercent: in.InitialPercent,
	}, nil
}

// StopSessionInput terminates a running session. FinalPercent is optional;
// when absent the last cached reading or a deterministic estimate is used.
// A zero StoppedAt means "now"; the auto-stop scheduler passes the window
// end so the recorded end time matches it exactly.
type StopSessionInput struct {
	SessionID    string
	FinalPercent *float64
	Initiator    models.StopInitiator
	ActorID      int64
	StoppedAt    time.Time
}

// StopSessionResult carries the completed session and its billing outcome.
// Outcome.Billed false means the explicit "unbilled" result of the
// force-complete fallback.
type StopSessionResult struct {
	Session *models.Session       `json:"session"`
	Outcome models.BillingOutcome `json:"billing"`
}

// StopSession terminates a session, prices it, releases unused slots and
// emits the completion side effects. Pricing problems (no tariff, calculator
// failure) degrade to completion without billing; they never fail the stop.
func (s *SessionsService) StopSession(ctx context.Context, in StopSessionInput) (*StopSessionResult, error) {
	return s.complete(ctx, in, false)
}

// StopBySystem is the scheduler's entry point for window expiry.
func (s *SessionsService) StopBySystem(ctx context.Context, sessionID string, cachedPercent *float64, at time.Time) error {
	_, err := s.complete(ctx, StopSessionInput{
		SessionID:    sessionID,
		FinalPercent: cachedPercent,
		Initiator:    models.InitiatorSystemAuto,
		StoppedAt:    at,
	}, false)
	return err
}

// ForceCompleteWithoutBilling terminates a session with zero cost, still
// releasing unused slots and notifying. Used by the scheduler when the
// standard stop path fails, so a billing fault never leaves a charging point
// occupied.
func (s *SessionsService) ForceCompleteWithoutBilling(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.complete(ctx, StopSessionInput{
		SessionID: sessionID,
		Initiator: models.InitiatorSystemAuto,
		StoppedAt: at,
	}, true)
	return err
}

func (s *SessionsService) complete(ctx context.Context, in StopSessionInput, skipBilling bool) (*StopSessionResult, error) {
	stoppedAt := in.StoppedAt
	if stoppedAt.IsZero() {
		stoppedAt = s.now()
	}
	stoppedAt = stoppedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stop session: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Status re-read under the row lock is the authoritative step: of two
	// concurrent stops exactly one sees IN_PROGRESS.
	sess, err := s.sessions.WithTx(tx).GetForUpdate(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("stop session: load: %w", err)
	}
	if sess.Status != models.SessionStatusInProgress {
		return nil, ErrNotActive
	}

	res, err := s.reservations.WithTx(tx).GetForUpdate(ctx, sess.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("stop session: load reservation: %w", err)
	}
	if in.Initiator == models.InitiatorSubscriber && in.ActorID != res.SubscriberID {
		return nil, ErrForbidden
	}

	point, err := s.points.WithTx(tx).Get(ctx, res.PointID)
	if err != nil {
		return nil, fmt.Errorf("stop session: load point: %w", err)
	}

	if stoppedAt.Before(sess.StartTime) {
		stoppedAt = sess.StartTime
	}
	finalPercent := s.resolveFinalPercent(sess, in.FinalPercent, stoppedAt, point.RatedPowerKW, res.BatteryCapacityKWh)
	sessionMinutes := int(stoppedAt.Sub(sess.StartTime).Minutes())

	var result billing.Result
	billed := false
	if !skipBilling {
		tariff := s.tariffs.ResolveActive(ctx, res.ConnectorType, stoppedAt)
		if tariff.IsZeroRate() {
			s.logger.Error("no priced tariff in effect, completing session without billing; flagged for manual review",
				zap.String("session_id", sess.ID),
				zap.String("connector_type", res.ConnectorType),
			)
		} else {
			bookedSlots, err := s.slots.WithTx(tx).CountByReservation(ctx, res.ID)
			if err != nil {
				return nil, fmt.Errorf("stop session: count slots: %w", err)
			}
			computed, calcErr := billing.Calculate(billing.Input{
				SessionStart:       sess.StartTime,
				SessionStop:        stoppedAt,
				WindowStart:        res.ScheduledStart,
				WindowEnd:          res.ScheduledEnd,
				SlotMinutes:        res.SlotMinutes,
				BookedSlots:        bookedSlots,
				BatteryCapacityKWh: res.BatteryCapacityKWh,
				RatedPowerKW:       point.RatedPowerKW,
				InitialPercent:     sess.InitialPercent,
				FinalPercent:       finalPercent,
				Initiator:          in.Initiator,
				PricePerMinute:     tariff.PricePerMinute,
				PricePerKWh:        tariff.PricePerKWh,
			})
			if calcErr != nil {
				s.logger.Error("billing computation failed, completing session without billing; flagged for manual review",
					zap.String("session_id", sess.ID),
					zap.Error(calcErr),
				)
			} else {
				result = computed
				billed = true
			}
		}
	}
	if !billed {
		result = billing.Result{SessionMinutes: sessionMinutes}
	}

	if err := s.sessions.WithTx(tx).Complete(ctx, sess.ID, repository.CompleteParams{
		EndTime:         stoppedAt,
		FinalPercent:    finalPercent,
		EnergyKWh:       result.EnergyKWh,
		Cost:            result.Total,
		DurationMinutes: result.SessionMinutes,
		StoppedBy:       in.Initiator,
		Billed:          billed,
	}); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("stop session: finalize: %w", err)
	}
	if err := s.reservations.WithTx(tx).UpdateStatus(ctx, res.ID, models.ReservationStatusCompleted); err != nil {
		return nil, fmt.Errorf("stop session: complete reservation: %w", err)
	}
	released, err := s.slots.WithTx(tx).ReleaseFrom(ctx, res.ID, stoppedAt)
	if err != nil {
		return nil, fmt.Errorf("stop session: release slots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("stop session: commit: %w", err)
	}

	s.cache.Remove(sess.ID)

	sess.Status = models.SessionStatusCompleted
	sess.EndTime = &stoppedAt
	sess.FinalPercent = finalPercent
	sess.EnergyKWh = result.EnergyKWh
	sess.Cost = result.Total
	sess.DurationMinutes = result.SessionMinutes
	sess.StoppedBy = in.Initiator
	sess.Billed = billed

	outcome := models.BillingOutcome{
		SessionID:             sess.ID,
		EnergyKWh:             result.EnergyKWh,
		ActiveChargingMinutes: result.ActiveChargingMinutes,
		TimeMinutesBilled:     result.TimeMinutesBilled,
		TimeCost:              result.TimeCost,
		EnergyCost:            result.EnergyCost,
		Total:                 result.Total,
		Currency:              sess.Currency,
		Initiator:             in.Initiator,
		Billed:                billed,
	}

	s.emitter.Emit(notify.Event{
		Kind:            notify.KindSessionCompleted,
		SessionID:       sess.ID,
		ReservationID:   res.ID,
		DurationMinutes: result.SessionMinutes,
		EnergyKWh:       result.EnergyKWh,
		TimeCost:        result.TimeCost,
		EnergyCost:      result.EnergyCost,
		Total:           result.Total,
		Currency:        sess.Currency,
		Initiator:       string(in.Initiator),
		Billed:          billed,
	})

	if billed && result.Total > 0 {
		// At most one attempt per completed session; failure is logged for
		// reconciliation, never surfaced to the caller.
		go s.createInvoice(sess.ID, result.Total, sess.Currency)
	}

	s.logger.Info("charging session completed",
		zap.String("session_id", sess.ID),
		zap.Int64("reservation_id", res.ID),
		zap.String("initiator", string(in.Initiator)),
		zap.Float64("energy_kwh", result.EnergyKWh),
		zap.Float64("total", result.Total),
		zap.Bool("billed", billed),
		zap.Int64("slots_released", released),
	)

	return &StopSessionResult{Session: sess, Outcome: outcome}, nil
}

func (s *SessionsService) createInvoice(sessionID string, amount float64, currency string) {
	ctx, cancel := context.WithTimeout(context.Background(), invoiceTimeout)
	defer cancel()
	if err := s.invoices.CreateInvoice(ctx, sessionID, amount, currency); err != nil {
		s.logger.Warn("invoice creation failed",
			zap.String("session_id", sessionID),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
	}
}

// resolveFinalPercent applies the resolution order: explicit value when it
// does not contradict the initial reading, then the cached telemetry value,
// then the deterministic estimate.
func (s *SessionsService) resolveFinalPercent(sess *models.Session, explicit *float64, stoppedAt time.Time, ratedPowerKW, capacityKWh float64) float64 {
	if explicit != nil && *explicit >= sess.InitialPercent && *explicit <= 100 {
		return *explicit
	}
	if cached, ok := s.cache.Get(sess.ID); ok && cached != sess.InitialPercent && cached >= sess.InitialPercent && cached <= 100 {
		return cached
	}
	return billing.EstimateFinalPercent(sess.InitialPercent, stoppedAt.Sub(sess.StartTime), ratedPowerKW, capacityKWh)
}

// RecordChargeLevel stores a telemetry reading for a running session.
func (s *SessionsService) RecordChargeLevel(ctx context.Context, sessionID string, percent float64) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrNotActive
		}
		return fmt.Errorf("record charge level: %w", err)
	}
	if sess.Status != models.SessionStatusInProgress {
		return ErrNotActive
	}
	s.cache.Put(sessionID, percent)
	return nil
}

// FindByReservation exposes the session bound to a reservation for the
// violation/no-show checker.
func (s *SessionsService) FindByReservation(ctx context.Context, reservationID int64) (*models.Session, error) {
	sess, err := s.sessions.FindByReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find by reservation: %w", err)
	}
	return sess, nil
}

// RearmActiveSessions re-arms auto-stop timers for sessions that were in
// progress when the process last stopped. Windows already past fire
// immediately.
func (s *SessionsService) RearmActiveSessions(ctx context.Context) error {
	windows, err := s.sessions.ListInProgressWindows(ctx)
	if err != nil {
		return fmt.Errorf("rearm active sessions: %w", err)
	}
	for _, w := range windows {
		s.scheduler.Arm(w.SessionID, w.ScheduledEnd)
	}
	if len(windows) > 0 {
		s.logger.Info("re-armed auto-stop timers", zap.Int("count", len(windows)))
	}
	return nil
}
