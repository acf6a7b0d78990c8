package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/service"
)

// SessionsHandler exposes the start/stop surface of the engine.
type SessionsHandler struct {
	service *service.SessionsService
	logger  *zap.Logger
}

// NewSessionsHandler builds handler.
func NewSessionsHandler(svc *service.SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{service: svc, logger: logger}
}

type startSessionRequest struct {
	ReservationID  int64    `json:"reservation_id"`
	InitialPercent *float64 `json:"initial_percent"`
}

// HandleStart handles POST /sessions/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ReservationID == 0 {
		writeError(w, http.StatusBadRequest, "reservation_id required")
		return
	}
	if req.InitialPercent == nil || *req.InitialPercent < 0 || *req.InitialPercent > 100 {
		writeError(w, http.StatusBadRequest, "initial_percent required in [0,100]")
		return
	}

	result, err := h.service.StartSession(r.Context(), service.StartSessionInput{
		ReservationID:  req.ReservationID,
		SubscriberID:   subscriberID,
		InitialPercent: *req.InitialPercent,
	})
	if err != nil {
		h.writeServiceError(w, err, "start session failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type stopSessionRequest struct {
	SessionID    string   `json:"session_id"`
	FinalPercent *float64 `json:"final_percent,omitempty"`
}

// HandleStop handles POST /sessions/stop. The initiator is derived from the
// authenticated role; SYSTEM_AUTO never enters through this endpoint.
func (h *SessionsHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	role, _ := middleware.RoleFromContext(r.Context())
	initiator := models.InitiatorSubscriber
	if role == middleware.RoleOperator {
		initiator = models.InitiatorOperator
	}

	var req stopSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if req.FinalPercent != nil && (*req.FinalPercent < 0 || *req.FinalPercent > 100) {
		writeError(w, http.StatusBadRequest, "final_percent must be in [0,100]")
		return
	}

	result, err := h.service.StopSession(r.Context(), service.StopSessionInput{
		SessionID:    req.SessionID,
		FinalPercent: req.FinalPercent,
		Initiator:    initiator,
		ActorID:      actorID,
	})
	if err != nil {
		h.writeServiceError(w, err, "stop session failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleFindByReservation handles GET /internal/sessions/by-reservation.
func (h *SessionsHandler) HandleFindByReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, err := parseInt64Query(r, "reservation_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "reservation_id required")
		return
	}

	session, err := h.service.FindByReservation(r.Context(), reservationID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "no session for reservation")
			return
		}
		h.logger.Error("session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionsHandler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "session already exists for reservation")
	case errors.Is(err, service.ErrWindowViolation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNotActive):
		writeError(w, http.StatusConflict, "session is not in progress")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "not allowed")
	default:
		h.logger.Error(logMsg, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
