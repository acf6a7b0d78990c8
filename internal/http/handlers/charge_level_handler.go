package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chargehub/internal/service"
)

type chargeLevelRequest struct {
	SessionID string   `json:"session_id"`
	Percent   *float64 `json:"percent"`
}

// NewChargeLevelHandler returns PUT /internal/telemetry/charge-level handler.
// Telemetry integrations push the last known battery percentage here; the
// reading only feeds the ephemeral cache.
func NewChargeLevelHandler(svc *service.SessionsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chargeLevelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id required")
			return
		}
		if req.Percent == nil || *req.Percent < 0 || *req.Percent > 100 {
			writeError(w, http.StatusBadRequest, "percent required in [0,100]")
			return
		}

		if err := svc.RecordChargeLevel(r.Context(), req.SessionID, *req.Percent); err != nil {
			if errors.Is(err, service.ErrNotActive) {
				writeError(w, http.StatusConflict, "session is not in progress")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to record charge level")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseInt64Query(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, errors.New("missing query parameter")
	}
	return strconv.ParseInt(raw, 10, 64)
}
