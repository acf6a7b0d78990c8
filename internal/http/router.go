package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	StartSession         http.HandlerFunc
	StopSession          http.HandlerFunc
	ChargeLevel          http.HandlerFunc
	SessionByReservation http.HandlerFunc
	Health               http.HandlerFunc
}

// NewRouter registers endpoints. Subscriber/operator routes go through auth;
// /internal/ paths are trusted service-to-service calls and carry no token.
func NewRouter(routes Routes, auth func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	if routes.StartSession != nil {
		mux.Handle("/sessions/start", auth(method(http.MethodPost, routes.StartSession)))
	}
	if routes.StopSession != nil {
		mux.Handle("/sessions/stop", auth(method(http.MethodPost, routes.StopSession)))
	}
	if routes.ChargeLevel != nil {
		mux.Handle("/internal/telemetry/charge-level", method(http.MethodPut, routes.ChargeLevel))
	}
	if routes.SessionByReservation != nil {
		mux.Handle("/internal/sessions/by-reservation", method(http.MethodGet, routes.SessionByReservation))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
