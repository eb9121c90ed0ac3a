package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dispatch-service/internal/rides"
	"dispatch-service/pkg/jwt"
)

// Handler exposes the booking flow.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router for the /booking mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/vehicles", h.ListVehicles)

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Get("/draft", h.GetDraft)
		r.Put("/draft/locations", h.SetLocations)
		r.Put("/draft/vehicle", h.SelectVehicle)
		r.Post("/draft/back", h.Back)
		r.Post("/draft/confirm", h.Confirm)
		r.Delete("/draft", h.StartOver)
	})
	return r
}

func (h *Handler) ListVehicles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": Vehicles()})
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	d, err := h.svc.Current(r.Context(), sess)
	respond(w, d, err)
}

func (h *Handler) SetLocations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pickup      string `json:"pickup"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	sess, _ := jwt.SessionFrom(r.Context())
	d, err := h.svc.SetLocations(r.Context(), sess, req.Pickup, req.Destination)
	respond(w, d, err)
}

func (h *Handler) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VehicleClass string `json:"vehicle_class"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	sess, _ := jwt.SessionFrom(r.Context())
	d, err := h.svc.SelectVehicle(r.Context(), sess, req.VehicleClass)
	respond(w, d, err)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	d, err := h.svc.Back(r.Context(), sess)
	respond(w, d, err)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	ride, err := h.svc.Confirm(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (h *Handler) StartOver(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	d, err := h.svc.StartOver(r.Context(), sess)
	respond(w, d, err)
}

func respond(w http.ResponseWriter, d *Draft, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingLocation), errors.Is(err, ErrUnknownVehicle):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrWrongStep):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		// Ride creation failed; the draft is still in confirming.
		writeJSON(w, rides.StatusCode(err), map[string]string{"error": rides.UserMessage(err)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
