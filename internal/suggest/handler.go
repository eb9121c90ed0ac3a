package suggest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dispatch-service/pkg/jwt"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router for the /suggestions mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Post("/", h.Suggest)
	return r
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserLocation string `json:"user_location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	sess, _ := jwt.SessionFrom(r.Context())
	destinations, err := h.svc.Suggest(r.Context(), sess, req.UserLocation)
	switch {
	case errors.Is(err, ErrMissingLocation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrMissingLocation.Error()})
	case errors.Is(err, ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrNotConfigured.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": ErrService.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"destinations": destinations})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
