package rides

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dispatch-service/pkg/jwt"
)

// Handler exposes passenger ride endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the ride service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all ride routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/", h.History)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/feedback", h.SubmitFeedback)
	r.Post("/{id}/cancel", h.Cancel)

	return r
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	list, err := h.svc.ListForUser(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": list})
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	ride, err := h.svc.Get(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	ride, err := h.svc.SubmitFeedback(r.Context(), sess, chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	ride, err := h.svc.Cancel(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

// StatusCode maps ride errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrMissingLocation):
		return http.StatusBadRequest
	case errors.Is(err, ErrFeedbackExists), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrNotCompleted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// UserMessage is the short text shown to the client for err. Store
// failures are reported generically.
func UserMessage(err error) string {
	switch StatusCode(err) {
	case http.StatusServiceUnavailable:
		return "Something went wrong. Please try again."
	case http.StatusConflict:
		if errors.Is(err, ErrInvalidTransition) {
			return ErrInvalidTransition.Error()
		}
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code == http.StatusServiceUnavailable {
		log.Printf("[rides] %v", err)
	}
	writeJSON(w, code, map[string]string{"error": UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
