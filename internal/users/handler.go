package users

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dispatch-service/pkg/jwt"
)

// Handler exposes user HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the user service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all user routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Public
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/federated", h.Federated)
	r.Get("/session", h.Session)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.GetProfile)
		r.Patch("/me", h.UpdateProfile)
	})

	return r
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	resp, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	resp, err := h.svc.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Federated(w http.ResponseWriter, r *http.Request) {
	var req FederatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	resp, err := h.svc.SignInWithProvider(r.Context(), req)
	if errors.Is(err, ErrSignInCancelled) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	if err := h.svc.SignOut(r.Context(), sess); err != nil {
		log.Printf("[users] sign-out for %s: %v", sess.UserID, err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sign-out failed, please try again"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": StateSignedOut})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := jwt.SessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, SessionState{State: StateSignedOut})
		return
	}
	state, err := h.svc.State(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	u, err := h.svc.GetProfile(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	sess, _ := jwt.SessionFrom(r.Context())
	u, err := h.svc.UpdateProfile(r.Context(), sess, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidIDToken):
		status = http.StatusUnauthorized
	case errors.Is(err, ErrAccountDisabled):
		status = http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, jwt.ErrFederatedNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, ErrSignInFailed):
		status, msg = http.StatusBadGateway, ErrSignInFailed.Error()
	default:
		log.Printf("[users] %v", err)
		status, msg = http.StatusServiceUnavailable, "Something went wrong. Please try again."
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
