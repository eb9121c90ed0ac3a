package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"dispatch-service/internal/rides"
	"dispatch-service/pkg/jwt"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RideWatcher reads and follows rides on behalf of their passenger.
type RideWatcher interface {
	Get(ctx context.Context, sess jwt.Session, rideID string) (*rides.Ride, error)
	Watch(ctx context.Context, sess jwt.Session, rideID string, fn func(rides.Ride) error) error
}

// Message is one frame on the tracking socket.
type Message struct {
	Type  string `json:"type"`
	View  *View  `json:"view,omitempty"`
	Error string `json:"error,omitempty"`
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *safeConn) closeWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, text)
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (c *safeConn) close() { c.ws.Close() }

// Handler serves the ride lifecycle view.
type Handler struct {
	rides RideWatcher
}

// NewHandler creates a tracking handler.
func NewHandler(rides RideWatcher) *Handler {
	return &Handler{rides: rides}
}

// Routes returns a chi.Router for the /tracking mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Get("/rides/{id}", h.View)
	r.Get("/rides/{id}/ws", h.HandleWS)
	return r
}

// View renders the ride once.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	ride, err := h.rides.Get(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, rides.StatusCode(err), map[string]string{"error": rides.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, Render(*ride))
}

// HandleWS upgrades the connection and streams a view for every snapshot
// of the ride until the client goes away or access is lost.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	sess, _ := jwt.SessionFrom(r.Context())
	rideID := chi.URLParam(r, "id")

	// Fail before upgrading so the client gets a plain HTTP status.
	if _, err := h.rides.Get(r.Context(), sess, rideID); err != nil {
		writeJSON(w, rides.StatusCode(err), map[string]string{"error": rides.UserMessage(err)})
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}
	conn := &safeConn{ws: ws}
	defer conn.close()

	// The request context is not cancelled when a hijacked connection goes
	// away, so the read loop owns cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("[ws] %s watching ride %s", sess.UserID, rideID)
	err = h.rides.Watch(ctx, sess, rideID, func(snap rides.Ride) error {
		view := Render(snap)
		return conn.writeJSON(Message{Type: "ride", View: &view})
	})

	switch {
	case errors.Is(err, context.Canceled):
		log.Printf("[ws] client left ride %s", rideID)
	case errors.Is(err, rides.ErrForbidden), errors.Is(err, rides.ErrNotFound):
		conn.writeJSON(Message{Type: "error", Error: rides.UserMessage(err)})
		conn.closeWith(websocket.ClosePolicyViolation, "ride not accessible")
	case err != nil:
		log.Printf("[ws] ride %s stream ended: %v", rideID, err)
		conn.closeWith(websocket.CloseInternalServerErr, "stream ended")
	default:
		conn.closeWith(websocket.CloseNormalClosure, "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
