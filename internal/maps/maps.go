// Package maps serves what the map widget needs to draw itself.
package maps

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dispatch-service/pkg/validation"
)

// UnavailableMessage replaces the map when no API key is configured.
const UnavailableMessage = "Map is unavailable: API key not configured."

const (
	defaultZoom = 2
	locatedZoom = 12
	defaultLat  = 20.0
	defaultLng  = 0.0
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Config is the map display configuration for one view.
type Config struct {
	Available bool   `json:"available"`
	APIKey    string `json:"api_key,omitempty"`
	Center    Point  `json:"center"`
	Zoom      int    `json:"zoom"`
	Marker    *Point `json:"marker,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Service builds map configs from the provider key.
type Service struct {
	apiKey string
}

func NewService(apiKey string) *Service { return &Service{apiKey: apiKey} }

// Config centres the map on at when given, or shows the whole world.
// Without a key the result degrades to a placeholder, never an error.
func (s *Service) Config(at *Point) Config {
	if s.apiKey == "" {
		return Config{Message: UnavailableMessage, Center: Point{defaultLat, defaultLng}, Zoom: defaultZoom}
	}
	c := Config{Available: true, APIKey: s.apiKey, Center: Point{defaultLat, defaultLng}, Zoom: defaultZoom}
	if at != nil {
		p := *at
		c.Center, c.Zoom, c.Marker = p, locatedZoom, &p
	}
	return c
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router for the /maps mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.GetConfig)
	return r
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	var at *Point
	q := r.URL.Query()
	if q.Get("lat") != "" || q.Get("lng") != "" {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		if errLat != nil || errLng != nil || !validation.ValidateCoordinates(lat, lng) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinates"})
			return
		}
		at = &Point{Lat: lat, Lng: lng}
	}
	writeJSON(w, http.StatusOK, h.svc.Config(at))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
