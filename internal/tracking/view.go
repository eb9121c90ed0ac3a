package tracking

import (
	"time"

	"dispatch-service/internal/rides"
)

// Placeholders shown until a driver is assigned.
const (
	PlaceholderDriverName  = "Finding Driver..."
	PlaceholderDriverPhoto = "/images/placeholders/driver.png"
	PlaceholderVehicle     = "/images/placeholders/vehicle.png"
	PlaceholderPlate       = "PLATE-TBD"
	PlaceholderETA         = "N/A"
)

// Action affordances on the tracking screen. None is backed by a service
// yet so all are rendered disabled.
var actionNames = []string{"call", "chat", "share", "sos"}

// View is everything the ride tracking screen renders.
type View struct {
	RideID          string       `json:"ride_id"`
	Status          rides.Status `json:"status"`
	StatusLabel     string       `json:"status_label"`
	Pickup          string       `json:"pickup"`
	Destination     string       `json:"destination"`
	Fare            string       `json:"fare"`
	ETA             string       `json:"eta"`
	Driver          DriverView   `json:"driver"`
	Vehicle         VehicleView  `json:"vehicle"`
	Actions         []Action     `json:"actions"`
	FeedbackEnabled bool         `json:"feedback_enabled"`
	Rating          *int         `json:"rating,omitempty"`
	Feedback        string       `json:"feedback,omitempty"`
	Version         int64        `json:"version"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type DriverView struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
	Assigned bool   `json:"assigned"`
}

type VehicleView struct {
	Class        string `json:"class"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	LicensePlate string `json:"license_plate"`
}

type Action struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Render maps a ride snapshot to its view. It has no side effects.
func Render(r rides.Ride) View {
	v := View{
		RideID:      r.ID,
		Status:      r.Status,
		StatusLabel: r.Status.Label(),
		Pickup:      r.Pickup,
		Destination: r.Destination,
		Fare:        r.Fare,
		ETA:         orDefault(r.ETA, PlaceholderETA),
		Driver: DriverView{
			Name:     orDefault(r.DriverName, PlaceholderDriverName),
			PhotoURL: orDefault(r.DriverPhotoURL, PlaceholderDriverPhoto),
			Assigned: r.DriverID != nil,
		},
		Vehicle: VehicleView{
			Class:        r.VehicleClass,
			Name:         r.VehicleName,
			Image:        orDefault(r.VehicleImage, PlaceholderVehicle),
			LicensePlate: orDefault(r.LicensePlate, PlaceholderPlate),
		},
		FeedbackEnabled: r.FeedbackOpen(),
		Rating:          r.PassengerRating,
		Feedback:        r.PassengerFeedback,
		Version:         r.Version,
		UpdatedAt:       r.UpdatedAt,
	}
	v.Actions = make([]Action, len(actionNames))
	for i, name := range actionNames {
		v.Actions[i] = Action{Name: name}
	}
	return v
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
