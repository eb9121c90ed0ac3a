package rides

import "time"

// Ride is the persisted record of one trip request and its lifecycle.
type Ride struct {
	ID           string `json:"id"`
	PassengerID  string `json:"passenger_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class"`
	VehicleName  string `json:"vehicle_name"`
	VehicleImage string `json:"vehicle_image"`
	Fare         string `json:"fare"`
	ETA          string `json:"eta"`
	Status       Status `json:"status"`

	DriverID       *string `json:"driver_id,omitempty"`
	DriverName     string  `json:"driver_name,omitempty"`
	DriverPhotoURL string  `json:"driver_photo_url,omitempty"`
	LicensePlate   string  `json:"license_plate,omitempty"`

	PassengerRating   *int       `json:"passenger_rating,omitempty"`
	PassengerFeedback string     `json:"passenger_feedback,omitempty"`
	FeedbackAt        *time.Time `json:"feedback_at,omitempty"`

	// Version increases by one with every write and orders snapshots.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasFeedback reports whether the passenger already rated the ride.
func (r *Ride) HasFeedback() bool { return r.PassengerRating != nil }

// FeedbackOpen reports whether feedback may still be submitted.
func (r *Ride) FeedbackOpen() bool {
	return r.Status == StatusCompleted && !r.HasFeedback()
}

// NewRide carries the confirmed draft fields of a ride to be created.
type NewRide struct {
	Pickup       string
	Destination  string
	VehicleClass string
	VehicleName  string
	VehicleImage string
	Fare         string
	ETA          string
}

// DriverInfo is denormalised onto a ride when a driver is assigned.
type DriverInfo struct {
	ID           string
	Name         string
	PhotoURL     string
	LicensePlate string
}

// FeedbackRequest is the body for POST /rides/{id}/feedback.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
