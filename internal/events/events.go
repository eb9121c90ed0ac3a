package events

// RideRequestedEvent is published to ride.requested.
type RideRequestedEvent struct {
	RideID       string `json:"ride_id"`
	PassengerID  string `json:"passenger_id"`
	VehicleClass string `json:"vehicle_class"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	RequestedAt  string `json:"requested_at"`
}

// RideStatusChangedEvent is published to ride.status_changed after every
// accepted transition.
type RideStatusChangedEvent struct {
	RideID      string `json:"ride_id"`
	PassengerID string `json:"passenger_id"`
	DriverID    string `json:"driver_id,omitempty"`
	From        string `json:"from"`
	To          string `json:"to"`
	Version     int64  `json:"version"`
	ChangedAt   string `json:"changed_at"`
}

// FeedbackSubmittedEvent is published to ride.feedback.
type FeedbackSubmittedEvent struct {
	RideID      string `json:"ride_id"`
	PassengerID string `json:"passenger_id"`
	DriverID    string `json:"driver_id,omitempty"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	SubmittedAt string `json:"submitted_at"`
}
