package drivers

import "time"

// Driver is an onboarded driver with their vehicle.
type Driver struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PhotoURL      string    `json:"photo_url"`
	VehicleMake   string    `json:"vehicle_make"`
	VehicleModel  string    `json:"vehicle_model"`
	VehicleYear   string    `json:"vehicle_year"`
	VehicleColor  string    `json:"vehicle_color"`
	LicensePlate  string    `json:"license_plate"`
	LicenceNumber string    `json:"licence_number"`
	LicenceExpiry string    `json:"licence_expiry"`
	VehicleClass  string    `json:"vehicle_class"`
	Online        bool      `json:"online"`
	CreatedAt     time.Time `json:"created_at"`
}

// RegisterRequest is the body for POST /drivers/register.
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Password      string `json:"password"`
	PhotoURL      string `json:"photo_url"`
	VehicleMake   string `json:"vehicle_make"`
	VehicleModel  string `json:"vehicle_model"`
	VehicleYear   string `json:"vehicle_year"`
	VehicleColor  string `json:"vehicle_color"`
	LicensePlate  string `json:"license_plate"`
	LicenceNumber string `json:"licence_number"`
	LicenceExpiry string `json:"licence_expiry"`
	VehicleClass  string `json:"vehicle_class"`
}

// AvailabilityRequest is the body for PATCH /drivers/me/availability.
type AvailabilityRequest struct {
	Online bool `json:"online"`
}

// AuthResponse is returned on onboarding.
type AuthResponse struct {
	Token  string  `json:"token"`
	Driver *Driver `json:"driver,omitempty"`
}
