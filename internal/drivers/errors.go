package drivers

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrPlateTaken        = errors.New("a vehicle with this licence plate is already registered")
	ErrNotFound          = errors.New("driver not found")
	ErrUnknownRideAction = errors.New("unknown ride action")
	ErrUnavailable       = errors.New("driver store unavailable")
)
