package booking

import (
	"errors"
	"fmt"
)

var (
	ErrMissingLocation = errors.New("pickup and destination are required")
	ErrUnknownVehicle  = errors.New("unknown vehicle class")
	ErrWrongStep       = errors.New("action not allowed at this booking step")
	ErrUnavailable     = errors.New("booking is temporarily unavailable")

	// ErrConfirmInProgress wraps ErrWrongStep while another confirm runs.
	ErrConfirmInProgress = fmt.Errorf("%w: confirmation already in progress", ErrWrongStep)
)
