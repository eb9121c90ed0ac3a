package rides

import "errors"

var (
	// ErrNotFound is returned when the ride does not exist.
	ErrNotFound = errors.New("ride not found")

	// ErrForbidden is returned when the caller does not own the ride.
	ErrForbidden = errors.New("you are not authorized to access this ride")

	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrNotCompleted is returned when feedback is sent before the trip completed.
	ErrNotCompleted = errors.New("feedback is only accepted for completed rides")

	// ErrFeedbackExists is returned when the ride was already rated.
	ErrFeedbackExists = errors.New("feedback already submitted for this ride")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrMissingLocation is returned when pickup or destination is empty.
	ErrMissingLocation = errors.New("pickup and destination are required")

	// ErrUnavailable wraps store failures (unreachable, rejected write).
	ErrUnavailable = errors.New("ride store unavailable")

	// errConflict is returned by a Store when a conditional write matched no row.
	errConflict = errors.New("conditional write did not apply")
)
