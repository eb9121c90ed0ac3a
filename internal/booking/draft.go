package booking

import (
	"context"
	"fmt"
	"strings"

	"dispatch-service/internal/rides"
	"dispatch-service/pkg/jwt"
)

// Step is the position of a draft in the booking flow.
type Step string

const (
	StepCollectingLocations Step = "collecting_locations"
	StepSelectingVehicle    Step = "selecting_vehicle"
	StepConfirming          Step = "confirming"
	StepSubmitted           Step = "submitted"
	StepCancelled           Step = "cancelled"
)

// RideCreator turns a confirmed draft into a ride record.
type RideCreator interface {
	CreateRide(ctx context.Context, sess jwt.Session, in rides.NewRide) (*rides.Ride, error)
}

// Draft is the transient booking state of one passenger.
type Draft struct {
	Step         Step   `json:"step"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
	VehicleClass string `json:"vehicle_class,omitempty"`
	VehicleName  string `json:"vehicle_name,omitempty"`
	Fare         string `json:"fare,omitempty"`
	ETA          string `json:"eta,omitempty"`
	RideID       string `json:"ride_id,omitempty"`
}

// NewDraft starts an empty draft at the locations step.
func NewDraft() *Draft {
	return &Draft{Step: StepCollectingLocations}
}

// Terminal reports whether the draft was submitted or discarded.
func (d *Draft) Terminal() bool {
	return d.Step == StepSubmitted || d.Step == StepCancelled
}

// SetLocations records pickup and destination and moves on to vehicle
// selection. Both must be non-empty after trimming.
func (d *Draft) SetLocations(pickup, destination string) error {
	if d.Step != StepCollectingLocations && d.Step != StepSelectingVehicle {
		return fmt.Errorf("%w: %s", ErrWrongStep, d.Step)
	}
	pickup, destination = strings.TrimSpace(pickup), strings.TrimSpace(destination)
	if pickup == "" || destination == "" {
		return ErrMissingLocation
	}
	d.Pickup, d.Destination = pickup, destination
	d.Step = StepSelectingVehicle
	return nil
}

// SelectVehicle picks a vehicle class, copies its fare and ETA estimates and
// moves to confirmation.
func (d *Draft) SelectVehicle(classID string) error {
	if d.Step != StepSelectingVehicle && d.Step != StepConfirming {
		return fmt.Errorf("%w: %s", ErrWrongStep, d.Step)
	}
	v, ok := LookupVehicle(classID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVehicle, classID)
	}
	d.VehicleClass, d.VehicleName = v.ID, v.Name
	d.Fare, d.ETA = v.Fare, v.ETA
	d.Step = StepConfirming
	return nil
}

// Back returns to the previous step. Entered values are kept.
func (d *Draft) Back() error {
	switch d.Step {
	case StepSelectingVehicle:
		d.Step = StepCollectingLocations
	case StepConfirming:
		d.Step = StepSelectingVehicle
	default:
		return fmt.Errorf("%w: %s", ErrWrongStep, d.Step)
	}
	return nil
}

// Confirm creates the ride. On failure the draft stays in confirming so the
// passenger can try again.
func (d *Draft) Confirm(ctx context.Context, creator RideCreator, sess jwt.Session) (*rides.Ride, error) {
	if d.Step != StepConfirming {
		return nil, fmt.Errorf("%w: %s", ErrWrongStep, d.Step)
	}
	v, _ := LookupVehicle(d.VehicleClass)
	r, err := creator.CreateRide(ctx, sess, rides.NewRide{
		Pickup:       d.Pickup,
		Destination:  d.Destination,
		VehicleClass: d.VehicleClass,
		VehicleName:  d.VehicleName,
		VehicleImage: v.Image,
		Fare:         d.Fare,
		ETA:          d.ETA,
	})
	if err != nil {
		return nil, err
	}
	d.RideID = r.ID
	d.Step = StepSubmitted
	return r, nil
}

// StartOver discards the draft.
func (d *Draft) StartOver() error {
	if d.Terminal() {
		return fmt.Errorf("%w: %s", ErrWrongStep, d.Step)
	}
	*d = Draft{Step: StepCancelled}
	return nil
}
