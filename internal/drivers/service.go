package drivers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"dispatch-service/internal/booking"
	"dispatch-service/internal/rides"
	"dispatch-service/internal/users"
	"dispatch-service/pkg/jwt"
	"dispatch-service/pkg/validation"
)

// Pool tracks which drivers are waiting for a ride, per vehicle class
// (Redis in production).
type Pool interface {
	AddAvailableDriver(ctx context.Context, vehicleClass, driverID string) error
	RemoveAvailableDriver(ctx context.Context, vehicleClass, driverID string) error
}

// DriverRides is the ride side of a driver's work: the ride they are on and
// the status changes they apply to it.
type DriverRides interface {
	ActiveForDriver(ctx context.Context, driverID string) (*rides.Ride, error)
	Advance(ctx context.Context, sess jwt.Session, rideID string, to rides.Status) (*rides.Ride, error)
}

// Ride actions exposed on POST /drivers/rides/{id}/{action}.
var rideActions = map[string]rides.Status{
	"en-route": rides.StatusEnRouteToPickup,
	"start":    rides.StatusTripInProgress,
	"complete": rides.StatusCompleted,
	"cancel":   rides.StatusCancelled,
}

// Service contains driver business logic.
type Service struct {
	store Store
	pool  Pool
	rides DriverRides
}

// NewService creates a driver service.
func NewService(store Store, pool Pool, rides DriverRides) *Service {
	return &Service{store: store, pool: pool, rides: rides}
}

// Register onboards a driver: a user account with role driver plus the
// vehicle and licence details. The driver starts offline.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validateRegistration(&req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PhotoURL:      req.PhotoURL,
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehicleYear:   req.VehicleYear,
		VehicleColor:  req.VehicleColor,
		LicensePlate:  req.LicensePlate,
		LicenceNumber: req.LicenceNumber,
		LicenceExpiry: req.LicenceExpiry,
		VehicleClass:  req.VehicleClass,
	}
	if err := s.store.Register(ctx, d, string(hash)); err != nil {
		return nil, err
	}
	log.Printf("[drivers] onboarded %s (%s %s, %s)", d.ID, d.VehicleMake, d.VehicleModel, d.VehicleClass)

	token, err := jwt.Generate(d.ID, d.Email, jwt.RoleDriver)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, Driver: d}, nil
}

func validateRegistration(req *RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = users.NormalizeEmail(req.Email)
	req.VehicleMake = strings.TrimSpace(req.VehicleMake)
	req.VehicleModel = strings.TrimSpace(req.VehicleModel)
	req.VehicleColor = strings.TrimSpace(req.VehicleColor)
	req.LicensePlate = strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	req.LicenceNumber = strings.TrimSpace(req.LicenceNumber)
	if req.VehicleClass == "" {
		req.VehicleClass = "standard"
	}

	var problem string
	switch {
	case !validation.ValidateName(req.Name):
		problem = "full name must be 2-200 characters"
	case !validation.ValidateEmail(req.Email):
		problem = "invalid email"
	case !validation.ValidatePassword(req.Password):
		problem = "password must be at least 6 characters"
	case req.Phone != "" && !validation.ValidatePhone(req.Phone):
		problem = "invalid phone number"
	case len(req.VehicleMake) < 2:
		problem = "vehicle make must be at least 2 characters"
	case len(req.VehicleModel) < 1:
		problem = "vehicle model is required"
	case !validation.ValidateVehicleYear(req.VehicleYear):
		problem = "vehicle year must be a 4-digit year"
	case len(req.VehicleColor) < 2:
		problem = "vehicle colour must be at least 2 characters"
	case !validation.ValidateLicensePlate(req.LicensePlate):
		problem = "licence plate must be 2-10 characters"
	case len(req.LicenceNumber) < 5:
		problem = "licence number must be at least 5 characters"
	case !validation.ValidateDate(req.LicenceExpiry):
		problem = "licence expiry must be YYYY-MM-DD"
	case req.PhotoURL != "" && !validation.ValidateURL(req.PhotoURL):
		problem = "invalid photo URL"
	}
	if problem == "" {
		if _, ok := booking.LookupVehicle(req.VehicleClass); !ok {
			problem = "unknown vehicle class"
		}
	}
	if problem != "" {
		return fmt.Errorf("%w: %s", ErrInvalidInput, problem)
	}
	return nil
}

// GetByID fetches a driver by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Driver, error) {
	return s.store.GetByID(ctx, id)
}

// SetAvailability puts the signed-in driver into or out of the matching
// pool of their vehicle class. A driver going online while still on a ride
// is marked online but joins the pool only when that ride ends.
func (s *Service) SetAvailability(ctx context.Context, sess jwt.Session, online bool) (*Driver, error) {
	d, err := s.store.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetOnline(ctx, d.ID, online); err != nil {
		return nil, err
	}
	if online {
		var busy bool
		busy, err = s.onRide(ctx, d.ID)
		if err == nil && !busy {
			err = s.pool.AddAvailableDriver(ctx, d.VehicleClass, d.ID)
		}
	} else {
		err = s.pool.RemoveAvailableDriver(ctx, d.VehicleClass, d.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: driver pool: %v", ErrUnavailable, err)
	}
	d.Online = online
	log.Printf("[drivers] %s online=%v (%s)", d.ID, online, d.VehicleClass)
	return d, nil
}

func (s *Service) onRide(ctx context.Context, driverID string) (bool, error) {
	_, err := s.rides.ActiveForDriver(ctx, driverID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, rides.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// RideAction applies a named driver action to an assigned ride. A driver
// who finishes or drops a ride while online goes back into the pool.
func (s *Service) RideAction(ctx context.Context, sess jwt.Session, rideID, action string) (*rides.Ride, error) {
	to, ok := rideActions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRideAction, action)
	}
	r, err := s.rides.Advance(ctx, sess, rideID, to)
	if err != nil {
		return nil, err
	}

	if to.Terminal() {
		d, err := s.store.GetByID(ctx, sess.UserID)
		if err == nil && d.Online {
			err = s.pool.AddAvailableDriver(ctx, d.VehicleClass, d.ID)
		}
		if err != nil {
			log.Printf("[drivers] return %s to pool: %v", sess.UserID, err)
		}
	}
	return r, nil
}
