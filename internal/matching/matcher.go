package matching

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"dispatch-service/internal/drivers"
	"dispatch-service/internal/events"
	"dispatch-service/internal/rides"
	"dispatch-service/pkg/kafka"
)

// Subscriber starts a background consumer of one topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// DriverPool hands out waiting drivers per vehicle class.
type DriverPool interface {
	PopAvailableDriver(ctx context.Context, vehicleClass string) (string, error)
	AddAvailableDriver(ctx context.Context, vehicleClass, driverID string) error
}

// DriverDirectory looks up driver details.
type DriverDirectory interface {
	GetByID(ctx context.Context, id string) (*drivers.Driver, error)
}

// Assigner writes the assignment onto the ride.
type Assigner interface {
	AssignDriver(ctx context.Context, rideID string, d rides.DriverInfo) (*rides.Ride, error)
}

// Matcher consumes ride.requested events and assigns a waiting driver of
// the requested vehicle class.
type Matcher struct {
	events  Subscriber
	pool    DriverPool
	drivers DriverDirectory
	rides   Assigner
}

// NewMatcher creates a new matcher.
func NewMatcher(events Subscriber, pool DriverPool, drivers DriverDirectory, rides Assigner) *Matcher {
	return &Matcher{events: events, pool: pool, drivers: drivers, rides: rides}
}

// Start begins consuming ride.requested in a background goroutine.
func (m *Matcher) Start(ctx context.Context) {
	m.events.Subscribe(ctx, kafka.TopicRideRequested, "matching-group", func(data []byte) error {
		var ev events.RideRequestedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return m.Handle(ctx, ev)
	})
}

// Handle assigns one driver to the ride. Without a waiting driver the ride
// simply stays requested.
func (m *Matcher) Handle(ctx context.Context, ev events.RideRequestedEvent) error {
	log.Printf("[matching] ride.requested → ride=%s passenger=%s class=%s", ev.RideID, ev.PassengerID, ev.VehicleClass)

	driverID, err := m.pool.PopAvailableDriver(ctx, ev.VehicleClass)
	if err != nil {
		return err
	}
	if driverID == "" {
		log.Printf("[matching] no %s drivers available for ride %s", ev.VehicleClass, ev.RideID)
		return nil
	}

	d, err := m.drivers.GetByID(ctx, driverID)
	if err != nil {
		log.Printf("[matching] driver %s lookup failed: %v", driverID, err)
		return err
	}

	_, err = m.rides.AssignDriver(ctx, ev.RideID, rides.DriverInfo{
		ID:           d.ID,
		Name:         d.Name,
		PhotoURL:     d.PhotoURL,
		LicensePlate: d.LicensePlate,
	})
	if errors.Is(err, rides.ErrInvalidTransition) || errors.Is(err, rides.ErrNotFound) {
		// Cancelled or already assigned meanwhile: the driver keeps waiting.
		log.Printf("[matching] ride %s no longer open, returning driver %s", ev.RideID, d.ID)
		return m.pool.AddAvailableDriver(ctx, d.VehicleClass, d.ID)
	}
	if err != nil {
		if putErr := m.pool.AddAvailableDriver(ctx, d.VehicleClass, d.ID); putErr != nil {
			log.Printf("[matching] failed to return driver %s: %v", d.ID, putErr)
		}
		return err
	}

	log.Printf("[matching] assigned driver %s → ride %s", d.ID, ev.RideID)
	return nil
}
