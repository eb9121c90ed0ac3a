package rides

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dispatch-service/internal/events"
	"dispatch-service/pkg/jwt"
	"dispatch-service/pkg/kafka"
	"dispatch-service/pkg/validation"
)

// EventPublisher sends domain events (Kafka in production).
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Service contains ride lifecycle logic.
type Service struct {
	store  Store
	feed   *Feed
	events EventPublisher
}

// NewService creates a ride service. events may be nil.
func NewService(store Store, feed *Feed, events EventPublisher) *Service {
	return &Service{store: store, feed: feed, events: events}
}

// CreateRide stores a confirmed draft as a new ride in status requested and
// publishes ride.requested. Store failures are returned as is; there is no
// retry.
func (s *Service) CreateRide(ctx context.Context, sess jwt.Session, in NewRide) (*Ride, error) {
	in.Pickup = strings.TrimSpace(in.Pickup)
	in.Destination = strings.TrimSpace(in.Destination)
	if in.Pickup == "" || in.Destination == "" {
		return nil, ErrMissingLocation
	}

	r := &Ride{
		PassengerID:  sess.UserID,
		Pickup:       in.Pickup,
		Destination:  in.Destination,
		VehicleClass: in.VehicleClass,
		VehicleName:  in.VehicleName,
		VehicleImage: in.VehicleImage,
		Fare:         in.Fare,
		ETA:          in.ETA,
	}
	if err := s.store.Create(ctx, r); err != nil {
		log.Printf("[rides] create for %s failed: %v", sess.UserID, err)
		return nil, err
	}
	log.Printf("[rides] ride %s requested by %s (%s)", r.ID, r.PassengerID, r.VehicleClass)

	s.feed.Publish(*r)
	s.publish(ctx, kafka.TopicRideRequested, r.ID, events.RideRequestedEvent{
		RideID:       r.ID,
		PassengerID:  r.PassengerID,
		VehicleClass: r.VehicleClass,
		Pickup:       r.Pickup,
		Destination:  r.Destination,
		RequestedAt:  r.CreatedAt.Format(time.RFC3339),
	})
	return r, nil
}

// Get is a one-shot read of a ride owned by the caller.
func (s *Service) Get(ctx context.Context, sess jwt.Session, rideID string) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.PassengerID != sess.UserID {
		return nil, ErrForbidden
	}
	return r, nil
}

// ListForUser returns every ride of the caller, newest first.
func (s *Service) ListForUser(ctx context.Context, sess jwt.Session) ([]Ride, error) {
	return s.store.ListByPassenger(ctx, sess.UserID)
}

// Subscribe opens a live channel on one ride. The current snapshot is
// delivered first. The caller must Close the subscription or cancel ctx;
// Watch does both automatically.
func (s *Service) Subscribe(ctx context.Context, sess jwt.Session, rideID string) (*Subscription, error) {
	// Attach before reading so no write between the read and the attach is
	// missed; version ordering drops anything older than the first snapshot.
	sub := s.feed.subscribe(ctx, rideID, sess.UserID)

	r, err := s.fresh(ctx, rideID)
	if err != nil {
		sub.Close()
		return nil, err
	}
	if r.PassengerID != sess.UserID {
		sub.Close()
		return nil, ErrForbidden
	}
	sub.offer(*r)
	return sub, nil
}

// Watch subscribes to a ride and calls fn for every snapshot until fn
// returns an error, ctx ends or the subscription is terminated. The
// subscription is always released before Watch returns.
func (s *Service) Watch(ctx context.Context, sess jwt.Session, rideID string, fn func(Ride) error) error {
	sub, err := s.Subscribe(ctx, sess, rideID)
	if err != nil {
		return err
	}
	defer sub.Close()

	for r := range sub.Updates() {
		if err := fn(r); err != nil {
			return err
		}
	}
	return sub.Err()
}

// SubmitFeedback records the passenger's one-time rating of a completed
// ride. The write is conditional in the store, so of two concurrent
// submissions exactly one succeeds.
func (s *Service) SubmitFeedback(ctx context.Context, sess jwt.Session, rideID string, rating int, comment string) (*Ride, error) {
	if !validation.ValidateRating(rating) {
		return nil, ErrInvalidRating
	}

	r, err := s.owned(ctx, sess, rideID)
	if err != nil {
		return nil, err
	}
	if r.HasFeedback() {
		return nil, ErrFeedbackExists
	}
	if r.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}

	updated, err := s.store.SetFeedback(ctx, rideID, rating, comment)
	if errors.Is(err, errConflict) {
		current, getErr := s.fresh(ctx, rideID)
		if getErr == nil && current.Status != StatusCompleted {
			return nil, ErrNotCompleted
		}
		return nil, ErrFeedbackExists
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[rides] feedback %d/5 on ride %s", rating, rideID)

	s.feed.Publish(*updated)
	s.publish(ctx, kafka.TopicRideFeedback, rideID, events.FeedbackSubmittedEvent{
		RideID:      updated.ID,
		PassengerID: updated.PassengerID,
		DriverID:    deref(updated.DriverID),
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: time.Now().Format(time.RFC3339),
	})
	return updated, nil
}

// AssignDriver moves a requested ride to driver_assigned. It is called by
// the matcher, not on behalf of a signed-in user.
func (s *Service) AssignDriver(ctx context.Context, rideID string, d DriverInfo) (*Ride, error) {
	r, err := s.fresh(ctx, rideID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, r, StatusDriverAssigned, &d)
}

// Advance applies a driver-side status change. Only the assigned driver
// may advance a ride.
func (s *Service) Advance(ctx context.Context, sess jwt.Session, rideID string, to Status) (*Ride, error) {
	r, err := s.fresh(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == nil || *r.DriverID != sess.UserID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, r, to, nil)
}

// ActiveForDriver returns the ride the driver is currently assigned to, or
// ErrNotFound when the driver is free.
func (s *Service) ActiveForDriver(ctx context.Context, driverID string) (*Ride, error) {
	return s.store.ActiveByDriver(ctx, driverID)
}

// Cancel lets the passenger cancel a ride that has not started yet.
func (s *Service) Cancel(ctx context.Context, sess jwt.Session, rideID string) (*Ride, error) {
	r, err := s.owned(ctx, sess, rideID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, r, StatusCancelled, nil)
}

// fresh bypasses the snapshot cache.
func (s *Service) fresh(ctx context.Context, rideID string) (*Ride, error) {
	if c, ok := s.store.(*CachedStore); ok {
		return c.GetFresh(ctx, rideID)
	}
	return s.store.Get(ctx, rideID)
}

func (s *Service) owned(ctx context.Context, sess jwt.Session, rideID string) (*Ride, error) {
	r, err := s.fresh(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.PassengerID != sess.UserID {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *Service) transition(ctx context.Context, r *Ride, to Status, driver *DriverInfo) (*Ride, error) {
	from := r.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	updated, err := s.store.Transition(ctx, r.ID, from, to, driver)
	if errors.Is(err, errConflict) {
		return nil, fmt.Errorf("%w: ride %s is no longer %s", ErrInvalidTransition, r.ID, from)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[rides] ride %s %s -> %s (v%d)", updated.ID, from, to, updated.Version)

	s.feed.Publish(*updated)
	s.publish(ctx, kafka.TopicRideStatusChanged, updated.ID, events.RideStatusChangedEvent{
		RideID:      updated.ID,
		PassengerID: updated.PassengerID,
		DriverID:    deref(updated.DriverID),
		From:        string(from),
		To:          string(to),
		Version:     updated.Version,
		ChangedAt:   updated.UpdatedAt.Format(time.RFC3339),
	})
	return updated, nil
}

// publish logs instead of failing: the ride write already committed.
func (s *Service) publish(ctx context.Context, topic, key string, v any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, key, v); err != nil {
		log.Printf("[rides] failed to publish %s for ride %s: %v", topic, key, err)
	}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
