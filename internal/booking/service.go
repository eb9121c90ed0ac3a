package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"dispatch-service/internal/rides"
	"dispatch-service/pkg/jwt"
)

// DraftTTL is how long an untouched draft survives.
const DraftTTL = 30 * time.Minute

// DraftStore keeps one serialised draft per user (Redis in production),
// plus a per-user lock held while a draft is being confirmed.
type DraftStore interface {
	SaveDraft(ctx context.Context, userID string, data []byte, ttl time.Duration) error
	LoadDraft(ctx context.Context, userID string) ([]byte, error)
	DeleteDraft(ctx context.Context, userID string) error
	ClaimConfirm(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	ReleaseConfirm(ctx context.Context, userID string) error
}

// SearchRecorder remembers confirmed destinations for suggestions.
type SearchRecorder interface {
	PushRecentSearch(ctx context.Context, userID, destination string) error
}

// Service drives the booking flow for signed-in passengers.
type Service struct {
	drafts   DraftStore
	rides    RideCreator
	searches SearchRecorder
}

// NewService creates a booking service. searches may be nil.
func NewService(drafts DraftStore, creator RideCreator, searches SearchRecorder) *Service {
	return &Service{drafts: drafts, rides: creator, searches: searches}
}

// Current returns the caller's draft, or a fresh one.
func (s *Service) Current(ctx context.Context, sess jwt.Session) (*Draft, error) {
	data, err := s.drafts.LoadDraft(ctx, sess.UserID)
	if err != nil {
		log.Printf("[booking] load draft for %s: %v", sess.UserID, err)
		return nil, ErrUnavailable
	}
	if data == nil {
		return NewDraft(), nil
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil || d.Terminal() {
		return NewDraft(), nil
	}
	return &d, nil
}

func (s *Service) SetLocations(ctx context.Context, sess jwt.Session, pickup, destination string) (*Draft, error) {
	return s.update(ctx, sess, func(d *Draft) error { return d.SetLocations(pickup, destination) })
}

func (s *Service) SelectVehicle(ctx context.Context, sess jwt.Session, classID string) (*Draft, error) {
	return s.update(ctx, sess, func(d *Draft) error { return d.SelectVehicle(classID) })
}

func (s *Service) Back(ctx context.Context, sess jwt.Session) (*Draft, error) {
	return s.update(ctx, sess, (*Draft).Back)
}

// Confirm submits the draft as a new ride. Confirmations of one user are
// serialised, and the draft is saved as submitted once the ride exists, so
// a repeated confirm never creates a second ride.
func (s *Service) Confirm(ctx context.Context, sess jwt.Session) (*rides.Ride, error) {
	ok, err := s.drafts.ClaimConfirm(ctx, sess.UserID, DraftTTL)
	if err != nil {
		log.Printf("[booking] claim confirm for %s: %v", sess.UserID, err)
		return nil, ErrUnavailable
	}
	if !ok {
		return nil, ErrConfirmInProgress
	}
	release := true
	defer func() {
		if !release {
			return
		}
		if err := s.drafts.ReleaseConfirm(ctx, sess.UserID); err != nil {
			log.Printf("[booking] release confirm for %s: %v", sess.UserID, err)
		}
	}()

	d, err := s.Current(ctx, sess)
	if err != nil {
		return nil, err
	}
	r, err := d.Confirm(ctx, s.rides, sess)
	if err != nil {
		return nil, err
	}

	// Until the submitted step is stored the lock is the only thing stopping
	// a second ride; keep it and let it expire after the draft does.
	if err := s.save(ctx, sess, d); err != nil {
		log.Printf("[booking] keeping confirm lock for %s: ride %s created", sess.UserID, r.ID)
		release = false
	}
	if s.searches != nil {
		if err := s.searches.PushRecentSearch(ctx, sess.UserID, r.Destination); err != nil {
			log.Printf("[booking] record search for %s: %v", sess.UserID, err)
		}
	}
	return r, nil
}

// StartOver discards the caller's draft.
func (s *Service) StartOver(ctx context.Context, sess jwt.Session) (*Draft, error) {
	d, err := s.Current(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := d.StartOver(); err != nil {
		return nil, err
	}
	if err := s.drafts.DeleteDraft(ctx, sess.UserID); err != nil {
		log.Printf("[booking] discard draft for %s: %v", sess.UserID, err)
		return nil, ErrUnavailable
	}
	return d, nil
}

func (s *Service) update(ctx context.Context, sess jwt.Session, fn func(*Draft) error) (*Draft, error) {
	d, err := s.Current(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) save(ctx context.Context, sess jwt.Session, d *Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.drafts.SaveDraft(ctx, sess.UserID, data, DraftTTL); err != nil {
		log.Printf("[booking] save draft for %s: %v", sess.UserID, err)
		return ErrUnavailable
	}
	return nil
}
