package booking

import (
	"context"
	"sync"
	"time"

	"dispatch-service/internal/rides"
	"dispatch-service/pkg/jwt"
)

type memoryDrafts struct {
	mu        sync.Mutex
	data      map[string][]byte
	locks     map[string]bool
	SaveError error
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{data: make(map[string][]byte), locks: make(map[string]bool)}
}

func (m *memoryDrafts) SaveDraft(_ context.Context, userID string, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.data[userID] = data
	return nil
}

func (m *memoryDrafts) LoadDraft(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[userID], nil
}

func (m *memoryDrafts) DeleteDraft(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

func (m *memoryDrafts) ClaimConfirm(_ context.Context, userID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[userID] {
		return false, nil
	}
	m.locks[userID] = true
	return true, nil
}

func (m *memoryDrafts) ReleaseConfirm(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, userID)
	return nil
}

func (m *memoryDrafts) failSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveError = err
}

type stubCreator struct {
	mu      sync.Mutex
	created []rides.NewRide
	err     error
}

func (c *stubCreator) CreateRide(_ context.Context, sess jwt.Session, in rides.NewRide) (*rides.Ride, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.created = append(c.created, in)
	return &rides.Ride{
		ID:           "ride-1",
		PassengerID:  sess.UserID,
		Pickup:       in.Pickup,
		Destination:  in.Destination,
		VehicleClass: in.VehicleClass,
		Fare:         in.Fare,
		ETA:          in.ETA,
		Status:       rides.StatusRequested,
		CreatedAt:    time.Now(),
	}, nil
}

type recordingSearches struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingSearches) PushRecentSearch(_ context.Context, _ string, destination string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, destination)
	return nil
}

func (c *stubCreator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.created)
}
