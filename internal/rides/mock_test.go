package rides

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory Store with the same conditional-write
// semantics as PostgresStore.
type memoryStore struct {
	mu    sync.Mutex
	rides map[string]*Ride

	GetCallCount int32
	CreateError  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rides: make(map[string]*Ride)}
}

func (m *memoryStore) put(r Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[r.ID] = &r
}

func (m *memoryStore) Create(_ context.Context, r *Ride) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	r.ID = uuid.NewString()
	r.Status = StatusRequested
	r.Version = 1
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*Ride, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryStore) ListByPassenger(_ context.Context, passengerID string) ([]Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Ride{}
	for _, r := range m.rides {
		if r.PassengerID == passengerID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) ActiveByDriver(_ context.Context, driverID string) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		if r.DriverID != nil && *r.DriverID == driverID && !r.Status.Terminal() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) Transition(_ context.Context, id string, from, to Status, d *DriverInfo) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.Status != from {
		return nil, errConflict
	}
	r.Status = to
	if d != nil {
		id := d.ID
		r.DriverID = &id
		r.DriverName, r.DriverPhotoURL, r.LicensePlate = d.Name, d.PhotoURL, d.LicensePlate
	}
	r.Version++
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *memoryStore) SetFeedback(_ context.Context, id string, rating int, comment string) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.Status != StatusCompleted || r.PassengerRating != nil {
		return nil, errConflict
	}
	now := time.Now()
	r.PassengerRating = &rating
	r.PassengerFeedback = comment
	r.FeedbackAt = &now
	r.Version++
	cp := *r
	return &cp, nil
}

type publishedEvent struct {
	Topic string
	Key   string
	Value any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic, key, v})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}
