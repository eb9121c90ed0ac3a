package rides

import (
	"context"
	"sync"
)

// Feed fans ride snapshots out to live subscriptions, keyed by ride id.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*Subscription]struct{})}
}

// Publish offers r to every subscription of r.ID. It never blocks on a
// slow subscriber.
func (f *Feed) Publish(r Ride) {
	f.mu.RLock()
	subs := make([]*Subscription, 0, len(f.subs[r.ID]))
	for s := range f.subs[r.ID] {
		subs = append(subs, s)
	}
	f.mu.RUnlock()

	for _, s := range subs {
		s.offer(r)
	}
}

// Subscribers returns the number of open subscriptions for a ride.
func (f *Feed) Subscribers(rideID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[rideID])
}

func (f *Feed) subscribe(ctx context.Context, rideID, userID string) *Subscription {
	s := &Subscription{
		rideID:  rideID,
		userID:  userID,
		feed:    f,
		notify:  make(chan struct{}, 1),
		updates: make(chan Ride),
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	if f.subs[rideID] == nil {
		f.subs[rideID] = make(map[*Subscription]struct{})
	}
	f.subs[rideID][s] = struct{}{}
	f.mu.Unlock()

	go s.pump(ctx)
	return s
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[s.rideID], s)
	if len(f.subs[s.rideID]) == 0 {
		delete(f.subs, s.rideID)
	}
}

// Subscription is a live one-way channel of snapshots of a single ride.
// Only the newest pending snapshot is kept; older ones a slow reader has
// not consumed yet are superseded because every snapshot is complete.
type Subscription struct {
	rideID string
	userID string
	feed   *Feed

	mu          sync.Mutex
	pending     *Ride
	lastVersion int64
	err         error

	notify  chan struct{}
	updates chan Ride
	done    chan struct{}
	once    sync.Once
}

// Updates delivers snapshots in version order. It is closed when the
// subscription ends; Err then tells why.
func (s *Subscription) Updates() <-chan Ride { return s.updates }

// Err returns ErrForbidden if ownership failed, the context error if the
// context ended it, or nil after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.feed.remove(s)
	})
}

func (s *Subscription) offer(r Ride) {
	s.mu.Lock()
	if r.Version <= s.lastVersion {
		s.mu.Unlock()
		return
	}
	s.lastVersion = r.Version
	s.pending = &r
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Close()
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.updates)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-s.notify:
		}

		s.mu.Lock()
		r := s.pending
		s.pending = nil
		s.mu.Unlock()
		if r == nil {
			continue
		}

		if r.PassengerID != s.userID {
			s.fail(ErrForbidden)
			return
		}

		select {
		case s.updates <- *r:
		case <-s.done:
			return
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		}
	}
}
