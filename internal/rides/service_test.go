package rides

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch-service/pkg/jwt"
	"dispatch-service/pkg/kafka"
)

var (
	passenger = jwt.Session{UserID: "passenger-1", Role: jwt.RolePassenger}
	stranger  = jwt.Session{UserID: "passenger-2", Role: jwt.RolePassenger}
	driver    = jwt.Session{UserID: "driver-1", Role: jwt.RoleDriver}
)

func newTestService() (*Service, *memoryStore, *recordingPublisher) {
	store := newMemoryStore()
	pub := &recordingPublisher{}
	return NewService(store, NewFeed(), pub), store, pub
}

func premiumRide() NewRide {
	return NewRide{
		Pickup:       "123 Main St",
		Destination:  "456 Oak Ave",
		VehicleClass: "premium",
		VehicleName:  "Premium Sedan",
		Fare:         "$25-35",
		ETA:          "8-10 min",
	}
}

// driveToCompletion walks a ride through the whole forward lifecycle.
func driveToCompletion(t *testing.T, svc *Service, rideID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.AssignDriver(ctx, rideID, DriverInfo{ID: driver.UserID, Name: "Dana"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	for _, to := range []Status{StatusEnRouteToPickup, StatusTripInProgress, StatusCompleted} {
		if _, err := svc.Advance(ctx, driver, rideID, to); err != nil {
			t.Fatalf("advance to %s: %v", to, err)
		}
	}
}

func TestCreateRide_StartsRequested(t *testing.T) {
	t.Parallel()
	svc, _, pub := newTestService()

	r, err := svc.CreateRide(context.Background(), passenger, premiumRide())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != StatusRequested {
		t.Errorf("status = %s, want requested", r.Status)
	}
	if r.CreatedAt.IsZero() {
		t.Error("expected creation timestamp")
	}
	if r.ID == "" || r.PassengerID != passenger.UserID {
		t.Errorf("unexpected ride %+v", r)
	}
	if got := pub.topics(); len(got) != 1 || got[0] != kafka.TopicRideRequested {
		t.Errorf("published %v", got)
	}
}

func TestCreateRide_RequiresLocations(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()

	in := premiumRide()
	in.Destination = "   "
	if _, err := svc.CreateRide(context.Background(), passenger, in); !errors.Is(err, ErrMissingLocation) {
		t.Fatalf("expected ErrMissingLocation, got %v", err)
	}
}

func TestCreateRide_StoreFailure(t *testing.T) {
	t.Parallel()
	svc, store, pub := newTestService()
	store.CreateError = ErrUnavailable

	if _, err := svc.CreateRide(context.Background(), passenger, premiumRide()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(pub.topics()) != 0 {
		t.Error("nothing should be published on failure")
	}
}

func TestGet_OtherPassengerForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	r, _ := svc.CreateRide(context.Background(), passenger, premiumRide())

	if _, err := svc.Get(context.Background(), stranger, r.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListForUser_NewestFirst(t *testing.T) {
	t.Parallel()
	svc, store, _ := newTestService()

	base := time.Now()
	store.put(Ride{ID: "old", PassengerID: passenger.UserID, CreatedAt: base.Add(-time.Hour)})
	store.put(Ride{ID: "new", PassengerID: passenger.UserID, CreatedAt: base})
	store.put(Ride{ID: "other", PassengerID: stranger.UserID, CreatedAt: base})

	list, err := svc.ListForUser(context.Background(), passenger)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("unexpected order %+v", list)
	}
}

func TestTransitions_RejectInvalid(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())

	// Not assigned yet: the driver cannot advance it.
	if _, err := svc.Advance(ctx, driver, r.ID, StatusTripInProgress); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.AssignDriver(ctx, r.ID, DriverInfo{ID: driver.UserID}); err != nil {
		t.Fatal(err)
	}
	// Skipping en_route_to_pickup is not allowed.
	if _, err := svc.Advance(ctx, driver, r.ID, StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	driveFrom := []Status{StatusEnRouteToPickup, StatusTripInProgress, StatusCompleted}
	for _, to := range driveFrom {
		if _, err := svc.Advance(ctx, driver, r.ID, to); err != nil {
			t.Fatalf("advance %s: %v", to, err)
		}
	}
	// Completed is terminal.
	if _, err := svc.Cancel(ctx, passenger, r.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAssignDriver_LostRace(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AssignDriver(ctx, r.ID, DriverInfo{ID: driver.UserID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one assignment, got %d", ok)
	}
}

func TestSubmitFeedback_Once(t *testing.T) {
	t.Parallel()
	svc, _, pub := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())

	if _, err := svc.SubmitFeedback(ctx, passenger, r.ID, 5, "Great ride"); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted before completion, got %v", err)
	}

	driveToCompletion(t, svc, r.ID)

	got, err := svc.SubmitFeedback(ctx, passenger, r.ID, 5, "Great ride")
	if err != nil {
		t.Fatalf("first feedback: %v", err)
	}
	if got.PassengerRating == nil || *got.PassengerRating != 5 || got.FeedbackAt == nil {
		t.Errorf("feedback not recorded: %+v", got)
	}
	if got.FeedbackOpen() {
		t.Error("feedback should be closed after submission")
	}

	if _, err := svc.SubmitFeedback(ctx, passenger, r.ID, 4, "again"); !errors.Is(err, ErrFeedbackExists) {
		t.Fatalf("expected ErrFeedbackExists, got %v", err)
	}

	topics := pub.topics()
	if topics[len(topics)-1] != kafka.TopicRideFeedback {
		t.Errorf("last topic = %s", topics[len(topics)-1])
	}
}

func TestSubmitFeedback_Validation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())
	driveToCompletion(t, svc, r.ID)

	for _, rating := range []int{0, 6, -1} {
		if _, err := svc.SubmitFeedback(ctx, passenger, r.ID, rating, ""); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
	if _, err := svc.SubmitFeedback(ctx, stranger, r.ID, 5, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestSubmitFeedback_ConcurrentExactlyOnce(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())
	driveToCompletion(t, svc, r.ID)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := svc.SubmitFeedback(ctx, passenger, r.ID, rating, "tab")
			results <- err
		}(i%5 + 1)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrFeedbackExists):
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
}

func TestSubscribe_DeliversCurrentThenUpdates(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := svc.CreateRide(ctx, passenger, premiumRide())
	sub, err := svc.Subscribe(ctx, passenger, r.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	first := <-sub.Updates()
	if first.Status != StatusRequested {
		t.Fatalf("first snapshot status = %s", first.Status)
	}

	if _, err := svc.AssignDriver(ctx, r.ID, DriverInfo{ID: driver.UserID, Name: "Dana"}); err != nil {
		t.Fatal(err)
	}
	select {
	case next := <-sub.Updates():
		if next.Status != StatusDriverAssigned || next.DriverName != "Dana" {
			t.Fatalf("unexpected snapshot %+v", next)
		}
		if next.Version <= first.Version {
			t.Fatalf("version did not increase: %d -> %d", first.Version, next.Version)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for update")
	}
}

func TestSubscribe_NotOwner(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	r, _ := svc.CreateRide(context.Background(), passenger, premiumRide())

	sub, err := svc.Subscribe(context.Background(), stranger, r.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if sub != nil {
		t.Fatal("expected no subscription")
	}
	if n := svc.feed.Subscribers(r.ID); n != 0 {
		t.Fatalf("subscription leaked: %d open", n)
	}
}

func TestSubscribe_OwnershipCheckedPerSnapshot(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, _ := svc.CreateRide(ctx, passenger, premiumRide())
	sub, err := svc.Subscribe(ctx, passenger, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	<-sub.Updates()

	// A snapshot that no longer belongs to the subscriber ends the channel.
	foreign := *r
	foreign.PassengerID = stranger.UserID
	foreign.Version = 99
	svc.feed.Publish(foreign)

	for range sub.Updates() {
		t.Fatal("no snapshot may be delivered after an ownership mismatch")
	}
	if !errors.Is(sub.Err(), ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", sub.Err())
	}
	if n := svc.feed.Subscribers(r.ID); n != 0 {
		t.Fatalf("expected subscription released, %d open", n)
	}
}

func TestSubscribe_StaleVersionsDropped(t *testing.T) {
	t.Parallel()
	feed := NewFeed()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := feed.subscribe(ctx, "ride-1", passenger.UserID)
	defer sub.Close()

	feed.Publish(Ride{ID: "ride-1", PassengerID: passenger.UserID, Version: 3, Status: StatusTripInProgress})
	got := <-sub.Updates()
	feed.Publish(Ride{ID: "ride-1", PassengerID: passenger.UserID, Version: 2, Status: StatusEnRouteToPickup})
	feed.Publish(Ride{ID: "ride-1", PassengerID: passenger.UserID, Version: 4, Status: StatusCompleted})
	next := <-sub.Updates()

	if got.Version != 3 || next.Version != 4 {
		t.Fatalf("got versions %d then %d, want 3 then 4", got.Version, next.Version)
	}
}

func TestWatch_ReleasesOnReturn(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()
	r, _ := svc.CreateRide(ctx, passenger, premiumRide())

	stop := errors.New("stop")
	var seen []Status
	err := svc.Watch(ctx, passenger, r.ID, func(snap Ride) error {
		seen = append(seen, snap.Status)
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected stop, got %v", err)
	}
	if len(seen) != 1 || seen[0] != StatusRequested {
		t.Fatalf("seen %v", seen)
	}
	if n := svc.feed.Subscribers(r.ID); n != 0 {
		t.Fatalf("expected no open subscriptions, got %d", n)
	}
}

func TestWatch_ContextCancel(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	r, _ := svc.CreateRide(context.Background(), passenger, premiumRide())

	ctx, cancel := context.WithCancel(context.Background())
	err := svc.Watch(ctx, passenger, r.ID, func(Ride) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := svc.feed.Subscribers(r.ID); n != 0 {
		t.Fatalf("expected no open subscriptions, got %d", n)
	}
}

// The example scenario end to end: book, observe completion, rate once.
func TestRideLifecycle_Scenario(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := svc.CreateRide(ctx, passenger, premiumRide())
	if err != nil {
		t.Fatal(err)
	}
	if r.Fare != "$25-35" || r.ETA != "8-10 min" || r.Status != StatusRequested {
		t.Fatalf("unexpected ride %+v", r)
	}

	completed := make(chan struct{})
	go func() {
		_ = svc.Watch(ctx, passenger, r.ID, func(snap Ride) error {
			if snap.Status == StatusCompleted {
				close(completed)
				return errors.New("done")
			}
			return nil
		})
	}()

	driveToCompletion(t, svc, r.ID)

	select {
	case <-completed:
	case <-ctx.Done():
		t.Fatal("lifecycle view never observed completion")
	}

	if _, err := svc.SubmitFeedback(ctx, passenger, r.ID, 5, "Great ride"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if _, err := svc.SubmitFeedback(ctx, passenger, r.ID, 5, "Great ride"); !errors.Is(err, ErrFeedbackExists) {
		t.Fatalf("expected retry to be rejected, got %v", err)
	}
}

func TestActiveForDriver(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.ActiveForDriver(ctx, driver.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("free driver: expected ErrNotFound, got %v", err)
	}

	r, _ := svc.CreateRide(ctx, passenger, premiumRide())
	if _, err := svc.AssignDriver(ctx, r.ID, DriverInfo{ID: driver.UserID, Name: "Dana"}); err != nil {
		t.Fatal(err)
	}
	active, err := svc.ActiveForDriver(ctx, driver.UserID)
	if err != nil || active.ID != r.ID {
		t.Fatalf("assigned driver: got %v, %v", active, err)
	}

	for _, to := range []Status{StatusEnRouteToPickup, StatusTripInProgress, StatusCompleted} {
		if _, err := svc.Advance(ctx, driver, r.ID, to); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.ActiveForDriver(ctx, driver.UserID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after completion: expected ErrNotFound, got %v", err)
	}
}
