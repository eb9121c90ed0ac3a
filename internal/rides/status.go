package rides

// Status is the lifecycle state of a ride.
type Status string

const (
	StatusRequested       Status = "requested"
	StatusDriverAssigned  Status = "driver_assigned"
	StatusEnRouteToPickup Status = "en_route_to_pickup"
	StatusTripInProgress  Status = "trip_in_progress"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

// transitions lists the allowed next states. Statuses only move forward;
// completed and cancelled have no successors.
var transitions = map[Status][]Status{
	StatusRequested:       {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned:  {StatusEnRouteToPickup, StatusCancelled},
	StatusEnRouteToPickup: {StatusTripInProgress, StatusCancelled},
	StatusTripInProgress:  {StatusCompleted},
	StatusCompleted:       nil,
	StatusCancelled:       nil,
}

var labels = map[Status]string{
	StatusRequested:       "Finding your driver",
	StatusDriverAssigned:  "Driver assigned",
	StatusEnRouteToPickup: "Driver on the way",
	StatusTripInProgress:  "Trip in progress",
	StatusCompleted:       "Trip completed",
	StatusCancelled:       "Ride cancelled",
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Label is the passenger-facing description of s.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return "Status unknown"
}
