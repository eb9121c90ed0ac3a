package booking

// Vehicle is one bookable vehicle class with its static display estimates.
type Vehicle struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Capacity int    `json:"capacity"`
	Fare     string `json:"fare"`
	ETA      string `json:"eta"`
}

var catalog = []Vehicle{
	{ID: "standard", Name: "Standard Taxi", Image: "/images/vehicles/standard.png", Capacity: 4, Fare: "$15-20", ETA: "5-7 min"},
	{ID: "premium", Name: "Premium Sedan", Image: "/images/vehicles/premium.png", Capacity: 4, Fare: "$25-35", ETA: "8-10 min"},
	{ID: "van", Name: "Family Van", Image: "/images/vehicles/van.png", Capacity: 7, Fare: "$30-45", ETA: "10-15 min"},
	{ID: "accessible", Name: "Accessible Vehicle", Image: "/images/vehicles/accessible.png", Capacity: 3, Fare: "$20-28", ETA: "12-18 min"},
}

// Vehicles returns a copy of the catalogue in display order.
func Vehicles() []Vehicle {
	out := make([]Vehicle, len(catalog))
	copy(out, catalog)
	return out
}

// LookupVehicle finds a vehicle class by id.
func LookupVehicle(id string) (Vehicle, bool) {
	for _, v := range catalog {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}
