package station

import "strings"

// Station is a kitchen-side routing tag: which physical screen inside a
// truck an order item shows up on. Merchants may use their own free-form
// tags; these are the defaults seeding and demo data use.
type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	// Capitalize first letter
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Grill   Station
	Fryer   Station
	Cold    Station
	Drinks  Station
	Dessert Station
}

var Stations = Enum{
	Grill:   Station{Name: "grill"},
	Fryer:   Station{Name: "fryer"},
	Cold:    Station{Name: "cold"},
	Drinks:  Station{Name: "drinks"},
	Dessert: Station{Name: "dessert"},
}

var All = []Station{
	Stations.Grill,
	Stations.Fryer,
	Stations.Cold,
	Stations.Drinks,
	Stations.Dessert,
}

// ByName returns the station for a given name, or nil if not found
func ByName(name string) *Station {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
