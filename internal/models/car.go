package models

type Car struct {
	ID              string  `yaml:"id" json:"id"`
	Brand           string  `yaml:"brand" json:"brand"`
	Model           string  `yaml:"model" json:"model"`
	Type            string  `yaml:"type" json:"type"`
	SeatingCapacity int     `yaml:"seating_capacity" json:"seating_capacity"`
	FuelType        string  `yaml:"fuel_type" json:"fuel_type"`
	Transmission    string  `yaml:"transmission" json:"transmission"`
	PricePerDay     float64 `yaml:"price_per_day" json:"price_per_day"`
	Available       bool    `yaml:"available" json:"available"`
}

// CarFilter narrows catalog listings. Zero values mean "no constraint".
type CarFilter struct {
	FuelType      string
	Transmission  string
	MinPrice      float64
	MaxPrice      float64
	MinSeats      int
	AvailableOnly bool
}

// Matches reports whether the car satisfies every set filter field.
func (f CarFilter) Matches(car Car) bool {
	if f.FuelType != "" && car.FuelType != f.FuelType {
		return false
	}
	if f.Transmission != "" && car.Transmission != f.Transmission {
		return false
	}
	if f.MaxPrice > 0 && (car.PricePerDay < f.MinPrice || car.PricePerDay > f.MaxPrice) {
		return false
	}
	if f.MaxPrice == 0 && f.MinPrice > 0 && car.PricePerDay < f.MinPrice {
		return false
	}
	if f.MinSeats > 0 && car.SeatingCapacity < f.MinSeats {
		return false
	}
	if f.AvailableOnly && !car.Available {
		return false
	}
	return true
}
