package models

import "time"

// DateLayout is the calendar-date format used across the service.
// Bookings are compared at day granularity, never wall-clock time.
const DateLayout = "2006-01-02"

type Booking struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	CarID       string      `json:"car_id"`
	CarDetails  CarDetails  `json:"car_details"`
	TripDetails TripDetails `json:"trip_details"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Days        int         `json:"days"`
	TotalPrice  float64     `json:"total_price"`
	Notes       string      `json:"notes,omitempty"`
	Status      string      `json:"status"` // confirmed, ready, ongoing, completed, cancelled
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CarDetails is the snapshot of the car denormalized into a booking at
// creation time, so later fleet changes do not rewrite history.
type CarDetails struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Type  string `json:"type"`
}

type TripDetails struct {
	Source            string  `json:"source"`
	Destination       string  `json:"destination"`
	Passengers        int     `json:"passengers"`
	EstimatedDistance float64 `json:"estimated_distance"`
	EstimatedDuration float64 `json:"estimated_duration"`
}

// BookingUpdate carries a partial field update. Nil pointers mean
// "leave unchanged". The store merges these blindly; the service layer
// is responsible for range validation and price recomputation.
type BookingUpdate struct {
	StartDate   *time.Time   `json:"start_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	Days        *int         `json:"days,omitempty"`
	TotalPrice  *float64     `json:"total_price,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	TripDetails *TripDetails `json:"trip_details,omitempty"`
}

// CalculateDays returns the chargeable day count for a date range:
// ceil of the whole-day difference, floored at 1 so a same-day rental
// is billed as a single day.
func CalculateDays(start, end time.Time) int {
	diff := end.Sub(start)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// Overlaps reports whether two closed date intervals intersect.
// Touching endpoints count as overlap: the car is returned and picked
// up on the same calendar day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
