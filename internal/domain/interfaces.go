package domain

import (
	"context"
	"time"

	"carrental/internal/models"
)

// Repository is the booking store surface consumed by the services.
type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetAllBookings(ctx context.Context) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error)
	GetCarBookings(ctx context.Context, carID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	CheckAvailability(ctx context.Context, carID string, start, end time.Time) (bool, error)
	CountConflicts(ctx context.Context, carID string, start, end time.Time) (int, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
	UpdateBookingFields(ctx context.Context, id string, update models.BookingUpdate) error
	DeleteBooking(ctx context.Context, id string) error
	GetCars() []models.Car
	GetCar(id string) (models.Car, error)
}

// CatalogCache holds fleet snapshots for catalog reads.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]models.Car, error)
	SetCatalog(ctx context.Context, cars []models.Car) error
	Invalidate(ctx context.Context) error
}

// EventPublisher delivers booking lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReportScheduler requests a refresh of the fleet schedule report.
type ReportScheduler interface {
	RequestRefresh(start, end time.Time)
}
