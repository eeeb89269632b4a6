package service

import (
	"context"
	"time"

	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/metrics"
	"carrental/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingDraft carries the caller-supplied parameters for a new booking.
// Derived fields (days, price, car snapshot) are computed here, not trusted
// from the caller.
type BookingDraft struct {
	UserID      string
	CarID       string
	TripDetails models.TripDetails
	StartDate   time.Time
	EndDate     time.Time
	Notes       string
}

type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	reports        domain.ReportScheduler
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, reports domain.ReportScheduler, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		reports:        reports,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// ValidateDateRange checks the basic range invariants without touching
// the store.
func (s *BookingService) ValidateDateRange(start, end time.Time) error {
	if start.After(end) {
		return database.ErrInvalidDateRange
	}
	if models.CalculateDays(start, end) > s.maxBookingDays {
		return database.ErrInvalidDateRange
	}
	return nil
}

// CreateBooking validates the draft, derives days and total price from
// the authoritative car record, and commits through the store's atomic
// check-and-create. Overlap with an existing non-cancelled booking
// yields database.ErrDateConflict.
func (s *BookingService) CreateBooking(ctx context.Context, draft BookingDraft) (*models.Booking, error) {
	if err := s.ValidateDateRange(draft.StartDate, draft.EndDate); err != nil {
		return nil, err
	}

	car, err := s.repo.GetCar(draft.CarID)
	if err != nil {
		return nil, err
	}

	days := models.CalculateDays(draft.StartDate, draft.EndDate)
	booking := &models.Booking{
		ID:     uuid.NewString(),
		UserID: draft.UserID,
		CarID:  car.ID,
		CarDetails: models.CarDetails{
			Brand: car.Brand,
			Model: car.Model,
			Type:  car.Type,
		},
		TripDetails: draft.TripDetails,
		StartDate:   draft.StartDate,
		EndDate:     draft.EndDate,
		Days:        days,
		TotalPrice:  car.PricePerDay * float64(days),
		Notes:       draft.Notes,
		Status:      models.StatusConfirmed,
	}

	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		if err == database.ErrDateConflict {
			metrics.IncConflicts()
		}
		return nil, err
	}

	metrics.IncBookingsCreated()
	s.publishEvent(events.EventBookingCreated, booking)
	s.requestReportRefresh(booking)

	return booking, nil
}

// CheckAvailability reports whether the car is free for the range.
// Cancelled bookings never block; touching endpoints do.
func (s *BookingService) CheckAvailability(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if start.After(end) {
		return false, database.ErrInvalidDateRange
	}
	metrics.IncAvailabilityChecks()
	return s.repo.CheckAvailability(ctx, carID, start, end)
}

// MarkReady moves a confirmed booking to ready (car prepared for pickup).
func (s *BookingService) MarkReady(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusReady, events.EventBookingReady)
}

// StartTrip moves a ready booking to ongoing.
func (s *BookingService) StartTrip(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusOngoing, events.EventBookingStarted)
}

// CompleteBooking moves an ongoing booking to completed.
func (s *BookingService) CompleteBooking(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusCompleted, events.EventBookingCompleted)
}

// CancelBooking cancels any non-terminal booking.
func (s *BookingService) CancelBooking(ctx context.Context, id string) error {
	return s.transition(ctx, id, models.StatusCancelled, events.EventBookingCancelled)
}

// UpdateStatus applies an arbitrary requested status through the
// transition table.
func (s *BookingService) UpdateStatus(ctx context.Context, id, status string) error {
	if !models.ValidStatus(status) {
		return database.ErrInvalidTransition
	}

	var eventType string
	switch status {
	case models.StatusReady:
		eventType = events.EventBookingReady
	case models.StatusOngoing:
		eventType = events.EventBookingStarted
	case models.StatusCompleted:
		eventType = events.EventBookingCompleted
	case models.StatusCancelled:
		eventType = events.EventBookingCancelled
	default:
		// confirmed is the initial state and is never re-entered.
		return database.ErrInvalidTransition
	}
	return s.transition(ctx, id, status, eventType)
}

func (s *BookingService) transition(ctx context.Context, id, to, eventType string) error {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if !models.ValidTransition(booking.Status, to) {
		return database.ErrInvalidTransition
	}

	if err := s.repo.UpdateBookingStatus(ctx, id, to); err != nil {
		return err
	}

	booking.Status = to
	s.publishEvent(eventType, booking)
	s.requestReportRefresh(booking)
	return nil
}

// UpdateBooking merges a partial update. When either date changes, the
// range is re-validated and days/total price are recomputed from the
// booked car's daily rate; the store itself performs no cross-field
// checks.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, update models.BookingUpdate) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.StartDate != nil || update.EndDate != nil {
		start, end := booking.StartDate, booking.EndDate
		if update.StartDate != nil {
			start = *update.StartDate
		}
		if update.EndDate != nil {
			end = *update.EndDate
		}
		if err := s.ValidateDateRange(start, end); err != nil {
			return nil, err
		}

		car, err := s.repo.GetCar(booking.CarID)
		if err != nil {
			return nil, err
		}
		days := models.CalculateDays(start, end)
		price := car.PricePerDay * float64(days)
		update.Days = &days
		update.TotalPrice = &price
	}

	if err := s.repo.UpdateBookingFields(ctx, id, update); err != nil {
		return nil, err
	}
	return s.repo.GetBooking(ctx, id)
}

// DeleteBooking removes the record unconditionally. Administrative
// operation, exempt from lifecycle rules.
func (s *BookingService) DeleteBooking(ctx context.Context, id string) error {
	return s.repo.DeleteBooking(ctx, id)
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.GetAllBookings(ctx)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.repo.GetUserBookings(ctx, userID)
}

func (s *BookingService) GetCarBookings(ctx context.Context, carID string) ([]*models.Booking, error) {
	return s.repo.GetCarBookings(ctx, carID)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		CarID:      booking.CarID,
		CarBrand:   booking.CarDetails.Brand,
		CarModel:   booking.CarDetails.Model,
		Status:     booking.Status,
		StartDate:  booking.StartDate,
		EndDate:    booking.EndDate,
		TotalPrice: booking.TotalPrice,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) requestReportRefresh(booking *models.Booking) {
	if s.reports == nil {
		return
	}
	s.reports.RequestRefresh(booking.StartDate, booking.EndDate)
}
