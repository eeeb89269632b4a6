package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrental/internal/models"
)

const bookingColumns = `id, user_id, car_id, car_brand, car_model, car_type,
                 trip_source, trip_destination, trip_passengers, trip_distance, trip_duration,
                 date(start_date), date(end_date), days, total_price, notes, status,
                 created_at, updated_at`

// CountConflicts returns the number of non-cancelled bookings for the car
// whose closed date interval intersects [start, end]. Touching endpoints
// count as a conflict.
func (db *DB) CountConflicts(ctx context.Context, carID string, start, end time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE car_id = ? AND status != ?
              AND date(start_date) <= date(?) AND date(end_date) >= date(?)`

	var count int
	err := db.db.QueryRowContext(ctx, query, carID, models.StatusCancelled,
		end.Format(models.DateLayout), start.Format(models.DateLayout)).Scan(&count)
	if err != nil {
		return 0, storageErr("failed to count conflicts", err)
	}
	return count, nil
}

// CheckAvailability reports whether the car is free for the whole range.
func (db *DB) CheckAvailability(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	if start.After(end) {
		return false, ErrInvalidDateRange
	}
	if _, err := db.GetCar(carID); err != nil {
		return false, err
	}

	conflicts, err := db.CountConflicts(ctx, carID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return conflicts == 0, nil
}

// CreateBooking inserts the booking as-is and stamps created_at/updated_at.
// The id must already be set by the caller.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	now := time.Now()
	if err := db.insertBooking(ctx, db.db, booking, now); err != nil {
		return err
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

// CreateBookingWithLock checks availability and inserts inside the same
// per-car critical section and transaction, so two overlapping creates
// cannot both succeed.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	if booking.StartDate.After(booking.EndDate) {
		return ErrInvalidDateRange
	}

	lock := db.carLock(booking.CarID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryCount := `SELECT COUNT(*) FROM bookings
              WHERE car_id = ? AND status != ?
              AND date(start_date) <= date(?) AND date(end_date) >= date(?)`
	var conflicts int
	err = tx.QueryRowContext(ctx, queryCount, booking.CarID, models.StatusCancelled,
		booking.EndDate.Format(models.DateLayout), booking.StartDate.Format(models.DateLayout)).Scan(&conflicts)
	if err != nil {
		return storageErr("failed to check availability in tx", err)
	}
	if conflicts > 0 {
		return ErrDateConflict
	}

	now := time.Now()
	if err := db.insertBooking(ctx, tx, booking, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("failed to commit booking", err)
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) insertBooking(ctx context.Context, ex execer, booking *models.Booking, now time.Time) error {
	query := `INSERT INTO bookings (
                id, user_id, car_id, car_brand, car_model, car_type,
                trip_source, trip_destination, trip_passengers, trip_distance, trip_duration,
                start_date, end_date, days, total_price, notes, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := ex.ExecContext(ctx, query,
		booking.ID,
		booking.UserID,
		booking.CarID,
		booking.CarDetails.Brand,
		booking.CarDetails.Model,
		booking.CarDetails.Type,
		booking.TripDetails.Source,
		booking.TripDetails.Destination,
		booking.TripDetails.Passengers,
		booking.TripDetails.EstimatedDistance,
		booking.TripDetails.EstimatedDuration,
		booking.StartDate.Format(models.DateLayout),
		booking.EndDate.Format(models.DateLayout),
		booking.Days,
		booking.TotalPrice,
		booking.Notes,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		return storageErr("failed to insert booking", err)
	}
	return nil
}

// GetBooking returns a copy of the booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	booking, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, storageErr("failed to get booking", err)
	}
	return booking, nil
}

// GetAllBookings returns every booking, most recent first.
// Administrative listing.
func (db *DB) GetAllBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	return db.queryBookings(ctx, query)
}

// GetUserBookings returns the user's bookings, most recent first.
func (db *DB) GetUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE user_id = ? ORDER BY created_at DESC`
	return db.queryBookings(ctx, query, userID)
}

// GetCarBookings returns the car's bookings ordered by start date.
func (db *DB) GetCarBookings(ctx context.Context, carID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE car_id = ? ORDER BY start_date ASC`
	return db.queryBookings(ctx, query, carID)
}

// GetBookingsByDateRange returns bookings whose range intersects the period.
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date(start_date) <= date(?) AND date(end_date) >= date(?)
              ORDER BY start_date, created_at`
	return db.queryBookings(ctx, query,
		end.Format(models.DateLayout), start.Format(models.DateLayout))
}

// UpdateBookingStatus writes the status without transition validation.
// The service layer owns the lifecycle rules.
func (db *DB) UpdateBookingStatus(ctx context.Context, id, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return storageErr("failed to update booking status", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateBookingFields merges the supplied fields into the record and
// stamps updated_at. Cross-field invariants are not re-checked here;
// BookingService.UpdateBooking validates and recomputes derived fields
// before calling this.
func (db *DB) UpdateBookingFields(ctx context.Context, id string, update models.BookingUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	if update.StartDate != nil {
		sets = append(sets, "start_date = ?")
		args = append(args, update.StartDate.Format(models.DateLayout))
	}
	if update.EndDate != nil {
		sets = append(sets, "end_date = ?")
		args = append(args, update.EndDate.Format(models.DateLayout))
	}
	if update.Days != nil {
		sets = append(sets, "days = ?")
		args = append(args, *update.Days)
	}
	if update.TotalPrice != nil {
		sets = append(sets, "total_price = ?")
		args = append(args, *update.TotalPrice)
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	if update.TripDetails != nil {
		sets = append(sets,
			"trip_source = ?", "trip_destination = ?", "trip_passengers = ?",
			"trip_distance = ?", "trip_duration = ?")
		args = append(args,
			update.TripDetails.Source, update.TripDetails.Destination,
			update.TripDetails.Passengers, update.TripDetails.EstimatedDistance,
			update.TripDetails.EstimatedDuration)
	}

	args = append(args, id)
	query := `UPDATE bookings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	result, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr("failed to update booking fields", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// DeleteBooking removes the record unconditionally (admin operation,
// not subject to lifecycle rules).
func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return storageErr("failed to delete booking", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var startStr, endStr string
	var notes sql.NullString

	err := row.Scan(
		&b.ID, &b.UserID, &b.CarID,
		&b.CarDetails.Brand, &b.CarDetails.Model, &b.CarDetails.Type,
		&b.TripDetails.Source, &b.TripDetails.Destination, &b.TripDetails.Passengers,
		&b.TripDetails.EstimatedDistance, &b.TripDetails.EstimatedDuration,
		&startStr, &endStr, &b.Days, &b.TotalPrice, &notes, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Notes = notes.String
	if b.StartDate, err = time.Parse(models.DateLayout, startStr); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
	}
	if b.EndDate, err = time.Parse(models.DateLayout, endStr); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
	}
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("failed to query bookings", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr("failed to scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("failed to iterate bookings", err)
	}
	return bookings, nil
}
