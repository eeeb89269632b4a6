package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/metrics"
	"carrental/internal/models"
	"carrental/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API.
type HTTPServer struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	cars     *service.CarService
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, cars *service.CarService, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, bookings: bookings, cars: cars, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/users/", srv.handleUserBookings)
	mux.HandleFunc("/api/v1/availability", srv.handleAvailabilityQuery)
	mux.HandleFunc("/api/v1/cars", srv.handleCars)
	mux.HandleFunc("/api/v1/cars/", srv.handleCarSubresource)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the root handler, auth and logging included.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type createBookingRequest struct {
	UserID      string             `json:"user_id"`
	CarID       string             `json:"car_id"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	TripDetails models.TripDetails `json:"trip_details"`
	Notes       string             `json:"notes"`
}

type updateBookingRequest struct {
	StartDate   *string             `json:"start_date"`
	EndDate     *string             `json:"end_date"`
	Notes       *string             `json:"notes"`
	TripDetails *models.TripDetails `json:"trip_details"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// POST /api/v1/bookings creates; GET lists every booking, newest first.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		bookings, err := s.bookings.GetAllBookings(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
		return
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.UserID == "" || body.CarID == "" {
		writeError(w, http.StatusBadRequest, "user_id and car_id are required")
		return
	}

	start, err := parseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), service.BookingDraft{
		UserID:      body.UserID,
		CarID:       body.CarID,
		TripDetails: body.TripDetails,
		StartDate:   start,
		EndDate:     end,
		Notes:       body.Notes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// GET/PATCH/DELETE /api/v1/bookings/{id} and POST /api/v1/bookings/{id}/status
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	id := strings.TrimSpace(parts[0])
	if id == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		s.handleStatusTransition(w, r, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case http.MethodPatch:
		s.handleUpdateBooking(w, r, id)
	case http.MethodDelete:
		if err := s.bookings.DeleteBooking(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleStatusTransition(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body statusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := s.bookings.UpdateStatus(r.Context(), id, body.Status); err != nil {
		writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request, id string) {
	var body updateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var update models.BookingUpdate
	if body.StartDate != nil {
		start, err := parseDate(*body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
			return
		}
		update.StartDate = &start
	}
	if body.EndDate != nil {
		end, err := parseDate(*body.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
			return
		}
		update.EndDate = &end
	}
	update.Notes = body.Notes
	update.TripDetails = body.TripDetails

	booking, err := s.bookings.UpdateBooking(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// GET /api/v1/users/{id}/bookings
func (s *HTTPServer) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "bookings" || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	bookings, err := s.bookings.GetUserBookings(r.Context(), parts[0])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// GET /api/v1/cars with optional filters.
func (s *HTTPServer) handleCars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cars, err := s.cars.FilterCars(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

// GET /api/v1/cars/{id}, /api/v1/cars/{id}/bookings, /api/v1/cars/{id}/availability
func (s *HTTPServer) handleCarSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/cars/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	carID := strings.TrimSpace(parts[0])
	if carID == "" {
		writeError(w, http.StatusBadRequest, "car id is required")
		return
	}

	switch {
	case len(parts) == 1:
		car, err := s.cars.GetCar(r.Context(), carID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, car)
	case len(parts) == 2 && parts[1] == "bookings":
		bookings, err := s.bookings.GetCarBookings(r.Context(), carID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
	case len(parts) == 2 && parts[1] == "availability":
		s.handleAvailability(w, r, carID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// GET /api/v1/availability?car_id=&start=&end=
func (s *HTTPServer) handleAvailabilityQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	carID := strings.TrimSpace(r.URL.Query().Get("car_id"))
	if carID == "" {
		writeError(w, http.StatusBadRequest, "car_id is required")
		return
	}
	s.handleAvailability(w, r, carID)
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request, carID string) {
	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return
	}
	end, err := parseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end; expected YYYY-MM-DD")
		return
	}

	available, err := s.bookings.CheckAvailability(r.Context(), carID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"car_id":    carID,
		"start":     start.Format(models.DateLayout),
		"end":       end.Format(models.DateLayout),
		"available": available,
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func filterFromQuery(r *http.Request) (models.CarFilter, error) {
	q := r.URL.Query()
	filter := models.CarFilter{
		FuelType:     strings.TrimSpace(q.Get("fuel_type")),
		Transmission: strings.TrimSpace(q.Get("transmission")),
	}

	if raw := q.Get("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid min_price: %s", raw)
		}
		filter.MinPrice = v
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid max_price: %s", raw)
		}
		filter.MaxPrice = v
	}
	if raw := q.Get("min_seats"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid min_seats: %s", raw)
		}
		filter.MinSeats = v
	}
	if raw := q.Get("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid available: %s", raw)
		}
		filter.AvailableOnly = v
	}

	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

// writeServiceError maps store sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrBookingNotFound), errors.Is(err, database.ErrCarNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDateConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidDateRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
