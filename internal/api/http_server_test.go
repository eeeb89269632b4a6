package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/models"
	"carrental/internal/service"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, cfg config.APIConfig) (*HTTPServer, *httptest.Server) {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	db.SetCars([]models.Car{
		{ID: "C1", Brand: "Toyota", Model: "Camry", Type: "sedan", SeatingCapacity: 5, FuelType: "petrol", Transmission: "automatic", PricePerDay: 45, Available: true},
		{ID: "C2", Brand: "Honda", Model: "CR-V", Type: "suv", SeatingCapacity: 5, FuelType: "diesel", Transmission: "manual", PricePerDay: 50, Available: true},
	})

	bookings := service.NewBookingService(db, nil, nil, 0, &logger)
	cars := service.NewCarService(db, nil, &logger)

	server := NewHTTPServer(cfg, bookings, cars, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func openConfig() config.APIConfig {
	// API surface up, auth off.
	return config.APIConfig{}
}

func createBooking(t *testing.T, ts *httptest.Server, carID, start, end string) models.Booking {
	t.Helper()

	payload := fmt.Sprintf(`{"user_id":"U1","car_id":"%s","start_date":"%s","end_date":"%s","trip_details":{"source":"Airport","destination":"Downtown","passengers":2}}`, carID, start, end)
	resp, err := http.Post(ts.URL+"/api/v1/bookings", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var booking models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return booking
}

func TestCreateBooking(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	booking := createBooking(t, ts, "C2", "2026-07-01", "2026-07-03")

	if booking.ID == "" {
		t.Fatalf("expected generated booking id")
	}
	if booking.Days != 2 {
		t.Fatalf("expected 2 days, got %d", booking.Days)
	}
	if booking.TotalPrice != 100 {
		t.Fatalf("expected total price 100, got %v", booking.TotalPrice)
	}
	if booking.Status != models.StatusConfirmed {
		t.Fatalf("expected status confirmed, got %s", booking.Status)
	}
	if booking.CarDetails.Brand != "Honda" {
		t.Fatalf("expected car snapshot Honda, got %s", booking.CarDetails.Brand)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	createBooking(t, ts, "C1", "2026-07-10", "2026-07-12")

	// Touching endpoint conflicts as well.
	payload := `{"user_id":"U2","car_id":"C1","start_date":"2026-07-12","end_date":"2026-07-14"}`
	resp, err := http.Post(ts.URL+"/api/v1/bookings", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateBookingInvalidRange(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	payload := `{"user_id":"U1","car_id":"C1","start_date":"2026-07-10","end_date":"2026-07-01"}`
	resp, err := http.Post(ts.URL+"/api/v1/bookings", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateBookingUnknownCar(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	payload := `{"user_id":"U1","car_id":"NOPE","start_date":"2026-07-01","end_date":"2026-07-02"}`
	resp, err := http.Post(ts.URL+"/api/v1/bookings", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetBooking(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	resp, err := http.Get(ts.URL + "/api/v1/bookings/" + booking.ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ID != booking.ID {
		t.Fatalf("expected booking %s, got %s", booking.ID, got.ID)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	resp, err := http.Get(ts.URL + "/api/v1/bookings/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStatusTransition(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	resp, err := http.Post(ts.URL+"/api/v1/bookings/"+booking.ID+"/status", "application/json",
		bytes.NewBufferString(`{"status":"ready"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Status != models.StatusReady {
		t.Fatalf("expected status ready, got %s", got.Status)
	}
}

func TestStatusTransitionInvalid(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	// confirmed -> completed skips the lifecycle.
	resp, err := http.Post(ts.URL+"/api/v1/bookings/"+booking.ID+"/status", "application/json",
		bytes.NewBufferString(`{"status":"completed"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestUpdateBookingNotes(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/v1/bookings/"+booking.ID,
		bytes.NewBufferString(`{"notes":"child seat"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Notes != "child seat" {
		t.Fatalf("expected updated notes, got %q", got.Notes)
	}
	if got.Days != booking.Days {
		t.Fatalf("expected days unchanged, got %d", got.Days)
	}
}

func TestUpdateBookingDatesRecomputesPrice(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C2", "2026-07-01", "2026-07-03")

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/v1/bookings/"+booking.ID,
		bytes.NewBufferString(`{"end_date":"2026-07-05"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got models.Booking
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Days != 4 {
		t.Fatalf("expected 4 days, got %d", got.Days)
	}
	if got.TotalPrice != 200 {
		t.Fatalf("expected total price 200, got %v", got.TotalPrice)
	}
}

func TestDeleteBooking(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	booking := createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/bookings/"+booking.ID, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	getResp, err := http.Get(ts.URL + "/api/v1/bookings/" + booking.ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getResp.StatusCode)
	}
}

func TestUserBookings(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")
	createBooking(t, ts, "C2", "2026-07-01", "2026-07-02")

	resp, err := http.Get(ts.URL + "/api/v1/users/U1/bookings")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(body.Bookings))
	}
}

func TestCarBookings(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	createBooking(t, ts, "C1", "2026-07-05", "2026-07-06")
	createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")

	resp, err := http.Get(ts.URL + "/api/v1/cars/C1/bookings")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(body.Bookings))
	}
	// Ordered by start date.
	if !body.Bookings[0].StartDate.Before(body.Bookings[1].StartDate) {
		t.Fatalf("expected bookings sorted by start date")
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	createBooking(t, ts, "C1", "2026-07-10", "2026-07-12")

	check := func(start, end string) bool {
		t.Helper()
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/cars/C1/availability?start=%s&end=%s", ts.URL, start, end))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var body struct {
			Available bool `json:"available"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return body.Available
	}

	if check("2026-07-11", "2026-07-13") {
		t.Fatalf("expected overlap to be unavailable")
	}
	if check("2026-07-12", "2026-07-14") {
		t.Fatalf("expected touching endpoint to be unavailable")
	}
	if !check("2026-07-13", "2026-07-14") {
		t.Fatalf("expected free range to be available")
	}
}

func TestListAllBookings(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	createBooking(t, ts, "C1", "2026-07-01", "2026-07-02")
	createBooking(t, ts, "C2", "2026-07-05", "2026-07-06")

	resp, err := http.Get(ts.URL + "/api/v1/bookings")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(body.Bookings))
	}
}

func TestStorageDownReturns503(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	db.SetCars([]models.Car{{ID: "C1", Brand: "Toyota", Model: "Camry", PricePerDay: 45, Available: true}})

	bookings := service.NewBookingService(db, nil, nil, 0, &logger)
	cars := service.NewCarService(db, nil, &logger)
	server := NewHTTPServer(openConfig(), bookings, cars, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	resp, err := http.Get(ts.URL + "/api/v1/bookings/some-id")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with storage down, got %d", resp.StatusCode)
	}

	payload := `{"user_id":"U1","car_id":"C1","start_date":"2026-07-01","end_date":"2026-07-02"}`
	createResp, err := http.Post(ts.URL+"/api/v1/bookings", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with storage down, got %d", createResp.StatusCode)
	}
}

func TestAvailabilityQueryEndpoint(t *testing.T) {
	_, ts := newTestServer(t, openConfig())
	createBooking(t, ts, "C1", "2026-07-10", "2026-07-12")

	resp, err := http.Get(ts.URL + "/api/v1/availability?car_id=C1&start=2026-07-11&end=2026-07-13")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Available bool   `json:"available"`
		CarID     string `json:"car_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Available {
		t.Fatalf("expected overlap to be unavailable")
	}
	if body.CarID != "C1" {
		t.Fatalf("expected car_id C1, got %s", body.CarID)
	}

	missing, err := http.Get(ts.URL + "/api/v1/availability?start=2026-07-11&end=2026-07-13")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without car_id, got %d", missing.StatusCode)
	}
}

func TestCarsListWithFilter(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	resp, err := http.Get(ts.URL + "/api/v1/cars?fuel_type=diesel")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Cars []models.Car `json:"cars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Cars) != 1 || body.Cars[0].ID != "C2" {
		t.Fatalf("expected only C2, got %+v", body.Cars)
	}
}

func TestCarsListInvalidFilter(t *testing.T) {
	_, ts := newTestServer(t, openConfig())

	resp, err := http.Get(ts.URL + "/api/v1/cars?max_price=abc")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthzBypassesAuth(t *testing.T) {
	cfg := config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{{Key: "k1", Extra: "s1"}},
		},
	}
	_, ts := newTestServer(t, cfg)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
