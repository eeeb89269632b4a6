package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"carrental/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	db  *sql.DB
	log zerolog.Logger

	mu         sync.RWMutex
	carsCache  map[string]models.Car
	sortedCars []models.Car

	// carLocks serializes check-then-insert per car id so two
	// overlapping creates cannot both pass the availability check.
	carLocks sync.Map // map[string]*sync.Mutex
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// A pooled second connection would see an empty in-memory db.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "database").Logger()
	}
	log.Info().Str("path", path).Msg("database initialized")

	return &DB{db: db, log: log, carsCache: make(map[string]models.Car)}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            car_id TEXT NOT NULL,
            car_brand TEXT NOT NULL,
            car_model TEXT NOT NULL,
            car_type TEXT,
            trip_source TEXT,
            trip_destination TEXT,
            trip_passengers INTEGER NOT NULL DEFAULT 0,
            trip_distance REAL NOT NULL DEFAULT 0,
            trip_duration REAL NOT NULL DEFAULT 0,
            start_date DATETIME NOT NULL,
            end_date DATETIME NOT NULL,
            days INTEGER NOT NULL,
            total_price REAL NOT NULL,
            notes TEXT,
            status TEXT NOT NULL DEFAULT 'confirmed',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_car_id ON bookings(car_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start_date ON bookings(start_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetCars installs the fleet snapshot used for price lookups and
// availability checks. Order of the slice is preserved for listings.
func (db *DB) SetCars(cars []models.Car) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.carsCache = make(map[string]models.Car, len(cars))
	for _, car := range cars {
		db.carsCache[car.ID] = car
	}
	db.sortedCars = append([]models.Car(nil), cars...)
}

// GetCars returns the fleet snapshot in configured order.
func (db *DB) GetCars() []models.Car {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return append([]models.Car(nil), db.sortedCars...)
}

// GetCar returns a fleet car by id.
func (db *DB) GetCar(id string) (models.Car, error) {
	db.mu.RLock()
	car, ok := db.carsCache[id]
	db.mu.RUnlock()
	if !ok {
		return models.Car{}, ErrCarNotFound
	}
	return car, nil
}

func (db *DB) carLock(carID string) *sync.Mutex {
	if v, ok := db.carLocks.Load(carID); ok {
		return v.(*sync.Mutex)
	}
	v, _ := db.carLocks.LoadOrStore(carID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (db *DB) Close() error {
	return db.db.Close()
}
