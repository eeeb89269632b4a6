package config

import (
	"os"
	"path/filepath"
	"testing"

	"carrental/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "carrental"
  environment: "test"
database:
  path: "test.db"
cars:
  - id: "1"
    brand: "Toyota"
    model: "Camry"
    type: "Sedan"
    seating_capacity: 5
    fuel_type: "Petrol"
    transmission: "Automatic"
    price_per_day: 45
    available: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "carrental" {
		t.Errorf("expected app name carrental, got %s", cfg.App.Name)
	}

	if len(cfg.Cars) != 1 || cfg.Cars[0].ID != "1" {
		t.Errorf("expected 1 car with ID 1")
	}
	if cfg.Cars[0].PricePerDay != 45 {
		t.Errorf("expected price_per_day 45, got %v", cfg.Cars[0].PricePerDay)
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("CAR_DB_PATH", "/tmp/cars.db")

	yamlContent := `
database:
  path: "${CAR_DB_PATH}"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "/tmp/cars.db" {
		t.Errorf("expected expanded database path, got %s", cfg.Database.Path)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Path: "test.db"},
		API:      APIConfig{Enabled: true},
	}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if !cfg.API.HTTP.Enabled {
		t.Error("expected http enabled when api enabled")
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
	if cfg.Booking.MaxBookingDays != models.DefaultMaxBookingDays {
		t.Errorf("expected default max booking days, got %d", cfg.Booking.MaxBookingDays)
	}
}

func TestValidateCars(t *testing.T) {
	tests := []struct {
		name    string
		cars    []models.Car
		wantErr bool
	}{
		{
			name:    "valid fleet",
			cars:    []models.Car{{ID: "1", Brand: "Toyota", Model: "Camry", PricePerDay: 45}},
			wantErr: false,
		},
		{
			name:    "empty id",
			cars:    []models.Car{{ID: "", Brand: "Toyota", Model: "Camry"}},
			wantErr: true,
		},
		{
			name: "duplicate id",
			cars: []models.Car{
				{ID: "1", Brand: "Toyota", Model: "Camry"},
				{ID: "1", Brand: "Honda", Model: "CR-V"},
			},
			wantErr: true,
		},
		{
			name:    "negative price",
			cars:    []models.Car{{ID: "1", Brand: "Toyota", Model: "Camry", PricePerDay: -5}},
			wantErr: true,
		},
		{
			name:    "empty fleet",
			cars:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCars(tt.cars)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCars() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMissingDatabasePath(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing database path")
	}
}
