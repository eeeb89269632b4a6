package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"carrental/internal/api"
	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/export"
	"carrental/internal/logging"
	"carrental/internal/metrics"
	"carrental/internal/models"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, cars, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, cars, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, catalogCache := initCatalogCache(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	exporter := export.NewExporter(db, cfg.Exports.Path, &logger)
	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	exportWorker := worker.NewExportWorker(exporter, retryPolicy, &logger)
	go exportWorker.Start(ctx)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, catalogCache, &logger)

	bookingService := service.NewBookingService(db, eventBus, exportWorker, cfg.Booking.MaxBookingDays, &logger)
	carService := service.NewCarService(db, catalogCache, &logger)

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		startMetricsServer(cfg, &logger)
	}

	apiServer := api.NewHTTPServer(cfg.API, bookingService, carService, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown error")
	}

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Car, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	cars, err := loadFleet(cfg, &logger)
	if err != nil {
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, cars, logger, closer, nil
}

// loadFleet reads the car catalog from CARS_PATH when set, otherwise
// falls back to the cars embedded in the main config.
func loadFleet(cfg *config.Config, logger *zerolog.Logger) ([]models.Car, error) {
	carsPath := os.Getenv("CARS_PATH")
	if carsPath == "" {
		if len(cfg.Cars) == 0 {
			return nil, fmt.Errorf("no cars configured: set CARS_PATH or the cars section in config")
		}
		return cfg.Cars, nil
	}

	carsData, err := os.ReadFile(carsPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Ошибка чтения %s", carsPath)
		return nil, err
	}

	var carsConfig struct {
		Cars []models.Car `yaml:"cars"`
	}
	if err := yaml.Unmarshal(carsData, &carsConfig); err != nil {
		logger.Error().Err(err).Msg("Ошибка парсинга cars.yaml")
		return nil, err
	}

	if err := config.ValidateCars(carsConfig.Cars); err != nil {
		logger.Error().Err(err).Msg("Cars validation failed")
		return nil, err
	}

	return carsConfig.Cars, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(cfg *config.Config, cars []models.Car, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	db.SetCars(cars)
	return db, nil
}

func initCatalogCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.CatalogCache) {
	ttl := time.Duration(cfg.Booking.CatalogCacheTTL) * time.Second

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primary := repository.NewRedisCatalogCache(redisClient, ttl)
	fallback := repository.NewMemoryCatalogCache(ttl)
	return redisClient, repository.NewFailoverCatalogCache(primary, fallback, logger)
}

// subscribeBookingEvents invalidates the catalog cache on lifecycle
// changes and logs every event for the audit trail.
func subscribeBookingEvents(bus *events.EventBus, cache domain.CatalogCache, logger *zerolog.Logger) {
	if bus == nil {
		return
	}

	audit := func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return err
		}
		logger.Info().
			Str("event_type", ev.Type).
			Str("booking_id", payload.BookingID).
			Str("car_id", payload.CarID).
			Str("status", payload.Status).
			Msg("booking event")
		return nil
	}

	invalidate := func(ev *events.Event) error {
		if cache == nil {
			return nil
		}
		return cache.Invalidate(context.Background())
	}

	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingReady,
		events.EventBookingStarted,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
	} {
		bus.Subscribe(eventType, audit)
		bus.Subscribe(eventType, invalidate)
	}
}

func startMetricsServer(cfg *config.Config, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Prometheus metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}
