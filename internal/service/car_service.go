package service

import (
	"context"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/rs/zerolog"
)

// CarService serves catalog reads. Listings go through the catalog
// cache when one is configured, falling back to the fleet snapshot
// held by the store.
type CarService struct {
	repo   domain.Repository
	cache  domain.CatalogCache
	logger *zerolog.Logger
}

func NewCarService(repo domain.Repository, cache domain.CatalogCache, logger *zerolog.Logger) *CarService {
	return &CarService{repo: repo, cache: cache, logger: logger}
}

func (s *CarService) ListCars(ctx context.Context) ([]models.Car, error) {
	if s.cache != nil {
		cars, err := s.cache.GetCatalog(ctx)
		if err == nil && len(cars) > 0 {
			return cars, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache read failed")
		}
	}

	cars := s.repo.GetCars()
	if s.cache != nil && len(cars) > 0 {
		if err := s.cache.SetCatalog(ctx, cars); err != nil {
			s.logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return cars, nil
}

func (s *CarService) GetCar(ctx context.Context, id string) (models.Car, error) {
	return s.repo.GetCar(id)
}

// FilterCars returns catalog cars matching every set filter field.
func (s *CarService) FilterCars(ctx context.Context, filter models.CarFilter) ([]models.Car, error) {
	cars, err := s.ListCars(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Car, 0, len(cars))
	for _, car := range cars {
		if filter.Matches(car) {
			filtered = append(filtered, car)
		}
	}
	return filtered, nil
}
