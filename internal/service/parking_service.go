package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_reservation/internal/cache"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

// ErrInvalidInput marks validation failures rejected before any mutation.
var ErrInvalidInput = errors.New("invalid input")

// ParkingService owns lot management and the cached availability views.
type ParkingService struct {
	lotRepo  repository.ParkingLotRepository
	spotRepo repository.ParkingSpotRepository
	cache    cache.Cache
	notifier AvailabilityBroadcaster
}

func NewParkingService(
	lotRepo repository.ParkingLotRepository,
	spotRepo repository.ParkingSpotRepository,
	c cache.Cache,
	notifier AvailabilityBroadcaster,
) *ParkingService {
	return &ParkingService{
		lotRepo:  lotRepo,
		spotRepo: spotRepo,
		cache:    c,
		notifier: notifier,
	}
}

func (s *ParkingService) CreateLot(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	if dto.PricePerHour <= 0 {
		return nil, fmt.Errorf("%w: price per hour must be positive", ErrInvalidInput)
	}
	if dto.TotalSpots <= 0 {
		return nil, fmt.Errorf("%w: total spots must be positive", ErrInvalidInput)
	}

	lot := &domain.ParkingLot{
		Name:         dto.Name,
		PricePerHour: dto.PricePerHour,
		Address:      dto.Address,
		PinCode:      dto.PinCode,
		TotalSpots:   dto.TotalSpots,
	}
	created, err := s.lotRepo.Create(ctx, lot)
	if err != nil {
		return nil, err
	}
	s.bustLotCaches(ctx)
	s.broadcastAvailability(ctx)
	return created, nil
}

func (s *ParkingService) GetLot(ctx context.Context, id int) (*domain.LotAvailability, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	available, err := s.spotRepo.CountAvailable(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.LotAvailability{ParkingLot: *lot, AvailableSpots: available}, nil
}

// ListLotsAdmin serves the admin lot view: every lot with its availability,
// cache first.
func (s *ParkingService) ListLotsAdmin(ctx context.Context) ([]domain.LotAvailability, error) {
	if lots, ok := s.cachedLots(ctx, cache.KeyAdminLots); ok {
		return lots, nil
	}
	lots, err := s.lotRepo.FindAllWithAvailability(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheLots(ctx, cache.KeyAdminLots, lots, cache.AdminLotsTTL)
	return lots, nil
}

// ListLotsUser serves the user view: only lots with at least one available
// spot, cache first.
func (s *ParkingService) ListLotsUser(ctx context.Context) ([]domain.LotAvailability, error) {
	if lots, ok := s.cachedLots(ctx, cache.KeyUserLots); ok {
		return lots, nil
	}
	lots, err := s.lotRepo.FindAvailable(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheLots(ctx, cache.KeyUserLots, lots, cache.UserLotsTTL)
	return lots, nil
}

func (s *ParkingService) UpdateLot(ctx context.Context, id int, dto domain.ParkingLotUpdateDTO) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		lot.Name = *dto.Name
	}
	if dto.PricePerHour != nil {
		if *dto.PricePerHour <= 0 {
			return nil, fmt.Errorf("%w: price per hour must be positive", ErrInvalidInput)
		}
		lot.PricePerHour = *dto.PricePerHour
	}
	if dto.Address != nil {
		lot.Address = *dto.Address
	}
	if dto.PinCode != nil {
		lot.PinCode = *dto.PinCode
	}
	if dto.TotalSpots != nil {
		if *dto.TotalSpots <= 0 {
			return nil, fmt.Errorf("%w: total spots must be positive", ErrInvalidInput)
		}
		lot.TotalSpots = *dto.TotalSpots
	}

	updated, err := s.lotRepo.Update(ctx, lot)
	if err != nil {
		return nil, err
	}
	s.bustLotCaches(ctx)
	s.broadcastAvailability(ctx)
	return updated, nil
}

func (s *ParkingService) DeleteLot(ctx context.Context, id int) error {
	if err := s.lotRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.bustLotCaches(ctx)
	s.broadcastAvailability(ctx)
	return nil
}

func (s *ParkingService) ListSpots(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	if _, err := s.lotRepo.FindByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.spotRepo.FindByLotID(ctx, lotID)
}

func (s *ParkingService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if raw, ok, err := s.cache.Get(ctx, cache.KeyAdminDashboard); err != nil {
		log.Printf("cache read failed for %s: %v", cache.KeyAdminDashboard, err)
	} else if ok {
		stats := &domain.DashboardStats{}
		if err := json.Unmarshal([]byte(raw), stats); err == nil {
			return stats, nil
		}
	}

	stats, err := s.lotRepo.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, cache.KeyAdminDashboard, string(data), cache.AdminDashboardTTL); err != nil {
			log.Printf("cache write failed for %s: %v", cache.KeyAdminDashboard, err)
		}
	}
	return stats, nil
}

func (s *ParkingService) cachedLots(ctx context.Context, key string) ([]domain.LotAvailability, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("cache read failed for %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var lots []domain.LotAvailability
	if err := json.Unmarshal([]byte(raw), &lots); err != nil {
		log.Printf("discarding undecodable cache entry %s: %v", key, err)
		return nil, false
	}
	return lots, true
}

func (s *ParkingService) cacheLots(ctx context.Context, key string, lots []domain.LotAvailability, ttl time.Duration) {
	data, err := json.Marshal(lots)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), ttl); err != nil {
		log.Printf("cache write failed for %s: %v", key, err)
	}
}

// bustLotCaches invalidates every cached availability view. It runs
// synchronously so the views are already invalid when the mutating call
// returns.
func (s *ParkingService) bustLotCaches(ctx context.Context) {
	err := s.cache.Invalidate(ctx, cache.KeyAdminLots, cache.KeyAdminDashboard, cache.KeyUserLots)
	if err != nil {
		log.Printf("cache invalidation failed: %v", err)
	}
}

func (s *ParkingService) broadcastAvailability(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	lots, err := s.lotRepo.FindAvailable(ctx)
	if err != nil {
		log.Printf("availability broadcast skipped: %v", err)
		return
	}
	s.notifier.BroadcastLotAvailability(lots)
}
