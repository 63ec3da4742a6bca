package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_reservation/internal/cache"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var ErrInvalidVehicleNumber = fmt.Errorf("%w: vehicle number must match format AB12CD3456", ErrInvalidInput)
var ErrInvalidQuantity = fmt.Errorf("%w: quantity must be between %d and %d",
	ErrInvalidInput, domain.MinReserveQuantity, domain.MaxReserveQuantity)

// ReservationService is the allocation and release/costing engine.
type ReservationService struct {
	resRepo  repository.ReservationRepository
	lotRepo  repository.ParkingLotRepository
	cache    cache.Cache
	notifier AvailabilityBroadcaster
}

func NewReservationService(
	resRepo repository.ReservationRepository,
	lotRepo repository.ParkingLotRepository,
	c cache.Cache,
	notifier AvailabilityBroadcaster,
) *ReservationService {
	return &ReservationService{
		resRepo:  resRepo,
		lotRepo:  lotRepo,
		cache:    c,
		notifier: notifier,
	}
}

// Reserve allocates up to dto.Quantity spots in the lot, one reservation per
// spot, claiming the lowest-id available spot each time. The result may be
// shorter than requested when the lot runs out; zero allocations is reported
// as repository.ErrNoSpotAvailable.
func (s *ReservationService) Reserve(ctx context.Context, principal domain.Principal, dto domain.ReserveDTO) ([]domain.Reservation, error) {
	quantity := dto.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < domain.MinReserveQuantity || quantity > domain.MaxReserveQuantity {
		return nil, ErrInvalidQuantity
	}
	vehicle := domain.NormalizeVehicleNumber(dto.VehicleNumber)
	if !domain.ValidVehicleNumber(vehicle) {
		return nil, ErrInvalidVehicleNumber
	}
	if _, err := s.lotRepo.FindByID(ctx, dto.LotID); err != nil {
		return nil, err
	}

	var created []domain.Reservation
	for i := 0; i < quantity; i++ {
		res, err := s.resRepo.Allocate(ctx, dto.LotID, principal.UserID, vehicle)
		if err != nil {
			if errors.Is(err, repository.ErrNoSpotAvailable) {
				break
			}
			if len(created) == 0 {
				return nil, err
			}
			log.Printf("allocation stopped after %d of %d reservations: %v", len(created), quantity, err)
			break
		}
		created = append(created, *res)
	}
	if len(created) == 0 {
		return nil, repository.ErrNoSpotAvailable
	}

	s.bustLotCaches(ctx)
	s.broadcastAvailability(ctx)
	return created, nil
}

// Release finalizes the reservation: left_at is set, the cost is computed
// from the lot's hourly rate with a one-hour minimum, and the spot is freed.
// Releasing an already-released reservation returns the finalized record
// unchanged. A reservation owned by someone else is reported as not found.
func (s *ReservationService) Release(ctx context.Context, principal domain.Principal, reservationID int) (*domain.Reservation, error) {
	res, err := s.resRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != principal.UserID {
		return nil, repository.ErrNotFound
	}
	if res.LeftAt.Valid {
		return res, nil
	}

	lot, err := s.lotRepo.FindByID(ctx, res.LotID)
	if err != nil {
		return nil, fmt.Errorf("loading lot for billing: %w", err)
	}

	now := time.Now().UTC()
	hours := now.Sub(res.ParkedAt).Hours()
	if hours < 1 {
		hours = 1 // minimum billing: any stay costs at least one hour
	}
	cost := hours * lot.PricePerHour

	finalized, err := s.resRepo.Finalize(ctx, res.ID, now, cost)
	if err != nil {
		return nil, err
	}
	if !finalized {
		// Lost a race with a concurrent release; serve the stored record.
		return s.resRepo.FindByID(ctx, res.ID)
	}

	res.LeftAt = null.TimeFrom(now)
	res.Cost = cost

	s.bustLotCaches(ctx)
	s.broadcastAvailability(ctx)
	return res, nil
}

func (s *ReservationService) ListUserReservations(ctx context.Context, principal domain.Principal) ([]domain.Reservation, error) {
	return s.resRepo.FindByUserID(ctx, principal.UserID)
}

func (s *ReservationService) ListAllReservations(ctx context.Context, limit int) ([]domain.Reservation, error) {
	return s.resRepo.FindAll(ctx, limit)
}

func (s *ReservationService) bustLotCaches(ctx context.Context) {
	err := s.cache.Invalidate(ctx, cache.KeyAdminLots, cache.KeyAdminDashboard, cache.KeyUserLots)
	if err != nil {
		log.Printf("cache invalidation failed: %v", err)
	}
}

func (s *ReservationService) broadcastAvailability(ctx context.Context) {
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
