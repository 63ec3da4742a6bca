package repository

import (
	"context"
	"errors"
	"time"

	"parking_reservation/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// ErrNoSpotAvailable is returned by Allocate when the lot has no free spot.
var ErrNoSpotAvailable = errors.New("no available spot in lot")

// ErrSpotsOccupied rejects lot shrinks and deletes that would touch occupied
// spots; the operation is rolled back entirely.
var ErrSpotsOccupied = errors.New("occupied spots prevent the operation")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	FindByRole(ctx context.Context, role string) ([]domain.User, error)
}

type ParkingLotRepository interface {
	// Create inserts the lot and its TotalSpots available spot rows in one
	// transaction.
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAllWithAvailability(ctx context.Context) ([]domain.LotAvailability, error)
	// FindAvailable returns only lots that currently have at least one
	// available spot (the user-facing view).
	FindAvailable(ctx context.Context) ([]domain.LotAvailability, error)
	// Update writes the lot fields and reconciles the spot inventory with
	// lot.TotalSpots in one transaction. Growing inserts available spots;
	// shrinking removes only available spots, lowest id first, and fails
	// with ErrSpotsOccupied when not enough are available. Nothing is
	// applied partially.
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	// Delete removes the lot and its spots; ErrSpotsOccupied while any spot
	// is occupied.
	Delete(ctx context.Context, id int) error
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

type ParkingSpotRepository interface {
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error)
	CountAvailable(ctx context.Context, lotID int) (int, error)
}

type ReservationRepository interface {
	// Allocate atomically claims the lowest-id available spot in the lot,
	// marks it occupied and inserts the reservation row, all in one
	// transaction. ErrNoSpotAvailable when the lot is full.
	Allocate(ctx context.Context, lotID int, userID int, vehicleNumber string) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	// Finalize writes left_at and cost and frees the spot in one
	// transaction. A reservation already released is left untouched and
	// reported via the finalized return value.
	Finalize(ctx context.Context, id int, leftAt time.Time, cost float64) (finalized bool, err error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error)
	FindAll(ctx context.Context, limit int) ([]domain.Reservation, error)
	CountSince(ctx context.Context, userID int, since time.Time) (int, error)
	FindByUserSince(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error)
}

type ExportJobRepository interface {
	Create(ctx context.Context, userID int) (*domain.ExportJob, error)
	FindByID(ctx context.Context, id int) (*domain.ExportJob, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.ExportJob, error)
	MarkProcessing(ctx context.Context, id int) error
	MarkCompleted(ctx context.Context, id int, filePath string) error
}
