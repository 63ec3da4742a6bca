package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationSelect = `
	SELECT r.id, r.spot_id, r.user_id, r.vehicle_number, r.parked_at, r.left_at, r.cost,
	       COALESCE(s.lot_id, 0), COALESCE(l.name, '')
	FROM reservations AS r
	LEFT JOIN parking_spots AS s ON s.id = r.spot_id
	LEFT JOIN parking_lots AS l ON l.id = s.lot_id`

func scanReservation(row interface {
	Scan(dest ...any) error
}, res *domain.Reservation) error {
	return row.Scan(&res.ID, &res.SpotID, &res.UserID, &res.VehicleNumber,
		&res.ParkedAt, &res.LeftAt, &res.Cost, &res.LotID, &res.LotName)
}

// Allocate claims the lowest-id available spot with a conditional update: the
// subselect locks a candidate row (SKIP LOCKED so concurrent requests move on
// to the next free spot instead of queueing) and the status guard ensures a
// spot can never be claimed twice. Spot flip and reservation insert commit
// together.
func (r *pgReservationRepository) Allocate(ctx context.Context, lotID int, userID int, vehicleNumber string) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Allocate (begin tx): %w", err)
	}
	defer tx.Rollback()

	var spotID int
	claim := `UPDATE parking_spots SET status = 'O'
	           WHERE id = (
	               SELECT id FROM parking_spots
	               WHERE lot_id = $1 AND status = 'A'
	               ORDER BY id
	               LIMIT 1
	               FOR UPDATE SKIP LOCKED
	           ) AND status = 'A'
	           RETURNING id`
	err = tx.QueryRowContext(ctx, claim, lotID).Scan(&spotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoSpotAvailable
		}
		return nil, fmt.Errorf("ReservationRepository.Allocate (claiming spot): %w", err)
	}

	res := &domain.Reservation{SpotID: spotID, UserID: userID, VehicleNumber: vehicleNumber, LotID: lotID}
	insert := `INSERT INTO reservations (spot_id, user_id, vehicle_number)
	            VALUES ($1, $2, $3)
	            RETURNING id, parked_at, cost`
	err = tx.QueryRowContext(ctx, insert, spotID, userID, vehicleNumber).
		Scan(&res.ID, &res.ParkedAt, &res.Cost)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Allocate (inserting reservation): %w", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT name FROM parking_lots WHERE id = $1`, lotID).Scan(&res.LotName)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Allocate (reading lot name): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Allocate (commit): %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	query := reservationSelect + ` WHERE r.id = $1`
	if err := scanReservation(r.db.QueryRowContext(ctx, query, id), res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

// Finalize is guarded by left_at IS NULL so a reservation can only ever be
// finalized once; the spot flip commits in the same transaction. finalized
// reports false when the row was already released (or missing), in which
// case nothing was written.
func (r *pgReservationRepository) Finalize(ctx context.Context, id int, leftAt time.Time, cost float64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ReservationRepository.Finalize (begin tx): %w", err)
	}
	defer tx.Rollback()

	var spotID int
	update := `UPDATE reservations SET left_at = $1, cost = $2
	            WHERE id = $3 AND left_at IS NULL
	            RETURNING spot_id`
	err = tx.QueryRowContext(ctx, update, leftAt, cost, id).Scan(&spotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("ReservationRepository.Finalize: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE parking_spots SET status = 'A' WHERE id = $1`, spotID); err != nil {
		return false, fmt.Errorf("ReservationRepository.Finalize (freeing spot): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ReservationRepository.Finalize (commit): %w", err)
	}
	return true, nil
}

func (r *pgReservationRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := reservationSelect + ` WHERE r.user_id = $1 ORDER BY r.id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserID: %w", err)
	}
	return collectReservations(rows, "ReservationRepository.FindByUserID")
}

func (r *pgReservationRepository) FindAll(ctx context.Context, limit int) ([]domain.Reservation, error) {
	query := `SELECT r.id, r.spot_id, r.user_id, r.vehicle_number, r.parked_at, r.left_at, r.cost,
	                 COALESCE(s.lot_id, 0), COALESCE(l.name, ''), u.username
	           FROM reservations AS r
	           JOIN users AS u ON u.id = r.user_id
	           LEFT JOIN parking_spots AS s ON s.id = r.spot_id
	           LEFT JOIN parking_lots AS l ON l.id = s.lot_id
	           ORDER BY r.parked_at DESC
	           LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var list []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.SpotID, &res.UserID, &res.VehicleNumber,
			&res.ParkedAt, &res.LeftAt, &res.Cost, &res.LotID, &res.LotName, &res.Username); err != nil {
			return nil, fmt.Errorf("ReservationRepository.FindAll (scanning row): %w", err)
		}
		list = append(list, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindAll (rows error): %w", err)
	}
	return list, nil
}

func (r *pgReservationRepository) CountSince(ctx context.Context, userID int, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reservations WHERE user_id = $1 AND parked_at >= $2`
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountSince: %w", err)
	}
	return count, nil
}

func (r *pgReservationRepository) FindByUserSince(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error) {
	query := reservationSelect + ` WHERE r.user_id = $1 AND r.parked_at >= $2 ORDER BY r.parked_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserSince: %w", err)
	}
	return collectReservations(rows, "ReservationRepository.FindByUserSince")
}

func collectReservations(rows *sql.Rows, op string) ([]domain.Reservation, error) {
	defer rows.Close()
	var list []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, fmt.Errorf("%s (scanning row): %w", op, err)
		}
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s (rows error): %w", op, err)
	}
	return list, nil
}
