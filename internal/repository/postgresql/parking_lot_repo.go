package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/lib/pq"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Create (begin tx): %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO parking_lots (name, price_per_hour, address, pin_code, total_spots)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, query, lot.Name, lot.PricePerHour, lot.Address, lot.PinCode, lot.TotalSpots).
		Scan(&lot.ID, &lot.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: lot name '%s' already exists", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO parking_spots (lot_id, status) SELECT $1, 'A' FROM generate_series(1, $2)`,
		lot.ID, lot.TotalSpots)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Create (seeding spots): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Create (commit): %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	query := `SELECT id, name, price_per_hour, COALESCE(address, ''), COALESCE(pin_code, ''), total_spots, created_at
	           FROM parking_lots WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&lot.ID, &lot.Name, &lot.PricePerHour, &lot.Address, &lot.PinCode, &lot.TotalSpots, &lot.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAllWithAvailability(ctx context.Context) ([]domain.LotAvailability, error) {
	query := `SELECT l.id, l.name, l.price_per_hour, COALESCE(l.address, ''), COALESCE(l.pin_code, ''), l.total_spots, l.created_at,
	                 COUNT(s.id) FILTER (WHERE s.status = 'A') AS available_spots
	           FROM parking_lots AS l
	           LEFT JOIN parking_spots AS s ON s.lot_id = l.id
	           GROUP BY l.id
	           ORDER BY l.id`
	return r.queryAvailability(ctx, query)
}

func (r *pgParkingLotRepository) FindAvailable(ctx context.Context) ([]domain.LotAvailability, error) {
	query := `SELECT l.id, l.name, l.price_per_hour, COALESCE(l.address, ''), COALESCE(l.pin_code, ''), l.total_spots, l.created_at,
	                 COUNT(s.id) AS available_spots
	           FROM parking_lots AS l
	           JOIN parking_spots AS s ON s.lot_id = l.id AND s.status = 'A'
	           GROUP BY l.id
	           ORDER BY l.id`
	return r.queryAvailability(ctx, query)
}

func (r *pgParkingLotRepository) queryAvailability(ctx context.Context, query string) ([]domain.LotAvailability, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository availability query: %w", err)
	}
	defer rows.Close()

	var lots []domain.LotAvailability
	for rows.Next() {
		var lot domain.LotAvailability
		if err := rows.Scan(&lot.ID, &lot.Name, &lot.PricePerHour, &lot.Address, &lot.PinCode,
			&lot.TotalSpots, &lot.CreatedAt, &lot.AvailableSpots); err != nil {
			return nil, fmt.Errorf("ParkingLotRepository availability query (scanning row): %w", err)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository availability query (rows error): %w", err)
	}
	return lots, nil
}

// Update writes the lot fields and reconciles the spot inventory with
// lot.TotalSpots in a single transaction. Shrinks remove available spots,
// lowest id first; occupied spots are never removed.
func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Update (begin tx): %w", err)
	}
	defer tx.Rollback()

	var currentTotal int
	err = tx.QueryRowContext(ctx, `SELECT total_spots FROM parking_lots WHERE id = $1 FOR UPDATE`, lot.ID).
		Scan(&currentTotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update (locking lot): %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parking_lots SET name = $1, price_per_hour = $2, address = $3, pin_code = $4, total_spots = $5 WHERE id = $6`,
		lot.Name, lot.PricePerHour, lot.Address, lot.PinCode, lot.TotalSpots, lot.ID)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}

	delta := lot.TotalSpots - currentTotal
	switch {
	case delta > 0:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO parking_spots (lot_id, status) SELECT $1, 'A' FROM generate_series(1, $2)`,
			lot.ID, delta)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.Update (adding spots): %w", err)
		}
	case delta < 0:
		result, err := tx.ExecContext(ctx,
			`DELETE FROM parking_spots WHERE id IN (
			    SELECT id FROM parking_spots WHERE lot_id = $1 AND status = 'A' ORDER BY id LIMIT $2
			 )`, lot.ID, -delta)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.Update (removing spots): %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.Update (checking rows affected): %w", err)
		}
		if removed < int64(-delta) {
			return nil, fmt.Errorf("%w: only %d available spots for a shrink of %d", repository.ErrSpotsOccupied, removed, -delta)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Update (commit): %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (begin tx): %w", err)
	}
	defer tx.Rollback()

	var occupied int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_spots WHERE lot_id = $1 AND status = 'O'`, id).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (counting occupied): %w", err)
	}
	if occupied > 0 {
		return fmt.Errorf("%w: lot %d still has %d occupied spots", repository.ErrSpotsOccupied, id, occupied)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (checking rows affected): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ParkingLotRepository.Delete (commit): %w", err)
	}
	return nil
}

func (r *pgParkingLotRepository) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}
	query := `SELECT
	            (SELECT COUNT(*) FROM parking_lots),
	            (SELECT COUNT(*) FROM parking_spots),
	            (SELECT COUNT(*) FROM parking_spots WHERE status = 'O')`
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.Lots, &stats.TotalSpots, &stats.Occupied)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.DashboardStats: %w", err)
	}
	return stats, nil
}
