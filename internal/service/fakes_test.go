package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"gopkg.in/guregu/null.v4"
)

// memStore is an in-memory implementation of the repository interfaces with
// the same transactional semantics as the postgres layer: spot claims are
// serialized, releases are guarded by left_at, shrinks only remove free spots.
type memStore struct {
	mu           sync.Mutex
	users        map[int]*domain.User
	lots         map[int]*domain.ParkingLot
	spots        map[int]*domain.ParkingSpot
	reservations map[int]*domain.Reservation
	exports      map[int]*domain.ExportJob

	nextUserID int
	nextLotID  int
	nextSpotID int
	nextResID  int
	nextJobID  int
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int]*domain.User),
		lots:         make(map[int]*domain.ParkingLot),
		spots:        make(map[int]*domain.ParkingSpot),
		reservations: make(map[int]*domain.Reservation),
		exports:      make(map[int]*domain.ExportJob),
	}
}

func (m *memStore) addLot(name string, pricePerHour float64, totalSpots int) *domain.ParkingLot {
	lot, _ := m.CreateLot(context.Background(), &domain.ParkingLot{
		Name:         name,
		PricePerHour: pricePerHour,
		TotalSpots:   totalSpots,
	})
	return lot
}

// backdateReservation rewrites parked_at so billing windows can be simulated.
func (m *memStore) backdateReservation(id int, parkedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.reservations[id]; ok {
		res.ParkedAt = parkedAt
	}
}

func (m *memStore) sortedSpotIDs(lotID int, status domain.SpotStatus) []int {
	var ids []int
	for id, spot := range m.spots {
		if spot.LotID == lotID && spot.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// --- UserRepository ---

func (m *memStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return nil, repository.ErrDuplicateEntry
		}
	}
	m.nextUserID++
	stored := *user
	stored.ID = m.nextUserID
	stored.CreatedAt = time.Now().UTC()
	m.users[stored.ID] = &stored
	result := stored
	return &result, nil
}

func (m *memStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			result := *user
			return &result, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) FindByID(ctx context.Context, id int) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := *user
	return &result, nil
}

func (m *memStore) FindByRole(ctx context.Context, role string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, user := range m.users {
		if user.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var users []domain.User
	for _, id := range ids {
		users = append(users, *m.users[id])
	}
	return users, nil
}

// --- ParkingLotRepository ---

func (m *memStore) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLotID++
	stored := *lot
	stored.ID = m.nextLotID
	stored.CreatedAt = time.Now().UTC()
	m.lots[stored.ID] = &stored
	for i := 0; i < stored.TotalSpots; i++ {
		m.nextSpotID++
		m.spots[m.nextSpotID] = &domain.ParkingSpot{
			ID:     m.nextSpotID,
			LotID:  stored.ID,
			Status: domain.SpotAvailable,
		}
	}
	result := stored
	return &result, nil
}

func (m *memStore) FindLotByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := *lot
	return &result, nil
}

func (m *memStore) FindAllWithAvailability(ctx context.Context) ([]domain.LotAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availabilityLocked(false), nil
}

func (m *memStore) FindAvailable(ctx context.Context) ([]domain.LotAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availabilityLocked(true), nil
}

func (m *memStore) availabilityLocked(onlyAvailable bool) []domain.LotAvailability {
	var ids []int
	for id := range m.lots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var lots []domain.LotAvailability
	for _, id := range ids {
		available := len(m.sortedSpotIDs(id, domain.SpotAvailable))
		if onlyAvailable && available == 0 {
			continue
		}
		lots = append(lots, domain.LotAvailability{ParkingLot: *m.lots[id], AvailableSpots: available})
	}
	return lots
}

func (m *memStore) UpdateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.lots[lot.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	delta := lot.TotalSpots - current.TotalSpots
	if delta < 0 {
		free := m.sortedSpotIDs(lot.ID, domain.SpotAvailable)
		if len(free) < -delta {
			return nil, repository.ErrSpotsOccupied
		}
		for _, id := range free[:-delta] {
			delete(m.spots, id)
		}
	} else {
		for i := 0; i < delta; i++ {
			m.nextSpotID++
			m.spots[m.nextSpotID] = &domain.ParkingSpot{
				ID:     m.nextSpotID,
				LotID:  lot.ID,
				Status: domain.SpotAvailable,
			}
		}
	}

	stored := *lot
	stored.CreatedAt = current.CreatedAt
	m.lots[lot.ID] = &stored
	result := stored
	return &result, nil
}

func (m *memStore) DeleteLot(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lots[id]; !ok {
		return repository.ErrNotFound
	}
	if len(m.sortedSpotIDs(id, domain.SpotOccupied)) > 0 {
		return repository.ErrSpotsOccupied
	}
	for _, spotID := range m.sortedSpotIDs(id, domain.SpotAvailable) {
		delete(m.spots, spotID)
	}
	delete(m.lots, id)
	return nil
}

func (m *memStore) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.DashboardStats{Lots: len(m.lots)}
	for _, spot := range m.spots {
		stats.TotalSpots++
		if spot.Status == domain.SpotOccupied {
			stats.Occupied++
		}
	}
	return stats, nil
}

// --- ParkingSpotRepository ---

func (m *memStore) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, spot := range m.spots {
		if spot.LotID == lotID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	var spots []domain.ParkingSpot
	for _, id := range ids {
		spots = append(spots, *m.spots[id])
	}
	return spots, nil
}

func (m *memStore) CountAvailable(ctx context.Context, lotID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sortedSpotIDs(lotID, domain.SpotAvailable)), nil
}

// --- ReservationRepository ---

func (m *memStore) Allocate(ctx context.Context, lotID int, userID int, vehicleNumber string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	free := m.sortedSpotIDs(lotID, domain.SpotAvailable)
	if len(free) == 0 {
		return nil, repository.ErrNoSpotAvailable
	}
	spotID := free[0]
	m.spots[spotID].Status = domain.SpotOccupied

	m.nextResID++
	lotName := ""
	if lot, ok := m.lots[lotID]; ok {
		lotName = lot.Name
	}
	stored := &domain.Reservation{
		ID:            m.nextResID,
		SpotID:        spotID,
		UserID:        userID,
		VehicleNumber: vehicleNumber,
		LotID:         lotID,
		LotName:       lotName,
		ParkedAt:      time.Now().UTC(),
	}
	m.reservations[stored.ID] = stored
	result := *stored
	return &result, nil
}

func (m *memStore) FindReservationByID(ctx context.Context, id int) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := *res
	return &result, nil
}

func (m *memStore) Finalize(ctx context.Context, id int, leftAt time.Time, cost float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if res.LeftAt.Valid {
		return false, nil
	}
	res.LeftAt = null.TimeFrom(leftAt)
	res.Cost = cost
	if spot, ok := m.spots[res.SpotID]; ok {
		spot.Status = domain.SpotAvailable
	}
	return true, nil
}

func (m *memStore) FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationsLocked(func(r *domain.Reservation) bool { return r.UserID == userID }, 0), nil
}

func (m *memStore) FindAll(ctx context.Context, limit int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationsLocked(func(*domain.Reservation) bool { return true }, limit), nil
}

func (m *memStore) CountSince(ctx context.Context, userID int, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, res := range m.reservations {
		if res.UserID == userID && !res.ParkedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) FindByUserSince(ctx context.Context, userID int, since time.Time) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservationsLocked(func(r *domain.Reservation) bool {
		return r.UserID == userID && !r.ParkedAt.Before(since)
	}, 0), nil
}

func (m *memStore) reservationsLocked(match func(*domain.Reservation) bool, limit int) []domain.Reservation {
	var ids []int
	for id, res := range m.reservations {
		if match(res) {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	var result []domain.Reservation
	for _, id := range ids {
		result = append(result, *m.reservations[id])
	}
	return result
}

// --- ExportJobRepository ---

func (m *memStore) CreateExportJob(ctx context.Context, userID int) (*domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextJobID++
	stored := &domain.ExportJob{
		ID:        m.nextJobID,
		UserID:    userID,
		Status:    domain.ExportQueued,
		CreatedAt: time.Now().UTC(),
	}
	m.exports[stored.ID] = stored
	result := *stored
	return &result, nil
}

func (m *memStore) FindExportJobByID(ctx context.Context, id int) (*domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.exports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	result := *job
	return &result, nil
}

func (m *memStore) FindExportJobsByUserID(ctx context.Context, userID int) ([]domain.ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int
	for id, job := range m.exports {
		if job.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	var jobs []domain.ExportJob
	for _, id := range ids {
		jobs = append(jobs, *m.exports[id])
	}
	return jobs, nil
}

func (m *memStore) MarkProcessing(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.exports[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = domain.ExportProcessing
	return nil
}

func (m *memStore) MarkCompleted(ctx context.Context, id int, filePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.exports[id]
	if !ok {
		return repository.ErrNotFound
	}
	job.Status = domain.ExportCompleted
	job.FilePath = null.StringFrom(filePath)
	job.CompletedAt = null.TimeFrom(time.Now().UTC())
	return nil
}

// Interface adapters: the store methods above are named to avoid collisions,
// these thin views give each repository interface its expected method set.

type memLotRepo struct{ *memStore }

func (r memLotRepo) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	return r.CreateLot(ctx, lot)
}
func (r memLotRepo) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return r.FindLotByID(ctx, id)
}
func (r memLotRepo) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	return r.UpdateLot(ctx, lot)
}
func (r memLotRepo) Delete(ctx context.Context, id int) error {
	return r.DeleteLot(ctx, id)
}

type memReservationRepo struct{ *memStore }

func (r memReservationRepo) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	return r.FindReservationByID(ctx, id)
}

type memExportRepo struct{ *memStore }

func (r memExportRepo) Create(ctx context.Context, userID int) (*domain.ExportJob, error) {
	return r.CreateExportJob(ctx, userID)
}
func (r memExportRepo) FindByID(ctx context.Context, id int) (*domain.ExportJob, error) {
	return r.FindExportJobByID(ctx, id)
}
func (r memExportRepo) FindByUserID(ctx context.Context, userID int) ([]domain.ExportJob, error) {
	return r.FindExportJobsByUserID(ctx, userID)
}

// memCache is a map-backed cache.Cache that records invalidations.
type memCache struct {
	mu          sync.Mutex
	entries     map[string]string
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}

// fakeBroadcaster captures availability pushes.
type fakeBroadcaster struct {
	mu    sync.Mutex
	calls [][]domain.LotAvailability
}

func (b *fakeBroadcaster) BroadcastLotAvailability(lots []domain.LotAvailability) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, lots)
}

func (b *fakeBroadcaster) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}
