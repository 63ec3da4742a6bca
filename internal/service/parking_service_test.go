package service

import (
	"context"
	"testing"

	"parking_reservation/internal/cache"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParkingFixture(t *testing.T) (*ParkingService, *memStore, cache.Cache) {
	t.Helper()
	store := newMemStore()
	mr := miniredis.RunT(t)
	c := cache.NewRedisCache(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { c.Close() })
	svc := NewParkingService(memLotRepo{store}, store, c, &fakeBroadcaster{})
	return svc, store, c
}

func TestCreateLotProvisionsSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, domain.ParkingLotDTO{
		Name:         "Central",
		PricePerHour: 40,
		TotalSpots:   5,
		PinCode:      "560001",
	})
	require.NoError(t, err)
	assert.NotZero(t, lot.ID)

	spots, err := store.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	require.Len(t, spots, 5)
	for _, spot := range spots {
		assert.Equal(t, domain.SpotAvailable, spot.Status)
	}
}

func TestCreateLotValidation(t *testing.T) {
	svc, _, _ := newParkingFixture(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, domain.ParkingLotDTO{Name: "X", PricePerHour: 0, TotalSpots: 5})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateLot(ctx, domain.ParkingLotDTO{Name: "X", PricePerHour: 40, TotalSpots: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetLotReportsAvailability(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 3)

	_, err := store.Allocate(ctx, lot.ID, 1, "AB12CD3456")
	require.NoError(t, err)

	view, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.AvailableSpots)
	assert.Equal(t, 3, view.TotalSpots)

	_, err = svc.GetLot(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateLotPartialFields(t *testing.T) {
	svc, _, _ := newParkingFixture(t)
	ctx := context.Background()

	lot, err := svc.CreateLot(ctx, domain.ParkingLotDTO{Name: "Central", PricePerHour: 40, TotalSpots: 3})
	require.NoError(t, err)

	newPrice := 55.0
	updated, err := svc.UpdateLot(ctx, lot.ID, domain.ParkingLotUpdateDTO{PricePerHour: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, 55.0, updated.PricePerHour)
	assert.Equal(t, "Central", updated.Name, "unset fields stay untouched")
	assert.Equal(t, 3, updated.TotalSpots)
}

func TestUpdateLotGrowAddsSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 2)

	grow := 5
	updated, err := svc.UpdateLot(ctx, lot.ID, domain.ParkingLotUpdateDTO{TotalSpots: &grow})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalSpots)

	available, err := store.CountAvailable(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestUpdateLotShrinkBlockedByOccupiedSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 5)

	for i := 0; i < 3; i++ {
		_, err := store.Allocate(ctx, lot.ID, 1, "AB12CD3456")
		require.NoError(t, err)
	}

	shrink := 2
	_, err := svc.UpdateLot(ctx, lot.ID, domain.ParkingLotUpdateDTO{TotalSpots: &shrink})
	assert.ErrorIs(t, err, repository.ErrSpotsOccupied)

	spots, err := store.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, spots, 5, "failed shrink must leave the inventory intact")
}

func TestUpdateLotShrinkRemovesFreeSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 5)

	shrink := 2
	updated, err := svc.UpdateLot(ctx, lot.ID, domain.ParkingLotUpdateDTO{TotalSpots: &shrink})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TotalSpots)

	spots, err := store.FindByLotID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, spots, 2)
}

func TestDeleteLotBlockedByOccupiedSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 2)

	_, err := store.Allocate(ctx, lot.ID, 1, "AB12CD3456")
	require.NoError(t, err)

	err = svc.DeleteLot(ctx, lot.ID)
	assert.ErrorIs(t, err, repository.ErrSpotsOccupied)

	err = svc.DeleteLot(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListLotsAdminServesCachedView(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	store.addLot("Central", 40, 3)

	first, err := svc.ListLotsAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 3, first[0].AvailableSpots)

	// mutate behind the cache; the stale view must still be served until
	// a mutation through the service invalidates it
	_, err = store.Allocate(ctx, first[0].ID, 1, "AB12CD3456")
	require.NoError(t, err)

	cached, err := svc.ListLotsAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, 3, cached[0].AvailableSpots)
}

func TestMutationsInvalidateCachedViews(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 3)

	_, err := svc.ListLotsAdmin(ctx)
	require.NoError(t, err)
	_, err = svc.DashboardStats(ctx)
	require.NoError(t, err)

	newPrice := 60.0
	_, err = svc.UpdateLot(ctx, lot.ID, domain.ParkingLotUpdateDTO{PricePerHour: &newPrice})
	require.NoError(t, err)

	fresh, err := svc.ListLotsAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 60.0, fresh[0].PricePerHour)
}

func TestListLotsUserOnlyShowsLotsWithFreeSpots(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	full := store.addLot("Full", 40, 1)
	store.addLot("Open", 30, 2)

	_, err := store.Allocate(ctx, full.ID, 1, "AB12CD3456")
	require.NoError(t, err)

	lots, err := svc.ListLotsUser(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "Open", lots[0].Name)
}

func TestDashboardStats(t *testing.T) {
	svc, store, _ := newParkingFixture(t)
	ctx := context.Background()
	lot := store.addLot("Central", 40, 3)
	store.addLot("North", 25, 2)

	_, err := store.Allocate(ctx, lot.ID, 1, "AB12CD3456")
	require.NoError(t, err)

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Lots)
	assert.Equal(t, 5, stats.TotalSpots)
	assert.Equal(t, 1, stats.Occupied)
}
