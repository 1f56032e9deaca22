package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/class-booking/internal/database"
	"github.com/studioflow/class-booking/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func beginTx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return tx
}

func insertClass(t *testing.T, repo *repository.ClassRepo, capacity int, startsAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	err := repo.Create(context.Background(), &repository.ClassRecord{
		ID:        id,
		Name:      "Power Yoga",
		StartsAt:  startsAt.UTC().Truncate(time.Second),
		Capacity:  capacity,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	})
	require.NoError(t, err)
	return id
}

func TestClassRepo_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	startsAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	id := insertClass(t, repo, 12, startsAt)

	rec, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Power Yoga", rec.Name)
	assert.Equal(t, 12, rec.Capacity)
	assert.Equal(t, 0, rec.Occupancy)
	assert.Equal(t, 0, rec.Version)
	assert.True(t, rec.StartsAt.Equal(startsAt))
}

func TestClassRepo_GetUnknown(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, repository.ErrClassNotFound)
}

func TestClassRepo_AdjustOccupancy(t *testing.T) {
	// GIVEN: a class at version 0
	// WHEN: occupancy is adjusted with the matching version
	// THEN: occupancy and version both advance
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	ctx := context.Background()
	id := insertClass(t, repo, 2, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, repo.AdjustOccupancyTx(ctx, tx, id, +1, 0))
	require.NoError(t, tx.Commit())

	rec, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Occupancy)
	assert.Equal(t, 1, rec.Version)
}

func TestClassRepo_AdjustOccupancy_StaleVersion(t *testing.T) {
	// GIVEN: a class whose version moved past the caller's read
	// WHEN: the caller swaps with the stale version
	// THEN: ErrTxConflict so the caller retries with a fresh read
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	ctx := context.Background()
	id := insertClass(t, repo, 5, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, repo.AdjustOccupancyTx(ctx, tx, id, +1, 0))
	require.NoError(t, tx.Commit())

	tx = beginTx(t, db)
	defer tx.Rollback()
	err := repo.AdjustOccupancyTx(ctx, tx, id, +1, 0)
	require.ErrorIs(t, err, repository.ErrTxConflict)
}

func TestClassRepo_AdjustOccupancy_Bounds(t *testing.T) {
	// GIVEN: a class with capacity 1 at occupancy 1
	// WHEN: an increment with the current version is attempted
	// THEN: ErrCapacityExceeded; same for decrementing below zero
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	ctx := context.Background()
	id := insertClass(t, repo, 1, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, repo.AdjustOccupancyTx(ctx, tx, id, +1, 0))
	require.NoError(t, tx.Commit())

	tx = beginTx(t, db)
	err := repo.AdjustOccupancyTx(ctx, tx, id, +1, 1)
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)
	require.NoError(t, tx.Rollback())

	tx = beginTx(t, db)
	err = repo.AdjustOccupancyTx(ctx, tx, id, -2, 1)
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)
	require.NoError(t, tx.Rollback())
}

func TestClassRepo_AdjustOccupancy_Unknown(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)

	tx := beginTx(t, db)
	defer tx.Rollback()
	err := repo.AdjustOccupancyTx(context.Background(), tx, uuid.NewString(), +1, 0)
	require.ErrorIs(t, err, repository.ErrClassNotFound)
}

func TestClassRepo_ListByRange(t *testing.T) {
	// GIVEN: classes in two different months
	// WHEN: listing one month's window
	// THEN: only that month's sessions return, ordered by start time
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	ctx := context.Background()

	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := jan.AddDate(0, 1, 0)
	late := insertClass(t, repo, 10, jan.Add(20*24*time.Hour))
	early := insertClass(t, repo, 10, jan.Add(5*24*time.Hour))
	insertClass(t, repo, 10, feb.Add(24*time.Hour))

	got, err := repo.ListByRange(ctx, jan, feb)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early, got[0].ID)
	assert.Equal(t, late, got[1].ID)
}

func TestClassRepo_DeleteTx(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewClassRepo(db)
	ctx := context.Background()
	id := insertClass(t, repo, 5, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, repo.DeleteTx(ctx, tx, id))
	require.NoError(t, tx.Commit())

	tx = beginTx(t, db)
	defer tx.Rollback()
	require.ErrorIs(t, repo.DeleteTx(ctx, tx, id), repository.ErrClassNotFound)
}
