package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/class-booking/internal/repository"
)

func TestReservationRepo_CreateRemoveRoundTrip(t *testing.T) {
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	ctx := context.Background()
	classID := insertClass(t, classes, 5, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, reservations.CreateTx(ctx, tx, "alice", classID, time.Now()))
	require.ErrorIs(t, reservations.CreateTx(ctx, tx, "alice", classID, time.Now()), repository.ErrAlreadyBooked)

	exists, err := reservations.ExistsTx(ctx, tx, "alice", classID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, reservations.RemoveTx(ctx, tx, "alice", classID))
	require.ErrorIs(t, reservations.RemoveTx(ctx, tx, "alice", classID), repository.ErrNotBooked)
	require.NoError(t, tx.Commit())
}

func TestReservationRepo_ListByUserJoinsClassDetails(t *testing.T) {
	// GIVEN: alice booked two classes starting at different times
	// WHEN: listing her bookings
	// THEN: both appear ordered by class start time with RFC3339 stamps
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	ctx := context.Background()
	later := insertClass(t, classes, 5, time.Now().Add(48*time.Hour))
	sooner := insertClass(t, classes, 5, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	require.NoError(t, reservations.CreateTx(ctx, tx, "alice", later, time.Now()))
	require.NoError(t, reservations.CreateTx(ctx, tx, "alice", sooner, time.Now()))
	require.NoError(t, tx.Commit())

	bookings, err := reservations.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, sooner, bookings[0].ClassID)
	assert.Equal(t, later, bookings[1].ClassID)
	_, err = time.Parse(time.RFC3339, bookings[0].StartsAt)
	assert.NoError(t, err)
}

func TestReservationRepo_RosterOrderedByBookingTime(t *testing.T) {
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	reservations := repository.NewReservationRepo(db)
	ctx := context.Background()
	classID := insertClass(t, classes, 5, time.Now().Add(time.Hour))

	base := time.Now().UTC().Truncate(time.Second)
	tx := beginTx(t, db)
	require.NoError(t, reservations.CreateTx(ctx, tx, "bob", classID, base.Add(2*time.Second)))
	require.NoError(t, reservations.CreateTx(ctx, tx, "alice", classID, base))
	require.NoError(t, tx.Commit())

	roster, err := reservations.ListByClass(ctx, classID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "alice", roster[0].UserID)
	assert.Equal(t, "bob", roster[1].UserID)

	n, err := reservations.CountByClass(ctx, classID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
