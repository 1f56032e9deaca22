package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/class-booking/internal/repository"
)

func TestWaitlistRepo_JoinAssignsIncreasingPositions(t *testing.T) {
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	ctx := context.Background()
	classID := insertClass(t, classes, 1, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	for i, user := range []string{"bob", "carol", "dave"} {
		pos, err := waitlist.JoinTx(ctx, tx, user, classID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, i+1, pos)
	}
	_, err := waitlist.JoinTx(ctx, tx, "bob", classID, time.Now())
	require.ErrorIs(t, err, repository.ErrAlreadyWaitlisted)
	require.NoError(t, tx.Commit())
}

func TestWaitlistRepo_PopNextIsFIFO(t *testing.T) {
	// GIVEN: bob, carol and dave queued in that order, carol leaves
	// WHEN: popping repeatedly
	// THEN: bob then dave come out; gaps in positions do not matter
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	ctx := context.Background()
	classID := insertClass(t, classes, 1, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	for _, user := range []string{"bob", "carol", "dave"} {
		_, err := waitlist.JoinTx(ctx, tx, user, classID, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, waitlist.LeaveTx(ctx, tx, "carol", classID))

	user, found, err := waitlist.PopNextTx(ctx, tx, classID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", user)

	user, found, err = waitlist.PopNextTx(ctx, tx, classID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "dave", user)

	_, found, err = waitlist.PopNextTx(ctx, tx, classID)
	require.NoError(t, err)
	assert.False(t, found, "an empty queue is not an error")
	require.NoError(t, tx.Commit())
}

func TestWaitlistRepo_QueuesAreIndependentPerClass(t *testing.T) {
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	ctx := context.Background()
	classA := insertClass(t, classes, 1, time.Now().Add(time.Hour))
	classB := insertClass(t, classes, 1, time.Now().Add(2*time.Hour))

	tx := beginTx(t, db)
	posA, err := waitlist.JoinTx(ctx, tx, "bob", classA, time.Now())
	require.NoError(t, err)
	posB, err := waitlist.JoinTx(ctx, tx, "bob", classB, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, posA)
	assert.Equal(t, 1, posB)
	require.NoError(t, tx.Commit())

	entries, err := waitlist.ListByClass(ctx, classA)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].UserID)
}

func TestWaitlistRepo_ClearByClass(t *testing.T) {
	db := openTestDB(t)
	classes := repository.NewClassRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	ctx := context.Background()
	classID := insertClass(t, classes, 1, time.Now().Add(time.Hour))

	tx := beginTx(t, db)
	for _, user := range []string{"bob", "carol"} {
		_, err := waitlist.JoinTx(ctx, tx, user, classID, time.Now())
		require.NoError(t, err)
	}
	n, err := waitlist.ClearByClassTx(ctx, tx, classID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, tx.Commit())

	entries, err := waitlist.ListByClass(ctx, classID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
