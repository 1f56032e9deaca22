package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioflow/class-booking/internal/model"
	"github.com/studioflow/class-booking/internal/repository"
)

func TestCreditRepo_BalanceDefaultsToZero(t *testing.T) {
	db := openTestDB(t)
	credits := repository.NewCreditRepo(db)

	balance, err := credits.GetBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCreditRepo_AdjustCreatesAccountAndAccumulates(t *testing.T) {
	// GIVEN: a member with no account row
	// WHEN: adjustments are applied
	// THEN: the first creates the account; later ones accumulate
	db := openTestDB(t)
	credits := repository.NewCreditRepo(db)
	ctx := context.Background()

	tx := beginTx(t, db)
	balance, err := credits.AdjustTx(ctx, tx, "alice", -1, model.ReasonBooking, time.Now())
	require.NoError(t, err)
	assert.Equal(t, -1, balance)
	balance, err = credits.AdjustTx(ctx, tx, "alice", +1, model.ReasonCancellation, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	balance, err = credits.AdjustTx(ctx, tx, "alice", +5, model.ReasonAdminTopUp, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
	require.NoError(t, tx.Commit())

	got, err := credits.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestCreditRepo_LedgerMatchesBalance(t *testing.T) {
	// GIVEN: a series of adjustments
	// THEN: the ledger holds one row per adjustment and its sum equals
	//       the cached balance
	db := openTestDB(t)
	credits := repository.NewCreditRepo(db)
	ctx := context.Background()

	deltas := []int{-1, +1, -1, +10, -3}
	tx := beginTx(t, db)
	for _, d := range deltas {
		_, err := credits.AdjustTx(ctx, tx, "alice", d, model.ReasonAdminTopUp, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	ledger, err := credits.ListLedger(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ledger, len(deltas))

	sum, err := credits.SumLedger(ctx, "alice")
	require.NoError(t, err)
	balance, err := credits.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
	assert.Equal(t, sum, balance)
}

func TestCreditRepo_RollbackDiscardsBothWrites(t *testing.T) {
	// GIVEN: an adjustment inside an uncommitted transaction
	// WHEN: the transaction rolls back
	// THEN: neither the ledger row nor the balance survives
	db := openTestDB(t)
	credits := repository.NewCreditRepo(db)
	ctx := context.Background()

	tx := beginTx(t, db)
	_, err := credits.AdjustTx(ctx, tx, "alice", -1, model.ReasonBooking, time.Now())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	balance, err := credits.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	ledger, err := credits.ListLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ledger)
}
