package ledger_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aboutcircles/circles-engine/pkg/core/demurrage"
	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/ledger"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

func newManager() *ledger.Manager {
	return ledger.NewManager(demurrage.NewProvider(model.NewParameters()))
}

func TestInitAccount(t *testing.T) {
	manager := newManager()

	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))
	require.True(t, manager.Has(1))
	require.False(t, manager.Has(2))

	balance, err := manager.SelfBalance(1)
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(fixed64.Coins(50)))

	supply, err := manager.Supply(1)
	require.NoError(t, err)
	require.Equal(t, 0, supply.Cmp(fixed64.Coins(50)))

	records, err := manager.MintRecords(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.EqualValues(t, 0, records[0].Day)
	require.Equal(t, 0, records[0].Issuance.Cmp(fixed64.Coins(50)))

	err = manager.InitAccount(5, 1, fixed64.Coins(50))
	require.ErrorIs(t, err, ledger.ErrAccountExists)
}

func TestUpdateBalance(t *testing.T) {
	manager := newManager()
	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))

	balance, err := manager.UpdateBalance(2, 1, new(big.Int).Neg(fixed64.Coins(10)))
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(fixed64.Coins(40)))

	balance, err = manager.UpdateBalance(3, 1, fixed64.Coins(5))
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(fixed64.Coins(45)))

	// a debit below zero is rejected and leaves no trace
	_, err = manager.UpdateBalance(4, 1, new(big.Int).Neg(fixed64.Coins(46)))
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	balance, err = manager.SelfBalance(1)
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(fixed64.Coins(45)))

	// draining the balance to exactly zero is allowed
	balance, err = manager.UpdateBalance(5, 1, new(big.Int).Neg(fixed64.Coins(45)))
	require.NoError(t, err)
	require.Equal(t, 0, balance.Sign())

	_, err = manager.UpdateBalance(4, 1, fixed64.Coins(1))
	require.ErrorIs(t, err, ledger.ErrTemporalOrder)

	_, err = manager.UpdateBalance(6, 99, fixed64.Coins(1))
	require.ErrorIs(t, err, ledger.ErrUnknownAccount)
}

func TestRefreshSupply(t *testing.T) {
	manager := newManager()
	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))

	// within the same day the supply is untouched
	supply, err := manager.RefreshSupply(10, 1)
	require.NoError(t, err)
	require.Equal(t, 0, supply.Cmp(fixed64.Coins(50)))
	updatedAt, _, err := manager.LatestSupplyEntry(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, updatedAt)

	// a day later it decays
	supply, err = manager.RefreshSupply(24, 1)
	require.NoError(t, err)
	require.Equal(t, "49990066600429947872", supply.String())
	updatedAt, _, err = manager.LatestSupplyEntry(1)
	require.NoError(t, err)
	require.EqualValues(t, 24, updatedAt)
}

func TestForeignBalances(t *testing.T) {
	manager := newManager()
	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))
	require.NoError(t, manager.InitAccount(0, 2, fixed64.Coins(50)))

	held, err := manager.Balance(1, 2)
	require.NoError(t, err)
	require.Equal(t, 0, held.Sign())

	held, err = manager.Balance(1, 1)
	require.NoError(t, err)
	require.Equal(t, 0, held.Cmp(fixed64.Coins(50)))

	_, err = manager.Balance(99, 1)
	require.ErrorIs(t, err, ledger.ErrUnknownAccount)
}

func TestBalanceOnDay(t *testing.T) {
	manager := newManager()
	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))

	balance, cost, err := manager.BalanceOnDay(1, 0)
	require.NoError(t, err)
	require.Equal(t, 0, balance.Cmp(fixed64.Coins(50)))
	require.Equal(t, 0, cost.Sign())

	balance, cost, err = manager.BalanceOnDay(1, 1)
	require.NoError(t, err)
	require.Equal(t, "49990066600429947872", balance.String())
	require.Equal(t, "9933399570052128", cost.String())

	_, _, err = manager.BalanceOnDay(1, -1)
	require.ErrorIs(t, err, ledger.ErrTemporalOrder)
}

func TestLatestActivity(t *testing.T) {
	manager := newManager()
	require.NoError(t, manager.InitAccount(0, 1, fixed64.Coins(50)))

	latest, err := manager.LatestActivity(1)
	require.NoError(t, err)
	require.EqualValues(t, 0, latest)

	_, err = manager.UpdateBalance(7, 1, fixed64.Coins(1))
	require.NoError(t, err)

	latest, err = manager.LatestActivity(1)
	require.NoError(t, err)
	require.EqualValues(t, 7, latest)
}
