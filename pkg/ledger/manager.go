// Package ledger holds the append only monetary state of the currency:
// balances keyed by holder and issuer, total supplies and mint histories.
package ledger

import (
	"math/big"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/aboutcircles/circles-engine/pkg/core/demurrage"
	"github.com/aboutcircles/circles-engine/pkg/model"
)

var (
	// ErrUnknownAccount is returned when an operation targets an account the
	// ledger has never seen.
	ErrUnknownAccount = ierrors.New("unknown account")
	// ErrInsufficientBalance is returned when a debit would push a balance
	// below zero.
	ErrInsufficientBalance = ierrors.New("insufficient balance")
	// ErrAccountExists is returned when an account is initialized twice.
	ErrAccountExists = ierrors.New("account already initialized")
)

// MintRecord is one issuance event: the day it was applied on and the amount
// that was issued.
type MintRecord struct {
	Day      int64
	Issuance *big.Int
}

func (m *MintRecord) String() string {
	return stringify.Struct("MintRecord",
		stringify.NewStructField("Day", m.Day),
		stringify.NewStructField("Issuance", m.Issuance.String()),
	)
}

// Manager owns the monetary time series. Balance writes never apply
// demurrage, callers discount first; supply refreshes discount explicitly
// through the decay provider. The stores are append only: writes into the
// past are rejected.
type Manager struct {
	balances *shrinkingmap.ShrinkingMap[model.AccountID, *shrinkingmap.ShrinkingMap[model.AccountID, *Series[*big.Int]]]
	supplies *shrinkingmap.ShrinkingMap[model.AccountID, *Series[*big.Int]]
	mints    *shrinkingmap.ShrinkingMap[model.AccountID, *Series[*MintRecord]]

	decay *demurrage.Provider

	mutex syncutils.RWMutex
}

// NewManager creates an empty Manager that discounts through the given
// provider.
func NewManager(decay *demurrage.Provider) *Manager {
	return &Manager{
		balances: shrinkingmap.New[model.AccountID, *shrinkingmap.ShrinkingMap[model.AccountID, *Series[*big.Int]]](),
		supplies: shrinkingmap.New[model.AccountID, *Series[*big.Int]](),
		mints:    shrinkingmap.New[model.AccountID, *Series[*MintRecord]](),
		decay:    decay,
	}
}

// InitAccount seeds the balance, supply and mint history of a new account
// with the given amount at time t.
func (m *Manager) InitAccount(t model.Tick, id model.AccountID, seed *big.Int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.supplies.Has(id) {
		return ierrors.Wrapf(ErrAccountExists, "account %s", id)
	}

	holderBalances := lo.Return1(m.balances.GetOrCreate(id, func() *shrinkingmap.ShrinkingMap[model.AccountID, *Series[*big.Int]] {
		return shrinkingmap.New[model.AccountID, *Series[*big.Int]]()
	}))
	selfBalances := lo.Return1(holderBalances.GetOrCreate(id, NewSeries[*big.Int]))
	if err := selfBalances.Append(t, new(big.Int).Set(seed)); err != nil {
		return err
	}

	supplies := NewSeries[*big.Int]()
	if err := supplies.Append(t, new(big.Int).Set(seed)); err != nil {
		return err
	}
	m.supplies.Set(id, supplies)

	mints := NewSeries[*MintRecord]()
	if err := mints.Append(t, &MintRecord{Day: m.decay.DayIndex(t), Issuance: new(big.Int).Set(seed)}); err != nil {
		return err
	}
	m.mints.Set(id, mints)

	return nil
}

// Has reports whether the account was initialized.
func (m *Manager) Has(id model.AccountID) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.supplies.Has(id)
}

// UpdateBalance applies a delta to the account's self balance at time t and
// returns the new balance. The delta is taken as is, without discounting. A
// result below zero is rejected without a write.
func (m *Manager) UpdateBalance(t model.Tick, id model.AccountID, delta *big.Int) (*big.Int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	series, err := m.selfBalances(id)
	if err != nil {
		return nil, err
	}

	_, current, _ := series.Latest()
	next := new(big.Int).Add(current, delta)
	if next.Sign() < 0 {
		return nil, ierrors.Wrapf(ErrInsufficientBalance, "balance %s of account %s cannot absorb %s", current, id, delta)
	}
	if err := series.Append(t, next); err != nil {
		return nil, err
	}

	return new(big.Int).Set(next), nil
}

// RefreshSupply discounts the account's total supply for the demurrage days
// elapsed since its last update and returns the effective supply. Within the
// same day nothing is written.
func (m *Manager) RefreshSupply(t model.Tick, id model.AccountID) (*big.Int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	series, exists := m.supplies.Get(id)
	if !exists {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	updatedAt, current, _ := series.Latest()
	span := m.decay.DayIndex(t) - m.decay.DayIndex(updatedAt)
	if span < 0 {
		return nil, ierrors.Wrapf(ErrTemporalOrder, "supply of account %s was updated at %d, after %d", id, updatedAt, t)
	}
	if span == 0 {
		return new(big.Int).Set(current), nil
	}

	discounted, err := m.decay.DiscountedBalance(current, span)
	if err != nil {
		return nil, err
	}
	if err := series.Append(t, discounted); err != nil {
		return nil, err
	}

	return new(big.Int).Set(discounted), nil
}

// AppendSupply writes an externally computed supply value at time t.
func (m *Manager) AppendSupply(t model.Tick, id model.AccountID, supply *big.Int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	series, exists := m.supplies.Get(id)
	if !exists {
		return ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	return series.Append(t, new(big.Int).Set(supply))
}

// AppendMint records an issuance event at time t.
func (m *Manager) AppendMint(t model.Tick, id model.AccountID, record *MintRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	series, exists := m.mints.Get(id)
	if !exists {
		return ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	return series.Append(t, &MintRecord{Day: record.Day, Issuance: new(big.Int).Set(record.Issuance)})
}

// SelfBalance returns the account's current balance in its own token.
func (m *Manager) SelfBalance(id model.AccountID) (*big.Int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, err := m.selfBalances(id)
	if err != nil {
		return nil, err
	}
	_, current, _ := series.Latest()

	return new(big.Int).Set(current), nil
}

// Balance returns the holder's current balance in the issuer's token. A
// token the holder never received balances to zero.
func (m *Manager) Balance(holder model.AccountID, issuer model.AccountID) (*big.Int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	holderBalances, exists := m.balances.Get(holder)
	if !exists {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", holder)
	}
	series, exists := holderBalances.Get(issuer)
	if !exists {
		return new(big.Int), nil
	}
	_, current, _ := series.Latest()

	return new(big.Int).Set(current), nil
}

// Supply returns the account's current total supply.
func (m *Manager) Supply(id model.AccountID) (*big.Int, error) {
	_, supply, err := m.LatestSupplyEntry(id)

	return supply, err
}

// LatestSupplyEntry returns the account's current total supply together with
// the time it was written.
func (m *Manager) LatestSupplyEntry(id model.AccountID) (model.Tick, *big.Int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, exists := m.supplies.Get(id)
	if !exists {
		return 0, nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}
	updatedAt, current, _ := series.Latest()

	return updatedAt, new(big.Int).Set(current), nil
}

// MintTimes returns the times of all recorded mints of the account, in
// ascending order.
func (m *Manager) MintTimes(id model.AccountID) ([]model.Tick, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, exists := m.mints.Get(id)
	if !exists {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	return series.Times(), nil
}

// MintRecords returns the account's mint history in ascending time order.
func (m *Manager) MintRecords(id model.AccountID) ([]*MintRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, exists := m.mints.Get(id)
	if !exists {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	records := make([]*MintRecord, 0, series.Len())
	series.ForEach(func(_ model.Tick, record *MintRecord) bool {
		records = append(records, &MintRecord{Day: record.Day, Issuance: new(big.Int).Set(record.Issuance)})

		return true
	})

	return records, nil
}

// LatestActivity returns the most recent write across the account's series.
func (m *Manager) LatestActivity(id model.AccountID) (model.Tick, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, err := m.selfBalances(id)
	if err != nil {
		return 0, err
	}
	balanceAt, _, _ := series.Latest()
	supplyAt, _, _ := lo.Return1(m.supplies.Get(id)).Latest()
	mintAt, _, _ := lo.Return1(m.mints.Get(id)).Latest()

	return lo.Max(balanceAt, supplyAt, mintAt), nil
}

// BalanceOnDay discounts the account's self balance to the given day and
// returns it together with the value lost to demurrage.
func (m *Manager) BalanceOnDay(id model.AccountID, day int64) (balance *big.Int, discountCost *big.Int, err error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	series, err := m.selfBalances(id)
	if err != nil {
		return nil, nil, err
	}

	updatedAt, current, _ := series.Latest()
	span := day - m.decay.DayIndex(updatedAt)
	if span < 0 {
		return nil, nil, ierrors.Wrapf(ErrTemporalOrder, "balance of account %s was updated on day %d, after day %d", id, m.decay.DayIndex(updatedAt), day)
	}

	discounted, err := m.decay.DiscountedBalance(current, span)
	if err != nil {
		return nil, nil, err
	}

	return discounted, new(big.Int).Sub(current, discounted), nil
}

func (m *Manager) selfBalances(id model.AccountID) (*Series[*big.Int], error) {
	holderBalances, exists := m.balances.Get(id)
	if !exists {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	return lo.Return1(holderBalances.Get(id)), nil
}
