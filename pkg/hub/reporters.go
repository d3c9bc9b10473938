package hub

import (
	"math/big"
	"sort"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/aboutcircles/circles-engine/pkg/core/issuance"
	"github.com/aboutcircles/circles-engine/pkg/ledger"
	"github.com/aboutcircles/circles-engine/pkg/model"
	"github.com/aboutcircles/circles-engine/pkg/trust"
)

// Account returns the registered account with the given id.
func (h *Hub) Account(id model.AccountID) (*model.Account, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.accounts.Get(id)
}

// Accounts returns all registered accounts in ascending id order.
func (h *Hub) Accounts() []*model.Account {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	accounts := h.accounts.Values()
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})

	return accounts
}

// SelfBalanceOf returns the account's current balance in its own token.
func (h *Hub) SelfBalanceOf(id model.AccountID) (*big.Int, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.ledger.SelfBalance(id)
}

// BalanceOf returns the holder's current balance in the issuer's token.
func (h *Hub) BalanceOf(holder model.AccountID, issuer model.AccountID) (*big.Int, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.ledger.Balance(holder, issuer)
}

// SupplyOf returns the current total supply of the account's token.
func (h *Hub) SupplyOf(id model.AccountID) (*big.Int, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.ledger.Supply(id)
}

// InflationaryBalanceOf returns the account's balance in its inflationary
// display form on the day the given tick falls into.
func (h *Hub) InflationaryBalanceOf(id model.AccountID, t model.Tick) (*big.Int, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	balance, err := h.ledger.SelfBalance(id)
	if err != nil {
		return nil, err
	}

	return h.decay.InflationaryBalance(balance, h.decay.DayIndex(t))
}

// BalanceOnDay discounts the account's balance to the given day and reports
// the value lost to demurrage alongside it.
func (h *Hub) BalanceOnDay(id model.AccountID, day int64) (balance *big.Int, discountCost *big.Int, err error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.ledger.BalanceOnDay(id, day)
}

// TrustCapacityOf returns the usable capacity of the trust edge truster ->
// trustee at the given time, zero when the edge is missing or expired.
func (h *Hub) TrustCapacityOf(truster model.AccountID, trustee model.AccountID, now model.Tick) *big.Int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.trust.Capacity(truster, trustee, now)
}

// TrustEdgesOf returns all trust edges the account extends, ascending by
// trustee.
func (h *Hub) TrustEdgesOf(id model.AccountID) []*trust.Edge {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.trust.OutgoingEdges(id)
}

// MintHistoryOf returns the account's issuance events in ascending time
// order, the registration seed included.
func (h *Hub) MintHistoryOf(id model.AccountID) ([]*ledger.MintRecord, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.ledger.MintRecords(id)
}

// ClaimableWindow previews the issuance the account could mint at the given
// time, without committing anything.
func (h *Hub) ClaimableWindow(t model.Tick, id model.AccountID) (*issuance.Result, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.accounts.Has(id) {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	mintTimes, err := h.ledger.MintTimes(id)
	if err != nil {
		return nil, err
	}

	return h.issuance.Calculate(t, mintTimes)
}

// TransactionsOf returns the transfers the account took part in, in commit
// order.
func (h *Hub) TransactionsOf(id model.AccountID) []*Transaction {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	transactions, _ := h.transactions.Get(id)

	return append([]*Transaction(nil), transactions...)
}

// TotalSupply sums the current supplies of all accounts, as recorded.
func (h *Hub) TotalSupply() *big.Int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	total := new(big.Int)
	h.accounts.ForEachKey(func(id model.AccountID) bool {
		if supply, err := h.ledger.Supply(id); err == nil {
			total.Add(total, supply)
		}

		return true
	})

	return total
}

// AverageBalance returns the mean self balance across all accounts in base
// units, zero when no account exists.
func (h *Hub) AverageBalance() *big.Int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.accounts.Size() == 0 {
		return new(big.Int)
	}

	total := new(big.Int)
	h.accounts.ForEachKey(func(id model.AccountID) bool {
		if balance, err := h.ledger.SelfBalance(id); err == nil {
			total.Add(total, balance)
		}

		return true
	})

	return total.Quo(total, big.NewInt(int64(h.accounts.Size())))
}

// Gini returns the Gini coefficient of the self balances: 0 for a uniform
// distribution, approaching 1 as the wealth concentrates. An empty network
// reports 0.
func (h *Hub) Gini() float64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	balances := make([]*big.Int, 0, h.accounts.Size())
	h.accounts.ForEachKey(func(id model.AccountID) bool {
		if balance, err := h.ledger.SelfBalance(id); err == nil {
			balances = append(balances, balance)
		}

		return true
	})

	return gini(balances)
}

// Stats returns the running transfer and mint totals.
func (h *Hub) Stats() *Stats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return &Stats{
		AccountCount:   h.accounts.Size(),
		TrustEdgeCount: h.trust.EdgeCount(),
		TransferCount:  h.transferCount,
		TransferVolume: new(big.Int).Set(h.transferVolume),
		MintCount:      h.mintCount,
		MintVolume:     new(big.Int).Set(h.mintVolume),
	}
}

// Stats aggregates the activity a Hub has committed so far. Mint totals
// count successful claims only, the registration seed is not a mint.
type Stats struct {
	AccountCount   int
	TrustEdgeCount int
	TransferCount  int
	TransferVolume *big.Int
	MintCount      int
	MintVolume     *big.Int
}

// gini computes the coefficient over the sorted balances using the standard
// sorted cumulative formula.
func gini(balances []*big.Int) float64 {
	if len(balances) == 0 {
		return 0
	}

	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Cmp(balances[j]) < 0
	})

	total := new(big.Float)
	weighted := new(big.Float)
	for i, balance := range balances {
		value := new(big.Float).SetInt(balance)
		total.Add(total, value)
		weighted.Add(weighted, value.Mul(value, big.NewFloat(float64(i+1))))
	}
	if total.Sign() == 0 {
		return 0
	}

	n := float64(len(balances))
	ratio, _ := new(big.Float).Quo(weighted, total).Float64()

	return 2*ratio/n - (n+1)/n
}
