// Package hub orchestrates the currency engine. It validates and commits
// registrations, invitations, trust edges, issuance claims, burns and
// transfers, serializing all mutations behind a single writer.
package hub

import (
	"math/big"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/aboutcircles/circles-engine/pkg/core/demurrage"
	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/core/issuance"
	"github.com/aboutcircles/circles-engine/pkg/ledger"
	"github.com/aboutcircles/circles-engine/pkg/model"
	"github.com/aboutcircles/circles-engine/pkg/pathfinder"
	"github.com/aboutcircles/circles-engine/pkg/trust"
)

// Hub is the linearization point of the engine: every economic state change
// passes through it, one operation at a time. The caller supplies the
// logical time of each operation, the hub never reads a clock.
type Hub struct {
	Events *Events

	parameters *model.Parameters
	traits     model.TraitSource

	accounts *shrinkingmap.ShrinkingMap[model.AccountID, *model.Account]
	ledger   *ledger.Manager
	trust    *trust.Graph
	decay    *demurrage.Provider
	issuance *issuance.Calculator
	finder   *pathfinder.PathFinder

	transferCount  int
	transferVolume *big.Int
	mintCount      int
	mintVolume     *big.Int
	transactions   *shrinkingmap.ShrinkingMap[model.AccountID, []*Transaction]

	mutex syncutils.RWMutex

	log.Logger
}

// New creates a Hub with default parameters, modified by the given options.
func New(logger log.Logger, opts ...options.Option[Hub]) *Hub {
	return options.Apply(&Hub{
		Events:         NewEvents(),
		parameters:     model.NewParameters(),
		traits:         model.ZeroTraits,
		accounts:       shrinkingmap.New[model.AccountID, *model.Account](),
		transferVolume: new(big.Int),
		mintVolume:     new(big.Int),
		transactions:   shrinkingmap.New[model.AccountID, []*Transaction](),
		Logger:         logger.NewChildLogger("Hub"),
	}, opts, func(h *Hub) {
		h.decay = demurrage.NewProvider(h.parameters)
		h.issuance = issuance.NewCalculator(h.parameters, h.decay)
		h.ledger = ledger.NewManager(h.decay)
		h.trust = trust.NewGraph()
		h.finder = pathfinder.New(h.trust.Trustees, h.trust.Capacity, h.routingBalance,
			pathfinder.WithMaxHops(h.parameters.MaxRouteHops),
		)
	})
}

// WithParameters overrides the engine parameters.
func WithParameters(parameters *model.Parameters) options.Option[Hub] {
	return func(h *Hub) {
		h.parameters = parameters
	}
}

// WithTraitSource injects the trait generator applied at registration.
func WithTraitSource(traits model.TraitSource) options.Option[Hub] {
	return func(h *Hub) {
		h.traits = traits
	}
}

// Register creates a new account and seeds it with the initial balance.
func (h *Hub) Register(t model.Tick, id model.AccountID) (*model.Account, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.register(t, id, nil)
}

// Invite registers a new account paid for by the inviter: the invitation
// cost is deducted from the inviter's balance and the inviter trusts the
// invitee at the default capacity. Fails without any mutation when the
// inviter cannot cover the cost.
func (h *Hub) Invite(t model.Tick, inviter model.AccountID, invitee model.AccountID) (*model.Account, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.accounts.Has(inviter) {
		return nil, ierrors.Wrapf(ErrUnknownAccount, "inviter %s", inviter)
	}
	if h.accounts.Has(invitee) {
		return nil, ierrors.Wrapf(ErrDuplicateAccount, "invitee %s", invitee)
	}

	cost := fixed64.Coins(h.parameters.InvitationCost)
	if _, err := h.ledger.UpdateBalance(t, inviter, new(big.Int).Neg(cost)); err != nil {
		return nil, ierrors.Wrapf(err, "inviter %s cannot pay the invitation cost", inviter)
	}

	account, err := h.register(t, invitee, &inviter)
	if err != nil {
		return nil, err
	}

	if edge, created := h.trust.Establish(t, inviter, invitee, fixed64.Coins(h.parameters.TrustCapacity), h.parameters.TrustDuration); created {
		h.Events.TrustEstablished.Trigger(edge)
	}

	return account, nil
}

// EstablishTrust creates the trust edge truster -> trustee: the truster
// accepts up to amount base units of the trustee's token per transfer until
// the edge expires. Establishment is first write wins, repeating it for an
// existing pair changes nothing.
func (h *Hub) EstablishTrust(t model.Tick, truster model.AccountID, trustee model.AccountID, amount *big.Int, duration model.Tick) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.accounts.Has(truster) {
		return ierrors.Wrapf(ErrUnknownAccount, "truster %s", truster)
	}
	if !h.accounts.Has(trustee) {
		return ierrors.Wrapf(ErrUnknownAccount, "trustee %s", trustee)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ierrors.Wrapf(ErrInvalidAmount, "trust capacity %s", amount)
	}
	if duration <= 0 {
		return ierrors.Wrapf(ErrInvalidAmount, "trust duration %d", duration)
	}

	if edge, created := h.trust.Establish(t, truster, trustee, amount, duration); created {
		h.LogDebugf("trust established: %s", edge)
		h.Events.TrustEstablished.Trigger(edge)
	}

	return nil
}

// Mint claims the account's accrued issuance. When nothing is claimable, or
// when the refreshed supply would exceed the supply ceiling and the issuance
// is forfeited, it returns (nil, false, nil) and no state changes; this is a
// regular outcome, not a failure.
func (h *Hub) Mint(t model.Tick, id model.AccountID) (*MintReceipt, bool, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.accounts.Has(id) {
		return nil, false, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	mintTimes, err := h.ledger.MintTimes(id)
	if err != nil {
		return nil, false, err
	}
	result, err := h.issuance.Calculate(t, mintTimes)
	if err != nil {
		return nil, false, err
	}
	if result.Amount.Sign() <= 0 {
		h.LogDebugf("account %s has no claimable issuance at %d", id, t)

		return nil, false, nil
	}

	updatedAt, supply, err := h.ledger.LatestSupplyEntry(id)
	if err != nil {
		return nil, false, err
	}
	day, newSupply, applied, err := h.issuance.ApplyToSupply(supply, result.Amount, h.decay.DayIndex(t), h.decay.DayIndex(updatedAt))
	if err != nil {
		return nil, false, err
	}
	if !applied {
		h.LogDebugf("account %s forfeits issuance %s, supply at the ceiling", id, result.Amount)

		return nil, false, nil
	}

	if err := h.ledger.AppendMint(t, id, &ledger.MintRecord{Day: day, Issuance: result.Amount}); err != nil {
		return nil, false, err
	}
	if err := h.ledger.AppendSupply(t, id, newSupply); err != nil {
		return nil, false, err
	}
	balance, err := h.ledger.UpdateBalance(t, id, result.Amount)
	if err != nil {
		return nil, false, err
	}

	h.mintCount++
	h.mintVolume.Add(h.mintVolume, result.Amount)

	receipt := &MintReceipt{
		Account:     id,
		Time:        t,
		Issuance:    result.Amount,
		PeriodStart: result.PeriodStart,
		PeriodEnd:   result.PeriodEnd,
		Balance:     balance,
		Supply:      newSupply,
	}
	h.LogDebugf("minted: %s", receipt)
	h.Events.IssuanceClaimed.Trigger(receipt)

	return receipt, true, nil
}

// Burn destroys the given amount of the account's own tokens, shrinking the
// balance and the total supply. The supply is reduced as recorded, without
// refreshing it for elapsed demurrage days first.
func (h *Hub) Burn(t model.Tick, id model.AccountID, amount *big.Int) (balance *big.Int, supply *big.Int, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ierrors.Wrapf(ErrInvalidAmount, "burn amount %s", amount)
	}
	if !h.accounts.Has(id) {
		return nil, nil, ierrors.Wrapf(ErrUnknownAccount, "account %s", id)
	}

	balance, err = h.ledger.UpdateBalance(t, id, new(big.Int).Neg(amount))
	if err != nil {
		return nil, nil, ierrors.Wrapf(err, "account %s cannot burn %s", id, amount)
	}

	supply, err = h.ledger.Supply(id)
	if err != nil {
		return nil, nil, err
	}
	supply.Sub(supply, amount)
	if err = h.ledger.AppendSupply(t, id, supply); err != nil {
		return nil, nil, err
	}

	h.LogDebugf("account %s burned %s at %d", id, amount, t)
	h.Events.TokensBurned.Trigger(&BurnEvent{Time: t, Account: id, Amount: amount, Balance: balance, Supply: supply})

	return balance, supply, nil
}

// Transfer moves amount base units of the sender's token to the receiver.
// It requires an unexpired trust edge receiver -> sender whose capacity
// covers the amount. On success both accounts' supplies are refreshed for
// the elapsed demurrage days.
func (h *Hub) Transfer(t model.Tick, sender model.AccountID, receiver model.AccountID, amount *big.Int) (senderBalance *big.Int, receiverBalance *big.Int, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.transfer(t, sender, receiver, amount)
}

// FindRoute searches a multi hop route from the sender to the receiver for
// the given amount: the shortest route able to carry the full amount or,
// failing that, the route with the largest partial flow.
func (h *Hub) FindRoute(t model.Tick, sender model.AccountID, receiver model.AccountID, amount *big.Int) (pathfinder.Route, *big.Int, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return h.finder.FindRoute(sender, receiver, amount, t)
}

// TransferAlongRoute pushes the amount across every hop of the route in
// order. Each hop is validated and committed independently: when a later hop
// fails, the earlier hops remain committed and the number of committed hops
// is returned alongside the error.
func (h *Hub) TransferAlongRoute(t model.Tick, route pathfinder.Route, amount *big.Int) (hops int, err error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(route) < 2 {
		return 0, ierrors.Wrapf(ErrInvalidRoute, "route %v", route)
	}

	for i := 0; i+1 < len(route); i++ {
		if _, _, err := h.transfer(t, route[i], route[i+1], amount); err != nil {
			return i, ierrors.Wrapf(err, "hop %d of route %v failed, %d earlier hops remain committed", i, route, i)
		}
	}

	return len(route) - 1, nil
}

func (h *Hub) register(t model.Tick, id model.AccountID, inviter *model.AccountID) (*model.Account, error) {
	if h.accounts.Has(id) {
		return nil, ierrors.Wrapf(ErrDuplicateAccount, "account %s", id)
	}

	if err := h.ledger.InitAccount(t, id, fixed64.Coins(h.parameters.InitialBalance)); err != nil {
		return nil, ierrors.Wrapf(err, "failed to seed account %s", id)
	}

	account := &model.Account{ID: id, CreatedAt: t, Inviter: inviter, Traits: h.traits(id)}
	h.accounts.Set(id, account)

	h.LogDebugf("registered account %s at %d", id, t)
	h.Events.AccountRegistered.Trigger(account)

	return account, nil
}

func (h *Hub) transfer(t model.Tick, sender model.AccountID, receiver model.AccountID, amount *big.Int) (senderBalance *big.Int, receiverBalance *big.Int, err error) {
	if sender == receiver {
		return nil, nil, ierrors.Wrapf(ErrSelfTransfer, "account %s", sender)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ierrors.Wrapf(ErrInvalidAmount, "transfer amount %s", amount)
	}
	if !h.accounts.Has(sender) {
		return nil, nil, ierrors.Wrapf(ErrUnknownAccount, "sender %s", sender)
	}
	if !h.accounts.Has(receiver) {
		return nil, nil, ierrors.Wrapf(ErrUnknownAccount, "receiver %s", receiver)
	}

	balance, err := h.ledger.SelfBalance(sender)
	if err != nil {
		return nil, nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, nil, ierrors.Wrapf(ErrInsufficientBalance, "sender %s holds %s, cannot send %s", sender, balance, amount)
	}

	edge, exists := h.trust.Edge(receiver, sender)
	if !exists {
		return nil, nil, ierrors.Wrapf(ErrNoTrust, "receiver %s, sender %s", receiver, sender)
	}
	if edge.Amount.Cmp(amount) < 0 {
		return nil, nil, ierrors.Wrapf(ErrInsufficientTrust, "capacity %s cannot cover %s", edge.Amount, amount)
	}
	if edge.Expired(t) {
		return nil, nil, ierrors.Wrapf(ErrTrustExpired, "edge %s expired at %d, now %d", edge, edge.ExpiresAt(), t)
	}

	if senderBalance, err = h.ledger.UpdateBalance(t, sender, new(big.Int).Neg(amount)); err != nil {
		return nil, nil, err
	}
	if receiverBalance, err = h.ledger.UpdateBalance(t, receiver, amount); err != nil {
		return nil, nil, err
	}
	if _, err = h.ledger.RefreshSupply(t, sender); err != nil {
		return nil, nil, err
	}
	if _, err = h.ledger.RefreshSupply(t, receiver); err != nil {
		return nil, nil, err
	}

	h.transferCount++
	h.transferVolume.Add(h.transferVolume, amount)
	transaction := &Transaction{Time: t, Sender: sender, Receiver: receiver, Amount: new(big.Int).Set(amount)}
	h.recordTransaction(sender, transaction)
	h.recordTransaction(receiver, transaction)

	h.LogDebugf("transferred %s from %s to %s at %d", amount, sender, receiver, t)
	h.Events.TokensTransferred.Trigger(&TransferEvent{
		Time:            t,
		Sender:          sender,
		Receiver:        receiver,
		Amount:          amount,
		SenderBalance:   senderBalance,
		ReceiverBalance: receiverBalance,
	})

	return senderBalance, receiverBalance, nil
}

func (h *Hub) recordTransaction(id model.AccountID, transaction *Transaction) {
	transactions, _ := h.transactions.Get(id)
	h.transactions.Set(id, append(transactions, transaction))
}

// routingBalance feeds the path finder; accounts outside the ledger route
// with a zero balance.
func (h *Hub) routingBalance(id model.AccountID) *big.Int {
	balance, err := h.ledger.SelfBalance(id)
	if err != nil {
		return new(big.Int)
	}

	return balance
}

// MintReceipt describes a successful issuance claim.
type MintReceipt struct {
	Account     model.AccountID
	Time        model.Tick
	Issuance    *big.Int
	PeriodStart model.Tick
	PeriodEnd   model.Tick
	Balance     *big.Int
	Supply      *big.Int
}

func (m *MintReceipt) String() string {
	return stringify.Struct("MintReceipt",
		stringify.NewStructField("Account", m.Account),
		stringify.NewStructField("Time", int64(m.Time)),
		stringify.NewStructField("Issuance", m.Issuance.String()),
		stringify.NewStructField("PeriodStart", int64(m.PeriodStart)),
		stringify.NewStructField("PeriodEnd", int64(m.PeriodEnd)),
	)
}

// Transaction is one committed transfer as seen by either of its parties.
type Transaction struct {
	Time     model.Tick
	Sender   model.AccountID
	Receiver model.AccountID
	Amount   *big.Int
}
