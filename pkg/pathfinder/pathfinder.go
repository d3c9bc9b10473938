// Package pathfinder discovers multi hop transfer routes through the trust
// graph.
package pathfinder

import (
	"math/big"

	"github.com/iotaledger/hive.go/ds"
	"github.com/iotaledger/hive.go/runtime/options"

	"github.com/aboutcircles/circles-engine/pkg/model"
)

// Route is a transfer path from the sender to the receiver. Every account on
// it accepts the value of its predecessor.
type Route []model.AccountID

// TrusteesFunc lists the accounts a truster accepts value from at the given
// time.
type TrusteesFunc func(truster model.AccountID, now model.Tick) []model.AccountID

// CapacityFunc returns the usable capacity of a trust edge at the given
// time.
type CapacityFunc func(truster model.AccountID, trustee model.AccountID, now model.Tick) *big.Int

// BalanceFunc returns the self balance of an account.
type BalanceFunc func(id model.AccountID) *big.Int

// PathFinder enumerates simple paths along trust edges and selects transfer
// routes by capacity. It reads the network exclusively through the injected
// funcs.
type PathFinder struct {
	trustees TrusteesFunc
	capacity CapacityFunc
	balance  BalanceFunc

	optsMaxHops int
}

// New creates a PathFinder.
func New(trustees TrusteesFunc, capacity CapacityFunc, balance BalanceFunc, opts ...options.Option[PathFinder]) *PathFinder {
	return options.Apply(&PathFinder{
		trustees:    trustees,
		capacity:    capacity,
		balance:     balance,
		optsMaxHops: model.DefaultMaxRouteHops,
	}, opts)
}

// WithMaxHops bounds the number of edges a discovered route may have.
func WithMaxHops(maxHops int) options.Option[PathFinder] {
	return func(p *PathFinder) {
		p.optsMaxHops = maxHops
	}
}

// Routes enumerates all simple routes from the sender to the receiver within
// the hop bound. Discovery walks trust edges backwards from the receiver, so
// that every hop of a resulting route is covered by the trust of its
// receiving end.
func (p *PathFinder) Routes(sender model.AccountID, receiver model.AccountID, now model.Tick) []Route {
	if sender == receiver || p.optsMaxHops < 1 {
		return nil
	}

	var routes []Route
	onPath := ds.NewSet[model.AccountID]()
	onPath.Add(receiver)

	var walk func(path []model.AccountID)
	walk = func(path []model.AccountID) {
		current := path[len(path)-1]
		edges := len(path) // edge count after extending the path by one node
		for _, trustee := range p.trustees(current, now) {
			if onPath.Has(trustee) {
				continue
			}
			if trustee == sender {
				if edges <= p.optsMaxHops {
					routes = append(routes, reverseRoute(path, trustee))
				}

				continue
			}
			if edges >= p.optsMaxHops {
				continue
			}
			onPath.Add(trustee)
			walk(append(path, trustee))
			onPath.Delete(trustee)
		}
	}
	walk([]model.AccountID{receiver})

	return routes
}

// MaxFlow returns the amount the route can carry at the given time: the
// minimum over its hops of the receiving end's trust capacity and the
// sending end's balance.
func (p *PathFinder) MaxFlow(route Route, now model.Tick) *big.Int {
	var flow *big.Int
	for i := 0; i+1 < len(route); i++ {
		hopSender, hopReceiver := route[i], route[i+1]
		hopLimit := p.capacity(hopReceiver, hopSender, now)
		if balance := p.balance(hopSender); balance.Cmp(hopLimit) < 0 {
			hopLimit = balance
		}
		if flow == nil || hopLimit.Cmp(flow) < 0 {
			flow = hopLimit
		}
	}
	if flow == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(flow)
}

// FindRoute selects the route for the requested amount: the shortest route
// able to carry the full amount or, failing that, the route with the largest
// partial flow. Ties break toward the shorter route, then the smaller id
// sequence, which makes the selection deterministic. Routes without any
// usable flow are ignored.
func (p *PathFinder) FindRoute(sender model.AccountID, receiver model.AccountID, amount *big.Int, now model.Tick) (Route, *big.Int, bool) {
	var (
		best     Route
		bestFlow *big.Int
		bestFull bool
	)
	for _, route := range p.Routes(sender, receiver, now) {
		flow := p.MaxFlow(route, now)
		if flow.Sign() <= 0 {
			continue
		}
		full := flow.Cmp(amount) >= 0
		switch {
		case best == nil:
		case full != bestFull:
			if !full {
				continue
			}
		case full:
			if !routeLess(route, best) {
				continue
			}
		default:
			if c := flow.Cmp(bestFlow); c < 0 || (c == 0 && !routeLess(route, best)) {
				continue
			}
		}
		best, bestFlow, bestFull = route, flow, full
	}

	return best, bestFlow, best != nil
}

func reverseRoute(path []model.AccountID, final model.AccountID) Route {
	route := make(Route, 0, len(path)+1)
	route = append(route, final)
	for i := len(path) - 1; i >= 0; i-- {
		route = append(route, path[i])
	}

	return route
}

func routeLess(a Route, b Route) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}
