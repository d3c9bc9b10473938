package pathfinder_test

import (
	"math/big"
	"testing"

	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/stretchr/testify/require"

	"github.com/aboutcircles/circles-engine/pkg/core/fixed64"
	"github.com/aboutcircles/circles-engine/pkg/model"
	"github.com/aboutcircles/circles-engine/pkg/pathfinder"
	"github.com/aboutcircles/circles-engine/pkg/trust"
)

// network wires a PathFinder to a real trust graph and a plain balance map.
type network struct {
	graph    *trust.Graph
	balances map[model.AccountID]*big.Int
}

func newNetwork() *network {
	return &network{
		graph:    trust.NewGraph(),
		balances: make(map[model.AccountID]*big.Int),
	}
}

func (n *network) finder(opts ...options.Option[pathfinder.PathFinder]) *pathfinder.PathFinder {
	return pathfinder.New(n.graph.Trustees, n.graph.Capacity, func(id model.AccountID) *big.Int {
		if balance, exists := n.balances[id]; exists {
			return new(big.Int).Set(balance)
		}

		return new(big.Int)
	}, opts...)
}

func TestChainRoute(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 3, 2, fixed64.Coins(50), model.DefaultTrustDuration)
	n.balances[1] = fixed64.Coins(50)
	n.balances[2] = fixed64.Coins(50)
	n.balances[3] = fixed64.Coins(50)

	routes := n.finder().Routes(1, 3, 0)
	require.Equal(t, []pathfinder.Route{{1, 2, 3}}, routes)

	// 40 coins fit through the chain
	route, flow, found := n.finder().FindRoute(1, 3, fixed64.Coins(40), 0)
	require.True(t, found)
	require.Equal(t, pathfinder.Route{1, 2, 3}, route)
	require.Equal(t, 0, flow.Cmp(fixed64.Coins(50)))

	// 80 coins exceed both the middle capacity and the balances, the best
	// partial flow is returned
	route, flow, found = n.finder().FindRoute(1, 3, fixed64.Coins(80), 0)
	require.True(t, found)
	require.Equal(t, pathfinder.Route{1, 2, 3}, route)
	require.Equal(t, 0, flow.Cmp(fixed64.Coins(50)))

	// the reverse direction has no trust cover
	_, _, found = n.finder().FindRoute(3, 1, fixed64.Coins(1), 0)
	require.False(t, found)

	_, _, found = n.finder().FindRoute(1, 1, fixed64.Coins(1), 0)
	require.False(t, found)
}

func TestDeterministicTieBreak(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 3, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 4, 2, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 4, 3, fixed64.Coins(100), model.DefaultTrustDuration)
	for id := model.AccountID(1); id <= 4; id++ {
		n.balances[id] = fixed64.Coins(50)
	}

	// both arms of the diamond carry the amount, the smaller id sequence wins
	route, _, found := n.finder().FindRoute(1, 4, fixed64.Coins(10), 0)
	require.True(t, found)
	require.Equal(t, pathfinder.Route{1, 2, 4}, route)
}

func TestLargestPartialFlow(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 3, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 4, 2, fixed64.Coins(30), model.DefaultTrustDuration)
	n.graph.Establish(0, 4, 3, fixed64.Coins(20), model.DefaultTrustDuration)
	for id := model.AccountID(1); id <= 4; id++ {
		n.balances[id] = fixed64.Coins(50)
	}

	route, flow, found := n.finder().FindRoute(1, 4, fixed64.Coins(100), 0)
	require.True(t, found)
	require.Equal(t, pathfinder.Route{1, 2, 4}, route)
	require.Equal(t, 0, flow.Cmp(fixed64.Coins(30)))
}

func TestMaxHops(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 3, 2, fixed64.Coins(100), model.DefaultTrustDuration)
	n.balances[1] = fixed64.Coins(50)
	n.balances[2] = fixed64.Coins(50)
	n.balances[3] = fixed64.Coins(50)

	_, _, found := n.finder(pathfinder.WithMaxHops(1)).FindRoute(1, 3, fixed64.Coins(1), 0)
	require.False(t, found)

	_, _, found = n.finder(pathfinder.WithMaxHops(2)).FindRoute(1, 3, fixed64.Coins(1), 0)
	require.True(t, found)
}

func TestExpiredEdgesAreNotTraversed(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.graph.Establish(0, 3, 2, fixed64.Coins(100), 10)
	n.balances[1] = fixed64.Coins(50)
	n.balances[2] = fixed64.Coins(50)
	n.balances[3] = fixed64.Coins(50)

	_, _, found := n.finder().FindRoute(1, 3, fixed64.Coins(1), 10)
	require.True(t, found)

	_, _, found = n.finder().FindRoute(1, 3, fixed64.Coins(1), 11)
	require.False(t, found)
}

func TestDrainedRouteIsUnusable(t *testing.T) {
	n := newNetwork()
	n.graph.Establish(0, 2, 1, fixed64.Coins(100), model.DefaultTrustDuration)
	n.balances[1] = new(big.Int)
	n.balances[2] = fixed64.Coins(50)

	_, _, found := n.finder().FindRoute(1, 2, fixed64.Coins(1), 0)
	require.False(t, found)
}
