// Package trust maintains the directed trust relationships between accounts.
package trust

import (
	"math"
	"math/big"
	"sort"

	"github.com/iotaledger/hive.go/core/safemath"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/aboutcircles/circles-engine/pkg/model"
)

// Edge is a directed trust relationship: the truster accepts value issued by
// the trustee, up to Amount base units per transfer, until the edge expires.
type Edge struct {
	Truster   model.AccountID
	Trustee   model.AccountID
	Amount    *big.Int
	CreatedAt model.Tick
	Duration  model.Tick
}

// ExpiresAt returns the last tick the edge is valid on. An edge whose
// lifetime leaves the tick range never expires.
func (e *Edge) ExpiresAt() model.Tick {
	end, err := safemath.SafeAdd(e.CreatedAt, e.Duration)
	if err != nil {
		return model.Tick(math.MaxInt64)
	}

	return end
}

// Expired reports whether the edge is no longer valid at the given time. The
// expiry tick itself is still valid.
func (e *Edge) Expired(now model.Tick) bool {
	return now > e.ExpiresAt()
}

func (e *Edge) String() string {
	return stringify.Struct("Edge",
		stringify.NewStructField("Truster", e.Truster),
		stringify.NewStructField("Trustee", e.Trustee),
		stringify.NewStructField("Amount", e.Amount.String()),
		stringify.NewStructField("CreatedAt", int64(e.CreatedAt)),
		stringify.NewStructField("Duration", int64(e.Duration)),
	)
}

// Graph is the set of trust edges, indexed by truster.
type Graph struct {
	edges *shrinkingmap.ShrinkingMap[model.AccountID, *shrinkingmap.ShrinkingMap[model.AccountID, *Edge]]

	mutex syncutils.RWMutex
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		edges: shrinkingmap.New[model.AccountID, *shrinkingmap.ShrinkingMap[model.AccountID, *Edge]](),
	}
}

// Establish creates the edge truster -> trustee. The first edge between a
// pair wins: repeated establishment leaves the existing edge untouched and
// reports false.
func (g *Graph) Establish(t model.Tick, truster model.AccountID, trustee model.AccountID, amount *big.Int, duration model.Tick) (*Edge, bool) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	outgoing := lo.Return1(g.edges.GetOrCreate(truster, func() *shrinkingmap.ShrinkingMap[model.AccountID, *Edge] {
		return shrinkingmap.New[model.AccountID, *Edge]()
	}))
	if existing, exists := outgoing.Get(trustee); exists {
		return existing, false
	}

	edge := &Edge{
		Truster:   truster,
		Trustee:   trustee,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: t,
		Duration:  duration,
	}
	outgoing.Set(trustee, edge)

	return edge, true
}

// Edge returns the edge truster -> trustee.
func (g *Graph) Edge(truster model.AccountID, trustee model.AccountID) (*Edge, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return g.edge(truster, trustee)
}

// Capacity returns the usable capacity of the edge truster -> trustee at the
// given time, zero when the edge is missing or expired.
func (g *Graph) Capacity(truster model.AccountID, trustee model.AccountID, now model.Tick) *big.Int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	edge, exists := g.edge(truster, trustee)
	if !exists || edge.Expired(now) {
		return new(big.Int)
	}

	return new(big.Int).Set(edge.Amount)
}

// Trustees returns the accounts the truster accepts value from at the given
// time, in ascending order. Expired edges are skipped.
func (g *Graph) Trustees(truster model.AccountID, now model.Tick) []model.AccountID {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	outgoing, exists := g.edges.Get(truster)
	if !exists {
		return nil
	}

	trustees := make([]model.AccountID, 0, outgoing.Size())
	outgoing.ForEach(func(trustee model.AccountID, edge *Edge) bool {
		if !edge.Expired(now) {
			trustees = append(trustees, trustee)
		}

		return true
	})
	sort.Slice(trustees, func(i, j int) bool {
		return trustees[i] < trustees[j]
	})

	return trustees
}

// OutgoingEdges returns all edges of the truster, ascending by trustee.
func (g *Graph) OutgoingEdges(truster model.AccountID) []*Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	outgoing, exists := g.edges.Get(truster)
	if !exists {
		return nil
	}

	edges := outgoing.Values()
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Trustee < edges[j].Trustee
	})

	return edges
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	count := 0
	g.edges.ForEach(func(_ model.AccountID, outgoing *shrinkingmap.ShrinkingMap[model.AccountID, *Edge]) bool {
		count += outgoing.Size()

		return true
	})

	return count
}

func (g *Graph) edge(truster model.AccountID, trustee model.AccountID) (*Edge, bool) {
	outgoing, exists := g.edges.Get(truster)
	if !exists {
		return nil, false
	}

	return outgoing.Get(trustee)
}
