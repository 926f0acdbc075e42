package track

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrCycle means the feasibility graph is not acyclic, which forward-time
// edges make impossible unless timestamps are corrupt.
var ErrCycle = errors.New("track graph contains a cycle")

// Point is a position fix as seen by the tracker. P is northing + i*easting.
type Point struct {
	PositionID int64
	Timestamp  float64
	P          complex128
	Likelihood float64
	Activity   float64
}

// Speed returns the straight-line speed from a to b.
func Speed(a, b Point) float64 {
	return cmplx.Abs(b.P-a.P) / (b.Timestamp - a.Timestamp)
}

// Graph is the feasibility DAG over an arena of points addressed by
// index. Node i of the gonum graph has ID i.
type Graph struct {
	Points []Point

	g   *simple.DirectedGraph
	in  [][]int
	out [][]int
}

func newGraph(points []Point) *Graph {
	g := &Graph{
		Points: points,
		g:      simple.NewDirectedGraph(),
		in:     make([][]int, len(points)),
		out:    make([][]int, len(points)),
	}
	for i := range points {
		g.g.AddNode(simple.Node(i))
	}
	return g
}

func (g *Graph) addEdge(u, v int) {
	g.g.SetEdge(g.g.NewEdge(simple.Node(u), simple.Node(v)))
	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)
}

// Build links u -> v whenever v is later than u and the target could
// cover the distance in time: Speed(u, v) < maxSpeed(t_v - t_u).
func Build(points []Point, maxSpeed MaxSpeed) *Graph {
	g := newGraph(points)
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			u, v := points[i], points[j]
			if u.Timestamp < v.Timestamp && Speed(u, v) < maxSpeed(v.Timestamp-u.Timestamp) {
				g.addEdge(i, j)
			}
			if v.Timestamp < u.Timestamp && Speed(v, u) < maxSpeed(u.Timestamp-v.Timestamp) {
				g.addEdge(j, i)
			}
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Points) }

// Edges returns the number of feasible transitions.
func (g *Graph) Edges() int {
	n := 0
	for _, out := range g.out {
		n += len(out)
	}
	return n
}

// Roots returns the nodes without predecessors.
func (g *Graph) Roots() []int {
	var roots []int
	for i, in := range g.in {
		if len(in) == 0 {
			roots = append(roots, i)
		}
	}
	return roots
}

// Sort returns the node indices in topological order, breaking ties by
// index.
func (g *Graph) Sort() ([]int, error) {
	sorted, err := topo.SortStabilized(g.g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int {
			switch {
			case a.ID() < b.ID():
				return -1
			case a.ID() > b.ID():
				return 1
			}
			return 0
		})
	})
	if err != nil {
		var cyc topo.Unorderable
		if errors.As(err, &cyc) {
			return nil, fmt.Errorf("%w: %d strongly connected components", ErrCycle, len(cyc))
		}
		return nil, err
	}
	order := make([]int, len(sorted))
	for i, n := range sorted {
		order[i] = int(n.ID())
	}
	return order, nil
}

// CriticalPath returns the maximum-weight path over a topological order.
// Each node scores the best positive predecessor score plus hopCost plus
// its likelihood; a node whose predecessors all score <= 0 starts a new
// path.
func (g *Graph) CriticalPath(order []int, hopCost float64) []int {
	dist := make([]float64, g.Len())
	parent := make([]int, g.Len())
	best, bestDist := -1, math.Inf(-1)
	for _, v := range order {
		mdist, mparent := 0.0, -1
		for _, u := range g.in[v] {
			if dist[u] > mdist {
				mdist, mparent = dist[u], u
			}
		}
		parent[v] = mparent
		dist[v] = mdist + hopCost + g.Points[v].Likelihood
		if dist[v] > bestDist {
			best, bestDist = v, dist[v]
		}
	}

	var path []int
	for v := best; v != -1; v = parent[v] {
		path = append(path, v)
	}
	slices.Reverse(path)
	return path
}

// Components returns the weakly connected components of the graph as
// sets of node indices, largest first.
func (g *Graph) Components() [][]int {
	uf := newUnionFind(g.Len())
	for u, out := range g.out {
		for _, v := range out {
			uf.union(u, v)
		}
	}
	byRoot := make(map[int][]int)
	var roots []int
	for i := 0; i < g.Len(); i++ {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	out := make([][]int, len(roots))
	for i, r := range roots {
		out[i] = byRoot[r]
	}
	slices.SortStableFunc(out, func(a, b []int) int { return len(b) - len(a) })
	return out
}
