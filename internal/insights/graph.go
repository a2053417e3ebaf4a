package insights

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
)

// depGraph is a named directed dependency graph backed by gonum.
// An edge from -> to means "from depends on to".
type depGraph struct {
	g     *simple.DirectedGraph
	ids   map[string]int64
	names map[int64]string
}

// newDepGraph creates a graph with one node per name. Node IDs follow
// the order of names so algorithm output is reproducible.
func newDepGraph(names []string) *depGraph {
	d := &depGraph{
		g:     simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(names)),
		names: make(map[int64]string, len(names)),
	}
	for _, n := range names {
		d.node(n)
	}
	return d
}

func (d *depGraph) node(name string) int64 {
	if id, ok := d.ids[name]; ok {
		return id
	}
	id := int64(len(d.ids))
	d.ids[name] = id
	d.names[id] = name
	d.g.AddNode(simple.Node(id))
	return id
}

// link adds from -> to. Self loops are dropped; simple graphs reject them.
func (d *depGraph) link(from, to string) {
	if from == to {
		return
	}
	f, t := d.node(from), d.node(to)
	d.g.SetEdge(simple.Edge{F: simple.Node(f), T: simple.Node(t)})
}

// cycles returns every strongly connected component with more than one
// member. Members are sorted and components are ordered by first member.
func (d *depGraph) cycles() [][]string {
	out := [][]string{}
	for _, scc := range topo.TarjanSCC(d.g) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, 0, len(scc))
		for _, n := range scc {
			members = append(members, d.names[n.ID()])
		}
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// pageRank scores nodes by how much of the graph ultimately depends on
// them.
func (d *depGraph) pageRank() map[string]float64 {
	out := make(map[string]float64, len(d.ids))
	if len(d.ids) == 0 {
		return out
	}
	for id, rank := range network.PageRankSparse(d.g, pageRankDamping, pageRankTolerance) {
		out[d.names[id]] = rank
	}
	return out
}
