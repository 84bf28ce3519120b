package navmesh

import (
	"sort"
	"sync"

	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/recast"
)

type tileCoord struct{ x, y int }

// Graph is one built navigation graph. It is never mutated after it has been
// published; rebuilds produce a new Graph.
type Graph struct {
	nav  *detour.DtNavMesh
	bmin [3]float32
	bmax [3]float32

	// details holds the retained detail meshes by tile, nil when they were
	// not requested.
	details map[tileCoord]*recast.RcPolyMeshDetail

	queries sync.Pool
}

func newGraph(nav *detour.DtNavMesh, bmin, bmax [3]float32, details map[tileCoord]*recast.RcPolyMeshDetail, maxNodes int) *Graph {
	g := &Graph{nav: nav, bmin: bmin, bmax: bmax, details: details}
	g.queries.New = func() any {
		return detour.NewDtNavMeshQuery(nav, maxNodes)
	}
	return g
}

// NavMesh returns the graph's navigation mesh. It must be treated as read-only.
func (g *Graph) NavMesh() *detour.DtNavMesh { return g.nav }

// Bounds returns the bounds of the input geometry the graph was built from.
func (g *Graph) Bounds() (bmin, bmax [3]float32) { return g.bmin, g.bmax }

// DetailMeshes returns the retained detail meshes ordered by tile row then
// column, or nil when none were retained.
func (g *Graph) DetailMeshes() []*recast.RcPolyMeshDetail {
	if g.details == nil {
		return nil
	}
	keys := make([]tileCoord, 0, len(g.details))
	for k := range g.details {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].y != keys[j].y {
			return keys[i].y < keys[j].y
		}
		return keys[i].x < keys[j].x
	})
	res := make([]*recast.RcPolyMeshDetail, len(keys))
	for i, k := range keys {
		res[i] = g.details[k]
	}
	return res
}

// withQuery runs fn with a query object bound to the graph. Queries keep
// search state, so each concurrent caller gets its own.
func (g *Graph) withQuery(fn func(q *detour.DtNavMeshQuery)) {
	q := g.queries.Get().(*detour.DtNavMeshQuery)
	defer g.queries.Put(q)
	fn(q)
}
