package geom

import (
	"sort"

	"github.com/gorustyt/irrnav/common"
)

type chunkyNode struct {
	bmin [2]float32
	bmax [2]float32
	// Leaf: first triangle in tris. Internal: negative escape offset.
	i int
	n int
}

// ChunkyTriMesh is a bounding volume tree over the xz bounds of a triangle
// soup. Leaves hold at most trisPerChunk triangles so the tiled compiler can
// gather the triangles touching one tile without scanning the whole mesh.
type ChunkyTriMesh struct {
	nodes           []chunkyNode
	tris            []int32
	areas           []uint8
	MaxTrisPerChunk int
}

type boundsItem struct {
	bmin [2]float32
	bmax [2]float32
	i    int
}

// NewChunkyTriMesh builds the tree over g.
func NewChunkyTriMesh(g *InputGeom, trisPerChunk int) *ChunkyTriMesh {
	if trisPerChunk <= 0 {
		trisPerChunk = 256
	}
	ntris := g.TriCount()
	items := make([]boundsItem, ntris)
	for i := range items {
		t := g.Tris[i*3:]
		v := common.GetVert3(g.Verts, t[0])
		it := &items[i]
		it.i = i
		it.bmin = [2]float32{v[0], v[2]}
		it.bmax = it.bmin
		for j := 1; j < 3; j++ {
			v = common.GetVert3(g.Verts, t[j])
			it.bmin[0] = min(it.bmin[0], v[0])
			it.bmin[1] = min(it.bmin[1], v[2])
			it.bmax[0] = max(it.bmax[0], v[0])
			it.bmax[1] = max(it.bmax[1], v[2])
		}
	}

	cm := &ChunkyTriMesh{
		tris:  make([]int32, 0, ntris*3),
		areas: make([]uint8, 0, ntris),
	}
	cm.subdivide(items, g, trisPerChunk)

	for _, node := range cm.nodes {
		if node.i >= 0 && node.n > cm.MaxTrisPerChunk {
			cm.MaxTrisPerChunk = node.n
		}
	}
	return cm
}

func calcExtends(items []boundsItem) (bmin, bmax [2]float32) {
	bmin, bmax = items[0].bmin, items[0].bmax
	for _, it := range items[1:] {
		bmin[0] = min(bmin[0], it.bmin[0])
		bmin[1] = min(bmin[1], it.bmin[1])
		bmax[0] = max(bmax[0], it.bmax[0])
		bmax[1] = max(bmax[1], it.bmax[1])
	}
	return
}

func (cm *ChunkyTriMesh) subdivide(items []boundsItem, g *InputGeom, trisPerChunk int) {
	if len(items) == 0 {
		return
	}
	idx := len(cm.nodes)
	cm.nodes = append(cm.nodes, chunkyNode{})
	bmin, bmax := calcExtends(items)
	cm.nodes[idx].bmin = bmin
	cm.nodes[idx].bmax = bmax

	if len(items) <= trisPerChunk {
		// Leaf
		cm.nodes[idx].i = len(cm.tris) / 3
		cm.nodes[idx].n = len(items)
		for _, it := range items {
			cm.tris = append(cm.tris, g.Tris[it.i*3:it.i*3+3]...)
			cm.areas = append(cm.areas, g.Areas[it.i])
		}
		return
	}

	// Split along the longest axis.
	axis := 0
	if bmax[1]-bmin[1] > bmax[0]-bmin[0] {
		axis = 1
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].bmin[axis] < items[j].bmin[axis]
	})
	isplit := len(items) / 2
	cm.subdivide(items[:isplit], g, trisPerChunk)
	cm.subdivide(items[isplit:], g, trisPerChunk)

	// Negative index means escape.
	cm.nodes[idx].i = -(len(cm.nodes) - idx)
}

func checkOverlapRect(amin, amax, bmin, bmax [2]float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	return true
}

// TrianglesInRect returns the triangles (vertex indices and areas) of every
// leaf whose xz bounds overlap the rectangle [bmin, bmax].
func (cm *ChunkyTriMesh) TrianglesInRect(bmin, bmax [2]float32) (tris []int32, areas []uint8) {
	for i := 0; i < len(cm.nodes); {
		node := &cm.nodes[i]
		overlap := checkOverlapRect(bmin, bmax, node.bmin, node.bmax)
		isLeaf := node.i >= 0
		if isLeaf && overlap {
			tris = append(tris, cm.tris[node.i*3:(node.i+node.n)*3]...)
			areas = append(areas, cm.areas[node.i:node.i+node.n]...)
		}
		if overlap || isLeaf {
			i++
		} else {
			i += -node.i
		}
	}
	return tris, areas
}
