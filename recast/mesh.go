package recast

import (
	"fmt"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/geom"
)

const (
	vertexBucketCount = 1 << 12
	// / Represents the null index. When a polygon vertex or neighbour index has
	// / this value it is considered unused.
	RC_MESH_NULL_IDX = 0xffff

	// The high bit of a polygon's neighbour entry marks a tile-border portal;
	// the low bits hold the portal side.
	RC_PORTAL_FLAG = 0x8000

	triIndexMask = 0x0fffffff
	triCanRemove = 0x40000000
)

// / Represents a polygon mesh suitable for use in building a navigation mesh.
type RcPolyMesh struct {
	Verts  []uint16 // The mesh vertices. [Form: (x, y, z) * #nverts]
	Polys  []uint16 // Polygon and neighbor data. [Length: #maxpolys * 2 * #nvp]
	Regs   []uint16 // The region id assigned to each polygon. [Length: #maxpolys]
	Flags  []uint16 // The user defined flags for each polygon. [Length: #maxpolys]
	Areas  []uint8  // The area id assigned to each polygon. [Length: #maxpolys]
	NVerts int      // The number of vertices.
	NPolys int      // The number of polygons.
	Nvp    int      // The maximum number of vertices per polygon.
	Bmin   [3]float32
	Bmax   [3]float32
	Cs     float32
	Ch     float32
	// / The AABB border size used to generate the source data from which the mesh was derived.
	BorderSize int
	// / The max error of the polygon edges in the mesh.
	MaxEdgeError float32
}

func (m *RcPolyMesh) Release() {
	m.Verts = nil
	m.Polys = nil
	m.Regs = nil
	m.Flags = nil
	m.Areas = nil
}

// Poly returns the vertex and neighbour block of polygon i.
func (m *RcPolyMesh) Poly(i int) []uint16 {
	return m.Polys[i*m.Nvp*2 : (i+1)*m.Nvp*2]
}

type rcEdge struct {
	vert     [2]int
	polyEdge [2]int
	poly     [2]int
}

func buildMeshAdjacency(polys []int, npolys, nverts, vertsPerPoly int) {
	// Based on code by Eric Lengyel from:
	// https://web.archive.org/web/20080704083314/http://www.terathon.com/code/edges.php
	maxEdgeCount := npolys * vertsPerPoly
	firstEdge := make([]int, nverts)
	nextEdge := make([]int, maxEdgeCount)
	edges := make([]rcEdge, 0, maxEdgeCount)
	for i := range firstEdge {
		firstEdge[i] = RC_MESH_NULL_IDX
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < vertsPerPoly && t[j+1] != RC_MESH_NULL_IDX {
				v1 = t[j+1]
			}
			if v0 < v1 {
				edges = append(edges, rcEdge{
					vert:     [2]int{v0, v1},
					poly:     [2]int{i, i},
					polyEdge: [2]int{j, 0},
				})
				// Insert edge
				nextEdge[len(edges)-1] = firstEdge[v0]
				firstEdge[v0] = len(edges) - 1
			}
		}
	}

	for i := 0; i < npolys; i++ {
		t := polys[i*vertsPerPoly*2:]
		for j := 0; j < vertsPerPoly; j++ {
			if t[j] == RC_MESH_NULL_IDX {
				break
			}
			v0 := t[j]
			v1 := t[0]
			if j+1 < vertsPerPoly && t[j+1] != RC_MESH_NULL_IDX {
				v1 = t[j+1]
			}
			if v0 > v1 {
				for e := firstEdge[v1]; e != RC_MESH_NULL_IDX; e = nextEdge[e] {
					edge := &edges[e]
					if edge.vert[1] == v0 && edge.poly[0] == edge.poly[1] {
						edge.poly[1] = i
						edge.polyEdge[1] = j
						break
					}
				}
			}
		}
	}

	// Store adjacency
	for _, e := range edges {
		if e.poly[0] != e.poly[1] {
			p0 := polys[e.poly[0]*vertsPerPoly*2:]
			p1 := polys[e.poly[1]*vertsPerPoly*2:]
			p0[vertsPerPoly+e.polyEdge[0]] = e.poly[1]
			p1[vertsPerPoly+e.polyEdge[1]] = e.poly[0]
		}
	}
}

func computeVertexHash(x, y, z int) int {
	const h1 = 0x8da6b343 // Large multiplicative constants;
	const h2 = 0xd8163841 // here arbitrarily chosen primes
	const h3 = 0xcb1ab31f
	n := uint32(h1*uint32(x) + h2*uint32(y) + h3*uint32(z))
	return int(n & (vertexBucketCount - 1))
}

type vertexWelder struct {
	verts     []int
	firstVert [vertexBucketCount]int
	nextVert  []int
}

func newVertexWelder(capacity int) *vertexWelder {
	w := &vertexWelder{
		verts:    make([]int, 0, capacity*3),
		nextVert: make([]int, 0, capacity),
	}
	for i := range w.firstVert {
		w.firstVert[i] = -1
	}
	return w
}

func (w *vertexWelder) add(x, y, z int) int {
	bucket := computeVertexHash(x, 0, z)
	for i := w.firstVert[bucket]; i != -1; i = w.nextVert[i] {
		v := w.verts[i*3:]
		if v[0] == x && common.Abs(v[1]-y) <= 2 && v[2] == z {
			return i
		}
	}
	// Could not find, create new.
	i := len(w.nextVert)
	w.verts = append(w.verts, x, y, z)
	w.nextVert = append(w.nextVert, w.firstVert[bucket])
	w.firstVert[bucket] = i
	return i
}

// Returns T iff (v_i, v_j) is a proper internal *or* external
// diagonal of P, *ignoring edges incident to v_i and v_j*.
func diagonalie(i, j, n int, verts []int, indices []int, loose bool) bool {
	d0 := getVert4(verts, indices[i]&triIndexMask)
	d1 := getVert4(verts, indices[j]&triIndexMask)

	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := common.Next(k, n)
		// Skip edges incident to i or j
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := getVert4(verts, indices[k]&triIndexMask)
		p1 := getVert4(verts, indices[k1]&triIndexMask)
		if vequal(d0, p0) || vequal(d1, p0) || vequal(d0, p1) || vequal(d1, p1) {
			continue
		}
		if loose {
			if intersectProp(d0, d1, p0, p1) {
				return false
			}
		} else if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

// Returns true iff the diagonal (i,j) is strictly internal to the
// polygon P in the neighborhood of the i endpoint.
func inCone(i, j, n int, verts []int, indices []int, loose bool) bool {
	pi := getVert4(verts, indices[i]&triIndexMask)
	pj := getVert4(verts, indices[j]&triIndexMask)
	pi1 := getVert4(verts, indices[common.Next(i, n)]&triIndexMask)
	pin1 := getVert4(verts, indices[common.Prev(i, n)]&triIndexMask)

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if leftOn(pin1, pi, pi1) {
		if loose {
			return leftOn(pi, pj, pin1) && leftOn(pj, pi, pi1)
		}
		return left(pi, pj, pin1) && left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(leftOn(pi, pj, pi1) && leftOn(pj, pi, pin1))
}

// Returns T iff (v_i, v_j) is a proper internal
// diagonal of P.
func diagonal(i, j, n int, verts []int, indices []int) bool {
	return inCone(i, j, n, verts, indices, false) && diagonalie(i, j, n, verts, indices, false)
}

func diagonalLoose(i, j, n int, verts []int, indices []int) bool {
	return inCone(i, j, n, verts, indices, true) && diagonalie(i, j, n, verts, indices, true)
}

// triangulate ear-clips the contour polygon described by indices into
// verts (4 ints per vertex). A negative result means the contour was broken
// and only -ntris triangles could be produced.
func triangulate(n int, verts []int, indices []int, tris []int) int {
	ntris := 0
	dst := 0

	// The last bit of the index is used to indicate if the vertex can be removed.
	for i := 0; i < n; i++ {
		i1 := common.Next(i, n)
		i2 := common.Next(i1, n)
		if diagonal(i, i2, n, verts, indices) {
			indices[i1] |= triCanRemove
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := common.Next(i, n)
			if indices[i1]&triCanRemove != 0 {
				p0 := getVert4(verts, indices[i]&triIndexMask)
				p2 := getVert4(verts, indices[common.Next(i1, n)]&triIndexMask)
				dx := p2[0] - p0[0]
				dy := p2[2] - p0[2]
				length := dx*dx + dy*dy
				if minLen < 0 || length < minLen {
					minLen = length
					mini = i
				}
			}
		}

		if mini == -1 {
			// We might get here because the contour has overlapping segments, like this:
			//
			//  A o-o=====o---o B
			//   /  |C   D|    \.
			//  o   o     o     o
			//  :   :     :     :
			// We'll try to recover by loosing up the inCone test a bit so that a diagonal
			// like A-B or C-D can be found and we can continue.
			minLen = -1
			for i := 0; i < n; i++ {
				i1 := common.Next(i, n)
				i2 := common.Next(i1, n)
				if diagonalLoose(i, i2, n, verts, indices) {
					p0 := getVert4(verts, indices[i]&triIndexMask)
					p2 := getVert4(verts, indices[common.Next(i2, n)]&triIndexMask)
					dx := p2[0] - p0[0]
					dy := p2[2] - p0[2]
					length := dx*dx + dy*dy
					if minLen < 0 || length < minLen {
						minLen = length
						mini = i
					}
				}
			}
			if mini == -1 {
				// The contour is messed up. This sometimes happens
				// if the contour simplification is too aggressive.
				return -ntris
			}
		}

		i := mini
		i1 := common.Next(i, n)
		i2 := common.Next(i1, n)

		tris[dst+0] = indices[i] & triIndexMask
		tris[dst+1] = indices[i1] & triIndexMask
		tris[dst+2] = indices[i2] & triIndexMask
		dst += 3
		ntris++

		// Removes P[i1] by copying P[i+1]...P[n-1] left one index.
		n--
		copy(indices[i1:n], indices[i1+1:n+1])

		if i1 >= n {
			i1 = 0
		}
		i = common.Prev(i1, n)
		// Update diagonal flags.
		if diagonal(common.Prev(i, n), i1, n, verts, indices) {
			indices[i] |= triCanRemove
		} else {
			indices[i] &= triIndexMask
		}
		if diagonal(i, common.Next(i1, n), n, verts, indices) {
			indices[i1] |= triCanRemove
		} else {
			indices[i1] &= triIndexMask
		}
	}

	// Append the remaining triangle.
	tris[dst+0] = indices[0] & triIndexMask
	tris[dst+1] = indices[1] & triIndexMask
	tris[dst+2] = indices[2] & triIndexMask
	ntris++
	return ntris
}

func countPolyVerts(p []int, nvp int) int {
	for i := 0; i < nvp; i++ {
		if p[i] == RC_MESH_NULL_IDX {
			return i
		}
	}
	return nvp
}

func uleft(a, b, c []int) bool {
	return (b[0]-a[0])*(c[2]-a[2])-(c[0]-a[0])*(b[2]-a[2]) < 0
}

// getPolyMergeValue returns the squared length of the edge shared by pa and
// pb if merging them keeps the result convex, or -1.
func getPolyMergeValue(pa, pb []int, verts []int, nvp int) (value, ea, eb int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	// If the merged polygon would be too big, do not merge.
	if na+nb-2 > nvp {
		return -1, -1, -1
	}

	// Check if the polygons share an edge.
	ea, eb = -1, -1
	for i := 0; i < na && ea == -1; i++ {
		va0 := pa[i]
		va1 := pa[(i+1)%na]
		if va0 > va1 {
			va0, va1 = va1, va0
		}
		for j := 0; j < nb; j++ {
			vb0 := pb[j]
			vb1 := pb[(j+1)%nb]
			if vb0 > vb1 {
				vb0, vb1 = vb1, vb0
			}
			if va0 == vb0 && va1 == vb1 {
				ea = i
				eb = j
				break
			}
		}
	}

	// No common edge, cannot merge.
	if ea == -1 || eb == -1 {
		return -1, -1, -1
	}

	// Check to see if the merged polygon would be convex.
	va := pa[(ea+na-1)%na]
	vb := pa[ea]
	vc := pb[(eb+2)%nb]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, -1, -1
	}

	va = pb[(eb+nb-1)%nb]
	vb = pb[eb]
	vc = pa[(ea+2)%na]
	if !uleft(verts[va*3:], verts[vb*3:], verts[vc*3:]) {
		return -1, -1, -1
	}

	va = pa[ea]
	vb = pa[(ea+1)%na]
	dx := verts[va*3+0] - verts[vb*3+0]
	dy := verts[va*3+2] - verts[vb*3+2]
	return dx*dx + dy*dy, ea, eb
}

func mergePolyVerts(pa, pb []int, ea, eb int, tmp []int, nvp int) {
	na := countPolyVerts(pa, nvp)
	nb := countPolyVerts(pb, nvp)

	for i := 0; i < nvp; i++ {
		tmp[i] = RC_MESH_NULL_IDX
	}
	// Merge polygons.
	n := 0
	// Add pa
	for i := 0; i < na-1; i++ {
		tmp[n] = pa[(ea+1+i)%na]
		n++
	}
	// Add pb
	for i := 0; i < nb-1; i++ {
		tmp[n] = pb[(eb+1+i)%nb]
		n++
	}
	copy(pa[:nvp], tmp[:nvp])
}

// markPortalEdges flags the open polygon edges lying on the tile border so
// the tile can be stitched to its neighbours later.
func markPortalEdges(polys []int, npolys, nvp int, verts []int, w, h int) {
	for i := 0; i < npolys; i++ {
		p := polys[i*2*nvp:]
		for j := 0; j < nvp; j++ {
			if p[j] == RC_MESH_NULL_IDX {
				break
			}
			// Skip connected edges.
			if p[nvp+j] != RC_MESH_NULL_IDX {
				continue
			}
			nj := j + 1
			if nj >= nvp || p[nj] == RC_MESH_NULL_IDX {
				nj = 0
			}
			va := verts[p[j]*3:]
			vb := verts[p[nj]*3:]

			if va[0] == 0 && vb[0] == 0 {
				p[nvp+j] = RC_PORTAL_FLAG | 0
			} else if va[2] == h && vb[2] == h {
				p[nvp+j] = RC_PORTAL_FLAG | 1
			} else if va[0] == w && vb[0] == w {
				p[nvp+j] = RC_PORTAL_FLAG | 2
			} else if va[2] == 0 && vb[2] == 0 {
				p[nvp+j] = RC_PORTAL_FLAG | 3
			}
		}
	}
}

// / Builds a polygon mesh from the provided contours.
func RcBuildPolyMesh(ctx *RcContext, cset *RcContourSet, nvp int) (*RcPolyMesh, error) {
	if nvp < 3 || nvp > 6 {
		return nil, fmt.Errorf("rcBuildPolyMesh: vertices per polygon %d out of range: %w", nvp, common.ErrInput)
	}

	maxVertices := 0
	maxTris := 0
	maxVertsPerCont := 0
	for _, c := range cset.Conts {
		// Skip null contours.
		if c.NVerts() < 3 {
			continue
		}
		maxVertices += c.NVerts()
		maxTris += c.NVerts() - 2
		maxVertsPerCont = max(maxVertsPerCont, c.NVerts())
	}

	welder := newVertexWelder(maxVertices)

	meshPolys := make([]int, 0, maxTris*nvp*2)
	var regs []uint16
	var areas []uint8

	indices := make([]int, maxVertsPerCont)
	tris := make([]int, maxVertsPerCont*3)
	polys := make([]int, (maxVertsPerCont+1)*nvp)
	tmpPoly := polys[maxVertsPerCont*nvp:]

	for _, cont := range cset.Conts {
		// Skip null contours.
		nv := cont.NVerts()
		if nv < 3 {
			continue
		}

		// Triangulate contour
		for j := 0; j < nv; j++ {
			indices[j] = j
		}
		ntris := triangulate(nv, cont.Verts, indices[:nv], tris)
		if ntris <= 0 {
			// Bad triangulation, should not happen.
			ctx.Logger().Sugar().Warnf("rcBuildPolyMesh: Bad triangulation Contour %d.", cont.Reg)
			ntris = -ntris
		}

		// Add and merge vertices.
		for j := 0; j < nv; j++ {
			v := getVert4(cont.Verts, j)
			indices[j] = welder.add(v[0], v[1], v[2])
		}

		// Build initial polygons.
		npolys := 0
		for j := range polys[:maxVertsPerCont*nvp] {
			polys[j] = RC_MESH_NULL_IDX
		}
		for j := 0; j < ntris; j++ {
			t := tris[j*3:]
			if t[0] != t[1] && t[0] != t[2] && t[1] != t[2] {
				polys[npolys*nvp+0] = indices[t[0]]
				polys[npolys*nvp+1] = indices[t[1]]
				polys[npolys*nvp+2] = indices[t[2]]
				npolys++
			}
		}
		if npolys == 0 {
			continue
		}

		// Merge polygons.
		if nvp > 3 {
			for {
				// Find best polygons to merge.
				bestMergeVal := 0
				bestPa, bestPb, bestEa, bestEb := 0, 0, 0, 0

				for j := 0; j < npolys-1; j++ {
					pj := polys[j*nvp:]
					for k := j + 1; k < npolys; k++ {
						pk := polys[k*nvp:]
						v, ea, eb := getPolyMergeValue(pj, pk, welder.verts, nvp)
						if v > bestMergeVal {
							bestMergeVal = v
							bestPa = j
							bestPb = k
							bestEa = ea
							bestEb = eb
						}
					}
				}

				if bestMergeVal <= 0 {
					// Could not merge any polygons, stop.
					break
				}
				// Found best, merge.
				pa := polys[bestPa*nvp : (bestPa+1)*nvp]
				pb := polys[bestPb*nvp : (bestPb+1)*nvp]
				mergePolyVerts(pa, pb, bestEa, bestEb, tmpPoly, nvp)
				if bestPb != npolys-1 {
					copy(pb, polys[(npolys-1)*nvp:npolys*nvp])
				}
				npolys--
			}
		}

		// Store polygons.
		for j := 0; j < npolys; j++ {
			meshPolys = append(meshPolys, polys[j*nvp:(j+1)*nvp]...)
			for k := 0; k < nvp; k++ {
				meshPolys = append(meshPolys, RC_MESH_NULL_IDX)
			}
			regs = append(regs, cont.Reg)
			areas = append(areas, cont.Area)
		}
	}

	nverts := len(welder.verts) / 3
	npolys := len(regs)
	if nverts > 0xfffe {
		return nil, fmt.Errorf("rcBuildPolyMesh: too many vertices %d (max 65534): %w", nverts, common.ErrAllocation)
	}
	if npolys > 0xfffe {
		return nil, fmt.Errorf("rcBuildPolyMesh: too many polygons %d (max 65534): %w", npolys, common.ErrAllocation)
	}
	if npolys == 0 {
		return nil, fmt.Errorf("rcBuildPolyMesh: no polygons: %w", common.ErrDegenerateGeometry)
	}

	// Calculate adjacency.
	buildMeshAdjacency(meshPolys, npolys, nverts, nvp)

	// Find portal edges
	if cset.BorderSize > 0 {
		markPortalEdges(meshPolys, npolys, nvp, welder.verts, cset.Width, cset.Height)
	}

	mesh := &RcPolyMesh{
		Verts:        make([]uint16, len(welder.verts)),
		Polys:        make([]uint16, len(meshPolys)),
		Regs:         regs,
		Flags:        make([]uint16, npolys),
		Areas:        areas,
		NVerts:       nverts,
		NPolys:       npolys,
		Nvp:          nvp,
		Bmin:         cset.Bmin,
		Bmax:         cset.Bmax,
		Cs:           cset.Cs,
		Ch:           cset.Ch,
		BorderSize:   cset.BorderSize,
		MaxEdgeError: cset.MaxError,
	}
	for i, v := range welder.verts {
		mesh.Verts[i] = uint16(v)
	}
	for i, v := range meshPolys {
		mesh.Polys[i] = uint16(v)
	}
	for i, a := range mesh.Areas {
		area := geom.NormalizeArea(geom.Area(a))
		mesh.Areas[i] = uint8(area)
		mesh.Flags[i] = uint16(geom.AreaFlags(area))
	}
	return mesh, nil
}
