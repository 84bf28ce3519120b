package detour

import (
	"github.com/gorustyt/irrnav/common"
)

// dtDistancePtPolyEdgesSqr reports whether pt is inside the polygon and fills
// ed/et with the squared distance and segment parameter to every edge.
func dtDistancePtPolyEdgesSqr(pt, verts []float32, nverts int, ed, et []float32) (inside bool) {
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3 : i*3+3]
		vj := verts[j*3 : j*3+3]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) && (pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			inside = !inside
		}
		ed[j], et[j] = common.DistancePtSegSqr2D(pt, vj, vi)
	}
	return inside
}

func vperpXZ(a, b []float32) float32 { return a[0]*b[2] - a[2]*b[0] }

func dtIntersectSegSeg2D(ap, aq, bp, bq []float32) (s, t float32, ok bool) {
	var u, v, w [3]float32
	common.Vsub(u[:], aq, ap)
	common.Vsub(v[:], bq, bp)
	common.Vsub(w[:], ap, bp)
	d := vperpXZ(u[:], v[:])
	if common.Abs(d) < 1e-6 {
		return 0, 0, false
	}
	s = vperpXZ(v[:], w[:]) / d
	t = vperpXZ(u[:], w[:]) / d
	return s, t, true
}

func dtCalcPolyCenter(tile *DtMeshTile, poly *DtPoly) (c [3]float32) {
	nv := int(poly.VertCount)
	for j := 0; j < nv; j++ {
		common.Vadd(c[:], c[:], tile.vert(poly.Verts[j]))
	}
	common.Vscale(c[:], c[:], 1/float32(nv))
	return c
}

func overlapSlabs(amin, amax, bmin, bmax [2]float32, px, py float32) bool {
	// Check for horizontal overlap.
	// The segment is shrunken a little so that slabs which touch
	// at end points are not connected.
	minx := max(amin[0]+px, bmin[0]+px)
	maxx := min(amax[0]-px, bmax[0]-px)
	if minx > maxx {
		return false
	}

	// Check vertical overlap.
	ad := (amax[1] - amin[1]) / (amax[0] - amin[0])
	ak := amin[1] - ad*amin[0]
	bd := (bmax[1] - bmin[1]) / (bmax[0] - bmin[0])
	bk := bmin[1] - bd*bmin[0]
	aminy := ad*minx + ak
	amaxy := ad*maxx + ak
	bminy := bd*minx + bk
	bmaxy := bd*maxx + bk
	dmin := bminy - aminy
	dmax := bmaxy - amaxy

	// Crossing segments always overlap.
	if dmin*dmax < 0 {
		return true
	}

	// Check for overlap at endpoints.
	thr := common.Sqr(py * 2)
	return dmin*dmin <= thr || dmax*dmax <= thr
}

func getSlabCoord(va []float32, side int) float32 {
	if side == 0 || side == 4 {
		return va[0]
	} else if side == 2 || side == 6 {
		return va[2]
	}
	return 0
}

// calcSlabEndPoints projects edge va-vb onto the tile side: x holds the
// coordinate along the side, y the height.
func calcSlabEndPoints(va, vb []float32, side int) (bmin, bmax [2]float32) {
	axis := 0
	if side == 0 || side == 4 {
		axis = 2
	}
	if va[axis] < vb[axis] {
		return [2]float32{va[axis], va[1]}, [2]float32{vb[axis], vb[1]}
	}
	return [2]float32{vb[axis], vb[1]}, [2]float32{va[axis], va[1]}
}

// neighbourTileOffset returns the tile offset for one of the eight sides.
func neighbourTileOffset(side int) (dx, dy int32) {
	switch side {
	case 0:
		return 1, 0
	case 1:
		return 1, 1
	case 2:
		return 0, 1
	case 3:
		return -1, 1
	case 4:
		return -1, 0
	case 5:
		return -1, -1
	case 6:
		return 0, -1
	default:
		return 1, -1
	}
}
