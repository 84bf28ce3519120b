package recast

import (
	"fmt"
	"math"

	"github.com/gorustyt/irrnav/common"
)

const (
	RC_UNSET_HEIGHT = 0xffff

	maxDetailVerts = 127
	maxDetailEdge  = 32
	// Search radius, in cells, for a span under a sample point.
	detailSearchRadius = 2
)

// / Contains triangle meshes that represent detailed height data associated
// / with the polygons in its associated polygon mesh object.
type RcPolyMeshDetail struct {
	Meshes [][4]uint32 // The sub-mesh data. [(baseVertIndex, vertCount, baseTriIndex, triCount) * #nmeshes]
	Verts  []float32   // The mesh vertices. [Size: 3*#nverts]
	Tris   []uint8     // The mesh triangles. [Size: 4*#ntris]
}

func (d *RcPolyMeshDetail) Release() {
	d.Meshes = nil
	d.Verts = nil
	d.Tris = nil
}

func (d *RcPolyMeshDetail) NVerts() int { return len(d.Verts) / 3 }
func (d *RcPolyMeshDetail) NTris() int  { return len(d.Tris) / 4 }

// detailSampler reads surface heights for one polygon out of the compact
// heightfield.
type detailSampler struct {
	chf    *RcCompactHeightfield
	border int
	reg    uint16
}

// height returns the world height of the walkable surface at (fx, fz)
// relative to orig, preferring spans of the polygon's region and the span
// closest to ref.
func (s *detailSampler) height(fx, fz, ref float32) float32 {
	chf := s.chf
	ix := int(common.Floor(fx/chf.Cs)) + s.border
	iz := int(common.Floor(fz/chf.Cs)) + s.border
	refY := int((ref)/chf.Ch + 0.5)

	best := RC_UNSET_HEIGHT
	bestD := math.MaxInt32
	sameRegion := false
	for r := 0; r <= detailSearchRadius && best == RC_UNSET_HEIGHT; r++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if common.Abs(dx) != r && common.Abs(dz) != r {
					continue
				}
				x := ix + dx
				z := iz + dz
				if x < 0 || z < 0 || x >= chf.Width || z >= chf.Height {
					continue
				}
				c := chf.Cells[x+z*chf.Width]
				for i := c.Index; i < c.Index+c.Count; i++ {
					sp := &chf.Spans[i]
					d := common.Abs(int(sp.Y) - refY)
					same := sp.Reg == s.reg
					if (same && !sameRegion) || (same == sameRegion && d < bestD) {
						best = int(sp.Y)
						bestD = d
						sameRegion = same
					}
				}
			}
		}
	}
	if best == RC_UNSET_HEIGHT {
		return ref
	}
	return float32(best) * chf.Ch
}

func distPtTriHeight(p, a, b, c []float32) float32 {
	if h, ok := common.ClosestHeightPointTriangle(p, a, b, c); ok {
		return common.Abs(h - p[1])
	}
	return math.MaxFloat32
}

func distToTriMesh(p []float32, verts []float32, tris []int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i+2 < len(tris); i += 3 {
		d := distPtTriHeight(p, verts[tris[i]*3:], verts[tris[i+1]*3:], verts[tris[i+2]*3:])
		dmin = min(dmin, d)
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

func distToPoly(nvert int, verts []float32, p []float32) float32 {
	dmin := float32(math.MaxFloat32)
	c := false
	for i, j := 0, nvert-1; i < nvert; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > p[2]) != (vj[2] > p[2])) &&
			(p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		d, _ := common.DistancePtSegSqr2D(p, vj, vi)
		dmin = min(dmin, d)
	}
	if c {
		return -common.Sqrt(dmin)
	}
	return common.Sqrt(dmin)
}

// triangulateHull fans the convex hull into triangles, advancing left or
// right depending on which triangle has the shorter perimeter.
func triangulateHull(verts []float32, hull []int, nin int) []int {
	nhull := len(hull)
	start, left, right := 0, 1, nhull-1

	// Start from an ear with shortest perimeter.
	// This tends to favor well formed triangles as starting point.
	dmin := float32(math.MaxFloat32)
	for i := 0; i < nhull; i++ {
		if hull[i] >= nin {
			continue // Ears are triangles with original vertices as middle vertex while others are actually line segments on edges
		}
		pi := common.Prev(i, nhull)
		ni := common.Next(i, nhull)
		pv := verts[hull[pi]*3:]
		cv := verts[hull[i]*3:]
		nv := verts[hull[ni]*3:]
		d := common.Vdist2D(pv, cv) + common.Vdist2D(cv, nv) + common.Vdist2D(nv, pv)
		if d < dmin {
			start, left, right = i, ni, pi
			dmin = d
		}
	}

	tris := []int{hull[start], hull[left], hull[right]}

	// Triangulate the polygon by moving left or right,
	// depending on which triangle has shorter perimeter.
	for common.Next(left, nhull) != right {
		// Check to see if se should advance left or right.
		nleft := common.Next(left, nhull)
		nright := common.Prev(right, nhull)

		cvleft := verts[hull[left]*3:]
		nvleft := verts[hull[nleft]*3:]
		cvright := verts[hull[right]*3:]
		nvright := verts[hull[nright]*3:]
		dleft := common.Vdist2D(cvleft, nvleft) + common.Vdist2D(nvleft, cvright)
		dright := common.Vdist2D(cvright, nvright) + common.Vdist2D(cvleft, nvright)

		if dleft < dright {
			tris = append(tris, hull[left], hull[nleft], hull[right])
			left = nleft
		} else {
			tris = append(tris, hull[left], hull[nright], hull[right])
			right = nright
		}
	}
	return tris
}

// pointInTri2D reports whether p lies inside or on triangle abc on the
// xz-plane, whatever the winding.
func pointInTri2D(p, a, b, c []float32) bool {
	d1 := common.TriArea2D(p, a, b)
	d2 := common.TriArea2D(p, b, c)
	d3 := common.TriArea2D(p, c, a)
	const eps = 1e-6
	hasNeg := d1 < -eps || d2 < -eps || d3 < -eps
	hasPos := d1 > eps || d2 > eps || d3 > eps
	return !(hasNeg && hasPos)
}

// sampleEdge walks edge a-b at sampleDist intervals and returns the samples
// (excluding the end points) needed to keep the edge within sampleMaxError
// of the measured surface.
func (s *detailSampler) sampleEdge(a, b []float32, sampleDist, sampleMaxError float32) []float32 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	dz := b[2] - a[2]
	d := common.Sqrt(dx*dx + dz*dz)
	nn := 1 + int(common.Floor(d/sampleDist))
	if nn >= maxDetailEdge {
		nn = maxDetailEdge - 1
	}

	var edge [(maxDetailEdge + 1) * 3]float32
	for k := 0; k <= nn; k++ {
		u := float32(k) / float32(nn)
		pos := edge[k*3:]
		pos[0] = a[0] + dx*u
		pos[1] = a[1] + dy*u
		pos[2] = a[2] + dz*u
		pos[1] = s.height(pos[0], pos[2], pos[1])
	}
	// Keep the end points on the polygon vertices.
	edge[1] = a[1]
	edge[nn*3+1] = b[1]

	// Simplify samples.
	idx := []int{0, nn}
	for k := 0; k < len(idx)-1; {
		ai := idx[k]
		bi := idx[k+1]
		va := edge[ai*3:]
		vb := edge[bi*3:]
		// Find maximum deviation along the segment.
		var maxd float32
		maxi := -1
		for m := ai + 1; m < bi; m++ {
			dev := distancePtSeg3D(edge[m*3:], va, vb)
			if dev > maxd {
				maxd = dev
				maxi = m
			}
		}
		// If the max deviation is larger than accepted error,
		// add new point, else continue to next segment.
		if maxi != -1 && maxd > sampleMaxError*sampleMaxError {
			idx = append(idx, 0)
			copy(idx[k+2:], idx[k+1:])
			idx[k+1] = maxi
		} else {
			k++
		}
	}

	out := make([]float32, 0, (len(idx)-2)*3)
	for _, i := range idx[1 : len(idx)-1] {
		out = append(out, edge[i*3:i*3+3]...)
	}
	return out
}

func distancePtSeg3D(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqy := q[1] - p[1]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dy := pt[1] - p[1]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)

	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dy*dy + dz*dz
}

// buildPolyDetail triangulates one polygon given in verts (relative to the
// field origin) and returns the detail vertices and triangles.
func (s *detailSampler) buildPolyDetail(in []float32, nin int, sampleDist, sampleMaxError float32) (verts []float32, tris []int) {
	verts = append(verts, in[:nin*3]...)
	hull := make([]int, 0, maxDetailVerts)

	// Tessellate outlines.
	// This is done in separate pass in order to ensure
	// seamless height values across the ply boundaries.
	if sampleDist > 0 {
		for i, j := 0, nin-1; i < nin; j, i = i, i+1 {
			vj := in[j*3 : j*3+3]
			vi := in[i*3 : i*3+3]
			// Make sure the segments are always handled in same order
			// using lexological sort or else there will be seams.
			swapped := false
			if common.Abs(vj[0]-vi[0]) < 1e-6 {
				if vj[2] > vi[2] {
					vj, vi = vi, vj
					swapped = true
				}
			} else if vj[0] > vi[0] {
				vj, vi = vi, vj
				swapped = true
			}
			samples := s.sampleEdge(vj, vi, sampleDist, sampleMaxError)
			ns := len(samples) / 3

			hull = append(hull, j)
			// Add new vertices.
			if swapped {
				for k := ns - 1; k >= 0; k-- {
					if len(verts)/3 >= maxDetailVerts {
						break
					}
					hull = append(hull, len(verts)/3)
					verts = append(verts, samples[k*3:k*3+3]...)
				}
			} else {
				for k := 0; k < ns; k++ {
					if len(verts)/3 >= maxDetailVerts {
						break
					}
					hull = append(hull, len(verts)/3)
					verts = append(verts, samples[k*3:k*3+3]...)
				}
			}
		}
	} else {
		for i := 0; i < nin; i++ {
			hull = append(hull, i)
		}
	}

	tris = triangulateHull(verts, hull, nin)

	if sampleDist <= 0 {
		return verts, tris
	}

	// Create sample locations in a grid.
	var bmin, bmax [3]float32
	copy(bmin[:], in[:3])
	copy(bmax[:], in[:3])
	for i := 1; i < nin; i++ {
		common.Vmin(bmin[:], in[i*3:])
		common.Vmax(bmax[:], in[i*3:])
	}
	x0 := int(common.Floor(bmin[0] / sampleDist))
	x1 := int(common.Ceil(bmax[0] / sampleDist))
	z0 := int(common.Floor(bmin[2] / sampleDist))
	z1 := int(common.Ceil(bmax[2] / sampleDist))

	var samples []float32
	var used []bool
	for z := z0; z < z1; z++ {
		for x := x0; x < x1; x++ {
			pt := []float32{float32(x) * sampleDist, (bmax[1] + bmin[1]) * 0.5, float32(z) * sampleDist}
			// Make sure the samples are not too close to the edges.
			if distToPoly(nin, in, pt) > -sampleDist/2 {
				continue
			}
			pt[1] = s.height(pt[0], pt[2], s.refHeight(verts, tris, pt))
			samples = append(samples, pt...)
			used = append(used, false)
		}
	}

	// Add the samples starting from the one that has the most
	// error. The procedure stops when all samples are added
	// or when the max error is within treshold.
	nsamples := len(samples) / 3
	for iter := 0; iter < nsamples; iter++ {
		if len(verts)/3 >= maxDetailVerts {
			break
		}
		// Find sample with most error.
		bestpt := -1
		var bestd float32
		for i := 0; i < nsamples; i++ {
			if used[i] {
				continue
			}
			d := distToTriMesh(samples[i*3:], verts, tris)
			if d < 0 {
				continue // did not hit the mesh.
			}
			if d > bestd {
				bestd = d
				bestpt = i
			}
		}
		// If the max error is within accepted threshold, stop tesselating.
		if bestd <= sampleMaxError || bestpt == -1 {
			break
		}
		// Mark sample as added.
		used[bestpt] = true
		p := samples[bestpt*3 : bestpt*3+3]
		vi := len(verts) / 3
		verts = append(verts, p...)

		// Split the triangle containing the sample in three.
		for t := 0; t+2 < len(tris); t += 3 {
			a, b, c := tris[t], tris[t+1], tris[t+2]
			if pointInTri2D(p, verts[a*3:], verts[b*3:], verts[c*3:]) {
				tris[t+2] = vi
				tris = append(tris, b, c, vi, c, a, vi)
				break
			}
		}
	}
	return verts, tris
}

// refHeight interpolates the current triangulation at pt, falling back to
// the average vertex height.
func (s *detailSampler) refHeight(verts []float32, tris []int, pt []float32) float32 {
	for t := 0; t+2 < len(tris); t += 3 {
		if h, ok := common.ClosestHeightPointTriangle(pt, verts[tris[t]*3:], verts[tris[t+1]*3:], verts[tris[t+2]*3:]); ok {
			return h
		}
	}
	var sum float32
	n := len(verts) / 3
	for i := 0; i < n; i++ {
		sum += verts[i*3+1]
	}
	return sum / float32(n)
}

func getEdgeFlags(va, vb []float32, vpoly []float32, npoly int) uint8 {
	// The flag returned by this function matches dtDetailTriEdgeFlags in Detour.
	// Figure out if edge (va,vb) is part of the polygon boundary.
	const thrSqr = 0.001 * 0.001
	for i, j := 0, npoly-1; i < npoly; j, i = i, i+1 {
		d0, _ := common.DistancePtSegSqr2D(va, vpoly[j*3:], vpoly[i*3:])
		d1, _ := common.DistancePtSegSqr2D(vb, vpoly[j*3:], vpoly[i*3:])
		if d0 < thrSqr && d1 < thrSqr {
			return 1
		}
	}
	return 0
}

func getTriFlags(va, vb, vc []float32, vpoly []float32, npoly int) uint8 {
	var flags uint8
	flags |= getEdgeFlags(va, vb, vpoly, npoly) << 0
	flags |= getEdgeFlags(vb, vc, vpoly, npoly) << 2
	flags |= getEdgeFlags(vc, va, vpoly, npoly) << 4
	return flags
}

// / Builds a detail mesh from the provided polygon mesh.
func RcBuildPolyMeshDetail(ctx *RcContext, mesh *RcPolyMesh, chf *RcCompactHeightfield, sampleDist, sampleMaxError float32) (*RcPolyMeshDetail, error) {
	if mesh.NVerts == 0 || mesh.NPolys == 0 {
		return nil, fmt.Errorf("rcBuildPolyMeshDetail: empty polygon mesh: %w", common.ErrDegenerateGeometry)
	}

	nvp := mesh.Nvp
	cs := mesh.Cs
	ch := mesh.Ch
	orig := mesh.Bmin

	dmesh := &RcPolyMeshDetail{
		Meshes: make([][4]uint32, mesh.NPolys),
	}

	poly := make([]float32, nvp*3)
	sampler := &detailSampler{chf: chf, border: mesh.BorderSize}
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Poly(i)

		// Store polygon vertices for processing.
		npoly := 0
		for j := 0; j < nvp; j++ {
			if p[j] == RC_MESH_NULL_IDX {
				break
			}
			v := mesh.Verts[int(p[j])*3:]
			poly[j*3+0] = float32(v[0]) * cs
			poly[j*3+1] = float32(v[1]) * ch
			poly[j*3+2] = float32(v[2]) * cs
			npoly++
		}

		sampler.reg = mesh.Regs[i]
		verts, tris := sampler.buildPolyDetail(poly, npoly, sampleDist, sampleMaxError)

		// Move detail verts to world space.
		for j := 0; j < len(verts); j += 3 {
			verts[j+0] += orig[0]
			verts[j+1] += orig[1]
			verts[j+2] += orig[2]
		}
		// Offset poly too, will be used to flag checking.
		for j := 0; j < npoly; j++ {
			poly[j*3+0] += orig[0]
			poly[j*3+1] += orig[1]
			poly[j*3+2] += orig[2]
		}

		ntris := len(tris) / 3
		nverts := len(verts) / 3
		dmesh.Meshes[i] = [4]uint32{uint32(dmesh.NVerts()), uint32(nverts), uint32(dmesh.NTris()), uint32(ntris)}
		dmesh.Verts = append(dmesh.Verts, verts...)
		for j := 0; j < ntris; j++ {
			t := tris[j*3:]
			dmesh.Tris = append(dmesh.Tris, uint8(t[0]), uint8(t[1]), uint8(t[2]),
				getTriFlags(verts[t[0]*3:], verts[t[1]*3:], verts[t[2]*3:], poly, npoly))
		}
	}
	ctx.Logger().Sugar().Debugf("rcBuildPolyMeshDetail: %d polys, %d verts, %d tris", mesh.NPolys, dmesh.NVerts(), dmesh.NTris())
	return dmesh, nil
}
