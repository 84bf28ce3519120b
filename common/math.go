package common

import (
	"math"
)

const EPS = 1e-6

// / Returns the square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// / Clamps the value to the specified range.
// / @param[in]		v	The value to clamp.
// / @param[in]		mn	The minimum permitted return value.
// / @param[in]		mx	The maximum permitted return value.
func Clamp[T IT](v, mn, mx T) T {
	if v < mn {
		return mn
	}
	if v > mx {
		return mx
	}
	return v
}

func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func Floor(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

func Ceil(x float32) float32 {
	return float32(math.Ceil(float64(x)))
}

// / Performs a vector addition. (@p v1 + @p v2)
func Vadd(res []float32, v1, v2 []float32) {
	res[0] = v1[0] + v2[0]
	res[1] = v1[1] + v2[1]
	res[2] = v1[2] + v2[2]
}

// / Performs a vector subtraction. (@p v1 - @p v2)
func Vsub(res, v1, v2 []float32) {
	res[0] = v1[0] - v2[0]
	res[1] = v1[1] - v2[1]
	res[2] = v1[2] - v2[2]
}

// / Performs a scaled vector addition. (@p v1 + (@p v2 * @p s))
func Vmad(res, v1, v2 []float32, s float32) {
	res[0] = v1[0] + v2[0]*s
	res[1] = v1[1] + v2[1]*s
	res[2] = v1[2] + v2[2]*s
}

// / Scales the vector by the specified value. (@p v * @p t)
func Vscale(res, v []float32, t float32) {
	res[0] = v[0] * t
	res[1] = v[1] * t
	res[2] = v[2] * t
}

// / Performs a linear interpolation between two vectors. (@p v1 toward @p v2)
func Vlerp(res, v1, v2 []float32, t float32) {
	res[0] = v1[0] + (v2[0]-v1[0])*t
	res[1] = v1[1] + (v2[1]-v1[1])*t
	res[2] = v1[2] + (v2[2]-v1[2])*t
}

// / Selects the minimum value of each element from the specified vectors.
func Vmin(mn, v []float32) {
	mn[0] = min(mn[0], v[0])
	mn[1] = min(mn[1], v[1])
	mn[2] = min(mn[2], v[2])
}

// / Selects the maximum value of each element from the specified vectors.
func Vmax(mx, v []float32) {
	mx[0] = max(mx[0], v[0])
	mx[1] = max(mx[1], v[1])
	mx[2] = max(mx[2], v[2])
}

func Vcopy(dst, src []float32) {
	dst[0] = src[0]
	dst[1] = src[1]
	dst[2] = src[2]
}

func Vset(dst []float32, x, y, z float32) {
	dst[0] = x
	dst[1] = y
	dst[2] = z
}

// / Derives the dot product of two vectors. (@p v1 . @p v2)
func Vdot(v1, v2 []float32) float32 {
	return v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]
}

// / Derives the dot product of two vectors on the xz-plane.
func Vdot2D(u, v []float32) float32 {
	return u[0]*v[0] + u[2]*v[2]
}

// / Derives the xz-plane 2D perp product of the two vectors. (uz*vx - ux*vz)
func Vperp2D(u, v []float32) float32 {
	return u[2]*v[0] - u[0]*v[2]
}

// / Derives the cross product of two vectors. (@p v1 x @p v2)
func Vcross(dest, v1, v2 []float32) {
	dest[0] = v1[1]*v2[2] - v1[2]*v2[1]
	dest[1] = v1[2]*v2[0] - v1[0]*v2[2]
	dest[2] = v1[0]*v2[1] - v1[1]*v2[0]
}

func Vlen(v []float32) float32 {
	return Sqrt(VlenSqr(v))
}

func VlenSqr(v []float32) float32 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func Vdist(v1, v2 []float32) float32 {
	return Sqrt(VdistSqr(v1, v2))
}

func VdistSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	dz := v2[2] - v1[2]
	return dx*dx + dy*dy + dz*dz
}

// / Derives the distance between the specified points on the xz-plane.
func Vdist2D(v1, v2 []float32) float32 {
	return Sqrt(Vdist2DSqr(v1, v2))
}

func Vdist2DSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dz := v2[2] - v1[2]
	return dx*dx + dz*dz
}

// / Normalizes the vector.
func Vnormalize(v []float32) {
	d := VlenSqr(v)
	if d <= 0 {
		return
	}
	d = 1.0 / Sqrt(d)
	v[0] *= d
	v[1] *= d
	v[2] *= d
}

// / Performs a 'sloppy' colocation check of the specified points.
// / Points closer than 1/16384 are considered equal.
func Vequal(p0, p1 []float32) bool {
	thr := Sqr(float32(1.0) / 16384.0)
	return VdistSqr(p0, p1) < thr
}

// / Derives the signed xz-plane area of the triangle ABC, or the relationship of line AB to point C.
func TriArea2D(a, b, c []float32) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

// / Determines if two axis-aligned bounding boxes overlap.
func OverlapBounds(amin, amax, bmin, bmax []float32) bool {
	if amin[0] > bmax[0] || amax[0] < bmin[0] {
		return false
	}
	if amin[1] > bmax[1] || amax[1] < bmin[1] {
		return false
	}
	if amin[2] > bmax[2] || amax[2] < bmin[2] {
		return false
	}
	return true
}

// DistancePtSegSqr2D returns the squared xz distance from pt to segment pq and
// the parameter of the closest point along the segment.
func DistancePtSegSqr2D(pt, p, q []float32) (distSqr, t float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// PointInPolygon tests pt against the xz projection of a polygon given as a
// flat vertex slice of nverts points. Boundary points may land on either side.
func PointInPolygon(pt []float32, verts []float32, nverts int) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*3:]
		vj := verts[j*3:]
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) &&
			(pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// ClosestHeightPointTriangle returns the height of triangle abc under p when p
// projects inside the triangle on the xz-plane.
func ClosestHeightPointTriangle(p, a, b, c []float32) (float32, bool) {
	const eps = 1e-4
	v0 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	v1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v2 := [3]float32{p[0] - a[0], p[1] - a[1], p[2] - a[2]}

	// Compute scaled barycentric coordinates
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if Abs(denom) < EPS {
		return 0, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]
	if denom < 0 {
		denom = -denom
		u = -u
		v = -v
	}

	// If point lies inside the triangle, return interpolated ycoord.
	tol := eps * denom
	if u >= -tol && v >= -tol && (u+v) <= denom+tol {
		return a[1] + (v0[1]*u+v1[1]*v)/denom, true
	}
	return 0, false
}

// / Returns the next power of 2 greater than or equal to v.
func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

// / Returns the integer base 2 logarithm of v.
func Ilog2(v uint32) uint32 {
	var r, shift uint32
	if v > 0xffff {
		r = 1 << 4
	}
	v >>= r
	if v > 0xff {
		shift = 1 << 3
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	if v > 0xf {
		shift = 1 << 2
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	if v > 0x3 {
		shift = 1 << 1
	} else {
		shift = 0
	}
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}
