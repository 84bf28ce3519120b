package recast

// Integer polygon predicates used by the contour and polygon mesh builders.
// Vertices are (x, y, z) triples or (x, y, z, flags) quads; only x and z are
// read.

func area2(a, b, c []int) int {
	return (b[0]-a[0])*(c[2]-a[2]) - (c[0]-a[0])*(b[2]-a[2])
}

// Returns true iff c is strictly to the left of the directed
// line through a to b.
func left(a, b, c []int) bool {
	return area2(a, b, c) < 0
}

func leftOn(a, b, c []int) bool {
	return area2(a, b, c) <= 0
}

func collinear(a, b, c []int) bool {
	return area2(a, b, c) == 0
}

// Returns true iff ab properly intersects cd: they share
// a point interior to both segments. The properness of the
// intersection is ensured by using strict leftness.
func intersectProp(a, b, c, d []int) bool {
	// Eliminate improper cases.
	if collinear(a, b, c) || collinear(a, b, d) ||
		collinear(c, d, a) || collinear(c, d, b) {
		return false
	}
	return (left(a, b, c) != left(a, b, d)) && (left(c, d, a) != left(c, d, b))
}

// Returns T iff (a,b,c) are collinear and point c lies
// on the closed segment ab.
func between(a, b, c []int) bool {
	if !collinear(a, b, c) {
		return false
	}
	// If ab not vertical, check betweenness on x; else on y.
	if a[0] != b[0] {
		return ((a[0] <= c[0]) && (c[0] <= b[0])) || ((a[0] >= c[0]) && (c[0] >= b[0]))
	}
	return ((a[2] <= c[2]) && (c[2] <= b[2])) || ((a[2] >= c[2]) && (c[2] >= b[2]))
}

// Returns true iff segments ab and cd intersect, properly or improperly.
func intersect(a, b, c, d []int) bool {
	if intersectProp(a, b, c, d) {
		return true
	}
	return between(a, b, c) || between(a, b, d) ||
		between(c, d, a) || between(c, d, b)
}

func vequal(a, b []int) bool {
	return a[0] == b[0] && a[2] == b[2]
}

func getVert4(verts []int, i int) []int {
	return verts[i*4 : i*4+4]
}
