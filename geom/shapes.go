package geom

import "github.com/go-gl/mathgl/mgl32"

// Quad returns a two-triangle buffer for the quad a-b-c-d. Vertices wind so
// that a horizontal quad given as (minx,minz), (minx,maxz), (maxx,maxz),
// (maxx,minz) faces up.
func Quad(a, b, c, d mgl32.Vec3) *TriBuffer {
	return &TriBuffer{
		Type:      VertexStandard,
		Positions: []mgl32.Vec3{a, b, c, d},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Plane returns an up-facing horizontal rectangle at height y.
func Plane(minX, minZ, maxX, maxZ, y float32) *TriBuffer {
	return Quad(
		mgl32.Vec3{minX, y, minZ},
		mgl32.Vec3{minX, y, maxZ},
		mgl32.Vec3{maxX, y, maxZ},
		mgl32.Vec3{maxX, y, minZ},
	)
}

// Ramp returns an up-facing rectangle rising linearly along +x from y0 to y1.
func Ramp(minX, minZ, maxX, maxZ, y0, y1 float32) *TriBuffer {
	return Quad(
		mgl32.Vec3{minX, y0, minZ},
		mgl32.Vec3{minX, y0, maxZ},
		mgl32.Vec3{maxX, y1, maxZ},
		mgl32.Vec3{maxX, y1, minZ},
	)
}

// Box returns a closed axis-aligned box with outward facing triangles.
func Box(bmin, bmax mgl32.Vec3) *TriBuffer {
	x0, y0, z0 := bmin[0], bmin[1], bmin[2]
	x1, y1, z1 := bmax[0], bmax[1], bmax[2]
	pos := []mgl32.Vec3{
		{x0, y0, z0}, {x1, y0, z0}, {x1, y0, z1}, {x0, y0, z1},
		{x0, y1, z0}, {x1, y1, z0}, {x1, y1, z1}, {x0, y1, z1},
	}
	idx := []uint32{
		// top
		4, 7, 6, 4, 6, 5,
		// bottom
		0, 1, 2, 0, 2, 3,
		// -z
		0, 4, 5, 0, 5, 1,
		// +z
		3, 2, 6, 3, 6, 7,
		// -x
		0, 3, 7, 0, 7, 4,
		// +x
		1, 5, 6, 1, 6, 2,
	}
	return &TriBuffer{Type: VertexStandard, Positions: pos, Indices: idx}
}
