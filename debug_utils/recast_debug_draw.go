package debug_utils

import (
	"github.com/gorustyt/irrnav/recast"
)

func detailVert(dmesh *recast.RcPolyMeshDetail, base uint32, i uint8) []float32 {
	v := (base + uint32(i)) * 3
	return dmesh.Verts[v : v+3]
}

// DuDebugDrawPolyMeshDetail draws the detail triangles of every polygon with
// a per-polygon color, then the internal and external detail edges.
func DuDebugDrawPolyMeshDetail(dd DuDebugDraw, dmesh *recast.RcPolyMeshDetail) {
	if dd == nil || dmesh == nil {
		return
	}

	dd.Begin(DU_DRAW_TRIS)
	for i, m := range dmesh.Meshes {
		bverts, btris, ntris := m[0], m[2], m[3]
		color := DuIntToCol(i, 192)
		for j := uint32(0); j < ntris; j++ {
			t := dmesh.Tris[(btris+j)*4:]
			dd.Vertex(detailVert(dmesh, bverts, t[0]), color)
			dd.Vertex(detailVert(dmesh, bverts, t[1]), color)
			dd.Vertex(detailVert(dmesh, bverts, t[2]), color)
		}
	}
	dd.End()

	// Internal edges.
	dd.Begin(DU_DRAW_LINES, 1.0)
	coli := DuRGBA(0, 0, 0, 64)
	drawDetailEdges(dd, dmesh, coli, false)
	dd.End()

	// External edges.
	dd.Begin(DU_DRAW_LINES, 2.0)
	cole := DuRGBA(0, 0, 0, 64)
	drawDetailEdges(dd, dmesh, cole, true)
	dd.End()
}

func drawDetailEdges(dd DuDebugDraw, dmesh *recast.RcPolyMeshDetail, col Colorb, boundary bool) {
	for _, m := range dmesh.Meshes {
		bverts, btris, ntris := m[0], m[2], m[3]
		for j := uint32(0); j < ntris; j++ {
			t := dmesh.Tris[(btris+j)*4:]
			for k, kp := 0, 2; k < 3; kp, k = k, k+1 {
				ef := (t[3] >> (kp * 2)) & 0x3
				if (ef == 0) == boundary {
					continue
				}
				// Internal edges are shared by two triangles, draw them once.
				if !boundary && t[kp] >= t[k] {
					continue
				}
				dd.Vertex(detailVert(dmesh, bverts, t[kp]), col)
				dd.Vertex(detailVert(dmesh, bverts, t[k]), col)
			}
		}
	}
}

// DuDebugDrawPolyMesh draws the polygons of a poly mesh as triangle fans
// colored by area, plus the polygon boundaries.
func DuDebugDrawPolyMesh(dd DuDebugDraw, mesh *recast.RcPolyMesh) {
	if dd == nil || mesh == nil {
		return
	}
	nvp := mesh.Nvp
	cs := mesh.Cs
	ch := mesh.Ch
	orig := mesh.Bmin
	vert := func(i uint16) (x, y, z float32) {
		v := mesh.Verts[int(i)*3:]
		return orig[0] + float32(v[0])*cs, orig[1] + float32(v[1]+1)*ch, orig[2] + float32(v[2])*cs
	}

	dd.Begin(DU_DRAW_TRIS)
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		color := DuTransCol(dd.AreaToCol(int(mesh.Areas[i])), 64)
		for j := 2; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			for _, vi := range [3]uint16{p[0], p[j-1], p[j]} {
				x, y, z := vert(vi)
				dd.Vertex1(x, y, z, color)
			}
		}
	}
	dd.End()

	// Draw neighbours edges
	coln := DuRGBA(0, 48, 64, 32)
	colb := DuRGBA(0, 48, 64, 220)
	dd.Begin(DU_DRAW_LINES, 1.5)
	for i := 0; i < mesh.NPolys; i++ {
		p := mesh.Polys[i*nvp*2:]
		for j := 0; j < nvp; j++ {
			if p[j] == recast.RC_MESH_NULL_IDX {
				break
			}
			nj := j + 1
			if nj >= nvp || p[nj] == recast.RC_MESH_NULL_IDX {
				nj = 0
			}
			col := coln
			if p[nvp+j]&recast.RC_PORTAL_FLAG != 0 {
				col = colb
			}
			x0, y0, z0 := vert(p[j])
			x1, y1, z1 := vert(p[nj])
			dd.Vertex1(x0, y0, z0, col)
			dd.Vertex1(x1, y1, z1, col)
		}
	}
	dd.End()
}
