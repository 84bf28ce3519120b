package debug_utils

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/detour"
)

const (
	DU_DRAWNAVMESH_COLOR_TILES = 0x01
	DU_DRAWNAVMESH_VERTS       = 0x02
)

func drawPolyBoundaries(dd DuDebugDraw, tile *detour.DtMeshTile, col Colorb, linew float32, inner bool) {
	dd.Begin(DU_DRAW_LINES, linew)
	for i := range tile.Polys {
		p := &tile.Polys[i]
		nv := int(p.VertCount)
		for j := 0; j < nv; j++ {
			c := col
			if inner {
				if p.Neis[j] == 0 {
					continue
				}
				if p.Neis[j]&detour.DT_EXT_LINK != 0 {
					// Portals without a link are open tile borders.
					con := false
					for k := p.FirstLink; k != detour.DT_NULL_LINK; k = tile.Links[k].Next {
						if int(tile.Links[k].Edge) == j {
							con = true
							break
						}
					}
					if con {
						c = DuRGBA(255, 255, 255, 48)
					} else {
						c = DuRGBA(0, 0, 0, 48)
					}
				}
			} else if p.Neis[j] != 0 {
				continue
			}
			v0 := tile.Verts[int(p.Verts[j])*3:]
			v1 := tile.Verts[int(p.Verts[(j+1)%nv])*3:]
			dd.Vertex(v0, c)
			dd.Vertex(v1, c)
		}
	}
	dd.End()
}

// DrawMeshTile draws the detail surface of every polygon in tile, then its
// inner and outer polygon boundaries.
func DrawMeshTile(dd DuDebugDraw, mesh *detour.DtNavMesh, tile *detour.DtMeshTile, flags int) {
	base := mesh.GetPolyRefBase(tile)
	tileNum := detour.DecodePolyIdTile(base)
	tileColor := DuIntToCol(int(tileNum), 128)

	dd.DepthMask(false)

	dd.Begin(DU_DRAW_TRIS)
	for i := range tile.Polys {
		p := &tile.Polys[i]
		pd := &tile.DetailMeshes[i]

		var col Colorb
		if flags&DU_DRAWNAVMESH_COLOR_TILES != 0 {
			col = tileColor
		} else {
			col = DuTransCol(dd.AreaToCol(int(p.Area)), 64)
		}
		for j := uint32(0); j < pd.TriCount; j++ {
			t := tile.DetailTris[(pd.TriBase+j)*4:]
			for k := 0; k < 3; k++ {
				v := (pd.VertBase + uint32(t[k])) * 3
				dd.Vertex(tile.DetailVerts[v:v+3], col)
			}
		}
	}
	dd.End()

	// Draw inter poly boundaries
	drawPolyBoundaries(dd, tile, DuRGBA(0, 48, 64, 32), 1.5, true)

	// Draw outer poly boundaries
	drawPolyBoundaries(dd, tile, DuRGBA(0, 48, 64, 220), 2.5, false)

	if flags&DU_DRAWNAVMESH_VERTS != 0 {
		vcol := DuRGBA(0, 0, 0, 196)
		dd.Begin(DU_DRAW_POINTS, 3.0)
		for i := 0; i+2 < len(tile.Verts); i += 3 {
			dd.Vertex(tile.Verts[i:], vcol)
		}
		dd.End()
	}

	dd.DepthMask(true)
}

// DuDebugDrawNavMesh draws every live tile of mesh.
func DuDebugDrawNavMesh(dd DuDebugDraw, mesh *detour.DtNavMesh, flags int) {
	if dd == nil || mesh == nil {
		return
	}
	for _, tile := range mesh.Tiles() {
		DrawMeshTile(dd, mesh, tile, flags)
	}
}

// DuDebugDrawNavMeshPoly highlights one polygon.
func DuDebugDrawNavMeshPoly(dd DuDebugDraw, mesh *detour.DtNavMesh, ref detour.DtPolyRef, col Colorb) {
	if dd == nil || mesh == nil {
		return
	}
	tile, _, status := mesh.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return
	}
	dd.DepthMask(false)
	c := DuTransCol(col, 64)
	ip := detour.DecodePolyIdPoly(ref)
	pd := &tile.DetailMeshes[ip]

	dd.Begin(DU_DRAW_TRIS)
	for i := uint32(0); i < pd.TriCount; i++ {
		t := tile.DetailTris[(pd.TriBase+i)*4:]
		for j := 0; j < 3; j++ {
			v := (pd.VertBase + uint32(t[j])) * 3
			dd.Vertex(tile.DetailVerts[v:v+3], c)
		}
	}
	dd.End()
	dd.DepthMask(true)
}

// DuDebugDrawAgentPath draws an agent marker at the first point of path and
// the polyline through the remaining points.
func DuDebugDrawAgentPath(dd DuDebugDraw, path []mgl32.Vec3, radius float32, col Colorb) {
	if dd == nil || len(path) == 0 {
		return
	}
	const lift = 0.1
	pos := path[0]
	DuDebugDrawCircle(dd, pos[0], pos[1]+lift, pos[2], radius, col, 2.0)

	dd.Begin(DU_DRAW_LINES, 2.0)
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		dd.Vertex1(a[0], a[1]+lift, a[2], col)
		dd.Vertex1(b[0], b[1]+lift, b[2], col)
	}
	dd.End()

	if len(path) > 1 {
		end := path[len(path)-1]
		DuDebugDrawCross(dd, end[0], end[1]+lift, end[2], radius*0.5, DuDarkenCol(col), 2.0)
	}
}
