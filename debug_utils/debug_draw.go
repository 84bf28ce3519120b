package debug_utils

import (
	"math"

	"github.com/gorustyt/irrnav/geom"
)

type DuDebugDrawPrimitives int

const (
	DU_DRAW_POINTS DuDebugDrawPrimitives = iota
	DU_DRAW_LINES
	DU_DRAW_TRIS
	DU_DRAW_QUADS
)

func (p DuDebugDrawPrimitives) String() string {
	switch p {
	case DU_DRAW_POINTS:
		return "points"
	case DU_DRAW_LINES:
		return "lines"
	case DU_DRAW_TRIS:
		return "tris"
	case DU_DRAW_QUADS:
		return "quads"
	}
	return "unknown"
}

// / Abstract debug draw interface.
type DuDebugDraw interface {
	DepthMask(state bool)

	/// Begin drawing primitives.
	///  @param prim [in] primitive type to draw, one of rcDebugDrawPrimitives.
	///  @param size [in] size of a primitive, applies to point size and line width only.
	Begin(prim DuDebugDrawPrimitives, size ...float32)

	/// Submit a vertex
	///  @param pos [in] position of the verts.
	///  @param color [in] color of the verts.
	Vertex(pos []float32, color Colorb)

	/// Submit a vertex
	///  @param x,y,z [in] position of the verts.
	///  @param color [in] color of the verts.
	Vertex1(x, y, z float32, color Colorb)

	/// End drawing primitives.
	End()

	/// Compute a color for given area.
	AreaToCol(area int) Colorb
}

// DuDebugDrawBase draws nothing; embed it to get the default area palette.
type DuDebugDrawBase struct{}

func (d *DuDebugDrawBase) DepthMask(state bool)                              {}
func (d *DuDebugDrawBase) Begin(prim DuDebugDrawPrimitives, size ...float32) {}
func (d *DuDebugDrawBase) Vertex(pos []float32, color Colorb)                {}
func (d *DuDebugDrawBase) Vertex1(x, y, z float32, color Colorb)             {}
func (d *DuDebugDrawBase) End()                                              {}

func (d *DuDebugDrawBase) AreaToCol(area int) Colorb {
	switch geom.NormalizeArea(geom.Area(area)) {
	case geom.AreaNull:
		// Treat zero area type as default.
		return DuRGBA(0, 192, 255, 255)
	case geom.AreaGround:
		return DuRGBA(0, 192, 255, 255)
	case geom.AreaWater:
		return DuRGBA(0, 0, 255, 255)
	case geom.AreaRoad:
		return DuRGBA(50, 20, 12, 255)
	case geom.AreaDoor:
		return DuRGBA(0, 255, 255, 255)
	case geom.AreaGrass:
		return DuRGBA(0, 255, 0, 255)
	case geom.AreaJump:
		return DuRGBA(255, 255, 0, 255)
	}
	return DuIntToCol(area, 255)
}

// DuDisplayList records primitives so they can be replayed into another
// DuDebugDraw.
type DuDisplayList struct {
	DuDebugDrawBase
	m_pos   []float32
	m_color []Colorb

	m_prim      DuDebugDrawPrimitives
	m_primSize  float32
	m_depthMask bool
}

func NewDuDisplayList(capacity int) *DuDisplayList {
	capacity = max(capacity, 8)
	return &DuDisplayList{
		m_pos:       make([]float32, 0, capacity*3),
		m_color:     make([]Colorb, 0, capacity),
		m_prim:      DU_DRAW_LINES,
		m_primSize:  1.0,
		m_depthMask: true,
	}
}

func (d *DuDisplayList) Clear() {
	d.m_pos = d.m_pos[:0]
	d.m_color = d.m_color[:0]
}

func (d *DuDisplayList) Size() int { return len(d.m_color) }

func (d *DuDisplayList) DepthMask(state bool) { d.m_depthMask = state }

// Begin starts a new list; a display list holds one primitive type.
func (d *DuDisplayList) Begin(prim DuDebugDrawPrimitives, size ...float32) {
	d.Clear()
	d.m_prim = prim
	d.m_primSize = 1.0
	if len(size) > 0 {
		d.m_primSize = size[0]
	}
}

func (d *DuDisplayList) Vertex(pos []float32, color Colorb) {
	d.Vertex1(pos[0], pos[1], pos[2], color)
}

func (d *DuDisplayList) Vertex1(x, y, z float32, color Colorb) {
	d.m_pos = append(d.m_pos, x, y, z)
	d.m_color = append(d.m_color, color)
}

func (d *DuDisplayList) Draw(dd DuDebugDraw) {
	if dd == nil || len(d.m_color) == 0 {
		return
	}
	dd.DepthMask(d.m_depthMask)
	dd.Begin(d.m_prim, d.m_primSize)
	for i := range d.m_color {
		dd.Vertex(d.m_pos[i*3:], d.m_color[i])
	}
	dd.End()
}

func DuDebugDrawCircle(dd DuDebugDraw, x, y, z, r float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendCircle(dd, x, y, z, r, col)
	dd.End()
}

func DuDebugDrawCross(dd DuDebugDraw, x, y, z, size float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendCross(dd, x, y, z, size, col)
	dd.End()
}

func DuDebugDrawBoxWire(dd DuDebugDraw, minx, miny, minz, maxx, maxy, maxz float32, col Colorb, lineWidth float32) {
	if dd == nil {
		return
	}
	dd.Begin(DU_DRAW_LINES, lineWidth)
	DuAppendBoxWire(dd, minx, miny, minz, maxx, maxy, maxz, col)
	dd.End()
}

const circleSegs = 40

var circleDir [circleSegs * 2]float32

func init() {
	for i := 0; i < circleSegs; i++ {
		a := float64(i) / circleSegs * math.Pi * 2
		circleDir[i*2] = float32(math.Cos(a))
		circleDir[i*2+1] = float32(math.Sin(a))
	}
}

// DuAppendCircle appends a horizontal circle as line segments.
func DuAppendCircle(dd DuDebugDraw, x, y, z, r float32, col Colorb) {
	for i, j := 0, circleSegs-1; i < circleSegs; j, i = i, i+1 {
		dd.Vertex1(x+circleDir[j*2+0]*r, y, z+circleDir[j*2+1]*r, col)
		dd.Vertex1(x+circleDir[i*2+0]*r, y, z+circleDir[i*2+1]*r, col)
	}
}

func DuAppendCross(dd DuDebugDraw, x, y, z, s float32, col Colorb) {
	dd.Vertex1(x-s, y, z, col)
	dd.Vertex1(x+s, y, z, col)
	dd.Vertex1(x, y-s, z, col)
	dd.Vertex1(x, y+s, z, col)
	dd.Vertex1(x, y, z-s, col)
	dd.Vertex1(x, y, z+s, col)
}

func DuAppendBoxWire(dd DuDebugDraw, minx, miny, minz, maxx, maxy, maxz float32, col Colorb) {
	// Top
	dd.Vertex1(minx, miny, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, miny, minz, col)

	// bottom
	dd.Vertex1(minx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
	dd.Vertex1(minx, maxy, minz, col)

	// Sides
	dd.Vertex1(minx, miny, minz, col)
	dd.Vertex1(minx, maxy, minz, col)
	dd.Vertex1(maxx, miny, minz, col)
	dd.Vertex1(maxx, maxy, minz, col)
	dd.Vertex1(maxx, miny, maxz, col)
	dd.Vertex1(maxx, maxy, maxz, col)
	dd.Vertex1(minx, miny, maxz, col)
	dd.Vertex1(minx, maxy, maxz, col)
}
