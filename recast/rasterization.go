package recast

import (
	"github.com/gorustyt/irrnav/common"
)

const (
	axisX = 0
	axisZ = 2
)

// / Divides a convex polygon of max 12 vertices into two convex polygons
// / across a separating axis.
func dividePoly(in []float32, nin int, out1 []float32, out2 []float32, axisOffset float32, axis int) (nout1, nout2 int) {
	var inVertAxisDelta [12]float32
	for i := 0; i < nin; i++ {
		inVertAxisDelta[i] = axisOffset - in[i*3+axis]
	}

	poly1Vert := 0
	poly2Vert := 0
	for inVertA, inVertB := 0, nin-1; inVertA < nin; inVertB, inVertA = inVertA, inVertA+1 {
		// If the two vertices are on the same side of the separating axis
		sameSide := (inVertAxisDelta[inVertA] >= 0) == (inVertAxisDelta[inVertB] >= 0)
		if !sameSide {
			s := inVertAxisDelta[inVertB] / (inVertAxisDelta[inVertB] - inVertAxisDelta[inVertA])
			out1[poly1Vert*3+0] = in[inVertB*3+0] + (in[inVertA*3+0]-in[inVertB*3+0])*s
			out1[poly1Vert*3+1] = in[inVertB*3+1] + (in[inVertA*3+1]-in[inVertB*3+1])*s
			out1[poly1Vert*3+2] = in[inVertB*3+2] + (in[inVertA*3+2]-in[inVertB*3+2])*s
			copy(out2[poly2Vert*3:poly2Vert*3+3], out1[poly1Vert*3:poly1Vert*3+3])
			poly1Vert++
			poly2Vert++

			// add the inVertA point to the right polygon. Do NOT add points that are on the dividing line
			// since these were already added above
			if inVertAxisDelta[inVertA] > 0 {
				copy(out1[poly1Vert*3:poly1Vert*3+3], in[inVertA*3:inVertA*3+3])
				poly1Vert++
			} else if inVertAxisDelta[inVertA] < 0 {
				copy(out2[poly2Vert*3:poly2Vert*3+3], in[inVertA*3:inVertA*3+3])
				poly2Vert++
			}
			continue
		}
		// add the inVertA point to the right polygon. Addition is done even for points on the dividing line
		if inVertAxisDelta[inVertA] >= 0 {
			copy(out1[poly1Vert*3:poly1Vert*3+3], in[inVertA*3:inVertA*3+3])
			poly1Vert++
			if inVertAxisDelta[inVertA] != 0 {
				continue
			}
		}
		copy(out2[poly2Vert*3:poly2Vert*3+3], in[inVertA*3:inVertA*3+3])
		poly2Vert++
	}
	return poly1Vert, poly2Vert
}

// / Rasterize a single triangle to the heightfield.
func rasterizeTri(v0, v1, v2 []float32, area uint8, hf *RcHeightfield, hfBBMin, hfBBMax [3]float32,
	cellSize, inverseCellSize, inverseCellHeight float32, flagMergeThreshold int) {
	// Calculate the bounding box of the triangle.
	var triBBMin, triBBMax [3]float32
	common.Vcopy(triBBMin[:], v0)
	common.Vmin(triBBMin[:], v1)
	common.Vmin(triBBMin[:], v2)
	common.Vcopy(triBBMax[:], v0)
	common.Vmax(triBBMax[:], v1)
	common.Vmax(triBBMax[:], v2)

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !common.OverlapBounds(triBBMin[:], triBBMax[:], hfBBMin[:], hfBBMax[:]) {
		return
	}

	w := hf.Width
	h := hf.Height
	by := hfBBMax[1] - hfBBMin[1]

	// Calculate the footprint of the triangle on the grid's z-axis
	z0 := int((triBBMin[2] - hfBBMin[2]) * inverseCellSize)
	z1 := int((triBBMax[2] - hfBBMin[2]) * inverseCellSize)

	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, h-1)
	z1 = common.Clamp(z1, 0, h-1)

	// Clip the triangle into all grid cells it touches.
	var buf [7 * 3 * 4]float32
	in := buf[0 : 7*3]
	inRow := buf[7*3 : 7*3*2]
	p1 := buf[7*3*2 : 7*3*3]
	p2 := buf[7*3*3 : 7*3*4]

	copy(in[0:3], v0)
	copy(in[3:6], v1)
	copy(in[6:9], v2)
	nvRow := 0
	nvIn := 3

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well
		cellZ := hfBBMin[2] + float32(z)*cellSize
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cellZ+cellSize, axisZ)
		in, p1 = p1, in

		if nvRow < 3 {
			continue
		}
		if z < 0 {
			continue
		}

		// find X-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for vert := 1; vert < nvRow; vert++ {
			minX = min(minX, inRow[vert*3])
			maxX = max(maxX, inRow[vert*3])
		}
		x0 := int((minX - hfBBMin[0]) * inverseCellSize)
		x1 := int((maxX - hfBBMin[0]) * inverseCellSize)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		nv := 0
		nv2 := nvRow
		for x := x0; x <= x1; x++ {
			// Clip polygon to column. store the remaining polygon as well
			cx := hfBBMin[0] + float32(x)*cellSize
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+cellSize, axisX)
			inRow, p2 = p2, inRow

			if nv < 3 {
				continue
			}
			if x < 0 {
				continue
			}

			// Calculate min and max of the span.
			spanMin := p1[1]
			spanMax := p1[1]
			for vert := 1; vert < nv; vert++ {
				spanMin = min(spanMin, p1[vert*3+1])
				spanMax = max(spanMax, p1[vert*3+1])
			}
			spanMin -= hfBBMin[1]
			spanMax -= hfBBMin[1]

			// Skip the span if it's completely outside the heightfield bounding box
			if spanMax < 0 {
				continue
			}
			if spanMin > by {
				continue
			}

			// Clamp the span to the heightfield bounding box.
			if spanMin < 0 {
				spanMin = 0
			}
			if spanMax > by {
				spanMax = by
			}

			// Snap the span to the heightfield height grid.
			spanMinCellIndex := uint16(common.Clamp(int(common.Floor(spanMin*inverseCellHeight)), 0, RC_SPAN_MAX_HEIGHT))
			spanMaxCellIndex := uint16(common.Clamp(int(common.Ceil(spanMax*inverseCellHeight)), int(spanMinCellIndex)+1, RC_SPAN_MAX_HEIGHT))

			rcAddSpan(hf, x, z, spanMinCellIndex, spanMaxCellIndex, area, flagMergeThreshold)
		}
	}
}

// RcRasterizeTriangles rasterizes an indexed triangle list into hf.
// / Spans will only be added for triangles that overlap the heightfield grid.
func RcRasterizeTriangles(ctx *RcContext, verts []float32, tris []int32, triAreaIDs []uint8, hf *RcHeightfield, flagMergeThreshold int) {
	inverseCellSize := 1.0 / hf.Cs
	inverseCellHeight := 1.0 / hf.Ch
	ntris := len(tris) / 3
	for i := 0; i < ntris; i++ {
		v0 := common.GetVert3(verts, tris[i*3+0])
		v1 := common.GetVert3(verts, tris[i*3+1])
		v2 := common.GetVert3(verts, tris[i*3+2])
		rasterizeTri(v0, v1, v2, triAreaIDs[i], hf, hf.Bmin, hf.Bmax, hf.Cs, inverseCellSize, inverseCellHeight, flagMergeThreshold)
	}
}
