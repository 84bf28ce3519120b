package recast

import (
	"fmt"

	"github.com/gorustyt/irrnav/common"
)

// / Provides information on the content of a cell column in a compact heightfield.
type RcCompactCell struct {
	Index int // Index to the first span in the column.
	Count int // Number of spans in the column.
}

// / Represents a span of unobstructed space within a compact heightfield.
type RcCompactSpan struct {
	Y   uint16 // The lower extent of the span. (Measured from the heightfield's base.)
	Reg uint16 // The id of the region the span belongs to. (Or zero if not in a region.)
	Con uint32 // Packed neighbor connection data.
	H   uint8  // The height of the span.  (Measured from #y.)
}

// / A compact, static heightfield representing unobstructed space.
type RcCompactHeightfield struct {
	Width          int        // The width of the heightfield. (Along the x-axis in cell units.)
	Height         int        // The height of the heightfield. (Along the z-axis in cell units.)
	SpanCount      int        // The number of spans in the heightfield.
	WalkableHeight int        // The walkable height used during the build of the field.
	WalkableClimb  int        // The walkable climb used during the build of the field.
	BorderSize     int        // The AABB border size used during the build of the field.
	MaxDistance    uint16     // The maximum distance value of any span within the field.
	MaxRegions     uint16     // The maximum region id of any span within the field.
	Bmin           [3]float32 // The minimum bounds in world space. [(x, y, z)]
	Bmax           [3]float32 // The maximum bounds in world space. [(x, y, z)]
	Cs             float32    // The size of each cell. (On the xz-plane.)
	Ch             float32    // The height of each cell. (The minimum increment along the y-axis.)
	Cells          []RcCompactCell
	Spans          []RcCompactSpan
	Dist           []uint16 // Array containing border distance data. [Size: #spanCount]
	Areas          []uint8  // Array containing area id data. [Size: #spanCount]
}

func (chf *RcCompactHeightfield) Release() {
	chf.Cells = nil
	chf.Spans = nil
	chf.Dist = nil
	chf.Areas = nil
}

// / Sets the neighbor connection data for the specified direction.
func rcSetCon(span *RcCompactSpan, direction int, neighborIndex int) {
	shift := uint32(direction) * 6
	con := span.Con
	span.Con = (con & ^(0x3f << shift)) | ((uint32(neighborIndex) & 0x3f) << shift)
}

// / Gets neighbor connection data for the specified direction.
func rcGetCon(span *RcCompactSpan, direction int) int {
	shift := uint32(direction) * 6
	return int((span.Con >> shift) & 0x3f)
}

var dirOffsetX = [4]int{-1, 0, 1, 0}
var dirOffsetY = [4]int{0, 1, 0, -1}

// / Gets the standard width (x-axis) offset for the specified direction.
func rcGetDirOffsetX(direction int) int {
	return dirOffsetX[direction&0x03]
}

// / Gets the standard height (z-axis) offset for the specified direction.
func rcGetDirOffsetY(direction int) int {
	return dirOffsetY[direction&0x03]
}

// / Gets the direction for the specified offset. One of x and y should be 0.
func rcGetDirForOffset(offsetX, offsetZ int) int {
	dirs := [5]int{3, 0, -1, 2, 1}
	return dirs[((offsetZ+1)<<1)+offsetX]
}

// neighbour returns the index of the span connected to span i of cell (x, y)
// in direction dir, together with the neighbour's cell coordinates.
func (chf *RcCompactHeightfield) neighbour(x, y, i, dir int) (ax, ay, ai int) {
	ax = x + rcGetDirOffsetX(dir)
	ay = y + rcGetDirOffsetY(dir)
	ai = chf.Cells[ax+ay*chf.Width].Index + rcGetCon(&chf.Spans[i], dir)
	return
}

// / Builds a compact heightfield representing open space, from a heightfield
// / representing solid space.
func RcBuildCompactHeightfield(ctx *RcContext, walkableHeight, walkableClimb int, hf *RcHeightfield) (*RcCompactHeightfield, error) {
	xSize := hf.Width
	zSize := hf.Height
	spanCount := hf.SpanCount()
	if spanCount == 0 {
		return nil, fmt.Errorf("compact heightfield: no walkable spans: %w", common.ErrDegenerateGeometry)
	}

	chf := &RcCompactHeightfield{
		Width:          xSize,
		Height:         zSize,
		SpanCount:      spanCount,
		WalkableHeight: walkableHeight,
		WalkableClimb:  walkableClimb,
		Bmin:           hf.Bmin,
		Bmax:           hf.Bmax,
		Cs:             hf.Cs,
		Ch:             hf.Ch,
		Cells:          make([]RcCompactCell, xSize*zSize),
		Spans:          make([]RcCompactSpan, spanCount),
		Areas:          make([]uint8, spanCount),
	}
	chf.Bmax[1] += float32(walkableHeight) * hf.Ch

	// Fill in cells and spans.
	currentCellIndex := 0
	numColumns := xSize * zSize
	for columnIndex := 0; columnIndex < numColumns; columnIndex++ {
		span := hf.Spans[columnIndex]
		// If there are no spans at this cell, just leave the data to index=0, count=0.
		if span == nil {
			continue
		}
		cell := &chf.Cells[columnIndex]
		cell.Index = currentCellIndex
		cell.Count = 0
		for ; span != nil; span = span.Next {
			if span.Area != RC_NULL_AREA {
				bot := int(span.Smax)
				top := rcMaxHeight
				if span.Next != nil {
					top = int(span.Next.Smin)
				}
				chf.Spans[currentCellIndex].Y = uint16(common.Clamp(bot, 0, 0xffff))
				chf.Spans[currentCellIndex].H = uint8(common.Clamp(top-bot, 0, 0xff))
				chf.Areas[currentCellIndex] = span.Area
				currentCellIndex++
				cell.Count++
			}
		}
	}

	// Find neighbour connections.
	const maxLayers = RC_NOT_CONNECTED - 1
	maxLayerIndex := 0
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for i := cell.Index; i < cell.Index+cell.Count; i++ {
				span := &chf.Spans[i]
				for dir := 0; dir < 4; dir++ {
					rcSetCon(span, dir, RC_NOT_CONNECTED)
					neighborX := x + rcGetDirOffsetX(dir)
					neighborZ := z + rcGetDirOffsetY(dir)
					// First check that the neighbour cell is in bounds.
					if neighborX < 0 || neighborZ < 0 || neighborX >= xSize || neighborZ >= zSize {
						continue
					}

					// Iterate over all neighbour spans and check if any of the is
					// accessible from current cell.
					neighborCell := chf.Cells[neighborX+neighborZ*xSize]
					for k := neighborCell.Index; k < neighborCell.Index+neighborCell.Count; k++ {
						neighborSpan := &chf.Spans[k]
						bot := max(int(span.Y), int(neighborSpan.Y))
						top := min(int(span.Y)+int(span.H), int(neighborSpan.Y)+int(neighborSpan.H))

						// Check that the gap between the spans is walkable,
						// and that the climb height between the gaps is not too high.
						if (top-bot) >= walkableHeight && common.Abs(int(neighborSpan.Y)-int(span.Y)) <= walkableClimb {
							// Mark direction as walkable.
							layerIndex := k - neighborCell.Index
							if layerIndex < 0 || layerIndex > maxLayers {
								maxLayerIndex = max(maxLayerIndex, layerIndex)
								continue
							}
							rcSetCon(span, dir, layerIndex)
							break
						}
					}
				}
			}
		}
	}

	if maxLayerIndex > maxLayers {
		ctx.Logger().Sugar().Warnf("rcBuildCompactHeightfield: Heightfield has too many layers %d (max: %d)", maxLayerIndex, maxLayers)
	}
	return chf, nil
}
