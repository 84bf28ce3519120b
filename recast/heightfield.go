package recast

import (
	"fmt"

	"github.com/gorustyt/irrnav/common"
)

const (
	// / Defines the number of bits allocated to rcSpan::smin and rcSpan::smax.
	RC_SPAN_HEIGHT_BITS = 13
	// / Defines the maximum value for rcSpan::smin and rcSpan::smax.
	RC_SPAN_MAX_HEIGHT = (1 << RC_SPAN_HEIGHT_BITS) - 1
	// / Represents the null area. When a data element is given this value it is
	// / considered to no longer be assigned to a usable area.
	RC_NULL_AREA = 0
	// / The default area id used to indicate a walkable polygon.
	RC_WALKABLE_AREA = 63
	// / The value returned by rcGetCon if the specified direction is not connected
	// / to another span. (Has no neighbor.)
	RC_NOT_CONNECTED = 0x3f

	// Upper bound on heightfield cells a single build may allocate.
	rcMaxGridCells = 1 << 26
)

// / Represents a span in a heightfield.
type RcSpan struct {
	Smin uint16  // The lower limit of the span. [Limit: < #smax]
	Smax uint16  // The upper limit of the span. [Limit: <= #RC_SPAN_MAX_HEIGHT]
	Area uint8   // The area id assigned to the span.
	Next *RcSpan // The next span higher up in column.
}

// / A dynamic heightfield representing obstructed space.
type RcHeightfield struct {
	Width  int        // The width of the heightfield. (Along the x-axis in cell units.)
	Height int        // The height of the heightfield. (Along the z-axis in cell units.)
	Bmin   [3]float32 // The minimum bounds in world space. [(x, y, z)]
	Bmax   [3]float32 // The maximum bounds in world space. [(x, y, z)]
	Cs     float32    // The size of each cell. (On the xz-plane.)
	Ch     float32    // The height of each cell. (The minimum increment along the y-axis.)
	Spans  []*RcSpan  // Heightfield of spans (width*height).
}

// RcCreateHeightfield allocates an empty heightfield.
func RcCreateHeightfield(sizeX, sizeZ int, bmin, bmax [3]float32, cs, ch float32) (*RcHeightfield, error) {
	if sizeX <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("heightfield size %dx%d: %w", sizeX, sizeZ, common.ErrDegenerateGeometry)
	}
	if sizeX*sizeZ > rcMaxGridCells {
		return nil, fmt.Errorf("heightfield size %dx%d exceeds %d cells: %w", sizeX, sizeZ, rcMaxGridCells, common.ErrAllocation)
	}
	return &RcHeightfield{
		Width:  sizeX,
		Height: sizeZ,
		Bmin:   bmin,
		Bmax:   bmax,
		Cs:     cs,
		Ch:     ch,
		Spans:  make([]*RcSpan, sizeX*sizeZ),
	}, nil
}

// Release drops the span columns.
func (hf *RcHeightfield) Release() {
	hf.Spans = nil
}

// SpanCount returns the number of walkable spans.
func (hf *RcHeightfield) SpanCount() int {
	n := 0
	for _, s := range hf.Spans {
		for ; s != nil; s = s.Next {
			if s.Area != RC_NULL_AREA {
				n++
			}
		}
	}
	return n
}

// / Adds a span to the specified heightfield, merging it with any overlapping
// / spans in the column.
func rcAddSpan(hf *RcHeightfield, x, z int, smin, smax uint16, area uint8, flagMergeThreshold int) {
	columnIndex := x + z*hf.Width
	newSpan := &RcSpan{Smin: smin, Smax: smax, Area: area}

	var prev *RcSpan
	cur := hf.Spans[columnIndex]
	// Insert the new span, possibly merging it with existing spans.
	for cur != nil {
		if cur.Smin > newSpan.Smax {
			// Current span is completely after the new span, break.
			break
		}
		if cur.Smax < newSpan.Smin {
			// Current span is completely before the new span.  Keep going.
			prev = cur
			cur = cur.Next
			continue
		}
		// The new span overlaps with an existing span.  Merge them.
		if cur.Smin < newSpan.Smin {
			newSpan.Smin = cur.Smin
		}
		if cur.Smax > newSpan.Smax {
			newSpan.Smax = cur.Smax
		}
		// Merge flags.
		if common.Abs(int(newSpan.Smax)-int(cur.Smax)) <= flagMergeThreshold {
			// Higher area ID numbers indicate higher resolution priority.
			newSpan.Area = max(newSpan.Area, cur.Area)
		}
		// Remove the current span since it's now merged with newSpan.
		next := cur.Next
		if prev != nil {
			prev.Next = next
		} else {
			hf.Spans[columnIndex] = next
		}
		cur = next
	}

	// Insert new span after prev
	if prev != nil {
		newSpan.Next = prev.Next
		prev.Next = newSpan
	} else {
		newSpan.Next = hf.Spans[columnIndex]
		hf.Spans[columnIndex] = newSpan
	}
}

// RcAddSpan adds a span to the column at (x, z).
func RcAddSpan(hf *RcHeightfield, x, z int, smin, smax uint16, area uint8, flagMergeThreshold int) error {
	if x < 0 || x >= hf.Width || z < 0 || z >= hf.Height {
		return fmt.Errorf("add span: column (%d,%d) outside %dx%d: %w", x, z, hf.Width, hf.Height, common.ErrInput)
	}
	if smin > smax {
		return fmt.Errorf("add span: smin %d > smax %d: %w", smin, smax, common.ErrInput)
	}
	rcAddSpan(hf, x, z, smin, smax, area, flagMergeThreshold)
	return nil
}
