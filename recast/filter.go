package recast

import (
	"math"

	"github.com/gorustyt/irrnav/common"
)

const rcMaxHeight = 0xffff

// / Sets the area id of all triangles with a slope below the specified value
// / to #RC_WALKABLE_AREA.
func RcMarkWalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, triAreaIDs []uint8) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		calcTriNormal(verts, tris[i*3:], norm[:])
		// Check if the face is walkable.
		if norm[1] > walkableThr {
			triAreaIDs[i] = RC_WALKABLE_AREA
		}
	}
}

// / Sets the area id of all triangles with a slope greater than or equal to
// / the specified value to #RC_NULL_AREA. Area ids of walkable triangles are
// / left untouched.
func RcClearUnwalkableTriangles(walkableSlopeAngle float32, verts []float32, tris []int32, triAreaIDs []uint8) {
	walkableThr := float32(math.Cos(float64(walkableSlopeAngle) / 180.0 * math.Pi))
	var norm [3]float32
	for i := 0; i < len(tris)/3; i++ {
		calcTriNormal(verts, tris[i*3:], norm[:])
		// Check if the face is walkable.
		if norm[1] <= walkableThr {
			triAreaIDs[i] = RC_NULL_AREA
		}
	}
}

func calcTriNormal(verts []float32, tri []int32, norm []float32) {
	var e0, e1 [3]float32
	v0 := common.GetVert3(verts, tri[0])
	common.Vsub(e0[:], common.GetVert3(verts, tri[1]), v0)
	common.Vsub(e1[:], common.GetVert3(verts, tri[2]), v0)
	common.Vcross(norm, e0[:], e1[:])
	common.Vnormalize(norm)
}

// / Marks non-walkable spans as walkable if their maximum is within @p walkableClimb
// / of the span below them.
func RcFilterLowHangingWalkableObstacles(walkableClimb int, hf *RcHeightfield) {
	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			var previousSpan *RcSpan
			previousWasWalkable := false
			previousArea := uint8(RC_NULL_AREA)
			for span := hf.Spans[x+z*hf.Width]; span != nil; previousSpan, span = span, span.Next {
				walkable := span.Area != RC_NULL_AREA
				// If current span is not walkable, but there is walkable span just below it
				// and the height difference is small enough for the agent to walk over,
				// mark the current span as walkable too.
				if !walkable && previousWasWalkable && int(span.Smax)-int(previousSpan.Smax) <= walkableClimb {
					span.Area = previousArea
				}
				// Copy the original walkable value regardless of whether we changed it.
				// This prevents multiple consecutive non-walkable spans from being erroneously
				// marked as walkable.
				previousWasWalkable = walkable
				previousArea = span.Area
			}
		}
	}
}

// / Marks spans that are ledges as not-walkable.
// / A ledge is a span with one or more neighbors whose maximum is further away
// / than @p walkableClimb from the current span's maximum.
func RcFilterLedgeSpans(walkableHeight, walkableClimb int, hf *RcHeightfield) {
	xSize := hf.Width
	zSize := hf.Height

	// Mark spans that are adjacent to a ledge as unwalkable..
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			for span := hf.Spans[x+z*xSize]; span != nil; span = span.Next {
				// Skip non-walkable spans.
				if span.Area == RC_NULL_AREA {
					continue
				}

				floor := int(span.Smax)
				ceiling := rcMaxHeight
				if span.Next != nil {
					ceiling = int(span.Next.Smin)
				}

				// The difference between this walkable area and the lowest neighbor walkable area.
				// This is the difference between the current span and all neighbor spans that have
				// enough space for an agent to move between, but not accounting at all for surface slope.
				lowestNeighborFloorDifference := rcMaxHeight

				// Min and max height of accessible neighbours.
				lowestTraversableNeighborFloor := int(span.Smax)
				highestTraversableNeighborFloor := int(span.Smax)

				for direction := 0; direction < 4; direction++ {
					neighborX := x + rcGetDirOffsetX(direction)
					neighborZ := z + rcGetDirOffsetY(direction)

					// Skip neighbours which are out of bounds.
					if neighborX < 0 || neighborZ < 0 || neighborX >= xSize || neighborZ >= zSize {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}

					neighborSpan := hf.Spans[neighborX+neighborZ*xSize]

					// The most we can step down to the neighbor is the walkableClimb distance.
					// Start with the area under the neighbor span
					neighborCeiling := rcMaxHeight
					if neighborSpan != nil {
						neighborCeiling = int(neighborSpan.Smin)
					}

					// Skip neighbour if the gap between the spans is too small.
					if min(ceiling, neighborCeiling)-floor >= walkableHeight {
						lowestNeighborFloorDifference = -walkableClimb - 1
						break
					}

					// For each span in the neighboring column...
					for ; neighborSpan != nil; neighborSpan = neighborSpan.Next {
						neighborFloor := int(neighborSpan.Smax)
						neighborCeiling = rcMaxHeight
						if neighborSpan.Next != nil {
							neighborCeiling = int(neighborSpan.Next.Smin)
						}

						// Only consider neighboring areas that have enough overlap to be potentially traversable.
						if min(ceiling, neighborCeiling)-max(floor, neighborFloor) < walkableHeight {
							// No space to traverse between them.
							continue
						}

						neighborFloorDifference := neighborFloor - floor
						lowestNeighborFloorDifference = min(lowestNeighborFloorDifference, neighborFloorDifference)

						// Find min/max accessible neighbor height.
						// Only consider neighbors that are at most walkableClimb away.
						if common.Abs(neighborFloorDifference) <= walkableClimb {
							// There is space to move to the neighbor cell and the slope isn't too much.
							lowestTraversableNeighborFloor = min(lowestTraversableNeighborFloor, neighborFloor)
							highestTraversableNeighborFloor = max(highestTraversableNeighborFloor, neighborFloor)
						} else if neighborFloorDifference < -walkableClimb {
							// We already know this will be considered a ledge span so we can early-out
							break
						}
					}
				}

				// The current span is close to a ledge if the magnitude of the drop to any neighbour span exceeds the walkableClimb distance.
				// That is, there is a gap that is large enough to let an agent move between them, but the drop (surface slope) is too large to allow it.
				// (If this is the case, then biggestNeighborStepDown will be negative, so compare against the negative walkableClimb as a means of checking
				// the magnitude of the delta)
				if lowestNeighborFloorDifference < -walkableClimb {
					span.Area = RC_NULL_AREA
				} else if highestTraversableNeighborFloor-lowestTraversableNeighborFloor > walkableClimb {
					// If the difference between all neighbor floors is too large, this is a steep slope, so mark the span as an unwalkable ledge.
					span.Area = RC_NULL_AREA
				}
			}
		}
	}
}

// / Marks walkable spans as not walkable if the clearance above the span is
// / less than the specified walkableHeight.
func RcFilterWalkableLowHeightSpans(walkableHeight int, hf *RcHeightfield) {
	// Remove walkable spans without enough clearance.
	for z := 0; z < hf.Height; z++ {
		for x := 0; x < hf.Width; x++ {
			for span := hf.Spans[x+z*hf.Width]; span != nil; span = span.Next {
				floor := int(span.Smax)
				ceiling := rcMaxHeight
				if span.Next != nil {
					ceiling = int(span.Next.Smin)
				}
				if ceiling-floor < walkableHeight {
					span.Area = RC_NULL_AREA
				}
			}
		}
	}
}
