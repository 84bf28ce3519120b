package recast

// / Erodes the walkable area within the heightfield by the specified radius.
// / Spans closer than @p erosionRadius to an unwalkable span or to the edge of
// / the field lose their area id.
func RcErodeWalkableArea(ctx *RcContext, erosionRadius int, chf *RcCompactHeightfield) {
	xSize := chf.Width
	zSize := chf.Height

	distanceToBoundary := make([]uint8, chf.SpanCount)
	for i := range distanceToBoundary {
		distanceToBoundary[i] = 0xff
	}

	// Mark boundary cells.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					distanceToBoundary[spanIndex] = 0
					continue
				}
				span := &chf.Spans[spanIndex]

				// Check that there is a non-null adjacent span in each of the 4 cardinal directions.
				neighborCount := 0
				for direction := 0; direction < 4; direction++ {
					if rcGetCon(span, direction) == RC_NOT_CONNECTED {
						break
					}
					_, _, neighborSpanIndex := chf.neighbour(x, z, spanIndex, direction)
					if chf.Areas[neighborSpanIndex] == RC_NULL_AREA {
						break
					}
					neighborCount++
				}

				// At least one missing neighbour, so this is a boundary cell.
				if neighborCount != 4 {
					distanceToBoundary[spanIndex] = 0
				}
			}
		}
	}

	var newDistance uint8

	// Pass 1
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				span := &chf.Spans[spanIndex]

				if rcGetCon(span, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					aX, aY, aIndex := chf.neighbour(x, z, spanIndex, 0)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}

					// (-1,-1)
					if rcGetCon(aSpan, 3) != RC_NOT_CONNECTED {
						_, _, bIndex := chf.neighbour(aX, aY, aIndex, 3)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
				if rcGetCon(span, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					aX, aY, aIndex := chf.neighbour(x, z, spanIndex, 3)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}

					// (1,-1)
					if rcGetCon(aSpan, 2) != RC_NOT_CONNECTED {
						_, _, bIndex := chf.neighbour(aX, aY, aIndex, 2)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
			}
		}
	}

	// Pass 2
	for z := zSize - 1; z >= 0; z-- {
		for x := xSize - 1; x >= 0; x-- {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				span := &chf.Spans[spanIndex]

				if rcGetCon(span, 2) != RC_NOT_CONNECTED {
					// (1,0)
					aX, aY, aIndex := chf.neighbour(x, z, spanIndex, 2)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}

					// (1,1)
					if rcGetCon(aSpan, 1) != RC_NOT_CONNECTED {
						_, _, bIndex := chf.neighbour(aX, aY, aIndex, 1)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
				if rcGetCon(span, 1) != RC_NOT_CONNECTED {
					// (0,1)
					aX, aY, aIndex := chf.neighbour(x, z, spanIndex, 1)
					aSpan := &chf.Spans[aIndex]
					newDistance = uint8(min(int(distanceToBoundary[aIndex])+2, 255))
					if newDistance < distanceToBoundary[spanIndex] {
						distanceToBoundary[spanIndex] = newDistance
					}

					// (-1,1)
					if rcGetCon(aSpan, 0) != RC_NOT_CONNECTED {
						_, _, bIndex := chf.neighbour(aX, aY, aIndex, 0)
						newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
						if newDistance < distanceToBoundary[spanIndex] {
							distanceToBoundary[spanIndex] = newDistance
						}
					}
				}
			}
		}
	}

	minBoundaryDistance := uint8(min(erosionRadius*2, 255))
	eroded := 0
	for spanIndex := 0; spanIndex < chf.SpanCount; spanIndex++ {
		if distanceToBoundary[spanIndex] < minBoundaryDistance && chf.Areas[spanIndex] != RC_NULL_AREA {
			chf.Areas[spanIndex] = RC_NULL_AREA
			eroded++
		}
	}
	ctx.Logger().Sugar().Debugf("rcErodeWalkableArea: radius %d eroded %d of %d spans", erosionRadius, eroded, chf.SpanCount)
}

// / Applies the area id to all spans within the specified bounding box.
// / (AABB) The existing area is overwritten only for walkable spans.
func RcMarkBoxArea(bmin, bmax [3]float32, areaID uint8, chf *RcCompactHeightfield) {
	minX := int((bmin[0] - chf.Bmin[0]) / chf.Cs)
	minY := int((bmin[1] - chf.Bmin[1]) / chf.Ch)
	minZ := int((bmin[2] - chf.Bmin[2]) / chf.Cs)
	maxX := int((bmax[0] - chf.Bmin[0]) / chf.Cs)
	maxY := int((bmax[1] - chf.Bmin[1]) / chf.Ch)
	maxZ := int((bmax[2] - chf.Bmin[2]) / chf.Cs)

	// Early-out if the box is outside the bounds of the grid.
	if maxX < 0 || minX >= chf.Width || maxZ < 0 || minZ >= chf.Height {
		return
	}

	// Clamp relevant bound coordinates to the grid.
	minX = max(minX, 0)
	maxX = min(maxX, chf.Width-1)
	minZ = max(minZ, 0)
	maxZ = min(maxZ, chf.Height-1)

	for z := minZ; z <= maxZ; z++ {
		for x := minX; x <= maxX; x++ {
			cell := chf.Cells[x+z*chf.Width]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				span := chf.Spans[spanIndex]
				// Skip if the span is outside the box extents.
				if int(span.Y) < minY || int(span.Y) > maxY {
					continue
				}
				// Skip if the span has been removed.
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					continue
				}
				chf.Areas[spanIndex] = areaID
			}
		}
	}
}
