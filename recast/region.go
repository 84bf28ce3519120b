package recast

import (
	"fmt"
	"sort"

	"github.com/gorustyt/irrnav/common"
)

const (
	// / Heightfield border flag.
	// / If a heightfield region ID has this bit set, then the region is a border
	// / region and its spans are considered un-walkable.
	RC_BORDER_REG = 0x8000

	rcNullNei = 0xffff
)

// / Builds the distance field for the specified compact heightfield.
func RcBuildDistanceField(ctx *RcContext, chf *RcCompactHeightfield) {
	src := make([]uint16, chf.SpanCount)
	chf.MaxDistance = calculateDistanceField(chf, src)
	// Blur
	chf.Dist = boxBlur(chf, 1, src)
}

func calculateDistanceField(chf *RcCompactHeightfield, src []uint16) (maxDist uint16) {
	w := chf.Width
	h := chf.Height

	// Init distance and points.
	for i := range src {
		src[i] = 0xffff
	}

	// Mark boundary cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				area := chf.Areas[i]
				nc := 0
				for dir := 0; dir < 4; dir++ {
					if rcGetCon(s, dir) != RC_NOT_CONNECTED {
						_, _, ai := chf.neighbour(x, y, i, dir)
						if area == chf.Areas[ai] {
							nc++
						}
					}
				}
				if nc != 4 {
					src[i] = 0
				}
			}
		}
	}

	relax := func(i, ai int, add uint16) {
		if src[ai]+add < src[i] {
			src[i] = src[ai] + add
		}
	}

	// Pass 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if rcGetCon(s, 0) != RC_NOT_CONNECTED {
					// (-1,0)
					ax, ay, ai := chf.neighbour(x, y, i, 0)
					relax(i, ai, 2)
					// (-1,-1)
					if rcGetCon(&chf.Spans[ai], 3) != RC_NOT_CONNECTED {
						_, _, aai := chf.neighbour(ax, ay, ai, 3)
						relax(i, aai, 3)
					}
				}
				if rcGetCon(s, 3) != RC_NOT_CONNECTED {
					// (0,-1)
					ax, ay, ai := chf.neighbour(x, y, i, 3)
					relax(i, ai, 2)
					// (1,-1)
					if rcGetCon(&chf.Spans[ai], 2) != RC_NOT_CONNECTED {
						_, _, aai := chf.neighbour(ax, ay, ai, 2)
						relax(i, aai, 3)
					}
				}
			}
		}
	}

	// Pass 2
	for y := h - 1; y >= 0; y-- {
		for x := w - 1; x >= 0; x-- {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if rcGetCon(s, 2) != RC_NOT_CONNECTED {
					// (1,0)
					ax, ay, ai := chf.neighbour(x, y, i, 2)
					relax(i, ai, 2)
					// (1,1)
					if rcGetCon(&chf.Spans[ai], 1) != RC_NOT_CONNECTED {
						_, _, aai := chf.neighbour(ax, ay, ai, 1)
						relax(i, aai, 3)
					}
				}
				if rcGetCon(s, 1) != RC_NOT_CONNECTED {
					// (0,1)
					ax, ay, ai := chf.neighbour(x, y, i, 1)
					relax(i, ai, 2)
					// (-1,1)
					if rcGetCon(&chf.Spans[ai], 0) != RC_NOT_CONNECTED {
						_, _, aai := chf.neighbour(ax, ay, ai, 0)
						relax(i, aai, 3)
					}
				}
			}
		}
	}

	for _, d := range src {
		maxDist = max(maxDist, d)
	}
	return maxDist
}

func boxBlur(chf *RcCompactHeightfield, thr int, src []uint16) []uint16 {
	w := chf.Width
	h := chf.Height
	dst := make([]uint16, chf.SpanCount)

	thr *= 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				cd := int(src[i])
				if cd <= thr {
					dst[i] = uint16(cd)
					continue
				}

				d := cd
				for dir := 0; dir < 4; dir++ {
					if rcGetCon(s, dir) != RC_NOT_CONNECTED {
						ax, ay, ai := chf.neighbour(x, y, i, dir)
						d += int(src[ai])

						as := &chf.Spans[ai]
						dir2 := (dir + 1) & 0x3
						if rcGetCon(as, dir2) != RC_NOT_CONNECTED {
							_, _, ai2 := chf.neighbour(ax, ay, ai, dir2)
							d += int(src[ai2])
						} else {
							d += cd
						}
					} else {
						d += cd * 2
					}
				}
				dst[i] = uint16((d + 5) / 9)
			}
		}
	}
	return dst
}

type levelStackEntry struct {
	x, y, index int
}

func floodRegion(x, y, i int, level, r uint16, chf *RcCompactHeightfield, srcReg, srcDist []uint16, stack []levelStackEntry) ([]levelStackEntry, bool) {
	w := chf.Width
	area := chf.Areas[i]

	// Flood fill mark region.
	stack = append(stack[:0], levelStackEntry{x, y, i})
	srcReg[i] = r
	srcDist[i] = 0

	var lev uint16
	if level >= 2 {
		lev = level - 2
	}
	count := 0

	for len(stack) > 0 {
		back := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy, ci := back.x, back.y, back.index

		cs := &chf.Spans[ci]

		// Check if any of the neighbours already have a valid region set.
		var ar uint16
		for dir := 0; dir < 4; dir++ {
			// 8 connected
			if rcGetCon(cs, dir) != RC_NOT_CONNECTED {
				ax, ay, ai := chf.neighbour(cx, cy, ci, dir)
				if chf.Areas[ai] != area {
					continue
				}
				nr := srcReg[ai]
				if nr&RC_BORDER_REG != 0 { // Do not take borders into account.
					continue
				}
				if nr != 0 && nr != r {
					ar = nr
					break
				}

				as := &chf.Spans[ai]
				dir2 := (dir + 1) & 0x3
				if rcGetCon(as, dir2) != RC_NOT_CONNECTED {
					ax2 := ax + rcGetDirOffsetX(dir2)
					ay2 := ay + rcGetDirOffsetY(dir2)
					ai2 := chf.Cells[ax2+ay2*w].Index + rcGetCon(as, dir2)
					if chf.Areas[ai2] != area {
						continue
					}
					nr2 := srcReg[ai2]
					if nr2 != 0 && nr2 != r {
						ar = nr2
						break
					}
				}
			}
		}
		if ar != 0 {
			srcReg[ci] = 0
			continue
		}

		count++

		// Expand neighbours.
		for dir := 0; dir < 4; dir++ {
			if rcGetCon(cs, dir) != RC_NOT_CONNECTED {
				ax, ay, ai := chf.neighbour(cx, cy, ci, dir)
				if chf.Areas[ai] != area {
					continue
				}
				if chf.Dist[ai] >= lev && srcReg[ai] == 0 {
					srcReg[ai] = r
					srcDist[ai] = 0
					stack = append(stack, levelStackEntry{ax, ay, ai})
				}
			}
		}
	}
	return stack, count > 0
}

type dirtyEntry struct {
	index    int
	region   uint16
	distance uint16
}

func expandRegions(maxIter int, level uint16, chf *RcCompactHeightfield, srcReg, srcDist []uint16, stack []levelStackEntry, fillStack bool) []levelStackEntry {
	w := chf.Width
	h := chf.Height

	if fillStack {
		// Find cells revealed by the raised level.
		stack = stack[:0]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := chf.Cells[x+y*w]
				for i := c.Index; i < c.Index+c.Count; i++ {
					if chf.Dist[i] >= level && srcReg[i] == 0 && chf.Areas[i] != RC_NULL_AREA {
						stack = append(stack, levelStackEntry{x, y, i})
					}
				}
			}
		}
	} else {
		// use cells in the input stack
		// mark all cells which already have a region
		for j := range stack {
			i := stack[j].index
			if srcReg[i] != 0 {
				stack[j].index = -1
			}
		}
	}

	var dirtyEntries []dirtyEntry
	iter := 0
	for len(stack) > 0 {
		failed := 0
		dirtyEntries = dirtyEntries[:0]

		for j := range stack {
			x := stack[j].x
			y := stack[j].y
			i := stack[j].index
			if i < 0 {
				failed++
				continue
			}

			r := srcReg[i]
			d2 := uint16(0xffff)
			area := chf.Areas[i]
			s := &chf.Spans[i]
			for dir := 0; dir < 4; dir++ {
				if rcGetCon(s, dir) == RC_NOT_CONNECTED {
					continue
				}
				_, _, ai := chf.neighbour(x, y, i, dir)
				if chf.Areas[ai] != area {
					continue
				}
				if srcReg[ai] > 0 && (srcReg[ai]&RC_BORDER_REG) == 0 {
					if int(srcDist[ai])+2 < int(d2) {
						r = srcReg[ai]
						d2 = srcDist[ai] + 2
					}
				}
			}
			if r != 0 {
				stack[j].index = -1 // mark as used
				dirtyEntries = append(dirtyEntries, dirtyEntry{i, r, d2})
			} else {
				failed++
			}
		}

		// Copy entries that differ between src and dst to keep them in sync.
		for _, e := range dirtyEntries {
			srcReg[e.index] = e.region
			srcDist[e.index] = e.distance
		}

		if failed == len(stack) {
			break
		}

		if level > 0 {
			iter++
			if iter >= maxIter {
				break
			}
		}
	}
	return stack
}

func sortCellsByLevel(startLevel uint16, chf *RcCompactHeightfield, srcReg []uint16, stacks [][]levelStackEntry, loglevelsPerStack uint) {
	w := chf.Width
	h := chf.Height
	startLevel = startLevel >> loglevelsPerStack

	for j := range stacks {
		stacks[j] = stacks[j][:0]
	}

	// put all cells in the level range into the appropriate stacks
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if chf.Areas[i] == RC_NULL_AREA || srcReg[i] != 0 {
					continue
				}

				level := int(chf.Dist[i] >> loglevelsPerStack)
				sID := int(startLevel) - level
				if sID >= len(stacks) {
					continue
				}
				if sID < 0 {
					sID = 0
				}
				stacks[sID] = append(stacks[sID], levelStackEntry{x, y, i})
			}
		}
	}
}

func appendStacks(srcStack, dstStack []levelStackEntry, srcReg []uint16) []levelStackEntry {
	for _, e := range srcStack {
		i := e.index
		if i < 0 || srcReg[i] != 0 {
			continue
		}
		dstStack = append(dstStack, e)
	}
	return dstStack
}

type rcRegion struct {
	spanCount            int    // Number of spans belonging to this region
	id                   uint16 // ID of the region
	areaType             uint8  // Are type.
	remap                bool
	visited              bool
	overlap              bool
	connectsToBorder     bool
	ymin, ymax           uint16
	connections          []int
	floors               []int
}

func newRegion(i int) *rcRegion {
	return &rcRegion{id: uint16(i), ymin: 0xffff}
}

func removeAdjacentNeighbours(reg *rcRegion) {
	// Remove adjacent duplicates.
	for i := 0; i < len(reg.connections) && len(reg.connections) > 1; {
		ni := (i + 1) % len(reg.connections)
		if reg.connections[i] == reg.connections[ni] {
			// Remove duplicate
			reg.connections = append(reg.connections[:i], reg.connections[i+1:]...)
		} else {
			i++
		}
	}
}

func replaceNeighbour(reg *rcRegion, oldID, newID uint16) {
	neiChanged := false
	for i := range reg.connections {
		if reg.connections[i] == int(oldID) {
			reg.connections[i] = int(newID)
			neiChanged = true
		}
	}
	for i := range reg.floors {
		if reg.floors[i] == int(oldID) {
			reg.floors[i] = int(newID)
		}
	}
	if neiChanged {
		removeAdjacentNeighbours(reg)
	}
}

func canMergeWithRegion(rega, regb *rcRegion) bool {
	if rega.areaType != regb.areaType {
		return false
	}
	n := 0
	for _, c := range rega.connections {
		if c == int(regb.id) {
			n++
		}
	}
	if n > 1 {
		return false
	}
	for _, f := range rega.floors {
		if f == int(regb.id) {
			return false
		}
	}
	return true
}

func addUniqueFloorRegion(reg *rcRegion, n int) {
	for _, f := range reg.floors {
		if f == n {
			return
		}
	}
	reg.floors = append(reg.floors, n)
}

func mergeRegions(rega, regb *rcRegion) bool {
	aid := int(rega.id)
	bid := int(regb.id)

	// Duplicate current neighbourhood.
	acon := append([]int(nil), rega.connections...)
	bcon := regb.connections

	// Find insertion point on A.
	insa := -1
	for i, c := range acon {
		if c == bid {
			insa = i
			break
		}
	}
	if insa == -1 {
		return false
	}

	// Find insertion point on B.
	insb := -1
	for i, c := range bcon {
		if c == aid {
			insb = i
			break
		}
	}
	if insb == -1 {
		return false
	}

	// Merge neighbours.
	rega.connections = rega.connections[:0]
	for i, ni := 0, len(acon); i < ni-1; i++ {
		rega.connections = append(rega.connections, acon[(insa+1+i)%ni])
	}
	for i, ni := 0, len(bcon); i < ni-1; i++ {
		rega.connections = append(rega.connections, bcon[(insb+1+i)%ni])
	}

	removeAdjacentNeighbours(rega)

	for _, f := range regb.floors {
		addUniqueFloorRegion(rega, f)
	}
	rega.spanCount += regb.spanCount
	regb.spanCount = 0
	regb.connections = nil
	return true
}

func isRegionConnectedToBorder(reg *rcRegion) bool {
	// Region is connected to border if
	// one of the neighbours is null id.
	for _, c := range reg.connections {
		if c == 0 {
			return true
		}
	}
	return false
}

func isSolidEdge(chf *RcCompactHeightfield, srcReg []uint16, x, y, i, dir int) bool {
	s := &chf.Spans[i]
	var r uint16
	if rcGetCon(s, dir) != RC_NOT_CONNECTED {
		_, _, ai := chf.neighbour(x, y, i, dir)
		r = srcReg[ai]
	}
	return r != srcReg[i]
}

func walkContourForRegion(x, y, i, dir int, chf *RcCompactHeightfield, srcReg []uint16) []int {
	var cont []int
	startDir := dir
	starti := i

	ss := &chf.Spans[i]
	var curReg uint16
	if rcGetCon(ss, dir) != RC_NOT_CONNECTED {
		_, _, ai := chf.neighbour(x, y, i, dir)
		curReg = srcReg[ai]
	}
	cont = append(cont, int(curReg))

	for iter := 1; iter < 40000; iter++ {
		s := &chf.Spans[i]

		if isSolidEdge(chf, srcReg, x, y, i, dir) {
			// Choose the edge corner
			var r uint16
			if rcGetCon(s, dir) != RC_NOT_CONNECTED {
				_, _, ai := chf.neighbour(x, y, i, dir)
				r = srcReg[ai]
			}
			if r != curReg {
				curReg = r
				cont = append(cont, int(curReg))
			}
			dir = (dir + 1) & 0x3 // Rotate CW
		} else {
			if rcGetCon(s, dir) == RC_NOT_CONNECTED {
				// Should not happen.
				return cont
			}
			x, y, i = chf.neighbour(x, y, i, dir)
			dir = (dir + 3) & 0x3 // Rotate CCW
		}

		if starti == i && startDir == dir {
			break
		}
	}

	// Remove adjacent duplicates.
	if len(cont) > 1 {
		for j := 0; j < len(cont); {
			nj := (j + 1) % len(cont)
			if cont[j] == cont[nj] {
				cont = append(cont[:j], cont[j+1:]...)
			} else {
				j++
			}
		}
	}
	return cont
}

func mergeAndFilterRegions(ctx *RcContext, minRegionArea, mergeRegionSize int, maxRegionID *uint16, chf *RcCompactHeightfield, srcReg []uint16) (overlaps []int) {
	w := chf.Width
	h := chf.Height

	nreg := int(*maxRegionID) + 1
	regions := make([]*rcRegion, nreg)
	for i := range regions {
		regions[i] = newRegion(i)
	}

	// Find edge of a region and find connections around the contour.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				r := int(srcReg[i])
				if r == 0 || r >= nreg {
					continue
				}

				reg := regions[r]
				reg.spanCount++

				// Update floors.
				for j := c.Index; j < c.Index+c.Count; j++ {
					if i == j {
						continue
					}
					floorID := int(srcReg[j])
					if floorID == 0 || floorID >= nreg {
						continue
					}
					if floorID == r {
						reg.overlap = true
					}
					addUniqueFloorRegion(reg, floorID)
				}

				// Have found contour
				if len(reg.connections) > 0 {
					continue
				}

				reg.areaType = chf.Areas[i]

				// Check if this cell is next to a border.
				ndir := -1
				for dir := 0; dir < 4; dir++ {
					if isSolidEdge(chf, srcReg, x, y, i, dir) {
						ndir = dir
						break
					}
				}

				if ndir != -1 {
					// The cell is at border.
					// Walk around the contour to find all the neighbours.
					reg.connections = walkContourForRegion(x, y, i, ndir, chf, srcReg)
				}
			}
		}
	}

	// Remove too small regions.
	var stack []int
	var trace []int
	for i := 0; i < nreg; i++ {
		reg := regions[i]
		if reg.id == 0 || (reg.id&RC_BORDER_REG) != 0 {
			continue
		}
		if reg.spanCount == 0 {
			continue
		}
		if reg.visited {
			continue
		}

		// Count the total size of all the connected regions.
		// Also keep track of the regions connects to a tile border.
		connectsToBorder := false
		spanCount := 0
		stack = stack[:0]
		trace = trace[:0]

		reg.visited = true
		stack = append(stack, i)

		for len(stack) > 0 {
			// Pop
			ri := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			creg := regions[ri]
			spanCount += creg.spanCount
			trace = append(trace, ri)

			for _, conn := range creg.connections {
				if conn&RC_BORDER_REG != 0 {
					connectsToBorder = true
					continue
				}
				neireg := regions[conn]
				if neireg.visited {
					continue
				}
				if neireg.id == 0 || (neireg.id&RC_BORDER_REG) != 0 {
					continue
				}
				// Visit
				stack = append(stack, int(neireg.id))
				neireg.visited = true
			}
		}

		// If the accumulated regions size is too small, remove it.
		// Do not remove areas which connect to tile borders
		// as their size cannot be estimated correctly and removing them
		// can potentially remove necessary areas.
		if spanCount < minRegionArea && !connectsToBorder {
			// Kill all visited regions.
			for _, t := range trace {
				regions[t].spanCount = 0
				regions[t].id = 0
			}
		}
	}

	// Merge too small regions to neighbour regions.
	for {
		mergeCount := 0
		for i := 0; i < nreg; i++ {
			reg := regions[i]
			if reg.id == 0 || (reg.id&RC_BORDER_REG) != 0 {
				continue
			}
			if reg.overlap {
				continue
			}
			if reg.spanCount == 0 {
				continue
			}

			// Check to see if the region should be merged.
			if reg.spanCount > mergeRegionSize && isRegionConnectedToBorder(reg) {
				continue
			}

			// Small region with more than 1 connection.
			// Or region which is not connected to a border at all.
			// Find smallest neighbour region that connects to this one.
			smallest := 0xfffffff
			mergeID := reg.id
			for _, conn := range reg.connections {
				if conn&RC_BORDER_REG != 0 {
					continue
				}
				mreg := regions[conn]
				if mreg.id == 0 || (mreg.id&RC_BORDER_REG) != 0 || mreg.overlap {
					continue
				}
				if mreg.spanCount < smallest &&
					canMergeWithRegion(reg, mreg) &&
					canMergeWithRegion(mreg, reg) {
					smallest = mreg.spanCount
					mergeID = mreg.id
				}
			}
			// Found new id.
			if mergeID != reg.id {
				oldID := reg.id
				target := regions[mergeID]

				// Merge neighbours.
				if mergeRegions(target, reg) {
					// Fixup regions pointing to current region.
					for j := 0; j < nreg; j++ {
						if regions[j].id == 0 || (regions[j].id&RC_BORDER_REG) != 0 {
							continue
						}
						// If another region was already merged into current region
						// change the nid of the previous region too.
						if regions[j].id == oldID {
							regions[j].id = mergeID
						}
						// Replace the current region with the new one if the
						// current regions is neighbour.
						replaceNeighbour(regions[j], oldID, mergeID)
					}
					mergeCount++
				}
			}
		}
		if mergeCount == 0 {
			break
		}
	}

	// Compress region Ids.
	for i := 0; i < nreg; i++ {
		regions[i].remap = false
		if regions[i].id == 0 {
			continue // Skip nil regions.
		}
		if regions[i].id&RC_BORDER_REG != 0 {
			continue // Skip external regions.
		}
		regions[i].remap = true
	}

	var regIDGen uint16
	for i := 0; i < nreg; i++ {
		if !regions[i].remap {
			continue
		}
		oldID := regions[i].id
		regIDGen++
		newID := regIDGen
		for j := i; j < nreg; j++ {
			if regions[j].id == oldID {
				regions[j].id = newID
				regions[j].remap = false
			}
		}
	}
	*maxRegionID = regIDGen

	// Remap regions.
	for i := 0; i < chf.SpanCount; i++ {
		if (srcReg[i] & RC_BORDER_REG) == 0 {
			srcReg[i] = regions[srcReg[i]].id
		}
	}

	// Return regions that we found to be overlapping.
	for i := 0; i < nreg; i++ {
		if regions[i].overlap {
			overlaps = append(overlaps, int(regions[i].id))
		}
	}
	if len(overlaps) > 0 {
		ctx.Logger().Sugar().Debugf("rcBuildRegions: %d overlapping regions", len(overlaps))
	}
	return overlaps
}

func paintRectRegion(minx, maxx, miny, maxy int, regID uint16, chf *RcCompactHeightfield, srcReg []uint16) {
	w := chf.Width
	for y := miny; y < maxy; y++ {
		for x := minx; x < maxx; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if chf.Areas[i] != RC_NULL_AREA {
					srcReg[i] = regID
				}
			}
		}
	}
}

// paintBorderRegions marks the non-navigable border of a tile with border
// region ids and returns the next free id.
func paintBorderRegions(chf *RcCompactHeightfield, borderSize int, srcReg []uint16, id uint16) uint16 {
	if borderSize <= 0 {
		return id
	}
	w := chf.Width
	h := chf.Height
	// Make sure border will not overflow.
	bw := min(w, borderSize)
	bh := min(h, borderSize)
	// Paint regions
	paintRectRegion(0, bw, 0, h, id|RC_BORDER_REG, chf, srcReg)
	id++
	paintRectRegion(w-bw, w, 0, h, id|RC_BORDER_REG, chf, srcReg)
	id++
	paintRectRegion(0, w, 0, bh, id|RC_BORDER_REG, chf, srcReg)
	id++
	paintRectRegion(0, w, h-bh, h, id|RC_BORDER_REG, chf, srcReg)
	id++
	return id
}

// / Builds region data for the heightfield using watershed partitioning.
// / Requires the distance field.
func RcBuildRegions(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error {
	const logNbStacks = 3
	const nbStacks = 1 << logNbStacks
	const expandIters = 8

	srcReg := make([]uint16, chf.SpanCount)
	srcDist := make([]uint16, chf.SpanCount)

	regionID := uint16(1)
	level := (chf.MaxDistance + 1) & ^uint16(1)

	lvlStacks := make([][]levelStackEntry, nbStacks)
	var stack []levelStackEntry

	regionID = paintBorderRegions(chf, borderSize, srcReg, regionID)
	chf.BorderSize = borderSize

	sID := -1
	for level > 0 {
		if level >= 2 {
			level -= 2
		} else {
			level = 0
		}
		sID = (sID + 1) & (nbStacks - 1)

		if sID == 0 {
			sortCellsByLevel(level, chf, srcReg, lvlStacks, 1)
		} else {
			lvlStacks[sID] = appendStacks(lvlStacks[sID-1], lvlStacks[sID], srcReg) // copy left overs from last level
		}

		// Expand current regions until no empty connected cells found.
		lvlStacks[sID] = expandRegions(expandIters, level, chf, srcReg, srcDist, lvlStacks[sID], false)

		// Mark new regions with IDs.
		for _, current := range lvlStacks[sID] {
			x, y, i := current.x, current.y, current.index
			if i >= 0 && srcReg[i] == 0 {
				var ok bool
				stack, ok = floodRegion(x, y, i, level, regionID, chf, srcReg, srcDist, stack)
				if ok {
					if regionID == 0xffff {
						return fmt.Errorf("rcBuildRegions: region id overflow: %w", common.ErrAllocation)
					}
					regionID++
				}
			}
		}
	}

	// Expand current regions until no empty connected cells found.
	expandRegions(expandIters*8, 0, chf, srcReg, srcDist, stack, true)

	// Merge regions and filter out small regions.
	chf.MaxRegions = regionID
	mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, &chf.MaxRegions, chf, srcReg)

	// Write the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return nil
}

type rcSweepSpan struct {
	rid uint16 // row id
	id  uint16 // region id
	ns  uint16 // number samples
	nei uint16 // neighbour id
}

// / Builds region data for the heightfield using simple monotone partitioning.
func RcBuildRegionsMonotone(ctx *RcContext, chf *RcCompactHeightfield, borderSize, minRegionArea, mergeRegionArea int) error {
	w := chf.Width
	h := chf.Height
	id := uint16(1)

	srcReg := make([]uint16, chf.SpanCount)
	sweeps := make([]rcSweepSpan, max(w, h)+1)

	id = paintBorderRegions(chf, borderSize, srcReg, id)
	chf.BorderSize = borderSize

	var prev []int

	// Sweep one line at a time.
	for y := borderSize; y < h-borderSize; y++ {
		// Collect spans from this row.
		if cap(prev) < int(id)+1 {
			prev = make([]int, int(id)+1)
		} else {
			prev = prev[:int(id)+1]
			for i := range prev {
				prev[i] = 0
			}
		}
		rid := uint16(1)

		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}

				// -x
				var previd uint16
				if rcGetCon(s, 0) != RC_NOT_CONNECTED {
					_, _, ai := chf.neighbour(x, y, i, 0)
					if (srcReg[ai]&RC_BORDER_REG) == 0 && chf.Areas[i] == chf.Areas[ai] {
						previd = srcReg[ai]
					}
				}

				if previd == 0 {
					previd = rid
					rid++
					for int(previd) >= len(sweeps) {
						sweeps = append(sweeps, rcSweepSpan{})
					}
					sweeps[previd].rid = previd
					sweeps[previd].ns = 0
					sweeps[previd].nei = 0
				}

				// -y
				if rcGetCon(s, 3) != RC_NOT_CONNECTED {
					_, _, ai := chf.neighbour(x, y, i, 3)
					if srcReg[ai] != 0 && (srcReg[ai]&RC_BORDER_REG) == 0 && chf.Areas[i] == chf.Areas[ai] {
						nr := srcReg[ai]
						if sweeps[previd].nei == 0 || sweeps[previd].nei == nr {
							sweeps[previd].nei = nr
							sweeps[previd].ns++
							prev[nr]++
						} else {
							sweeps[previd].nei = rcNullNei
						}
					}
				}

				srcReg[i] = previd
			}
		}

		// Create unique ID.
		for i := uint16(1); i < rid; i++ {
			if sweeps[i].nei != rcNullNei && sweeps[i].nei != 0 &&
				prev[sweeps[i].nei] == int(sweeps[i].ns) {
				sweeps[i].id = sweeps[i].nei
			} else {
				if id == 0xffff {
					return fmt.Errorf("rcBuildRegionsMonotone: region id overflow: %w", common.ErrAllocation)
				}
				sweeps[i].id = id
				id++
			}
		}

		// Remap IDs
		for x := borderSize; x < w-borderSize; x++ {
			c := chf.Cells[x+y*w]
			for i := c.Index; i < c.Index+c.Count; i++ {
				if srcReg[i] > 0 && srcReg[i] < rid {
					srcReg[i] = sweeps[srcReg[i]].id
				}
			}
		}
	}

	// Merge regions and filter out small regions.
	chf.MaxRegions = id
	mergeAndFilterRegions(ctx, minRegionArea, mergeRegionArea, &chf.MaxRegions, chf, srcReg)

	// Store the result out.
	for i := 0; i < chf.SpanCount; i++ {
		chf.Spans[i].Reg = srcReg[i]
	}
	return nil
}

// RegionSpanCounts returns the number of spans per region id, for
// diagnostics and tests.
func RegionSpanCounts(chf *RcCompactHeightfield) map[uint16]int {
	counts := map[uint16]int{}
	for i := 0; i < chf.SpanCount; i++ {
		if r := chf.Spans[i].Reg; r != 0 && r&RC_BORDER_REG == 0 {
			counts[r]++
		}
	}
	return counts
}

// sortedRegionIDs returns the keys of counts in ascending order.
func sortedRegionIDs(counts map[uint16]int) []uint16 {
	ids := make([]uint16, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
