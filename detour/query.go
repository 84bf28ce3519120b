package detour

import (
	"math"

	"github.com/gorustyt/irrnav/common"
)

// Search heuristic scale.
const H_SCALE = 0.999

// / Vertex flags returned by DtNavMeshQuery::FindStraightPath.
const (
	DT_STRAIGHTPATH_START = 0x01 ///< The vertex is the start position in the path.
	DT_STRAIGHTPATH_END   = 0x02 ///< The vertex is the end position in the path.
)

// / Options for DtNavMeshQuery::FindStraightPath.
const (
	DT_STRAIGHTPATH_AREA_CROSSINGS = 0x01 ///< Add a vertex at every polygon edge crossing where area changes.
	DT_STRAIGHTPATH_ALL_CROSSINGS  = 0x02 ///< Add a vertex at every polygon edge crossing.
)

// The tiny node pool bounds the breadth first search of MoveAlongSurface.
const tinyNodePoolSize = 64

// DtStraightPathPoint is one corner of a string pulled path.
type DtStraightPathPoint struct {
	Pos   [3]float32
	Flags uint8
	// Ref is the polygon entered at this point, zero for the end point.
	Ref DtPolyRef
}

// / Provides the ability to perform pathfinding related queries against
// / a navigation mesh. A query object holds search state, so it must not be
// / shared between goroutines.
type DtNavMeshQuery struct {
	m_nav          *DtNavMesh
	m_nodePool     *DtNodePool
	m_tinyNodePool *DtNodePool
	m_openList     *DtNodeQueue
}

// NewDtNavMeshQuery creates a query over nav whose path searches may touch at
// most maxNodes nodes.
func NewDtNavMeshQuery(nav *DtNavMesh, maxNodes int) *DtNavMeshQuery {
	return &DtNavMeshQuery{
		m_nav:          nav,
		m_nodePool:     NewDtNodePool(maxNodes),
		m_tinyNodePool: NewDtNodePool(tinyNodePoolSize),
		m_openList:     NewDtNodeQueue(),
	}
}

// / Gets the navigation mesh the query object is using.
func (q *DtNavMeshQuery) GetAttachedNavMesh() *DtNavMesh { return q.m_nav }

func (q *DtNavMeshQuery) GetNodePool() *DtNodePool { return q.m_nodePool }

// polyBounds returns the bounds of a polygon including its detail surface.
func polyBounds(tile *DtMeshTile, poly *DtPoly, ip int) (bmin, bmax [3]float32) {
	v := tile.vert(poly.Verts[0])
	copy(bmin[:], v)
	copy(bmax[:], v)
	for j := 1; j < int(poly.VertCount); j++ {
		v = tile.vert(poly.Verts[j])
		common.Vmin(bmin[:], v)
		common.Vmax(bmax[:], v)
	}
	if ip < len(tile.DetailMeshes) {
		pd := &tile.DetailMeshes[ip]
		for j := uint32(0); j < pd.VertCount; j++ {
			v = tile.DetailVerts[(pd.VertBase+j)*3 : (pd.VertBase+j)*3+3]
			common.Vmin(bmin[:], v)
			common.Vmax(bmax[:], v)
		}
	}
	return
}

// queryPolygonsInTile invokes fn for every polygon of tile that passes filter
// and whose bounds overlap qmin/qmax.
func (q *DtNavMeshQuery) queryPolygonsInTile(tile *DtMeshTile, qmin, qmax []float32, filter *DtQueryFilter,
	fn func(tile *DtMeshTile, ref DtPolyRef)) {
	base := q.m_nav.GetPolyRefBase(tile)
	for i := range tile.Polys {
		p := &tile.Polys[i]
		if !filter.PassFilter(p) {
			continue
		}
		bmin, bmax := polyBounds(tile, p, i)
		if common.OverlapBounds(qmin, qmax, bmin[:], bmax[:]) {
			fn(tile, base|DtPolyRef(i))
		}
	}
}

func (q *DtNavMeshQuery) queryPolygons(center, halfExtents []float32, filter *DtQueryFilter,
	fn func(tile *DtMeshTile, ref DtPolyRef)) {
	var bmin, bmax [3]float32
	common.Vsub(bmin[:], center, halfExtents)
	common.Vadd(bmax[:], center, halfExtents)

	visit := func(tile *DtMeshTile) {
		if common.OverlapBounds(bmin[:], bmax[:], tile.Header.Bmin[:], tile.Header.Bmax[:]) {
			q.queryPolygonsInTile(tile, bmin[:], bmax[:], filter, fn)
		}
	}

	// Find tiles the query touches.
	minx, miny := q.m_nav.CalcTileLoc(bmin[:])
	maxx, maxy := q.m_nav.CalcTileLoc(bmax[:])
	if int64(maxx-minx+1)*int64(maxy-miny+1) > int64(q.m_nav.TileCount()) {
		for _, tile := range q.m_nav.Tiles() {
			h := tile.Header
			if h.X >= minx && h.X <= maxx && h.Y >= miny && h.Y <= maxy {
				visit(tile)
			}
		}
		return
	}
	for y := miny; y <= maxy; y++ {
		for x := minx; x <= maxx; x++ {
			for _, tile := range q.m_nav.GetTilesAt(x, y) {
				visit(tile)
			}
		}
	}
}

// / Finds polygons that overlap the search box. At most maxPolys refs are
// / returned; DT_BUFFER_TOO_SMALL is set when more were found.
func (q *DtNavMeshQuery) QueryPolygons(center, halfExtents []float32, filter *DtQueryFilter, maxPolys int) ([]DtPolyRef, DtStatus) {
	if len(center) < 3 || len(halfExtents) < 3 || filter == nil || maxPolys <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	var polys []DtPolyRef
	overflow := false
	q.queryPolygons(center, halfExtents, filter, func(_ *DtMeshTile, ref DtPolyRef) {
		if len(polys) < maxPolys {
			polys = append(polys, ref)
		} else {
			overflow = true
		}
	})
	if overflow {
		return polys, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return polys, DT_SUCCESS
}

// / Finds the polygon nearest to the specified center point.
// / If the search box does not intersect any polygons the search will
// / return #DT_SUCCESS, but nearestRef will be zero.
func (q *DtNavMeshQuery) FindNearestPoly(center, halfExtents []float32, filter *DtQueryFilter) (nearestRef DtPolyRef, nearestPt [3]float32, status DtStatus) {
	if len(center) < 3 || !visfinite(center) || len(halfExtents) < 3 || !visfinite(halfExtents) ||
		halfExtents[0] < 0 || halfExtents[1] < 0 || halfExtents[2] < 0 || filter == nil {
		return 0, nearestPt, DT_FAILURE | DT_INVALID_PARAM
	}
	nearestDistanceSqr := float32(math.MaxFloat32)
	q.queryPolygons(center, halfExtents, filter, func(tile *DtMeshTile, ref DtPolyRef) {
		closestPtPoly, posOverPoly := q.m_nav.closestPointOnPoly(ref, center)

		// If a point is directly over a polygon and closer than
		// climb height, favor that instead of straight line nearest point.
		var d float32
		var diff [3]float32
		common.Vsub(diff[:], center, closestPtPoly[:])
		if posOverPoly {
			d = common.Abs(diff[1]) - tile.Header.WalkableClimb
			if d > 0 {
				d = d * d
			} else {
				d = 0
			}
		} else {
			d = common.VlenSqr(diff[:])
		}
		if d < nearestDistanceSqr {
			nearestPt = closestPtPoly
			nearestDistanceSqr = d
			nearestRef = ref
		}
	})
	return nearestRef, nearestPt, DT_SUCCESS
}

// / Finds the closest point on the specified polygon. posOverPoly reports
// / whether pos lies above or below the polygon.
func (q *DtNavMeshQuery) ClosestPointOnPoly(ref DtPolyRef, pos []float32) (closest [3]float32, posOverPoly bool, status DtStatus) {
	if !q.m_nav.IsValidPolyRef(ref) || len(pos) < 3 || !visfinite(pos) {
		return closest, false, DT_FAILURE | DT_INVALID_PARAM
	}
	closest, posOverPoly = q.m_nav.closestPointOnPoly(ref, pos)
	return closest, posOverPoly, DT_SUCCESS
}

// / Returns a point on the boundary closest to the source point if the source
// / point is outside the polygon's xz-bounds, else the point itself.
// / Much faster than ClosestPointOnPoly; the height detail is not used.
func (q *DtNavMeshQuery) ClosestPointOnPolyBoundary(ref DtPolyRef, pos []float32) (closest [3]float32, status DtStatus) {
	tile, poly, status := q.m_nav.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(pos) < 3 || !visfinite(pos) {
		return closest, DT_FAILURE | DT_INVALID_PARAM
	}

	// Collect vertices.
	var verts [DT_VERTS_PER_POLYGON * 3]float32
	var edged, edget [DT_VERTS_PER_POLYGON]float32
	nv := tile.polyVerts(poly, verts[:])

	if dtDistancePtPolyEdgesSqr(pos, verts[:], nv, edged[:], edget[:]) {
		// Point is inside the polygon, return the point.
		copy(closest[:], pos)
		return closest, DT_SUCCESS
	}
	// Point is outside the polygon, dtClamp to nearest edge.
	dmin := edged[0]
	imin := 0
	for i := 1; i < nv; i++ {
		if edged[i] < dmin {
			dmin = edged[i]
			imin = i
		}
	}
	va := verts[imin*3 : imin*3+3]
	vb := verts[((imin+1)%nv)*3 : ((imin+1)%nv)*3+3]
	common.Vlerp(closest[:], va, vb, edget[imin])
	return closest, DT_SUCCESS
}

// / Gets the height of the polygon at the provided position using the height detail.
// / Fails when the position is outside the polygon on the xz-plane.
func (q *DtNavMeshQuery) GetPolyHeight(ref DtPolyRef, pos []float32) (float32, DtStatus) {
	tile, poly, status := q.m_nav.GetTileAndPolyByRef(ref)
	if status.DtStatusFailed() {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	if len(pos) < 3 || !visfinite(pos) {
		return 0, DT_FAILURE | DT_INVALID_PARAM
	}
	if h, ok := q.m_nav.getPolyHeight(tile, poly, int(DecodePolyIdPoly(ref)), pos); ok {
		return h, DT_SUCCESS
	}
	return 0, DT_FAILURE | DT_INVALID_PARAM
}

func (q *DtNavMeshQuery) findLink(fromTile *DtMeshTile, fromPoly *DtPoly, to DtPolyRef) *DtLink {
	for i := fromPoly.FirstLink; i != DT_NULL_LINK; i = fromTile.Links[i].Next {
		if fromTile.Links[i].Ref == to {
			return &fromTile.Links[i]
		}
	}
	return nil
}

// / Returns the portal points between two adjacent polygons.
func (q *DtNavMeshQuery) GetPortalPoints(from, to DtPolyRef) (left, right [3]float32, status DtStatus) {
	fromTile, fromPoly, status := q.m_nav.GetTileAndPolyByRef(from)
	if status.DtStatusFailed() {
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}
	if !q.m_nav.IsValidPolyRef(to) {
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}
	return q.getPortalPoints(fromTile, fromPoly, to)
}

func (q *DtNavMeshQuery) getPortalPoints(fromTile *DtMeshTile, fromPoly *DtPoly, to DtPolyRef) (left, right [3]float32, status DtStatus) {
	// Find the link that points to the 'to' polygon.
	link := q.findLink(fromTile, fromPoly, to)
	if link == nil {
		return left, right, DT_FAILURE | DT_INVALID_PARAM
	}

	// Find portal vertices.
	v0 := fromTile.vert(fromPoly.Verts[link.Edge])
	v1 := fromTile.vert(fromPoly.Verts[(link.Edge+1)%fromPoly.VertCount])
	copy(left[:], v0)
	copy(right[:], v1)

	// If the link is at tile boundary, clamp the vertices to the link width.
	if link.Side != 0xff && (link.Bmin != 0 || link.Bmax != 255) {
		// Unpack portal limits.
		s := float32(1.0 / 255.0)
		tmin := float32(link.Bmin) * s
		tmax := float32(link.Bmax) * s
		common.Vlerp(left[:], v0, v1, tmin)
		common.Vlerp(right[:], v0, v1, tmax)
	}
	return left, right, DT_SUCCESS
}

// / Returns the midpoint of the portal between two adjacent polygons.
func (q *DtNavMeshQuery) GetEdgeMidPoint(from, to DtPolyRef) (mid [3]float32, status DtStatus) {
	left, right, status := q.GetPortalPoints(from, to)
	if status.DtStatusFailed() {
		return mid, status
	}
	common.Vlerp(mid[:], left[:], right[:], 0.5)
	return mid, DT_SUCCESS
}

// / Finds a path from the start polygon to the end polygon.
// / If the end polygon cannot be reached, the path to the polygon nearest to
// / the end is returned with DT_PARTIAL_RESULT set.
func (q *DtNavMeshQuery) FindPath(startRef, endRef DtPolyRef, startPos, endPos []float32,
	filter *DtQueryFilter, maxPath int) ([]DtPolyRef, DtStatus) {
	// Validate input
	if !q.m_nav.IsValidPolyRef(startRef) || !q.m_nav.IsValidPolyRef(endRef) ||
		len(startPos) < 3 || !visfinite(startPos) || len(endPos) < 3 || !visfinite(endPos) ||
		filter == nil || maxPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	if startRef == endRef {
		return []DtPolyRef{startRef}, DT_SUCCESS
	}

	q.m_openList.Reset()
	q.m_nodePool.Clear()

	startNode := q.m_nodePool.GetNode(startRef, 0)
	copy(startNode.Pos[:], startPos)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = common.Vdist(startPos, endPos) * H_SCALE
	startNode.Flags = DT_NODE_OPEN
	q.m_openList.Push(startNode)

	lastBestNode := startNode
	lastBestNodeCost := startNode.Total
	outOfNodes := false

	for !q.m_openList.Empty() {
		// Remove node from open list and put it in closed list.
		bestNode := q.m_openList.Pop()
		bestNode.Flags &^= DT_NODE_OPEN
		bestNode.Flags |= DT_NODE_CLOSED

		// Reached the goal, stop searching.
		if bestNode.Id == endRef {
			lastBestNode = bestNode
			break
		}

		// Get current poly and tile.
		// The API input has been checked already, skip checking internal data.
		bestRef := bestNode.Id
		bestTile, bestPoly := q.m_nav.GetTileAndPolyByRefUnsafe(bestRef)

		// Get parent poly and tile.
		var parentRef DtPolyRef
		if parent := q.m_nodePool.GetNodeAtIdx(bestNode.Pidx); parent != nil {
			parentRef = parent.Id
		}
		bestIdx := q.m_nodePool.GetNodeIdx(bestNode)

		for i := bestPoly.FirstLink; i != DT_NULL_LINK; i = bestTile.Links[i].Next {
			link := &bestTile.Links[i]
			neighbourRef := link.Ref

			// Skip invalid ids and do not expand back to where we came from.
			if neighbourRef == 0 || neighbourRef == parentRef {
				continue
			}

			// Get neighbour poly and tile.
			_, neighbourPoly := q.m_nav.GetTileAndPolyByRefUnsafe(neighbourRef)
			if !filter.PassFilter(neighbourPoly) {
				continue
			}

			// deal explicitly with crossing tile boundaries
			crossSide := uint32(0)
			if link.Side != 0xff {
				crossSide = uint32(link.Side) >> 1
			}

			// get the node
			neighbourNode := q.m_nodePool.GetNode(neighbourRef, crossSide)
			if neighbourNode == nil {
				outOfNodes = true
				continue
			}

			// If the node is visited the first time, calculate node position.
			if neighbourNode.Flags == 0 {
				left, right, _ := q.getPortalPoints(bestTile, bestPoly, neighbourRef)
				common.Vlerp(neighbourNode.Pos[:], left[:], right[:], 0.5)
			}

			// Calculate cost and heuristic.
			var cost, heuristic float32
			curCost := filter.getCost(bestNode.Pos[:], neighbourNode.Pos[:], bestPoly)
			if neighbourRef == endRef {
				// Special case for last node.
				endCost := filter.getCost(neighbourNode.Pos[:], endPos, neighbourPoly)
				cost = bestNode.Cost + curCost + endCost
				heuristic = 0
			} else {
				cost = bestNode.Cost + curCost
				heuristic = common.Vdist(neighbourNode.Pos[:], endPos) * H_SCALE
			}
			total := cost + heuristic

			// The node is already in open list and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_OPEN != 0 && total >= neighbourNode.Total {
				continue
			}
			// The node is already visited and process, and the new result is worse, skip.
			if neighbourNode.Flags&DT_NODE_CLOSED != 0 && total >= neighbourNode.Total {
				continue
			}

			// Add or update the node.
			neighbourNode.Pidx = bestIdx
			neighbourNode.Flags &^= DT_NODE_CLOSED
			neighbourNode.Cost = cost
			neighbourNode.Total = total

			if neighbourNode.Flags&DT_NODE_OPEN != 0 {
				// Already in open, update node location.
				q.m_openList.Modify(neighbourNode)
			} else {
				// Put the node in open list.
				neighbourNode.Flags |= DT_NODE_OPEN
				q.m_openList.Push(neighbourNode)
			}

			// Update nearest node to target so far.
			if heuristic < lastBestNodeCost {
				lastBestNodeCost = heuristic
				lastBestNode = neighbourNode
			}
		}
	}

	path, status := q.getPathToNode(q.m_nodePool, lastBestNode, maxPath)
	if lastBestNode.Id != endRef {
		status |= DT_PARTIAL_RESULT
	}
	if outOfNodes {
		status |= DT_OUT_OF_NODES
	}
	return path, status
}

// getPathToNode walks the parent chain of endNode and returns the refs from
// the start. Paths longer than maxPath keep their first maxPath polygons.
func (q *DtNavMeshQuery) getPathToNode(pool *DtNodePool, endNode *DtNode, maxPath int) ([]DtPolyRef, DtStatus) {
	var rev []DtPolyRef
	for node := endNode; node != nil; node = pool.GetNodeAtIdx(node.Pidx) {
		rev = append(rev, node.Id)
	}
	path := make([]DtPolyRef, 0, min(len(rev), maxPath))
	for i := len(rev) - 1; i >= 0 && len(path) < maxPath; i-- {
		path = append(path, rev[i])
	}
	if len(rev) > maxPath {
		return path, DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	return path, DT_SUCCESS
}

type straightPathBuilder struct {
	pts []DtStraightPathPoint
	max int
}

func (b *straightPathBuilder) appendVertex(pos []float32, flags uint8, ref DtPolyRef) DtStatus {
	if n := len(b.pts); n > 0 && common.Vequal(b.pts[n-1].Pos[:], pos) {
		// The vertices are equal, update flags and poly.
		b.pts[n-1].Flags = flags
		b.pts[n-1].Ref = ref
		return DT_IN_PROGRESS
	}
	// Append new vertex.
	p := DtStraightPathPoint{Flags: flags, Ref: ref}
	copy(p.Pos[:], pos)
	b.pts = append(b.pts, p)

	// If there is no space to append more vertices, return.
	if len(b.pts) >= b.max {
		return DT_SUCCESS | DT_BUFFER_TOO_SMALL
	}
	// If reached end of path, return.
	if flags == DT_STRAIGHTPATH_END {
		return DT_SUCCESS
	}
	return DT_IN_PROGRESS
}

func (q *DtNavMeshQuery) appendPortals(b *straightPathBuilder, startIdx, endIdx int, endPos []float32,
	path []DtPolyRef, options int) DtStatus {
	startPos := b.pts[len(b.pts)-1].Pos
	// Append or update last vertex
	for i := startIdx; i < endIdx; i++ {
		// Calculate portal
		fromTile, fromPoly, status := q.m_nav.GetTileAndPolyByRef(path[i])
		if status.DtStatusFailed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}
		_, toPoly, status := q.m_nav.GetTileAndPolyByRef(path[i+1])
		if status.DtStatusFailed() {
			return DT_FAILURE | DT_INVALID_PARAM
		}
		left, right, status := q.getPortalPoints(fromTile, fromPoly, path[i+1])
		if status.DtStatusFailed() {
			break
		}

		// Skip intersection if only area crossings are requested.
		if options&DT_STRAIGHTPATH_AREA_CROSSINGS != 0 && fromPoly.Area == toPoly.Area {
			continue
		}

		// Append intersection
		if _, t, ok := dtIntersectSegSeg2D(startPos[:], endPos, left[:], right[:]); ok {
			var pt [3]float32
			common.Vlerp(pt[:], left[:], right[:], t)
			if status := b.appendVertex(pt[:], 0, path[i+1]); status != DT_IN_PROGRESS {
				return status
			}
		}
	}
	return DT_IN_PROGRESS
}

// / Finds the straight path from the start to the end position within the
// / polygon corridor. This is what is often called 'string pulling'.
// /
// / The start position is clamped to the first polygon in the path, and the
// / end position is clamped to the last. At most maxStraightPath points are
// / returned, filled from the start toward the end.
func (q *DtNavMeshQuery) FindStraightPath(startPos, endPos []float32, path []DtPolyRef,
	maxStraightPath int, options int) ([]DtStraightPathPoint, DtStatus) {
	if len(startPos) < 3 || !visfinite(startPos) || len(endPos) < 3 || !visfinite(endPos) ||
		len(path) == 0 || path[0] == 0 || maxStraightPath <= 0 {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	closestStartPos, status := q.ClosestPointOnPolyBoundary(path[0], startPos)
	if status.DtStatusFailed() {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}
	closestEndPos, status := q.ClosestPointOnPolyBoundary(path[len(path)-1], endPos)
	if status.DtStatusFailed() {
		return nil, DT_FAILURE | DT_INVALID_PARAM
	}

	b := &straightPathBuilder{max: maxStraightPath}
	crossings := options&(DT_STRAIGHTPATH_AREA_CROSSINGS|DT_STRAIGHTPATH_ALL_CROSSINGS) != 0

	// Add start point.
	if status := b.appendVertex(closestStartPos[:], DT_STRAIGHTPATH_START, path[0]); status != DT_IN_PROGRESS {
		return b.pts, status
	}

	if len(path) > 1 {
		portalApex := closestStartPos
		portalLeft := portalApex
		portalRight := portalApex
		apexIndex, leftIndex, rightIndex := 0, 0, 0
		leftPolyRef, rightPolyRef := path[0], path[0]

		for i := 0; i < len(path); i++ {
			var left, right [3]float32
			if i+1 < len(path) {
				// Next portal.
				fromTile, fromPoly, st := q.m_nav.GetTileAndPolyByRef(path[i])
				if st.DtStatusSucceed() {
					left, right, st = q.getPortalPoints(fromTile, fromPoly, path[i+1])
				}
				if st.DtStatusFailed() {
					// Failed to get portal points, in practice this means that path[i+1] is invalid polygon.
					// Clamp the end point to path[i], and return the path so far.
					closestEndPos, st = q.ClosestPointOnPolyBoundary(path[i], endPos)
					if st.DtStatusFailed() {
						// This should only happen when the first polygon is invalid.
						return nil, DT_FAILURE | DT_INVALID_PARAM
					}
					// Append portals along the current straight path segment.
					if crossings {
						// Ignore status return value as we're just about to return anyway.
						q.appendPortals(b, apexIndex, i, closestEndPos[:], path, options)
					}
					// Ignore status return value as we're just about to return anyway.
					b.appendVertex(closestEndPos[:], 0, path[i])
					status := DT_SUCCESS | DT_PARTIAL_RESULT
					if len(b.pts) >= maxStraightPath {
						status |= DT_BUFFER_TOO_SMALL
					}
					return b.pts, status
				}

				// If starting really close the portal, advance.
				if i == 0 {
					if d, _ := common.DistancePtSegSqr2D(portalApex[:], left[:], right[:]); d < common.Sqr(float32(0.001)) {
						continue
					}
				}
			} else {
				// End of the path.
				left = closestEndPos
				right = closestEndPos
			}

			// Right vertex.
			if common.TriArea2D(portalApex[:], portalRight[:], right[:]) <= 0 {
				if common.Vequal(portalApex[:], portalRight[:]) || common.TriArea2D(portalApex[:], portalLeft[:], right[:]) > 0 {
					portalRight = right
					rightPolyRef = 0
					if i+1 < len(path) {
						rightPolyRef = path[i+1]
					}
					rightIndex = i
				} else {
					// Append portals along the current straight path segment.
					if crossings {
						if status := q.appendPortals(b, apexIndex, leftIndex, portalLeft[:], path, options); status != DT_IN_PROGRESS {
							return b.pts, status
						}
					}

					portalApex = portalLeft
					apexIndex = leftIndex

					var flags uint8
					if leftPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					}
					// Append or update vertex
					if status := b.appendVertex(portalApex[:], flags, leftPolyRef); status != DT_IN_PROGRESS {
						return b.pts, status
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}

			// Left vertex.
			if common.TriArea2D(portalApex[:], portalLeft[:], left[:]) >= 0 {
				if common.Vequal(portalApex[:], portalLeft[:]) || common.TriArea2D(portalApex[:], portalRight[:], left[:]) < 0 {
					portalLeft = left
					leftPolyRef = 0
					if i+1 < len(path) {
						leftPolyRef = path[i+1]
					}
					leftIndex = i
				} else {
					// Append portals along the current straight path segment.
					if crossings {
						if status := q.appendPortals(b, apexIndex, rightIndex, portalRight[:], path, options); status != DT_IN_PROGRESS {
							return b.pts, status
						}
					}

					portalApex = portalRight
					apexIndex = rightIndex

					var flags uint8
					if rightPolyRef == 0 {
						flags = DT_STRAIGHTPATH_END
					}
					// Append or update vertex
					if status := b.appendVertex(portalApex[:], flags, rightPolyRef); status != DT_IN_PROGRESS {
						return b.pts, status
					}

					portalLeft = portalApex
					portalRight = portalApex
					leftIndex = apexIndex
					rightIndex = apexIndex

					// Restart
					i = apexIndex
					continue
				}
			}
		}

		// Append portals along the current straight path segment.
		if crossings {
			if status := q.appendPortals(b, apexIndex, len(path)-1, closestEndPos[:], path, options); status != DT_IN_PROGRESS {
				return b.pts, status
			}
		}
	}

	// Ignore status return value as we're just about to return anyway.
	b.appendVertex(closestEndPos[:], DT_STRAIGHTPATH_END, 0)
	status = DT_SUCCESS
	if len(b.pts) >= maxStraightPath {
		status |= DT_BUFFER_TOO_SMALL
	}
	return b.pts, status
}

// / Moves from the start to the end position constrained to the navigation mesh.
// /
// / This method is optimized for small delta movement and a small number of
// / polygons. The returned position is the end position when it was reached,
// / otherwise the closest reachable position. It is not projected onto the
// / surface; use GetPolyHeight for that. visited lists the polygons crossed,
// / from the start polygon on.
func (q *DtNavMeshQuery) MoveAlongSurface(startRef DtPolyRef, startPos, endPos []float32,
	filter *DtQueryFilter, maxVisited int) (resultPos [3]float32, visited []DtPolyRef, status DtStatus) {
	if !q.m_nav.IsValidPolyRef(startRef) ||
		len(startPos) < 3 || !visfinite(startPos) ||
		len(endPos) < 3 || !visfinite(endPos) ||
		filter == nil || maxVisited <= 0 {
		return resultPos, nil, DT_FAILURE | DT_INVALID_PARAM
	}
	status = DT_SUCCESS

	const maxStack = 48
	stack := make([]*DtNode, 0, maxStack)

	pool := q.m_tinyNodePool
	pool.Clear()
	startNode := pool.GetNode(startRef, 0)
	startNode.Pidx = 0
	startNode.Cost = 0
	startNode.Total = 0
	startNode.Flags = DT_NODE_CLOSED
	stack = append(stack, startNode)

	bestDist := float32(math.MaxFloat32)
	var bestPos [3]float32
	copy(bestPos[:], startPos)
	var bestNode *DtNode

	// Search constraints
	var searchPos [3]float32
	common.Vlerp(searchPos[:], startPos, endPos, 0.5)
	searchRadSqr := common.Sqr(common.Vdist(startPos, endPos)/2 + 0.001)

	var verts [DT_VERTS_PER_POLYGON * 3]float32
	for len(stack) > 0 {
		// Pop front.
		curNode := stack[0]
		stack = stack[1:]

		// Get poly and tile.
		curRef := curNode.Id
		curTile, curPoly := q.m_nav.GetTileAndPolyByRefUnsafe(curRef)
		curIdx := pool.GetNodeIdx(curNode)

		// Collect vertices.
		nverts := curTile.polyVerts(curPoly, verts[:])

		// If target is inside the poly, stop search.
		if common.PointInPolygon(endPos, verts[:], nverts) {
			bestNode = curNode
			copy(bestPos[:], endPos)
			break
		}

		// Find wall edges and find nearest point inside the walls.
		for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
			// Find links to neighbours.
			const maxNeis = 8
			neis := make([]DtPolyRef, 0, maxNeis)

			if curPoly.Neis[j]&DT_EXT_LINK != 0 {
				// Tile border.
				for k := curPoly.FirstLink; k != DT_NULL_LINK; k = curTile.Links[k].Next {
					link := &curTile.Links[k]
					if int(link.Edge) == j && link.Ref != 0 {
						_, neiPoly := q.m_nav.GetTileAndPolyByRefUnsafe(link.Ref)
						if filter.PassFilter(neiPoly) && len(neis) < maxNeis {
							neis = append(neis, link.Ref)
						}
					}
				}
			} else if curPoly.Neis[j] != 0 {
				idx := curPoly.Neis[j] - 1
				if filter.PassFilter(&curTile.Polys[idx]) {
					// Internal edge, encode id.
					neis = append(neis, q.m_nav.GetPolyRefBase(curTile)|DtPolyRef(idx))
				}
			}

			vj := verts[j*3 : j*3+3]
			vi := verts[i*3 : i*3+3]
			if len(neis) == 0 {
				// Wall edge, calc distance.
				distSqr, tseg := common.DistancePtSegSqr2D(endPos, vj, vi)
				if distSqr < bestDist {
					// Update nearest distance.
					common.Vlerp(bestPos[:], vj, vi, tseg)
					bestDist = distSqr
					bestNode = curNode
				}
				continue
			}
			for _, nei := range neis {
				// Skip if no node can be allocated.
				neighbourNode := pool.GetNode(nei, 0)
				if neighbourNode == nil {
					continue
				}
				// Skip if already visited.
				if neighbourNode.Flags&DT_NODE_CLOSED != 0 {
					continue
				}
				// Skip the link if it is too far from search constraint.
				if distSqr, _ := common.DistancePtSegSqr2D(searchPos[:], vj, vi); distSqr > searchRadSqr {
					continue
				}
				// Mark as the node as visited and push to queue.
				if len(stack) < maxStack {
					neighbourNode.Pidx = curIdx
					neighbourNode.Flags |= DT_NODE_CLOSED
					stack = append(stack, neighbourNode)
				}
			}
		}
	}

	if bestNode != nil {
		var st DtStatus
		visited, st = q.getPathToNode(pool, bestNode, maxVisited)
		status |= st & DT_STATUS_DETAIL_MASK
	}
	return bestPos, visited, status
}

func visfinite(v []float32) bool {
	for _, f := range v[:3] {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}
	return true
}
