package detour_crowd

import (
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/detour"
)

// Corners closer than this to the corridor position are dropped.
const minTargetDist = 0.01

// The visited buffer handed to MoveAlongSurface.
const maxVisited = 16

// DtMergeCorridorStartMoved splices the polygons visited while moving the
// start of a corridor into path. It returns the new path.
func DtMergeCorridorStartMoved(path []detour.DtPolyRef, maxPath int, visited []detour.DtPolyRef) []detour.DtPolyRef {
	furthestPath := -1
	furthestVisited := -1

	// Find furthest common polygon.
	for i := len(path) - 1; i >= 0 && furthestPath == -1; i-- {
		for j := len(visited) - 1; j >= 0; j-- {
			if path[i] == visited[j] {
				furthestPath = i
				furthestVisited = j
				break
			}
		}
	}

	// If no intersection found just return current path.
	if furthestPath == -1 {
		return path
	}

	// Concatenate paths.
	// Adjust beginning of the buffer to include the visited.
	res := make([]detour.DtPolyRef, 0, min(maxPath, len(visited)-furthestVisited+len(path)-furthestPath-1))
	for i := len(visited) - 1; i >= furthestVisited && len(res) < maxPath; i-- {
		res = append(res, visited[i])
	}
	// Store visited
	for i := furthestPath + 1; i < len(path) && len(res) < maxPath; i++ {
		res = append(res, path[i])
	}
	return res
}

// / Represents a dynamic polygon corridor used to plan agent movement.
// / The position lies in the first polygon of the path, the target in the last.
type DtPathCorridor struct {
	m_pos     [3]float32
	m_target  [3]float32
	m_path    []detour.DtPolyRef
	m_maxPath int
}

func NewDtPathCorridor(maxPath int) *DtPathCorridor {
	return &DtPathCorridor{m_maxPath: maxPath}
}

// / Gets the current position within the corridor. (In the first polygon.)
func (d *DtPathCorridor) GetPos() [3]float32 { return d.m_pos }

// / Gets the current target within the corridor. (In the last polygon.)
func (d *DtPathCorridor) GetTarget() [3]float32 { return d.m_target }

// / The polygon reference id of the first polygon in the corridor, the polygon containing the position.
func (d *DtPathCorridor) GetFirstPoly() detour.DtPolyRef {
	if len(d.m_path) > 0 {
		return d.m_path[0]
	}
	return 0
}

// / The polygon reference id of the last polygon in the corridor, the polygon containing the target.
func (d *DtPathCorridor) GetLastPoly() detour.DtPolyRef {
	if len(d.m_path) > 0 {
		return d.m_path[len(d.m_path)-1]
	}
	return 0
}

func (d *DtPathCorridor) GetPath() []detour.DtPolyRef { return d.m_path }
func (d *DtPathCorridor) GetPathCount() int           { return len(d.m_path) }

// / Resets the path corridor to the specified position. The corridor is one
// / polygon in size with the target equal to the position. A zero ref leaves
// / the corridor empty.
func (d *DtPathCorridor) Reset(ref detour.DtPolyRef, pos []float32) {
	copy(d.m_pos[:], pos)
	copy(d.m_target[:], pos)
	d.m_path = d.m_path[:0]
	if ref != 0 {
		d.m_path = append(d.m_path, ref)
	}
}

// / Loads a new path and target into the corridor.
func (d *DtPathCorridor) SetCorridor(target []float32, path []detour.DtPolyRef) {
	copy(d.m_target[:], target)
	d.m_path = append(d.m_path[:0], path[:min(len(path), d.m_maxPath)]...)
}

// / Finds the corners in the corridor from the position toward the target.
// / If the target is within range, it will be the last corner and have a
// / polygon reference id of zero.
func (d *DtPathCorridor) FindCorners(navquery *detour.DtNavMeshQuery, maxCorners int) []detour.DtStraightPathPoint {
	if len(d.m_path) == 0 {
		return nil
	}
	corners, status := navquery.FindStraightPath(d.m_pos[:], d.m_target[:], d.m_path, maxCorners, 0)
	if status.DtStatusFailed() {
		return nil
	}
	// Prune points in the beginning of the path which are too close.
	for len(corners) > 0 && common.Vdist2DSqr(corners[0].Pos[:], d.m_pos[:]) <= minTargetDist*minTargetDist {
		corners = corners[1:]
	}
	return corners
}

// / Moves the position from the current location to the desired location,
// / adjusting the corridor as needed to reflect the change.
// / The movement is constrained to the surface of the navigation mesh.
func (d *DtPathCorridor) MovePosition(npos []float32, navquery *detour.DtNavMeshQuery, filter *detour.DtQueryFilter) bool {
	if len(d.m_path) == 0 {
		return false
	}
	// Move along navmesh and update new position.
	result, visited, status := navquery.MoveAlongSurface(d.m_path[0], d.m_pos[:], npos, filter, maxVisited)
	if !status.DtStatusSucceed() {
		return false
	}
	d.m_path = DtMergeCorridorStartMoved(d.m_path, d.m_maxPath, visited)

	// Adjust the position to stay on top of the navmesh.
	if h, status := navquery.GetPolyHeight(d.m_path[0], result[:]); status.DtStatusSucceed() {
		result[1] = h
	} else {
		result[1] = d.m_pos[1]
	}
	d.m_pos = result
	return true
}

// / Checks the current corridor path to see if its polygon references remain
// / valid. Only the first maxLookAhead polygons are checked.
func (d *DtPathCorridor) IsValid(maxLookAhead int, nav *detour.DtNavMesh, filter *detour.DtQueryFilter) bool {
	n := min(len(d.m_path), maxLookAhead)
	for i := 0; i < n; i++ {
		_, poly, status := nav.GetTileAndPolyByRef(d.m_path[i])
		if status.DtStatusFailed() || !filter.PassFilter(poly) {
			return false
		}
	}
	return true
}
