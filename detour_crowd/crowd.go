package detour_crowd

import (
	"sort"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/common/logger"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/detour"
	"go.uber.org/zap"
)

// / The maximum number of neighbors that a crowd agent can take into account
// / for steering decisions.
const DT_CROWDAGENT_MAX_NEIGHBOURS = 6

// / The maximum number of corners a crowd agent will look ahead in the path.
// / The actual number of useful corners will be one less than this number.
const DT_CROWDAGENT_MAX_CORNERS = 4

const (
	maxPathResult           = 256
	maxCollisionIterations  = 4
	collisionResolveFactor  = 0.7
	maxCorridorLookAhead    = 8
	neighbourQueryCandidate = 32
)

// / Crowd agent update flags.
const (
	DT_CROWD_ANTICIPATE_TURNS = 1
	DT_CROWD_SEPARATION       = 4
)

// DtCrowdAgentState is the movement state of an agent.
type DtCrowdAgentState int

const (
	DT_CROWDAGENT_STATE_IDLE         DtCrowdAgentState = iota // no target
	DT_CROWDAGENT_STATE_PATH_PENDING                          // target set, corridor not planned yet
	DT_CROWDAGENT_STATE_MOVING                                // following the corridor
	DT_CROWDAGENT_STATE_ARRIVED                               // within the arrival radius of the target
)

func (s DtCrowdAgentState) String() string {
	switch s {
	case DT_CROWDAGENT_STATE_IDLE:
		return "idle"
	case DT_CROWDAGENT_STATE_PATH_PENDING:
		return "path pending"
	case DT_CROWDAGENT_STATE_MOVING:
		return "moving"
	case DT_CROWDAGENT_STATE_ARRIVED:
		return "arrived"
	}
	return "unknown"
}

// / Provides neighbor data for agents managed by the crowd.
type DtCrowdNeighbour struct {
	Idx  int     ///< The index of the neighbor in the crowd.
	Dist float32 ///< The squared distance between the current agent and the neighbor.
}

// / Configuration parameters for a crowd agent.
type DtCrowdAgentParams struct {
	Radius          float32 ///< Agent radius. [Limit: >= 0]
	Height          float32 ///< Agent height. [Limit: > 0]
	MaxAcceleration float32 ///< Maximum allowed acceleration. [Limit: >= 0]
	MaxSpeed        float32 ///< Maximum allowed speed. [Limit: >= 0]

	/// Defines how close a collision element must be before it is considered for steering behaviors. [Limits: > 0]
	CollisionQueryRange float32

	/// How aggresive the agent manager should be at avoiding collisions with this agent. [Limit: >= 0]
	SeparationWeight float32

	/// Distance to the target under which the agent counts as arrived.
	ArrivalRadius float32

	/// Flags that impact steering behavior.
	UpdateFlags int
}

// WithDefaults fills the zero fields of p from d. Query range and arrival
// radius defaults scale with the agent radius.
func (p DtCrowdAgentParams) WithDefaults(d config.AgentDefaults) DtCrowdAgentParams {
	if p.Radius <= 0 {
		p.Radius = d.Radius
	}
	if p.Height <= 0 {
		p.Height = d.Height
	}
	if p.MaxAcceleration <= 0 {
		p.MaxAcceleration = d.MaxAcceleration
	}
	if p.MaxSpeed <= 0 {
		p.MaxSpeed = d.MaxSpeed
	}
	if p.CollisionQueryRange <= 0 {
		p.CollisionQueryRange = d.CollisionQueryRange * p.Radius
	}
	if p.SeparationWeight <= 0 {
		p.SeparationWeight = d.SeparationWeight
	}
	if p.ArrivalRadius <= 0 {
		p.ArrivalRadius = d.ArrivalRadius * p.Radius
	}
	if p.UpdateFlags == 0 {
		p.UpdateFlags = DT_CROWD_ANTICIPATE_TURNS | DT_CROWD_SEPARATION
	}
	return p
}

// / Represents an agent managed by a #DtCrowd object.
type DtCrowdAgent struct {
	/// True if the agent is active, false if the agent is in an unused slot in the agent pool.
	Active bool

	State DtCrowdAgentState

	/// True if the planned path does not reach the requested position.
	Partial bool

	/// The path corridor the agent is using.
	Corridor *DtPathCorridor

	/// The known neighbors of the agent.
	Neis []DtCrowdNeighbour

	desiredSpeed float32

	Npos [3]float32 ///< The current agent position. [(x, y, z)]
	Disp [3]float32 ///< A temporary value used to accumulate agent displacement during iterative collision resolution. [(x, y, z)]
	Dvel [3]float32 ///< The desired velocity of the agent. Based on the current path, calculated from scratch each frame. [(x, y, z)]
	Nvel [3]float32 ///< The desired velocity adjusted by separation, calculated from scratch each frame. [(x, y, z)]
	Vel  [3]float32 ///< The actual velocity of the agent. The change from nvel -> vel is constrained by max acceleration. [(x, y, z)]

	/// The agent's configuration parameters.
	Params DtCrowdAgentParams

	/// The local path corridor corners for the agent.
	Corners []detour.DtStraightPathPoint

	TargetRef detour.DtPolyRef ///< Target polyref of the movement request.
	TargetPos [3]float32       ///< Target position of the movement request.

	queued bool
}

// / Provides local steering behaviors for a group of agents.
// / The crowd is not safe for concurrent use; mutation and Update run on the
// / simulation goroutine.
type DtCrowd struct {
	m_maxAgents    int
	m_agents       []*DtCrowdAgent
	m_activeAgents []*DtCrowdAgent

	m_pathq *dtPathQueue

	m_grid *DtProximityGrid

	m_halfExtents    [3]float32
	m_filter         *detour.DtQueryFilter
	m_maxAgentRadius float32
	m_defaults       config.AgentDefaults

	m_navquery *detour.DtNavMeshQuery
	m_log      *zap.Logger
}

// NewDtCrowd creates a crowd of cfg.MaxAgents slots. navquery may be nil
// until a graph is available; see SetNavQuery.
func NewDtCrowd(cfg config.CrowdConfig, halfExtents [3]float32, navquery *detour.DtNavMeshQuery) *DtCrowd {
	c := &DtCrowd{
		m_maxAgents:      cfg.MaxAgents,
		m_agents:         make([]*DtCrowdAgent, cfg.MaxAgents),
		m_pathq:          newDtPathQueue(cfg.PathRequestsPerTick),
		m_grid:           NewDtProximityGrid(cfg.MaxAgents*4, cfg.MaxAgentRadius*3),
		m_halfExtents:    halfExtents,
		m_filter:         detour.NewDtQueryFilter(),
		m_maxAgentRadius: cfg.MaxAgentRadius,
		m_defaults:       cfg.Agent,
		m_navquery:       navquery,
		m_log:            logger.Log,
	}
	for i := range c.m_agents {
		c.m_agents[i] = &DtCrowdAgent{Corridor: NewDtPathCorridor(maxPathResult)}
	}
	return c
}

func (c *DtCrowd) SetLogger(log *zap.Logger) { c.m_log = logger.Or(log) }

// / Gets the filter used by the crowd.
func (c *DtCrowd) GetFilter() *detour.DtQueryFilter { return c.m_filter }

// / Gets the search halfExtents [(x, y, z)] used by the crowd for query operations.
func (c *DtCrowd) GetQueryHalfExtents() [3]float32 { return c.m_halfExtents }

func (c *DtCrowd) GetNavMeshQuery() *detour.DtNavMeshQuery { return c.m_navquery }

// / Gets the crowd's proximity grid.
func (c *DtCrowd) GetGrid() *DtProximityGrid { return c.m_grid }

// / The maximum number of agents that can be managed by the object.
func (c *DtCrowd) GetAgentCount() int { return c.m_maxAgents }

// ActiveAgentCount returns the number of live agents.
func (c *DtCrowd) ActiveAgentCount() int {
	n := 0
	for _, ag := range c.m_agents {
		if ag.Active {
			n++
		}
	}
	return n
}

// / Gets the specified agent from the pool, nil when idx is not a live agent.
func (c *DtCrowd) GetAgent(idx int) *DtCrowdAgent {
	if idx < 0 || idx >= len(c.m_agents) || !c.m_agents[idx].Active {
		return nil
	}
	return c.m_agents[idx]
}

// snap finds the polygon under pos and the point on it.
func (c *DtCrowd) snap(pos []float32) (detour.DtPolyRef, [3]float32) {
	var nearest [3]float32
	copy(nearest[:], pos)
	if c.m_navquery == nil {
		return 0, nearest
	}
	ref, pt, status := c.m_navquery.FindNearestPoly(pos, c.m_halfExtents[:], c.m_filter)
	if status.DtStatusFailed() || ref == 0 {
		return 0, nearest
	}
	return ref, pt
}

// / Adds a new agent to the crowd. Zero parameters take the crowd defaults.
// / Returns the index of the agent in the agent pool, or -1 when the pool is full.
func (c *DtCrowd) AddAgent(pos []float32, params DtCrowdAgentParams) int {
	// Find empty slot.
	idx := -1
	for i, ag := range c.m_agents {
		if !ag.Active {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.m_log.Debug("crowd full", zap.Int("max_agents", c.m_maxAgents))
		return -1
	}

	ag := c.m_agents[idx]
	corridor := ag.Corridor
	*ag = DtCrowdAgent{Corridor: corridor, Params: params.WithDefaults(c.m_defaults)}
	if ag.Params.Radius > c.m_maxAgentRadius {
		// The proximity grid is sized for m_maxAgentRadius.
		c.m_log.Warn("agent radius clamped",
			zap.Float32("radius", ag.Params.Radius), zap.Float32("max_agent_radius", c.m_maxAgentRadius))
		ag.Params.Radius = c.m_maxAgentRadius
	}

	// Find nearest position on navmesh and place the agent there.
	ref, nearest := c.snap(pos)
	ag.Corridor.Reset(ref, nearest[:])
	ag.Npos = nearest
	ag.State = DT_CROWDAGENT_STATE_IDLE
	ag.Active = true
	return idx
}

// / Removes the agent from the crowd.
func (c *DtCrowd) RemoveAgent(idx int) bool {
	ag := c.GetAgent(idx)
	if ag == nil {
		return false
	}
	if ag.queued {
		c.m_pathq.remove(idx)
	}
	ag.Active = false
	ag.queued = false
	ag.State = DT_CROWDAGENT_STATE_IDLE
	return true
}

// / Submits a new move request for the specified agent. The agent becomes
// / PathPending whatever its state; the path is planned during a later Update.
func (c *DtCrowd) RequestMoveTarget(idx int, pos []float32) bool {
	ag := c.GetAgent(idx)
	if ag == nil || len(pos) < 3 {
		return false
	}
	copy(ag.TargetPos[:], pos)
	ag.TargetRef = 0
	ag.Partial = false
	ag.State = DT_CROWDAGENT_STATE_PATH_PENDING
	if !ag.queued {
		ag.queued = true
		c.m_pathq.request(idx)
	}
	return true
}

// / Resets any request for the specified agent.
func (c *DtCrowd) ResetMoveTarget(idx int) bool {
	ag := c.GetAgent(idx)
	if ag == nil {
		return false
	}
	ag.TargetRef = 0
	ag.TargetPos = [3]float32{}
	ag.Partial = false
	ag.Corners = nil
	ag.Dvel = [3]float32{}
	ag.Corridor.Reset(ag.Corridor.GetFirstPoly(), ag.Npos[:])
	ag.State = DT_CROWDAGENT_STATE_IDLE
	return true
}

// SetNavQuery points the crowd at a new graph. Agents are snapped onto it and
// agents that were heading somewhere plan again.
func (c *DtCrowd) SetNavQuery(navquery *detour.DtNavMeshQuery) {
	c.m_navquery = navquery
	for idx, ag := range c.m_agents {
		if !ag.Active {
			continue
		}
		ref, nearest := c.snap(ag.Npos[:])
		ag.Corridor.Reset(ref, nearest[:])
		ag.Npos = nearest
		ag.Corners = nil
		switch ag.State {
		case DT_CROWDAGENT_STATE_MOVING, DT_CROWDAGENT_STATE_PATH_PENDING:
			c.RequestMoveTarget(idx, ag.TargetPos[:])
		}
	}
}

// planPath serves one queued move request.
func (c *DtCrowd) planPath(idx int) {
	ag := c.m_agents[idx]
	ag.queued = false
	if !ag.Active || ag.State != DT_CROWDAGENT_STATE_PATH_PENDING {
		return
	}
	fail := func(reason string) {
		c.m_log.Debug("agent target unreachable", zap.Int("agent", idx), zap.String("reason", reason))
		ag.Partial = true
		ag.Corridor.Reset(ag.Corridor.GetFirstPoly(), ag.Npos[:])
		ag.State = DT_CROWDAGENT_STATE_IDLE
	}

	startRef := ag.Corridor.GetFirstPoly()
	if startRef == 0 {
		ref, nearest := c.snap(ag.Npos[:])
		if ref == 0 {
			fail("agent off the navmesh")
			return
		}
		ag.Npos = nearest
		ag.Corridor.Reset(ref, nearest[:])
		startRef = ref
	}
	endRef, endPos := c.snap(ag.TargetPos[:])
	if endRef == 0 {
		fail("target off the navmesh")
		return
	}

	path, status := c.m_navquery.FindPath(startRef, endRef, ag.Npos[:], endPos[:], c.m_filter, maxPathResult)
	if status.DtStatusFailed() || len(path) == 0 {
		fail(status.String())
		return
	}
	target := endPos
	if path[len(path)-1] != endRef {
		// Partial path, aim at the closest reachable point.
		ag.Partial = true
		if closest, _, st := c.m_navquery.ClosestPointOnPoly(path[len(path)-1], endPos[:]); st.DtStatusSucceed() {
			target = closest
		}
	}
	ag.TargetRef = path[len(path)-1]
	ag.Corridor.SetCorridor(target[:], path)
	ag.State = DT_CROWDAGENT_STATE_MOVING
}

// checkPathValidity re-snaps agents whose polygons vanished and replans
// corridors that cross removed or filtered polygons.
func (c *DtCrowd) checkPathValidity(agents []*DtCrowdAgent) {
	nav := c.m_navquery.GetAttachedNavMesh()
	for _, ag := range agents {
		idx := c.getAgentIndex(ag)
		first := ag.Corridor.GetFirstPoly()
		if first == 0 || !ag.Corridor.IsValid(1, nav, c.m_filter) {
			// Current location is not valid, try to reposition.
			ref, nearest := c.snap(ag.Npos[:])
			ag.Corridor.Reset(ref, nearest[:])
			if ref != 0 {
				ag.Npos = nearest
			}
			if ag.State == DT_CROWDAGENT_STATE_MOVING {
				c.RequestMoveTarget(idx, ag.TargetPos[:])
			}
			continue
		}
		if ag.State == DT_CROWDAGENT_STATE_MOVING && !ag.Corridor.IsValid(maxCorridorLookAhead, nav, c.m_filter) {
			c.RequestMoveTarget(idx, ag.TargetPos[:])
		}
	}
}

func (c *DtCrowd) getAgentIndex(agent *DtCrowdAgent) int {
	for i, ag := range c.m_agents {
		if ag == agent {
			return i
		}
	}
	return -1
}

func (c *DtCrowd) getActiveAgents() []*DtCrowdAgent {
	c.m_activeAgents = c.m_activeAgents[:0]
	for _, ag := range c.m_agents {
		if ag.Active {
			c.m_activeAgents = append(c.m_activeAgents, ag)
		}
	}
	return c.m_activeAgents
}

func (c *DtCrowd) updateNeighbours(agents []*DtCrowdAgent) {
	c.m_grid.Clear()
	for i, ag := range agents {
		r := ag.Params.Radius
		c.m_grid.AddItem(i, ag.Npos[0]-r, ag.Npos[2]-r, ag.Npos[0]+r, ag.Npos[2]+r)
	}
	for i, ag := range agents {
		rng := ag.Params.CollisionQueryRange
		ids := c.m_grid.QueryItems(ag.Npos[0]-rng, ag.Npos[2]-rng, ag.Npos[0]+rng, ag.Npos[2]+rng, neighbourQueryCandidate)
		ag.Neis = ag.Neis[:0]
		for _, j := range ids {
			if j == i {
				continue
			}
			nei := agents[j]
			// Check for overlap.
			var diff [3]float32
			common.Vsub(diff[:], ag.Npos[:], nei.Npos[:])
			if common.Abs(diff[1]) >= (ag.Params.Height+nei.Params.Height)/2 {
				continue
			}
			diff[1] = 0
			distSqr := common.VlenSqr(diff[:])
			if distSqr > common.Sqr(rng) {
				continue
			}
			ag.Neis = append(ag.Neis, DtCrowdNeighbour{Idx: j, Dist: distSqr})
		}
		sort.Slice(ag.Neis, func(a, b int) bool { return ag.Neis[a].Dist < ag.Neis[b].Dist })
		if len(ag.Neis) > DT_CROWDAGENT_MAX_NEIGHBOURS {
			ag.Neis = ag.Neis[:DT_CROWDAGENT_MAX_NEIGHBOURS]
		}
	}
}

func calcSmoothSteerDirection(ag *DtCrowdAgent) (dir [3]float32) {
	if len(ag.Corners) == 0 {
		return dir
	}
	ip0 := 0
	ip1 := min(1, len(ag.Corners)-1)
	p0 := ag.Corners[ip0].Pos
	p1 := ag.Corners[ip1].Pos

	var dir0, dir1 [3]float32
	common.Vsub(dir0[:], p0[:], ag.Npos[:])
	common.Vsub(dir1[:], p1[:], ag.Npos[:])
	dir0[1] = 0
	dir1[1] = 0

	len0 := common.Vlen(dir0[:])
	len1 := common.Vlen(dir1[:])
	if len1 > 0.001 {
		common.Vscale(dir1[:], dir1[:], 1/len1)
	}
	dir[0] = dir0[0] - dir1[0]*len0*0.5
	dir[2] = dir0[2] - dir1[2]*len0*0.5
	common.Vnormalize(dir[:])
	return dir
}

func calcStraightSteerDirection(ag *DtCrowdAgent) (dir [3]float32) {
	if len(ag.Corners) == 0 {
		return dir
	}
	common.Vsub(dir[:], ag.Corners[0].Pos[:], ag.Npos[:])
	dir[1] = 0
	common.Vnormalize(dir[:])
	return dir
}

func getDistanceToGoal(ag *DtCrowdAgent, rng float32) float32 {
	if len(ag.Corners) == 0 {
		return rng
	}
	last := ag.Corners[len(ag.Corners)-1]
	if last.Flags&detour.DT_STRAIGHTPATH_END != 0 {
		return min(common.Vdist2D(ag.Npos[:], last.Pos[:]), rng)
	}
	return rng
}

// calcDesiredVelocity steers toward the next corner, slowing down near the goal.
func (c *DtCrowd) calcDesiredVelocity(ag *DtCrowdAgent) {
	ag.Dvel = [3]float32{}
	if ag.State != DT_CROWDAGENT_STATE_MOVING || len(ag.Corners) == 0 {
		ag.desiredSpeed = 0
		return
	}
	var dir [3]float32
	if ag.Params.UpdateFlags&DT_CROWD_ANTICIPATE_TURNS != 0 {
		dir = calcSmoothSteerDirection(ag)
	} else {
		dir = calcStraightSteerDirection(ag)
	}
	// Calculate speed scale, which tells the agent to slowdown at the end of the path.
	slowDownRadius := ag.Params.Radius * 2
	speedScale := getDistanceToGoal(ag, slowDownRadius) / slowDownRadius

	ag.desiredSpeed = ag.Params.MaxSpeed
	common.Vscale(ag.Dvel[:], dir[:], ag.desiredSpeed*speedScale)
}

// applySeparation pushes the desired velocity away from close neighbours.
func (c *DtCrowd) applySeparation(ag *DtCrowdAgent, agents []*DtCrowdAgent) {
	if ag.Params.UpdateFlags&DT_CROWD_SEPARATION == 0 || ag.Params.SeparationWeight <= 0 {
		return
	}
	separationDist := ag.Params.CollisionQueryRange
	invSeparationDist := 1 / separationDist
	separationWeight := ag.Params.SeparationWeight

	w := float32(0)
	var disp [3]float32
	for _, n := range ag.Neis {
		nei := agents[n.Idx]
		var diff [3]float32
		common.Vsub(diff[:], ag.Npos[:], nei.Npos[:])
		diff[1] = 0

		distSqr := common.VlenSqr(diff[:])
		if distSqr < 0.00001 || distSqr > common.Sqr(separationDist) {
			continue
		}
		dist := common.Sqrt(distSqr)
		weight := separationWeight * (1 - common.Sqr(dist*invSeparationDist))
		common.Vmad(disp[:], disp[:], diff[:], weight/dist)
		w += 1
	}

	if w > 0.0001 {
		// Adjust desired velocity.
		common.Vmad(ag.Dvel[:], ag.Dvel[:], disp[:], 1/w)
		// Clamp desired velocity to desired speed.
		speedSqr := common.VlenSqr(ag.Dvel[:])
		desiredSqr := common.Sqr(ag.desiredSpeed)
		if speedSqr > desiredSqr {
			if desiredSqr > 0 {
				common.Vscale(ag.Dvel[:], ag.Dvel[:], desiredSqr/speedSqr)
			} else {
				ag.Dvel = [3]float32{}
			}
		}
	}
}

// integrate moves the agent with its velocity limited by max acceleration.
func integrate(ag *DtCrowdAgent, dt float32) {
	// Fake dynamic constraint.
	maxDelta := ag.Params.MaxAcceleration * dt
	var dv [3]float32
	common.Vsub(dv[:], ag.Nvel[:], ag.Vel[:])
	ds := common.Vlen(dv[:])
	if ds > maxDelta {
		common.Vscale(dv[:], dv[:], maxDelta/ds)
	}
	common.Vadd(ag.Vel[:], ag.Vel[:], dv[:])

	// Integrate
	if common.Vlen(ag.Vel[:]) > 0.0001 {
		common.Vmad(ag.Npos[:], ag.Npos[:], ag.Vel[:], dt)
	} else {
		ag.Vel = [3]float32{}
	}
}

// resolveCollisions separates overlapping agents in a few relaxation passes.
func resolveCollisions(agents []*DtCrowdAgent) {
	for iter := 0; iter < maxCollisionIterations; iter++ {
		for i, ag := range agents {
			ag.Disp = [3]float32{}
			w := float32(0)
			for _, n := range ag.Neis {
				nei := agents[n.Idx]
				var diff [3]float32
				common.Vsub(diff[:], ag.Npos[:], nei.Npos[:])
				diff[1] = 0

				dist := common.VlenSqr(diff[:])
				if dist > common.Sqr(ag.Params.Radius+nei.Params.Radius) {
					continue
				}
				dist = common.Sqrt(dist)
				pen := (ag.Params.Radius + nei.Params.Radius) - dist
				if dist < 0.0001 {
					// Agents on top of each other, try to choose diverging separation directions.
					if i > n.Idx {
						diff = [3]float32{-ag.Dvel[2], 0, ag.Dvel[0]}
					} else {
						diff = [3]float32{ag.Dvel[2], 0, -ag.Dvel[0]}
					}
					if common.VlenSqr(diff[:]) < 0.0001 {
						// Standing still, split along x by index.
						diff = [3]float32{1, 0, 0}
						if i < n.Idx {
							diff[0] = -1
						}
					}
					pen = 0.01
				} else {
					pen = (1 / dist) * (pen * 0.5) * collisionResolveFactor
				}
				common.Vmad(ag.Disp[:], ag.Disp[:], diff[:], pen)
				w += 1
			}
			if w > 0.0001 {
				common.Vscale(ag.Disp[:], ag.Disp[:], 1/w)
			}
		}
		for _, ag := range agents {
			common.Vadd(ag.Npos[:], ag.Npos[:], ag.Disp[:])
		}
	}
}

// / Updates the steering and positions of all agents.
// / dt is the time, in seconds, to update the simulation.
func (c *DtCrowd) Update(dt float32) {
	agents := c.getActiveAgents()
	if len(agents) == 0 || dt <= 0 {
		return
	}

	if c.m_navquery != nil {
		// Check that all agents still have valid paths.
		c.checkPathValidity(agents)
		// Update async move request and path finder.
		for _, idx := range c.m_pathq.serve() {
			c.planPath(idx)
		}
	}

	// Register agents to proximity grid and get nearby agents.
	c.updateNeighbours(agents)

	// Find next corner to steer to.
	for _, ag := range agents {
		ag.Corners = ag.Corners[:0]
		if ag.State == DT_CROWDAGENT_STATE_MOVING && c.m_navquery != nil {
			ag.Corners = ag.Corridor.FindCorners(c.m_navquery, DT_CROWDAGENT_MAX_CORNERS)
		}
	}

	// Calculate steering.
	for _, ag := range agents {
		c.calcDesiredVelocity(ag)
		if ag.State == DT_CROWDAGENT_STATE_MOVING {
			c.applySeparation(ag, agents)
		}
		ag.Nvel = ag.Dvel
	}

	// Integrate. Idle and arrived agents have no desired velocity, so their
	// velocity decays at the acceleration limit.
	for _, ag := range agents {
		integrate(ag, dt)
	}

	// Handle collisions.
	resolveCollisions(agents)

	// Move along navmesh.
	for _, ag := range agents {
		if c.m_navquery != nil && ag.Corridor.MovePosition(ag.Npos[:], c.m_navquery, c.m_filter) {
			// Get valid constrained position back.
			ag.Npos = ag.Corridor.GetPos()
		}
	}

	// Check arrival.
	for _, ag := range agents {
		if ag.State != DT_CROWDAGENT_STATE_MOVING {
			continue
		}
		target := ag.Corridor.GetTarget()
		if common.Vdist2D(ag.Npos[:], target[:]) <= ag.Params.ArrivalRadius {
			ag.State = DT_CROWDAGENT_STATE_ARRIVED
			ag.Corners = nil
		}
	}
}

// PendingRequests returns the number of move requests waiting to be planned.
func (c *DtCrowd) PendingRequests() int { return c.m_pathq.pending() }
