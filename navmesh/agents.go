package navmesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorustyt/irrnav/debug_utils"
	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/detour_crowd"
	"go.uber.org/zap"
)

// AgentProxy is the visual node an agent drives. The crowd reads its
// position once when the agent is added and pushes positions every update.
type AgentProxy interface {
	Position() mgl32.Vec3
	SetPosition(pos mgl32.Vec3)
}

// AgentParams are the steering parameters of one agent. Zero fields take the
// crowd defaults.
type AgentParams = detour_crowd.DtCrowdAgentParams

// AgentPath is the polyline an agent is about to follow: its position then
// its next corners.
type AgentPath struct {
	ID     int
	Radius float32
	Points []mgl32.Vec3
}

// syncCrowd points the crowd at the current graph after a swap.
func (c *core) syncCrowd() {
	g := c.graph.Load()
	if g == c.crowdGraph {
		return
	}
	c.crowdGraph = g
	var q *detour.DtNavMeshQuery
	if g != nil {
		q = detour.NewDtNavMeshQuery(g.nav, c.cfg.Query.MaxNodes)
	}
	c.crowd.SetNavQuery(q)
	c.log.Debug("crowd switched graph", zap.Int("agents", c.crowd.ActiveAgentCount()))
}

// AddAgent adds an agent at the proxy's position. It returns the agent id or
// -1 when the crowd is full.
func (c *core) AddAgent(proxy AgentProxy, radius, height float32) int {
	return c.AddAgentWithParams(proxy, AgentParams{Radius: radius, Height: height})
}

// AddAgentWithParams adds an agent with explicit steering parameters.
func (c *core) AddAgentWithParams(proxy AgentProxy, params AgentParams) int {
	if proxy == nil {
		c.log.Warn("add agent: nil proxy")
		return -1
	}
	c.syncCrowd()
	pos := proxy.Position()
	id := c.crowd.AddAgent(pos[:], params)
	if id < 0 {
		c.log.Warn("add agent: crowd full", zap.Int("max_agents", c.cfg.Crowd.MaxAgents))
		return -1
	}
	c.proxies[id] = proxy
	proxy.SetPosition(c.crowd.GetAgent(id).Npos)
	return id
}

// RemoveAgent removes the agent; unknown ids are ignored.
func (c *core) RemoveAgent(id int) bool {
	delete(c.proxies, id)
	return c.crowd.RemoveAgent(id)
}

// SetAgentTarget asks the agent to move to pos. The path is planned during
// the next update.
func (c *core) SetAgentTarget(id int, pos mgl32.Vec3) bool {
	c.syncCrowd()
	if !c.crowd.RequestMoveTarget(id, pos[:]) {
		c.log.Debug("set target: unknown agent", zap.Int("agent", id))
		return false
	}
	return true
}

// GetAgentVelocity returns the agent velocity, zero for unknown ids.
func (c *core) GetAgentVelocity(id int) mgl32.Vec3 {
	if ag := c.crowd.GetAgent(id); ag != nil {
		return ag.Vel
	}
	return mgl32.Vec3{}
}

// GetAgentCurrentTarget returns the requested target, zero for unknown ids
// and agents without a target.
func (c *core) GetAgentCurrentTarget(id int) mgl32.Vec3 {
	if ag := c.crowd.GetAgent(id); ag != nil {
		return ag.TargetPos
	}
	return mgl32.Vec3{}
}

// GetAgentPosition returns the agent position, zero for unknown ids.
func (c *core) GetAgentPosition(id int) mgl32.Vec3 {
	if ag := c.crowd.GetAgent(id); ag != nil {
		return ag.Npos
	}
	return mgl32.Vec3{}
}

// HasAgentReachedDestination reports whether the agent stands within its
// arrival radius of the requested target.
func (c *core) HasAgentReachedDestination(id int) bool {
	ag := c.crowd.GetAgent(id)
	return ag != nil && ag.State == detour_crowd.DT_CROWDAGENT_STATE_ARRIVED && !ag.Partial
}

// AgentCount returns the number of live agents.
func (c *core) AgentCount() int { return c.crowd.ActiveAgentCount() }

// Crowd exposes the crowd simulator.
func (c *core) Crowd() *detour_crowd.DtCrowd { return c.crowd }

// Update advances the crowd by dt seconds and moves the proxies.
func (c *core) Update(dt float32) {
	c.syncCrowd()
	c.crowd.Update(dt)
	for id, proxy := range c.proxies {
		if ag := c.crowd.GetAgent(id); ag != nil {
			proxy.SetPosition(ag.Npos)
		}
	}
}

// Animate updates the crowd from a frame clock in milliseconds. The first
// call only records the time.
func (c *core) Animate(timeMs int64) {
	if !c.animated {
		c.animated = true
		c.lastTimeMs = timeMs
		return
	}
	dt := float32(timeMs-c.lastTimeMs) / 1000
	c.lastTimeMs = timeMs
	if dt > 0 {
		c.Update(dt)
	}
}

// AgentPaths returns the upcoming path of every moving agent.
func (c *core) AgentPaths() []AgentPath {
	var res []AgentPath
	for id := 0; id < c.crowd.GetAgentCount(); id++ {
		ag := c.crowd.GetAgent(id)
		if ag == nil || ag.State != detour_crowd.DT_CROWDAGENT_STATE_MOVING {
			continue
		}
		p := AgentPath{ID: id, Radius: ag.Params.Radius, Points: []mgl32.Vec3{ag.Npos}}
		for _, corner := range ag.Corners {
			p.Points = append(p.Points, corner.Pos)
		}
		res = append(res, p)
	}
	return res
}

// RenderAgentPaths draws AgentPaths into dd.
func (c *core) RenderAgentPaths(dd debug_utils.DuDebugDraw) {
	for _, p := range c.AgentPaths() {
		debug_utils.DuDebugDrawAgentPath(dd, p.Points, p.Radius, debug_utils.DuIntToCol(p.ID, 220))
	}
}
