package detour_crowd

import (
	"testing"

	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/config"
	"github.com/gorustyt/irrnav/detour"
	"github.com/gorustyt/irrnav/geom"
	"github.com/gorustyt/irrnav/recast"
)

func assertTrue(t *testing.T, value bool, msg string) {
	t.Helper()
	if !value {
		t.Error(msg)
	}
}

var halfExtents = [3]float32{2, 8, 2}

func navQuery(t *testing.T, buffers ...*geom.TriBuffer) *detour.DtNavMeshQuery {
	t.Helper()
	g, err := geom.Flatten(geom.NewTriMesh(buffers...))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	cfg := recast.NewRcConfig(config.DefaultBuildConfig(), g.Bmin, g.Bmax)
	res, err := recast.BuildSolo(recast.NewRcContext(nil), cfg, g)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	nav, _, status := detour.NewDtNavMesh(res.Data)
	if status.DtStatusFailed() {
		t.Fatalf("init navmesh: %s", status)
	}
	return detour.NewDtNavMeshQuery(nav, 2048)
}

func crowdConfig(maxAgents int) config.CrowdConfig {
	cfg := config.DefaultCrowdConfig()
	cfg.MaxAgents = maxAgents
	return cfg
}

func run(c *DtCrowd, ticks int) {
	for i := 0; i < ticks; i++ {
		c.Update(1.0 / 30)
	}
}

func TestMergeCorridorStartMoved(t *testing.T) {
	equal := func(a, b []detour.DtPolyRef) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	path := []detour.DtPolyRef{1, 2, 3, 4}
	assertTrue(t, equal(DtMergeCorridorStartMoved(path, 256, []detour.DtPolyRef{1, 2}), []detour.DtPolyRef{2, 3, 4}), "moved forward along the corridor")
	assertTrue(t, equal(DtMergeCorridorStartMoved(path, 256, []detour.DtPolyRef{1, 5}), []detour.DtPolyRef{5, 1, 2, 3, 4}), "stepped off the corridor")
	assertTrue(t, equal(DtMergeCorridorStartMoved(path, 256, []detour.DtPolyRef{9}), path), "no common polygon keeps the path")
	assertTrue(t, equal(DtMergeCorridorStartMoved(path, 2, []detour.DtPolyRef{1, 5}), []detour.DtPolyRef{5, 1}), "truncated to max path")
}

func TestProximityGrid(t *testing.T) {
	g := NewDtProximityGrid(64, 1)
	g.AddItem(1, 0.1, 0.1, 0.9, 0.9)
	g.AddItem(2, 0.5, 0.5, 1.5, 1.5)
	g.AddItem(3, 10, 10, 11, 11)

	ids := g.QueryItems(0, 0, 1, 1, 8)
	assertTrue(t, len(ids) == 2, "two items near the origin")
	for _, id := range ids {
		assertTrue(t, id != 3, "far item not returned")
	}
	assertTrue(t, len(g.QueryItems(0, 0, 20, 20, 1)) == 1, "max ids respected")
	assertTrue(t, g.GetItemCountAt(1, 1) == 1, "item 2 spans cell (1,1)")
	assertTrue(t, g.GetBounds() == [4]int{0, 0, 11, 11}, "bounds cover all items")

	g.Clear()
	assertTrue(t, len(g.QueryItems(0, 0, 20, 20, 8)) == 0, "cleared")
}

func TestAgentCapacity(t *testing.T) {
	c := NewDtCrowd(crowdConfig(3), halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	for i := 0; i < 3; i++ {
		assertTrue(t, c.AddAgent([]float32{float32(i*2 - 2), 0, 0}, DtCrowdAgentParams{}) == i, "slot assigned")
	}
	assertTrue(t, c.AddAgent([]float32{0, 0, 4}, DtCrowdAgentParams{}) == -1, "full crowd rejects agent")
	assertTrue(t, c.ActiveAgentCount() == 3, "three active")

	assertTrue(t, c.RemoveAgent(1), "removed")
	assertTrue(t, c.GetAgent(1) == nil, "removed agent gone")
	assertTrue(t, !c.RemoveAgent(1), "double remove fails")
	assertTrue(t, c.AddAgent([]float32{0, 0, 4}, DtCrowdAgentParams{}) == 1, "freed slot reused")
}

func TestAgentDefaults(t *testing.T) {
	c := NewDtCrowd(crowdConfig(1), halfExtents, nil)
	idx := c.AddAgent([]float32{0, 0, 0}, DtCrowdAgentParams{Radius: 0.5})
	ag := c.GetAgent(idx)
	assertTrue(t, ag != nil, "agent without a graph")
	assertTrue(t, ag.Params.Radius == 0.5, "explicit radius kept")
	assertTrue(t, ag.Params.MaxSpeed == 3.5, "default speed")
	assertTrue(t, common.Abs(ag.Params.CollisionQueryRange-6) < 1e-4, "query range scales with radius")
	assertTrue(t, common.Abs(ag.Params.ArrivalRadius-0.5) < 1e-4, "arrival radius scales with radius")
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_IDLE, "new agents idle")
}

func TestAgentArrives(t *testing.T) {
	c := NewDtCrowd(crowdConfig(4), halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	idx := c.AddAgent([]float32{-5, 0, -5}, DtCrowdAgentParams{})
	assertTrue(t, c.GetAgent(idx).Corridor.GetFirstPoly() != 0, "snapped onto the mesh")
	assertTrue(t, c.RequestMoveTarget(idx, []float32{5, 0, 5}), "request accepted")
	assertTrue(t, c.GetAgent(idx).State == DT_CROWDAGENT_STATE_PATH_PENDING, "pending until update")

	c.Update(1.0 / 30)
	ag := c.GetAgent(idx)
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_MOVING, "planned on first update")
	assertTrue(t, common.VlenSqr(ag.Vel[:]) > 0, "started moving")

	run(c, 600)
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_ARRIVED, "arrived: "+ag.State.String())
	assertTrue(t, !ag.Partial, "full path")
	target := []float32{5, 0, 5}
	assertTrue(t, common.Vdist2D(ag.Npos[:], target) <= ag.Params.ArrivalRadius, "within arrival radius")

	run(c, 120)
	assertTrue(t, common.Vlen(ag.Vel[:]) < 0.01, "velocity decays once arrived")
}

func TestPartialTarget(t *testing.T) {
	c := NewDtCrowd(crowdConfig(4), halfExtents, navQuery(t, geom.Plane(-10, -10, -2, 10, 0), geom.Plane(2, -10, 10, 10, 0)))
	idx := c.AddAgent([]float32{-6, 0, 0}, DtCrowdAgentParams{})
	c.RequestMoveTarget(idx, []float32{6, 0, 0})
	run(c, 300)
	ag := c.GetAgent(idx)
	assertTrue(t, ag.Partial, "other island is unreachable")
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_ARRIVED, "walked to the closest point: "+ag.State.String())
	assertTrue(t, ag.Npos[0] < -1.5, "stayed on the left island")

	c.RequestMoveTarget(idx, []float32{100, 0, 100})
	c.Update(1.0 / 30)
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_IDLE, "target off the mesh leaves the agent idle")
}

func TestAgentsSeparate(t *testing.T) {
	c := NewDtCrowd(crowdConfig(4), halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	a := c.AddAgent([]float32{0, 0, 0}, DtCrowdAgentParams{})
	b := c.AddAgent([]float32{0.4, 0, 0}, DtCrowdAgentParams{})
	run(c, 60)
	pa, pb := c.GetAgent(a).Npos, c.GetAgent(b).Npos
	assertTrue(t, common.Vdist2D(pa[:], pb[:]) > 1.0, "overlapping agents pushed apart")
	assertTrue(t, pa[0] < pb[0], "agents keep their side")
}

func TestSetNavQuery(t *testing.T) {
	c := NewDtCrowd(crowdConfig(4), halfExtents, nil)
	idx := c.AddAgent([]float32{-5, 0, 0}, DtCrowdAgentParams{})
	assertTrue(t, c.GetAgent(idx).Corridor.GetFirstPoly() == 0, "no graph, no polygon")
	c.RequestMoveTarget(idx, []float32{5, 0, 0})
	c.Update(1.0 / 30)
	assertTrue(t, c.GetAgent(idx).State == DT_CROWDAGENT_STATE_PATH_PENDING, "waits for a graph")
	assertTrue(t, c.PendingRequests() == 1, "request kept once")

	c.SetNavQuery(navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	assertTrue(t, c.PendingRequests() == 1, "request not duplicated")
	assertTrue(t, c.GetAgent(idx).Corridor.GetFirstPoly() != 0, "snapped onto the new graph")
	c.Update(1.0 / 30)
	assertTrue(t, c.GetAgent(idx).State == DT_CROWDAGENT_STATE_MOVING, "planned after the swap")
}

func TestResetMoveTarget(t *testing.T) {
	c := NewDtCrowd(crowdConfig(2), halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	idx := c.AddAgent([]float32{-5, 0, 0}, DtCrowdAgentParams{})
	c.RequestMoveTarget(idx, []float32{5, 0, 0})
	run(c, 10)
	assertTrue(t, c.ResetMoveTarget(idx), "reset")
	ag := c.GetAgent(idx)
	assertTrue(t, ag.State == DT_CROWDAGENT_STATE_IDLE, "idle after reset")
	assertTrue(t, ag.Corridor.GetPathCount() == 1, "corridor collapsed to the current polygon")
}

func TestRemoveAgentDropsRequest(t *testing.T) {
	cfg := crowdConfig(2)
	cfg.PathRequestsPerTick = 1
	c := NewDtCrowd(cfg, halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	a := c.AddAgent([]float32{-5, 0, -5}, DtCrowdAgentParams{})
	b := c.AddAgent([]float32{-5, 0, 5}, DtCrowdAgentParams{})
	c.RequestMoveTarget(a, []float32{5, 0, -5})
	c.RequestMoveTarget(b, []float32{5, 0, 5})
	assertTrue(t, c.PendingRequests() == 2, "both queued")

	assertTrue(t, c.RemoveAgent(a), "removed")
	assertTrue(t, c.PendingRequests() == 1, "request of the removed agent dropped")
	c.Update(1.0 / 30)
	assertTrue(t, c.GetAgent(b).State == DT_CROWDAGENT_STATE_MOVING, "next agent served on the first tick")

	a = c.AddAgent([]float32{-5, 0, -5}, DtCrowdAgentParams{})
	c.RequestMoveTarget(a, []float32{5, 0, -5})
	assertTrue(t, c.PendingRequests() == 1, "reused slot queued once")
	c.Update(1.0 / 30)
	assertTrue(t, c.GetAgent(a).State == DT_CROWDAGENT_STATE_MOVING, "reused slot planned")
}

func TestAgentRadiusClamped(t *testing.T) {
	cfg := crowdConfig(2)
	cfg.MaxAgentRadius = 0.6
	c := NewDtCrowd(cfg, halfExtents, navQuery(t, geom.Plane(-10, -10, 10, 10, 0)))
	big := c.AddAgent([]float32{0, 0, 0}, DtCrowdAgentParams{Radius: 5})
	small := c.AddAgent([]float32{3, 0, 0}, DtCrowdAgentParams{Radius: 0.4})
	assertTrue(t, c.GetAgent(big).Params.Radius == 0.6, "radius clamped to the crowd maximum")
	assertTrue(t, c.GetAgent(small).Params.Radius == 0.4, "smaller radius kept")

	c.RequestMoveTarget(small, []float32{-3, 0, 0})
	run(c, 300)
	pb, ps := c.GetAgent(big).Npos, c.GetAgent(small).Npos
	assertTrue(t, common.Vdist2D(pb[:], ps[:]) > 0.8, "agents kept apart")
}
