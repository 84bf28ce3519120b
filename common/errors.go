package common

import "errors"

var (
	// ErrInput reports geometry the adapter cannot read: unknown vertex
	// formats, zero triangles, nil meshes or invalid configuration.
	ErrInput = errors.New("navmesh: invalid input")
	// ErrAllocation reports that a working set exceeded the limits of the
	// compact representations (grid size, vertex or region id ranges).
	ErrAllocation = errors.New("navmesh: allocation failure")
	// ErrDegenerateGeometry reports a stage that produced nothing usable.
	ErrDegenerateGeometry = errors.New("navmesh: degenerate geometry")
	// ErrAgentCapacity reports a full agent table.
	ErrAgentCapacity = errors.New("navmesh: agent capacity reached")
	// ErrUnknownAgent reports an agent id that is not live.
	ErrUnknownAgent = errors.New("navmesh: unknown agent id")
	// ErrNoNavMesh reports an operation that needs a built graph.
	ErrNoNavMesh = errors.New("navmesh: no navigation graph")
)
