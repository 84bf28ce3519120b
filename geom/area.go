package geom

// Area tags a triangle (and later a polygon) with a surface type. Zero is the
// unwalkable area; walkable areas fit in six bits.
type Area uint8

const (
	AreaNull Area = iota
	AreaGround
	AreaWater
	AreaRoad
	AreaDoor
	AreaGrass
	AreaJump

	// AreaWalkable is the generic walkable marker; polygons carrying it are
	// reported as ground.
	AreaWalkable Area = 63
)

func (a Area) String() string {
	switch a {
	case AreaNull:
		return "null"
	case AreaGround, AreaWalkable:
		return "ground"
	case AreaWater:
		return "water"
	case AreaRoad:
		return "road"
	case AreaDoor:
		return "door"
	case AreaGrass:
		return "grass"
	case AreaJump:
		return "jump"
	}
	return "unknown"
}

// PolyFlags are the traversal abilities a polygon requires.
type PolyFlags uint16

const (
	FlagWalk     PolyFlags = 0x01 // Ability to walk (ground, grass, road)
	FlagSwim     PolyFlags = 0x02 // Ability to swim (water).
	FlagDoor     PolyFlags = 0x04 // Ability to move through doors.
	FlagJump     PolyFlags = 0x08 // Ability to jump.
	FlagDisabled PolyFlags = 0x10 // Disabled polygon
	FlagAll      PolyFlags = 0xffff
)

// AreaFlags returns the abilities needed to traverse a polygon of area a.
func AreaFlags(a Area) PolyFlags {
	switch a {
	case AreaGround, AreaGrass, AreaRoad, AreaWalkable:
		return FlagWalk
	case AreaWater:
		return FlagSwim
	case AreaDoor:
		return FlagWalk | FlagDoor
	case AreaJump:
		return FlagJump
	}
	return 0
}

// DefaultAreaCost is the traversal cost multiplier applied per area.
func DefaultAreaCost(a Area) float32 {
	switch a {
	case AreaWater:
		return 10
	case AreaGrass:
		return 2
	case AreaJump:
		return 1.5
	}
	return 1
}

// NormalizeArea folds the generic walkable marker into ground.
func NormalizeArea(a Area) Area {
	if a == AreaWalkable {
		return AreaGround
	}
	return a
}
