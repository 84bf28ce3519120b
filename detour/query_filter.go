package detour

import (
	"github.com/gorustyt/irrnav/common"
	"github.com/gorustyt/irrnav/geom"
)

// / Defines polygon filtering and traversal costs for navigation mesh query operations.
// / Polygons pass when they carry one of the include flags and none of the
// / exclude flags.
type DtQueryFilter struct {
	m_areaCost     [DT_MAX_AREAS]float32 ///< Cost per area type.
	m_includeFlags uint16                ///< Flags for polygons that can be visited.
	m_excludeFlags uint16                ///< Flags for polygons that should not be visited.
}

// NewDtQueryFilter returns a filter that accepts every polygon not flagged
// disabled, with the default area costs.
func NewDtQueryFilter() *DtQueryFilter {
	f := &DtQueryFilter{
		m_includeFlags: uint16(geom.FlagAll),
		m_excludeFlags: uint16(geom.FlagDisabled),
	}
	for i := range f.m_areaCost {
		f.m_areaCost[i] = geom.DefaultAreaCost(geom.Area(i))
	}
	return f
}

// / Returns the traversal cost of the area.
func (filter *DtQueryFilter) GetAreaCost(i int) float32 { return filter.m_areaCost[i] }

// / Sets the traversal cost of the area.
func (filter *DtQueryFilter) SetAreaCost(i int, cost float32) { filter.m_areaCost[i] = cost }

func (filter *DtQueryFilter) GetIncludeFlags() uint16      { return filter.m_includeFlags }
func (filter *DtQueryFilter) SetIncludeFlags(flags uint16) { filter.m_includeFlags = flags }
func (filter *DtQueryFilter) GetExcludeFlags() uint16      { return filter.m_excludeFlags }
func (filter *DtQueryFilter) SetExcludeFlags(flags uint16) { filter.m_excludeFlags = flags }

func (filter *DtQueryFilter) getCost(pa, pb []float32, curPoly *DtPoly) float32 {
	return common.Vdist(pa, pb) * filter.m_areaCost[curPoly.Area]
}

func (filter *DtQueryFilter) PassFilter(poly *DtPoly) bool {
	return (poly.Flags&filter.m_includeFlags) != 0 && (poly.Flags&filter.m_excludeFlags) == 0
}
