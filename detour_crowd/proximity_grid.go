package detour_crowd

import (
	"math"

	"github.com/gorustyt/irrnav/common"
)

type item struct {
	id   int
	x, y int
	next int
}

// DtProximityGrid is a spatial hash of agent bounds on the xz-plane. Items
// are rebuilt every tick, so removal is not supported.
type DtProximityGrid struct {
	m_cellSize    float32
	m_invCellSize float32
	m_pool        []item
	m_poolSize    int

	m_buckets []int

	m_bounds [4]int
}

func (d *DtProximityGrid) GetBounds() [4]int    { return d.m_bounds }
func (d *DtProximityGrid) GetCellSize() float32 { return d.m_cellSize }

func hashPos2(x, y, n int) int {
	return ((x * 73856093) ^ (y * 19349663)) & (n - 1)
}

// NewDtProximityGrid returns a grid holding at most poolSize cell entries.
func NewDtProximityGrid(poolSize int, cellSize float32) *DtProximityGrid {
	poolSize = max(poolSize, 1)
	d := &DtProximityGrid{
		m_cellSize:    cellSize,
		m_invCellSize: 1 / cellSize,
		m_poolSize:    poolSize,
		m_pool:        make([]item, 0, poolSize),
		m_buckets:     make([]int, common.NextPow2(uint32(poolSize))),
	}
	d.Clear()
	return d
}

func (d *DtProximityGrid) Clear() {
	for i := range d.m_buckets {
		d.m_buckets[i] = -1
	}
	d.m_pool = d.m_pool[:0]
	d.m_bounds = [4]int{math.MaxInt32, math.MaxInt32, math.MinInt32, math.MinInt32}
}

func (d *DtProximityGrid) cell(v float32) int {
	return int(math.Floor(float64(v * d.m_invCellSize)))
}

func (d *DtProximityGrid) AddItem(id int, minx, miny, maxx, maxy float32) {
	iminx, iminy := d.cell(minx), d.cell(miny)
	imaxx, imaxy := d.cell(maxx), d.cell(maxy)

	d.m_bounds[0] = min(d.m_bounds[0], iminx)
	d.m_bounds[1] = min(d.m_bounds[1], iminy)
	d.m_bounds[2] = max(d.m_bounds[2], imaxx)
	d.m_bounds[3] = max(d.m_bounds[3], imaxy)

	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			if len(d.m_pool) >= d.m_poolSize {
				return
			}
			h := hashPos2(x, y, len(d.m_buckets))
			d.m_pool = append(d.m_pool, item{id: id, x: x, y: y, next: d.m_buckets[h]})
			d.m_buckets[h] = len(d.m_pool) - 1
		}
	}
}

// QueryItems returns the distinct ids of items overlapping the rectangle, at
// most maxIds of them.
func (d *DtProximityGrid) QueryItems(minx, miny, maxx, maxy float32, maxIds int) []int {
	iminx, iminy := d.cell(minx), d.cell(miny)
	imaxx, imaxy := d.cell(maxx), d.cell(maxy)

	var ids []int
	for y := iminy; y <= imaxy; y++ {
		for x := iminx; x <= imaxx; x++ {
			h := hashPos2(x, y, len(d.m_buckets))
			for idx := d.m_buckets[h]; idx != -1; idx = d.m_pool[idx].next {
				it := &d.m_pool[idx]
				if it.x != x || it.y != y {
					continue
				}
				// Check if the id exists already.
				found := false
				for _, id := range ids {
					if id == it.id {
						found = true
						break
					}
				}
				if found {
					continue
				}
				if len(ids) >= maxIds {
					return ids
				}
				ids = append(ids, it.id)
			}
		}
	}
	return ids
}

func (d *DtProximityGrid) GetItemCountAt(x, y int) int {
	n := 0
	h := hashPos2(x, y, len(d.m_buckets))
	for idx := d.m_buckets[h]; idx != -1; idx = d.m_pool[idx].next {
		if d.m_pool[idx].x == x && d.m_pool[idx].y == y {
			n++
		}
	}
	return n
}
