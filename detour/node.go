package detour

import (
	"container/heap"
)

const (
	DT_NODE_OPEN   = 0x01
	DT_NODE_CLOSED = 0x02
)

const (
	DT_NODE_STATE_BITS     = 2
	DT_MAX_STATES_PER_NODE = 1 << DT_NODE_STATE_BITS // number of extra states per node. See DtNode::State
)

type DtNode struct {
	Pos   [3]float32 ///< Position of the node.
	Cost  float32    ///< Cost from previous node to current node.
	Total float32    ///< Cost up to the node.
	Pidx  uint32     ///< Index to parent node, 0 is none.
	State uint32     ///< extra state information. A polyRef can have multiple nodes with different extra info.
	Flags uint32     ///< Node flags. A combination of DT_NODE_OPEN and DT_NODE_CLOSED.
	Id    DtPolyRef  ///< Polygon ref the node corresponds to.

	index int // position in the open list heap
}

type nodeKey struct {
	id    DtPolyRef
	state uint32
}

// DtNodePool hands out search nodes keyed by (poly ref, state), up to a fixed
// budget. Node indices are 1-based so that 0 can mean "no parent".
type DtNodePool struct {
	m_nodes    []*DtNode
	m_lookup   map[nodeKey]uint32
	m_maxNodes int
}

func NewDtNodePool(maxNodes int) *DtNodePool {
	return &DtNodePool{
		m_nodes:    make([]*DtNode, 0, min(maxNodes, 256)),
		m_lookup:   make(map[nodeKey]uint32, min(maxNodes, 256)),
		m_maxNodes: maxNodes,
	}
}

func (p *DtNodePool) Clear() {
	p.m_nodes = p.m_nodes[:0]
	clear(p.m_lookup)
}

func (p *DtNodePool) GetMaxNodes() int  { return p.m_maxNodes }
func (p *DtNodePool) GetNodeCount() int { return len(p.m_nodes) }

func (p *DtNodePool) GetNodeIdx(node *DtNode) uint32 {
	if node == nil {
		return 0
	}
	return p.m_lookup[nodeKey{node.Id, node.State}]
}

func (p *DtNodePool) GetNodeAtIdx(idx uint32) *DtNode {
	if idx == 0 || int(idx) > len(p.m_nodes) {
		return nil
	}
	return p.m_nodes[idx-1]
}

// GetNode returns the node for (id, state), allocating it when missing. It
// returns nil once the pool is exhausted.
func (p *DtNodePool) GetNode(id DtPolyRef, state uint32) *DtNode {
	key := nodeKey{id, state}
	if i, ok := p.m_lookup[key]; ok {
		return p.m_nodes[i-1]
	}
	if len(p.m_nodes) >= p.m_maxNodes {
		return nil
	}
	node := &DtNode{Id: id, State: state, index: -1}
	p.m_nodes = append(p.m_nodes, node)
	p.m_lookup[key] = uint32(len(p.m_nodes))
	return node
}

func (p *DtNodePool) FindNode(id DtPolyRef, state uint32) *DtNode {
	if i, ok := p.m_lookup[nodeKey{id, state}]; ok {
		return p.m_nodes[i-1]
	}
	return nil
}

// FindNodes returns every node of id, one per state.
func (p *DtNodePool) FindNodes(id DtPolyRef) []*DtNode {
	var nodes []*DtNode
	for s := uint32(0); s < DT_MAX_STATES_PER_NODE; s++ {
		if n := p.FindNode(id, s); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// DtNodeQueue is the open list: a min-heap on DtNode.Total.
type DtNodeQueue struct {
	data []*DtNode
}

func NewDtNodeQueue() *DtNodeQueue { return &DtNodeQueue{} }

func (q *DtNodeQueue) Reset() {
	for _, n := range q.data {
		n.index = -1
	}
	q.data = q.data[:0]
}

func (q *DtNodeQueue) Empty() bool       { return len(q.data) == 0 }
func (q *DtNodeQueue) Top() *DtNode      { return q.data[0] }
func (q *DtNodeQueue) Push(node *DtNode) { heap.Push((*nodeHeap)(q), node) }
func (q *DtNodeQueue) Pop() *DtNode      { return heap.Pop((*nodeHeap)(q)).(*DtNode) }

// Modify restores heap order after node.Total decreased.
func (q *DtNodeQueue) Modify(node *DtNode) {
	if node.index >= 0 && node.index < len(q.data) && q.data[node.index] == node {
		heap.Fix((*nodeHeap)(q), node.index)
	}
}

type nodeHeap DtNodeQueue

func (h *nodeHeap) Len() int           { return len(h.data) }
func (h *nodeHeap) Less(i, j int) bool { return h.data[i].Total < h.data[j].Total }
func (h *nodeHeap) Swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	h.data[i].index = i
	h.data[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*DtNode)
	n.index = len(h.data)
	h.data = append(h.data, n)
}

func (h *nodeHeap) Pop() any {
	last := len(h.data) - 1
	n := h.data[last]
	h.data[last] = nil
	h.data = h.data[:last]
	n.index = -1
	return n
}
