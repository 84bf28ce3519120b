package detour

import "testing"

func TestNodePool(t *testing.T) {
	p := NewDtNodePool(3)
	a := p.GetNode(7, 0)
	b := p.GetNode(7, 1)
	assertTrue(t, a != b, "states get their own nodes")
	assertTrue(t, p.GetNode(7, 0) == a, "lookup returns the same node")
	assertTrue(t, p.GetNodeAtIdx(p.GetNodeIdx(b)) == b, "index round trip")
	assertTrue(t, p.GetNodeIdx(nil) == 0 && p.GetNodeAtIdx(0) == nil, "zero index is none")
	assertTrue(t, len(p.FindNodes(7)) == 2, "both states found")

	assertTrue(t, p.GetNode(8, 0) != nil, "third node")
	assertTrue(t, p.GetNode(9, 0) == nil, "pool exhausted")

	p.Clear()
	assertTrue(t, p.GetNodeCount() == 0 && p.FindNode(7, 0) == nil, "cleared")
}

func TestNodeQueueOrder(t *testing.T) {
	q := NewDtNodeQueue()
	nodes := []*DtNode{{Total: 5}, {Total: 1}, {Total: 3}, {Total: 4}}
	for _, n := range nodes {
		q.Push(n)
	}
	nodes[0].Total = 0
	q.Modify(nodes[0])

	var got []float32
	for !q.Empty() {
		got = append(got, q.Pop().Total)
	}
	want := []float32{0, 1, 3, 4}
	assertTrue(t, len(got) == len(want), "all popped")
	for i := range want {
		assertTrue(t, got[i] == want[i], "popped in cost order")
	}
}

func TestStatusString(t *testing.T) {
	s := DT_FAILURE | DT_INVALID_PARAM
	assertTrue(t, s.String() == "failure, invalid param", s.String())
	assertTrue(t, (DT_SUCCESS | DT_PARTIAL_RESULT).String() == "success, partial result", "partial")
}
