package detour_crowd

// dtPathQueue holds pending move requests as agent indices. Requests are
// served in submission order, at most m_perTick per crowd update; the rest
// wait for the next tick.
type dtPathQueue struct {
	m_queue   []int
	m_perTick int
}

func newDtPathQueue(perTick int) *dtPathQueue {
	return &dtPathQueue{m_perTick: max(perTick, 1)}
}

func (d *dtPathQueue) request(idx int) {
	d.m_queue = append(d.m_queue, idx)
}

// serve pops the requests to handle this tick.
func (d *dtPathQueue) serve() []int {
	n := min(len(d.m_queue), d.m_perTick)
	out := make([]int, n)
	copy(out, d.m_queue[:n])
	d.m_queue = append(d.m_queue[:0], d.m_queue[n:]...)
	return out
}

// remove drops every pending request of agent idx.
func (d *dtPathQueue) remove(idx int) {
	q := d.m_queue[:0]
	for _, i := range d.m_queue {
		if i != idx {
			q = append(q, i)
		}
	}
	d.m_queue = q
}

func (d *dtPathQueue) pending() int { return len(d.m_queue) }
