package meshfix

import "sort"

// ChainLoops assembles directed edges into vertex loops by repeatedly
// following origin-to-destination links, starting each chain at the lowest
// unused origin so the output is deterministic. closed[i] reports whether
// loop i returned to its starting vertex; open chains indicate a boundary
// that cannot be walked, for example around unresolved non-manifold spots.
func ChainLoops(edges [][2]int) (loops [][]int, closed []bool) {
	next := make(map[int][]int)
	for _, e := range edges {
		next[e[0]] = append(next[e[0]], e[1])
	}
	for v := range next {
		sort.Ints(next[v])
	}
	starts := make([]int, 0, len(next))
	for v := range next {
		starts = append(starts, v)
	}
	sort.Ints(starts)

	take := func(v int) (int, bool) {
		dsts := next[v]
		if len(dsts) == 0 {
			return 0, false
		}
		d := dsts[0]
		next[v] = dsts[1:]
		return d, true
	}

	for _, start := range starts {
		for len(next[start]) > 0 {
			loop := []int{start}
			v := start
			ok := false
			for {
				d, more := take(v)
				if !more {
					break
				}
				if d == start {
					ok = true
					break
				}
				loop = append(loop, d)
				v = d
			}
			loops = append(loops, loop)
			closed = append(closed, ok)
		}
	}
	return loops, closed
}
