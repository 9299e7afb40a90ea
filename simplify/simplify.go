// Package simplify reduces mesh face count by greedy quadric-error edge
// collapse.
package simplify

import (
	"container/heap"
	"context"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options parameterizes Simplify.
type Options struct {
	// TargetFaces is the face count to stop at. When zero, TargetRatio
	// applies instead.
	TargetFaces int
	// TargetRatio is the fraction of input faces to keep, in (0,1]. Used
	// only when TargetFaces is zero.
	TargetRatio float64
	// PreserveBorders forbids collapsing any edge with a border endpoint,
	// keeping hole and sheet boundaries exactly where they are.
	PreserveBorders bool
}

// Result reports the face counts around a Simplify run.
type Result struct {
	InputFaces  int
	OutputFaces int
	Collapsed   int
}

type candidate struct {
	cost   float64
	a, b   int
	target r3.Vec
	verA   int
	verB   int
	index  int
}

type candidateHeap []*candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *candidateHeap) Push(x interface{}) { c := x.(*candidate); c.index = len(*h); *h = append(*h, c) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

// Simplify collapses edges in increasing quadric-error order until the
// face target is reached or no legal collapse remains. Collapses that
// would flip a surviving face's normal or create a non-manifold edge are
// rejected. The mesh is compacted before returning; indices held by the
// caller are invalidated.
func Simplify(ctx context.Context, m *meshfix.Mesh, opts Options) (Result, error) {
	res := Result{InputFaces: m.FaceCount()}
	res.OutputFaces = res.InputFaces
	target := opts.TargetFaces
	if target == 0 {
		if opts.TargetRatio <= 0 || opts.TargetRatio > 1 {
			return res, &meshfix.InvalidParameterError{Param: "TargetRatio", Reason: "must be in (0,1]"}
		}
		target = int(opts.TargetRatio * float64(res.InputFaces))
	}
	if target < 0 {
		return res, &meshfix.InvalidParameterError{Param: "TargetFaces", Reason: "must be non-negative"}
	}
	if res.InputFaces <= target {
		return res, nil
	}

	top, _, err := m.BuildTopology()
	if err != nil {
		return res, err
	}
	border := top.BorderVertices()

	s := &solver{
		m:        m,
		border:   border,
		preserve: opts.PreserveBorders,
		vf:       m.VertexFaces(),
		version:  make([]int, len(m.Vertices)),
		quadrics: make([]quadric, len(m.Vertices)),
	}
	for i := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		t := m.FaceTriangle(i)
		n := t.Normal()
		if r3.Norm(n) == 0 {
			continue
		}
		for _, v := range m.Faces[i] {
			s.quadrics[v].addPlane(n, t[0])
		}
	}

	var pq candidateHeap
	seen := make(map[[2]int]bool)
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			if seen[[2]int{a, b}] {
				continue
			}
			seen[[2]int{a, b}] = true
			if c := s.evaluate(a, b); c != nil {
				pq = append(pq, c)
			}
		}
	}
	heap.Init(&pq)

	live := res.InputFaces
	for live > target && pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c := heap.Pop(&pq).(*candidate)
		if c.verA != s.version[c.a] || c.verB != s.version[c.b] {
			continue // stale: an endpoint moved since this was scored
		}
		if !m.VertexAlive(c.a) || !m.VertexAlive(c.b) {
			continue
		}
		removed, ok := s.collapse(c)
		if !ok {
			continue
		}
		live -= removed
		res.Collapsed++
		// Rescore the survivor's edges.
		for _, f := range s.vf[c.a] {
			if !m.FaceAlive(f) {
				continue
			}
			tri := m.Faces[f]
			for j := 0; j < 3; j++ {
				x, y := tri[j], tri[(j+1)%3]
				if x != c.a && y != c.a {
					continue
				}
				if x > y {
					x, y = y, x
				}
				if nc := s.evaluate(x, y); nc != nil {
					heap.Push(&pq, nc)
				}
			}
		}
	}
	m.Compact()
	res.OutputFaces = m.FaceCount()
	return res, nil
}

type solver struct {
	m        *meshfix.Mesh
	border   []bool
	preserve bool
	vf       [][]int
	version  []int
	quadrics []quadric
}

// evaluate scores edge (a,b), choosing the collapse position minimizing
// the summed quadric and falling back to the midpoint or an endpoint when
// the system is singular. Returns nil for edges the border policy forbids.
func (s *solver) evaluate(a, b int) *candidate {
	if s.preserve && (s.border[a] || s.border[b]) {
		return nil
	}
	var q quadric
	q = s.quadrics[a]
	q.add(&s.quadrics[b])

	pa, pb := s.m.Vertices[a], s.m.Vertices[b]
	best, ok := q.minimize()
	// Reject optimal positions wildly outside the edge neighborhood: the
	// near-singular system can shoot off to infinity.
	if ok {
		span := r3.Norm(r3.Sub(pb, pa))
		if r3.Norm(r3.Sub(best, pa)) > 10*span+1e-12 && r3.Norm(r3.Sub(best, pb)) > 10*span+1e-12 {
			ok = false
		}
	}
	if !ok {
		mid := r3.Scale(0.5, r3.Add(pa, pb))
		best = mid
		cost := q.eval(mid)
		if c := q.eval(pa); c < cost {
			best, cost = pa, c
		}
		if c := q.eval(pb); c < cost {
			best = pb
		}
	}
	// Border endpoints stay put when only one end touches the boundary.
	switch {
	case s.border[a] && !s.border[b]:
		best = pa
	case s.border[b] && !s.border[a]:
		best = pb
	}
	return &candidate{
		cost: q.eval(best), a: a, b: b, target: best,
		verA: s.version[a], verB: s.version[b],
	}
}

// collapse merges b into a at the candidate position. Returns the number
// of faces removed and whether the collapse was legal.
func (s *solver) collapse(c *candidate) (int, bool) {
	a, b := c.a, c.b
	shared := s.sharedFaces(a, b)
	if len(shared) == 0 {
		return 0, false // edge no longer exists
	}
	if !s.linkConditionOK(a, b, shared) {
		return 0, false
	}
	if s.flipsNormal(a, b, c.target) {
		return 0, false
	}

	for _, f := range shared {
		s.m.KillFace(f)
	}
	for _, f := range s.vf[b] {
		if !s.m.FaceAlive(f) {
			continue
		}
		tri := &s.m.Faces[f]
		for j := 0; j < 3; j++ {
			if tri[j] == b {
				tri[j] = a
			}
		}
		s.vf[a] = append(s.vf[a], f)
	}
	s.m.Vertices[a] = c.target
	s.m.KillVertex(b)
	s.vf[b] = nil
	s.quadrics[a].add(&s.quadrics[b])
	s.border[a] = s.border[a] || s.border[b]
	s.version[a]++
	s.version[b]++
	return len(shared), true
}

func (s *solver) sharedFaces(a, b int) []int {
	var shared []int
	for _, f := range s.vf[a] {
		if !s.m.FaceAlive(f) {
			continue
		}
		hasA, hasB := false, false
		for _, v := range s.m.Faces[f] {
			if v == a {
				hasA = true
			}
			if v == b {
				hasB = true
			}
		}
		if hasA && hasB {
			shared = append(shared, f)
		}
	}
	return shared
}

// linkConditionOK rejects collapses that would create a non-manifold
// edge: the one-ring vertices common to both endpoints must be exactly
// the vertices opposite the shared faces.
func (s *solver) linkConditionOK(a, b int, shared []int) bool {
	ringA := s.oneRing(a)
	common := 0
	for v := range s.oneRing(b) {
		if ringA[v] {
			common++
		}
	}
	return common == len(shared)
}

func (s *solver) oneRing(v int) map[int]bool {
	ring := make(map[int]bool)
	for _, f := range s.vf[v] {
		if !s.m.FaceAlive(f) {
			continue
		}
		for _, u := range s.m.Faces[f] {
			if u != v {
				ring[u] = true
			}
		}
	}
	return ring
}

// flipsNormal reports whether merging b into a at target would flip or
// flatten a surviving incident face.
func (s *solver) flipsNormal(a, b int, target r3.Vec) bool {
	const flipTol = 1e-3
	check := func(f int) bool {
		tri := s.m.Faces[f]
		hasA, hasB := false, false
		for _, v := range tri {
			if v == a {
				hasA = true
			}
			if v == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return false // dies with the collapse
		}
		before := s.m.FaceNormal(f)
		if r3.Norm(before) == 0 {
			return false
		}
		var after [3]r3.Vec
		for j, v := range tri {
			switch v {
			case a, b:
				after[j] = target
			default:
				after[j] = s.m.Vertices[v]
			}
		}
		n := r3.Cross(r3.Sub(after[1], after[0]), r3.Sub(after[2], after[0]))
		l := r3.Norm(n)
		if l == 0 {
			return true
		}
		return r3.Dot(before, r3.Scale(1/l, n)) < flipTol
	}
	for _, f := range s.vf[a] {
		if s.m.FaceAlive(f) && check(f) {
			return true
		}
	}
	for _, f := range s.vf[b] {
		if s.m.FaceAlive(f) && check(f) {
			return true
		}
	}
	return false
}
