package repair

import (
	"context"
	"sort"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// DetectShortEdges returns every undirected edge of the live faces shorter
// than minLength, in ascending order.
func DetectShortEdges(m *meshfix.Mesh, minLength float64) [][2]int {
	seen := make(map[[2]int]bool)
	var out [][2]int
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if seen[key] {
				continue
			}
			seen[key] = true
			if r3.Norm(r3.Sub(m.Vertices[b], m.Vertices[a])) < minLength {
				out = append(out, key)
			}
		}
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x][0] != out[y][0] {
			return out[x][0] < out[y][0]
		}
		return out[x][1] < out[y][1]
	})
	return out
}

// CollapseReport is the result of CollapseShortEdges.
type CollapseReport struct {
	Collapsed    int
	FacesRemoved int
	// CapReached is true when the iteration cap stopped the collapse loop
	// before the queue drained.
	CapReached bool
}

// CollapseShortEdges collapses edges shorter than minLength by merging
// their endpoints, re-queueing edges shortened by each collapse until none
// remain below threshold or the iteration cap trips. Interior edges merge
// to the midpoint; an edge with one border endpoint merges onto it so the
// boundary never moves; an interior chord between two border vertices is
// skipped since collapsing it would pinch the boundary. A collapse that
// would flip a surviving neighbor face's normal is skipped too.
func CollapseShortEdges(ctx context.Context, m *meshfix.Mesh, minLength float64) (CollapseReport, error) {
	var report CollapseReport
	if minLength < 0 {
		return report, &meshfix.InvalidParameterError{Param: "minLength", Reason: "must be non-negative"}
	}
	top, _, err := m.BuildTopology()
	if err != nil {
		return report, err
	}
	border := top.BorderVertices()
	borderEdge := make(map[[2]int]bool)
	for _, h := range top.BorderHalfEdges() {
		a, b := top.Org(h), top.Dst(h)
		if a > b {
			a, b = b, a
		}
		borderEdge[[2]int{a, b}] = true
	}
	vf := m.VertexFaces()

	queue := DetectShortEdges(m, minLength)
	maxSteps := 3 * len(m.Faces)
	steps := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if steps >= maxSteps {
			report.CapReached = true
			break
		}
		steps++
		e := queue[0]
		queue = queue[1:]
		a, b := e[0], e[1]
		if !m.VertexAlive(a) || !m.VertexAlive(b) {
			continue
		}
		if r3.Norm(r3.Sub(m.Vertices[b], m.Vertices[a])) >= minLength {
			continue
		}
		// The edge must still exist: at least one live face uses both ends.
		shared := sharedFaces(m, vf, a, b)
		if len(shared) == 0 {
			continue
		}

		var survivor, victim int
		var target r3.Vec
		switch {
		case border[a] && border[b]:
			if !borderEdge[e] {
				continue // interior chord between border vertices
			}
			survivor, victim = a, b
			target = m.Vertices[a]
		case border[a]:
			survivor, victim = a, b
			target = m.Vertices[a]
		case border[b]:
			survivor, victim = b, a
			target = m.Vertices[b]
		default:
			survivor, victim = a, b
			target = r3.Scale(0.5, r3.Add(m.Vertices[a], m.Vertices[b]))
		}
		if flipsNormal(m, vf, survivor, victim, target) {
			continue
		}

		// Commit: drop the faces spanning the edge, reroute the victim's
		// remaining faces to the survivor, move the survivor.
		for _, f := range shared {
			m.KillFace(f)
			report.FacesRemoved++
		}
		for _, f := range vf[victim] {
			if !m.FaceAlive(f) {
				continue
			}
			tri := &m.Faces[f]
			for j := 0; j < 3; j++ {
				if tri[j] == victim {
					tri[j] = survivor
				}
			}
			vf[survivor] = append(vf[survivor], f)
		}
		m.Vertices[survivor] = target
		m.KillVertex(victim)
		vf[victim] = nil
		border[survivor] = border[survivor] || border[victim]
		report.Collapsed++

		// Neighboring edges may have become short.
		for _, f := range vf[survivor] {
			if !m.FaceAlive(f) {
				continue
			}
			tri := m.Faces[f]
			for j := 0; j < 3; j++ {
				x, y := tri[j], tri[(j+1)%3]
				if x != survivor && y != survivor {
					continue
				}
				if x > y {
					x, y = y, x
				}
				if r3.Norm(r3.Sub(m.Vertices[y], m.Vertices[x])) < minLength {
					queue = append(queue, [2]int{x, y})
				}
			}
		}
	}
	return report, nil
}

func sharedFaces(m *meshfix.Mesh, vf [][]int, a, b int) []int {
	var shared []int
	for _, f := range vf[a] {
		if !m.FaceAlive(f) {
			continue
		}
		tri := m.Faces[f]
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
			shared = append(shared, f)
		}
	}
	return shared
}

// flipsNormal reports whether merging victim into survivor at target would
// flip the normal of any surviving incident face.
func flipsNormal(m *meshfix.Mesh, vf [][]int, survivor, victim int, target r3.Vec) bool {
	const flipTol = 1e-3
	check := func(f int) bool {
		tri := m.Faces[f]
		hasSurvivor, hasVictim := false, false
		for _, v := range tri {
			if v == survivor {
				hasSurvivor = true
			}
			if v == victim {
				hasVictim = true
			}
		}
		if hasSurvivor && hasVictim {
			return false // face dies with the collapse
		}
		before := m.FaceNormal(f)
		if r3.Norm(before) == 0 {
			return false
		}
		var after [3]r3.Vec
		for j, v := range tri {
			switch v {
			case survivor, victim:
				after[j] = target
			default:
				after[j] = m.Vertices[v]
			}
		}
		n := r3.Cross(r3.Sub(after[1], after[0]), r3.Sub(after[2], after[0]))
		l := r3.Norm(n)
		if l == 0 {
			return true // collapse would flatten the face
		}
		return r3.Dot(before, r3.Scale(1/l, n)) < flipTol
	}
	for _, f := range vf[survivor] {
		if m.FaceAlive(f) && check(f) {
			return true
		}
	}
	for _, f := range vf[victim] {
		if m.FaceAlive(f) && check(f) {
			return true
		}
	}
	return false
}

// DetectSmallFaces returns the live faces with area below minArea,
// ascending.
func DetectSmallFaces(m *meshfix.Mesh, minArea float64) []int {
	var out []int
	for i := range m.Faces {
		if m.FaceAlive(i) && m.FaceArea(i) < minArea {
			out = append(out, i)
		}
	}
	return out
}

// RemoveSmallFaces deletes every live face with area below minArea and
// returns how many were removed. Any border this opens is left for the
// hole engine.
func RemoveSmallFaces(m *meshfix.Mesh, minArea float64) (int, error) {
	if minArea < 0 {
		return 0, &meshfix.InvalidParameterError{Param: "minArea", Reason: "must be non-negative"}
	}
	faces := DetectSmallFaces(m, minArea)
	for _, f := range faces {
		m.KillFace(f)
	}
	if len(faces) > 0 {
		m.KillOrphanVertices()
	}
	return len(faces), nil
}
