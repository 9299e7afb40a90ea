package repair

import (
	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// OrientReport is the result of Orient.
type OrientReport struct {
	FacesFlipped      int
	ComponentsFlipped int
	// NonOrientable is true when some edge-connected component admits no
	// consistent winding, for example a Moebius-like strip. Such components
	// keep whatever winding the flood fill produced.
	NonOrientable bool
}

// Orient makes the winding of every edge-connected component consistent by
// flood filling across shared edges, flipping faces whose winding
// disagrees with the component's seed face. Closed components with
// negative signed volume are then flipped whole so their normals point
// outward.
func Orient(m *meshfix.Mesh) OrientReport {
	var report OrientReport
	ef := make(map[[2]int][]int)
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			ef[[2]int{a, b}] = append(ef[[2]int{a, b}], i)
		}
	}

	hasDirected := func(f int, u, v int) bool {
		tri := m.Faces[f]
		for j := 0; j < 3; j++ {
			if tri[j] == u && tri[(j+1)%3] == v {
				return true
			}
		}
		return false
	}
	flip := func(f int) {
		m.Faces[f][1], m.Faces[f][2] = m.Faces[f][2], m.Faces[f][1]
		report.FacesFlipped++
	}

	visited := make([]bool, len(m.Faces))
	for seed := range m.Faces {
		if !m.FaceAlive(seed) || visited[seed] {
			continue
		}
		var component []int
		stack := []int{seed}
		visited[seed] = true
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, f)
			tri := m.Faces[f]
			for j := 0; j < 3; j++ {
				u, v := tri[j], tri[(j+1)%3]
				a, b := u, v
				if a > b {
					a, b = b, a
				}
				inc := ef[[2]int{a, b}]
				if len(inc) != 2 {
					continue // border or non-manifold, no constraint
				}
				g := inc[0]
				if g == f {
					g = inc[1]
				}
				// Consistent neighbors traverse the shared edge in
				// opposite directions.
				if visited[g] {
					if hasDirected(g, u, v) {
						report.NonOrientable = true
					}
					continue
				}
				if hasDirected(g, u, v) {
					flip(g)
				}
				visited[g] = true
				stack = append(stack, g)
			}
		}

		// Outward orientation is decidable only for closed components.
		if !componentClosed(m, component) {
			continue
		}
		var vol float64
		for _, f := range component {
			tri := m.Faces[f]
			a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
			vol += r3.Dot(a, r3.Cross(b, c))
		}
		if vol < 0 {
			for _, f := range component {
				flip(f)
			}
			report.ComponentsFlipped++
		}
	}
	return report
}

func componentClosed(m *meshfix.Mesh, faces []int) bool {
	count := make(map[[2]int]int)
	for _, f := range faces {
		tri := m.Faces[f]
		for j := 0; j < 3; j++ {
			a, b := tri[j], tri[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			count[[2]int{a, b}]++
		}
	}
	for _, c := range count {
		if c != 2 {
			return false
		}
	}
	return true
}
