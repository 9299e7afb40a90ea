package repair

import (
	"sort"

	"github.com/meshworks/meshfix"
)

// Connectivity selects how faces are considered adjacent when grouping
// them into connected components.
type Connectivity int

const (
	// VertexConnectivity joins faces that share at least one vertex.
	VertexConnectivity Connectivity = iota
	// EdgeConnectivity joins faces that share an undirected edge. It is
	// strictly coarser than vertex connectivity: meshes touching only at
	// a vertex split into separate components.
	EdgeConnectivity
)

// Component is one connected group of faces.
type Component struct {
	Faces       []int
	VertexCount int
	Area        float64
}

// Components groups the live faces of the mesh into connected components
// under the given connectivity. Components are ordered by their lowest
// face index; the face lists are ascending.
func Components(m *meshfix.Mesh, conn Connectivity) []Component {
	n := len(m.Faces)
	uf := newFaceUnionFind(n)
	byKey := make(map[[2]int]int)
	join := func(key [2]int, face int) {
		if other, ok := byKey[key]; ok {
			uf.union(other, face)
		} else {
			byKey[key] = face
		}
	}
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			if conn == EdgeConnectivity {
				a, b := f[j], f[(j+1)%3]
				if a > b {
					a, b = b, a
				}
				join([2]int{a, b}, i)
			} else {
				join([2]int{f[j], -1}, i)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		r := uf.find(i)
		groups[r] = append(groups[r], i)
	}
	comps := make([]Component, 0, len(groups))
	for _, faces := range groups {
		sort.Ints(faces)
		c := Component{Faces: faces}
		verts := make(map[int]bool)
		for _, f := range faces {
			c.Area += m.FaceArea(f)
			for _, v := range m.Faces[f] {
				verts[v] = true
			}
		}
		c.VertexCount = len(verts)
		comps = append(comps, c)
	}
	sort.Slice(comps, func(a, b int) bool { return comps[a].Faces[0] < comps[b].Faces[0] })
	return comps
}

// ComponentReport is the result of RemoveSmallComponents.
type ComponentReport struct {
	Components   int
	Removed      int
	AreaRemoved  float64
	FacesRemoved int
}

// RemoveSmallComponents deletes every component whose area relative to the
// largest component is strictly below ratio. A ratio of 0 removes nothing;
// a ratio of 1 or more keeps only the largest component. Returns
// *meshfix.InvalidParameterError for a negative ratio.
func RemoveSmallComponents(m *meshfix.Mesh, conn Connectivity, ratio float64) (ComponentReport, error) {
	var report ComponentReport
	if ratio < 0 {
		return report, &meshfix.InvalidParameterError{Param: "ratio", Reason: "must be non-negative"}
	}
	comps := Components(m, conn)
	report.Components = len(comps)
	if len(comps) < 2 {
		return report, nil
	}
	largest := 0
	for i, c := range comps {
		if c.Area > comps[largest].Area {
			largest = i
		}
	}
	maxArea := comps[largest].Area
	for i, c := range comps {
		if i == largest || maxArea == 0 {
			continue
		}
		if c.Area/maxArea >= ratio {
			continue
		}
		for _, f := range c.Faces {
			m.KillFace(f)
		}
		report.Removed++
		report.AreaRemoved += c.Area
		report.FacesRemoved += len(c.Faces)
	}
	if report.Removed > 0 {
		m.KillOrphanVertices()
	}
	return report, nil
}

// faceUnionFind is a plain disjoint set over face indices.
type faceUnionFind struct {
	parent []int
}

func newFaceUnionFind(n int) *faceUnionFind {
	uf := &faceUnionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *faceUnionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *faceUnionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}
