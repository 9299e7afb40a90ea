package meshfix

import (
	"fmt"
	"sort"
)

// Half-edge ids are 3*face+corner: half-edge h runs from corner h%3 of
// face h/3 to the next corner. The adjacency is derived state, rebuilt
// deterministically from (Vertices, Faces) whenever it is required, and
// never outlives a mutation of the mesh it was built from.
const (
	heBorder = -1 // no opposite: hole boundary
	heDead   = -2 // half-edge of a dead face
)

// Topology is the half-edge adjacency of a mesh at the moment BuildTopology
// ran. Mutating the mesh invalidates it.
type Topology struct {
	m        *Mesh
	opposite []int
}

// BuildReport describes what building the topology had to repair.
type BuildReport struct {
	// NonManifoldFixed is true if edges shared by more than two faces were
	// found and resolved by vertex duplication.
	NonManifoldFixed bool
	// DuplicatedVertices maps an original vertex index to the duplicates
	// appended while separating its fans.
	DuplicatedVertices map[int][]int
}

// BuildTopology derives the half-edge structure of the mesh. Edges shared
// by more than two faces are resolved by duplicating their endpoint
// vertices per incident fan; the report carries the old-to-new mapping.
// Returns *MalformedInputError for invalid face data.
func (m *Mesh) BuildTopology() (*Topology, BuildReport, error) {
	report := BuildReport{DuplicatedVertices: make(map[int][]int)}
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		if err := m.validFace(i, f); err != nil {
			return nil, report, err
		}
		for _, v := range f {
			if m.deadVertex[v] {
				return nil, report, &MalformedInputError{Reason: fmt.Sprintf("face %d references dead vertex %d", i, v)}
			}
		}
	}

	for pass := 0; pass < 4; pass++ {
		if !m.splitNonManifoldFans(&report) {
			break
		}
	}
	m.splitStubbornEdges(&report)

	opp := make([]int, 3*len(m.Faces))
	for i := range opp {
		opp[i] = heDead
	}
	edgeHEs := make(map[[2]int][]int)
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			h := 3*i + j
			opp[h] = heBorder
			key := undirected(f[j], f[(j+1)%3])
			edgeHEs[key] = append(edgeHEs[key], h)
		}
	}
	for _, hes := range edgeHEs {
		if len(hes) == 2 {
			opp[hes[0]] = hes[1]
			opp[hes[1]] = hes[0]
		}
	}
	return &Topology{m: m, opposite: opp}, report, nil
}

// edgeFaceMap returns live faces per undirected edge.
func (m *Mesh) edgeFaceMap() map[[2]int][]int {
	ef := make(map[[2]int][]int)
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			key := undirected(f[j], f[(j+1)%3])
			ef[key] = append(ef[key], i)
		}
	}
	return ef
}

// splitNonManifoldFans separates the fans around every vertex incident to
// an edge shared by more than two faces. Faces are fan-connected at a
// vertex when they share a manifold edge through it. The fan containing
// the lowest face index keeps the vertex; every other fan gets a duplicate.
// Reports whether any duplication happened.
func (m *Mesh) splitNonManifoldFans(report *BuildReport) bool {
	ef := m.edgeFaceMap()
	offending := make([]bool, len(m.Vertices))
	any := false
	for key, fs := range ef {
		if len(fs) > 2 {
			offending[key[0]] = true
			offending[key[1]] = true
			any = true
		}
	}
	if !any {
		return false
	}
	vf := m.VertexFaces()
	changed := false
	for v := range offending {
		if !offending[v] {
			continue
		}
		fs := vf[v]
		if len(fs) < 2 {
			continue
		}
		pos := make(map[int]int, len(fs))
		for i, f := range fs {
			pos[f] = i
		}
		uf := newUnionFind(len(fs))
		for _, f := range fs {
			tri := m.Faces[f]
			for j := 0; j < 3; j++ {
				if tri[j] != v && tri[(j+1)%3] != v {
					continue
				}
				key := undirected(tri[j], tri[(j+1)%3])
				inc := ef[key]
				if len(inc) == 2 {
					uf.union(pos[inc[0]], pos[inc[1]])
				}
			}
		}
		// Group fans by root, ordered by their lowest face index.
		groups := make(map[int][]int)
		for i, f := range fs {
			r := uf.find(i)
			groups[r] = append(groups[r], f)
		}
		if len(groups) < 2 {
			continue
		}
		roots := make([]int, 0, len(groups))
		for r := range groups {
			roots = append(roots, r)
		}
		sort.Slice(roots, func(a, b int) bool { return groups[roots[a]][0] < groups[roots[b]][0] })
		for _, r := range roots[1:] {
			nv := m.AddVertex(m.Vertices[v])
			for _, f := range groups[r] {
				tri := &m.Faces[f]
				for j := 0; j < 3; j++ {
					if tri[j] == v {
						tri[j] = nv
					}
				}
			}
			report.DuplicatedVertices[v] = append(report.DuplicatedVertices[v], nv)
			report.NonManifoldFixed = true
			changed = true
		}
	}
	return changed
}

// splitStubbornEdges handles edges still shared by more than two faces
// after fan separation: every face beyond the first two gets private
// copies of both endpoints. This always terminates the resolution.
func (m *Mesh) splitStubbornEdges(report *BuildReport) {
	ef := m.edgeFaceMap()
	keys := make([][2]int, 0)
	for key, fs := range ef {
		if len(fs) > 2 {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, key := range keys {
		fs := append([]int(nil), ef[key]...)
		sort.Ints(fs)
		for _, f := range fs[2:] {
			for _, v := range key {
				tri := &m.Faces[f]
				replaced := false
				for j := 0; j < 3; j++ {
					if tri[j] == v {
						nv := m.AddVertex(m.Vertices[v])
						tri[j] = nv
						report.DuplicatedVertices[v] = append(report.DuplicatedVertices[v], nv)
						replaced = true
					}
				}
				if replaced {
					report.NonManifoldFixed = true
				}
			}
		}
	}
}

// Mesh returns the mesh the topology was built from.
func (t *Topology) Mesh() *Mesh { return t.m }

// Face returns the face owning half-edge h.
func (t *Topology) Face(h int) int { return h / 3 }

// Org returns the origin vertex of half-edge h.
func (t *Topology) Org(h int) int { return t.m.Faces[h/3][h%3] }

// Dst returns the destination vertex of half-edge h.
func (t *Topology) Dst(h int) int { return t.m.Faces[h/3][(h%3+1)%3] }

// Next returns the half-edge following h inside the same face.
func (t *Topology) Next(h int) int { return 3*(h/3) + (h%3+1)%3 }

// Opposite returns the opposite half-edge of h, or a negative value for
// border (-1) and dead (-2) half-edges.
func (t *Topology) Opposite(h int) int { return t.opposite[h] }

// IsBorder reports whether half-edge h has no opposite.
func (t *Topology) IsBorder(h int) bool { return t.opposite[h] == heBorder }

// BorderHalfEdges returns every border half-edge in ascending order.
func (t *Topology) BorderHalfEdges() []int {
	var hes []int
	for h, o := range t.opposite {
		if o == heBorder {
			hes = append(hes, h)
		}
	}
	return hes
}

// BorderVertices returns a per-vertex flag marking vertices on a border.
func (t *Topology) BorderVertices() []bool {
	border := make([]bool, len(t.m.Vertices))
	for h, o := range t.opposite {
		if o == heBorder {
			border[t.Org(h)] = true
			border[t.Dst(h)] = true
		}
	}
	return border
}

// unionFind is a plain disjoint set over dense indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}
