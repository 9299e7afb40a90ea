// Package meshfix implements an indexed triangle mesh store with derived
// half-edge adjacency and supporting operations for the repair, smoothing,
// simplification and annotation engines built on top of it.
//
// A Mesh is owned by a single in-flight operation at a time. Deletions mark
// elements dead without renumbering; Compact removes dead elements at well
// defined checkpoints so indices held by in-flight algorithms stay valid.
package meshfix

import (
	"fmt"
	"math"

	"github.com/meshworks/meshfix/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh. Vertices and Faces may contain dead
// entries; use VertexAlive and FaceAlive before dereferencing indices that
// did not come from the mesh itself.
type Mesh struct {
	Vertices []r3.Vec
	Faces    [][3]int

	deadVertex []bool
	deadFace   []bool
}

// New validates vertices and faces and returns a mesh backed by them.
// Returns *MalformedInputError if a face references an out of range vertex
// or has fewer than three distinct corners.
func New(vertices []r3.Vec, faces [][3]int) (*Mesh, error) {
	m := &Mesh{
		Vertices:   vertices,
		Faces:      faces,
		deadVertex: make([]bool, len(vertices)),
		deadFace:   make([]bool, len(faces)),
	}
	for i, f := range faces {
		if err := m.validFace(i, f); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mesh) validFace(i int, f [3]int) error {
	for _, v := range f {
		if v < 0 || v >= len(m.Vertices) {
			return &MalformedInputError{Reason: fmt.Sprintf("face %d references vertex %d outside [0,%d)", i, v, len(m.Vertices))}
		}
	}
	if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
		return &MalformedInputError{Reason: fmt.Sprintf("face %d has repeated vertex indices %v", i, f)}
	}
	return nil
}

// Ingest builds a mesh from the flat array boundary contract: packed xyz
// coordinates and triangle vertex indices, three per element.
func Ingest(coords []float64, indices []uint32) (*Mesh, error) {
	if len(coords)%3 != 0 {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("coordinate array length %d not divisible by 3", len(coords))}
	}
	if len(indices)%3 != 0 {
		return nil, &MalformedInputError{Reason: fmt.Sprintf("index array length %d not divisible by 3", len(indices))}
	}
	vertices := make([]r3.Vec, len(coords)/3)
	for i := range vertices {
		vertices[i] = r3.Vec{X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
	}
	faces := make([][3]int, len(indices)/3)
	for i := range faces {
		faces[i] = [3]int{int(indices[3*i]), int(indices[3*i+1]), int(indices[3*i+2])}
	}
	return New(vertices, faces)
}

// Export garbage-collects the mesh and returns it as flat coordinate and
// index arrays. Only live elements appear in the output.
func (m *Mesh) Export() (coords []float64, indices []uint32) {
	m.Compact()
	coords = make([]float64, 0, 3*len(m.Vertices))
	for _, v := range m.Vertices {
		coords = append(coords, v.X, v.Y, v.Z)
	}
	indices = make([]uint32, 0, 3*len(m.Faces))
	for _, f := range m.Faces {
		indices = append(indices, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return coords, indices
}

// FromTriangles builds an indexed mesh from a triangle soup, merging
// vertices closer than weldTol. weldTol of zero infers a tolerance from
// the shortest triangle side, following the usual 1/256th heuristic.
func FromTriangles(triangles []d3.Triangle, weldTol float64) (*Mesh, error) {
	if len(triangles) == 0 {
		return nil, &MalformedInputError{Reason: "empty triangle soup"}
	}
	if weldTol == 0 {
		minSide := math.MaxFloat64
		for _, t := range triangles {
			for j := range t {
				side := r3.Norm(r3.Sub(t[(j+1)%3], t[j]))
				if side > 0 && side < minSide {
					minSide = side
				}
			}
		}
		if minSide == math.MaxFloat64 {
			return nil, &MalformedInputError{Reason: "all triangle sides have zero length"}
		}
		weldTol = minSide / 256
	}
	// Vertex index cache on the integer lattice of spacing weldTol.
	cache := make(map[[3]int64]int)
	ri := 1 / weldTol
	var vertices []r3.Vec
	var faces [][3]int
	for _, t := range triangles {
		var f [3]int
		for j, vert := range t {
			key := [3]int64{
				int64(math.Round(vert.X * ri)),
				int64(math.Round(vert.Y * ri)),
				int64(math.Round(vert.Z * ri)),
			}
			idx, ok := cache[key]
			if !ok {
				idx = len(vertices)
				cache[key] = idx
				vertices = append(vertices, vert)
			}
			f[j] = idx
		}
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			continue // triangle collapsed by welding
		}
		faces = append(faces, f)
	}
	return New(vertices, faces)
}

// Weld merges live vertices closer than tol using the same integer
// lattice cache as FromTriangles, rewriting faces to the surviving
// vertex and killing faces the merge collapses. Returns the number of
// vertices merged away. tol must be positive.
func (m *Mesh) Weld(tol float64) (int, error) {
	if tol <= 0 {
		return 0, &InvalidParameterError{Param: "tol", Reason: "must be positive"}
	}
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	remap := make([]int, len(m.Vertices))
	merged := 0
	for i, v := range m.Vertices {
		if m.deadVertex[i] {
			remap[i] = -1
			continue
		}
		key := [3]int64{
			int64(math.Round(v.X * ri)),
			int64(math.Round(v.Y * ri)),
			int64(math.Round(v.Z * ri)),
		}
		if first, ok := cache[key]; ok {
			remap[i] = first
			m.deadVertex[i] = true
			merged++
			continue
		}
		cache[key] = i
		remap[i] = i
	}
	if merged == 0 {
		return 0, nil
	}
	for i := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		f := &m.Faces[i]
		for j := 0; j < 3; j++ {
			f[j] = remap[f[j]]
		}
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			m.deadFace[i] = true
		}
	}
	return merged, nil
}

// VertexAlive reports whether vertex i is live.
func (m *Mesh) VertexAlive(i int) bool { return i >= 0 && i < len(m.Vertices) && !m.deadVertex[i] }

// FaceAlive reports whether face i is live.
func (m *Mesh) FaceAlive(i int) bool { return i >= 0 && i < len(m.Faces) && !m.deadFace[i] }

// KillVertex marks vertex i dead. Faces referencing it are not touched;
// callers remove or rewrite them first.
func (m *Mesh) KillVertex(i int) { m.deadVertex[i] = true }

// KillFace marks face i dead.
func (m *Mesh) KillFace(i int) { m.deadFace[i] = true }

// KillOrphanVertices marks dead every live vertex no live face references.
// It returns the number of vertices killed.
func (m *Mesh) KillOrphanVertices() int {
	used := make([]bool, len(m.Vertices))
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		for _, v := range f {
			used[v] = true
		}
	}
	n := 0
	for i := range m.Vertices {
		if !m.deadVertex[i] && !used[i] {
			m.deadVertex[i] = true
			n++
		}
	}
	return n
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(v r3.Vec) int {
	m.Vertices = append(m.Vertices, v)
	m.deadVertex = append(m.deadVertex, false)
	return len(m.Vertices) - 1
}

// AddFace appends a face and returns its index. The indices must reference
// live vertices; violating this is a programmer error.
func (m *Mesh) AddFace(a, b, c int) int {
	if !m.VertexAlive(a) || !m.VertexAlive(b) || !m.VertexAlive(c) {
		panic("meshfix: AddFace with dead or out of range vertex")
	}
	m.Faces = append(m.Faces, [3]int{a, b, c})
	m.deadFace = append(m.deadFace, false)
	return len(m.Faces) - 1
}

// VertexCount returns the number of live vertices.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Vertices {
		if !m.deadVertex[i] {
			n++
		}
	}
	return n
}

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int {
	n := 0
	for i := range m.Faces {
		if !m.deadFace[i] {
			n++
		}
	}
	return n
}

// Compact removes dead vertices and faces, renumbering the survivors.
// It returns old-to-new index maps with -1 marking removed elements.
// Every index handed out before Compact is invalidated.
func (m *Mesh) Compact() (vertMap, faceMap []int) {
	vertMap = make([]int, len(m.Vertices))
	next := 0
	for i := range m.Vertices {
		if m.deadVertex[i] {
			vertMap[i] = -1
			continue
		}
		m.Vertices[next] = m.Vertices[i]
		vertMap[i] = next
		next++
	}
	m.Vertices = m.Vertices[:next]
	m.deadVertex = m.deadVertex[:next]
	for i := range m.deadVertex {
		m.deadVertex[i] = false
	}

	faceMap = make([]int, len(m.Faces))
	next = 0
	for i := range m.Faces {
		if m.deadFace[i] {
			faceMap[i] = -1
			continue
		}
		f := m.Faces[i]
		m.Faces[next] = [3]int{vertMap[f[0]], vertMap[f[1]], vertMap[f[2]]}
		faceMap[i] = next
		next++
	}
	m.Faces = m.Faces[:next]
	m.deadFace = m.deadFace[:next]
	for i := range m.deadFace {
		m.deadFace[i] = false
	}
	return vertMap, faceMap
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices:   append([]r3.Vec(nil), m.Vertices...),
		Faces:      append([][3]int(nil), m.Faces...),
		deadVertex: append([]bool(nil), m.deadVertex...),
		deadFace:   append([]bool(nil), m.deadFace...),
	}
	return c
}

// FaceTriangle returns the corner positions of face i.
func (m *Mesh) FaceTriangle(i int) d3.Triangle {
	f := m.Faces[i]
	return d3.Triangle{m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]}
}

// FaceNormal returns the unit normal of face i by the right-hand rule.
func (m *Mesh) FaceNormal(i int) r3.Vec { return m.FaceTriangle(i).Normal() }

// FaceArea returns the area of face i.
func (m *Mesh) FaceArea(i int) float64 { return m.FaceTriangle(i).Area() }

// FaceCentroid returns the centroid of face i.
func (m *Mesh) FaceCentroid(i int) r3.Vec { return m.FaceTriangle(i).Centroid() }

// Bounds returns the axis aligned bounding box of the live vertices.
func (m *Mesh) Bounds() d3.Box {
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	for i, v := range m.Vertices {
		if m.deadVertex[i] {
			continue
		}
		bb = bb.Include(v)
	}
	return bb
}

// Scale returns a characteristic length of the mesh, the diagonal of its
// bounding box. Tolerances are expressed relative to it.
func (m *Mesh) Scale() float64 {
	return r3.Norm(m.Bounds().Size())
}

// SignedVolume returns the signed volume enclosed by the mesh, positive
// for outward wound closed surfaces. The value is meaningful only when
// IsClosed reports true.
func (m *Mesh) SignedVolume() float64 {
	var vol float64
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		vol += r3.Dot(a, r3.Cross(b, c))
	}
	return vol / 6
}

// IsClosed reports whether every undirected edge of the live faces is
// shared by exactly two faces, i.e. the mesh has no border half-edges and
// no non-manifold edges.
func (m *Mesh) IsClosed() bool {
	count := make(map[[2]int]int)
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			count[undirected(f[j], f[(j+1)%3])]++
		}
	}
	for _, c := range count {
		if c != 2 {
			return false
		}
	}
	return true
}

// VertexFaces returns, for every vertex index, the live faces incident
// to it. The slices are freshly allocated on each call.
func (m *Mesh) VertexFaces() [][]int {
	vf := make([][]int, len(m.Vertices))
	for i, f := range m.Faces {
		if m.deadFace[i] {
			continue
		}
		for _, v := range f {
			vf[v] = append(vf[v], i)
		}
	}
	return vf
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
