// Package annotate selects and describes surface regions: patch growth
// from a seed face, landmarks pinned to faces by barycentric coordinates,
// and patch reconstruction from a landmark ring.
package annotate

import (
	"math"
	"sort"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// Patch is a connected set of faces and the closed vertex loops bounding
// it on the surface.
type Patch struct {
	Faces    []int
	Contours [][]int
}

// SelectPatch grows a patch from seedFace by breadth-first traversal
// across shared edges. A face joins when its centroid lies within radius
// of center and, for non-negative maxNormalAngle, its normal is within
// that angle (radians) of the seed face normal. Returns
// *meshfix.InvalidParameterError for a dead seed face or non-positive
// radius.
func SelectPatch(m *meshfix.Mesh, seedFace int, center r3.Vec, radius, maxNormalAngle float64) (Patch, error) {
	if !m.FaceAlive(seedFace) {
		return Patch{}, &meshfix.InvalidParameterError{Param: "seedFace", Reason: "not a live face"}
	}
	if radius <= 0 {
		return Patch{}, &meshfix.InvalidParameterError{Param: "radius", Reason: "must be positive"}
	}
	adj := faceAdjacency(m)
	seedNormal := m.FaceNormal(seedFace)
	admit := func(f int) bool {
		if r3.Norm(r3.Sub(m.FaceCentroid(f), center)) > radius {
			return false
		}
		if maxNormalAngle < 0 {
			return true
		}
		n := m.FaceNormal(f)
		cos := r3.Dot(n, seedNormal)
		return math.Acos(math.Max(-1, math.Min(1, cos))) <= maxNormalAngle
	}
	if !admit(seedFace) {
		return Patch{}, nil
	}

	in := map[int]bool{seedFace: true}
	queue := []int{seedFace}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, g := range adj[f] {
			if in[g] || !admit(g) {
				continue
			}
			in[g] = true
			queue = append(queue, g)
		}
	}
	return newPatch(m, in), nil
}

// newPatch orders the face set and walks the boundary of the induced
// sub-mesh into closed contours.
func newPatch(m *meshfix.Mesh, in map[int]bool) Patch {
	p := Patch{Faces: make([]int, 0, len(in))}
	for f := range in {
		p.Faces = append(p.Faces, f)
	}
	sort.Ints(p.Faces)

	// Boundary edges of the patch: directed edges whose undirected edge
	// has no second patch face.
	count := make(map[[2]int]int)
	for _, f := range p.Faces {
		tri := m.Faces[f]
		for j := 0; j < 3; j++ {
			count[undirected(tri[j], tri[(j+1)%3])]++
		}
	}
	var boundary [][2]int
	for _, f := range p.Faces {
		tri := m.Faces[f]
		for j := 0; j < 3; j++ {
			a, b := tri[j], tri[(j+1)%3]
			if count[undirected(a, b)] == 1 {
				boundary = append(boundary, [2]int{a, b})
			}
		}
	}
	loops, closed := meshfix.ChainLoops(boundary)
	for i, loop := range loops {
		if closed[i] {
			p.Contours = append(p.Contours, loop)
		}
	}
	return p
}

// faceAdjacency maps every live face to the live faces sharing an edge
// with it.
func faceAdjacency(m *meshfix.Mesh) map[int][]int {
	ef := make(map[[2]int][]int)
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			key := undirected(f[j], f[(j+1)%3])
			ef[key] = append(ef[key], i)
		}
	}
	adj := make(map[int][]int)
	for _, faces := range ef {
		for _, a := range faces {
			for _, b := range faces {
				if a != b {
					adj[a] = append(adj[a], b)
				}
			}
		}
	}
	return adj
}

func undirected(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
