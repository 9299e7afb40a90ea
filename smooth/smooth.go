// Package smooth implements iterative vertex relocation filters. All
// methods run a fixed caller-chosen iteration count with no internal
// convergence check. Topology is never changed, only positions move.
package smooth

import (
	"context"
	"fmt"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// Method selects the smoothing filter.
type Method int

const (
	// Laplacian moves each vertex to the unweighted average of its
	// one-ring neighbors. Shrinks volume.
	Laplacian Method = iota
	// Taubin alternates an inward diffusion step of factor Lambda with an
	// outward inflation step of factor Mu to counter shrinkage.
	Taubin
	// LaplacianHC follows each Laplacian step with a correction pulling
	// vertices partway back toward a blend of their original and previous
	// positions, governed by Alpha and Beta.
	LaplacianHC
	// TangentialRelax projects the Laplacian displacement onto the plane
	// orthogonal to the vertex normal, improving triangle shape without
	// materially moving the sampled surface.
	TangentialRelax
)

func (m Method) String() string {
	switch m {
	case Laplacian:
		return "laplacian"
	case Taubin:
		return "taubin"
	case LaplacianHC:
		return "laplacian-hc"
	case TangentialRelax:
		return "tangential"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Options carries the per-method factors.
type Options struct {
	// Lambda is the Taubin diffusion factor, in (0,1).
	Lambda float64
	// Mu is the Taubin inflation factor, in (0,1), strictly above Lambda.
	Mu float64
	// Alpha and Beta are the Laplacian-HC blend and correction strengths,
	// both in [0,1].
	Alpha float64
	// Beta is documented on Alpha.
	Beta float64
	// MoveBorder lets border vertices move. Off by default so boundaries
	// keep their shape.
	MoveBorder bool
}

// DefaultOptions returns the factors used when the caller has no opinion.
func DefaultOptions() Options {
	return Options{Lambda: 0.5, Mu: 0.53, Alpha: 0.1, Beta: 0.6}
}

// Run smooths the mesh in place for the given iteration count. Vertex and
// face counts are unchanged. Border vertices are pinned unless
// opts.MoveBorder is set. Returns *meshfix.InvalidParameterError before
// any mutation when the method's factors are out of range.
func Run(ctx context.Context, m *meshfix.Mesh, method Method, iterations int, opts Options) error {
	if iterations < 0 {
		return &meshfix.InvalidParameterError{Param: "iterations", Reason: "must be non-negative"}
	}
	switch method {
	case Taubin:
		if opts.Lambda <= 0 || opts.Lambda >= 1 {
			return &meshfix.InvalidParameterError{Param: "Lambda", Reason: "must be in (0,1)"}
		}
		if opts.Mu <= 0 || opts.Mu >= 1 {
			return &meshfix.InvalidParameterError{Param: "Mu", Reason: "must be in (0,1)"}
		}
		if opts.Mu <= opts.Lambda {
			return &meshfix.InvalidParameterError{Param: "Mu", Reason: "must be strictly greater than Lambda"}
		}
	case LaplacianHC:
		if opts.Alpha < 0 || opts.Alpha > 1 {
			return &meshfix.InvalidParameterError{Param: "Alpha", Reason: "must be in [0,1]"}
		}
		if opts.Beta < 0 || opts.Beta > 1 {
			return &meshfix.InvalidParameterError{Param: "Beta", Reason: "must be in [0,1]"}
		}
	case Laplacian, TangentialRelax:
	default:
		return &meshfix.InvalidParameterError{Param: "method", Reason: fmt.Sprintf("unknown method %d", int(method))}
	}
	if iterations == 0 {
		return nil
	}

	top, _, err := m.BuildTopology()
	if err != nil {
		return err
	}
	movable := top.BorderVertices()
	for i := range movable {
		movable[i] = (opts.MoveBorder || !movable[i]) && m.VertexAlive(i)
	}
	nbr := neighbors(m)

	s := state{m: m, nbr: nbr, movable: movable}
	if method == LaplacianHC {
		s.original = append([]r3.Vec(nil), m.Vertices...)
	}
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch method {
		case Laplacian:
			s.displace(1)
		case Taubin:
			s.displace(opts.Lambda)
			s.displace(-opts.Mu)
		case LaplacianHC:
			s.stepHC(opts.Alpha, opts.Beta)
		case TangentialRelax:
			s.stepTangential()
		}
	}
	return nil
}

type state struct {
	m        *meshfix.Mesh
	nbr      [][]int
	movable  []bool
	original []r3.Vec
}

// laplacian returns the displacement of each movable vertex toward its
// one-ring average, zero elsewhere.
func (s *state) laplacian() []r3.Vec {
	d := make([]r3.Vec, len(s.m.Vertices))
	for v := range s.m.Vertices {
		if !s.movable[v] || len(s.nbr[v]) == 0 {
			continue
		}
		var sum r3.Vec
		for _, n := range s.nbr[v] {
			sum = r3.Add(sum, s.m.Vertices[n])
		}
		avg := r3.Scale(1/float64(len(s.nbr[v])), sum)
		d[v] = r3.Sub(avg, s.m.Vertices[v])
	}
	return d
}

// displace applies factor times the Laplacian displacement to every
// movable vertex at once, so the pass reads a consistent snapshot.
func (s *state) displace(factor float64) {
	d := s.laplacian()
	for v := range s.m.Vertices {
		s.m.Vertices[v] = r3.Add(s.m.Vertices[v], r3.Scale(factor, d[v]))
	}
}

// stepHC is one Laplacian step followed by the Humphrey's Classes
// correction: each vertex is pulled back by a blend of its own deviation
// from the alpha-weighted anchor and the mean deviation of its neighbors.
func (s *state) stepHC(alpha, beta float64) {
	prev := append([]r3.Vec(nil), s.m.Vertices...)
	s.displace(1)
	dev := make([]r3.Vec, len(s.m.Vertices))
	for v := range s.m.Vertices {
		if !s.movable[v] {
			continue
		}
		anchor := r3.Add(r3.Scale(alpha, s.original[v]), r3.Scale(1-alpha, prev[v]))
		dev[v] = r3.Sub(s.m.Vertices[v], anchor)
	}
	for v := range s.m.Vertices {
		if !s.movable[v] || len(s.nbr[v]) == 0 {
			continue
		}
		var sum r3.Vec
		for _, n := range s.nbr[v] {
			sum = r3.Add(sum, dev[n])
		}
		mean := r3.Scale(1/float64(len(s.nbr[v])), sum)
		back := r3.Add(r3.Scale(beta, dev[v]), r3.Scale(1-beta, mean))
		s.m.Vertices[v] = r3.Sub(s.m.Vertices[v], back)
	}
}

// stepTangential moves each vertex by the component of its Laplacian
// displacement lying in the tangent plane of its area-weighted normal.
func (s *state) stepTangential() {
	normals := vertexNormals(s.m)
	d := s.laplacian()
	for v := range s.m.Vertices {
		if !s.movable[v] {
			continue
		}
		n := normals[v]
		move := d[v]
		if r3.Norm(n) > 0 {
			move = r3.Sub(move, r3.Scale(r3.Dot(move, n), n))
		}
		s.m.Vertices[v] = r3.Add(s.m.Vertices[v], move)
	}
}

// neighbors returns the one-ring vertex adjacency of the live faces.
func neighbors(m *meshfix.Mesh) [][]int {
	seen := make(map[[2]int]bool)
	nbr := make([][]int, len(m.Vertices))
	add := func(a, b int) {
		key := [2]int{a, b}
		if !seen[key] {
			seen[key] = true
			nbr[a] = append(nbr[a], b)
		}
	}
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			add(a, b)
			add(b, a)
		}
	}
	return nbr
}

// vertexNormals returns per-vertex unit normals, the normalized sum of
// area-weighted incident face normals.
func vertexNormals(m *meshfix.Mesh) []r3.Vec {
	normals := make([]r3.Vec, len(m.Vertices))
	for i, f := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		// Cross product magnitude doubles as the area weight.
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, v := range f {
			normals[v] = r3.Add(normals[v], n)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	return normals
}
