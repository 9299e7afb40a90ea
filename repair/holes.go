// Package repair implements the topology-aware repair engines: boundary
// loop detection and hole filling, self-intersection removal, connected
// component filtering, degenerate element collapse, winding orientation
// and the pipeline composing them.
package repair

import (
	"context"
	"math"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// Loop is one boundary loop of the mesh: an ordered vertex ring whose
// consecutive pairs are border half-edges.
type Loop struct {
	Vertices  []int
	Perimeter float64
	// Valid is false for loops that cannot be triangulated as-is:
	// open chains, fewer than three distinct vertices.
	Valid  bool
	Reason string
}

// FindHoles builds the mesh topology and groups its border half-edges
// into boundary loops. A closed mesh yields no loops.
func FindHoles(m *meshfix.Mesh) ([]Loop, error) {
	top, _, err := m.BuildTopology()
	if err != nil {
		return nil, err
	}
	borders := top.BorderHalfEdges()
	if len(borders) == 0 {
		return nil, nil
	}
	edges := make([][2]int, len(borders))
	for i, h := range borders {
		edges[i] = [2]int{top.Org(h), top.Dst(h)}
	}
	rings, closed := meshfix.ChainLoops(edges)
	loops := make([]Loop, len(rings))
	for i, ring := range rings {
		loops[i] = newLoop(m, ring, closed[i])
	}
	return loops, nil
}

func newLoop(m *meshfix.Mesh, ring []int, closed bool) Loop {
	l := Loop{Vertices: ring, Valid: true}
	for i, v := range ring {
		l.Perimeter += r3.Norm(r3.Sub(m.Vertices[ring[(i+1)%len(ring)]], m.Vertices[v]))
	}
	switch {
	case !closed:
		l.Valid = false
		l.Reason = "boundary chain does not close"
	case len(ring) < 3:
		l.Valid = false
		l.Reason = "fewer than 3 boundary vertices"
	default:
		seen := make(map[int]bool, len(ring))
		for _, v := range ring {
			if seen[v] {
				l.Valid = false
				l.Reason = "repeated vertex on boundary"
				break
			}
			seen[v] = true
		}
	}
	return l
}

// FillHole triangulates one boundary loop by ear clipping and returns the
// indices of the faces added. Among equally valid ears the one with the
// smallest interior angle wins, with shorter new edges breaking ties.
// Returns *meshfix.DegenerateHoleError when no valid ear remains before
// the loop is consumed; in that case, and on cancellation, no face is
// committed and the hole is left exactly as found.
func FillHole(ctx context.Context, m *meshfix.Mesh, loop Loop) ([]int, error) {
	if !loop.Valid {
		return nil, &meshfix.DegenerateHoleError{Loop: loop.Vertices, Reason: loop.Reason}
	}
	// Border half-edges run org->dst along the hole rim. New faces must
	// oppose them, so clipping operates on the reversed ring.
	ring := make([]int, len(loop.Vertices))
	for i, v := range loop.Vertices {
		ring[len(ring)-1-i] = v
	}

	var scale float64
	for i, v := range ring {
		scale = math.Max(scale, r3.Norm(r3.Sub(m.Vertices[ring[(i+1)%len(ring)]], m.Vertices[v])))
	}
	epsArea := 1e-12 * scale * scale

	var staged [][3]int
	for len(ring) > 3 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best, bestAngle, bestEdge := -1, math.MaxFloat64, math.MaxFloat64
		n := newellNormal(m, ring)
		for i := range ring {
			prev := m.Vertices[ring[(i+len(ring)-1)%len(ring)]]
			cur := m.Vertices[ring[i]]
			next := m.Vertices[ring[(i+1)%len(ring)]]
			// Convex corner with respect to the loop normal.
			if r3.Dot(r3.Cross(r3.Sub(cur, prev), r3.Sub(next, cur)), n) <= epsArea {
				continue
			}
			if earContainsVertex(m, ring, i) {
				continue
			}
			angle := interiorAngle(prev, cur, next)
			edge := r3.Norm(r3.Sub(next, prev))
			if angle < bestAngle || (angle == bestAngle && edge < bestEdge) {
				best, bestAngle, bestEdge = i, angle, edge
			}
		}
		if best < 0 {
			return nil, &meshfix.DegenerateHoleError{Loop: loop.Vertices, Reason: "no convex ear free of other boundary vertices"}
		}
		p := ring[(best+len(ring)-1)%len(ring)]
		c := ring[best]
		nx := ring[(best+1)%len(ring)]
		staged = append(staged, [3]int{p, c, nx})
		ring = append(ring[:best], ring[best+1:]...)
	}
	staged = append(staged, [3]int{ring[0], ring[1], ring[2]})
	// Commit only once the whole loop triangulated.
	added := make([]int, len(staged))
	for i, f := range staged {
		added[i] = m.AddFace(f[0], f[1], f[2])
	}
	return added, nil
}

// newellNormal computes the loop normal by Newell's method.
func newellNormal(m *meshfix.Mesh, ring []int) r3.Vec {
	var n r3.Vec
	for i, vi := range ring {
		a := m.Vertices[vi]
		b := m.Vertices[ring[(i+1)%len(ring)]]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{Z: 1}
	}
	return r3.Scale(1/l, n)
}

// earContainsVertex reports whether any other ring vertex lies inside the
// candidate ear triangle at ring position i.
func earContainsVertex(m *meshfix.Mesh, ring []int, i int) bool {
	n := len(ring)
	ip, in := (i+n-1)%n, (i+1)%n
	tri := [3]r3.Vec{m.Vertices[ring[ip]], m.Vertices[ring[i]], m.Vertices[ring[in]]}
	for j, vj := range ring {
		if j == ip || j == i || j == in {
			continue
		}
		if pointInTriangle(m.Vertices[vj], tri) {
			return true
		}
	}
	return false
}

func pointInTriangle(p r3.Vec, t [3]r3.Vec) bool {
	v0 := r3.Sub(t[1], t[0])
	v1 := r3.Sub(t[2], t[0])
	v2 := r3.Sub(p, t[0])
	d00 := r3.Dot(v0, v0)
	d01 := r3.Dot(v0, v1)
	d11 := r3.Dot(v1, v1)
	d20 := r3.Dot(v2, v0)
	d21 := r3.Dot(v2, v1)
	denom := d00*d11 - d01*d01
	if denom == 0 {
		return false
	}
	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	const tol = 1e-9
	return v >= -tol && w >= -tol && v+w <= 1+tol
}

func interiorAngle(prev, cur, next r3.Vec) float64 {
	a := r3.Sub(prev, cur)
	b := r3.Sub(next, cur)
	la, lb := r3.Norm(a), r3.Norm(b)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := r3.Dot(a, b) / (la * lb)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// HoleReport is the partial-success result of FillHoles.
type HoleReport struct {
	Found      int
	Filled     int
	FacesAdded int
	// Failed carries one error per hole left unfilled. The rest of the
	// mesh is repaired regardless.
	Failed []error
}

// Complete reports whether every detected hole was filled.
func (r HoleReport) Complete() bool { return len(r.Failed) == 0 }

// FillHoles detects and fills every boundary loop. A hole that cannot be
// triangulated is skipped and reported; other holes proceed. The returned
// error is non-nil only for malformed input or cancellation.
func FillHoles(ctx context.Context, m *meshfix.Mesh) (HoleReport, error) {
	var report HoleReport
	loops, err := FindHoles(m)
	if err != nil {
		return report, err
	}
	report.Found = len(loops)
	for _, loop := range loops {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		added, err := FillHole(ctx, m, loop)
		report.FacesAdded += len(added)
		if err != nil {
			if ctx.Err() != nil {
				return report, err
			}
			report.Failed = append(report.Failed, err)
			continue
		}
		report.Filled++
	}
	return report, nil
}
