package repair

import (
	"math"

	"github.com/meshworks/meshfix/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Segment is a line segment in 3d space.
type Segment struct {
	A, B r3.Vec
}

// Length returns the segment length.
func (s Segment) Length() float64 { return r3.Norm(r3.Sub(s.B, s.A)) }

// triTriCross performs the crossing test between two triangles with no
// shared vertices (or one shared vertex, which the caller has already
// accounted for by requiring a positive-length overlap). eps is an
// absolute distance tolerance derived from the mesh scale. Coplanar pairs
// are routed through the 2d edge-crossing test; coplanar area overlap
// without crossing edges is not detected.
func triTriCross(t1, t2 d3.Triangle, eps float64) (bool, Segment) {
	n1 := t1.Normal()
	n2 := t2.Normal()
	if r3.Norm(n1) == 0 || r3.Norm(n2) == 0 {
		return false, Segment{} // degenerate triangle never reported here
	}

	var d2 [3]float64
	zero2 := 0
	for i, v := range t2 {
		d2[i] = r3.Dot(n1, r3.Sub(v, t1[0]))
		if math.Abs(d2[i]) <= eps {
			d2[i] = 0
			zero2++
		}
	}
	if zero2 == 3 {
		return coplanarCross(t1, t2, n1, eps)
	}
	if sameSide(d2) {
		return false, Segment{}
	}
	var d1 [3]float64
	zero1 := 0
	for i, v := range t1 {
		d1[i] = r3.Dot(n2, r3.Sub(v, t2[0]))
		if math.Abs(d1[i]) <= eps {
			d1[i] = 0
			zero1++
		}
	}
	if zero1 == 3 {
		return coplanarCross(t1, t2, n1, eps)
	}
	if sameSide(d1) {
		return false, Segment{}
	}

	dir := r3.Cross(n1, n2)
	ld := r3.Norm(dir)
	if ld <= 1e-30 {
		return false, Segment{}
	}
	dir = r3.Scale(1/ld, dir)

	lo1, hi1, plo1, phi1, ok1 := planeInterval(t1, d1, dir)
	lo2, hi2, plo2, phi2, ok2 := planeInterval(t2, d2, dir)
	if !ok1 || !ok2 {
		return false, Segment{}
	}
	lo, hi := math.Max(lo1, lo2), math.Min(hi1, hi2)
	if hi-lo <= eps {
		return false, Segment{} // touching, not crossing
	}
	var seg Segment
	if lo1 >= lo2 {
		seg.A = plo1
	} else {
		seg.A = plo2
	}
	if hi1 <= hi2 {
		seg.B = phi1
	} else {
		seg.B = phi2
	}
	return true, seg
}

func sameSide(d [3]float64) bool {
	pos, neg := 0, 0
	for _, v := range d {
		if v > 0 {
			pos++
		} else if v < 0 {
			neg++
		}
	}
	return pos == 0 || neg == 0
}

// planeInterval projects the contact of a triangle with the other
// triangle's plane onto dir: the on-plane vertices plus the crossings of
// sign-changing edges, reduced to a [lo,hi] parameter interval with the
// matching 3d endpoints.
func planeInterval(t d3.Triangle, d [3]float64, dir r3.Vec) (lo, hi float64, plo, phi r3.Vec, ok bool) {
	var pts []r3.Vec
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			pts = append(pts, t[i])
		}
		j := (i + 1) % 3
		if d[i]*d[j] < 0 {
			f := d[i] / (d[i] - d[j])
			pts = append(pts, r3.Add(t[i], r3.Scale(f, r3.Sub(t[j], t[i]))))
		}
	}
	if len(pts) == 0 {
		return 0, 0, r3.Vec{}, r3.Vec{}, false
	}
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, p := range pts {
		s := r3.Dot(dir, p)
		if s < lo {
			lo, plo = s, p
		}
		if s > hi {
			hi, phi = s, p
		}
	}
	return lo, hi, plo, phi, true
}

// coplanarCross tests two coplanar triangles for crossing edges. The
// triangles are projected onto the dominant axis plane of n; every edge
// pair is tested for a proper 2d crossing and the crossings are lifted
// back to 3d. Two or more distinct crossing points make an intersection.
func coplanarCross(t1, t2 d3.Triangle, n r3.Vec, eps float64) (bool, Segment) {
	ax, ay := dominantAxes(n)
	var crossings []r3.Vec
	for i := 0; i < 3; i++ {
		a := t1[i]
		b := t1[(i+1)%3]
		for j := 0; j < 3; j++ {
			c := t2[j]
			d := t2[(j+1)%3]
			if s, _, ok := segCross2(project(a, ax, ay), project(b, ax, ay), project(c, ax, ay), project(d, ax, ay)); ok {
				crossings = append(crossings, r3.Add(a, r3.Scale(s, r3.Sub(b, a))))
			}
		}
	}
	// Deduplicate near-identical crossing points.
	var unique []r3.Vec
	for _, p := range crossings {
		dup := false
		for _, q := range unique {
			if r3.Norm(r3.Sub(p, q)) <= eps {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, p)
		}
	}
	if len(unique) < 2 {
		return false, Segment{}
	}
	// Farthest pair spans the crossing region.
	best := Segment{A: unique[0], B: unique[1]}
	bestLen := best.Length()
	for i := range unique {
		for j := i + 1; j < len(unique); j++ {
			s := Segment{A: unique[i], B: unique[j]}
			if l := s.Length(); l > bestLen {
				best, bestLen = s, l
			}
		}
	}
	if bestLen <= eps {
		return false, Segment{}
	}
	return true, best
}

func dominantAxes(n r3.Vec) (ax, ay int) {
	a := math.Abs(n.X)
	b := math.Abs(n.Y)
	c := math.Abs(n.Z)
	switch {
	case a >= b && a >= c:
		return 1, 2
	case b >= c:
		return 0, 2
	default:
		return 0, 1
	}
}

func project(v r3.Vec, ax, ay int) [2]float64 {
	c := [3]float64{v.X, v.Y, v.Z}
	return [2]float64{c[ax], c[ay]}
}

// segCross2 finds the proper crossing of 2d segments ab and cd, returning
// the parameters along each. Endpoint touches do not count as crossings.
func segCross2(a, b, c, d [2]float64) (s, t float64, ok bool) {
	rx, ry := b[0]-a[0], b[1]-a[1]
	sx, sy := d[0]-c[0], d[1]-c[1]
	denom := rx*sy - ry*sx
	if denom == 0 {
		return 0, 0, false
	}
	qx, qy := c[0]-a[0], c[1]-a[1]
	s = (qx*sy - qy*sx) / denom
	t = (qx*ry - qy*rx) / denom
	const tol = 1e-12
	if s <= tol || s >= 1-tol || t <= tol || t >= 1-tol {
		return 0, 0, false
	}
	return s, t, true
}
