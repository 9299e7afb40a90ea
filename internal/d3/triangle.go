package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle in 3d space addressed by its corner positions.
type Triangle [3]r3.Vec

// Normal returns the triangle's unit normal by the right-hand rule.
// Degenerate triangles return the zero vector.
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Centroid returns the arithmetic mean of the triangle's corners.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3.0, r3.Add(t[0], r3.Add(t[1], t[2])))
}

// Box returns the triangle's axis aligned bounding box.
func (t Triangle) Box() Box {
	return Box{
		Min: MinElem(t[0], MinElem(t[1], t[2])),
		Max: MaxElem(t[0], MaxElem(t[1], t[2])),
	}
}

// Barycentric returns the barycentric coordinates of p with respect to
// the triangle. p is assumed to lie on or near the triangle's plane.
func (t Triangle) Barycentric(p r3.Vec) (u, v, w float64) {
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
		return 1, 0, 0
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w
}

// Interpolate returns the position at barycentric coordinates (u,v,w).
func (t Triangle) Interpolate(u, v, w float64) r3.Vec {
	return r3.Add(r3.Scale(u, t[0]), r3.Add(r3.Scale(v, t[1]), r3.Scale(w, t[2])))
}

// Closest returns the point on the triangle closest to p.
func (t Triangle) Closest(p r3.Vec) r3.Vec {
	// Ericson, Real-Time Collision Detection, 5.1.5.
	ab := r3.Sub(t[1], t[0])
	ac := r3.Sub(t[2], t[0])
	ap := r3.Sub(p, t[0])
	d1 := r3.Dot(ab, ap)
	d2 := r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return t[0]
	}
	bp := r3.Sub(p, t[1])
	d3 := r3.Dot(ab, bp)
	d4 := r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return t[1]
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return r3.Add(t[0], r3.Scale(v, ab))
	}
	cp := r3.Sub(p, t[2])
	d5 := r3.Dot(ab, cp)
	d6 := r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return t[2]
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return r3.Add(t[0], r3.Scale(w, ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(t[1], r3.Scale(w, r3.Sub(t[2], t[1])))
	}
	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return r3.Add(t[0], r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}

// Degenerate returns true if the triangle's corners are colinear or
// coincident within tol.
func (t Triangle) Degenerate(tol float64) bool {
	longest := math.Max(r3.Norm(r3.Sub(t[1], t[0])),
		math.Max(r3.Norm(r3.Sub(t[2], t[1])), r3.Norm(r3.Sub(t[0], t[2]))))
	if longest == 0 {
		return true
	}
	// Height of the triangle relative to its longest side.
	return 2*t.Area()/longest <= tol
}
