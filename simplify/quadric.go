package simplify

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// quadric is the upper triangle of a symmetric 4x4 error quadric:
// [a2 ab ac ad; . b2 bc bd; . . c2 cd; . . . d2].
type quadric [10]float64

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// addPlane accumulates the squared-distance quadric of the plane with unit
// normal n through point p.
func (q *quadric) addPlane(n, p r3.Vec) {
	d := -r3.Dot(n, p)
	q[0] += n.X * n.X
	q[1] += n.X * n.Y
	q[2] += n.X * n.Z
	q[3] += n.X * d
	q[4] += n.Y * n.Y
	q[5] += n.Y * n.Z
	q[6] += n.Y * d
	q[7] += n.Z * n.Z
	q[8] += n.Z * d
	q[9] += d * d
}

// eval returns v^T Q v, the summed squared plane distances at v.
func (q *quadric) eval(v r3.Vec) float64 {
	return q[0]*v.X*v.X + 2*q[1]*v.X*v.Y + 2*q[2]*v.X*v.Z + 2*q[3]*v.X +
		q[4]*v.Y*v.Y + 2*q[5]*v.Y*v.Z + 2*q[6]*v.Y +
		q[7]*v.Z*v.Z + 2*q[8]*v.Z +
		q[9]
}

// minimize returns the position minimizing the quadric by solving the 3x3
// normal system. ok is false when the system is singular, in which case
// the caller falls back to discrete candidates.
func (q *quadric) minimize() (r3.Vec, bool) {
	a := mat.NewSymDense(3, []float64{
		q[0], q[1], q[2],
		q[1], q[4], q[5],
		q[2], q[5], q[7],
	})
	b := mat.NewVecDense(3, []float64{-q[3], -q[6], -q[8]})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return r3.Vec{}, false
	}
	return r3.Vec{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}, true
}
