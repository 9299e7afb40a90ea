package repair

import (
	"context"
	"math"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/d3"
	"github.com/meshworks/meshfix/internal/spatial"
	"gonum.org/v1/gonum/spatial/r3"
)

// Intersection is one crossing pair of faces and the segment where their
// surfaces meet.
type Intersection struct {
	FaceA, FaceB int
	Segment      Segment
}

// DetectIntersections finds every pair of live faces whose triangles cross
// each other. Candidate pairs come from an octree over face bounding boxes;
// each candidate runs the exact pairwise test with a tolerance relative to
// the mesh scale. Pairs that merely touch at a shared vertex or meet along
// a shared manifold edge are not intersections; a face folded back over a
// shared edge onto its neighbor is.
func DetectIntersections(ctx context.Context, m *meshfix.Mesh) ([]Intersection, error) {
	eps := 1e-9 * m.Scale()
	if eps == 0 {
		eps = 1e-12
	}
	tree := spatial.NewOctree(m.Bounds())
	var alive []int
	for i := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		tree.Insert(m.FaceTriangle(i).Box().Enlarge(d3.Elem(2*eps)), i)
		alive = append(alive, i)
	}

	var out []Intersection
	seen := make(map[[2]int]bool)
	var candidates []int
	for _, i := range alive {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates = tree.Query(m.FaceTriangle(i).Box().Enlarge(d3.Elem(2*eps)), candidates[:0])
		for _, j := range candidates {
			if j <= i {
				continue
			}
			key := [2]int{i, j}
			if seen[key] {
				continue
			}
			seen[key] = true
			if cross, seg := facesCross(m, i, j, eps); cross {
				out = append(out, Intersection{FaceA: i, FaceB: j, Segment: seg})
			}
		}
	}
	return out, nil
}

// facesCross runs the pairwise test appropriate for the number of vertices
// the two faces share.
func facesCross(m *meshfix.Mesh, i, j int, eps float64) (bool, Segment) {
	fi, fj := m.Faces[i], m.Faces[j]
	var sharedI, sharedJ []int
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			if fi[a] == fj[b] {
				sharedI = append(sharedI, a)
				sharedJ = append(sharedJ, b)
			}
		}
	}
	ti, tj := m.FaceTriangle(i), m.FaceTriangle(j)
	switch len(sharedI) {
	case 3:
		// Same corner set: the faces fully overlap.
		return true, Segment{A: ti[0], B: ti[1]}
	case 2:
		return foldedOverEdge(ti, tj, sharedI, sharedJ, eps)
	default:
		// Zero or one shared vertex: the interval test handles both, a
		// lone shared vertex only yields a zero-length contact which is
		// discarded as touching.
		return triTriCross(ti, tj, eps)
	}
}

// foldedOverEdge tests two faces sharing an edge: they intersect only when
// coplanar with their free vertices on the same side of the shared edge,
// which makes the faces overlap in area. The reported segment is the
// shared edge.
func foldedOverEdge(ti, tj d3.Triangle, sharedI, sharedJ []int, eps float64) (bool, Segment) {
	n := ti.Normal()
	if r3.Norm(n) == 0 {
		return false, Segment{}
	}
	freeI := 3 - sharedI[0] - sharedI[1]
	freeJ := 3 - sharedJ[0] - sharedJ[1]
	if math.Abs(r3.Dot(n, r3.Sub(tj[freeJ], ti[0]))) > eps {
		return false, Segment{}
	}
	a, b := ti[sharedI[0]], ti[sharedI[1]]
	edge := r3.Sub(b, a)
	side := r3.Cross(n, edge)
	si := r3.Dot(side, r3.Sub(ti[freeI], a))
	sj := r3.Dot(side, r3.Sub(tj[freeJ], a))
	if si*sj <= eps*eps {
		return false, Segment{}
	}
	return true, Segment{A: a, B: b}
}

// IntersectReport is the result of RemoveIntersections.
type IntersectReport struct {
	Intersections int
	FacesRemoved  int
	HolesFilled   int
	HolesFailed   int
}

// RemoveIntersections detects intersecting faces, removes them all, and
// closes the resulting gaps with the hole engine. The repair is lossy: it
// does not re-triangulate intersection curves. When some gaps cannot be
// closed it returns *meshfix.IntersectionRepairIncompleteError and leaves
// the mesh in the partially repaired state for the caller to judge.
func RemoveIntersections(ctx context.Context, m *meshfix.Mesh) (IntersectReport, error) {
	var report IntersectReport
	pairs, err := DetectIntersections(ctx, m)
	if err != nil {
		return report, err
	}
	report.Intersections = len(pairs)
	if len(pairs) == 0 {
		return report, nil
	}
	flagged := make(map[int]bool)
	for _, p := range pairs {
		flagged[p.FaceA] = true
		flagged[p.FaceB] = true
	}
	for f := range flagged {
		m.KillFace(f)
	}
	report.FacesRemoved = len(flagged)
	m.KillOrphanVertices()

	holes, err := FillHoles(ctx, m)
	if err != nil {
		return report, err
	}
	report.HolesFilled = holes.Filled
	report.HolesFailed = len(holes.Failed)
	if !holes.Complete() {
		return report, &meshfix.IntersectionRepairIncompleteError{
			Removed:  report.FacesRemoved,
			Unfilled: report.HolesFailed,
		}
	}
	return report, nil
}
