package annotate

import (
	"math"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Locator answers nearest-face queries against a snapshot of the mesh.
// Mutating the mesh invalidates it.
type Locator struct {
	tree *kdtree.Tree
	m    *meshfix.Mesh
}

// NewLocator indexes the live faces of m in a k-d tree keyed on their
// centroids.
func NewLocator(m *meshfix.Mesh) *Locator {
	fl := faceList{m: m}
	for i := range m.Faces {
		if !m.FaceAlive(i) {
			continue
		}
		fl.items = append(fl.items, faceItem{C: m.FaceCentroid(i), Face: i, m: m})
	}
	return &Locator{tree: kdtree.New(fl, true), m: m}
}

// NearestFace returns the live face whose surface is closest to p, along
// with the closest point on it. Returns -1 for a mesh with no live faces.
func (l *Locator) NearestFace(p r3.Vec) (face int, onSurface r3.Vec) {
	got, _ := l.tree.Nearest(&faceItem{C: p, Face: -1})
	if got == nil {
		return -1, r3.Vec{}
	}
	item := got.(*faceItem)
	return item.Face, l.m.FaceTriangle(item.Face).Closest(p)
}

// faceItem is one indexed face, or a bare query point when Face is -1.
type faceItem struct {
	C    r3.Vec
	Face int
	m    *meshfix.Mesh
}

func (t *faceItem) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*faceItem)
	switch d {
	case 0:
		return t.C.X - q.C.X
	case 1:
		return t.C.Y - q.C.Y
	case 2:
		return t.C.Z - q.C.Z
	}
	panic("unreachable")
}

func (t *faceItem) Dims() int { return 3 }

// Distance is the squared distance between the query point and the other
// item's triangle surface, falling back to centroid distance for two bare
// points.
func (t *faceItem) Distance(c kdtree.Comparable) float64 {
	q := c.(*faceItem)
	if t.Face < 0 && q.Face < 0 {
		return r3.Norm2(r3.Sub(t.C, q.C))
	}
	tri, point := t, q
	if tri.Face < 0 {
		tri, point = point, tri
	}
	closest := tri.m.FaceTriangle(tri.Face).Closest(point.C)
	return r3.Norm2(r3.Sub(point.C, closest))
}

// faceList implements kdtree.Interface over the indexed faces.
type faceList struct {
	m     *meshfix.Mesh
	items []faceItem
}

func (fl faceList) Index(i int) kdtree.Comparable { return &fl.items[i] }

func (fl faceList) Len() int { return len(fl.items) }

func (fl faceList) Pivot(d kdtree.Dim) int {
	p := facePlane{dim: int(d), items: fl.items}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (fl faceList) Slice(start, end int) kdtree.Interface {
	fl.items = fl.items[start:end]
	return fl
}

// Bounds implements kdtree.Bounder over the face centroids.
func (fl faceList) Bounds() *kdtree.Bounding {
	min := faceItem{C: d3.Elem(math.MaxFloat64), Face: -1}
	max := faceItem{C: d3.Elem(-math.MaxFloat64), Face: -1}
	for _, t := range fl.items {
		min.C = d3.MinElem(min.C, t.C)
		max.C = d3.MaxElem(max.C, t.C)
	}
	return &kdtree.Bounding{Min: &min, Max: &max}
}

type facePlane struct {
	dim   int
	items []faceItem
}

func (p facePlane) Less(i, j int) bool {
	return p.items[i].Compare(&p.items[j], kdtree.Dim(p.dim)) < 0
}
func (p facePlane) Swap(i, j int) { p.items[i], p.items[j] = p.items[j], p.items[i] }
func (p facePlane) Len() int      { return len(p.items) }
func (p facePlane) Slice(start, end int) kdtree.SortSlicer {
	p.items = p.items[start:end]
	return p
}
