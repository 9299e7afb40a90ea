// Package spatial provides a loose octree over axis aligned boxes used as
// the broad phase of pairwise triangle queries.
package spatial

import (
	"github.com/meshworks/meshfix/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	defaultMaxDepth = 6
	defaultMaxItems = 16
)

// Octree stores integer ids addressed by their bounding box. Items whose
// box spans a split plane are stored in every overlapping child, so Query
// may return duplicate ids.
type Octree struct {
	root     node
	maxDepth int
}

type node struct {
	bounds   d3.Box
	depth    int
	children *[8]node // nil for leaves
	boxes    []d3.Box
	ids      []int
}

// NewOctree returns an octree covering bounds. The bounds are enlarged by
// 5% per side so items on the hull do not sit exactly on the root planes.
func NewOctree(bounds d3.Box) *Octree {
	size := bounds.Size()
	return &Octree{
		root: node{
			bounds: bounds.Enlarge(r3.Scale(0.1, size)),
		},
		maxDepth: defaultMaxDepth,
	}
}

// Insert adds id with bounding box b to the tree.
func (o *Octree) Insert(b d3.Box, id int) {
	o.root.insert(b, id, o.maxDepth)
}

// Query appends to dst every id whose box may overlap b. Duplicates are
// possible; callers deduplicate.
func (o *Octree) Query(b d3.Box, dst []int) []int {
	return o.root.query(b, dst)
}

func (n *node) insert(b d3.Box, id int, maxDepth int) {
	if n.children != nil {
		matched := false
		for i := range n.children {
			c := &n.children[i]
			if c.bounds.Overlaps(b) {
				c.insert(b, id, maxDepth)
				matched = true
			}
		}
		if !matched {
			// Outside every child, e.g. beyond the root bounds. Keep it
			// on this node so it is never lost.
			n.boxes = append(n.boxes, b)
			n.ids = append(n.ids, id)
		}
		return
	}
	n.boxes = append(n.boxes, b)
	n.ids = append(n.ids, id)
	if len(n.ids) > defaultMaxItems && n.depth < maxDepth {
		n.split(maxDepth)
	}
}

func (n *node) split(maxDepth int) {
	mid := n.bounds.Center()
	var children [8]node
	for i := 0; i < 8; i++ {
		min, max := n.bounds.Min, n.bounds.Max
		cmin, cmax := min, mid
		if i&1 != 0 {
			cmin.X, cmax.X = mid.X, max.X
		}
		if i&2 != 0 {
			cmin.Y, cmax.Y = mid.Y, max.Y
		}
		if i&4 != 0 {
			cmin.Z, cmax.Z = mid.Z, max.Z
		}
		children[i] = node{
			bounds: d3.Box{Min: cmin, Max: cmax},
			depth:  n.depth + 1,
		}
	}
	n.children = &children
	boxes, ids := n.boxes, n.ids
	n.boxes, n.ids = nil, nil
	for i := range ids {
		n.insert(boxes[i], ids[i], maxDepth)
	}
}

func (n *node) query(b d3.Box, dst []int) []int {
	for i, ib := range n.boxes {
		if ib.Overlaps(b) {
			dst = append(dst, n.ids[i])
		}
	}
	if n.children == nil {
		return dst
	}
	for i := range n.children {
		c := &n.children[i]
		if c.bounds.Overlaps(b) {
			dst = c.query(b, dst)
		}
	}
	return dst
}
