package annotate

import (
	"container/heap"
	"math"

	"github.com/meshworks/meshfix"
	"gonum.org/v1/gonum/spatial/r3"
)

// Landmark is a point pinned to a face by barycentric coordinates, so it
// follows the surface under deformations that keep topology, such as
// smoothing.
type Landmark struct {
	Face    int
	U, V, W float64
}

// CreateLandmark snaps position onto face and returns the landmark.
// Positions off the face are projected onto its plane and clamped into
// the triangle. Returns *meshfix.InvalidParameterError for a dead face.
func CreateLandmark(m *meshfix.Mesh, face int, position r3.Vec) (Landmark, error) {
	if !m.FaceAlive(face) {
		return Landmark{}, &meshfix.InvalidParameterError{Param: "face", Reason: "not a live face"}
	}
	tri := m.FaceTriangle(face)
	u, v, w := tri.Barycentric(tri.Closest(position))
	return Landmark{Face: face, U: u, V: v, W: w}, nil
}

// Position returns the landmark's current location on the mesh.
func (l Landmark) Position(m *meshfix.Mesh) r3.Vec {
	return m.FaceTriangle(l.Face).Interpolate(l.U, l.V, l.W)
}

// PatchFromLandmarks treats the ordered landmarks as a closed contour
// threaded through their faces and returns the patch the contour encloses:
// the contour faces plus the flood-filled region they bound. Consecutive
// landmarks are joined by the shortest face path over shared edges.
// Requires at least three landmarks (*meshfix.InsufficientLandmarksError)
// and live landmark faces (*meshfix.InvalidParameterError). When the
// contour does not separate the surface the patch degenerates to the
// contour faces alone.
func PatchFromLandmarks(m *meshfix.Mesh, landmarks []Landmark) (Patch, error) {
	if len(landmarks) < 3 {
		return Patch{}, &meshfix.InsufficientLandmarksError{Got: len(landmarks)}
	}
	for _, l := range landmarks {
		if !m.FaceAlive(l.Face) {
			return Patch{}, &meshfix.InvalidParameterError{Param: "landmarks", Reason: "landmark on dead face"}
		}
	}
	adj := faceAdjacency(m)

	contour := make(map[int]bool)
	for i, l := range landmarks {
		next := landmarks[(i+1)%len(landmarks)]
		path := shortestFacePath(m, adj, l.Face, next.Face)
		if path == nil {
			return Patch{}, &meshfix.InvalidParameterError{Param: "landmarks", Reason: "landmark faces not connected"}
		}
		for _, f := range path {
			contour[f] = true
		}
	}

	// The contour splits the remaining faces into regions; the enclosed
	// patch is taken as the smallest region by area.
	visited := make(map[int]bool)
	var best []int
	bestArea := math.MaxFloat64
	regions := 0
	for f := range adj {
		if contour[f] || visited[f] {
			continue
		}
		var region []int
		area := 0.0
		stack := []int{f}
		visited[f] = true
		for len(stack) > 0 {
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			region = append(region, g)
			area += m.FaceArea(g)
			for _, h := range adj[g] {
				if !contour[h] && !visited[h] {
					visited[h] = true
					stack = append(stack, h)
				}
			}
		}
		regions++
		if area < bestArea {
			best, bestArea = region, area
		}
	}

	in := make(map[int]bool, len(contour))
	for f := range contour {
		in[f] = true
	}
	if regions > 1 {
		for _, f := range best {
			in[f] = true
		}
	}
	return newPatch(m, in), nil
}

// shortestFacePath runs Dijkstra over the face adjacency graph with
// centroid distances as edge weights. Returns nil when no path exists.
func shortestFacePath(m *meshfix.Mesh, adj map[int][]int, from, to int) []int {
	if from == to {
		return []int{from}
	}
	dist := map[int]float64{from: 0}
	prev := make(map[int]int)
	pq := &pathHeap{{face: from, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathNode)
		if cur.dist > dist[cur.face] {
			continue
		}
		if cur.face == to {
			break
		}
		for _, n := range adj[cur.face] {
			d := cur.dist + r3.Norm(r3.Sub(m.FaceCentroid(n), m.FaceCentroid(cur.face)))
			if old, ok := dist[n]; !ok || d < old {
				dist[n] = d
				prev[n] = cur.face
				heap.Push(pq, pathNode{face: n, dist: d})
			}
		}
	}
	if _, ok := dist[to]; !ok {
		return nil
	}
	var path []int
	for f := to; ; f = prev[f] {
		path = append(path, f)
		if f == from {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type pathNode struct {
	face int
	dist float64
}

type pathHeap []pathNode

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(pathNode)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
