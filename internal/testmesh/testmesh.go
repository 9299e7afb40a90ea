// Package testmesh builds small closed meshes for tests and benchmarks.
package testmesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Icosahedron returns the 12 vertices and 20 outward-wound faces of the
// unit icosahedron.
func Icosahedron() ([]r3.Vec, [][3]int) {
	t := (1 + math.Sqrt(5)) / 2
	raw := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	vertices := make([]r3.Vec, len(raw))
	for i, v := range raw {
		vertices[i] = r3.Scale(1/r3.Norm(v), v)
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return vertices, faces
}

// Icosphere subdivides the icosahedron n times, projecting new vertices
// onto the unit sphere. n of zero returns the icosahedron.
func Icosphere(n int) ([]r3.Vec, [][3]int) {
	vertices, faces := Icosahedron()
	for s := 0; s < n; s++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if i, ok := mid[key]; ok {
				return i
			}
			p := r3.Scale(0.5, r3.Add(vertices[a], vertices[b]))
			p = r3.Scale(1/r3.Norm(p), p)
			vertices = append(vertices, p)
			mid[key] = len(vertices) - 1
			return mid[key]
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}
	return vertices, faces
}

// Cube returns a closed axis-aligned cube spanning [0,size]^3 with
// outward-wound faces, translated by offset.
func Cube(size float64, offset r3.Vec) ([]r3.Vec, [][3]int) {
	var vertices []r3.Vec
	for i := 0; i < 8; i++ {
		v := r3.Vec{
			X: float64(i&1) * size,
			Y: float64(i>>1&1) * size,
			Z: float64(i>>2&1) * size,
		}
		vertices = append(vertices, r3.Add(v, offset))
	}
	faces := [][3]int{
		{0, 2, 1}, {1, 2, 3}, // z=0
		{4, 5, 6}, {5, 7, 6}, // z=size
		{0, 1, 4}, {1, 5, 4}, // y=0
		{2, 6, 3}, {3, 6, 7}, // y=size
		{0, 4, 2}, {2, 4, 6}, // x=0
		{1, 3, 5}, {3, 7, 5}, // x=size
	}
	return vertices, faces
}

// Grid returns an open nx by ny vertex grid in the z=0 plane with unit
// spacing, triangulated with consistent winding. Useful for border and
// smoothing tests since every rim vertex is a border vertex.
func Grid(nx, ny int) ([]r3.Vec, [][3]int) {
	var vertices []r3.Vec
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			vertices = append(vertices, r3.Vec{X: float64(x), Y: float64(y)})
		}
	}
	var faces [][3]int
	for y := 0; y < ny-1; y++ {
		for x := 0; x < nx-1; x++ {
			a := y*nx + x
			b := a + 1
			c := a + nx
			d := c + 1
			faces = append(faces, [3]int{a, b, c}, [3]int{b, d, c})
		}
	}
	return vertices, faces
}

// Merge concatenates two vertex/face lists, offsetting the second's
// indices.
func Merge(v1 []r3.Vec, f1 [][3]int, v2 []r3.Vec, f2 [][3]int) ([]r3.Vec, [][3]int) {
	vertices := append(append([]r3.Vec(nil), v1...), v2...)
	faces := append([][3]int(nil), f1...)
	off := len(v1)
	for _, f := range f2 {
		faces = append(faces, [3]int{f[0] + off, f[1] + off, f[2] + off})
	}
	return vertices, faces
}
