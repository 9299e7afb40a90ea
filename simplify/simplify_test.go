package simplify_test

import (
	"context"
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/simplify"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSimplifyToFaceCount(t *testing.T) {
	verts, faces := testmesh.Icosphere(2) // 320 faces
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	res, err := simplify.Simplify(context.Background(), m, simplify.Options{TargetFaces: 80})
	if err != nil {
		t.Fatal(err)
	}
	if res.InputFaces != 320 {
		t.Fatalf("input faces = %d, want 320", res.InputFaces)
	}
	// Each collapse removes two faces, so the result lands on the target
	// or one face short of it.
	if res.OutputFaces > 80 {
		t.Errorf("output faces = %d, want <= 80", res.OutputFaces)
	}
	if res.OutputFaces < 70 {
		t.Errorf("output faces = %d, overshot the target badly", res.OutputFaces)
	}
	if !m.IsClosed() {
		t.Error("simplified sphere not closed")
	}
	if m.SignedVolume() <= 0 {
		t.Error("simplified sphere not outward wound")
	}
}

func TestSimplifyByRatio(t *testing.T) {
	verts, faces := testmesh.Icosphere(2)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	res, err := simplify.Simplify(context.Background(), m, simplify.Options{TargetRatio: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if res.OutputFaces > 160 {
		t.Errorf("output faces = %d, want <= 160", res.OutputFaces)
	}
}

func TestSimplifyRejectsBadRatio(t *testing.T) {
	verts, faces := testmesh.Icosahedron()
	m, _ := meshfix.New(verts, faces)
	for _, ratio := range []float64{0, -1, 1.5} {
		_, err := simplify.Simplify(context.Background(), m, simplify.Options{TargetRatio: ratio})
		if _, ok := err.(*meshfix.InvalidParameterError); !ok {
			t.Errorf("ratio %v: got %v, want InvalidParameterError", ratio, err)
		}
	}
}

func TestSimplifyAtTargetIsNoOp(t *testing.T) {
	verts, faces := testmesh.Icosahedron()
	m, _ := meshfix.New(verts, faces)
	res, err := simplify.Simplify(context.Background(), m, simplify.Options{TargetFaces: 20})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collapsed != 0 || res.OutputFaces != 20 {
		t.Errorf("result = %+v, want untouched mesh", res)
	}
}

func TestSimplifyPreservesBorders(t *testing.T) {
	verts, faces := testmesh.Grid(8, 8)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	top, _, err := m.BuildTopology()
	if err != nil {
		t.Fatal(err)
	}
	rim := make(map[r3.Vec]bool)
	for i, b := range top.BorderVertices() {
		if b {
			rim[m.Vertices[i]] = true
		}
	}
	res, err := simplify.Simplify(context.Background(), m, simplify.Options{
		TargetFaces:     40,
		PreserveBorders: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collapsed == 0 {
		t.Fatal("nothing collapsed")
	}
	// Every rim position must survive untouched.
	top, _, err = m.BuildTopology()
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[r3.Vec]bool)
	for i, b := range top.BorderVertices() {
		if b {
			got[m.Vertices[i]] = true
		}
	}
	if len(got) != len(rim) {
		t.Fatalf("rim has %d vertices, want %d", len(got), len(rim))
	}
	for v := range rim {
		if !got[v] {
			t.Errorf("rim position %v lost", v)
		}
	}
}
