package repair_test

import (
	"context"
	"math"
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/repair"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestFindHolesClosedMesh(t *testing.T) {
	verts, faces := testmesh.Icosphere(1)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	loops, err := repair.FindHoles(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 0 {
		t.Errorf("closed mesh has %d holes", len(loops))
	}
}

func TestFindHolesMissingFace(t *testing.T) {
	verts, faces := testmesh.Icosahedron()
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	removed := faces[0]
	m.KillFace(0)
	loops, err := repair.FindHoles(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 1 {
		t.Fatalf("got %d holes, want 1", len(loops))
	}
	loop := loops[0]
	if !loop.Valid {
		t.Fatalf("hole invalid: %s", loop.Reason)
	}
	if len(loop.Vertices) != 3 {
		t.Fatalf("hole has %d vertices, want 3", len(loop.Vertices))
	}
	want := 0.0
	for i := 0; i < 3; i++ {
		a := verts[removed[i]]
		b := verts[removed[(i+1)%3]]
		want += r3.Norm(r3.Sub(b, a))
	}
	if math.Abs(loop.Perimeter-want) > 1e-12 {
		t.Errorf("perimeter = %v, want %v", loop.Perimeter, want)
	}
}

func TestFillHolesClosesMissingFace(t *testing.T) {
	verts, faces := testmesh.Icosahedron()
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	m.KillFace(0)
	report, err := repair.FillHoles(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Complete() || report.Filled != 1 || report.FacesAdded != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !m.IsClosed() {
		t.Error("mesh still open after fill")
	}
	// A second pass finds nothing.
	report, err = repair.FillHoles(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if report.Found != 0 {
		t.Errorf("second pass found %d holes", report.Found)
	}
}

func TestFillHolesGridRim(t *testing.T) {
	verts, faces := testmesh.Grid(5, 4)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	loops, err := repair.FindHoles(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(loops) != 1 {
		t.Fatalf("grid rim yields %d loops, want 1", len(loops))
	}
	if got, want := len(loops[0].Vertices), 2*(5-1)+2*(4-1); got != want {
		t.Fatalf("rim has %d vertices, want %d", got, want)
	}
	report, err := repair.FillHoles(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Complete() {
		t.Fatalf("rim not filled: %v", report.Failed)
	}
	if !m.IsClosed() {
		t.Error("filled grid not edge-closed")
	}
}

func TestFillHoleInvalidLoop(t *testing.T) {
	m, err := meshfix.New([]r3.Vec{{}, {X: 1}, {Y: 1}}, [][3]int{{0, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	before := m.FaceCount()
	loop := repair.Loop{Vertices: []int{0, 1}, Valid: false, Reason: "fewer than 3 boundary vertices"}
	_, err = repair.FillHole(context.Background(), m, loop)
	if _, ok := err.(*meshfix.DegenerateHoleError); !ok {
		t.Fatalf("got %v, want DegenerateHoleError", err)
	}
	if m.FaceCount() != before {
		t.Error("invalid loop mutated the mesh")
	}
}

func TestFillHoleCancellation(t *testing.T) {
	verts, faces := testmesh.Grid(8, 8)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	loops, err := repair.FindHoles(m)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := m.FaceCount()
	if _, err := repair.FillHole(ctx, m, loops[0]); err == nil {
		t.Fatal("cancelled fill succeeded")
	}
	if m.FaceCount() != before {
		t.Error("cancelled fill committed faces")
	}
}
