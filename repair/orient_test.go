package repair_test

import (
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/repair"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestOrientFixesFlippedFace(t *testing.T) {
	verts, faces := testmesh.Cube(1, r3.Vec{})
	faces[3][1], faces[3][2] = faces[3][2], faces[3][1]
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	report := repair.Orient(m)
	if report.FacesFlipped != 1 {
		t.Fatalf("report = %+v, want 1 flip", report)
	}
	if got := m.SignedVolume(); got <= 0 {
		t.Errorf("signed volume = %v after orient", got)
	}
}

func TestOrientFlipsInvertedComponent(t *testing.T) {
	verts, faces := testmesh.Cube(1, r3.Vec{})
	for i := range faces {
		faces[i][1], faces[i][2] = faces[i][2], faces[i][1]
	}
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	if m.SignedVolume() >= 0 {
		t.Fatal("test mesh not inverted")
	}
	report := repair.Orient(m)
	if report.ComponentsFlipped != 1 {
		t.Fatalf("report = %+v, want 1 component flip", report)
	}
	if got := m.SignedVolume(); got <= 0 {
		t.Errorf("signed volume = %v after orient", got)
	}
}

func TestOrientConsistentMeshUntouched(t *testing.T) {
	verts, faces := testmesh.Icosphere(1)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	report := repair.Orient(m)
	if report.FacesFlipped != 0 || report.ComponentsFlipped != 0 {
		t.Errorf("consistent mesh changed: %+v", report)
	}
}
