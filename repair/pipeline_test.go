package repair_test

import (
	"context"
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/repair"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPipelineRepairsDamagedMesh(t *testing.T) {
	// Icosahedron with a missing face, a flipped face, and a floating
	// debris triangle.
	verts, faces := testmesh.Icosahedron()
	faces[5][1], faces[5][2] = faces[5][2], faces[5][1]
	verts = append(verts,
		r3.Vec{X: 10}, r3.Vec{X: 10.01}, r3.Vec{X: 10, Y: 0.01},
	)
	n := len(verts)
	faces = append(faces, [3]int{n - 3, n - 2, n - 1})
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	m.KillFace(0)

	report, err := repair.Run(context.Background(), m, repair.DefaultConfig(m))
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != repair.StatusFull {
		t.Fatalf("status = %v, stages: %+v", report.Status, report.Stages)
	}
	if !report.Closed {
		t.Error("mesh not closed after repair")
	}
	if m.FaceCount() != 20 {
		t.Errorf("face count = %d, want 20", m.FaceCount())
	}
	if m.SignedVolume() <= 0 {
		t.Error("repaired mesh not outward wound")
	}
}

func TestPipelineCancellation(t *testing.T) {
	verts, faces := testmesh.Icosphere(2)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := repair.Run(ctx, m, repair.DefaultConfig(m))
	if err == nil {
		t.Fatal("cancelled run succeeded")
	}
	if report.Status != repair.StatusFailed {
		t.Errorf("status = %v, want failed", report.Status)
	}
}

func TestPipelineStagesDisabled(t *testing.T) {
	verts, faces := testmesh.Icosahedron()
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	m.KillFace(0)
	cfg := repair.Config{FillHoles: false}
	report, err := repair.Run(context.Background(), m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if report.Closed {
		t.Error("hole filled with every stage disabled")
	}
	if m.FaceCount() != 19 {
		t.Errorf("face count = %d, want 19", m.FaceCount())
	}
}
