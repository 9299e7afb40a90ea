package repair_test

import (
	"math"
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/repair"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestComponentsTwoCubes(t *testing.T) {
	v1, f1 := testmesh.Cube(2, r3.Vec{})
	v2, f2 := testmesh.Cube(0.5, r3.Vec{X: 10})
	verts, faces := testmesh.Merge(v1, f1, v2, f2)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	comps := repair.Components(m, repair.EdgeConnectivity)
	if len(comps) != 2 {
		t.Fatalf("got %d components, want 2", len(comps))
	}
	for _, c := range comps {
		if len(c.Faces) != 12 || c.VertexCount != 8 {
			t.Errorf("component has %d faces, %d vertices", len(c.Faces), c.VertexCount)
		}
	}
	if got, want := comps[0].Area, 6.0*4; math.Abs(got-want) > 1e-9 {
		t.Errorf("big cube area = %v, want %v", got, want)
	}
	if got, want := comps[1].Area, 6.0*0.25; math.Abs(got-want) > 1e-9 {
		t.Errorf("small cube area = %v, want %v", got, want)
	}
}

func TestConnectivityModes(t *testing.T) {
	// Two triangles touching at a single vertex.
	verts := []r3.Vec{
		{}, {X: 1}, {Y: 1},
		{X: -1, Z: 1}, {X: -1, Z: -1},
	}
	faces := [][3]int{{0, 1, 2}, {0, 3, 4}}
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(repair.Components(m, repair.VertexConnectivity)); got != 1 {
		t.Errorf("vertex connectivity: %d components, want 1", got)
	}
	if got := len(repair.Components(m, repair.EdgeConnectivity)); got != 2 {
		t.Errorf("edge connectivity: %d components, want 2", got)
	}
}

func TestRemoveSmallComponents(t *testing.T) {
	v1, f1 := testmesh.Cube(2, r3.Vec{})
	v2, f2 := testmesh.Cube(0.5, r3.Vec{X: 10})
	verts, faces := testmesh.Merge(v1, f1, v2, f2)

	t.Run("zero keeps all", func(t *testing.T) {
		m, _ := meshfix.New(verts, faces)
		report, err := repair.RemoveSmallComponents(m, repair.EdgeConnectivity, 0)
		if err != nil {
			t.Fatal(err)
		}
		if report.Removed != 0 || m.FaceCount() != 24 {
			t.Errorf("ratio 0 removed %d components", report.Removed)
		}
	})
	t.Run("half removes small", func(t *testing.T) {
		m, _ := meshfix.New(verts, faces)
		report, err := repair.RemoveSmallComponents(m, repair.EdgeConnectivity, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if report.Removed != 1 || report.FacesRemoved != 12 {
			t.Fatalf("report = %+v", report)
		}
		if math.Abs(report.AreaRemoved-1.5) > 1e-9 {
			t.Errorf("area removed = %v, want 1.5", report.AreaRemoved)
		}
		if m.FaceCount() != 12 {
			t.Errorf("face count = %d, want 12", m.FaceCount())
		}
		if m.VertexCount() != 8 {
			t.Errorf("vertex count = %d, want 8 after orphan removal", m.VertexCount())
		}
	})
	t.Run("one keeps only largest", func(t *testing.T) {
		m, _ := meshfix.New(verts, faces)
		report, err := repair.RemoveSmallComponents(m, repair.EdgeConnectivity, 1)
		if err != nil {
			t.Fatal(err)
		}
		if report.Removed != 1 || m.FaceCount() != 12 {
			t.Errorf("ratio 1 left %d faces", m.FaceCount())
		}
	})
	t.Run("negative rejected", func(t *testing.T) {
		m, _ := meshfix.New(verts, faces)
		_, err := repair.RemoveSmallComponents(m, repair.EdgeConnectivity, -0.1)
		if _, ok := err.(*meshfix.InvalidParameterError); !ok {
			t.Fatalf("got %v, want InvalidParameterError", err)
		}
	})
}
