package repair_test

import (
	"context"
	"os"
	"testing"

	"github.com/deadsy/sdfx/obj"
	sdfxrender "github.com/deadsy/sdfx/render"
	"github.com/fogleman/fauxgl"
	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/d3"
	"github.com/meshworks/meshfix/repair"
)

const benchQuality = 100

// boltMesh marches an sdfx bolt model to STL and loads it back as a mesh,
// giving the benchmarks a realistic model with threads and sharp features.
func boltMesh(tb testing.TB) *meshfix.Mesh {
	tb.Helper()
	const output = "sdfx_bolt.stl"
	stdout := os.Stdout
	defer func() {
		os.Stdout = stdout // pesky sdfx prints out stuff
	}()
	os.Stdout, _ = os.Open(os.DevNull)
	object, err := obj.Bolt(&obj.BoltParms{
		Thread:      "npt_1/2",
		Style:       "hex",
		Tolerance:   0.1,
		TotalLength: 20,
		ShankLength: 10,
	})
	if err != nil {
		tb.Fatal(err)
	}
	sdfxrender.ToSTL(object, benchQuality, output, &sdfxrender.MarchingCubesOctree{})
	defer os.Remove(output)
	fm, err := fauxgl.LoadSTL(output)
	if err != nil {
		tb.Fatal(err)
	}
	tris := make([]d3.Triangle, 0, len(fm.Triangles))
	for _, t := range fm.Triangles {
		tris = append(tris, d3.Triangle{
			{X: t.V1.Position.X, Y: t.V1.Position.Y, Z: t.V1.Position.Z},
			{X: t.V2.Position.X, Y: t.V2.Position.Y, Z: t.V2.Position.Z},
			{X: t.V3.Position.X, Y: t.V3.Position.Y, Z: t.V3.Position.Z},
		})
	}
	m, err := meshfix.FromTriangles(tris, 0)
	if err != nil {
		tb.Fatal(err)
	}
	return m
}

func BenchmarkPipelineBolt(b *testing.B) {
	m := boltMesh(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		work := m.Clone()
		if _, err := repair.Run(ctx, work, repair.DefaultConfig(work)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDetectIntersectionsBolt(b *testing.B) {
	m := boltMesh(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repair.DetectIntersections(ctx, m); err != nil {
			b.Fatal(err)
		}
	}
}
