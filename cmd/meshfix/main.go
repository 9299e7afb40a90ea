// Command meshfix repairs a triangulated STL model: orientation, small
// component removal, degenerate collapse, self-intersection removal and
// hole filling, with optional simplification and smoothing afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fogleman/fauxgl"
	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/d3"
	"github.com/meshworks/meshfix/repair"
	"github.com/meshworks/meshfix/simplify"
	"github.com/meshworks/meshfix/smooth"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("meshfix: ")

	var (
		inPath   = flag.String("i", "", "input STL file")
		outPath  = flag.String("o", "", "output STL file")
		timeout  = flag.Duration("timeout", 5*time.Minute, "wall clock limit for the whole run")
		iters    = flag.Int("iterations", 1, "repair pipeline iterations")
		weld     = flag.Float64("weld", 0, "vertex weld tolerance, 0 infers from the model")
		ratio    = flag.Float64("component-ratio", 0.01, "remove components below this area ratio of the largest")
		noOrient = flag.Bool("no-orient", false, "skip winding normalization")
		noComp   = flag.Bool("no-components", false, "skip small component removal")
		noEdges  = flag.Bool("no-collapse", false, "skip short edge collapse")
		noInter  = flag.Bool("no-intersections", false, "skip self-intersection removal")
		noHoles  = flag.Bool("no-holes", false, "skip hole filling")
		simp     = flag.Float64("simplify", 0, "simplify to this fraction of the input faces, 0 disables")
		smoothN  = flag.Int("smooth", 0, "Taubin smoothing iterations after repair, 0 disables")
	)
	flag.Parse()
	if *inPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*inPath, *outPath, options{
		timeout: *timeout, iterations: *iters, weld: *weld, ratio: *ratio,
		orient: !*noOrient, components: !*noComp, collapse: !*noEdges,
		intersections: !*noInter, holes: !*noHoles,
		simplifyRatio: *simp, smoothIters: *smoothN,
	}); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	timeout       time.Duration
	iterations    int
	weld          float64
	ratio         float64
	orient        bool
	components    bool
	collapse      bool
	intersections bool
	holes         bool
	simplifyRatio float64
	smoothIters   int
}

func run(inPath, outPath string, opt options) error {
	ctx, cancel := context.WithTimeout(context.Background(), opt.timeout)
	defer cancel()

	m, err := loadSTL(inPath, opt.weld)
	if err != nil {
		return fmt.Errorf("load %s: %w", inPath, err)
	}
	log.Printf("loaded %s: %d vertices, %d faces", inPath, m.VertexCount(), m.FaceCount())

	cfg := repair.DefaultConfig(m)
	cfg.Iterations = opt.iterations
	cfg.Orient = opt.orient
	cfg.RemoveSmallComponents = opt.components
	cfg.ComponentRatio = opt.ratio
	cfg.CollapseShortEdges = opt.collapse
	cfg.RemoveIntersections = opt.intersections
	cfg.FillHoles = opt.holes

	report, err := repair.Run(ctx, m, cfg)
	if err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	for _, s := range report.Stages {
		if s.Err != nil {
			log.Printf("  %s: %s (%v)", s.Stage, s.Detail, s.Err)
		} else {
			log.Printf("  %s: %s", s.Stage, s.Detail)
		}
	}
	log.Printf("repair %s, closed=%v", report.Status, report.Closed)

	if opt.simplifyRatio > 0 {
		res, err := simplify.Simplify(ctx, m, simplify.Options{
			TargetRatio:     opt.simplifyRatio,
			PreserveBorders: true,
		})
		if err != nil {
			return fmt.Errorf("simplify: %w", err)
		}
		log.Printf("simplified %d -> %d faces", res.InputFaces, res.OutputFaces)
	}
	if opt.smoothIters > 0 {
		if err := smooth.Run(ctx, m, smooth.Taubin, opt.smoothIters, smooth.DefaultOptions()); err != nil {
			return fmt.Errorf("smooth: %w", err)
		}
		log.Printf("smoothed %d iterations", opt.smoothIters)
	}

	if err := saveSTL(outPath, m); err != nil {
		return fmt.Errorf("save %s: %w", outPath, err)
	}
	log.Printf("wrote %s: %d vertices, %d faces", outPath, m.VertexCount(), m.FaceCount())
	return nil
}

func loadSTL(path string, weldTol float64) (*meshfix.Mesh, error) {
	fm, err := fauxgl.LoadSTL(path)
	if err != nil {
		return nil, err
	}
	tris := make([]d3.Triangle, 0, len(fm.Triangles))
	for _, t := range fm.Triangles {
		tris = append(tris, d3.Triangle{
			vec(t.V1.Position), vec(t.V2.Position), vec(t.V3.Position),
		})
	}
	return meshfix.FromTriangles(tris, weldTol)
}

func saveSTL(path string, m *meshfix.Mesh) error {
	m.Compact()
	tris := make([]*fauxgl.Triangle, 0, len(m.Faces))
	for i := range m.Faces {
		t := m.FaceTriangle(i)
		tris = append(tris, fauxgl.NewTriangleForPoints(
			fauxgl.V(t[0].X, t[0].Y, t[0].Z),
			fauxgl.V(t[1].X, t[1].Y, t[1].Z),
			fauxgl.V(t[2].X, t[2].Y, t[2].Z),
		))
	}
	return fauxgl.SaveSTL(path, fauxgl.NewTriangleMesh(tris))
}

func vec(v fauxgl.Vector) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }
