package repair

import (
	"context"
	"fmt"

	"github.com/meshworks/meshfix"
)

// Config selects and parameterizes the pipeline stages. Stages run in the
// order of the fields below; disabled stages are skipped.
type Config struct {
	// Iterations runs the whole enabled stage sequence this many times.
	// Zero means one.
	Iterations int

	Orient bool

	RemoveSmallComponents bool
	Connectivity          Connectivity
	ComponentRatio        float64

	CollapseShortEdges bool
	MinEdgeLength      float64

	RemoveSmallFaces bool
	MinFaceArea      float64

	RemoveIntersections bool

	FillHoles bool
}

// DefaultConfig returns the full pipeline with thresholds relative to the
// mesh scale.
func DefaultConfig(m *meshfix.Mesh) Config {
	scale := m.Scale()
	return Config{
		Iterations:            1,
		Orient:                true,
		RemoveSmallComponents: true,
		Connectivity:          EdgeConnectivity,
		ComponentRatio:        0.01,
		CollapseShortEdges:    true,
		MinEdgeLength:         1e-5 * scale,
		RemoveSmallFaces:      true,
		MinFaceArea:           1e-10 * scale * scale,
		RemoveIntersections:   true,
		FillHoles:             true,
	}
}

// Status classifies the pipeline outcome.
type Status int

const (
	// StatusFull means every enabled stage completed without residue.
	StatusFull Status = iota
	// StatusPartial means some stage reported unrepaired residue, for
	// example holes it could not triangulate. The mesh holds everything
	// that did succeed.
	StatusPartial
	// StatusFailed means the pipeline aborted on malformed input or
	// cancellation.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFull:
		return "full"
	case StatusPartial:
		return "partial"
	default:
		return "failed"
	}
}

// StageResult records one stage run.
type StageResult struct {
	Stage     string
	Iteration int
	Detail    string
	Err       error
}

// Report is the pipeline outcome: overall status plus one record per stage
// run, in execution order.
type Report struct {
	Status Status
	Stages []StageResult
	// Closed reports whether the mesh ended with no border half-edges.
	Closed bool
}

// Run executes the configured repair stages in place. Partial-failure
// errors from individual stages (unfillable holes, incomplete intersection
// repair) are recorded in the report and do not stop later stages; the
// returned error is non-nil only when the pipeline aborts outright. The
// mesh is compacted before Run returns.
func Run(ctx context.Context, m *meshfix.Mesh, cfg Config) (Report, error) {
	report := Report{Status: StatusFull}
	iters := cfg.Iterations
	if iters < 1 {
		iters = 1
	}
	record := func(iter int, stage, detail string, err error) {
		report.Stages = append(report.Stages, StageResult{
			Stage: stage, Iteration: iter, Detail: detail, Err: err,
		})
		if err != nil {
			report.Status = StatusPartial
		}
	}
	fail := func(err error) (Report, error) {
		report.Status = StatusFailed
		return report, err
	}

	// Topology always runs first: later stages assume manifold edges.
	_, build, err := m.BuildTopology()
	if err != nil {
		return fail(err)
	}
	if build.NonManifoldFixed {
		record(0, "topology", fmt.Sprintf("duplicated vertices for %d non-manifold spots", len(build.DuplicatedVertices)), nil)
	}

	for iter := 1; iter <= iters; iter++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if cfg.Orient {
			r := Orient(m)
			record(iter, "orient", fmt.Sprintf("flipped %d faces", r.FacesFlipped), nil)
		}
		if cfg.RemoveSmallComponents {
			r, err := RemoveSmallComponents(m, cfg.Connectivity, cfg.ComponentRatio)
			if err != nil {
				return fail(err)
			}
			record(iter, "components", fmt.Sprintf("removed %d of %d components", r.Removed, r.Components), nil)
		}
		if cfg.CollapseShortEdges {
			r, err := CollapseShortEdges(ctx, m, cfg.MinEdgeLength)
			if err != nil {
				return fail(err)
			}
			record(iter, "short-edges", fmt.Sprintf("collapsed %d edges", r.Collapsed), nil)
		}
		if cfg.RemoveSmallFaces {
			n, err := RemoveSmallFaces(m, cfg.MinFaceArea)
			if err != nil {
				return fail(err)
			}
			record(iter, "small-faces", fmt.Sprintf("removed %d faces", n), nil)
		}
		if cfg.RemoveIntersections {
			r, err := RemoveIntersections(ctx, m)
			switch err.(type) {
			case nil:
				record(iter, "intersections", fmt.Sprintf("removed %d faces for %d intersections", r.FacesRemoved, r.Intersections), nil)
			case *meshfix.IntersectionRepairIncompleteError:
				record(iter, "intersections", fmt.Sprintf("removed %d faces, %d holes unfilled", r.FacesRemoved, r.HolesFailed), err)
			default:
				return fail(err)
			}
		}
		if cfg.FillHoles {
			r, err := FillHoles(ctx, m)
			if err != nil {
				return fail(err)
			}
			var holeErr error
			if !r.Complete() {
				holeErr = r.Failed[0]
			}
			record(iter, "holes", fmt.Sprintf("filled %d of %d holes", r.Filled, r.Found), holeErr)
		}
	}

	m.Compact()
	report.Closed = m.IsClosed()
	return report, nil
}
