package smooth_test

import (
	"context"
	"testing"

	"github.com/meshworks/meshfix"
	"github.com/meshworks/meshfix/internal/testmesh"
	"github.com/meshworks/meshfix/smooth"
)

func sphere(t *testing.T) *meshfix.Mesh {
	t.Helper()
	verts, faces := testmesh.Icosphere(2)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestLaplacianShrinks(t *testing.T) {
	m := sphere(t)
	v0, f0 := m.VertexCount(), m.FaceCount()
	vol0 := m.SignedVolume()
	if err := smooth.Run(context.Background(), m, smooth.Laplacian, 5, smooth.Options{}); err != nil {
		t.Fatal(err)
	}
	if m.VertexCount() != v0 || m.FaceCount() != f0 {
		t.Fatal("smoothing changed element counts")
	}
	if vol := m.SignedVolume(); vol >= vol0 {
		t.Errorf("volume %v did not shrink from %v", vol, vol0)
	}
}

func TestZeroIterationsIsNoOp(t *testing.T) {
	m := sphere(t)
	orig := m.Clone()
	if err := smooth.Run(context.Background(), m, smooth.Laplacian, 0, smooth.Options{}); err != nil {
		t.Fatal(err)
	}
	for i := range m.Vertices {
		if m.Vertices[i] != orig.Vertices[i] {
			t.Fatalf("vertex %d moved with zero iterations", i)
		}
	}
}

func TestTaubinShrinksLessThanLaplacian(t *testing.T) {
	lap := sphere(t)
	tau := sphere(t)
	vol0 := lap.SignedVolume()
	if err := smooth.Run(context.Background(), lap, smooth.Laplacian, 10, smooth.Options{}); err != nil {
		t.Fatal(err)
	}
	if err := smooth.Run(context.Background(), tau, smooth.Taubin, 10, smooth.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	lapLoss := vol0 - lap.SignedVolume()
	tauLoss := vol0 - tau.SignedVolume()
	if tauLoss >= lapLoss {
		t.Errorf("taubin lost %v volume, laplacian %v", tauLoss, lapLoss)
	}
}

func TestTaubinParameterValidation(t *testing.T) {
	cases := []struct {
		name string
		opts smooth.Options
	}{
		{"mu below lambda", smooth.Options{Lambda: 0.6, Mu: 0.5}},
		{"mu equal lambda", smooth.Options{Lambda: 0.5, Mu: 0.5}},
		{"lambda out of range", smooth.Options{Lambda: 1.5, Mu: 0.6}},
		{"mu out of range", smooth.Options{Lambda: 0.5, Mu: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := sphere(t)
			orig := m.Clone()
			err := smooth.Run(context.Background(), m, smooth.Taubin, 1, tc.opts)
			if _, ok := err.(*meshfix.InvalidParameterError); !ok {
				t.Fatalf("got %v, want InvalidParameterError", err)
			}
			for i := range m.Vertices {
				if m.Vertices[i] != orig.Vertices[i] {
					t.Fatal("mesh mutated before validation failed")
				}
			}
		})
	}
}

func TestHCParameterValidation(t *testing.T) {
	m := sphere(t)
	err := smooth.Run(context.Background(), m, smooth.LaplacianHC, 1, smooth.Options{Alpha: -0.1, Beta: 0.5})
	if _, ok := err.(*meshfix.InvalidParameterError); !ok {
		t.Fatalf("got %v, want InvalidParameterError", err)
	}
}

func TestBorderVerticesPinned(t *testing.T) {
	verts, faces := testmesh.Grid(6, 6)
	m, err := meshfix.New(verts, faces)
	if err != nil {
		t.Fatal(err)
	}
	// Lift an interior vertex so smoothing has something to flatten; a
	// perfectly flat uniform grid is a Laplacian fixed point.
	lifted := 2*6 + 3
	m.Vertices[lifted].Z = 1
	orig := m.Clone()
	top, _, err := m.BuildTopology()
	if err != nil {
		t.Fatal(err)
	}
	border := top.BorderVertices()
	if err := smooth.Run(context.Background(), m, smooth.Laplacian, 3, smooth.Options{}); err != nil {
		t.Fatal(err)
	}
	for i, b := range border {
		if b && m.Vertices[i] != orig.Vertices[i] {
			t.Errorf("border vertex %d moved", i)
		}
	}
	if m.Vertices[lifted].Z >= 1 {
		t.Errorf("lifted vertex did not relax, z = %v", m.Vertices[lifted].Z)
	}
}

func TestTangentialKeepsSphereRadius(t *testing.T) {
	m := sphere(t)
	if err := smooth.Run(context.Background(), m, smooth.TangentialRelax, 5, smooth.Options{}); err != nil {
		t.Fatal(err)
	}
	// Tangential moves stay near the unit sphere; plain Laplacian would
	// pull well inside it.
	for i, v := range m.Vertices {
		r := v.X*v.X + v.Y*v.Y + v.Z*v.Z
		if r < 0.9 {
			t.Fatalf("vertex %d collapsed inward, |v|^2 = %v", i, r)
		}
	}
}

func TestUnknownMethodRejected(t *testing.T) {
	m := sphere(t)
	err := smooth.Run(context.Background(), m, smooth.Method(99), 1, smooth.Options{})
	if _, ok := err.(*meshfix.InvalidParameterError); !ok {
		t.Fatalf("got %v, want InvalidParameterError", err)
	}
}
