package meshfix

import "fmt"

// MalformedInputError reports structurally invalid mesh input such as an
// out of range vertex index or a triangle with repeated corners. It is not
// recoverable: no partial result is produced.
type MalformedInputError struct {
	Reason string
}

func (e *MalformedInputError) Error() string {
	return "meshfix: malformed input: " + e.Reason
}

// InvalidParameterError reports a caller supplied parameter violating a
// documented precondition. The mesh is never mutated before the check.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("meshfix: invalid parameter %q: %s", e.Param, e.Reason)
}

// DegenerateHoleError reports a boundary loop that could not be
// triangulated, for example a self-intersecting or collapsed boundary.
// The hole is left unfilled; other holes proceed.
type DegenerateHoleError struct {
	Loop   []int
	Reason string
}

func (e *DegenerateHoleError) Error() string {
	return fmt.Sprintf("meshfix: degenerate hole (%d boundary vertices): %s", len(e.Loop), e.Reason)
}

// IntersectionRepairIncompleteError reports that removing intersecting
// faces left holes which could not all be filled. The mesh stays in the
// partially repaired state; the caller decides whether to accept it.
type IntersectionRepairIncompleteError struct {
	Removed  int
	Unfilled int
}

func (e *IntersectionRepairIncompleteError) Error() string {
	return fmt.Sprintf("meshfix: intersection repair incomplete: removed %d faces, %d holes left unfilled", e.Removed, e.Unfilled)
}

// InsufficientLandmarksError reports fewer landmarks than required to
// describe a closed contour.
type InsufficientLandmarksError struct {
	Got int
}

func (e *InsufficientLandmarksError) Error() string {
	return fmt.Sprintf("meshfix: need at least 3 landmarks for a closed contour, got %d", e.Got)
}
