// Package field provides the fixed icosahedral substrate the resonance
// pipeline evolves over: 12 nodes on the unit sphere, each with exactly
// 5 neighbors. The geometry is pure data computed once at construction;
// per-run node state lives in buffers owned by the caller.
package field

import (
	"math"

	"rrf/internal/errors"
)

const (
	// NumNodes is the number of substrate nodes (icosahedron vertices)
	NumNodes = 12
	// NeighborsPerNode is the degree of every node in a regular icosahedron
	NeighborsPerNode = 5
)

// Position is a 3D coordinate on the unit sphere
type Position [3]float64

// Substrate is the fixed icosahedral node graph. It is immutable after
// construction and safe for concurrent use.
type Substrate struct {
	positions [NumNodes]Position
	neighbors [NumNodes][NeighborsPerNode]int
	adjacent  [NumNodes][NumNodes]bool
}

// NewSubstrate constructs the canonical icosahedron and caches its
// adjacency. The vertex set is the three orthogonal golden rectangles,
// normalized to the unit sphere.
func NewSubstrate() *Substrate {
	phi := (1 + math.Sqrt(5)) / 2
	raw := [NumNodes]Position{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}

	s := &Substrate{}
	norm := math.Sqrt(1 + phi*phi)
	for i, p := range raw {
		s.positions[i] = Position{p[0] / norm, p[1] / norm, p[2] / norm}
	}

	// Edges connect vertex pairs at the minimal inter-vertex distance
	// (edge length 2 before normalization). Anything within tolerance of
	// that distance is an edge; the regular icosahedron has no nearer
	// non-edge pair, so no tie-breaking is needed.
	edgeLen := 2.0 / norm
	const tol = 1e-9
	counts := [NumNodes]int{}
	for i := 0; i < NumNodes; i++ {
		for j := i + 1; j < NumNodes; j++ {
			if math.Abs(distance(s.positions[i], s.positions[j])-edgeLen) < tol {
				s.adjacent[i][j] = true
				s.adjacent[j][i] = true
				s.neighbors[i][counts[i]] = j
				s.neighbors[j][counts[j]] = i
				counts[i]++
				counts[j]++
			}
		}
	}

	return s
}

// NeighborsOf returns the 5 neighbor ids of the given node
func (s *Substrate) NeighborsOf(id int) ([]int, error) {
	if err := s.checkNode(id); err != nil {
		return nil, err
	}
	out := make([]int, NeighborsPerNode)
	copy(out, s.neighbors[id][:])
	return out, nil
}

// PositionOf returns the unit-sphere coordinate of the given node
func (s *Substrate) PositionOf(id int) (Position, error) {
	if err := s.checkNode(id); err != nil {
		return Position{}, err
	}
	return s.positions[id], nil
}

// Adjacent reports whether two valid node ids share an edge. Out-of-range
// ids report false.
func (s *Substrate) Adjacent(i, j int) bool {
	if i < 0 || i >= NumNodes || j < 0 || j >= NumNodes {
		return false
	}
	return s.adjacent[i][j]
}

// RestState returns a fresh zeroed state buffer, one entry per node.
// Each run owns its own buffer so concurrent runs never share state.
func (s *Substrate) RestState() []float64 {
	return make([]float64, NumNodes)
}

func (s *Substrate) checkNode(id int) error {
	if id < 0 || id >= NumNodes {
		return errors.Newf(errors.InvalidNode, "node %d outside [0,%d]", id, NumNodes-1)
	}
	return nil
}

func distance(a, b Position) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
