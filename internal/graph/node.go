// Package graph holds the transposition graph: one Node per distinct
// position identity, shared by every path that reaches it, with parent and
// child edges stored as arena handles.
package graph

import (
	"errors"

	"github.com/freeeve/cesac/internal/board"
)

var (
	// ErrUnknownPosition means an identity was expected in the graph but is
	// not there. It indicates a consistency bug between the graph and its
	// callers.
	ErrUnknownPosition = errors.New("unknown position")
	// ErrIdentityMismatch is returned by Restore when a stored identity does
	// not match the identity recomputed from the stored position.
	ErrIdentityMismatch = errors.New("identity mismatch")
	// ErrDuplicateNode is returned by Restore for an identity already present.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Handle is a dense index into the Manager's node arena.
type Handle int32

// NoHandle is never a valid handle.
const NoHandle Handle = -1

// Edge is one direction of a move between two nodes. On a parent's
// Children list Node is the child; on a child's Parents list Node is the
// parent.
type Edge struct {
	Move board.Move
	Node Handle
}

// Node is one position in the graph together with the best continuation
// found from it so far.
type Node struct {
	Position *board.Position
	ID       uint64

	BestMove board.Move
	HasBest  bool
	// Score starts at the static score and then tracks the best child score
	// from the side to move's point of view.
	Score float64

	Explored bool
	Valid    bool
	// Terminal nodes have no legal moves; their score is fixed by Resolve.
	Terminal bool

	Parents  []Edge
	Children []Edge
}

// WhiteToMove reports the side to move of the wrapped position.
func (n *Node) WhiteToMove() bool { return n.Position.WhiteToMove() }

// NodeState is the persisted form of a node, without edges.
type NodeState struct {
	ID       uint64
	Position *board.Position
	BestMove board.Move
	HasBest  bool
	Score    float64
	Explored bool
	Terminal bool
}

// Stats summarises the graph and the propagation work done on it.
type Stats struct {
	Nodes             int
	Edges             int
	Explored          int
	Terminal          int
	Propagations      int
	MaxPropagateDepth int
}

// better reports whether a improves on b for the side to move.
func better(white bool, a, b float64) bool {
	if white {
		return a > b
	}
	return a < b
}
