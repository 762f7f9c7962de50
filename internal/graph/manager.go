package graph

import (
	"fmt"

	"github.com/freeeve/cesac/internal/board"
)

type edgeKey struct {
	parent Handle
	move   board.Move
	child  Handle
}

// Manager owns every Node of one search session. It is not safe for
// concurrent use; callers serialize access.
type Manager struct {
	nodes []*Node
	index map[uint64]Handle
	edges map[edgeKey]struct{}

	propagations int
	maxDepth     int
}

// New returns an empty graph.
func New() *Manager {
	return &Manager{
		index: make(map[uint64]Handle),
		edges: make(map[edgeKey]struct{}),
	}
}

// GetOrCreate returns the node for pos, creating it when its identity is
// new. The second result reports whether a node was created.
func (m *Manager) GetOrCreate(pos *board.Position) (Handle, bool) {
	id := pos.Identity()
	if h, ok := m.index[id]; ok {
		return h, false
	}
	h := Handle(len(m.nodes))
	m.nodes = append(m.nodes, &Node{
		Position: pos,
		ID:       id,
		Score:    pos.StaticScore(),
		Valid:    true,
	})
	m.index[id] = h
	return h, true
}

// Lookup finds the node for an identity.
func (m *Manager) Lookup(id uint64) (Handle, bool) {
	h, ok := m.index[id]
	return h, ok
}

// Node returns the node behind h, or nil for an unknown handle.
func (m *Manager) Node(h Handle) *Node {
	if h < 0 || int(h) >= len(m.nodes) {
		return nil
	}
	return m.nodes[h]
}

// Link records parent -move-> child and the matching back edge. It reports
// false when the edge was already known.
func (m *Manager) Link(parent Handle, move board.Move, child Handle) bool {
	k := edgeKey{parent: parent, move: move, child: child}
	if _, ok := m.edges[k]; ok {
		return false
	}
	m.edges[k] = struct{}{}
	p, c := m.nodes[parent], m.nodes[child]
	p.Children = append(p.Children, Edge{Move: move, Node: child})
	c.Parents = append(c.Parents, Edge{Move: move, Node: parent})
	return true
}

// MarkExplored flags h as expanded.
func (m *Manager) MarkExplored(h Handle) {
	m.nodes[h].Explored = true
}

// UpdateScore reports score for the child of h reached by via.
//
// The report is accepted when h has no best move yet or when score is
// strictly better for h's side to move; an accepted report is propagated
// to every parent of h. A worse report for the current best move rescans
// h's children instead and is not propagated. A node already on the
// current propagation path is not re-entered, so cycles terminate; a node
// reached again through another branch is updated again.
func (m *Manager) UpdateScore(h Handle, score float64, via board.Move) {
	path := make(map[Handle]struct{})
	m.update(h, score, via, 0, path)
}

// Resolve fixes the score of a node without legal moves and propagates it
// to the node's parents.
func (m *Manager) Resolve(h Handle, score float64) {
	n := m.nodes[h]
	n.Terminal = true
	n.Explored = true
	n.HasBest = false
	n.BestMove = board.Move{}
	n.Score = score

	path := map[Handle]struct{}{h: {}}
	m.propagate(n, 0, path)
}

func (m *Manager) update(h Handle, score float64, via board.Move, depth int, path map[Handle]struct{}) {
	if _, onPath := path[h]; onPath {
		return
	}
	path[h] = struct{}{}
	defer delete(path, h)

	n := m.nodes[h]
	if n.Terminal {
		return
	}
	white := n.WhiteToMove()

	switch {
	case !n.HasBest || better(white, score, n.Score):
		n.BestMove = via
		n.HasBest = true
		n.Score = score
		m.propagate(n, depth, path)
	case via == n.BestMove && better(white, n.Score, score):
		m.rescan(n, score)
	}
}

func (m *Manager) propagate(n *Node, depth int, path map[Handle]struct{}) {
	m.propagations++
	if depth > m.maxDepth {
		m.maxDepth = depth
	}
	for _, e := range n.Parents {
		m.update(e.Node, n.Score, e.Move, depth+1, path)
	}
}

// rescan recomputes the best child after the current best regressed to
// reported. Ties keep the current best move; otherwise the first best child
// in insertion order wins.
func (m *Manager) rescan(n *Node, reported float64) {
	if len(n.Children) == 0 {
		n.BestMove = board.Move{}
		n.HasBest = false
		return
	}
	white := n.WhiteToMove()
	current := n.BestMove

	var (
		bestMove  board.Move
		bestScore float64
		found     bool
	)
	for _, e := range n.Children {
		s := m.nodes[e.Node].Score
		if e.Move == current {
			s = reported
		}
		if !found || better(white, s, bestScore) || (s == bestScore && e.Move == current) {
			bestMove, bestScore, found = e.Move, s, true
		}
	}
	n.BestMove = bestMove
	n.HasBest = true
	n.Score = bestScore
}

// Len returns the number of nodes.
func (m *Manager) Len() int { return len(m.nodes) }

// EdgeCount returns the number of distinct parent/move/child edges.
func (m *Manager) EdgeCount() int { return len(m.edges) }

// Each calls fn for every node in creation order.
func (m *Manager) Each(fn func(Handle, *Node)) {
	for i, n := range m.nodes {
		fn(Handle(i), n)
	}
}

// Clear drops every node and edge.
func (m *Manager) Clear() {
	for _, n := range m.nodes {
		n.Parents = nil
		n.Children = nil
	}
	m.nodes = nil
	m.index = make(map[uint64]Handle)
	m.edges = make(map[edgeKey]struct{})
	m.propagations = 0
	m.maxDepth = 0
}

// Restore inserts a persisted node.
func (m *Manager) Restore(s NodeState) (Handle, error) {
	if s.Position == nil {
		return NoHandle, fmt.Errorf("restore %016x: missing position", s.ID)
	}
	if id := s.Position.Identity(); id != s.ID {
		return NoHandle, fmt.Errorf("%w: stored %016x, computed %016x", ErrIdentityMismatch, s.ID, id)
	}
	if _, ok := m.index[s.ID]; ok {
		return NoHandle, fmt.Errorf("%w: %016x", ErrDuplicateNode, s.ID)
	}
	h, _ := m.GetOrCreate(s.Position)
	n := m.nodes[h]
	n.BestMove = s.BestMove
	n.HasBest = s.HasBest
	n.Score = s.Score
	n.Explored = s.Explored
	n.Terminal = s.Terminal
	return h, nil
}

// RestoreEdge links two already restored nodes by identity.
func (m *Manager) RestoreEdge(parentID uint64, move board.Move, childID uint64) error {
	p, ok := m.index[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %016x", ErrUnknownPosition, parentID)
	}
	c, ok := m.index[childID]
	if !ok {
		return fmt.Errorf("%w: child %016x", ErrUnknownPosition, childID)
	}
	m.Link(p, move, c)
	return nil
}

// State returns the persisted form of h.
func (m *Manager) State(h Handle) NodeState {
	n := m.nodes[h]
	return NodeState{
		ID:       n.ID,
		Position: n.Position,
		BestMove: n.BestMove,
		HasBest:  n.HasBest,
		Score:    n.Score,
		Explored: n.Explored,
		Terminal: n.Terminal,
	}
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Nodes:             len(m.nodes),
		Edges:             len(m.edges),
		Propagations:      m.propagations,
		MaxPropagateDepth: m.maxDepth,
	}
	for _, n := range m.nodes {
		if n.Explored {
			s.Explored++
		}
		if n.Terminal {
			s.Terminal++
		}
	}
	return s
}
