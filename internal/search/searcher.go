// Package search drives the breadth-first expansion of the transposition
// graph and reads the best move back from the root.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/graph"
)

// ErrNoLegalMoves is returned when the root ends a search without a best
// move: checkmate or stalemate at the root. The caller tells them apart
// with the root position's in-check flag.
var ErrNoLegalMoves = errors.New("no legal moves")

// MateScore is the score of a checkmated position, signed against the
// mated side.
const MateScore = 1000.0

// State is the searcher's phase within one Run.
type State int32

const (
	StateIdle State = iota
	StateSeed
	StateExpanding
	StateDone
)

func (s State) String() string {
	switch s {
	case StateSeed:
		return "seed"
	case StateExpanding:
		return "expanding"
	case StateDone:
		return "done"
	default:
		return "idle"
	}
}

// Config controls one search request.
type Config struct {
	Iterations    int // batches to drain
	BatchSize     int // frontier entries per batch
	SeedLimit     int // children followed per node when reseeding an explored root
	ProgressEvery int // log every N dequeued entries, negative disables
	Filter        Filter
	Logger        zerolog.Logger
}

// Result describes a finished search.
type Result struct {
	Move       board.Move
	HasMove    bool
	Score      float64
	Root       graph.Handle
	Nodes      int
	Edges      int
	Expanded   int
	Iterations int
	Duration   time.Duration
}

// Searcher runs requests against a graph it does not own.
type Searcher struct {
	cfg   Config
	log   zerolog.Logger
	g     *graph.Manager
	state atomic.Int32

	queue    *WorkQueue
	queued   map[uint64]struct{} // identities pushed this request
	expanded map[graph.Handle]struct{}
	seen     map[graph.Handle]struct{}
	leaves   []graph.Handle
	dequeued int
}

// NewSearcher fills zero Config fields with defaults.
func NewSearcher(cfg Config, g *graph.Manager) *Searcher {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 50
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.SeedLimit <= 0 {
		cfg.SeedLimit = 40
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 500
	}
	if cfg.Filter == nil {
		cfg.Filter = BaselineFilter
	}
	return &Searcher{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "search").Logger(),
		g:   g,
	}
}

// State returns the current phase. It may be read from other goroutines.
func (s *Searcher) State() State {
	return State(s.state.Load())
}

// Run expands the graph from pos and returns the root's best move.
//
// A root already explored by an earlier request is reseeded from its
// unexplored descendants. Cancelling ctx stops the search between batches;
// the best move found so far is still returned.
func (s *Searcher) Run(ctx context.Context, pos *board.Position) (Result, error) {
	start := time.Now()
	s.state.Store(int32(StateSeed))
	defer s.state.Store(int32(StateDone))

	s.queue = NewWorkQueue()
	s.queued = make(map[uint64]struct{})
	s.expanded = make(map[graph.Handle]struct{})
	s.seen = make(map[graph.Handle]struct{})
	s.dequeued = 0

	root, created := s.g.GetOrCreate(pos)
	rn := s.g.Node(root)
	q := s.queue
	if !created && rn.Explored {
		for _, e := range s.seed(root) {
			s.enqueue(e)
		}
	} else {
		s.enqueue(Entry{Depth: 0, ID: rn.ID})
	}
	s.log.Debug().
		Str("fen", pos.FEN()).
		Bool("reused", !created).
		Int("queue", q.Len()).
		Msg("seeded")

	rootScore := pos.StaticScore()
	rootWhite := pos.WhiteToMove()
	res := Result{Root: root}

	s.state.Store(int32(StateExpanding))
	for i := 0; i < s.cfg.Iterations; i++ {
		if ctx.Err() != nil {
			s.log.Info().Int("iteration", i).Msg("search cancelled")
			break
		}
		batch := q.TakeUpTo(s.cfg.BatchSize)
		if len(batch) == 0 {
			break
		}
		res.Iterations++
		s.log.Debug().
			Int("iteration", i).
			Int("grabbed", len(batch)).
			Int("queue_len", q.Len()).
			Msg("iteration")

		for _, e := range batch {
			s.dequeued++
			if s.cfg.ProgressEvery > 0 && s.dequeued%s.cfg.ProgressEvery == 0 {
				s.log.Debug().
					Int("dequeued", s.dequeued).
					Uint32("depth", e.Depth).
					Int("queue", q.Len()).
					Int("nodes", s.g.Len()).
					Msg("search progress")
			}
			if err := s.step(e, rootScore, rootWhite); err != nil {
				return s.finish(res, start), err
			}
		}
	}

	res = s.finish(res, start)
	s.log.Info().
		Str("best", res.Move.String()).
		Bool("has_move", res.HasMove).
		Float64("score", res.Score).
		Int("nodes", res.Nodes).
		Int("edges", res.Edges).
		Int("expanded", res.Expanded).
		Int("iterations", res.Iterations).
		Dur("elapsed", res.Duration).
		Msg("search done")

	if !res.HasMove {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		return res, ErrNoLegalMoves
	}
	return res, nil
}

// step expands one frontier entry and backpropagates its leaves.
func (s *Searcher) step(e Entry, rootScore float64, rootWhite bool) error {
	h, ok := s.g.Lookup(e.ID)
	if !ok {
		return fmt.Errorf("%w: queued identity %016x", graph.ErrUnknownPosition, e.ID)
	}
	if _, done := s.expanded[h]; done {
		return nil
	}
	n := s.g.Node(h)
	if n.Terminal {
		return nil
	}
	if !s.cfg.Filter(rootScore, n.Position.StaticScore(), rootWhite) {
		return nil
	}
	s.expanded[h] = struct{}{}

	for _, leaf := range s.expand(h) {
		ln := s.g.Node(leaf)
		for _, p := range ln.Parents {
			s.g.UpdateScore(p.Node, ln.Score, p.Move)
		}
		if !ln.Terminal {
			s.enqueue(Entry{Depth: e.Depth + 2, ID: ln.ID})
		}
	}
	return nil
}

// enqueue pushes e unless its identity was already queued this request.
func (s *Searcher) enqueue(e Entry) {
	if _, dup := s.queued[e.ID]; dup {
		return
	}
	s.queued[e.ID] = struct{}{}
	s.queue.Push(e)
}

// expand generates two plies below h and returns the distinct grandchildren.
// Positions without legal moves met on the way are resolved in place.
func (s *Searcher) expand(h graph.Handle) []graph.Handle {
	g := s.g
	g.MarkExplored(h)
	n := g.Node(h)

	moves := n.Position.LegalMoves()
	if len(moves) == 0 {
		g.Resolve(h, terminalScore(n.Position))
		return nil
	}

	clear(s.seen)
	leaves := s.leaves[:0]
	for _, m := range moves {
		c, _ := g.GetOrCreate(n.Position.Apply(m))
		g.Link(h, m, c)
		cn := g.Node(c)
		if cn.Terminal {
			g.UpdateScore(h, cn.Score, m)
			continue
		}

		g.MarkExplored(c)
		replies := cn.Position.LegalMoves()
		if len(replies) == 0 {
			g.Resolve(c, terminalScore(cn.Position))
			continue
		}
		for _, r := range replies {
			gc, _ := g.GetOrCreate(cn.Position.Apply(r))
			g.Link(c, r, gc)
			if _, dup := s.seen[gc]; dup {
				continue
			}
			s.seen[gc] = struct{}{}
			leaves = append(leaves, gc)
		}
	}
	s.leaves = leaves
	return leaves
}

// seed collects the unexplored descendants of an explored root, following
// at most SeedLimit children per node.
func (s *Searcher) seed(root graph.Handle) []Entry {
	var out []Entry
	visited := make(map[graph.Handle]struct{})
	s.collect(root, 1, visited, &out)
	return out
}

func (s *Searcher) collect(h graph.Handle, depth uint32, visited map[graph.Handle]struct{}, out *[]Entry) {
	if _, ok := visited[h]; ok {
		return
	}
	visited[h] = struct{}{}

	children := s.g.Node(h).Children
	if len(children) > s.cfg.SeedLimit {
		children = children[:s.cfg.SeedLimit]
	}
	for _, e := range children {
		c := s.g.Node(e.Node)
		if c.Explored {
			s.collect(e.Node, depth+1, visited, out)
			continue
		}
		if _, ok := visited[e.Node]; ok {
			continue
		}
		visited[e.Node] = struct{}{}
		*out = append(*out, Entry{Depth: depth, ID: c.ID})
	}
}

func (s *Searcher) finish(res Result, start time.Time) Result {
	rn := s.g.Node(res.Root)
	res.Move = rn.BestMove
	res.HasMove = rn.HasBest
	res.Score = rn.Score
	res.Nodes = s.g.Len()
	res.Edges = s.g.EdgeCount()
	res.Expanded = len(s.expanded)
	res.Duration = time.Since(start)
	return res
}

// terminalScore scores a position whose side to move has no legal moves.
func terminalScore(p *board.Position) float64 {
	side := p.SideToMove()
	if !p.InCheck(side) {
		return 0
	}
	if side == board.White {
		return -MateScore
	}
	return MateScore
}
