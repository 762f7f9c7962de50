package search

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/graph"
)

// EngineConfig configures a search session.
type EngineConfig struct {
	// RetainGraph keeps the graph between requests so a repeated or
	// follow-up position reuses earlier expansion. By default every request
	// starts from an empty graph.
	RetainGraph bool
	// Search is the per-request template; its Logger is replaced by Logger.
	Search Config
	Logger zerolog.Logger
}

// Engine owns one graph and serializes requests against it.
type Engine struct {
	mu  sync.Mutex
	cfg EngineConfig
	log zerolog.Logger
	g   *graph.Manager
}

func NewEngine(cfg EngineConfig) *Engine {
	cfg.Search.Logger = cfg.Logger
	return &Engine{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "engine").Logger(),
		g:   graph.New(),
	}
}

// BestMove searches pos for up to iterations batches; zero uses the
// configured default. An internal error discards the graph so the next
// request starts clean.
func (e *Engine) BestMove(ctx context.Context, pos *board.Position, iterations int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.RetainGraph {
		e.g.Clear()
	}
	cfg := e.cfg.Search
	if iterations > 0 {
		cfg.Iterations = iterations
	}

	res, err := NewSearcher(cfg, e.g).Run(ctx, pos)
	switch {
	case err == nil:
		observe(res, outcomeMove)
	case errors.Is(err, ErrNoLegalMoves):
		observe(res, outcomeNoMoves)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		observe(res, outcomeCancelled)
	default:
		observe(res, outcomeError)
		e.log.Error().Err(err).Str("fen", pos.FEN()).Msg("search failed, clearing graph")
		e.g.Clear()
	}
	return res, err
}

// WithGraph runs fn while holding the session lock.
func (e *Engine) WithGraph(fn func(g *graph.Manager) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.g)
}

// Graph returns the session graph. It must not be used while a search may
// be running; prefer WithGraph.
func (e *Engine) Graph() *graph.Manager {
	return e.g
}

// Reset discards every node.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.g.Clear()
}
