package referee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/search"
)

// CompareConfig configures the external engine and our own search budget.
type CompareConfig struct {
	StockfishPath string
	Logger        zerolog.Logger
	Depth         int // external engine search depth
	HashMB        int
	Threads       int
	Iterations    int // our search budget
}

// Comparison holds both engines' choice for one position. Scores are from
// white's point of view; RefScore is in centipawns, or moves to mate when
// RefMate is set.
type Comparison struct {
	FEN       string
	Ours      string
	OurScore  float64
	Reference string
	RefScore  int
	RefMate   bool
	RefDepth  int
	Agree     bool
}

// Referee keeps one external engine process open across comparisons.
type Referee struct {
	engine *uci.Engine
	ours   *search.Engine
	cfg    CompareConfig
	log    zerolog.Logger
}

// NewReferee starts the external engine.
func NewReferee(cfg CompareConfig) (*Referee, error) {
	if cfg.StockfishPath == "" {
		return nil, fmt.Errorf("stockfish path required")
	}
	if cfg.Depth == 0 {
		cfg.Depth = 12
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 64
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 50
	}

	engine, err := uci.NewEngine(cfg.StockfishPath)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := engine.SetOptions(opts); err != nil {
		engine.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}

	return &Referee{
		engine: engine,
		ours:   search.NewEngine(search.EngineConfig{Logger: cfg.Logger}),
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "referee").Logger(),
	}, nil
}

func (r *Referee) Close() error {
	if r.engine != nil {
		r.engine.Close()
	}
	return nil
}

// Compare searches fen with both engines.
func (r *Referee) Compare(ctx context.Context, fen string) (Comparison, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return Comparison{}, err
	}
	cmp := Comparison{FEN: pos.FEN()}

	res, err := r.ours.BestMove(ctx, pos, r.cfg.Iterations)
	switch {
	case errors.Is(err, search.ErrNoLegalMoves):
	case err != nil:
		return cmp, fmt.Errorf("search: %w", err)
	default:
		cmp.Ours = res.Move.String()
		cmp.OurScore = res.Score
	}

	if err := r.engine.SetFEN(cmp.FEN); err != nil {
		return cmp, fmt.Errorf("set FEN: %w", err)
	}
	results, err := r.engine.GoDepth(r.cfg.Depth, uci.HighestDepthOnly)
	if err != nil {
		return cmp, fmt.Errorf("stockfish eval: %w", err)
	}
	if len(results.Results) == 0 {
		return cmp, fmt.Errorf("no results from engine")
	}

	best := results.Results[0]
	for _, res := range results.Results {
		if res.Depth > best.Depth {
			best = res
		}
	}
	// Normalize to white's perspective
	score := best.Score
	if strings.Contains(cmp.FEN, " b ") {
		score = -score
	}
	cmp.Reference = results.BestMove
	cmp.RefScore = score
	cmp.RefMate = best.Mate
	cmp.RefDepth = best.Depth
	cmp.Agree = cmp.Ours != "" && cmp.Ours == cmp.Reference

	r.log.Debug().
		Str("fen", cmp.FEN).
		Str("ours", cmp.Ours).
		Str("reference", cmp.Reference).
		Int("ref_score", cmp.RefScore).
		Bool("agree", cmp.Agree).
		Msg("compared")
	return cmp, nil
}

// Compare runs a single comparison with a short-lived external engine.
func Compare(ctx context.Context, cfg CompareConfig, fen string) (Comparison, error) {
	r, err := NewReferee(cfg)
	if err != nil {
		return Comparison{}, err
	}
	defer r.Close()
	return r.Compare(ctx, fen)
}
