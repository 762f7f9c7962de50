// Package httpapi exposes a small diagnostic HTTP interface over the
// engine: legal move listing, one-shot searches and graph statistics.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/eco"
	"github.com/freeeve/cesac/internal/graph"
	"github.com/freeeve/cesac/internal/protocol"
	"github.com/freeeve/cesac/internal/search"
)

// RouterConfig configures the diagnostic handlers.
type RouterConfig struct {
	Engine            *search.Engine
	DefaultIterations int // used when the request has no iterations parameter
	MaxIterations     int // requests above this are clamped
	Book              *eco.Book
}

// Handler serves requests against one engine session.
type Handler struct {
	engine  *search.Engine
	book    *eco.Book
	log     zerolog.Logger
	defIter int
	maxIter int
}

// NewRouter creates the HTTP router.
func NewRouter(log zerolog.Logger, cfg RouterConfig) http.Handler {
	if cfg.Engine == nil {
		cfg.Engine = search.NewEngine(search.EngineConfig{Logger: log})
	}
	if cfg.DefaultIterations <= 0 {
		cfg.DefaultIterations = 50
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 500
	}
	h := &Handler{
		engine:  cfg.Engine,
		book:    cfg.Book,
		log:     log,
		defIter: cfg.DefaultIterations,
		maxIter: cfg.MaxIterations,
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(h.health))
	mux.Handle("/readyz", http.HandlerFunc(h.health))
	mux.Handle("/v1/legal", http.HandlerFunc(h.legal))
	mux.Handle("/v1/bestmove", http.HandlerFunc(h.bestMove))
	mux.Handle("/v1/graph", http.HandlerFunc(h.graphStats))
	mux.Handle("/metrics", promhttp.Handler())

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return RequestID(AccessLog(log, mux))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// positionFromQuery reads fen (a FEN string or "startpos") and an optional
// moves list separated by spaces or commas.
func positionFromQuery(r *http.Request) (*board.Position, error) {
	q := r.URL.Query()
	fen := strings.TrimSpace(q.Get("fen"))
	if fen == "" {
		return nil, errors.New("missing fen parameter")
	}

	tokens := []string{"startpos"}
	if fen != "startpos" {
		tokens = append([]string{"fen"}, strings.Fields(fen)...)
	}
	if moves := strings.FieldsFunc(q.Get("moves"), func(c rune) bool { return c == ',' || c == ' ' }); len(moves) > 0 {
		tokens = append(tokens, "moves")
		tokens = append(tokens, moves...)
	}
	return protocol.ParsePosition(tokens)
}

func (h *Handler) legal(w http.ResponseWriter, r *http.Request) {
	pos, err := positionFromQuery(r)
	if err != nil {
		http.Error(w, "invalid position: "+err.Error(), http.StatusBadRequest)
		return
	}

	moves := pos.LegalMoves()
	resp := LegalResponse{
		FEN:     pos.FEN(),
		Side:    pos.SideToMove().String(),
		InCheck: pos.InCheck(pos.SideToMove()),
		Score:   pos.StaticScore(),
		ID:      fmt.Sprintf("%016x", pos.Identity()),
		Moves:   make([]string, 0, len(moves)),
		Opening: h.book.Lookup(pos),
	}
	for _, m := range moves {
		resp.Moves = append(resp.Moves, m.String())
	}
	writeJSON(w, resp)
}

func (h *Handler) bestMove(w http.ResponseWriter, r *http.Request) {
	pos, err := positionFromQuery(r)
	if err != nil {
		http.Error(w, "invalid position: "+err.Error(), http.StatusBadRequest)
		return
	}

	iterations := h.defIter
	if s := r.URL.Query().Get("iterations"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "invalid iterations parameter", http.StatusBadRequest)
			return
		}
		iterations = n
	}
	if iterations > h.maxIter {
		iterations = h.maxIter
	}

	res, err := h.engine.BestMove(r.Context(), pos, iterations)
	resp := BestMoveResponse{
		FEN:        pos.FEN(),
		Score:      res.Score,
		Nodes:      res.Nodes,
		Edges:      res.Edges,
		Expanded:   res.Expanded,
		Iterations: res.Iterations,
		ElapsedMS:  res.Duration.Milliseconds(),
	}
	switch {
	case errors.Is(err, search.ErrNoLegalMoves):
		inCheck := pos.InCheck(pos.SideToMove())
		resp.Checkmate = inCheck
		resp.Stalemate = !inCheck
	case err != nil:
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("search failed")
		http.Error(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	default:
		resp.BestMove = res.Move.String()
	}
	writeJSON(w, resp)
}

func (h *Handler) graphStats(w http.ResponseWriter, r *http.Request) {
	var st graph.Stats
	_ = h.engine.WithGraph(func(g *graph.Manager) error {
		st = g.Stats()
		return nil
	})
	writeJSON(w, GraphResponse{
		Nodes:             st.Nodes,
		Edges:             st.Edges,
		Explored:          st.Explored,
		Terminal:          st.Terminal,
		Propagations:      st.Propagations,
		MaxPropagateDepth: st.MaxPropagateDepth,
	})
}
