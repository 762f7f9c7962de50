package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/cesac/internal/eco"
)

// LegalResponse lists the legal moves of a position.
type LegalResponse struct {
	FEN     string   `json:"fen"`
	Side    string   `json:"side"`
	InCheck bool     `json:"in_check"`
	Score   float64  `json:"score"` // static material balance, white positive
	ID      string   `json:"id"`
	Moves   []string `json:"moves"`
	// Opening is set when the position is named in the loaded ECO book.
	Opening *eco.Opening `json:"opening,omitempty"`
}

// BestMoveResponse is the outcome of one search request. BestMove is empty
// when the side to move has no legal moves.
type BestMoveResponse struct {
	FEN        string  `json:"fen"`
	BestMove   string  `json:"bestmove"`
	Score      float64 `json:"score"`
	Checkmate  bool    `json:"checkmate,omitempty"`
	Stalemate  bool    `json:"stalemate,omitempty"`
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Expanded   int     `json:"expanded"`
	Iterations int     `json:"iterations"`
	ElapsedMS  int64   `json:"elapsed_ms"`
}

// GraphResponse summarises the session graph.
type GraphResponse struct {
	Nodes             int `json:"nodes"`
	Edges             int `json:"edges"`
	Explored          int `json:"explored"`
	Terminal          int `json:"terminal"`
	Propagations      int `json:"propagations"`
	MaxPropagateDepth int `json:"max_propagate_depth"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
