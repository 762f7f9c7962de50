// Package protocol implements the line-oriented UCI subset used to drive
// the engine from a chess GUI or a terminal.
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/eco"
	"github.com/freeeve/cesac/internal/graph"
	"github.com/freeeve/cesac/internal/search"
	"github.com/freeeve/cesac/internal/store"
)

var (
	ErrMissingArgs         = errors.New("missing arguments")
	ErrUnsupportedPosition = errors.New("unsupported position type")
	ErrIllegalMove         = errors.New("illegal move")
)

const (
	EngineName   = "Cesac 0.1"
	EngineAuthor = "the Cesac authors"
	nullMove     = "0000"
)

// Config configures a Session.
type Config struct {
	Out        io.Writer
	Logger     zerolog.Logger
	Engine     *search.Engine
	Iterations int // default budget for "go", 50 when zero
	// SnapshotPath, when set, receives a graph snapshot after every search.
	SnapshotPath string
	// Book names openings in the "d" output.
	Book *eco.Book
}

// Session holds the current position between commands.
type Session struct {
	out          io.Writer
	log          zerolog.Logger
	engine       *search.Engine
	pos          *board.Position
	iterations   int
	snapshotPath string
	book         *eco.Book
}

func NewSession(cfg Config) *Session {
	if cfg.Iterations <= 0 {
		cfg.Iterations = 50
	}
	if cfg.Engine == nil {
		cfg.Engine = search.NewEngine(search.EngineConfig{Logger: cfg.Logger})
	}
	return &Session{
		out:          cfg.Out,
		log:          cfg.Logger.With().Str("component", "uci").Logger(),
		engine:       cfg.Engine,
		pos:          board.StartPosition(),
		iterations:   cfg.Iterations,
		snapshotPath: cfg.SnapshotPath,
		book:         cfg.Book,
	}
}

// Position returns the current position.
func (s *Session) Position() *board.Position { return s.pos }

// Run reads commands from in until quit, EOF or ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.Handle(ctx, sc.Text())
		if err != nil {
			s.log.Warn().Err(err).Str("command", sc.Text()).Msg("command failed")
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

// Handle executes one command line. quit is true for stop, quit and exit.
func (s *Session) Handle(ctx context.Context, line string) (quit bool, err error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false, nil
	}
	s.log.Debug().Str("command", line).Msg("received")

	switch tokens[0] {
	case "uci":
		s.respond("id name " + EngineName)
		s.respond("id author " + EngineAuthor)
		s.respond("uciok")
	case "isready":
		s.respond("readyok")
	case "ucinewgame":
		s.pos = board.StartPosition()
		s.engine.Reset()
	case "position":
		pos, err := ParsePosition(tokens[1:])
		if err != nil {
			s.respond("info string error " + err.Error())
			return false, err
		}
		s.pos = pos
	case "go":
		return false, s.handleGo(ctx, tokens[1:])
	case "d":
		for _, l := range strings.Split(s.pos.String(), "\n") {
			s.respond(l)
		}
		if o := s.book.Lookup(s.pos); o != nil {
			s.respond("Opening: " + o.ECO + " " + o.Name)
		}
		s.respond("Fen: " + s.pos.FEN())
	case "stop", "quit", "exit":
		s.log.Info().Msg("exiting")
		return true, nil
	default:
		s.log.Debug().Str("command", tokens[0]).Msg("unknown command")
	}
	return false, nil
}

func (s *Session) handleGo(ctx context.Context, args []string) error {
	iterations := s.iterations
	for i := 0; i+1 < len(args); i++ {
		if args[i] != "iterations" {
			continue
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n <= 0 {
			s.respond("info string error invalid iterations " + args[i+1])
			s.respond("bestmove " + nullMove)
			return fmt.Errorf("%w: iterations %q", ErrMissingArgs, args[i+1])
		}
		iterations = n
	}

	res, err := s.engine.BestMove(ctx, s.pos, iterations)
	s.snapshot()
	switch {
	case errors.Is(err, search.ErrNoLegalMoves):
		if s.pos.InCheck(s.pos.SideToMove()) {
			s.respond("info string checkmate")
		} else {
			s.respond("info string stalemate")
		}
		s.respond("bestmove " + nullMove)
		return nil
	case err != nil:
		s.respond("info string error " + err.Error())
		s.respond("bestmove " + nullMove)
		return err
	}

	s.respond(fmt.Sprintf("info nodes %d score %g time %d", res.Nodes, res.Score, res.Duration.Milliseconds()))
	s.respond("bestmove " + res.Move.String())
	return nil
}

func (s *Session) snapshot() {
	if s.snapshotPath == "" {
		return
	}
	err := s.engine.WithGraph(func(g *graph.Manager) error {
		stats, err := store.SaveFile(s.snapshotPath, g)
		if err == nil {
			s.log.Debug().Int("nodes", stats.Nodes).Int("edges", stats.Edges).Str("path", s.snapshotPath).Msg("snapshot written")
		}
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("path", s.snapshotPath).Msg("snapshot failed")
	}
}

func (s *Session) respond(msg string) {
	s.log.Debug().Str("response", msg).Msg("responding")
	fmt.Fprintln(s.out, msg)
}

// ParsePosition decodes the arguments of a "position" command:
// "startpos" or "fen" followed by four to six FEN fields, then optionally
// "moves" and a list of long-algebraic moves. Every move must be legal in
// the position it is played from.
func ParsePosition(tokens []string) (*board.Position, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: position needs startpos or fen", ErrMissingArgs)
	}

	var (
		pos *board.Position
		i   int
	)
	switch tokens[0] {
	case "startpos":
		pos = board.StartPosition()
		i = 1
	case "fen":
		i = 1
		for i < len(tokens) && tokens[i] != "moves" {
			i++
		}
		p, err := board.ParseFEN(strings.Join(tokens[1:i], " "))
		if err != nil {
			return nil, err
		}
		pos = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPosition, tokens[0])
	}

	if i >= len(tokens) || tokens[i] != "moves" {
		return pos, nil
	}
	for _, tok := range tokens[i+1:] {
		m, err := board.ParseMove(tok)
		if err != nil {
			return nil, err
		}
		if !pos.IsLegal(m) {
			return nil, fmt.Errorf("%w: %s in %s", ErrIllegalMove, tok, pos.FEN())
		}
		pos = pos.Apply(m)
	}
	return pos, nil
}
