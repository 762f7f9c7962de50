package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cesac/internal/board"
	"github.com/freeeve/cesac/internal/logx"
	"github.com/freeeve/cesac/internal/referee"
)

type result struct {
	audit      referee.Audit
	ours, ref  int
	err        error
	comparison *referee.Comparison
}

func main() {
	var (
		inputPath  = flag.String("input", "-", "file with one FEN per line (- for stdin)")
		perftDepth = flag.Int("perft", 0, "also compare perft counts to this depth (0 = off)")
		workers    = flag.Int("workers", runtime.NumCPU(), "parallel audits")

		// Stockfish
		stockfishPath = flag.String("stockfish", os.Getenv("STOCKFISH_PATH"), "path to a UCI engine; enables best-move comparison")
		depth         = flag.Int("depth", 12, "external engine search depth")
		iterations    = flag.Int("iterations", 50, "our search iterations per position")
		logLevel      = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger := logx.NewLogger(os.Stderr, logx.ParseLevel(*logLevel))

	in := io.Reader(os.Stdin)
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}
	fens, err := readFENs(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
	if len(fens) == 0 {
		fens = []string{board.StartFEN}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := make([]result, len(fens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for i, fen := range fens {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := &results[i]
			r.audit, r.err = referee.AuditFEN(fen)
			if r.err == nil && *perftDepth > 0 {
				r.ours, r.ref, r.err = referee.Perft(fen, *perftDepth)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", err)
		os.Exit(1)
	}

	// one external engine process, positions in order
	if *stockfishPath != "" {
		ref, err := referee.NewReferee(referee.CompareConfig{
			StockfishPath: *stockfishPath,
			Depth:         *depth,
			Iterations:    *iterations,
			Logger:        logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "start engine: %v\n", err)
			os.Exit(1)
		}
		defer ref.Close()
		for i, fen := range fens {
			if results[i].err != nil || ctx.Err() != nil {
				continue
			}
			cmp, err := ref.Compare(ctx, fen)
			if err != nil {
				results[i].err = err
				continue
			}
			results[i].comparison = &cmp
		}
	}

	var failed, agreed, compared int
	for i, fen := range fens {
		r := results[i]
		if r.err != nil {
			failed++
			fmt.Printf("ERROR %s: %v\n", fen, r.err)
			continue
		}
		status := "ok"
		if !r.audit.OK() || r.ours != r.ref {
			status = "MISMATCH"
			failed++
		}
		fmt.Printf("%-8s %s legal=%d/%d", status, fen, r.audit.Ours, r.audit.Reference)
		if len(r.audit.KnownGaps) > 0 {
			fmt.Printf(" gaps=%s", strings.Join(r.audit.KnownGaps, ","))
		}
		if len(r.audit.Missing) > 0 {
			fmt.Printf(" missing=%s", strings.Join(r.audit.Missing, ","))
		}
		if len(r.audit.Extra) > 0 {
			fmt.Printf(" extra=%s", strings.Join(r.audit.Extra, ","))
		}
		if *perftDepth > 0 {
			fmt.Printf(" perft(%d)=%d/%d", *perftDepth, r.ours, r.ref)
		}
		if c := r.comparison; c != nil {
			compared++
			if c.Agree {
				agreed++
			}
			fmt.Printf(" ours=%s(%.1f) ref=%s(%d) agree=%t", c.Ours, c.OurScore, c.Reference, c.RefScore, c.Agree)
		}
		fmt.Println()
	}

	fmt.Printf("\n%d positions, %d failed", len(fens), failed)
	if compared > 0 {
		fmt.Printf(", best move agreement %d/%d", agreed, compared)
	}
	fmt.Println()
	if failed > 0 {
		os.Exit(1)
	}
}

// readFENs returns the non-blank, non-comment lines of r.
func readFENs(r io.Reader) ([]string, error) {
	var fens []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	return fens, sc.Err()
}
