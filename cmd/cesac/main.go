package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cesac/internal/eco"
	"github.com/freeeve/cesac/internal/httpapi"
	"github.com/freeeve/cesac/internal/logx"
	"github.com/freeeve/cesac/internal/protocol"
	"github.com/freeeve/cesac/internal/search"
	"github.com/freeeve/cesac/internal/store"
)

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		// Search
		iterations = flag.Int("iterations", envInt("CESAC_ITERATIONS", 50), "search iterations per go command")
		batchSize  = flag.Int("batch-size", 100, "queue entries expanded per iteration")
		seedLimit  = flag.Int("seed-limit", 40, "children followed per node when reseeding an explored root")
		noFilter   = flag.Bool("no-filter", false, "expand every leaf instead of only those at or above the root baseline")
		retain     = flag.Bool("retain", false, "keep the graph between searches")

		// Persistence
		snapshotPath = flag.String("snapshot", envString("CESAC_SNAPSHOT", ""), "write a graph snapshot here after every search")
		loadPath     = flag.String("load", "", "restore a graph snapshot at startup (implies -retain)")

		// Openings
		ecoDir = flag.String("eco-dir", envString("CESAC_ECO_DIR", ""), "directory of ECO .tsv files (empty = disabled)")

		// Diagnostics
		debugAddr = flag.String("debug-addr", envString("CESAC_DEBUG_ADDR", ""), "debug HTTP listen address (empty = disabled)")
		logLevel  = flag.String("log-level", envString("CESAC_LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()

	// stdout carries the protocol
	logger := logx.NewLogger(os.Stderr, logx.ParseLevel(*logLevel))

	searchCfg := search.Config{
		Iterations: *iterations,
		BatchSize:  *batchSize,
		SeedLimit:  *seedLimit,
	}
	if *noFilter {
		searchCfg.Filter = search.NoFilter
	}
	engine := search.NewEngine(search.EngineConfig{
		RetainGraph: *retain || *loadPath != "",
		Search:      searchCfg,
		Logger:      logger,
	})

	if *loadPath != "" {
		snap, err := store.LoadFile(*loadPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *loadPath).Msg("load snapshot")
		}
		if err := engine.WithGraph(snap.Restore); err != nil {
			logger.Fatal().Err(err).Str("path", *loadPath).Msg("restore snapshot")
		}
		logger.Info().
			Str("path", *loadPath).
			Int("nodes", len(snap.Nodes)).
			Int("edges", len(snap.Edges)).
			Msg("snapshot restored")
	}

	var book *eco.Book
	if *ecoDir != "" {
		book = eco.NewBook()
		if err := book.LoadDir(*ecoDir); err != nil {
			logger.Warn().Err(err).Str("dir", *ecoDir).Msg("failed to load ECO book")
			book = nil
		} else {
			logger.Info().Int("openings", book.Count()).Int("skipped", book.Skipped()).Msg("ECO book loaded")
		}
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// quitting the session stops everything else
		defer cancel()
		session := protocol.NewSession(protocol.Config{
			Out:          os.Stdout,
			Logger:       logger,
			Engine:       engine,
			Iterations:   *iterations,
			SnapshotPath: *snapshotPath,
			Book:         book,
		})
		done := make(chan error, 1)
		go func() { done <- session.Run(gctx, os.Stdin) }()
		select {
		case err := <-done:
			return err
		case <-gctx.Done():
			// stdin reads cannot be interrupted; the reader goroutine dies with the process
			return nil
		}
	})

	if *debugAddr != "" {
		srv := &http.Server{
			Addr: *debugAddr,
			Handler: httpapi.NewRouter(logger, httpapi.RouterConfig{
				Engine: search.NewEngine(search.EngineConfig{Search: searchCfg, Logger: logger}),
				Book:   book,
			}),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("debug listener")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}
