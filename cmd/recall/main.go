package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/sync"
	"github.com/conorfennell/recall/internal/web"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "recall:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("recall", pflag.ExitOnError)
	config.Flags(fs)
	addSource := fs.String("add-source", "", "Register a local directory or git URL as a card source")
	doSync := fs.Bool("sync", false, "Import cards from all sources, then exit unless --serve is set")
	serve := fs.Bool("serve", false, "Run the HTTP API")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	log := cfg.Logger()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Database opened successfully", "path", cfg.DB)

	// 3. Source management
	if *addSource != "" {
		src, err := sync.AddSource(ctx, log, db, *addSource)
		if err != nil {
			return fmt.Errorf("add source: %w", err)
		}
		fmt.Printf("Source %d (%s): %s\n", src.ID, src.Type, src.Path)
	}

	svc := deck.NewService(db, log, deck.WithLocation(cfg.Location()))

	if *doSync {
		report, err := sync.Run(ctx, log, db, cfg.ReposDir, svc.Now())
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		fmt.Printf("Synced %d sources: %d cards found, %d new, %d removed, %d errors.\n",
			report.Sources, report.Parsed, report.Inserted, report.Deleted, len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("- %s\n", e)
		}
	}

	if !*serve {
		// 4. Print a summary when not serving
		st, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d cards, %d due, %d answered today, streak %d.\n",
			st.TotalCards, st.DueCards, st.AnsweredToday, st.Streak)
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(svc, db, cfg.ReposDir, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
