package cli

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slatehq/slate/internal/api"
	"github.com/slatehq/slate/internal/config"
	"github.com/slatehq/slate/internal/enrich"
	"github.com/slatehq/slate/internal/store"
	"github.com/slatehq/slate/internal/worker"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the slate API server",
		Long: `Start the HTTP API server together with the background worker that
fetches briefs for items carrying a reference link.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(config.Load())
		},
	}
}

func runServe(cfg config.Config) error {
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return err
	}

	// Reset briefs left FETCHING by a previous run.
	if n, err := s.ResetStaleBriefs(context.Background()); err != nil {
		log.Printf("warning: reset stale briefs: %v", err)
	} else if n > 0 {
		log.Printf("reset %d stale FETCHING briefs to PENDING", n)
	}

	var extractor enrich.Extractor
	if cfg.EnrichEnabled {
		extractor = enrich.NewHTTPExtractor(cfg.HTTPTimeout)
	} else {
		slog.Info("enrichment disabled, using stub extractor")
		extractor = &enrich.StubExtractor{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := worker.New(s, extractor, cfg.WorkerInterval)
	go w.Start(ctx)

	srv := api.New(s, cfg.CORSOrigin)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	slog.Info("slate server listening", "port", cfg.Port, "db", cfg.DBPath)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
