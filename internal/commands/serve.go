package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/threatbridge/threatbridge/internal/alerts"
	"github.com/threatbridge/threatbridge/internal/ontology"
	"github.com/threatbridge/threatbridge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the correlation API server",
	Long: `Start the HTTP API. The knowledge base and retrieval corpus are loaded
once at startup; the server answers correlation, extraction and context
search requests until interrupted.`,
	Example: `  threatbridge serve
  threatbridge serve --addr :9000 --graph kb.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadGraph(cmd)
		if err != nil {
			// An absent knowledge base is not fatal for the server: it
			// still extracts and searches, correlation just matches nothing.
			log.Warn("starting without a knowledge base", "error", err)
			store = ontology.NewMemStore()
		}
		engine, err := newEngine(store)
		if err != nil {
			return err
		}
		index, err := loadIndex()
		if err != nil {
			return err
		}

		h := server.NewHandlers(
			alerts.NewLoader(log.Logger),
			engine,
			index,
			cfg.Retrieval.TopK,
			log,
		)

		listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			listenAddr = addr
		}

		srv := &http.Server{
			Addr:         listenAddr,
			Handler:      server.NewRouter(h),
			ReadTimeout:  cfg.Server.ReadTimeout(),
			WriteTimeout: cfg.Server.WriteTimeout(),
			IdleTimeout:  cfg.Server.IdleTimeout(),
		}

		shutdownCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("threatbridge listening",
				"addr", listenAddr,
				"triples", store.Len(),
				"corpus_docs", index.Len())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-shutdownCtx.Done():
		}
		log.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "override listen address")
	serveCmd.Flags().String("graph", "", "knowledge base YAML file (overrides config)")
}
