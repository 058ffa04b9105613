package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tblimport/internal/core"
	"github.com/JonMunkholm/tblimport/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP import API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	bind, closeStore, err := sharedBinder(ctx, cfg.Store)
	if err != nil {
		return &core.Error{Kind: core.KindStore, Op: "open store", RC: 20, Reason: "SEVERE", Err: err}
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}()

	im := core.NewImporter(bind, cfg.Import.MaxDocumentSize)
	server := web.NewServer(im, cfg.Server, cfg.Import.Encoding)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr(), "driver", cfg.Store.Driver)
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return &core.Error{Kind: core.KindIO, Op: "listen", RC: 20, Reason: "SEVERE", Err: err}
	}
	slog.Info("server stopped")
	return nil
}
