// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-recommender/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve exposes projects, recommendations and ratings over HTTP.
Recommendations stream as Server-Sent Events. /healthz pings the database
and the vector store; /metrics exposes Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}

	srv := server.New(a.store, a.pipeline, a.feedback, map[string]server.Pinger{
		"store":  a.store,
		"vector": a.vectors,
	}, logger.Named("server"),
		server.WithRateLimit(a.cfg.Server.RecommendationsPerMinute, time.Minute),
		server.WithCORS(a.cfg.Server.AllowedOrigins))
	return srv.ListenAndServe(ctx, addr)
}
