package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and progress websocket",
	Long:  `Starts the job queue behind an HTTP API. Jobs and migrations are submitted over /api and progress is streamed on /ws.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	srv := server.New(application)

	stopped := make(chan struct{})
	stopSignals := watchSignals(application, func() { close(stopped) })
	defer stopSignals()

	serverErr := make(chan error, 1)
	common.SafeGo(logger, "http-server", func() {
		serverErr <- srv.Start()
	}, nil)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-stopped:
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
	return nil
}
