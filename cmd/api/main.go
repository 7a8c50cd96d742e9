package main

import (
	"os"

	"github.com/yigit/campusdata/internal/pkg/logger"
	"github.com/yigit/campusdata/internal/server"
)

// @title Campus Data API
// @version 1.0
// @description Students, courses and teachers over a session based data access layer

// @host localhost:8080
// @BasePath /api/v1
// @schemes http

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
	os.Exit(0)
}
