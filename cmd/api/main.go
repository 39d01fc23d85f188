package main

import (
	"os"

	"github.com/yigit/enrollplan/internal/pkg/logger"
	"github.com/yigit/enrollplan/internal/server"
)

// @title Enrollment Planner API
// @version 1.0
// @description Course catalog search, prerequisite resolution, schedule conflict detection and transcript ingestion

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Run the server (this blocks until shutdown signal)
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
