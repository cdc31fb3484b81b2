package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fooddex/fooddex/internal/engine"
)

// shutdownGrace bounds how long in-flight requests get on shutdown
const shutdownGrace = 5 * time.Second

// Server serves the engine's HTTP API surface
type Server struct {
	engine *engine.Engine
	logger zerolog.Logger
}

// NewServer wraps an engine for serving
func NewServer(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{engine: eng, logger: logger}
}

// Serve runs the API server until the context is cancelled, then attempts
// a graceful shutdown. This function blocks.
func (s *Server) Serve(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: Routes(s.engine),
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	s.logger.Info().Int("port", port).Msg("API server started")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}
	s.logger.Info().Msg("API server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("API server exited properly")
	return nil
}
