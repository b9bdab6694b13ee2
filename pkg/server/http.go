package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// serveHTTP mounts the streamable MCP handler alongside health and
// metrics endpoints and serves until ctx is cancelled.
func (s *Server) serveHTTP(ctx context.Context) error {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/mcp", streamable)
	r.Handle("/mcp/*", streamable)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := s.healthStatus()
		if missing := s.cfg.MissingRequired(); len(missing) > 0 {
			http.Error(w, status, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, status)
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving MCP over HTTP", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
