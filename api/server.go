// Package api serves the read-only catalog over HTTP. Every response comes
// from the local mirror; nothing here touches the ledger, so reads stay fast
// and work even when the chain endpoint is down.
package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mintworks/launchpadd/catalog"
	"github.com/mintworks/launchpadd/metrics"
)

// Server exposes the catalog query endpoints.
type Server struct {
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	logger  zerolog.Logger
	server  *http.Server
}

// NewServer creates a catalog API server on the given port.
func NewServer(cat *catalog.Catalog, m *metrics.Metrics, logger zerolog.Logger, port int) *Server {
	s := &Server{
		catalog: cat,
		metrics: m,
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.setupRoutes(),
	}

	return s
}

// Start verifies the port is bindable and then serves in the background.
func (s *Server) Start() error {
	startupChan := make(chan error, 1)

	go func() {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			startupChan <- fmt.Errorf("failed to bind to address %s: %w", s.server.Addr, err)
			return
		}
		ln.Close()
		startupChan <- nil

		err = s.server.ListenAndServe()
		switch err {
		case nil, http.ErrServerClosed:
			s.logger.Info().Msg("catalog API stopped")
		default:
			s.logger.Error().Err(err).Msg("catalog API error")
		}
	}()

	select {
	case err := <-startupChan:
		if err != nil {
			return err
		}
		s.logger.Info().Str("addr", s.server.Addr).Msg("catalog API listening")
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("catalog API startup timeout")
	}
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
