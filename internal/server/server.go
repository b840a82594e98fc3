// Package server exposes the concierge HTTP API: brief management, the
// outreach trigger, the inbound email webhook, and ops quote actions.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmbli/concierge/internal/automation"
	"github.com/nmbli/concierge/internal/negotiation"
	"github.com/nmbli/concierge/internal/notify"
	"github.com/nmbli/concierge/internal/quotes"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB           *gorm.DB
	Port         int
	Orchestrator *automation.Orchestrator
	Engine       *negotiation.Engine
	Parser       *quotes.Parser
	Notifier     *notify.Notifier
	Out          io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Orchestrator == nil {
		return fmt.Errorf("server: orchestrator is required")
	}
	if opts.Parser == nil {
		return fmt.Errorf("server: parser is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	router := Router(opts)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Router builds the gin router with all routes registered.
func Router(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
